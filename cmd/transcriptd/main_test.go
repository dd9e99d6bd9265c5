package main

import (
	"testing"
	"time"
)

func TestGetEnv(t *testing.T) {
	t.Setenv("TEST_STRING", "value")

	if got := getEnv("TEST_STRING", "default"); got != "value" {
		t.Errorf("getEnv() = %q, want %q", got, "value")
	}
	if got := getEnv("TEST_STRING_UNSET", "default"); got != "default" {
		t.Errorf("getEnv() = %q, want %q", got, "default")
	}
}

func TestGetEnvInt(t *testing.T) {
	t.Setenv("TEST_INT", "42")
	t.Setenv("TEST_INT_BAD", "not a number")

	if got := getEnvInt("TEST_INT", 7); got != 42 {
		t.Errorf("getEnvInt() = %d, want 42", got)
	}
	if got := getEnvInt("TEST_INT_BAD", 7); got != 7 {
		t.Errorf("getEnvInt() with invalid value = %d, want default 7", got)
	}
	if got := getEnvInt("TEST_INT_UNSET", 7); got != 7 {
		t.Errorf("getEnvInt() unset = %d, want default 7", got)
	}
}

func TestGetEnvFloat(t *testing.T) {
	t.Setenv("TEST_FLOAT", "1.5")
	t.Setenv("TEST_FLOAT_BAD", "nope")

	if got := getEnvFloat("TEST_FLOAT", 2.0); got != 1.5 {
		t.Errorf("getEnvFloat() = %g, want 1.5", got)
	}
	if got := getEnvFloat("TEST_FLOAT_BAD", 2.0); got != 2.0 {
		t.Errorf("getEnvFloat() with invalid value = %g, want default 2.0", got)
	}
}

func TestGetEnvDuration(t *testing.T) {
	t.Setenv("TEST_DURATION", "250ms")
	t.Setenv("TEST_DURATION_BAD", "soon")

	if got := getEnvDuration("TEST_DURATION", time.Second); got != 250*time.Millisecond {
		t.Errorf("getEnvDuration() = %v, want 250ms", got)
	}
	if got := getEnvDuration("TEST_DURATION_BAD", time.Second); got != time.Second {
		t.Errorf("getEnvDuration() with invalid value = %v, want default 1s", got)
	}
}
