package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/vidscribe/transcript-dispatcher/pkg/transcript"
)

func testTranscript(videoID string) *transcript.Transcript {
	return &transcript.Transcript{
		VideoID:  videoID,
		Segments: []transcript.Segment{{Text: "hello", Start: 0, Duration: 1}},
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected FailureKind
	}{
		{
			name:     "no transcript",
			err:      fmt.Errorf("video x: %w", transcript.ErrNoTranscript),
			expected: FailureNotFound,
		},
		{
			name:     "transcripts disabled",
			err:      fmt.Errorf("video x: %w", transcript.ErrTranscriptsDisabled),
			expected: FailureDisabled,
		},
		{
			name:     "translation unavailable",
			err:      fmt.Errorf("%w: boom", transcript.ErrTranslationUnavailable),
			expected: FailureTranslationUnavailable,
		},
		{
			name:     "provider not ready",
			err:      fmt.Errorf("video x: %w: empty body", transcript.ErrProviderNotReady),
			expected: FailureTransientUpstream,
		},
		{
			name:     "deadline exceeded",
			err:      context.DeadlineExceeded,
			expected: FailureTimeout,
		},
		{
			name:     "unclassified error",
			err:      errors.New("connection reset by peer"),
			expected: FailureTransientUpstream,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := classify(tt.err); got != tt.expected {
				t.Errorf("classify() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestRetryable(t *testing.T) {
	tests := []struct {
		kind     FailureKind
		expected bool
	}{
		{FailureTransientUpstream, true},
		{FailureTimeout, true},
		{FailureNotFound, false},
		{FailureDisabled, false},
		{FailureTranslationUnavailable, false},
		{FailureTransientExhausted, false},
		{FailureBatchTooLarge, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			if got := retryable(tt.kind); got != tt.expected {
				t.Errorf("retryable(%q) = %v, want %v", tt.kind, got, tt.expected)
			}
		})
	}
}

func TestRetryConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*RetryConfig)
		wantErr bool
	}{
		{name: "default is valid", mutate: func(c *RetryConfig) {}, wantErr: false},
		{name: "zero attempts", mutate: func(c *RetryConfig) { c.MaxAttempts = 0 }, wantErr: true},
		{name: "negative delay", mutate: func(c *RetryConfig) { c.Delay = -time.Second }, wantErr: true},
		{name: "negative attempt timeout", mutate: func(c *RetryConfig) { c.AttemptTimeout = -time.Second }, wantErr: true},
		{name: "zero attempt timeout disables bound", mutate: func(c *RetryConfig) { c.AttemptTimeout = 0 }, wantErr: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultRetryConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func quickRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 3,
		Delay:       time.Millisecond,
	}
}

func TestRunWithRetry_SuccessFirstAttempt(t *testing.T) {
	calls := 0
	tr, attempts, err := runWithRetry(context.Background(), quickRetryConfig(), zerolog.Nop(), func(ctx context.Context) (*transcript.Transcript, error) {
		calls++
		return testTranscript("abc"), nil
	})

	if err != nil {
		t.Fatalf("runWithRetry() error = %v", err)
	}
	if tr == nil || tr.VideoID != "abc" {
		t.Errorf("unexpected transcript %+v", tr)
	}
	if calls != 1 || attempts != 1 {
		t.Errorf("calls = %d, attempts = %d, want 1 and 1", calls, attempts)
	}
}

func TestRunWithRetry_SuccessAfterTransientFailures(t *testing.T) {
	calls := 0
	tr, attempts, err := runWithRetry(context.Background(), quickRetryConfig(), zerolog.Nop(), func(ctx context.Context) (*transcript.Transcript, error) {
		calls++
		if calls < 3 {
			return nil, transcript.ErrProviderNotReady
		}
		return testTranscript("abc"), nil
	})

	if err != nil {
		t.Fatalf("runWithRetry() error = %v", err)
	}
	if tr == nil {
		t.Fatal("expected transcript after successful retry")
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
}

func TestRunWithRetry_TransientExhausted(t *testing.T) {
	calls := 0
	_, attempts, err := runWithRetry(context.Background(), quickRetryConfig(), zerolog.Nop(), func(ctx context.Context) (*transcript.Transcript, error) {
		calls++
		return nil, transcript.ErrProviderNotReady
	})

	if !errors.Is(err, ErrRetryExhausted) {
		t.Errorf("error = %v, want ErrRetryExhausted", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want exactly MaxAttempts (3)", calls)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
}

func TestRunWithRetry_NonRetryableTerminatesImmediately(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{name: "not found", err: transcript.ErrNoTranscript},
		{name: "disabled", err: transcript.ErrTranscriptsDisabled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			_, attempts, err := runWithRetry(context.Background(), quickRetryConfig(), zerolog.Nop(), func(ctx context.Context) (*transcript.Transcript, error) {
				calls++
				return nil, tt.err
			})

			if !errors.Is(err, tt.err) {
				t.Errorf("error = %v, want %v", err, tt.err)
			}
			if calls != 1 {
				t.Errorf("calls = %d, want 1 (no retry for permanent errors)", calls)
			}
			if attempts != 1 {
				t.Errorf("attempts = %d, want 1", attempts)
			}
			if errors.Is(err, ErrRetryExhausted) {
				t.Error("permanent errors must not be reported as retry exhaustion")
			}
		})
	}
}

func TestRunWithRetry_TimeoutIsTransient(t *testing.T) {
	calls := 0
	tr, _, err := runWithRetry(context.Background(), quickRetryConfig(), zerolog.Nop(), func(ctx context.Context) (*transcript.Transcript, error) {
		calls++
		if calls == 1 {
			return nil, context.DeadlineExceeded
		}
		return testTranscript("abc"), nil
	})

	if err != nil {
		t.Fatalf("runWithRetry() error = %v", err)
	}
	if tr == nil {
		t.Fatal("expected success after timed-out first attempt")
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
}

func TestRunWithRetry_AttemptTimeoutApplied(t *testing.T) {
	cfg := RetryConfig{
		MaxAttempts:    2,
		Delay:          time.Millisecond,
		AttemptTimeout: 20 * time.Millisecond,
	}

	calls := 0
	tr, _, err := runWithRetry(context.Background(), cfg, zerolog.Nop(), func(ctx context.Context) (*transcript.Transcript, error) {
		calls++
		if calls == 1 {
			// Simulate a hung attempt; the per-attempt deadline must fire.
			<-ctx.Done()
			return nil, ctx.Err()
		}
		return testTranscript("abc"), nil
	})

	if err != nil {
		t.Fatalf("runWithRetry() error = %v", err)
	}
	if tr == nil {
		t.Fatal("expected success on second attempt")
	}
}

func TestRunWithRetry_CallerCancellationStopsRetries(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	_, _, err := runWithRetry(ctx, quickRetryConfig(), zerolog.Nop(), func(attemptCtx context.Context) (*transcript.Transcript, error) {
		calls++
		cancel()
		return nil, transcript.ErrProviderNotReady
	})

	if err == nil {
		t.Fatal("expected error after cancellation")
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1 (no retries after caller cancellation)", calls)
	}
}
