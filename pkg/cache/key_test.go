package cache

import (
	"testing"
)

func TestKey_String(t *testing.T) {
	tests := []struct {
		name     string
		key      Key
		expected string
	}{
		{
			name:     "video and language",
			key:      Key{VideoID: "dQw4w9WgXcQ", Language: "en"},
			expected: "transcript:dQw4w9WgXcQ:en",
		},
		{
			name:     "language lowercased",
			key:      Key{VideoID: "abc", Language: "EN"},
			expected: "transcript:abc:en",
		},
		{
			name:     "empty language",
			key:      Key{VideoID: "abc"},
			expected: "transcript:abc:any",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.key.String(); got != tt.expected {
				t.Errorf("String() = %q, want %q", got, tt.expected)
			}
		})
	}
}
