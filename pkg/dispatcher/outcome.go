// Package dispatcher coordinates concurrent transcript fetches behind an
// adaptive rate controller, with bounded per-task retries and aggregate
// statistics.
package dispatcher

import (
	"context"
	"errors"
	"time"

	"github.com/vidscribe/transcript-dispatcher/pkg/transcript"
)

// Request identifies one transcript to fetch.
type Request struct {
	// VideoID is the upstream video identifier.
	VideoID string `json:"video_id"`

	// Language is the target language code (e.g. "en").
	Language string `json:"language"`
}

// FailureKind classifies a failed fetch outcome.
type FailureKind string

const (
	// FailureTransientUpstream is a momentary upstream problem (malformed or
	// empty response, network error). Retryable.
	FailureTransientUpstream FailureKind = "transient_upstream"

	// FailureNotFound means no transcript exists for the video. Not retryable.
	FailureNotFound FailureKind = "not_found"

	// FailureDisabled means transcripts are disabled for the video. Not
	// retryable.
	FailureDisabled FailureKind = "disabled"

	// FailureTranslationUnavailable means translation failed and no
	// original-language fallback could be fetched either. Not retryable.
	FailureTranslationUnavailable FailureKind = "translation_unavailable"

	// FailureTimeout is a timed-out fetch attempt. Treated as transient.
	FailureTimeout FailureKind = "timeout"

	// FailureTransientExhausted means all retry attempts were consumed by
	// transient failures.
	FailureTransientExhausted FailureKind = "transient_exhausted"

	// FailureBatchTooLarge is the batch-level rejection for oversized
	// batches. Never appears on per-item outcomes.
	FailureBatchTooLarge FailureKind = "batch_too_large"
)

// Outcome is the tagged per-request result. Exactly one Outcome is produced
// for every submitted Request.
type Outcome struct {
	// VideoID echoes the request identifier.
	VideoID string `json:"video_id"`

	// Transcript is the fetched payload. Nil on failure.
	Transcript *transcript.Transcript `json:"transcript,omitempty"`

	// Kind classifies the failure. Empty on success.
	Kind FailureKind `json:"kind,omitempty"`

	// Message is the human-readable failure detail. Empty on success.
	Message string `json:"message,omitempty"`

	// Attempts is how many fetch attempts were made.
	Attempts int `json:"attempts"`

	// Duration is the wall-clock time from admission to completion.
	Duration time.Duration `json:"duration"`
}

// Succeeded reports whether the fetch produced a transcript.
func (o Outcome) Succeeded() bool {
	return o.Transcript != nil
}

// BatchResult is the ordered per-item result set for one batch, in the same
// order as the submitted requests.
type BatchResult []Outcome

// Successes counts successful outcomes in the batch.
func (b BatchResult) Successes() int {
	n := 0
	for _, o := range b {
		if o.Succeeded() {
			n++
		}
	}
	return n
}

// Failures counts failed outcomes in the batch.
func (b BatchResult) Failures() int {
	return len(b) - b.Successes()
}

// classify maps a provider error onto the failure taxonomy.
func classify(err error) FailureKind {
	switch {
	case errors.Is(err, transcript.ErrNoTranscript):
		return FailureNotFound
	case errors.Is(err, transcript.ErrTranscriptsDisabled):
		return FailureDisabled
	case errors.Is(err, transcript.ErrTranslationUnavailable):
		return FailureTranslationUnavailable
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return FailureTimeout
	default:
		// Malformed responses, network errors, and anything the provider
		// could not name more precisely.
		return FailureTransientUpstream
	}
}

// retryable reports whether a failure kind is worth another attempt.
func retryable(kind FailureKind) bool {
	switch kind {
	case FailureTransientUpstream, FailureTimeout:
		return true
	default:
		return false
	}
}
