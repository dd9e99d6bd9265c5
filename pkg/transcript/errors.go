package transcript

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by providers. The dispatcher classifies outcomes
// with errors.Is against these.
var (
	// ErrNoTranscript indicates the video has no transcript in any language.
	ErrNoTranscript = errors.New("no transcript available")

	// ErrTranscriptsDisabled indicates transcripts are disabled for the video.
	ErrTranscriptsDisabled = errors.New("transcripts disabled")

	// ErrProviderNotReady indicates the upstream returned a momentarily
	// malformed or empty response. Safe to retry.
	ErrProviderNotReady = errors.New("provider not ready")

	// ErrTranslationUnavailable indicates the requested translation failed.
	// Providers fall back to the original-language track instead of
	// surfacing this to callers.
	ErrTranslationUnavailable = errors.New("translation unavailable")
)

// UpstreamError carries the HTTP status of a failed upstream exchange.
type UpstreamError struct {
	VideoID    string
	StatusCode int
	Err        error
}

// Error implements the error interface.
func (e *UpstreamError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("upstream error for %s (status %d): %v", e.VideoID, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("upstream error for %s (status %d)", e.VideoID, e.StatusCode)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *UpstreamError) Unwrap() error {
	return e.Err
}
