package transcript

import "context"

// Provider fetches one transcript per call. Implementations must be safe for
// concurrent use; the dispatcher calls Fetch from many goroutines.
//
// Fetch returns the transcript for videoID in the requested language where
// possible. Implementations are expected to degrade gracefully: when the
// requested language is unavailable but a translation or another track
// exists, they return that track rather than an error. Error returns are
// limited to the sentinels in errors.go, *UpstreamError, or context errors.
type Provider interface {
	Fetch(ctx context.Context, videoID, language string) (*Transcript, error)
}

// ProviderFunc adapts a plain function to the Provider interface.
type ProviderFunc func(ctx context.Context, videoID, language string) (*Transcript, error)

// Fetch implements Provider.
func (f ProviderFunc) Fetch(ctx context.Context, videoID, language string) (*Transcript, error) {
	return f(ctx, videoID, language)
}
