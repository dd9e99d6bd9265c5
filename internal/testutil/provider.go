package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/vidscribe/transcript-dispatcher/pkg/transcript"
)

// ScriptedProvider is a transcript.Provider whose per-video behavior is
// scripted for tests: a sequence of errors to return before succeeding, an
// optional artificial delay, and concurrency instrumentation.
type ScriptedProvider struct {
	mu sync.Mutex

	// errs holds the remaining error script per video ID. Each Fetch pops
	// one; when the script is empty the fetch succeeds.
	errs map[string][]error

	// Delay is applied to every fetch, honoring context cancellation.
	Delay time.Duration

	calls       map[string]int
	inFlight    int
	maxInFlight int
}

// NewScriptedProvider creates a provider that succeeds on every call until
// scripted otherwise.
func NewScriptedProvider() *ScriptedProvider {
	return &ScriptedProvider{
		errs:  make(map[string][]error),
		calls: make(map[string]int),
	}
}

// Script sets the error sequence for a video. Fetches return the errors in
// order; once the sequence is exhausted, fetches succeed.
func (p *ScriptedProvider) Script(videoID string, errs ...error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.errs[videoID] = errs
}

// Calls returns the number of fetch attempts observed for a video.
func (p *ScriptedProvider) Calls(videoID string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls[videoID]
}

// MaxInFlight returns the highest number of concurrent fetches observed.
func (p *ScriptedProvider) MaxInFlight() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.maxInFlight
}

// Fetch implements transcript.Provider.
func (p *ScriptedProvider) Fetch(ctx context.Context, videoID, language string) (*transcript.Transcript, error) {
	p.mu.Lock()
	p.calls[videoID]++
	p.inFlight++
	if p.inFlight > p.maxInFlight {
		p.maxInFlight = p.inFlight
	}
	var err error
	if script := p.errs[videoID]; len(script) > 0 {
		err = script[0]
		p.errs[videoID] = script[1:]
	}
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		p.inFlight--
		p.mu.Unlock()
	}()

	if p.Delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(p.Delay):
		}
	}

	if err != nil {
		return nil, err
	}

	return &transcript.Transcript{
		VideoID:      videoID,
		Language:     "English",
		LanguageCode: language,
		FetchedAt:    time.Now(),
		Segments: []transcript.Segment{
			{Text: "hello", Start: 0, Duration: 1.5},
			{Text: "world", Start: 1.5, Duration: 2.0},
		},
	}, nil
}
