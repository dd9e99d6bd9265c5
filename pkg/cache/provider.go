package cache

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/vidscribe/transcript-dispatcher/pkg/transcript"
)

// CachedProvider wraps a transcript.Provider with read-through caching.
// Cache failures degrade to direct upstream fetches; they never fail the
// request.
type CachedProvider struct {
	inner   transcript.Provider
	manager *Manager
	logger  zerolog.Logger
}

// NewCachedProvider wraps inner with the given cache manager.
func NewCachedProvider(inner transcript.Provider, manager *Manager) *CachedProvider {
	return &CachedProvider{
		inner:   inner,
		manager: manager,
		logger:  log.With().Str("component", "transcript-cache").Logger(),
	}
}

// Fetch implements transcript.Provider.
func (p *CachedProvider) Fetch(ctx context.Context, videoID, language string) (*transcript.Transcript, error) {
	key := Key{VideoID: videoID, Language: language}

	entry, err := p.manager.Get(ctx, key)
	if err == nil {
		p.logger.Debug().
			Str("video_id", videoID).
			Str("language", language).
			Msg("Cache hit")
		return entry.Transcript, nil
	}
	if err != ErrCacheMiss {
		p.logger.Warn().Err(err).Str("video_id", videoID).Msg("Cache get error")
	}

	tr, err := p.inner.Fetch(ctx, videoID, language)
	if err != nil {
		return nil, err
	}

	if setErr := p.manager.Set(ctx, key, &Entry{
		Transcript: tr,
		CachedAt:   time.Now(),
	}); setErr != nil {
		p.logger.Warn().Err(setErr).Str("video_id", videoID).Msg("Failed to cache transcript")
	}

	return tr, nil
}
