// Package cache provides Redis-backed caching of fetched transcripts so
// repeat requests never touch the upstream provider.
package cache

import (
	"time"

	"github.com/vidscribe/transcript-dispatcher/pkg/transcript"
)

// Entry is a cached transcript with its expiry bookkeeping.
type Entry struct {
	// Transcript is the cached payload.
	Transcript *transcript.Transcript `json:"transcript"`

	// CachedAt is when the entry was stored.
	CachedAt time.Time `json:"cached_at"`

	// ExpiresAt is when the entry becomes stale.
	ExpiresAt time.Time `json:"expires_at"`
}

// IsExpired returns true if the entry has expired.
func (e *Entry) IsExpired() bool {
	return time.Now().After(e.ExpiresAt)
}

// TTL returns the time until expiration, or 0 if already expired.
func (e *Entry) TTL() time.Duration {
	ttl := time.Until(e.ExpiresAt)
	if ttl < 0 {
		return 0
	}
	return ttl
}
