package cache

import (
	"fmt"
	"strings"
)

// Key identifies a cached transcript by video and requested language.
type Key struct {
	// VideoID is the upstream video identifier.
	VideoID string

	// Language is the requested language code.
	Language string
}

// String generates a deterministic cache key string.
// Format: transcript:{video_id}:{language}
func (k Key) String() string {
	lang := strings.ToLower(k.Language)
	if lang == "" {
		lang = "any"
	}
	return fmt.Sprintf("transcript:%s:%s", k.VideoID, lang)
}
