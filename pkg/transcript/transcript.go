// Package transcript defines the transcript data model and the upstream
// provider contract used by the dispatcher.
package transcript

import (
	"strings"
	"time"
)

// Segment is a single timed caption line.
type Segment struct {
	// Text is the caption text with markup stripped.
	Text string `json:"text"`

	// Start is the offset from the beginning of the video in seconds.
	Start float64 `json:"start"`

	// Duration is how long the segment is displayed, in seconds.
	Duration float64 `json:"duration"`
}

// Transcript is a fetched transcript for one video.
type Transcript struct {
	// VideoID is the upstream video identifier.
	VideoID string `json:"video_id"`

	// Language is the human-readable language name (e.g. "English").
	Language string `json:"language"`

	// LanguageCode is the BCP-47 language code (e.g. "en").
	LanguageCode string `json:"language_code"`

	// IsGenerated reports whether the track was auto-generated (ASR).
	IsGenerated bool `json:"is_generated"`

	// IsTranslatable reports whether the track can be machine-translated.
	IsTranslatable bool `json:"is_translatable"`

	// Translated reports whether the segments were machine-translated into
	// the requested language rather than authored in it.
	Translated bool `json:"translated"`

	// FetchedAt is when the transcript was retrieved from upstream.
	FetchedAt time.Time `json:"fetched_at"`

	// Segments are the timed caption lines in playback order.
	Segments []Segment `json:"segments"`
}

// PlainText joins all segment texts into a single space-separated string,
// dropping timing information.
func (t *Transcript) PlainText() string {
	parts := make([]string, 0, len(t.Segments))
	for _, seg := range t.Segments {
		if seg.Text != "" {
			parts = append(parts, seg.Text)
		}
	}
	return strings.Join(parts, " ")
}

// Duration returns the end offset of the last segment, or 0 for an empty
// transcript.
func (t *Transcript) Duration() time.Duration {
	if len(t.Segments) == 0 {
		return 0
	}
	last := t.Segments[len(t.Segments)-1]
	return time.Duration((last.Start + last.Duration) * float64(time.Second))
}
