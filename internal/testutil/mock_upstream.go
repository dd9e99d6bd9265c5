// Package testutil provides testing utilities for the transcript dispatcher.
package testutil

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"
)

// MockResponse defines the behavior for a mock upstream response.
type MockResponse struct {
	StatusCode int
	Body       string
	Delay      time.Duration
}

// MockUpstream is a configurable mock timedtext server for testing. Requests
// are routed by the "v" query parameter; listings (type=list) and track
// fetches can be configured independently per video.
type MockUpstream struct {
	server *httptest.Server
	mu     sync.RWMutex

	trackHandlers map[string]http.HandlerFunc
	listHandlers  map[string]http.HandlerFunc

	// Tracking
	RequestCount int
	TrackCount   map[string]int
}

// NewMockUpstream creates a new mock timedtext server.
func NewMockUpstream() *MockUpstream {
	mock := &MockUpstream{
		trackHandlers: make(map[string]http.HandlerFunc),
		listHandlers:  make(map[string]http.HandlerFunc),
		TrackCount:    make(map[string]int),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		videoID := query.Get("v")
		isListing := query.Get("type") == "list"

		mock.mu.Lock()
		mock.RequestCount++
		if !isListing {
			mock.TrackCount[videoID]++
		}
		var handler http.HandlerFunc
		var exists bool
		if isListing {
			handler, exists = mock.listHandlers[videoID]
		} else {
			handler, exists = mock.trackHandlers[videoID]
		}
		mock.mu.Unlock()

		if exists {
			handler(w, r)
			return
		}

		mock.defaultHandler(w, r)
	}))

	return mock
}

// URL returns the mock server URL.
func (m *MockUpstream) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockUpstream) Close() {
	m.server.Close()
}

// Reset clears all tracking counters.
func (m *MockUpstream) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RequestCount = 0
	m.TrackCount = make(map[string]int)
}

// GetRequestCount returns the total number of requests received.
func (m *MockUpstream) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RequestCount
}

// GetTrackCount returns the number of track fetches for one video.
func (m *MockUpstream) GetTrackCount(videoID string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.TrackCount[videoID]
}

// SetTrackHandler sets a custom handler for track fetches of a video.
func (m *MockUpstream) SetTrackHandler(videoID string, handler http.HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trackHandlers[videoID] = handler
}

// SetListHandler sets a custom handler for track listings of a video.
func (m *MockUpstream) SetListHandler(videoID string, handler http.HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listHandlers[videoID] = handler
}

// SetTrackResponse configures a fixed response for track fetches of a video.
func (m *MockUpstream) SetTrackResponse(videoID string, resp MockResponse) {
	m.SetTrackHandler(videoID, responseHandler(resp))
}

// SetListResponse configures a fixed response for track listings of a video.
func (m *MockUpstream) SetListResponse(videoID string, resp MockResponse) {
	m.SetListHandler(videoID, responseHandler(resp))
}

// SetFlaky configures a video whose track fetches fail with the given
// response for the first n requests, then serve body.
func (m *MockUpstream) SetFlaky(videoID string, n int, failWith MockResponse, body string) {
	var mu sync.Mutex
	served := 0
	m.SetTrackHandler(videoID, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		served++
		failing := served <= n
		mu.Unlock()

		if failing {
			responseHandler(failWith)(w, r)
			return
		}
		responseHandler(MockResponse{StatusCode: http.StatusOK, Body: body})(w, r)
	})
}

func responseHandler(resp MockResponse) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if resp.Delay > 0 {
			time.Sleep(resp.Delay)
		}
		w.Header().Set("Content-Type", "text/xml; charset=utf-8")
		w.WriteHeader(resp.StatusCode)
		if resp.Body != "" {
			w.Write([]byte(resp.Body))
		}
	}
}

// defaultHandler serves a minimal valid transcript for any video.
func (m *MockUpstream) defaultHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/xml; charset=utf-8")

	if r.URL.Query().Get("type") == "list" {
		fmt.Fprint(w, TrackListBody(Track{LangCode: "en", LangOriginal: "English"}))
		return
	}

	fmt.Fprint(w, TimedTextBody(
		Line{Start: 0, Dur: 1.5, Text: "hello"},
		Line{Start: 1.5, Dur: 2.0, Text: "world"},
	))
}

// Line is one caption line for TimedTextBody.
type Line struct {
	Start float64
	Dur   float64
	Text  string
}

// TimedTextBody builds a timedtext transcript XML document.
func TimedTextBody(lines ...Line) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="utf-8"?><transcript>`)
	for _, line := range lines {
		fmt.Fprintf(&b, `<text start="%g" dur="%g">%s</text>`, line.Start, line.Dur, line.Text)
	}
	b.WriteString(`</transcript>`)
	return b.String()
}

// Track is one track entry for TrackListBody.
type Track struct {
	LangCode     string
	LangOriginal string
	Name         string
	Kind         string
}

// TrackListBody builds a timedtext track listing XML document with no
// translation targets.
func TrackListBody(tracks ...Track) string {
	return TrackListBodyWithTargets(tracks, nil)
}

// TrackListBodyWithTargets builds a track listing with translation targets.
func TrackListBodyWithTargets(tracks []Track, targetLangs []string) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="utf-8"?><transcript_list>`)
	for _, track := range tracks {
		fmt.Fprintf(&b, `<track lang_code="%s" lang_original="%s" name="%s" kind="%s"/>`,
			track.LangCode, track.LangOriginal, track.Name, track.Kind)
	}
	for _, lang := range targetLangs {
		fmt.Fprintf(&b, `<target lang_code="%s"/>`, lang)
	}
	b.WriteString(`</transcript_list>`)
	return b.String()
}
