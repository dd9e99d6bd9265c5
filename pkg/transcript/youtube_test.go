package transcript_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/vidscribe/transcript-dispatcher/internal/testutil"
	"github.com/vidscribe/transcript-dispatcher/pkg/transcript"
)

func newTestProvider(t *testing.T) (*transcript.YouTubeProvider, *testutil.MockUpstream) {
	t.Helper()

	mock := testutil.NewMockUpstream()
	t.Cleanup(mock.Close)

	provider := transcript.NewYouTubeProvider(transcript.YouTubeConfig{
		BaseURL:   mock.URL(),
		UserAgent: "transcript-dispatcher-test",
	})
	return provider, mock
}

func TestYouTubeProvider_DirectFetch(t *testing.T) {
	provider, mock := newTestProvider(t)

	tr, err := provider.Fetch(context.Background(), "dQw4w9WgXcQ", "en")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}

	if tr.VideoID != "dQw4w9WgXcQ" {
		t.Errorf("VideoID = %q, want %q", tr.VideoID, "dQw4w9WgXcQ")
	}
	if tr.LanguageCode != "en" {
		t.Errorf("LanguageCode = %q, want %q", tr.LanguageCode, "en")
	}
	if got := tr.PlainText(); got != "hello world" {
		t.Errorf("PlainText() = %q, want %q", got, "hello world")
	}
	if tr.Translated {
		t.Error("direct fetch must not be marked translated")
	}

	// Direct hit: no listing request needed.
	if got := mock.GetRequestCount(); got != 1 {
		t.Errorf("upstream requests = %d, want 1", got)
	}
}

func TestYouTubeProvider_UnescapesEntities(t *testing.T) {
	provider, mock := newTestProvider(t)

	mock.SetTrackResponse("vid1", testutil.MockResponse{
		StatusCode: http.StatusOK,
		Body:       testutil.TimedTextBody(testutil.Line{Start: 0, Dur: 1, Text: "Tom &amp;amp; Jerry"}),
	})

	tr, err := provider.Fetch(context.Background(), "vid1", "en")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}

	// XML decoding resolves one level of escaping, html unescaping the second.
	if got := tr.Segments[0].Text; got != "Tom & Jerry" {
		t.Errorf("segment text = %q, want %q", got, "Tom & Jerry")
	}
}

func TestYouTubeProvider_TranscriptsDisabled(t *testing.T) {
	provider, mock := newTestProvider(t)

	mock.SetTrackResponse("vid1", testutil.MockResponse{StatusCode: http.StatusForbidden})

	_, err := provider.Fetch(context.Background(), "vid1", "en")
	if !errors.Is(err, transcript.ErrTranscriptsDisabled) {
		t.Errorf("Fetch() error = %v, want ErrTranscriptsDisabled", err)
	}
}

func TestYouTubeProvider_NoTranscriptAnywhere(t *testing.T) {
	provider, mock := newTestProvider(t)

	mock.SetTrackResponse("vid1", testutil.MockResponse{StatusCode: http.StatusNotFound})
	mock.SetListResponse("vid1", testutil.MockResponse{
		StatusCode: http.StatusOK,
		Body:       testutil.TrackListBody(),
	})

	_, err := provider.Fetch(context.Background(), "vid1", "en")
	if !errors.Is(err, transcript.ErrNoTranscript) {
		t.Errorf("Fetch() error = %v, want ErrNoTranscript", err)
	}
}

func TestYouTubeProvider_ServerErrorIsTransient(t *testing.T) {
	provider, mock := newTestProvider(t)

	mock.SetTrackResponse("vid1", testutil.MockResponse{StatusCode: http.StatusBadGateway})

	_, err := provider.Fetch(context.Background(), "vid1", "en")
	if !errors.Is(err, transcript.ErrProviderNotReady) {
		t.Errorf("Fetch() error = %v, want ErrProviderNotReady", err)
	}

	var upstreamErr *transcript.UpstreamError
	if !errors.As(err, &upstreamErr) {
		t.Fatalf("Fetch() error = %v, want *UpstreamError", err)
	}
	if upstreamErr.StatusCode != http.StatusBadGateway {
		t.Errorf("StatusCode = %d, want %d", upstreamErr.StatusCode, http.StatusBadGateway)
	}
}

func TestYouTubeProvider_MalformedBodyIsTransient(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "empty body", body: ""},
		{name: "truncated xml", body: `<?xml version="1.0"?><transcript><text start="0"`},
		{name: "no caption lines", body: `<?xml version="1.0"?><transcript></transcript>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider, mock := newTestProvider(t)
			mock.SetTrackResponse("vid1", testutil.MockResponse{
				StatusCode: http.StatusOK,
				Body:       tt.body,
			})

			_, err := provider.Fetch(context.Background(), "vid1", "en")
			if !errors.Is(err, transcript.ErrProviderNotReady) {
				t.Errorf("Fetch() error = %v, want ErrProviderNotReady", err)
			}
		})
	}
}

func TestYouTubeProvider_ListingExactMatch(t *testing.T) {
	provider, mock := newTestProvider(t)

	// The German track only resolves through the listing: the direct fetch
	// misses because the track carries a name attribute.
	mock.SetTrackHandler("vid1", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("lang") == "de" && q.Get("name") == "Deutsch CC" {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(testutil.TimedTextBody(testutil.Line{Start: 0, Dur: 1, Text: "hallo"})))
			return
		}
		w.WriteHeader(http.StatusNotFound)
	})
	mock.SetListResponse("vid1", testutil.MockResponse{
		StatusCode: http.StatusOK,
		Body: testutil.TrackListBody(
			track("fr", "Français", "", ""),
			track("de", "Deutsch", "Deutsch CC", ""),
		),
	})

	tr, err := provider.Fetch(context.Background(), "vid1", "de")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}

	if tr.LanguageCode != "de" {
		t.Errorf("LanguageCode = %q, want %q", tr.LanguageCode, "de")
	}
	if tr.Language != "Deutsch" {
		t.Errorf("Language = %q, want %q", tr.Language, "Deutsch")
	}
	if got := tr.PlainText(); got != "hallo" {
		t.Errorf("PlainText() = %q, want %q", got, "hallo")
	}
}

func TestYouTubeProvider_GeneratedTrackFlagged(t *testing.T) {
	provider, mock := newTestProvider(t)

	mock.SetTrackHandler("vid1", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("lang") != "ko" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(testutil.TimedTextBody(testutil.Line{Start: 0, Dur: 1, Text: "text"})))
	})
	mock.SetListResponse("vid1", testutil.MockResponse{
		StatusCode: http.StatusOK,
		Body:       testutil.TrackListBody(track("ko", "Korean", "", "asr")),
	})

	tr, err := provider.Fetch(context.Background(), "vid1", "en")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if !tr.IsGenerated {
		t.Error("IsGenerated = false, want true for asr tracks")
	}
}

func TestYouTubeProvider_Translation(t *testing.T) {
	provider, mock := newTestProvider(t)

	mock.SetTrackHandler("vid1", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		switch {
		case q.Get("tlang") == "en":
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(testutil.TimedTextBody(testutil.Line{Start: 0, Dur: 1, Text: "hello translated"})))
		case q.Get("lang") == "ja" && q.Get("tlang") == "":
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(testutil.TimedTextBody(testutil.Line{Start: 0, Dur: 1, Text: "konnichiwa"})))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
	mock.SetListResponse("vid1", testutil.MockResponse{
		StatusCode: http.StatusOK,
		Body: testutil.TrackListBodyWithTargets(
			[]testutil.Track{track("ja", "Japanese", "", "")},
			[]string{"en", "de"},
		),
	})

	tr, err := provider.Fetch(context.Background(), "vid1", "en")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}

	if !tr.Translated {
		t.Error("Translated = false, want true")
	}
	if tr.LanguageCode != "en" {
		t.Errorf("LanguageCode = %q, want %q", tr.LanguageCode, "en")
	}
	if !tr.IsTranslatable {
		t.Error("IsTranslatable = false, want true")
	}
	if got := tr.PlainText(); got != "hello translated" {
		t.Errorf("PlainText() = %q, want %q", got, "hello translated")
	}
}

func TestYouTubeProvider_TranslationFailureFallsBackToOriginal(t *testing.T) {
	provider, mock := newTestProvider(t)

	mock.SetTrackHandler("vid1", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		switch {
		case q.Get("tlang") != "":
			w.WriteHeader(http.StatusInternalServerError)
		case q.Get("lang") == "ja":
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(testutil.TimedTextBody(testutil.Line{Start: 0, Dur: 1, Text: "konnichiwa"})))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
	mock.SetListResponse("vid1", testutil.MockResponse{
		StatusCode: http.StatusOK,
		Body: testutil.TrackListBodyWithTargets(
			[]testutil.Track{track("ja", "Japanese", "", "")},
			[]string{"en"},
		),
	})

	tr, err := provider.Fetch(context.Background(), "vid1", "en")
	if err != nil {
		t.Fatalf("Fetch() error = %v (translation failure should degrade, not fail)", err)
	}

	if tr.Translated {
		t.Error("Translated = true, want false after fallback")
	}
	if tr.LanguageCode != "ja" {
		t.Errorf("LanguageCode = %q, want original %q", tr.LanguageCode, "ja")
	}
	if got := tr.PlainText(); got != "konnichiwa" {
		t.Errorf("PlainText() = %q, want %q", got, "konnichiwa")
	}
}

func TestYouTubeProvider_TranslationAndFallbackBothFail(t *testing.T) {
	provider, mock := newTestProvider(t)

	mock.SetTrackHandler("vid1", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		switch {
		case q.Get("tlang") != "":
			w.WriteHeader(http.StatusInternalServerError)
		case q.Get("lang") == "ja":
			// The fallback refetch fails too.
			w.WriteHeader(http.StatusInternalServerError)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
	mock.SetListResponse("vid1", testutil.MockResponse{
		StatusCode: http.StatusOK,
		Body: testutil.TrackListBodyWithTargets(
			[]testutil.Track{track("ja", "Japanese", "", "")},
			[]string{"en"},
		),
	})

	_, err := provider.Fetch(context.Background(), "vid1", "en")
	if !errors.Is(err, transcript.ErrTranslationUnavailable) {
		t.Errorf("Fetch() error = %v, want ErrTranslationUnavailable", err)
	}
}

// track builds a testutil.Track literal.
func track(langCode, langOriginal, name, kind string) testutil.Track {
	return testutil.Track{
		LangCode:     langCode,
		LangOriginal: langOriginal,
		Name:         name,
		Kind:         kind,
	}
}
