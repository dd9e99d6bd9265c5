package transcript

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// DefaultBaseURL is the upstream timedtext endpoint host.
const DefaultBaseURL = "https://video.google.com"

// YouTubeConfig holds the configuration for the YouTube timedtext provider.
type YouTubeConfig struct {
	// BaseURL is the upstream host. Override for testing.
	BaseURL string

	// UserAgent is sent with every upstream request.
	UserAgent string

	// Timeout is the per-request HTTP timeout. Individual fetch attempts are
	// additionally bounded by the caller's context.
	Timeout time.Duration
}

// DefaultYouTubeConfig returns a safe default configuration.
func DefaultYouTubeConfig() YouTubeConfig {
	return YouTubeConfig{
		BaseURL:   DefaultBaseURL,
		UserAgent: "transcript-dispatcher/0.1.0",
		Timeout:   15 * time.Second,
	}
}

// YouTubeProvider fetches transcripts from the YouTube timedtext API.
//
// The fetch ladder mirrors what callers actually want: try the requested
// language directly, then consult the track listing, then translate a
// translatable track, then fall back to whatever track exists. Translation
// failures degrade to the original-language track instead of erroring.
type YouTubeProvider struct {
	httpClient *http.Client
	config     YouTubeConfig
	logger     zerolog.Logger
}

// NewYouTubeProvider creates a provider for the YouTube timedtext API.
func NewYouTubeProvider(cfg YouTubeConfig) *YouTubeProvider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}

	return &YouTubeProvider{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		config: cfg,
		logger: log.With().Str("component", "youtube-provider").Logger(),
	}
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (p *YouTubeProvider) SetHTTPClient(client *http.Client) {
	p.httpClient = client
}

// trackList is the XML shape of the timedtext track listing.
type trackList struct {
	XMLName xml.Name    `xml:"transcript_list"`
	Tracks  []trackInfo `xml:"track"`
	Targets []struct {
		LangCode string `xml:"lang_code,attr"`
	} `xml:"target"`
}

type trackInfo struct {
	LangCode     string `xml:"lang_code,attr"`
	LangOriginal string `xml:"lang_original,attr"`
	Name         string `xml:"name,attr"`
	Kind         string `xml:"kind,attr"`
}

// timedText is the XML shape of a single transcript track.
type timedText struct {
	XMLName xml.Name `xml:"transcript"`
	Lines   []struct {
		Start float64 `xml:"start,attr"`
		Dur   float64 `xml:"dur,attr"`
		Body  string  `xml:",chardata"`
	} `xml:"text"`
}

// Fetch implements Provider.
func (p *YouTubeProvider) Fetch(ctx context.Context, videoID, language string) (*Transcript, error) {
	// Step 1: Direct fetch in the target language. Fast path when the track
	// exists, and the common case for English content.
	tr, err := p.fetchTrack(ctx, videoID, language, "", "")
	if err == nil {
		tr.Language = language
		tr.LanguageCode = language
		return tr, nil
	}
	if !isTrackAbsent(err) {
		return nil, err
	}

	// Step 2: Consult the track listing.
	list, err := p.listTracks(ctx, videoID)
	if err != nil {
		return nil, err
	}
	if len(list.Tracks) == 0 {
		return nil, fmt.Errorf("video %s: %w", videoID, ErrNoTranscript)
	}

	translatable := len(list.Targets) > 0

	// Step 3: Exact language match in the listing.
	for _, track := range list.Tracks {
		if track.LangCode != language {
			continue
		}
		tr, err := p.fetchTrack(ctx, videoID, track.LangCode, track.Name, "")
		if err != nil {
			return nil, err
		}
		applyTrackInfo(tr, track, translatable)
		return tr, nil
	}

	// Step 4: Translate the first translatable track, falling back to its
	// original language when translation fails.
	if translatable {
		track := list.Tracks[0]
		tr, err := p.fetchTrack(ctx, videoID, track.LangCode, track.Name, language)
		if err == nil {
			applyTrackInfo(tr, track, translatable)
			tr.Language = fmt.Sprintf("%s (translated)", language)
			tr.LanguageCode = language
			tr.Translated = true
			return tr, nil
		}

		p.logger.Warn().
			Err(err).
			Str("video_id", videoID).
			Str("source_lang", track.LangCode).
			Str("target_lang", language).
			Msg("Translation failed, falling back to original language")

		tr, origErr := p.fetchTrack(ctx, videoID, track.LangCode, track.Name, "")
		if origErr != nil {
			return nil, fmt.Errorf("%w: %v", ErrTranslationUnavailable, origErr)
		}
		applyTrackInfo(tr, track, translatable)
		return tr, nil
	}

	// Step 5: First available track.
	track := list.Tracks[0]
	tr, err = p.fetchTrack(ctx, videoID, track.LangCode, track.Name, "")
	if err != nil {
		return nil, err
	}
	applyTrackInfo(tr, track, translatable)
	return tr, nil
}

// applyTrackInfo copies listing metadata onto a fetched transcript.
func applyTrackInfo(tr *Transcript, track trackInfo, translatable bool) {
	tr.Language = track.LangOriginal
	tr.LanguageCode = track.LangCode
	tr.IsGenerated = track.Kind == "asr"
	tr.IsTranslatable = translatable
}

// listTracks fetches the track listing for a video.
func (p *YouTubeProvider) listTracks(ctx context.Context, videoID string) (*trackList, error) {
	params := url.Values{}
	params.Set("type", "list")
	params.Set("v", videoID)

	body, err := p.get(ctx, videoID, params)
	if err != nil {
		return nil, err
	}

	var list trackList
	if err := xml.Unmarshal(body, &list); err != nil {
		// Empty or truncated listing body. Upstream serves these
		// intermittently; the retry layer handles them.
		return nil, fmt.Errorf("video %s: %w: %v", videoID, ErrProviderNotReady, err)
	}

	return &list, nil
}

// fetchTrack fetches a single transcript track. tlang requests a machine
// translation into the given language; empty means no translation.
func (p *YouTubeProvider) fetchTrack(ctx context.Context, videoID, langCode, name, tlang string) (*Transcript, error) {
	params := url.Values{}
	params.Set("v", videoID)
	params.Set("lang", langCode)
	params.Set("fmt", "srv1")
	if name != "" {
		params.Set("name", name)
	}
	if tlang != "" {
		params.Set("tlang", tlang)
	}

	body, err := p.get(ctx, videoID, params)
	if err != nil {
		return nil, err
	}

	var doc timedText
	if err := xml.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("video %s: %w: %v", videoID, ErrProviderNotReady, err)
	}
	if len(doc.Lines) == 0 {
		return nil, fmt.Errorf("video %s: %w: empty transcript document", videoID, ErrProviderNotReady)
	}

	segments := make([]Segment, 0, len(doc.Lines))
	for _, line := range doc.Lines {
		segments = append(segments, Segment{
			Text:     html.UnescapeString(line.Body),
			Start:    line.Start,
			Duration: line.Dur,
		})
	}

	return &Transcript{
		VideoID:      videoID,
		LanguageCode: langCode,
		FetchedAt:    time.Now(),
		Segments:     segments,
	}, nil
}

// get performs one upstream GET and maps HTTP status codes onto the provider
// error taxonomy.
func (p *YouTubeProvider) get(ctx context.Context, videoID string, params url.Values) ([]byte, error) {
	endpoint := p.config.BaseURL + "/api/timedtext?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", p.config.UserAgent)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("video %s: %w: %v", videoID, ErrProviderNotReady, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("video %s: %w", videoID, ErrNoTranscript)
	case resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("video %s: %w", videoID, ErrTranscriptsDisabled)
	case resp.StatusCode >= 500:
		return nil, &UpstreamError{
			VideoID:    videoID,
			StatusCode: resp.StatusCode,
			Err:        ErrProviderNotReady,
		}
	case resp.StatusCode != http.StatusOK:
		return nil, &UpstreamError{
			VideoID:    videoID,
			StatusCode: resp.StatusCode,
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("video %s: %w: %v", videoID, ErrProviderNotReady, err)
	}

	return body, nil
}

// isTrackAbsent reports whether a direct-fetch error means the track simply
// does not exist in that language, which sends us to the track listing
// instead of failing outright. Transient errors propagate so the retry layer
// sees them.
func isTrackAbsent(err error) bool {
	return errors.Is(err, ErrNoTranscript)
}
