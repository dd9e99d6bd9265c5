package main

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/vidscribe/transcript-dispatcher/pkg/dispatcher"
	"github.com/vidscribe/transcript-dispatcher/pkg/transcript"
)

// server maps dispatcher outcomes onto the HTTP wire format.
type server struct {
	dispatcher *dispatcher.Dispatcher
	logger     zerolog.Logger
}

func newServer(d *dispatcher.Dispatcher) *server {
	return &server{
		dispatcher: d,
		logger:     log.With().Str("component", "http").Logger(),
	}
}

// singleRequest is the POST /transcript request body.
type singleRequest struct {
	VideoID  string `json:"video_id"`
	Language string `json:"language"`
}

// batchRequest is the POST /transcripts/batch request body.
type batchRequest struct {
	VideoIDs []string `json:"video_ids"`
	Language string   `json:"language"`
}

// transcriptResponse is the per-video wire format.
type transcriptResponse struct {
	VideoID        string               `json:"video_id"`
	Status         string               `json:"status"`
	Language       string               `json:"language,omitempty"`
	LanguageCode   string               `json:"language_code,omitempty"`
	IsGenerated    bool                 `json:"is_generated"`
	IsTranslatable bool                 `json:"is_translatable"`
	Translated     bool                 `json:"translated"`
	Transcript     []transcript.Segment `json:"transcript,omitempty"`
	Error          string               `json:"error,omitempty"`
	Kind           string               `json:"kind,omitempty"`
	Attempts       int                  `json:"attempts"`
	ProcessingTime float64              `json:"processing_time"`
}

// batchResponse is the batch wire format.
type batchResponse struct {
	TotalProcessed      int                  `json:"total_processed"`
	Successful          int                  `json:"successful"`
	Failed              int                  `json:"failed"`
	Results             []transcriptResponse `json:"results"`
	TotalProcessingTime float64              `json:"total_processing_time"`
}

func outcomeToResponse(o dispatcher.Outcome) transcriptResponse {
	resp := transcriptResponse{
		VideoID:        o.VideoID,
		Attempts:       o.Attempts,
		ProcessingTime: o.Duration.Seconds(),
	}

	if o.Succeeded() {
		resp.Status = "success"
		resp.Language = o.Transcript.Language
		resp.LanguageCode = o.Transcript.LanguageCode
		resp.IsGenerated = o.Transcript.IsGenerated
		resp.IsTranslatable = o.Transcript.IsTranslatable
		resp.Translated = o.Transcript.Translated
		resp.Transcript = o.Transcript.Segments
		return resp
	}

	resp.Status = "error"
	resp.Error = o.Message
	resp.Kind = string(o.Kind)
	return resp
}

func (s *server) handleSingle(w http.ResponseWriter, r *http.Request) {
	var req singleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.VideoID == "" {
		writeError(w, http.StatusBadRequest, "video_id is required")
		return
	}
	if req.Language == "" {
		req.Language = "en"
	}

	outcome := s.dispatcher.FetchOne(r.Context(), dispatcher.Request{
		VideoID:  req.VideoID,
		Language: req.Language,
	})

	writeJSON(w, http.StatusOK, outcomeToResponse(outcome))
}

func (s *server) handleBatch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.VideoIDs) == 0 {
		writeError(w, http.StatusBadRequest, "video_ids is required")
		return
	}
	if req.Language == "" {
		req.Language = "en"
	}

	requests := make([]dispatcher.Request, len(req.VideoIDs))
	for i, videoID := range req.VideoIDs {
		requests[i] = dispatcher.Request{VideoID: videoID, Language: req.Language}
	}

	result, err := s.dispatcher.FetchBatch(r.Context(), requests)
	if err != nil {
		if errors.Is(err, dispatcher.ErrBatchTooLarge) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.logger.Error().Err(err).Msg("Batch dispatch failed")
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	results := make([]transcriptResponse, len(result))
	var totalTime float64
	for i, outcome := range result {
		results[i] = outcomeToResponse(outcome)
		totalTime += outcome.Duration.Seconds()
	}

	writeJSON(w, http.StatusOK, batchResponse{
		TotalProcessed:      len(result),
		Successful:          result.Successes(),
		Failed:              result.Failures(),
		Results:             results,
		TotalProcessingTime: totalTime,
	})
}

func (s *server) handleSingleQuery(w http.ResponseWriter, r *http.Request) {
	videoID := r.URL.Query().Get("video_id")
	if videoID == "" {
		writeError(w, http.StatusBadRequest, "video_id is required")
		return
	}
	language := r.URL.Query().Get("language")
	if language == "" {
		language = "en"
	}

	outcome := s.dispatcher.FetchOne(r.Context(), dispatcher.Request{
		VideoID:  videoID,
		Language: language,
	})

	if r.URL.Query().Get("format") == "text" {
		writeJSON(w, http.StatusOK, textResponse(outcome))
		return
	}

	writeJSON(w, http.StatusOK, outcomeToResponse(outcome))
}

func (s *server) handleTextOnly(w http.ResponseWriter, r *http.Request) {
	videoID := r.URL.Query().Get("video_id")
	if videoID == "" {
		writeError(w, http.StatusBadRequest, "video_id is required")
		return
	}
	language := r.URL.Query().Get("language")
	if language == "" {
		language = "en"
	}

	outcome := s.dispatcher.FetchOne(r.Context(), dispatcher.Request{
		VideoID:  videoID,
		Language: language,
	})

	writeJSON(w, http.StatusOK, textResponse(outcome))
}

// textResponse flattens an outcome to plain transcript text.
func textResponse(o dispatcher.Outcome) map[string]string {
	if !o.Succeeded() {
		return map[string]string{
			"video_id": o.VideoID,
			"text":     "",
			"error":    o.Message,
		}
	}
	return map[string]string{
		"video_id": o.VideoID,
		"language": o.Transcript.Language,
		"text":     o.Transcript.PlainText(),
	}
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "transcript-dispatcher",
	})
}

func (s *server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.dispatcher.Snapshot())
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Warn().Err(err).Msg("Failed to write response")
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
