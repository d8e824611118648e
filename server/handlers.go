package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/poiesic/coursesearch/core"
	"github.com/poiesic/coursesearch/search"
	"github.com/poiesic/coursesearch/storage"
)

// maxBodyBytes bounds the size of a search request body.
const maxBodyBytes = 64 << 10

// SearchRequest is the body of POST /search.
type SearchRequest struct {
	Search string `json:"search"`
	// Limit defaults to search.MaxResults.
	Limit int `json:"limit,omitempty"`
}

type errorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	id := RequestID(r.Context())
	logger := s.logger.With("request_id", id)

	if s.limiter != nil && !s.limiter.Allow() {
		s.writeError(w, r, http.StatusTooManyRequests, "rate limit exceeded")
		return
	}

	var req SearchRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		s.writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()

	results, err := s.searcher.Search(ctx, req.Search, req.Limit)
	if err != nil {
		status := statusFor(err)
		if core.IsRequestScoped(err) {
			logger.Warn("search failed", "query", req.Search, "status", status, "err", err)
		} else {
			logger.Error("search failed", "query", req.Search, "status", status, "err", err)
		}
		msg := err.Error()
		if status >= http.StatusInternalServerError && status != http.StatusBadGateway {
			msg = "search failed"
		}
		s.writeError(w, r, status, msg)
		return
	}

	out := make([]*core.Course, len(results))
	for i, course := range results {
		out[i] = course.WithoutEmbedding()
	}
	logger.Debug("search served", "query", req.Search, "results", len(out))
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.pinger.Ping(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// statusFor maps a search error to an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, search.ErrEmptyQuery),
		errors.Is(err, storage.ErrInvalidFilter),
		errors.Is(err, storage.ErrInvalidQuery):
		return http.StatusBadRequest
	case errors.Is(err, search.ErrEmbeddingFailed):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, storage.ErrStorageClosed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg, RequestID: RequestID(r.Context())})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
