package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/nao1215/opendir/internal/config"
	"github.com/nao1215/opendir/internal/database"
	"github.com/nao1215/opendir/internal/model"
)

type urlRequest struct {
	URL string `json:"url"`
}

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

type crawlResponse struct {
	Success        bool   `json:"success"`
	ID             string `json:"id"`
	LinksFound     int    `json:"linksFound"`
	SubdirsCrawled int    `json:"subdirsCrawled"`
	TotalLinks     int    `json:"totalLinks"`
	StoredLinks    int    `json:"storedLinks"`
	ErrorCount     int    `json:"errorCount"`
	LimitReached   bool   `json:"limitReached,omitempty"`
	TimedOut       bool   `json:"timedOut,omitempty"`
	Message        string `json:"message"`
}

type searchResponse struct {
	Success bool                 `json:"success"`
	Error   string               `json:"error,omitempty"`
	Results []model.SearchResult `json:"results"`
	Count   int                  `json:"count"`
}

type statsResponse struct {
	Success bool         `json:"success"`
	Stats   *model.Stats `json:"stats"`
}

type urlsResponse struct {
	Success bool                `json:"success"`
	URLs    []model.CrawlTarget `json:"urls"`
	Count   int                 `json:"count"`
}

type messageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type healthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Database  string `json:"database"`
	Error     string `json:"error,omitempty"`
}

func (s *Server) handleCrawl(w http.ResponseWriter, r *http.Request) {
	req, err := decodeURLRequest(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	res, err := s.crawler.Crawl(r.Context(), req.URL)
	if err != nil && res == nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	if err != nil {
		s.writeError(w, http.StatusServiceUnavailable, fmt.Errorf("crawl interrupted: %w", err))
		return
	}
	if rootErr := rootFailure(res); rootErr != nil {
		s.writeError(w, http.StatusBadGateway, rootErr)
		return
	}

	s.writeJSON(w, http.StatusOK, crawlResponse{
		Success:        true,
		ID:             res.ID,
		LinksFound:     res.RootFiles,
		SubdirsCrawled: res.SubdirsVisited,
		TotalLinks:     res.TotalLinks(),
		StoredLinks:    res.StoredLinks,
		ErrorCount:     len(res.Errors),
		LimitReached:   res.LimitReached,
		TimedOut:       res.TimedOut,
		Message: fmt.Sprintf("Crawled %s: %d files in %d subdirectories",
			res.RootURL, res.TotalLinks(), res.SubdirsVisited),
	})
}

// rootFailure returns the error of the root listing when it could not be
// fetched or parsed.
func rootFailure(res *model.CrawlResult) error {
	for _, e := range res.Errors {
		if e.Depth == 0 && e.Kind != model.ErrorKindStore {
			return e
		}
	}
	return nil
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := model.SearchQuery{
		Query:    q.Get("q"),
		Category: q.Get("type"),
		Limit:    s.searchLimit,
	}
	if query.Category == "" {
		query.Category = model.CategoryAll
	}
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			s.writeJSON(w, http.StatusBadRequest, searchResponse{
				Error:   fmt.Sprintf("invalid limit %q", raw),
				Results: []model.SearchResult{},
			})
			return
		}
		query.Limit = n
	}

	results, err := s.store.Search(r.Context(), query)
	switch {
	case errors.Is(err, database.ErrEmptyQuery), errors.Is(err, database.ErrUnknownCategory):
		s.writeJSON(w, http.StatusBadRequest, searchResponse{
			Error:   err.Error(),
			Results: []model.SearchResult{},
		})
		return
	case err != nil:
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.metrics.ObserveSearch(strings.ToLower(query.Category))

	s.writeJSON(w, http.StatusOK, searchResponse{
		Success: true,
		Results: results,
		Count:   len(results),
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.Stats(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusOK, statsResponse{Success: true, Stats: stats})
}

func (s *Server) handleListURLs(w http.ResponseWriter, r *http.Request) {
	status := model.CrawlStatus(r.URL.Query().Get("status"))
	if status != "" && !status.Valid() {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("%w: %q", database.ErrInvalidStatus, status))
		return
	}

	targets, err := s.store.CrawledURLs(r.Context(), status)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusOK, urlsResponse{Success: true, URLs: targets, Count: len(targets)})
}

func (s *Server) handleAddURL(w http.ResponseWriter, r *http.Request) {
	req, err := decodeURLRequest(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	added, err := s.store.AddURL(r.Context(), req.URL)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	if !added {
		s.writeJSON(w, http.StatusOK, messageResponse{Success: true, Message: "URL already known"})
		return
	}
	s.writeJSON(w, http.StatusCreated, messageResponse{Success: true, Message: "URL added to queue"})
}

func (s *Server) handleDeleteURL(w http.ResponseWriter, r *http.Request) {
	target := r.URL.Query().Get("url")
	if target == "" {
		s.writeError(w, http.StatusBadRequest, errors.New("url parameter is required"))
		return
	}

	err := s.store.DeleteURL(r.Context(), target)
	switch {
	case errors.Is(err, database.ErrNotFound):
		s.writeError(w, http.StatusNotFound, fmt.Errorf("%s: %w", target, err))
		return
	case err != nil:
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusOK, messageResponse{Success: true, Message: "URL deleted"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:    "ok",
		Timestamp: s.now().UTC().Format(time.RFC3339),
		Database:  "connected",
	}
	code := http.StatusOK
	if err := s.store.Ping(r.Context()); err != nil {
		resp.Status = "error"
		resp.Database = "failed"
		resp.Error = err.Error()
		code = http.StatusServiceUnavailable
	}
	s.writeJSON(w, code, resp)
}

// decodeURLRequest reads {"url": ...} and validates it as a crawl root.
func decodeURLRequest(r *http.Request) (urlRequest, error) {
	var req urlRequest
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		return req, fmt.Errorf("invalid request body: %w", err)
	}
	req.URL = strings.TrimSpace(req.URL)
	if req.URL == "" {
		return req, errors.New("url is required")
	}
	if err := config.ValidateTargetURL(req.URL); err != nil {
		return req, err
	}
	return req, nil
}

func (s *Server) writeError(w http.ResponseWriter, code int, err error) {
	if code >= http.StatusInternalServerError {
		s.logger.Error("api request failed", "status", code, "error", err)
	}
	s.writeJSON(w, code, errorResponse{Success: false, Error: err.Error()})
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("failed to write response", "error", err)
	}
}
