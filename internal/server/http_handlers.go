package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/sanonone/wikihop/pkg/search"
	"github.com/sanonone/wikihop/pkg/table"
)

const (
	defaultTitlesLimit = 20
	maxTitlesLimit     = 1000
)

// registerHTTPHandlers sets up the API routes.
func (s *Server) registerHTTPHandlers(mux *http.ServeMux) {
	mux.HandleFunc("GET /v1/path", s.handleFindPath)
	mux.HandleFunc("POST /v1/searches", s.handleStartSearch)
	mux.HandleFunc("GET /v1/searches/{id}", s.handleGetSearch)
	mux.HandleFunc("GET /v1/titles", s.handleTitles)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	s.writeHTTPResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleFindPath runs a search inside the request. Closing the connection
// cancels it.
func (s *Server) handleFindPath(w http.ResponseWriter, r *http.Request) {
	from, to, err := s.canonicalPair(r.Context(), r.URL.Query().Get("from"), r.URL.Query().Get("to"))
	if err != nil {
		s.writeSearchError(w, err)
		return
	}

	res, err := s.Engine.Search(r.Context(), from, to)
	if err != nil {
		s.writeSearchError(w, err)
		return
	}
	s.writeHTTPResponse(w, http.StatusOK, s.pathResponse(res))
}

func (s *Server) handleStartSearch(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeHTTPError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	from, to, err := s.canonicalPair(r.Context(), req.From, req.To)
	if err != nil {
		s.writeSearchError(w, err)
		return
	}

	task := s.taskManager.NewTask(from, to)
	s.wg.Add(1)
	go s.runTask(task, from, to)

	s.writeHTTPResponse(w, http.StatusAccepted, task.View())
}

func (s *Server) runTask(task *Task, from, to string) {
	defer s.wg.Done()
	task.SetStatus(TaskStatusRunning)

	res, err := s.Engine.Search(s.ctx, from, to, search.WithOnProgress(func(st search.Stats) {
		task.SetProgress(s.renderer.Progress(st))
	}))
	if err != nil {
		slog.Warn("search task failed", "task_id", task.ID(), "from", from, "to", to, "error", err)
		task.SetError(err)
		return
	}
	task.SetProgress(s.renderer.Summary(res))
	task.Complete(res)
}

func (s *Server) handleGetSearch(w http.ResponseWriter, r *http.Request) {
	task, ok := s.taskManager.GetTask(r.PathValue("id"))
	if !ok {
		s.writeHTTPError(w, http.StatusNotFound, "task not found")
		return
	}
	s.writeHTTPResponse(w, http.StatusOK, task.View())
}

func (s *Server) handleTitles(w http.ResponseWriter, r *http.Request) {
	prefixer, ok := s.Engine.Store().(table.Prefixer)
	if !ok {
		s.writeHTTPError(w, http.StatusNotImplemented, "store cannot list titles")
		return
	}

	q := r.URL.Query()
	prefix := q.Get("prefix")
	limit := defaultTitlesLimit
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			s.writeHTTPError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxTitlesLimit)
	}

	titles, err := prefixer.TitlesWithPrefix(r.Context(), prefix, limit)
	if err != nil {
		slog.Error("title listing failed", "prefix", prefix, "error", err)
		s.writeHTTPError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if titles == nil {
		titles = []string{}
	}
	s.writeHTTPResponse(w, http.StatusOK, TitlesResponse{Prefix: prefix, Titles: titles})
}

// canonicalPair validates both titles against the store.
func (s *Server) canonicalPair(ctx context.Context, from, to string) (string, string, error) {
	normalize := s.Engine.Normalizer()
	from, err := search.Canonicalize(ctx, s.Engine.Store(), normalize, from)
	if err != nil {
		return "", "", err
	}
	to, err = search.Canonicalize(ctx, s.Engine.Store(), normalize, to)
	if err != nil {
		return "", "", err
	}
	return from, to, nil
}

func (s *Server) pathResponse(res *search.Result) PathResponse {
	resp := PathResponse{Result: res}
	for _, hop := range res.Path {
		resp.URLs = append(resp.URLs, s.renderer.URL(hop.Title))
	}
	return resp
}

// --- HTTP response helpers ---

func (s *Server) writeSearchError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, search.ErrEmptyTitle):
		s.writeHTTPError(w, http.StatusBadRequest, "both from and to are required")
	case errors.Is(err, search.ErrTitleNotFound):
		s.writeHTTPError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		s.writeHTTPError(w, http.StatusServiceUnavailable, err.Error())
	default:
		slog.Error("search failed", "error", err)
		s.writeHTTPError(w, http.StatusInternalServerError, err.Error())
	}
}

func (s *Server) writeHTTPResponse(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(payload)
}

func (s *Server) writeHTTPError(w http.ResponseWriter, statusCode int, message string) {
	s.writeHTTPResponse(w, statusCode, map[string]string{"error": message})
}
