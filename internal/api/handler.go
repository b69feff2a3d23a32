// Package api exposes activities over HTTP.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/Ethan041028/audacieuses-content/internal/activity"
	"github.com/Ethan041028/audacieuses-content/internal/importer"
)

const (
	maxBodyBytes   = 1 << 20
	maxUploadBytes = 10 << 20
	readyTimeout   = 2 * time.Second
)

// Service is the activity service as used by the handlers.
type Service interface {
	Create(ctx context.Context, in activity.CreateInput) (activity.Activity, error)
	Update(ctx context.Context, in activity.UpdateInput) (activity.Activity, error)
	View(ctx context.Context, id string) (activity.ActivityView, error)
	ListByModule(ctx context.Context, moduleID string) ([]activity.Activity, error)
	Normalize(raw any) (activity.NormalizeResult, error)
}

// HealthChecker is a dependency probed by /readyz.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Handler serves the HTTP API.
type Handler struct {
	svc    Service
	checks map[string]HealthChecker
}

// NewHandler creates the API handler. checks are probed by /readyz, keyed
// by the name reported on failure.
func NewHandler(svc Service, checks map[string]HealthChecker) *Handler {
	if checks == nil {
		checks = map[string]HealthChecker{}
	}
	return &Handler{svc: svc, checks: checks}
}

// Routes returns the router wrapped in the middleware chain.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", h.handleHealthz)
	mux.HandleFunc("GET /readyz", h.handleReadyz)

	mux.HandleFunc("POST /api/v1/activities", h.handleCreate)
	mux.HandleFunc("GET /api/v1/activities/{id}", h.handleGet)
	mux.HandleFunc("PUT /api/v1/activities/{id}", h.handleUpdate)
	mux.HandleFunc("GET /api/v1/modules/{moduleID}/activities", h.handleList)
	mux.HandleFunc("POST /api/v1/modules/{moduleID}/activities/import", h.handleImport)
	mux.HandleFunc("POST /api/v1/content/normalize", h.handleNormalize)

	return middleware.RequestID(middleware.Recoverer(logRequests(mux)))
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		slog.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

func (h *Handler) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeOK(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) handleReadyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	for name, check := range h.checks {
		if err := check.HealthCheck(ctx); err != nil {
			slog.Warn("readiness check failed", "dependency", name, "error", err)
			writeError(w, r, http.StatusServiceUnavailable, name+" unavailable")
			return
		}
	}
	writeOK(w, r, http.StatusOK, map[string]string{"status": "ready"})
}

type createRequest struct {
	ID       string          `json:"id"`
	ModuleID string          `json:"module_id"`
	Title    string          `json:"title"`
	Content  json.RawMessage `json:"content"`
}

type updateRequest struct {
	Title   *string         `json:"title"`
	Content json.RawMessage `json:"content"`
}

type normalizeRequest struct {
	Content json.RawMessage `json:"content"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if !decodeBody(w, r, &req) {
		return
	}
	raw, err := rawContent(req.Content)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	a, err := h.svc.Create(r.Context(), activity.CreateInput{
		ID:       req.ID,
		ModuleID: req.ModuleID,
		Title:    req.Title,
		Content:  raw,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.Header().Set("Location", "/api/v1/activities/"+a.ID)
	writeOK(w, r, http.StatusCreated, a)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	view, err := h.svc.View(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	body, err := json.Marshal(view)
	if err != nil {
		slog.Error("marshal activity view", "activity_id", view.ID, "error", err)
		writeError(w, r, http.StatusInternalServerError, "")
		return
	}
	etag := activity.ContentETag(string(body))
	w.Header().Set("ETag", etag)
	if etagMatches(r.Header.Get("If-None-Match"), etag) {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	writeOK(w, r, http.StatusOK, json.RawMessage(body))
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var req updateRequest
	if !decodeBody(w, r, &req) {
		return
	}
	raw, err := rawContent(req.Content)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	a, err := h.svc.Update(r.Context(), activity.UpdateInput{
		ID:      r.PathValue("id"),
		Title:   req.Title,
		Content: raw,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeOK(w, r, http.StatusOK, a)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.ListByModule(r.Context(), r.PathValue("moduleID"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeOK(w, r, http.StatusOK, items)
}

type importResult struct {
	Activity activity.Activity `json:"activity"`
	Report   importer.Report   `json:"report"`
}

// handleImport creates a QCM activity from an xlsx request body. The title
// comes from the title query parameter.
func (h *Handler) handleImport(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxUploadBytes))
	if err != nil {
		writeBodyError(w, r, err)
		return
	}

	q, report, err := importer.ImportQcm(bytes.NewReader(data))
	if err != nil {
		writeError(w, r, http.StatusUnprocessableEntity, err.Error())
		return
	}

	a, err := h.svc.Create(r.Context(), activity.CreateInput{
		ModuleID: r.PathValue("moduleID"),
		Title:    r.URL.Query().Get("title"),
		Content:  q,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.Header().Set("Location", "/api/v1/activities/"+a.ID)
	writeOK(w, r, http.StatusCreated, importResult{Activity: a, Report: report})
}

func (h *Handler) handleNormalize(w http.ResponseWriter, r *http.Request) {
	var req normalizeRequest
	if !decodeBody(w, r, &req) {
		return
	}
	raw, err := rawContent(req.Content)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	res, err := h.svc.Normalize(raw)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeOK(w, r, http.StatusOK, res)
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		writeBodyError(w, r, err)
		return false
	}
	return true
}

func writeBodyError(w http.ResponseWriter, r *http.Request, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeError(w, r, http.StatusRequestEntityTooLarge, "")
		return
	}
	writeError(w, r, http.StatusBadRequest, "invalid request body")
}

// rawContent turns the content field into a value for the codec. A JSON
// string yields the string itself, objects and arrays yield generic values,
// and an absent or null field yields nil.
func rawContent(msg json.RawMessage) (any, error) {
	if len(msg) == 0 || string(msg) == "null" {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader(msg))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("invalid content: %w", err)
	}
	return v, nil
}

func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, activity.ErrNotFound):
		writeError(w, r, http.StatusNotFound, "activity not found")
	case errors.Is(err, activity.ErrConflict):
		writeError(w, r, http.StatusConflict, err.Error())
	case activity.IsClientError(err):
		writeError(w, r, http.StatusBadRequest, err.Error())
	default:
		slog.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", middleware.GetReqID(r.Context()),
			"error", err,
		)
		writeError(w, r, http.StatusInternalServerError, "")
	}
}

func etagMatches(header, etag string) bool {
	if header == "" {
		return false
	}
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimSpace(candidate)
		if candidate == "*" || strings.TrimPrefix(candidate, "W/") == etag {
			return true
		}
	}
	return false
}
