package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/desertthunder/tunex/internal/formatter"
	"github.com/desertthunder/tunex/internal/models"
	"github.com/desertthunder/tunex/internal/shared"
	"github.com/desertthunder/tunex/internal/tasks"
)

const pingTimeout = 2 * time.Second

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func delivery(raw string, res tasks.Result) formatter.Delivery {
	return formatter.NewDelivery(raw, res.Candidate, res.Found, string(res.Origin), res.Elapsed)
}

// SearchHandler serves GET /search and its progress stream.
type SearchHandler struct {
	svc    SearchService
	logger *log.Logger
}

// NewSearchHandler creates a SearchHandler.
func NewSearchHandler(svc SearchService, logger *log.Logger) *SearchHandler {
	return &SearchHandler{svc: svc, logger: logger}
}

// ServeHTTP runs a search for the q parameter.
//
// The format parameter selects json (default), text or markdown.
// A miss is a normal 200 response with found set to false.
func (h *SearchHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("q")
	if raw == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("%w: q", shared.ErrMissingArgument))
		return
	}

	format := formatter.FormatJSON
	if f := r.URL.Query().Get("format"); f != "" {
		parsed, err := formatter.ParseFormat(f)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		format = parsed
	}

	res, err := h.svc.SearchDetailed(r.Context(), raw, nil)
	if err != nil {
		h.searchFailed(w, err)
		return
	}

	if format == formatter.FormatJSON {
		writeJSON(w, http.StatusOK, delivery(raw, res))
		return
	}

	body, err := formatter.Render(delivery(raw, res), format)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if format == formatter.FormatMarkdown {
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	} else {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	}
	w.Write(body)
}

type progressEvent struct {
	Phase   string `json:"phase"`
	Step    int    `json:"step"`
	Total   int    `json:"total"`
	Message string `json:"message"`
}

// Stream runs a search and reports coordinator progress as server-sent events,
// ending with a "result" event carrying the delivery.
func (h *SearchHandler) Stream(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("q")
	if raw == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("%w: q", shared.ErrMissingArgument))
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, fmt.Errorf("%w: streaming", shared.ErrNotImplemented))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)

	progress := make(chan tasks.ProgressUpdate, 32)
	type outcome struct {
		res tasks.Result
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		res, err := h.svc.SearchDetailed(r.Context(), raw, progress)
		done <- outcome{res, err}
	}()

	send := func(event string, v any) {
		data, _ := json.Marshal(v)
		fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
		flusher.Flush()
	}
	sendUpdate := func(u tasks.ProgressUpdate) {
		send("progress", progressEvent{Phase: u.Phase.String(), Step: u.Step, Total: u.Total, Message: u.Message})
	}

	for {
		select {
		case u := <-progress:
			sendUpdate(u)
		case out := <-done:
			for len(progress) > 0 {
				sendUpdate(<-progress)
			}
			if out.err != nil {
				send("error", map[string]string{"error": out.err.Error()})
				return
			}
			send("result", delivery(raw, out.res))
			return
		}
	}
}

func (h *SearchHandler) searchFailed(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusServiceUnavailable, err)
	default:
		h.logger.Error("search failed", "err", err)
		writeError(w, http.StatusInternalServerError, err)
	}
}

// AdminHandler serves cache and archive maintenance.
type AdminHandler struct {
	svc    SearchService
	logger *log.Logger
}

// NewAdminHandler creates an AdminHandler.
func NewAdminHandler(svc SearchService, logger *log.Logger) *AdminHandler {
	return &AdminHandler{svc: svc, logger: logger}
}

// Routes returns the HTTP routes this handler serves.
func (h *AdminHandler) Routes() []string {
	return []string{"GET /cache/stats", "DELETE /cache", "POST /cache/compact", "DELETE /archive"}
}

// ServeHTTP dispatches on the matched pattern.
func (h *AdminHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Pattern {
	case "GET /cache/stats":
		stats := h.svc.CacheStats()
		writeJSON(w, http.StatusOK, map[string]any{
			"entries":     stats.Entries,
			"ttl_seconds": int(stats.TTL.Seconds()),
			"enabled":     stats.Enabled,
		})
	case "DELETE /cache":
		h.svc.ClearCache()
		w.WriteHeader(http.StatusNoContent)
	case "POST /cache/compact":
		cached, archived := h.svc.Compact()
		writeJSON(w, http.StatusOK, map[string]int{"cache": cached, "archive": archived})
	case "DELETE /archive":
		if err := h.svc.ClearArchive(); err != nil {
			h.logger.Error("archive clear failed", "err", err)
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		http.NotFound(w, r)
	}
}

// HealthChecker reports which sources are reachable. [*services.Registry] satisfies it.
type HealthChecker interface {
	Handles() []models.SourceHandle
	Ping(ctx context.Context, sourceID string) error
}

// HealthHandler serves GET /health.
type HealthHandler struct {
	checker HealthChecker
}

// NewHealthHandler creates a HealthHandler. checker may be nil.
func NewHealthHandler(checker HealthChecker) *HealthHandler {
	return &HealthHandler{checker: checker}
}

// Routes returns the HTTP routes this handler serves.
func (h *HealthHandler) Routes() []string {
	return []string{"GET /health"}
}

// ServeHTTP pings every source concurrently. The service itself is healthy if it can answer;
// per-source results are informational.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{"status": "ok"}
	if h.checker == nil {
		writeJSON(w, http.StatusOK, body)
		return
	}

	handles := h.checker.Handles()
	results := make([]string, len(handles))

	ctx, cancel := context.WithTimeout(r.Context(), pingTimeout)
	defer cancel()

	g := new(errgroup.Group)
	for i, handle := range handles {
		g.Go(func() error {
			err := h.checker.Ping(ctx, handle.ID)
			if errors.Is(err, shared.ErrNotImplemented) {
				results[i] = "unchecked"
				return nil
			}
			results[i] = shared.ErrorKind(shared.ClassifySourceError(err))
			return nil
		})
	}
	g.Wait()

	sources := make(map[string]string, len(handles))
	for i, handle := range handles {
		sources[handle.ID] = results[i]
	}
	body["sources"] = sources
	writeJSON(w, http.StatusOK, body)
}
