// Package ops serves the liveness and readiness probes.
package ops

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/julienschmidt/httprouter"

	"roombook/backend/internal/logging"
)

const readyTimeout = 2 * time.Second

// Check reports whether a dependency is reachable.
type Check func(ctx context.Context) error

type Response struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

type Handler struct {
	checks map[string]Check
	log    *slog.Logger
}

func NewHandler(checks map[string]Check, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{
		checks: checks,
		log:    log.With(slog.String("component", "ops")),
	}
}

func (h *Handler) Live(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	h.write(w, http.StatusOK, Response{Status: "ok"})
}

func (h *Handler) Ready(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	resp := Response{Status: "ready", Checks: make(map[string]string, len(names))}
	code := http.StatusOK
	for _, name := range names {
		if err := h.checks[name](ctx); err != nil {
			h.log.ErrorContext(ctx, "readiness check failed",
				slog.String("check", name),
				slog.String("path", r.URL.Path),
				slog.Any(logging.ErrKey, err),
			)
			resp.Checks[name] = "error"
			resp.Status = "unavailable"
			code = http.StatusServiceUnavailable
			continue
		}
		resp.Checks[name] = "ok"
	}
	h.write(w, code, resp)
}

func (h *Handler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/livez", h.Live)
	router.GET("/readyz", h.Ready)
}

// Router returns the probe routes wrapped in panic recovery.
func (h *Handler) Router() http.Handler {
	router := httprouter.New()
	h.RegisterRoutes(router)
	router.PanicHandler = func(w http.ResponseWriter, r *http.Request, v any) {
		h.log.ErrorContext(r.Context(), "panic serving ops request", slog.Any("panic", v), slog.String("path", r.URL.Path))
		w.WriteHeader(http.StatusInternalServerError)
	}
	return router
}

func (h *Handler) write(w http.ResponseWriter, code int, resp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.log.Error("failed to write JSON response", slog.Any(logging.ErrKey, err))
	}
}
