// Package httpapi exposes the public script endpoint and the operational
// probes over HTTP.
package httpapi

import (
	"context"
	"net/http"

	"github.com/dmitrijs2005/scriptguard/internal/logging"
	"github.com/dmitrijs2005/scriptguard/internal/server/composer"
	"github.com/dmitrijs2005/scriptguard/internal/server/gate"
	"github.com/dmitrijs2005/scriptguard/internal/server/services"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
)

const OutcomeHeader = "X-Scriptguard-Outcome"

type ScriptServer interface {
	Serve(ctx context.Context, req services.ScriptRequest) composer.Payload
}

type Pinger interface {
	PingContext(ctx context.Context) error
}

type Handler struct {
	scripts   ScriptServer
	db        Pinger
	keyHeader string
	logger    logging.Logger
}

func NewHandler(scripts ScriptServer, db Pinger, keyHeader string, l logging.Logger) *Handler {
	return &Handler{
		scripts:   scripts,
		db:        db,
		keyHeader: keyHeader,
		logger:    l.With("module", "http_handler"),
	}
}

// Script answers with a Luau payload and status 200 for every gate outcome;
// the outcome itself travels in OutcomeHeader.
func (h *Handler) Script(w http.ResponseWriter, r *http.Request) {
	req := services.ScriptRequest{
		ProjectID:   chi.URLParam(r, "projectID"),
		Fingerprint: gate.ExtractFingerprint(r.Header),
		Key:         r.Header.Get(h.keyHeader),
		UserAgent:   r.UserAgent(),
	}
	writePayload(w, http.StatusOK, h.scripts.Serve(r.Context(), req))
}

func writePayload(w http.ResponseWriter, status int, p composer.Payload) {
	outcome := string(p.Kind)
	if p.Reason != gate.ReasonNone {
		outcome += ":" + string(p.Reason)
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set(OutcomeHeader, outcome)
	w.WriteHeader(status)
	_, _ = w.Write(p.Body)
}

type healthResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, healthResponse{Status: "ok"})
}

func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	if err := h.db.PingContext(r.Context()); err != nil {
		h.logger.Warn(r.Context(), "readiness check failed", "error", err)
		render.Status(r, http.StatusServiceUnavailable)
		render.JSON(w, r, healthResponse{Status: "unavailable", Error: "database unreachable"})
		return
	}
	render.JSON(w, r, healthResponse{Status: "ok"})
}
