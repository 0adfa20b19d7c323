// Package handler provides HTTP handlers for all API endpoints. Notify
// endpoints delegate to the notify service; handlers only translate between
// HTTP and its request/report types.
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/beaconalert/beacon/internal/api/respond"
	"github.com/beaconalert/beacon/internal/config"
	"github.com/beaconalert/beacon/internal/notify"
)

// Notifier is the notify service as seen by the handlers.
type Notifier interface {
	Notify(ctx context.Context, strategy notify.Strategy, req notify.Request) (notify.Report, error)
	Capabilities(strategy notify.Strategy) (notify.Capabilities, error)
}

// Pinger checks database connectivity.
type Pinger interface {
	HealthCheck(ctx context.Context) error
}

// Handler holds shared dependencies for all endpoint handlers.
type Handler struct {
	svc Notifier
	db  Pinger // nil when DATABASE_URL is unset
	cfg *config.Config
}

// New creates a Handler with shared dependencies.
func New(svc Notifier, db Pinger, cfg *config.Config) *Handler {
	return &Handler{svc: svc, db: db, cfg: cfg}
}

// Root serves API info at /.
// @Summary API root info
// @Description Returns API name, version, status and the notify endpoints.
// @Tags meta
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router / [get]
func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"name":    "Beacon Emergency Notification API",
		"version": "1.0.0",
		"status":  "running",
		"docs":    "/docs",
		"endpoints": []string{
			"POST /functions/v1/notify-contacts",
			"POST /functions/v1/notify-responders",
		},
	})
}

// HealthCheck returns basic health status.
// @Summary Health check
// @Description Returns basic health status and timestamp.
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /health [get]
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// HealthCheckDB verifies database connectivity.
// @Summary Database health check
// @Description Verifies Postgres connectivity.
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 503 {object} map[string]interface{}
// @Router /health/db [get]
func (h *Handler) HealthCheckDB(w http.ResponseWriter, r *http.Request) {
	if h.db == nil {
		respond.WriteJSONObject(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status":    "unhealthy",
			"database":  "not configured",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
		return
	}
	if err := h.db.HealthCheck(r.Context()); err != nil {
		respond.WriteJSONObject(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status":    "unhealthy",
			"database":  "disconnected",
			"error":     "Database connection check failed",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
		return
	}
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"database":  "connected",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

type capabilityStatus struct {
	notify.Capabilities
	Ready bool   `json:"ready"`
	Error string `json:"error,omitempty"`
}

// HealthCheckCapabilities reports which stores and channels each strategy
// would use right now.
// @Summary Capability check
// @Description Reports store, directory and channel availability per strategy. Never contacts a provider.
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /health/capabilities [get]
func (h *Handler) HealthCheckCapabilities(w http.ResponseWriter, r *http.Request) {
	out := map[string]capabilityStatus{}
	for _, s := range []notify.Strategy{notify.StrategyContacts, notify.StrategyResponders} {
		caps, err := h.svc.Capabilities(s)
		st := capabilityStatus{Capabilities: caps, Ready: err == nil}
		if err != nil {
			st.Error = err.Error()
		}
		out[string(s)] = st
	}
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"strategies": out,
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
	})
}
