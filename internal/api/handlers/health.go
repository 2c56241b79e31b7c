package handlers

import (
	"context"
	"encoding/json"
	"net/http"
)

type modelState interface {
	Loaded() bool
}

type pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	models modelState
	cache  pinger // nil when no cache is configured
}

func NewHealthHandler(models modelState, cache pinger) *HealthHandler {
	return &HealthHandler{models: models, cache: cache}
}

func (h *HealthHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Readyz reports the model state and cache reachability. The model loads on
// first use, so an unloaded model does not make the service unready.
func (h *HealthHandler) Readyz(w http.ResponseWriter, r *http.Request) {
	checks := map[string]string{}
	status := http.StatusOK

	if h.models.Loaded() {
		checks["model"] = "loaded"
	} else {
		checks["model"] = "not loaded"
	}

	if h.cache != nil {
		if err := h.cache.Ping(r.Context()); err != nil {
			checks["cache"] = "unhealthy: " + err.Error()
			status = http.StatusServiceUnavailable
		} else {
			checks["cache"] = "ok"
		}
	}

	writeJSON(w, status, map[string]interface{}{"status": statusStr(status), "checks": checks})
}

func statusStr(code int) string {
	if code == http.StatusOK {
		return "ok"
	}
	return "unhealthy"
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
