package handlers

import (
	"net/http"
	"time"

	"sentinel-desk/config"
)

type HealthHandler struct {
	cfg *config.AppConfig
}

func NewHealthHandler(cfg *config.AppConfig) *HealthHandler {
	return &HealthHandler{cfg: cfg}
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	version := "unknown"
	if h.cfg != nil && h.cfg.Version != "" {
		version = h.cfg.Version
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"message":   "Security request desk is running",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"version":   version,
	})
}
