package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"sentinel-desk/config"
	"sentinel-desk/core/auth"
	"sentinel-desk/core/requests"
	"sentinel-desk/core/utils"
)

type RequestsHandler struct {
	cfg      *config.AppConfig
	svc      *requests.Service
	resolver *auth.Resolver
	logger   *utils.Logger
}

func NewRequestsHandler(cfg *config.AppConfig, svc *requests.Service, resolver *auth.Resolver, logger *utils.Logger) *RequestsHandler {
	return &RequestsHandler{cfg: cfg, svc: svc, resolver: resolver, logger: logger}
}

// List returns requests visible to the caller, each with its comments
// aggregated, newest request first. Non-IT callers only see their own.
func (h *RequestsHandler) List(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("userEmail")
	userID := strings.TrimSpace(r.URL.Query().Get("userId"))
	identity, err := h.resolver.Resolve(r.Context(), email)
	if err != nil {
		if errors.Is(err, auth.ErrEmailRequired) {
			writeError(w, http.StatusBadRequest, "userEmail is required")
			return
		}
		writeError(w, http.StatusInternalServerError, "role lookup failed")
		return
	}
	viewer := requests.Viewer{UserID: userID, IsITTeam: identity.IsITTeam}
	if viewer.UserID == "" {
		viewer.UserID = identity.UserID
	}
	items, err := h.svc.List(r.Context(), viewer)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list requests")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"requests": items,
		"count":    len(items),
	})
}

func (h *RequestsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var sub requests.Submission
	if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	created, err := h.svc.Create(r.Context(), sub)
	if err != nil {
		var verr *requests.ValidationError
		if errors.As(err, &verr) {
			writeError(w, http.StatusBadRequest, verr.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to create request")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "Request created successfully",
		"request": created,
	})
}

func (h *RequestsHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.Stats(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to compute statistics")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"statistics": stats})
}

func (h *RequestsHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id := urlParam(r, "id")
	if strings.TrimSpace(id) == "" {
		writeError(w, http.StatusBadRequest, "request id is required")
		return
	}
	var change requests.StatusChange
	if err := json.NewDecoder(r.Body).Decode(&change); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	updated, err := h.svc.UpdateStatus(r.Context(), id, change)
	if err != nil {
		var verr *requests.ValidationError
		switch {
		case errors.As(err, &verr):
			writeError(w, http.StatusBadRequest, verr.Error())
		case errors.Is(err, requests.ErrNotFound):
			writeError(w, http.StatusNotFound, "request not found")
		default:
			writeError(w, http.StatusInternalServerError, "failed to update status")
		}
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Status updated successfully",
		"request": updated,
	})
}
