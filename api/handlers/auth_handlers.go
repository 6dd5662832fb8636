package handlers

import (
	"errors"
	"net/http"

	"sentinel-desk/core/auth"
	"sentinel-desk/core/rbac"
	"sentinel-desk/core/utils"
)

type AuthHandler struct {
	resolver *auth.Resolver
	logger   *utils.Logger
}

func NewAuthHandler(resolver *auth.Resolver, logger *utils.Logger) *AuthHandler {
	return &AuthHandler{resolver: resolver, logger: logger}
}

func (h *AuthHandler) UserRole(w http.ResponseWriter, r *http.Request) {
	identity, err := h.resolver.Resolve(r.Context(), r.URL.Query().Get("email"))
	if err != nil {
		if errors.Is(err, auth.ErrEmailRequired) {
			writeError(w, http.StatusBadRequest, "email is required")
			return
		}
		writeError(w, http.StatusInternalServerError, "role lookup failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"user":  identity,
		"roles": rbac.KnownRoles(),
	})
}
