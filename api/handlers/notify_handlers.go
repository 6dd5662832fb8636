package handlers

import (
	"net/http"

	"sentinel-desk/core/notify"
	"sentinel-desk/core/utils"
)

type NotifyHandler struct {
	notifier *notify.Notifier
	logger   *utils.Logger
}

func NewNotifyHandler(notifier *notify.Notifier, logger *utils.Logger) *NotifyHandler {
	return &NotifyHandler{notifier: notifier, logger: logger}
}

// TestTeams pushes a sample card so operators can verify the webhook
// channel end to end.
func (h *NotifyHandler) TestTeams(w http.ResponseWriter, r *http.Request) {
	if err := h.notifier.NotifyTest(r.Context()); err != nil {
		if h.logger != nil {
			h.logger.Errorf("test notification: %v", err)
		}
		writeError(w, http.StatusBadGateway, "test notification failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "Test notification sent"})
}
