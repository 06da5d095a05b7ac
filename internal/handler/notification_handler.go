package handler

import (
	"net/http"

	"wallet-service/internal/errors"
	"wallet-service/internal/service"
)

type NotificationHandler struct {
	walletService *service.WalletService
}

func NewNotificationHandler(walletService *service.WalletService) *NotificationHandler {
	return &NotificationHandler{
		walletService: walletService,
	}
}

type NotificationResponse struct {
	NotificationID string `json:"notification_id"`
	Message        string `json:"message"`
	Read           bool   `json:"read"`
	CreatedAt      string `json:"created_at"`
}

func (h *NotificationHandler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	userID, err := pathUUID(r, "user_id", errors.ErrInvalidAccountID)
	if err != nil {
		writeError(w, err)
		return
	}

	notifications, err := h.walletService.ListNotifications(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}

	response := make([]NotificationResponse, 0, len(notifications))
	for _, n := range notifications {
		response = append(response, NotificationResponse{
			NotificationID: n.ID.String(),
			Message:        n.Message,
			Read:           n.Read,
			CreatedAt:      n.CreatedAt.Format(timeLayout),
		})
	}
	writeJSON(w, http.StatusOK, response)
}

type MarkReadRequest struct {
	Read *bool `json:"read"`
}

func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	userID, err := pathUUID(r, "user_id", errors.ErrInvalidAccountID)
	if err != nil {
		writeError(w, err)
		return
	}
	notificationID, err := pathUUID(r, "notification_id", errors.NewAppError(errors.InvalidInput, "invalid notification id"))
	if err != nil {
		writeError(w, err)
		return
	}

	var req MarkReadRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	read := true
	if req.Read != nil {
		read = *req.Read
	}

	if err := h.walletService.MarkNotificationRead(r.Context(), userID, notificationID, read); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"notification_id": notificationID.String(),
		"read":            read,
	})
}
