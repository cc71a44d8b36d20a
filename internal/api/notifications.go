package api

import (
	"net/http"

	"github.com/SigNoz/ecommerce-checkout-app/internal/models"
	"github.com/SigNoz/ecommerce-checkout-app/internal/services"
)

// ListNotificationsHandler handles GET /api/notifications/{userId}
func (a *App) ListNotificationsHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(w, r, "userId")
	if !ok {
		return
	}
	user := caller(r)
	if userID != user.ID {
		writeError(w, r, services.ErrForbidden)
		return
	}

	notifications, err := a.svc.Notifications.ListForUser(r.Context(), user.ID, user.Role)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, notifications)
}

// MarkReadHandler handles PUT /api/notifications/{id}/read and its global
// alias
func (a *App) MarkReadHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if err := a.svc.Notifications.MarkRead(r.Context(), id, caller(r).ID); err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Notification marked as read")
}

// MarkAllReadHandler handles PUT /api/notifications/mark-read/{userId}
func (a *App) MarkAllReadHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(w, r, "userId")
	if !ok {
		return
	}
	user := caller(r)
	if userID != user.ID {
		writeError(w, r, services.ErrForbidden)
		return
	}

	if err := a.svc.Notifications.MarkAllRead(r.Context(), user.ID, user.Role); err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "All notifications marked as read")
}

// CreateGlobalNotificationHandler handles POST /api/notifications/add-global-notification
func (a *App) CreateGlobalNotificationHandler(w http.ResponseWriter, r *http.Request) {
	var req models.GlobalNotificationRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	id, err := a.svc.Notifications.CreateGlobal(r.Context(), req.Title, req.Message, req.Type, req.TargetRole)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "Global notification created",
		"id":      id,
	})
}

// DeleteNotificationHandler handles DELETE /api/notifications/{id}
func (a *App) DeleteNotificationHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	user := caller(r)

	if err := a.svc.Notifications.Delete(r.Context(), id, user.ID, user.Role); err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Notification deleted")
}
