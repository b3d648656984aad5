package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/onnwee/agrisync/backend/internal/apierr"
	"github.com/onnwee/agrisync/backend/internal/middleware"
	"github.com/onnwee/agrisync/backend/internal/models"
)

// NotificationAPI is the notification service surface used by the handlers.
// Every route acts on the calling user's own notifications.
type NotificationAPI interface {
	ListForUser(ctx context.Context, userID string, f models.NotificationFilters) ([]models.Notification, error)
	UnreadCount(ctx context.Context, userID string) (int, error)
	MarkRead(ctx context.Context, id string) (models.Notification, error)
	MarkAllRead(ctx context.Context, userID string) (int, error)
	Create(ctx context.Context, n models.Notification) (models.Notification, error)
}

func currentUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	profile, ok := ProfileFrom(r.Context())
	if !ok || profile.UserID == "" {
		apierr.WriteErrorWithContext(w, r, apierr.AuthMissing(""))
		return "", false
	}
	return profile.UserID, true
}

// ListNotifications GET /api/notifications?unread_only=&type=&limit=
func ListNotifications(s NotificationAPI) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := currentUser(w, r)
		if !ok {
			return
		}
		limit, err := queryInt(r, "limit")
		if err != nil {
			apierr.WriteErrorWithContext(w, r, apierr.ValidationInvalidValue("limit", err.Error()))
			return
		}
		rows, err := s.ListForUser(r.Context(), userID, models.NotificationFilters{
			UnreadOnly: queryBool(r, "unread_only"),
			Type:       strings.TrimSpace(r.URL.Query().Get("type")),
			Limit:      limit,
		})
		if err != nil {
			writeServiceError(w, r, "notification", err)
			return
		}
		writeJSON(w, http.StatusOK, rows)
	}
}

// UnreadCount GET /api/notifications/unread-count
func UnreadCount(s NotificationAPI) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := currentUser(w, r)
		if !ok {
			return
		}
		n, err := s.UnreadCount(r.Context(), userID)
		if err != nil {
			writeServiceError(w, r, "notification", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]int{"unread": n})
	}
}

// MarkNotificationRead POST /api/notifications/{id}/read
func MarkNotificationRead(s NotificationAPI) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := currentUser(w, r); !ok {
			return
		}
		n, err := s.MarkRead(r.Context(), mux.Vars(r)["id"])
		if err != nil {
			writeServiceError(w, r, "notification", err)
			return
		}
		writeJSON(w, http.StatusOK, n)
	}
}

// MarkAllNotificationsRead POST /api/notifications/read-all
func MarkAllNotificationsRead(s NotificationAPI) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := currentUser(w, r)
		if !ok {
			return
		}
		n, err := s.MarkAllRead(r.Context(), userID)
		if err != nil {
			writeServiceError(w, r, "notification", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]int{"updated": n})
	}
}

// CreateNotification POST /api/notifications
func CreateNotification(s NotificationAPI) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var n models.Notification
		if apiErr := middleware.DecodeJSON(r, &n, false); apiErr != nil {
			apierr.WriteErrorWithContext(w, r, apiErr)
			return
		}
		created, err := s.Create(r.Context(), n)
		if err != nil {
			writeServiceError(w, r, "notification", err)
			return
		}
		writeJSON(w, http.StatusCreated, created)
	}
}
