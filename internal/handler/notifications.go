package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/pesio-ai/be-catering-requests/internal/errors"
)

// ListNotifications handles GET /api/v1/notifications?unread=true&limit=
func (h *HTTPHandler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r, "limit")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	unreadOnly := false
	if raw := r.URL.Query().Get("unread"); raw != "" {
		unreadOnly, err = strconv.ParseBool(raw)
		if err != nil {
			h.writeError(w, r, errors.InvalidInput("unread", "unread must be true or false"))
			return
		}
	}

	notifications, err := h.svc.Notifications.ListNotifications(r.Context(), actorFrom(r), unreadOnly, limit)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeList(w, notifications)
}

// UnreadCount handles GET /api/v1/notifications/unread-count
func (h *HTTPHandler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	count, err := h.svc.Notifications.UnreadCount(r.Context(), actorFrom(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]int{"count": count})
}

// MarkRead handles POST /api/v1/notifications/{id}/read
func (h *HTTPHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	n, err := h.svc.Notifications.MarkRead(r.Context(), actorFrom(r), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, n)
}

// MarkAllRead handles POST /api/v1/notifications/read-all
func (h *HTTPHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	updated, err := h.svc.Notifications.MarkAllRead(r.Context(), actorFrom(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]int64{"updated": updated})
}
