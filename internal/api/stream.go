package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"example.com/feedboard/internal/auth"
)

const streamHeartbeat = 15 * time.Second

// stream serves the live feed over Server-Sent Events. Only admin sessions
// may watch the wall.
func (h *Handler) stream(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}

	if _, err := auth.RequireScope(r.Context(), auth.ScopeFeedRead); err != nil {
		writeAuthError(w, err)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "server_error", "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	_, _ = fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	eventsCh, unsubscribe := h.hub.Subscribe()
	defer unsubscribe()

	heartbeat := time.NewTicker(streamHeartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			_, _ = fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		case event, open := <-eventsCh:
			if !open {
				return
			}
			body, err := json.Marshal(EntryView{
				EntryID:    event.EntryID,
				UserID:     event.UserID,
				Content:    event.Content,
				IsAdmin:    event.IsAdmin,
				AppVersion: event.AppVersion,
				CreatedAt:  event.CreatedAt,
			})
			if err != nil {
				h.logger.Error().Err(err).Msg("encode stream event")
				continue
			}
			_, _ = fmt.Fprintf(w, "id: %s\nevent: entry\ndata: %s\n\n", event.EntryID, body)
			flusher.Flush()
		}
	}
}
