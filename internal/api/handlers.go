// Package api exposes HTTP handlers for the feedboard service.
package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"example.com/feedboard/internal/auth"
	"example.com/feedboard/internal/domain"
	"example.com/feedboard/internal/live"
	"example.com/feedboard/internal/observability"
	"example.com/feedboard/internal/roster"
)

// Handler coordinates HTTP requests with the domain service.
type Handler struct {
	service *domain.Service
	roster  roster.Checker
	hub     *live.Hub
	authCfg auth.Config
	version string
	logger  zerolog.Logger
}

// NewHandler builds a Handler.
func NewHandler(service *domain.Service, checker roster.Checker, hub *live.Hub, authCfg auth.Config, version string, logger zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		roster:  checker,
		hub:     hub,
		authCfg: authCfg,
		version: version,
		logger:  logger,
	}
}

// RegisterRoutes wires endpoints to the mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/v1/session", h.session)
	mux.HandleFunc("/v1/feed", h.feed)
	mux.HandleFunc("/v1/feed/stream", h.stream)
	mux.HandleFunc("/v1/version", h.appVersion)
	mux.HandleFunc("/healthz", healthz)
}

// healthz reports a simple OK status for container health checks.
func healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *Handler) appVersion(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}
	writeJSON(w, http.StatusOK, VersionResponse{AppVersion: h.version})
}

func (h *Handler) session(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}

	var req SessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}

	var (
		userID    string
		anonymous bool
		kind      string
	)
	if strings.TrimSpace(req.AccessToken) == "" {
		userID = uuid.NewString()
		anonymous = true
		kind = "anonymous"
	} else {
		subject, err := auth.ParseAccessToken(req.AccessToken, h.authCfg)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "unauthorized", "invalid access token")
			return
		}
		userID = subject
		kind = "token"
	}

	admin, err := h.roster.IsAdmin(r.Context(), userID)
	if err != nil {
		// A broken allow-list downgrades to a regular session, never a failure.
		h.logger.Error().Err(err).Str("user_id", userID).Msg("admin roster lookup failed")
		admin = false
	}

	token, expiresAt, err := auth.IssueSession(h.authCfg, auth.SessionInput{
		UserID:    userID,
		Admin:     admin,
		Anonymous: anonymous,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}

	observability.RecordSessionIssued(kind)
	writeJSON(w, http.StatusOK, SessionResponse{
		SessionToken: token,
		UserID:       userID,
		Admin:        admin,
		Anonymous:    anonymous,
		ExpiresAt:    expiresAt,
	})
}

func (h *Handler) feed(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.postEntry(w, r)
	case http.MethodGet:
		h.listFeed(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
	}
}

func (h *Handler) postEntry(w http.ResponseWriter, r *http.Request) {
	claims, err := auth.RequireScope(r.Context(), auth.ScopeFeedPost)
	if err != nil {
		writeAuthError(w, err)
		return
	}

	var req PostEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}

	entry, err := h.service.PostEntry(r.Context(), domain.PostEntryInput{
		UserID:  claims.Subject,
		Content: req.Content,
		IsAdmin: claims.Admin,
	})
	if err != nil {
		if errors.Is(err, domain.ErrEmptyContent) || errors.Is(err, domain.ErrContentTooLong) {
			writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}

	observability.RecordEntryPosted()
	writeJSON(w, http.StatusAccepted, PostEntryResponse{
		EntryID:   entry.ID,
		CreatedAt: entry.CreatedAt,
	})
}

func (h *Handler) listFeed(w http.ResponseWriter, r *http.Request) {
	if _, err := auth.RequireScope(r.Context(), auth.ScopeFeedRead); err != nil {
		writeAuthError(w, err)
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, "validation_failed", "invalid limit")
			return
		}
		limit = parsed
	}

	entries, err := h.service.ListFeed(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}

	items := make([]EntryView, 0, len(entries))
	for _, entry := range entries {
		items = append(items, toEntryView(entry))
	}
	writeJSON(w, http.StatusOK, FeedResponse{Items: items})
}

// SessionRequest is the payload for POST /v1/session. An empty body or empty
// token yields an anonymous session.
type SessionRequest struct {
	AccessToken string `json:"access_token"`
}

// SessionResponse carries the minted session and the resolved identity.
type SessionResponse struct {
	SessionToken string    `json:"session_token"`
	UserID       string    `json:"user_id"`
	Admin        bool      `json:"admin"`
	Anonymous    bool      `json:"anonymous"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// PostEntryRequest is the payload for POST /v1/feed.
type PostEntryRequest struct {
	Content string `json:"content"`
}

// PostEntryResponse describes the response body for a posted entry.
type PostEntryResponse struct {
	EntryID   string    `json:"entry_id"`
	CreatedAt time.Time `json:"created_at"`
}

// EntryView exposes a feed entry to clients.
type EntryView struct {
	EntryID    string    `json:"entry_id"`
	UserID     string    `json:"user_id"`
	Content    string    `json:"content"`
	IsAdmin    bool      `json:"is_admin"`
	AppVersion string    `json:"app_version"`
	CreatedAt  time.Time `json:"created_at"`
}

// FeedResponse packages list results, newest first.
type FeedResponse struct {
	Items []EntryView `json:"items"`
}

// VersionResponse reports the running service version.
type VersionResponse struct {
	AppVersion string `json:"app_version"`
}

// writeAuthError maps RequireScope failures onto 401/403.
func writeAuthError(w http.ResponseWriter, err error) {
	if errors.Is(err, auth.ErrScopeMissing) {
		writeError(w, http.StatusForbidden, "forbidden", err.Error())
		return
	}
	writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
}

func writeError(w http.ResponseWriter, status int, code, detail string) {
	payload := map[string]string{
		"type":   code,
		"detail": detail,
	}
	writeJSON(w, status, payload)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func toEntryView(entry domain.Entry) EntryView {
	return EntryView{
		EntryID:    entry.ID,
		UserID:     entry.UserID,
		Content:    entry.Content,
		IsAdmin:    entry.IsAdmin,
		AppVersion: entry.AppVersion,
		CreatedAt:  entry.CreatedAt,
	}
}
