// Copyright (c) 2026 Alignparty.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"log/slog"
	"net/http"

	"github.com/alignparty/specvote/identity"
	"github.com/alignparty/specvote/middleware"
	"github.com/alignparty/specvote/models"
	"github.com/alignparty/specvote/session"
)

type SessionHandler struct {
	svc *session.Service
}

func NewSessionHandler(svc *session.Service) *SessionHandler {
	return &SessionHandler{svc: svc}
}

// CreateSession handles POST /sessions
// The host key is client-persisted; a caller without one gets a fresh
// key back and must present it on every host-only operation.
func (h *SessionHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	hostKey := r.Header.Get("X-Host-Key")
	if hostKey == "" {
		hostKey = identity.NewID()
	}

	sess, err := h.svc.Create(r.Context(), identity.Identity{ParticipantID: hostKey})
	if err != nil {
		respondServiceError(w, err, "create session")
		return
	}

	slog.Info("session created", "session_key", sess.Key, "join_code", sess.JoinCode)

	middleware.JSONResponse(w, http.StatusCreated, models.CreateSessionResponse{
		SessionKey: sess.Key,
		JoinCode:   sess.JoinCode,
		HostKey:    hostKey,
	})
}

// GetSession handles GET /sessions/{code}
// Public session info. The final config appears only once locked.
func (h *SessionHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	key, err := identity.SessionKey(r.PathValue("code"))
	if err != nil {
		respondServiceError(w, err, "get session")
		return
	}

	sess, err := h.svc.Get(r.Context(), key)
	if err != nil {
		respondServiceError(w, err, "get session")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, sess)
}

// LockSession handles POST /sessions/{code}/lock
// Freezes the session configuration. An optional JSON body carries a
// host-edited override that replaces the aggregate verbatim.
func (h *SessionHandler) LockSession(w http.ResponseWriter, r *http.Request) {
	key, err := identity.SessionKey(r.PathValue("code"))
	if err != nil {
		respondServiceError(w, err, "lock session")
		return
	}

	hostKey := r.Header.Get("X-Host-Key")
	if hostKey == "" {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "X-Host-Key header required")
		return
	}

	var req models.LockSessionRequest
	if r.ContentLength != 0 {
		if err := middleware.ParseJSONBody(r, &req); err != nil {
			middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
			return
		}
	}

	locked, err := h.svc.Lock(r.Context(), key, identity.Identity{ParticipantID: hostKey}, req.Override)
	if err != nil {
		respondServiceError(w, err, "lock session")
		return
	}

	slog.Info("session locked",
		"session_key", locked.Key,
		"method", locked.FinalMeta.MethodVersion,
		"selection_count", locked.FinalMeta.SelectionCount,
		"config_id", locked.FinalMeta.ConfigID,
	)

	middleware.JSONResponse(w, http.StatusOK, models.LockSessionResponse{
		LockedAt:    *locked.LockedAt,
		FinalConfig: *locked.FinalConfig,
		FinalMeta:   *locked.FinalMeta,
	})
}

// EndSession handles POST /sessions/{code}/end
func (h *SessionHandler) EndSession(w http.ResponseWriter, r *http.Request) {
	key, err := identity.SessionKey(r.PathValue("code"))
	if err != nil {
		respondServiceError(w, err, "end session")
		return
	}

	hostKey := r.Header.Get("X-Host-Key")
	if hostKey == "" {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "X-Host-Key header required")
		return
	}

	ended, err := h.svc.End(r.Context(), key, identity.Identity{ParticipantID: hostKey})
	if err != nil {
		respondServiceError(w, err, "end session")
		return
	}

	slog.Info("session ended", "session_key", ended.Key)

	middleware.JSONResponse(w, http.StatusOK, ended)
}

// GetResult handles GET /sessions/{code}/result
// Returns 409 while the session is still in lobby; once locked the
// final config and its metadata are public and immutable.
func (h *SessionHandler) GetResult(w http.ResponseWriter, r *http.Request) {
	key, err := identity.SessionKey(r.PathValue("code"))
	if err != nil {
		respondServiceError(w, err, "get result")
		return
	}

	sess, err := h.svc.Get(r.Context(), key)
	if err != nil {
		respondServiceError(w, err, "get result")
		return
	}

	if sess.Status == models.StatusLobby {
		middleware.ErrorResponse(w, http.StatusConflict, "Results are hidden until the session is locked")
		return
	}

	if sess.FinalConfig == nil || sess.FinalMeta == nil {
		slog.Error("locked session has no final config", "session_key", sess.Key)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Results not available")
		return
	}

	players, err := h.svc.Players(r.Context(), sess.Key)
	if err != nil {
		respondServiceError(w, err, "get result")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.ResultResponse{
		Session:     sess,
		FinalConfig: *sess.FinalConfig,
		FinalMeta:   *sess.FinalMeta,
		PlayerCount: len(players),
	})
}
