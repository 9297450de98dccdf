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

type PlayerHandler struct {
	svc *session.Service
}

func NewPlayerHandler(svc *session.Service) *PlayerHandler {
	return &PlayerHandler{svc: svc}
}

// Join handles POST /sessions/{code}/join
// Idempotent: rejoining refreshes timestamps instead of duplicating. A
// caller without a participant id gets a fresh one back.
func (h *PlayerHandler) Join(w http.ResponseWriter, r *http.Request) {
	key, err := identity.SessionKey(r.PathValue("code"))
	if err != nil {
		respondServiceError(w, err, "join session")
		return
	}

	participantID := r.Header.Get("X-Participant-ID")
	if participantID == "" {
		participantID = identity.NewID()
	}

	var req models.JoinSessionRequest
	if r.ContentLength != 0 {
		if err := middleware.ParseJSONBody(r, &req); err != nil {
			middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
			return
		}
	}

	player, err := h.svc.Join(r.Context(), key, identity.Identity{
		ParticipantID: participantID,
		DisplayName:   req.DisplayName,
	})
	if err != nil {
		respondServiceError(w, err, "join session")
		return
	}

	slog.Info("player joined", "session_key", key, "participant_id", player.ParticipantID)

	middleware.JSONResponse(w, http.StatusOK, models.JoinSessionResponse{
		ParticipantID: player.ParticipantID,
	})
}

// Heartbeat handles POST /sessions/{code}/heartbeat
func (h *PlayerHandler) Heartbeat(w http.ResponseWriter, r *http.Request) {
	key, err := identity.SessionKey(r.PathValue("code"))
	if err != nil {
		respondServiceError(w, err, "heartbeat")
		return
	}

	participantID := r.Header.Get("X-Participant-ID")
	if participantID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "X-Participant-ID header required")
		return
	}

	err = h.svc.Heartbeat(r.Context(), key, identity.Identity{ParticipantID: participantID})
	if err != nil {
		respondServiceError(w, err, "heartbeat")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// List handles GET /sessions/{code}/players
func (h *PlayerHandler) List(w http.ResponseWriter, r *http.Request) {
	key, err := identity.SessionKey(r.PathValue("code"))
	if err != nil {
		respondServiceError(w, err, "list players")
		return
	}

	sess, err := h.svc.Get(r.Context(), key)
	if err != nil {
		respondServiceError(w, err, "list players")
		return
	}

	players, err := h.svc.Players(r.Context(), sess.Key)
	if err != nil {
		respondServiceError(w, err, "list players")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, players)
}
