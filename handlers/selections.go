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
	"github.com/alignparty/specvote/specs"
)

type SelectionHandler struct {
	svc *session.Service
}

func NewSelectionHandler(svc *session.Service) *SelectionHandler {
	return &SelectionHandler{svc: svc}
}

// Submit handles PUT /sessions/{code}/selection
// Create-or-overwrite, last write wins. Rejected once the session
// leaves lobby.
func (h *SelectionHandler) Submit(w http.ResponseWriter, r *http.Request) {
	key, err := identity.SessionKey(r.PathValue("code"))
	if err != nil {
		respondServiceError(w, err, "submit selection")
		return
	}

	participantID := r.Header.Get("X-Participant-ID")
	if participantID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "X-Participant-ID header required")
		return
	}

	var req models.SubmitSelectionRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	err = h.svc.SubmitSelection(r.Context(), key, identity.Identity{ParticipantID: participantID}, req.Specs)
	if err != nil {
		respondServiceError(w, err, "submit selection")
		return
	}

	slog.Info("selection submitted", "session_key", key, "participant_id", participantID)

	middleware.JSONResponse(w, http.StatusOK, models.SubmitSelectionResponse{
		Message: "Selection recorded",
	})
}

// GetMine handles GET /sessions/{code}/selection
// Returns the caller's current selection.
func (h *SelectionHandler) GetMine(w http.ResponseWriter, r *http.Request) {
	key, err := identity.SessionKey(r.PathValue("code"))
	if err != nil {
		respondServiceError(w, err, "get selection")
		return
	}

	participantID := r.Header.Get("X-Participant-ID")
	if participantID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "X-Participant-ID header required")
		return
	}

	sel, err := h.svc.Selection(r.Context(), key, identity.Identity{ParticipantID: participantID})
	if err != nil {
		respondServiceError(w, err, "get selection")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, sel)
}

// Count handles GET /sessions/{code}/selection-count
// Visible at any time, like a lobby's vote tally ticker. The host's own
// selection is not a vote and is left out of the count.
func (h *SelectionHandler) Count(w http.ResponseWriter, r *http.Request) {
	key, err := identity.SessionKey(r.PathValue("code"))
	if err != nil {
		respondServiceError(w, err, "count selections")
		return
	}

	sess, err := h.svc.Get(r.Context(), key)
	if err != nil {
		respondServiceError(w, err, "count selections")
		return
	}

	n, err := h.svc.SelectionCount(r.Context(), sess.Key)
	if err != nil {
		respondServiceError(w, err, "count selections")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.SelectionCountResponse{
		SelectionCount: n,
	})
}

// Preview handles GET /sessions/{code}/preview
// Host-only live view of the would-be final config. Runs the same
// aggregator as the lock path and persists nothing.
func (h *SelectionHandler) Preview(w http.ResponseWriter, r *http.Request) {
	key, err := identity.SessionKey(r.PathValue("code"))
	if err != nil {
		respondServiceError(w, err, "preview")
		return
	}

	sess, err := h.svc.Get(r.Context(), key)
	if err != nil {
		respondServiceError(w, err, "preview")
		return
	}

	hostKey := r.Header.Get("X-Host-Key")
	if hostKey == "" || hostKey != sess.HostID {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Only the host can preview the aggregate")
		return
	}

	cfg, meta, err := h.svc.Preview(r.Context(), sess.Key)
	if err != nil {
		respondServiceError(w, err, "preview")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.PreviewResponse{
		Config:         cfg,
		Meta:           meta,
		RiskIndex:      specs.RiskIndex(cfg),
		SelectionCount: meta.SelectionCount,
	})
}
