// Copyright (c) 2026 Alignparty.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/alignparty/specvote/identity"
	"github.com/alignparty/specvote/models"
	"github.com/alignparty/specvote/session"
	"github.com/alignparty/specvote/specs"
)

type LiveHandler struct {
	svc      *session.Service
	upgrader websocket.Upgrader
}

func NewLiveHandler(svc *session.Service) *LiveHandler {
	return &LiveHandler{
		svc: svc,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			// Origin policy is handled by the CORS layer.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Stream handles GET /sessions/{code}/live
// Upgrades to a WebSocket and pushes LiveFrame messages: the session on
// every session change, the player list on every presence change, and
// the selection count on every submission. When the caller presents the
// session's host key (?host_key=), selection changes additionally carry
// a preview frame computed with the same aggregator and host-exclusion
// rule as the lock path.
func (h *LiveHandler) Stream(w http.ResponseWriter, r *http.Request) {
	key, err := identity.SessionKey(r.PathValue("code"))
	if err != nil {
		respondServiceError(w, err, "live stream")
		return
	}

	sess, err := h.svc.Get(r.Context(), key)
	if err != nil {
		respondServiceError(w, err, "live stream")
		return
	}
	isHost := sess.HostID != "" && r.URL.Query().Get("host_key") == sess.HostID
	hostID := sess.HostID

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		slog.Warn("websocket upgrade failed", "session_key", key, "error", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// Snapshots supersede each other, so dropping a frame under
	// backpressure is safe: the next one carries newer state.
	frames := make(chan models.LiveFrame, 16)
	push := func(f models.LiveFrame) {
		select {
		case frames <- f:
		case <-ctx.Done():
		default:
		}
	}

	cancelSess, err := h.svc.WatchSession(ctx, sess.Key, func(s models.Session) {
		push(models.LiveFrame{Type: models.FrameSession, Session: &s})
	})
	if err != nil {
		slog.Error("session subscription failed", "session_key", key, "error", err)
		return
	}
	defer cancelSess()

	cancelPlayers, err := h.svc.WatchPlayers(ctx, sess.Key, func(players []models.Player) {
		push(models.LiveFrame{Type: models.FramePlayers, Players: players})
	})
	if err != nil {
		slog.Error("players subscription failed", "session_key", key, "error", err)
		return
	}
	defer cancelPlayers()

	cancelSels, err := h.svc.WatchSelections(ctx, sess.Key, func(sels []models.Selection) {
		n := session.VoteCount(hostID, sels)
		push(models.LiveFrame{Type: models.FrameCount, SelectionCount: &n})
		if !isHost {
			return
		}
		snapshot := models.Session{HostID: hostID}
		cfg, meta, err := session.PreviewOf(snapshot, sels, time.Now().UTC())
		if err != nil {
			return
		}
		push(models.LiveFrame{Type: models.FramePreview, Preview: &models.PreviewResponse{
			Config:         cfg,
			Meta:           meta,
			RiskIndex:      specs.RiskIndex(cfg),
			SelectionCount: meta.SelectionCount,
		}})
	})
	if err != nil {
		slog.Error("selections subscription failed", "session_key", key, "error", err)
		return
	}
	defer cancelSels()

	// Reader exists only to notice the peer going away.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				cancel()
				return
			}
		}
	}()

	for {
		select {
		case f := <-frames:
			if err := conn.WriteJSON(f); err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}
