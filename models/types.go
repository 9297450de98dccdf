package models

import (
	"time"

	"github.com/alignparty/specvote/specs"
)

// Session status constants. Transitions are one-way:
// lobby -> locked -> ended.
const (
	StatusLobby  = "lobby"
	StatusLocked = "locked"
	StatusEnded  = "ended"
)

// Request types

type JoinSessionRequest struct {
	DisplayName string `json:"display_name,omitempty"`
}

type SubmitSelectionRequest struct {
	Specs specs.Config `json:"specs"`
}

// The lock body is optional; when Override is present the host's edit
// replaces the aggregate verbatim.
type LockSessionRequest struct {
	Override *specs.Config `json:"override,omitempty"`
}

// Response types

type CreateSessionResponse struct {
	SessionKey string `json:"session_key"`
	JoinCode   string `json:"join_code"`
	HostKey    string `json:"host_key"`
}

type JoinSessionResponse struct {
	ParticipantID string `json:"participant_id"`
}

type SubmitSelectionResponse struct {
	Message string `json:"message"`
}

type SelectionCountResponse struct {
	SelectionCount int `json:"selection_count"`
}

type LockSessionResponse struct {
	LockedAt    time.Time    `json:"locked_at"`
	FinalConfig specs.Config `json:"final_config"`
	FinalMeta   specs.Meta   `json:"final_meta"`
}

type ResultResponse struct {
	Session     Session      `json:"session"`
	FinalConfig specs.Config `json:"final_config"`
	FinalMeta   specs.Meta   `json:"final_meta"`
	PlayerCount int          `json:"player_count"`
}

type PreviewResponse struct {
	Config         specs.Config `json:"config"`
	Meta           specs.Meta   `json:"meta"`
	RiskIndex      float64      `json:"risk_index"`
	SelectionCount int          `json:"selection_count"`
}

// Live stream frames (GET /sessions/{code}/live)

const (
	FrameSession = "session"
	FramePlayers = "players"
	FrameCount   = "selection_count"
	FramePreview = "preview"
)

type LiveFrame struct {
	Type           string           `json:"type"`
	Session        *Session         `json:"session,omitempty"`
	Players        []Player         `json:"players,omitempty"`
	SelectionCount *int             `json:"selection_count,omitempty"`
	Preview        *PreviewResponse `json:"preview,omitempty"`
}

// Domain types

type Session struct {
	Key         string        `json:"key"`
	JoinCode    string        `json:"join_code"`
	Status      string        `json:"status"`
	HostID      string        `json:"-"` // never exposed over the wire
	CreatedAt   time.Time     `json:"created_at"`
	LockedAt    *time.Time    `json:"locked_at,omitempty"`
	EndedAt     *time.Time    `json:"ended_at,omitempty"`
	FinalConfig *specs.Config `json:"final_config,omitempty"`
	FinalMeta   *specs.Meta   `json:"final_meta,omitempty"`
}

type Player struct {
	ParticipantID string    `json:"participant_id"`
	DisplayName   string    `json:"display_name,omitempty"`
	JoinedAt      time.Time `json:"joined_at"`
	LastSeenAt    time.Time `json:"last_seen_at"`
}

type Selection struct {
	ParticipantID string       `json:"participant_id"`
	Specs         specs.Config `json:"specs"`
	SubmittedAt   time.Time    `json:"submitted_at"`
}

// Error response

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
