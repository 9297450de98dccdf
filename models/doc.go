// Copyright (c) 2026 Alignparty.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package models defines request, response, and domain types for the API.

# Request Types

Types for parsing incoming JSON:

  - JoinSessionRequest: display_name (optional)
  - SubmitSelectionRequest: specs (a full specs.Config)
  - LockSessionRequest: override (optional host-edited specs.Config)

# Response Types

Types for JSON responses:

  - CreateSessionResponse: session_key, join_code, host_key
  - JoinSessionResponse: participant_id
  - SubmitSelectionResponse: message
  - SelectionCountResponse: selection_count
  - LockSessionResponse: locked_at, final_config, final_meta
  - ResultResponse: session, final_config, final_meta, player_count
  - PreviewResponse: config, meta, risk_index, selection_count
  - LiveFrame: typed frames pushed over the live WebSocket
  - ErrorResponse: error, message

# Domain Types

Internal data structures:

  - Session: session metadata, lifecycle state, and (once locked) the
    final configuration and its provenance metadata
  - Player: a participant's presence record within one session
  - Selection: one participant's current proposed configuration

# Constants

Status values (one-way transitions):

	StatusLobby  = "lobby"
	StatusLocked = "locked"
	StatusEnded  = "ended"
*/
package models
