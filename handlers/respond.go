// Copyright (c) 2026 Alignparty.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/alignparty/specvote/identity"
	"github.com/alignparty/specvote/middleware"
	"github.com/alignparty/specvote/session"
	"github.com/alignparty/specvote/specs"
)

// respondServiceError maps the session layer's typed errors onto HTTP
// statuses. Anything unrecognized is a store failure and surfaces as a
// 500 without leaking internals.
func respondServiceError(w http.ResponseWriter, err error, op string) {
	var verr *specs.ValidationError
	switch {
	case errors.Is(err, session.ErrNotFound):
		middleware.ErrorResponse(w, http.StatusNotFound, "Session not found")
	case errors.Is(err, session.ErrInvalidState):
		middleware.ErrorResponse(w, http.StatusConflict, "Operation not valid for the session's current status")
	case errors.Is(err, session.ErrUnauthorized):
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Only the host can do that")
	case errors.As(err, &verr):
		middleware.ErrorResponse(w, http.StatusBadRequest, verr.Error())
	case errors.Is(err, identity.ErrBadJoinCode):
		middleware.ErrorResponse(w, http.StatusBadRequest, "Malformed join code")
	default:
		slog.Error("store operation failed", "op", op, "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Store error")
	}
}
