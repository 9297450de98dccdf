// Copyright (c) 2026 Alignparty.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package identity

import (
	"crypto/rand"
	"errors"
	"strings"

	"github.com/google/uuid"
)

// Join codes avoid lookalike characters (0/O, 1/I/L) so they survive
// being read aloud or copied from a screen.
const (
	JoinCodeAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"
	JoinCodeLength   = 6
)

var ErrBadJoinCode = errors.New("malformed join code")

// Identity is a caller's opaque, device-persisted identity, passed
// explicitly into the session layer. A session's host carries a separate
// Identity from any participant role it may also hold.
type Identity struct {
	ParticipantID string
	DisplayName   string
}

// NewID creates a fresh opaque identifier for a participant or host.
func NewID() string {
	return uuid.NewString()
}

// NewJoinCode creates a random human-shareable session code.
func NewJoinCode() (string, error) {
	b := make([]byte, JoinCodeLength)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	for i := range b {
		b[i] = JoinCodeAlphabet[int(b[i])%len(JoinCodeAlphabet)]
	}
	return string(b), nil
}

// SessionKey normalizes a join code into the storage key it addresses.
// The lower-cased code is the authoritative key; the stored joinCode
// field is display data.
func SessionKey(code string) (string, error) {
	code = strings.TrimSpace(code)
	if len(code) != JoinCodeLength {
		return "", ErrBadJoinCode
	}
	for _, r := range strings.ToUpper(code) {
		if !strings.ContainsRune(JoinCodeAlphabet, r) {
			return "", ErrBadJoinCode
		}
	}
	return strings.ToLower(code), nil
}
