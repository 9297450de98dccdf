// Copyright (c) 2026 Alignparty.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package store

import (
	"context"
	"errors"
	"time"

	"github.com/alignparty/specvote/models"
)

var (
	ErrNotFound = errors.New("record not found")
	ErrExists   = errors.New("session key already taken")
	ErrConflict = errors.New("transaction conflict, retries exhausted")
)

// CancelFunc stops a subscription. Safe to call more than once; never
// affects other subscribers or stored state.
type CancelFunc func()

// Tx is the handle passed to a Transact body. Reads observe a state that
// cannot be changed by a concurrent Transact on the same session before
// this transaction commits; writes are applied atomically on commit, or
// not at all.
type Tx interface {
	Session() (models.Session, error)
	Selections() ([]models.Selection, error)
	SetSession(models.Session) error
	PutSelection(models.Selection) error
}

// Store is the document-store boundary: durable per-key records for
// sessions, players, and selections, an atomic transaction primitive
// scoped to one session, and push-based change subscriptions.
//
// Sessions are addressed by key (the lower-cased join code); the stored
// join_code field is display data, with FindSessionByJoinCode as the
// query fallback for records whose key and field have diverged. Players
// and selections live in per-session sub-keyspaces keyed by participant
// id.
type Store interface {
	CreateSession(ctx context.Context, s models.Session) error
	GetSession(ctx context.Context, key string) (models.Session, error)
	FindSessionByJoinCode(ctx context.Context, code string) (models.Session, error)

	UpsertPlayer(ctx context.Context, key string, p models.Player) error
	GetPlayer(ctx context.Context, key, participantID string) (models.Player, error)
	ListPlayers(ctx context.Context, key string) ([]models.Player, error)

	GetSelection(ctx context.Context, key, participantID string) (models.Selection, error)
	ListSelections(ctx context.Context, key string) ([]models.Selection, error)

	// Transact runs fn against the session identified by key. The whole
	// read-decide-write sequence is isolated: of two concurrent
	// transactions on the same session, at most one commits writes that
	// were decided against stale reads; the other either retries or
	// fails with ErrConflict. An error from fn aborts with no writes and
	// is returned unchanged.
	Transact(ctx context.Context, key string, fn func(Tx) error) error

	// Subscriptions deliver the current state and every subsequent state
	// of the target. Delivery stops after the CancelFunc is called or
	// ctx is done.
	SubscribeSession(ctx context.Context, key string, fn func(models.Session)) (CancelFunc, error)
	SubscribePlayers(ctx context.Context, key string, fn func([]models.Player)) (CancelFunc, error)
	SubscribeSelections(ctx context.Context, key string, fn func([]models.Selection)) (CancelFunc, error)

	// Now returns the store's notion of current time, so client clock
	// skew never corrupts record ordering.
	Now(ctx context.Context) (time.Time, error)

	Ping(ctx context.Context) error
	Close() error
}
