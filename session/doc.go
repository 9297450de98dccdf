// Copyright (c) 2026 Alignparty.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package session coordinates a group of participants converging on one
locked agent configuration.

# Lifecycle

A session moves one way through lobby -> locked -> ended. Participants
join and submit selections while the session is in lobby; the host locks
it exactly once, freezing either the aggregate of the non-host
selections or a host-edited override; a locked session may later be
ended.

	svc := session.NewService(st)
	sess, err := svc.Create(ctx, host)
	player, err := svc.Join(ctx, sess.Key, participant)
	err = svc.SubmitSelection(ctx, sess.Key, participant, cfg)
	locked, err := svc.Lock(ctx, sess.Key, host, nil)

# Locking

Lock runs its whole read-decide-write sequence inside one store
transaction. Two racing lock attempts cannot both succeed, and a losing
attempt (wrong host, already locked, store conflict) leaves the stored
session byte-for-byte unchanged.

# Host exclusion

The host is a curator, not a voter: a selection stored under the
session's host id is never aggregated and never counted. The lock path,
the preview path, and every exposed tally share the one isHostRecord
predicate (VoteCount for the tallies).

# Errors

	ErrNotFound     - no session under the given key or code
	ErrInvalidState - operation not valid for the current status
	ErrUnauthorized - host-only operation attempted by a non-host

specs.ValidationError passes through from configuration validation, and
store failures propagate wrapped, never swallowed. The only internal
retry is the bounded join-code collision loop in Create.
*/
package session
