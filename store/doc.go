// Copyright (c) 2026 Alignparty.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package store is the document-store boundary for sessions, players, and
selections.

# Interface

Store provides CRUD over the three record kinds, an atomic transaction
primitive scoped to one session, push-based change subscriptions, and a
server-assigned clock:

	sess, err := st.GetSession(ctx, key)
	err = st.Transact(ctx, key, func(tx store.Tx) error { ... })
	cancel, err := st.SubscribeSession(ctx, key, func(s models.Session) { ... })

Sessions are keyed by the lower-cased join code. The join_code field is
a display cache; FindSessionByJoinCode is the query fallback when a key
lookup misses.

# Backends

RedisStore (default) keeps each record as a JSON document, runs
transactions as WATCH/MULTI/EXEC with a bounded retry loop over the
session document and its selections hash, and notifies subscribers over
pub/sub.

PostgresStore keeps one row per record, serializes transactions with
SELECT ... FOR UPDATE on the session row, and notifies subscribers via
LISTEN/NOTIFY (delivered on commit).

Both backends guarantee that of two concurrent transactions on one
session, at most one commits against stale reads. That property carries
the lock operation's at-most-once semantics.

# Errors

	ErrNotFound - no record under the given key
	ErrExists   - session key already taken at create
	ErrConflict - optimistic transaction retries exhausted
*/
package store
