// Copyright (c) 2026 Alignparty.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/lib/pq"

	"github.com/alignparty/specvote/models"
	"github.com/alignparty/specvote/specs"
)

// notifyChannel is the single LISTEN/NOTIFY channel; payloads carry
// "kind:sessionKey" and fan out to matching subscribers in-process.
const notifyChannel = "specvote_changes"

// listenStartTimeout bounds how long a subscriber waits for the shared
// LISTEN connection to come up before reporting failure.
const listenStartTimeout = 5 * time.Second

// PostgresStore implements Store on PostgreSQL: one row per record,
// SELECT ... FOR UPDATE transactions on the session row, and
// LISTEN/NOTIFY change notifications.
type PostgresStore struct {
	db      *sql.DB
	connStr string

	mu       sync.Mutex
	listener *pq.Listener
	subs     map[string]map[int]func(context.Context)
	nextID   int
}

// NewPostgresStore connects, verifies the connection, and creates the
// schema. Safe to call against an initialized database.
func NewPostgresStore(connStr string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &PostgresStore{
		db:      db,
		connStr: connStr,
		subs:    make(map[string]map[int]func(context.Context)),
	}, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS session (
    key TEXT PRIMARY KEY,
    join_code TEXT NOT NULL UNIQUE,
    status TEXT NOT NULL DEFAULT 'lobby' CHECK (status IN ('lobby', 'locked', 'ended')),
    host_id TEXT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL,
    locked_at TIMESTAMPTZ,
    ended_at TIMESTAMPTZ,
    final_config JSONB,
    final_meta JSONB
);

CREATE INDEX IF NOT EXISTS idx_session_join_code ON session(join_code);

CREATE TABLE IF NOT EXISTS player (
    session_key TEXT NOT NULL REFERENCES session(key) ON DELETE CASCADE,
    participant_id TEXT NOT NULL,
    display_name TEXT,
    joined_at TIMESTAMPTZ NOT NULL,
    last_seen_at TIMESTAMPTZ NOT NULL,
    PRIMARY KEY (session_key, participant_id)
);

CREATE TABLE IF NOT EXISTS selection (
    session_key TEXT NOT NULL REFERENCES session(key) ON DELETE CASCADE,
    participant_id TEXT NOT NULL,
    specs JSONB NOT NULL,
    submitted_at TIMESTAMPTZ NOT NULL,
    PRIMARY KEY (session_key, participant_id)
);
`

const sessionColumns = `key, join_code, status, host_id, created_at, locked_at, ended_at, final_config, final_meta`

func scanSession(row *sql.Row) (models.Session, error) {
	var (
		sess       models.Session
		lockedAt   sql.NullTime
		endedAt    sql.NullTime
		configJSON []byte
		metaJSON   []byte
	)
	err := row.Scan(&sess.Key, &sess.JoinCode, &sess.Status, &sess.HostID,
		&sess.CreatedAt, &lockedAt, &endedAt, &configJSON, &metaJSON)
	if err == sql.ErrNoRows {
		return models.Session{}, ErrNotFound
	}
	if err != nil {
		return models.Session{}, fmt.Errorf("scan session: %w", err)
	}
	if lockedAt.Valid {
		sess.LockedAt = &lockedAt.Time
	}
	if endedAt.Valid {
		sess.EndedAt = &endedAt.Time
	}
	if configJSON != nil {
		var cfg specs.Config
		if err := json.Unmarshal(configJSON, &cfg); err != nil {
			return models.Session{}, fmt.Errorf("unmarshal final config: %w", err)
		}
		sess.FinalConfig = &cfg
	}
	if metaJSON != nil {
		var meta specs.Meta
		if err := json.Unmarshal(metaJSON, &meta); err != nil {
			return models.Session{}, fmt.Errorf("unmarshal final meta: %w", err)
		}
		sess.FinalMeta = &meta
	}
	return sess, nil
}

func (s *PostgresStore) CreateSession(ctx context.Context, sess models.Session) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO session (key, join_code, status, host_id, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, sess.Key, sess.JoinCode, sess.Status, sess.HostID, sess.CreatedAt)
	if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
		return ErrExists
	}
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	s.notify(ctx, s.db, "session", sess.Key)
	return nil
}

func (s *PostgresStore) GetSession(ctx context.Context, key string) (models.Session, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM session WHERE key = $1`, key)
	return scanSession(row)
}

func (s *PostgresStore) FindSessionByJoinCode(ctx context.Context, code string) (models.Session, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM session WHERE lower(join_code) = lower($1)`, code)
	return scanSession(row)
}

func (s *PostgresStore) UpsertPlayer(ctx context.Context, key string, p models.Player) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO player (session_key, participant_id, display_name, joined_at, last_seen_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (session_key, participant_id) DO UPDATE
		SET display_name = EXCLUDED.display_name,
		    joined_at = EXCLUDED.joined_at,
		    last_seen_at = EXCLUDED.last_seen_at
	`, key, p.ParticipantID, p.DisplayName, p.JoinedAt, p.LastSeenAt)
	if err != nil {
		return fmt.Errorf("upsert player: %w", err)
	}
	s.notify(ctx, s.db, "players", key)
	return nil
}

func (s *PostgresStore) GetPlayer(ctx context.Context, key, participantID string) (models.Player, error) {
	var p models.Player
	err := s.db.QueryRowContext(ctx, `
		SELECT participant_id, COALESCE(display_name, ''), joined_at, last_seen_at
		FROM player WHERE session_key = $1 AND participant_id = $2
	`, key, participantID).Scan(&p.ParticipantID, &p.DisplayName, &p.JoinedAt, &p.LastSeenAt)
	if err == sql.ErrNoRows {
		return models.Player{}, ErrNotFound
	}
	if err != nil {
		return models.Player{}, fmt.Errorf("get player: %w", err)
	}
	return p, nil
}

func (s *PostgresStore) ListPlayers(ctx context.Context, key string) ([]models.Player, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT participant_id, COALESCE(display_name, ''), joined_at, last_seen_at
		FROM player WHERE session_key = $1 ORDER BY joined_at
	`, key)
	if err != nil {
		return nil, fmt.Errorf("list players: %w", err)
	}
	defer rows.Close()

	players := []models.Player{}
	for rows.Next() {
		var p models.Player
		if err := rows.Scan(&p.ParticipantID, &p.DisplayName, &p.JoinedAt, &p.LastSeenAt); err != nil {
			return nil, fmt.Errorf("scan player: %w", err)
		}
		players = append(players, p)
	}
	return players, rows.Err()
}

func (s *PostgresStore) GetSelection(ctx context.Context, key, participantID string) (models.Selection, error) {
	var (
		sel       models.Selection
		specsJSON []byte
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT participant_id, specs, submitted_at
		FROM selection WHERE session_key = $1 AND participant_id = $2
	`, key, participantID).Scan(&sel.ParticipantID, &specsJSON, &sel.SubmittedAt)
	if err == sql.ErrNoRows {
		return models.Selection{}, ErrNotFound
	}
	if err != nil {
		return models.Selection{}, fmt.Errorf("get selection: %w", err)
	}
	if err := json.Unmarshal(specsJSON, &sel.Specs); err != nil {
		return models.Selection{}, fmt.Errorf("unmarshal specs: %w", err)
	}
	return sel, nil
}

func (s *PostgresStore) ListSelections(ctx context.Context, key string) ([]models.Selection, error) {
	return listSelections(ctx, s.db, key)
}

func listSelections(ctx context.Context, q *sql.DB, key string) ([]models.Selection, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT participant_id, specs, submitted_at
		FROM selection WHERE session_key = $1 ORDER BY participant_id
	`, key)
	if err != nil {
		return nil, fmt.Errorf("list selections: %w", err)
	}
	defer rows.Close()
	return scanSelections(rows)
}

func scanSelections(rows *sql.Rows) ([]models.Selection, error) {
	sels := []models.Selection{}
	for rows.Next() {
		var (
			sel       models.Selection
			specsJSON []byte
		)
		if err := rows.Scan(&sel.ParticipantID, &specsJSON, &sel.SubmittedAt); err != nil {
			return nil, fmt.Errorf("scan selection: %w", err)
		}
		if err := json.Unmarshal(specsJSON, &sel.Specs); err != nil {
			return nil, fmt.Errorf("unmarshal specs: %w", err)
		}
		sels = append(sels, sel)
	}
	return sels, rows.Err()
}

// pgTx executes reads and writes inside one SQL transaction. The first
// session read takes a row lock, serializing concurrent Transact calls
// on the same session.
type pgTx struct {
	ctx context.Context
	s   *PostgresStore
	tx  *sql.Tx
	key string
}

func (t *pgTx) Session() (models.Session, error) {
	row := t.tx.QueryRowContext(t.ctx, `SELECT `+sessionColumns+` FROM session WHERE key = $1 FOR UPDATE`, t.key)
	return scanSession(row)
}

func (t *pgTx) Selections() ([]models.Selection, error) {
	rows, err := t.tx.QueryContext(t.ctx, `
		SELECT participant_id, specs, submitted_at
		FROM selection WHERE session_key = $1 ORDER BY participant_id
	`, t.key)
	if err != nil {
		return nil, fmt.Errorf("tx list selections: %w", err)
	}
	defer rows.Close()
	return scanSelections(rows)
}

func (t *pgTx) SetSession(sess models.Session) error {
	configJSON, metaJSON, err := marshalFinal(sess)
	if err != nil {
		return err
	}
	_, err = t.tx.ExecContext(t.ctx, `
		UPDATE session
		SET status = $1, locked_at = $2, ended_at = $3, final_config = $4, final_meta = $5
		WHERE key = $6
	`, sess.Status, sess.LockedAt, sess.EndedAt, configJSON, metaJSON, sess.Key)
	if err != nil {
		return fmt.Errorf("tx set session: %w", err)
	}
	t.s.notify(t.ctx, t.tx, "session", t.key)
	return nil
}

func (t *pgTx) PutSelection(sel models.Selection) error {
	specsJSON, err := json.Marshal(sel.Specs)
	if err != nil {
		return fmt.Errorf("marshal specs: %w", err)
	}
	_, err = t.tx.ExecContext(t.ctx, `
		INSERT INTO selection (session_key, participant_id, specs, submitted_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (session_key, participant_id) DO UPDATE
		SET specs = EXCLUDED.specs, submitted_at = EXCLUDED.submitted_at
	`, t.key, sel.ParticipantID, specsJSON, sel.SubmittedAt)
	if err != nil {
		return fmt.Errorf("tx put selection: %w", err)
	}
	t.s.notify(t.ctx, t.tx, "selections", t.key)
	return nil
}

func marshalFinal(sess models.Session) (configJSON, metaJSON []byte, err error) {
	if sess.FinalConfig != nil {
		if configJSON, err = json.Marshal(sess.FinalConfig); err != nil {
			return nil, nil, fmt.Errorf("marshal final config: %w", err)
		}
	}
	if sess.FinalMeta != nil {
		if metaJSON, err = json.Marshal(sess.FinalMeta); err != nil {
			return nil, nil, fmt.Errorf("marshal final meta: %w", err)
		}
	}
	return configJSON, metaJSON, nil
}

func (s *PostgresStore) Transact(ctx context.Context, key string, fn func(Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&pgTx{ctx: ctx, s: s, tx: tx, key: key}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// notify emits a change event. Within a transaction, delivery waits for
// commit, so subscribers never observe uncommitted state.
func (s *PostgresStore) notify(ctx context.Context, q execer, kind, key string) {
	_, _ = q.ExecContext(ctx, `SELECT pg_notify($1, $2)`, notifyChannel, kind+":"+key)
}

func (s *PostgresStore) SubscribeSession(ctx context.Context, key string, fn func(models.Session)) (CancelFunc, error) {
	return s.addSub(ctx, "session", key, func(ctx context.Context) {
		if sess, err := s.GetSession(ctx, key); err == nil {
			fn(sess)
		}
	})
}

func (s *PostgresStore) SubscribePlayers(ctx context.Context, key string, fn func([]models.Player)) (CancelFunc, error) {
	return s.addSub(ctx, "players", key, func(ctx context.Context) {
		if players, err := s.ListPlayers(ctx, key); err == nil {
			fn(players)
		}
	})
}

func (s *PostgresStore) SubscribeSelections(ctx context.Context, key string, fn func([]models.Selection)) (CancelFunc, error) {
	return s.addSub(ctx, "selections", key, func(ctx context.Context) {
		if sels, err := s.ListSelections(ctx, key); err == nil {
			fn(sels)
		}
	})
}

func (s *PostgresStore) addSub(ctx context.Context, kind, key string, emit func(context.Context)) (CancelFunc, error) {
	if err := s.ensureListener(ctx); err != nil {
		return nil, err
	}

	topic := kind + ":" + key
	s.mu.Lock()
	if s.subs[topic] == nil {
		s.subs[topic] = make(map[int]func(context.Context))
	}
	id := s.nextID
	s.nextID++
	s.subs[topic][id] = emit
	s.mu.Unlock()

	emit(ctx)

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs[topic], id)
			s.mu.Unlock()
		})
	}, nil
}

// ensureListener starts the shared LISTEN connection on first use. The
// wait for the initial connection is bounded; a failed start is
// reported as an error and left retryable, so a later subscriber can
// succeed once the database is reachable.
func (s *PostgresStore) ensureListener(ctx context.Context) error {
	s.mu.Lock()
	if s.listener != nil {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	// The event callback reports the first connection outcome; pq keeps
	// retrying in the background otherwise, which would park the caller.
	connected := make(chan error, 1)
	l := pq.NewListener(s.connStr, time.Second, 30*time.Second,
		func(ev pq.ListenerEventType, err error) {
			switch ev {
			case pq.ListenerEventConnected:
				select {
				case connected <- nil:
				default:
				}
			case pq.ListenerEventConnectionAttemptFailed:
				select {
				case connected <- err:
				default:
				}
			}
		})

	select {
	case err := <-connected:
		if err != nil {
			l.Close()
			return fmt.Errorf("connect listener: %w", err)
		}
	case <-time.After(listenStartTimeout):
		l.Close()
		return fmt.Errorf("connect listener: no connection within %s", listenStartTimeout)
	case <-ctx.Done():
		l.Close()
		return ctx.Err()
	}

	if err := l.Listen(notifyChannel); err != nil {
		l.Close()
		return fmt.Errorf("listen %s: %w", notifyChannel, err)
	}

	s.mu.Lock()
	if s.listener != nil {
		// Another subscriber won the race; keep theirs.
		s.mu.Unlock()
		l.Close()
		return nil
	}
	s.listener = l
	s.mu.Unlock()

	go s.dispatch(l)
	return nil
}

func (s *PostgresStore) dispatch(l *pq.Listener) {
	for n := range l.Notify {
		if n == nil {
			continue // reconnect marker
		}
		s.mu.Lock()
		emits := make([]func(context.Context), 0, len(s.subs[n.Extra]))
		for _, emit := range s.subs[n.Extra] {
			emits = append(emits, emit)
		}
		s.mu.Unlock()
		for _, emit := range emits {
			emit(context.Background())
		}
	}
}

func (s *PostgresStore) Now(ctx context.Context) (time.Time, error) {
	var t time.Time
	if err := s.db.QueryRowContext(ctx, `SELECT now()`).Scan(&t); err != nil {
		return time.Time{}, fmt.Errorf("server time: %w", err)
	}
	return t.UTC(), nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *PostgresStore) Close() error {
	s.mu.Lock()
	if s.listener != nil {
		s.listener.Close()
		s.listener = nil
	}
	s.mu.Unlock()
	return s.db.Close()
}
