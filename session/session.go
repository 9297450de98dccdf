// Copyright (c) 2026 Alignparty.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/alignparty/specvote/identity"
	"github.com/alignparty/specvote/models"
	"github.com/alignparty/specvote/specs"
	"github.com/alignparty/specvote/store"
)

var (
	ErrNotFound     = errors.New("session not found")
	ErrInvalidState = errors.New("operation not valid for the session's current status")
	ErrUnauthorized = errors.New("only the session host may perform this operation")
)

// joinCodeRetries bounds the collision retry loop at session creation.
const joinCodeRetries = 10

// Service is the session state machine. All caller identity arrives as
// explicit identity.Identity values; the service holds no ambient state
// beyond its store.
type Service struct {
	store store.Store
}

func NewService(st store.Store) *Service {
	return &Service{store: st}
}

// Create generates a fresh join code, retrying on the rare collision
// with an existing session, and persists a lobby session owned by host.
func (s *Service) Create(ctx context.Context, host identity.Identity) (models.Session, error) {
	now, err := s.store.Now(ctx)
	if err != nil {
		return models.Session{}, err
	}

	for attempt := 0; attempt < joinCodeRetries; attempt++ {
		code, err := identity.NewJoinCode()
		if err != nil {
			return models.Session{}, fmt.Errorf("generate join code: %w", err)
		}
		key, err := identity.SessionKey(code)
		if err != nil {
			return models.Session{}, err
		}

		sess := models.Session{
			Key:       key,
			JoinCode:  code,
			Status:    models.StatusLobby,
			HostID:    host.ParticipantID,
			CreatedAt: now,
		}
		err = s.store.CreateSession(ctx, sess)
		if errors.Is(err, store.ErrExists) {
			continue
		}
		if err != nil {
			return models.Session{}, err
		}
		return sess, nil
	}
	return models.Session{}, fmt.Errorf("join code space exhausted after %d attempts", joinCodeRetries)
}

// Get resolves a session by key, falling back to the join-code query for
// records whose key and code field have diverged.
func (s *Service) Get(ctx context.Context, key string) (models.Session, error) {
	sess, err := s.store.GetSession(ctx, key)
	if errors.Is(err, store.ErrNotFound) {
		sess, err = s.store.FindSessionByJoinCode(ctx, key)
	}
	return sess, mapErr(err)
}

// Join upserts the caller's presence record. Rejoining refreshes
// timestamps instead of duplicating; the display name is optional and a
// rejoin without one keeps the previous name. Ended sessions reject
// joins.
func (s *Service) Join(ctx context.Context, key string, p identity.Identity) (models.Player, error) {
	sess, err := s.Get(ctx, key)
	if err != nil {
		return models.Player{}, err
	}
	if sess.Status == models.StatusEnded {
		return models.Player{}, ErrInvalidState
	}

	now, err := s.store.Now(ctx)
	if err != nil {
		return models.Player{}, err
	}

	player, err := s.store.GetPlayer(ctx, sess.Key, p.ParticipantID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		player = models.Player{
			ParticipantID: p.ParticipantID,
			DisplayName:   p.DisplayName,
			JoinedAt:      now,
			LastSeenAt:    now,
		}
	case err != nil:
		return models.Player{}, err
	default:
		if p.DisplayName != "" {
			player.DisplayName = p.DisplayName
		}
		player.LastSeenAt = now
	}

	if err := s.store.UpsertPlayer(ctx, sess.Key, player); err != nil {
		return models.Player{}, err
	}
	return player, nil
}

// Heartbeat refreshes the caller's last-seen timestamp.
func (s *Service) Heartbeat(ctx context.Context, key string, p identity.Identity) error {
	sess, err := s.Get(ctx, key)
	if err != nil {
		return err
	}
	player, err := s.store.GetPlayer(ctx, sess.Key, p.ParticipantID)
	if errors.Is(err, store.ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	now, err := s.store.Now(ctx)
	if err != nil {
		return err
	}
	player.LastSeenAt = now
	return s.store.UpsertPlayer(ctx, sess.Key, player)
}

func (s *Service) Players(ctx context.Context, key string) ([]models.Player, error) {
	return s.store.ListPlayers(ctx, key)
}

// SubmitSelection upserts the caller's proposed configuration,
// last-write-wins. The write happens inside a transaction that re-checks
// the session status, so a selection can never land after a lock.
func (s *Service) SubmitSelection(ctx context.Context, key string, p identity.Identity, cfg specs.Config) error {
	if err := specs.Validate(cfg); err != nil {
		return err
	}
	cfg = specs.Clamp(cfg)

	now, err := s.store.Now(ctx)
	if err != nil {
		return err
	}

	return s.store.Transact(ctx, key, func(tx store.Tx) error {
		sess, err := tx.Session()
		if err != nil {
			return mapErr(err)
		}
		if sess.Status != models.StatusLobby {
			return ErrInvalidState
		}
		return tx.PutSelection(models.Selection{
			ParticipantID: p.ParticipantID,
			Specs:         cfg,
			SubmittedAt:   now,
		})
	})
}

func (s *Service) Selection(ctx context.Context, key string, p identity.Identity) (models.Selection, error) {
	sel, err := s.store.GetSelection(ctx, key, p.ParticipantID)
	return sel, mapErr(err)
}

// SelectionCount reports how many votes are on the table. The host's
// own selection is excluded, so the number lines up with the
// SelectionCount the lock and preview paths record in Meta.
func (s *Service) SelectionCount(ctx context.Context, key string) (int, error) {
	sess, err := s.store.GetSession(ctx, key)
	if err != nil {
		return 0, mapErr(err)
	}
	sels, err := s.store.ListSelections(ctx, key)
	if err != nil {
		return 0, err
	}
	return VoteCount(sess.HostID, sels), nil
}

// Lock freezes the session configuration. The whole read-decide-write
// sequence runs in one store transaction: of two concurrent lock
// attempts exactly one succeeds, and a failed attempt leaves the stored
// session untouched.
//
// With an override the host's edit becomes the final config verbatim
// (method "host/1"); otherwise the current non-host selections are
// aggregated (method "mhv/1"). The selection count is recorded either
// way for audit.
func (s *Service) Lock(ctx context.Context, key string, host identity.Identity, override *specs.Config) (models.Session, error) {
	if override != nil {
		if err := specs.Validate(*override); err != nil {
			return models.Session{}, err
		}
	}

	now, err := s.store.Now(ctx)
	if err != nil {
		return models.Session{}, err
	}

	var locked models.Session
	err = s.store.Transact(ctx, key, func(tx store.Tx) error {
		sess, err := tx.Session()
		if err != nil {
			return mapErr(err)
		}
		if sess.Status != models.StatusLobby {
			return ErrInvalidState
		}
		if sess.HostID != host.ParticipantID {
			return ErrUnauthorized
		}

		sels, err := tx.Selections()
		if err != nil {
			return err
		}
		votes := voterConfigs(sess.HostID, sels)

		var (
			final specs.Config
			meta  specs.Meta
		)
		if override != nil {
			final = specs.Clamp(*override)
			meta = specs.Meta{
				MethodVersion:  specs.MethodHostEdited,
				SelectionCount: len(votes),
				ComputedAt:     now,
				ConfigID:       specs.HashConfig(final),
			}
		} else {
			final, meta, err = specs.ComputeFinalConfig(votes, now)
			if err != nil {
				return err
			}
		}

		sess.Status = models.StatusLocked
		sess.LockedAt = &now
		sess.FinalConfig = &final
		sess.FinalMeta = &meta
		locked = sess
		return tx.SetSession(sess)
	})
	if err != nil {
		return models.Session{}, err
	}
	return locked, nil
}

// End transitions a locked session to ended. Host only; lobby sessions
// cannot end without locking first.
func (s *Service) End(ctx context.Context, key string, host identity.Identity) (models.Session, error) {
	now, err := s.store.Now(ctx)
	if err != nil {
		return models.Session{}, err
	}

	var ended models.Session
	err = s.store.Transact(ctx, key, func(tx store.Tx) error {
		sess, err := tx.Session()
		if err != nil {
			return mapErr(err)
		}
		if sess.Status != models.StatusLocked {
			return ErrInvalidState
		}
		if sess.HostID != host.ParticipantID {
			return ErrUnauthorized
		}
		sess.Status = models.StatusEnded
		sess.EndedAt = &now
		ended = sess
		return tx.SetSession(sess)
	})
	if err != nil {
		return models.Session{}, err
	}
	return ended, nil
}

// Preview aggregates the current selections without persisting anything.
// It runs the same aggregator and the same host-exclusion rule as Lock,
// so a host-side preview always matches what a lock would produce from
// the same selections.
func (s *Service) Preview(ctx context.Context, key string) (specs.Config, specs.Meta, error) {
	sess, err := s.Get(ctx, key)
	if err != nil {
		return specs.Config{}, specs.Meta{}, err
	}
	sels, err := s.store.ListSelections(ctx, sess.Key)
	if err != nil {
		return specs.Config{}, specs.Meta{}, err
	}
	now, err := s.store.Now(ctx)
	if err != nil {
		return specs.Config{}, specs.Meta{}, err
	}
	return PreviewOf(sess, sels, now)
}

// PreviewOf is the snapshot form of Preview, for callers that already
// hold a session and its selections (e.g. a live listener).
func PreviewOf(sess models.Session, sels []models.Selection, now time.Time) (specs.Config, specs.Meta, error) {
	return specs.ComputeFinalConfig(voterConfigs(sess.HostID, sels), now)
}

// Listeners are pass-through wrappers over the store's subscriptions;
// they carry no aggregation logic.

func (s *Service) WatchSession(ctx context.Context, key string, fn func(models.Session)) (store.CancelFunc, error) {
	return s.store.SubscribeSession(ctx, key, fn)
}

func (s *Service) WatchPlayers(ctx context.Context, key string, fn func([]models.Player)) (store.CancelFunc, error) {
	return s.store.SubscribePlayers(ctx, key, fn)
}

func (s *Service) WatchSelections(ctx context.Context, key string, fn func([]models.Selection)) (store.CancelFunc, error) {
	return s.store.SubscribeSelections(ctx, key, fn)
}

// isHostRecord is the single place that decides whether a record under a
// session belongs to its host. The host curates the aggregate and never
// votes; every read path applies this same predicate.
func isHostRecord(hostID, participantID string) bool {
	return hostID != "" && participantID == hostID
}

// VoteCount counts the selections that carry aggregation weight, which
// is every selection except the host's own.
func VoteCount(hostID string, sels []models.Selection) int {
	n := 0
	for _, sel := range sels {
		if !isHostRecord(hostID, sel.ParticipantID) {
			n++
		}
	}
	return n
}

func voterConfigs(hostID string, sels []models.Selection) []specs.Config {
	votes := make([]specs.Config, 0, len(sels))
	for _, sel := range sels {
		if isHostRecord(hostID, sel.ParticipantID) {
			continue
		}
		votes = append(votes, sel.Specs)
	}
	return votes
}

func mapErr(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return ErrNotFound
	}
	return err
}
