// Copyright (c) 2026 Alignparty.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/alignparty/specvote/models"
)

// maxTxRetries bounds the optimistic WATCH/EXEC retry loop.
const maxTxRetries = 16

// RedisStore implements Store on Redis: JSON documents under per-session
// keys, WATCH/MULTI transactions on the session document, and pub/sub
// change notifications.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore connects to the Redis instance named by a redis:// URL.
func NewRedisStore(redisURL string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return NewRedisStoreWithClient(client), nil
}

// NewRedisStoreWithClient wraps an existing client.
func NewRedisStoreWithClient(client *redis.Client) *RedisStore {
	return &RedisStore{client: client, prefix: "specvote:"}
}

func (s *RedisStore) sessionKey(key string) string    { return s.prefix + "session:" + key }
func (s *RedisStore) playersKey(key string) string    { return s.prefix + "players:" + key }
func (s *RedisStore) selectionsKey(key string) string { return s.prefix + "selections:" + key }
func (s *RedisStore) codeIndexKey(code string) string {
	return s.prefix + "code:" + strings.ToUpper(code)
}
func (s *RedisStore) channel(kind, key string) string {
	return s.prefix + "changed:" + kind + ":" + key
}

// sessionDoc is the stored form of a session. The API model hides the
// host id from JSON; storage must keep it.
type sessionDoc struct {
	models.Session
	HostID string `json:"host_id"`
}

func marshalSession(sess models.Session) ([]byte, error) {
	data, err := json.Marshal(sessionDoc{Session: sess, HostID: sess.HostID})
	if err != nil {
		return nil, fmt.Errorf("marshal session: %w", err)
	}
	return data, nil
}

func unmarshalSession(data []byte) (models.Session, error) {
	var doc sessionDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return models.Session{}, fmt.Errorf("unmarshal session: %w", err)
	}
	sess := doc.Session
	sess.HostID = doc.HostID
	return sess, nil
}

func (s *RedisStore) CreateSession(ctx context.Context, sess models.Session) error {
	data, err := marshalSession(sess)
	if err != nil {
		return err
	}

	ok, err := s.client.SetNX(ctx, s.sessionKey(sess.Key), data, 0).Result()
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	if !ok {
		return ErrExists
	}

	// The code index is a cache over the key; the key stays authoritative.
	if err := s.client.Set(ctx, s.codeIndexKey(sess.JoinCode), sess.Key, 0).Err(); err != nil {
		return fmt.Errorf("index join code: %w", err)
	}
	s.client.Publish(ctx, s.channel("session", sess.Key), sess.Key)
	return nil
}

func (s *RedisStore) GetSession(ctx context.Context, key string) (models.Session, error) {
	data, err := s.client.Get(ctx, s.sessionKey(key)).Result()
	if err == redis.Nil {
		return models.Session{}, ErrNotFound
	}
	if err != nil {
		return models.Session{}, fmt.Errorf("get session: %w", err)
	}
	return unmarshalSession([]byte(data))
}

func (s *RedisStore) FindSessionByJoinCode(ctx context.Context, code string) (models.Session, error) {
	key, err := s.client.Get(ctx, s.codeIndexKey(code)).Result()
	if err == redis.Nil {
		return models.Session{}, ErrNotFound
	}
	if err != nil {
		return models.Session{}, fmt.Errorf("lookup join code: %w", err)
	}
	return s.GetSession(ctx, key)
}

func (s *RedisStore) UpsertPlayer(ctx context.Context, key string, p models.Player) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal player: %w", err)
	}
	if err := s.client.HSet(ctx, s.playersKey(key), p.ParticipantID, data).Err(); err != nil {
		return fmt.Errorf("upsert player: %w", err)
	}
	s.client.Publish(ctx, s.channel("players", key), key)
	return nil
}

func (s *RedisStore) GetPlayer(ctx context.Context, key, participantID string) (models.Player, error) {
	data, err := s.client.HGet(ctx, s.playersKey(key), participantID).Result()
	if err == redis.Nil {
		return models.Player{}, ErrNotFound
	}
	if err != nil {
		return models.Player{}, fmt.Errorf("get player: %w", err)
	}

	var p models.Player
	if err := json.Unmarshal([]byte(data), &p); err != nil {
		return models.Player{}, fmt.Errorf("unmarshal player: %w", err)
	}
	return p, nil
}

func (s *RedisStore) ListPlayers(ctx context.Context, key string) ([]models.Player, error) {
	vals, err := s.client.HVals(ctx, s.playersKey(key)).Result()
	if err != nil {
		return nil, fmt.Errorf("list players: %w", err)
	}
	players := make([]models.Player, 0, len(vals))
	for _, v := range vals {
		var p models.Player
		if err := json.Unmarshal([]byte(v), &p); err != nil {
			return nil, fmt.Errorf("unmarshal player: %w", err)
		}
		players = append(players, p)
	}
	return players, nil
}

func (s *RedisStore) GetSelection(ctx context.Context, key, participantID string) (models.Selection, error) {
	data, err := s.client.HGet(ctx, s.selectionsKey(key), participantID).Result()
	if err == redis.Nil {
		return models.Selection{}, ErrNotFound
	}
	if err != nil {
		return models.Selection{}, fmt.Errorf("get selection: %w", err)
	}

	var sel models.Selection
	if err := json.Unmarshal([]byte(data), &sel); err != nil {
		return models.Selection{}, fmt.Errorf("unmarshal selection: %w", err)
	}
	return sel, nil
}

func (s *RedisStore) ListSelections(ctx context.Context, key string) ([]models.Selection, error) {
	vals, err := s.client.HVals(ctx, s.selectionsKey(key)).Result()
	if err != nil {
		return nil, fmt.Errorf("list selections: %w", err)
	}
	return unmarshalSelections(vals)
}

// redisTx collects writes decided under WATCH and replays them into the
// MULTI pipeline on commit.
type redisTx struct {
	ctx    context.Context
	store  *RedisStore
	tx     *redis.Tx
	key    string
	writes []func(redis.Pipeliner)
}

func (t *redisTx) Session() (models.Session, error) {
	data, err := t.tx.Get(t.ctx, t.store.sessionKey(t.key)).Result()
	if err == redis.Nil {
		return models.Session{}, ErrNotFound
	}
	if err != nil {
		return models.Session{}, fmt.Errorf("tx get session: %w", err)
	}
	return unmarshalSession([]byte(data))
}

func (t *redisTx) Selections() ([]models.Selection, error) {
	vals, err := t.tx.HVals(t.ctx, t.store.selectionsKey(t.key)).Result()
	if err != nil {
		return nil, fmt.Errorf("tx list selections: %w", err)
	}
	return unmarshalSelections(vals)
}

func (t *redisTx) SetSession(sess models.Session) error {
	data, err := marshalSession(sess)
	if err != nil {
		return err
	}
	t.writes = append(t.writes, func(pipe redis.Pipeliner) {
		pipe.Set(t.ctx, t.store.sessionKey(t.key), data, 0)
		pipe.Publish(t.ctx, t.store.channel("session", t.key), t.key)
	})
	return nil
}

func (t *redisTx) PutSelection(sel models.Selection) error {
	data, err := json.Marshal(sel)
	if err != nil {
		return fmt.Errorf("marshal selection: %w", err)
	}
	t.writes = append(t.writes, func(pipe redis.Pipeliner) {
		pipe.HSet(t.ctx, t.store.selectionsKey(t.key), sel.ParticipantID, data)
		pipe.Publish(t.ctx, t.store.channel("selections", t.key), t.key)
	})
	return nil
}

func (s *RedisStore) Transact(ctx context.Context, key string, fn func(Tx) error) error {
	txf := func(rtx *redis.Tx) error {
		t := &redisTx{ctx: ctx, store: s, tx: rtx, key: key}
		if err := fn(t); err != nil {
			return err
		}
		if len(t.writes) == 0 {
			return nil
		}
		_, err := rtx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			for _, w := range t.writes {
				w(pipe)
			}
			return nil
		})
		return err
	}

	// Both the session document and the selections hash are watched: a
	// concurrent commit touching either voids this EXEC and we re-read
	// from scratch.
	for i := 0; i < maxTxRetries; i++ {
		err := s.client.Watch(ctx, txf, s.sessionKey(key), s.selectionsKey(key))
		if err == redis.TxFailedErr {
			continue
		}
		return err
	}
	return ErrConflict
}

func (s *RedisStore) SubscribeSession(ctx context.Context, key string, fn func(models.Session)) (CancelFunc, error) {
	return s.subscribe(ctx, s.channel("session", key), func(ctx context.Context) {
		if sess, err := s.GetSession(ctx, key); err == nil {
			fn(sess)
		}
	})
}

func (s *RedisStore) SubscribePlayers(ctx context.Context, key string, fn func([]models.Player)) (CancelFunc, error) {
	return s.subscribe(ctx, s.channel("players", key), func(ctx context.Context) {
		if players, err := s.ListPlayers(ctx, key); err == nil {
			fn(players)
		}
	})
}

func (s *RedisStore) SubscribeSelections(ctx context.Context, key string, fn func([]models.Selection)) (CancelFunc, error) {
	return s.subscribe(ctx, s.channel("selections", key), func(ctx context.Context) {
		if sels, err := s.ListSelections(ctx, key); err == nil {
			fn(sels)
		}
	})
}

// subscribe delivers the current state once, then re-reads on every
// change notification. emit must tolerate a vanished record.
func (s *RedisStore) subscribe(ctx context.Context, channel string, emit func(context.Context)) (CancelFunc, error) {
	sub := s.client.Subscribe(ctx, channel)
	if _, err := sub.Receive(ctx); err != nil {
		sub.Close()
		return nil, fmt.Errorf("subscribe %s: %w", channel, err)
	}

	done := make(chan struct{})
	go func() {
		emit(ctx)
		ch := sub.Channel()
		for {
			select {
			case _, ok := <-ch:
				if !ok {
					return
				}
				emit(ctx)
			case <-ctx.Done():
				sub.Close()
				return
			case <-done:
				return
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			close(done)
			sub.Close()
		})
	}, nil
}

func (s *RedisStore) Now(ctx context.Context) (time.Time, error) {
	t, err := s.client.Time(ctx).Result()
	if err != nil {
		return time.Time{}, fmt.Errorf("server time: %w", err)
	}
	return t.UTC(), nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

func unmarshalSelections(vals []string) ([]models.Selection, error) {
	sels := make([]models.Selection, 0, len(vals))
	for _, v := range vals {
		var sel models.Selection
		if err := json.Unmarshal([]byte(v), &sel); err != nil {
			return nil, fmt.Errorf("unmarshal selection: %w", err)
		}
		sels = append(sels, sel)
	}
	return sels, nil
}
