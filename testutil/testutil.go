// Copyright (c) 2026 Alignparty.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/alignparty/specvote/identity"
	"github.com/alignparty/specvote/models"
	"github.com/alignparty/specvote/session"
	"github.com/alignparty/specvote/specs"
	"github.com/alignparty/specvote/store"
)

// SetupTestStore starts an in-process Redis and returns a store backed
// by it. Both are torn down with the test.
func SetupTestStore(t *testing.T) *store.RedisStore {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	st := store.NewRedisStoreWithClient(client)
	t.Cleanup(func() { st.Close() })
	return st
}

// SetupTestService returns a session service over a fresh test store.
func SetupTestService(t *testing.T) *session.Service {
	t.Helper()
	return session.NewService(SetupTestStore(t))
}

// CreateTestSession creates a lobby session and returns it with its
// host key.
func CreateTestSession(t *testing.T, svc *session.Service) (models.Session, string) {
	t.Helper()

	hostKey := identity.NewID()
	sess, err := svc.Create(context.Background(), identity.Identity{ParticipantID: hostKey})
	if err != nil {
		t.Fatalf("Failed to create test session: %v", err)
	}
	return sess, hostKey
}

// JoinTestPlayer joins a fresh participant and returns its id.
func JoinTestPlayer(t *testing.T, svc *session.Service, key, name string) string {
	t.Helper()

	pid := identity.NewID()
	_, err := svc.Join(context.Background(), key, identity.Identity{ParticipantID: pid, DisplayName: name})
	if err != nil {
		t.Fatalf("Failed to join test player: %v", err)
	}
	return pid
}

// SubmitTestSelection submits cfg for the given participant.
func SubmitTestSelection(t *testing.T, svc *session.Service, key, participantID string, cfg specs.Config) {
	t.Helper()

	err := svc.SubmitSelection(context.Background(), key, identity.Identity{ParticipantID: participantID}, cfg)
	if err != nil {
		t.Fatalf("Failed to submit test selection: %v", err)
	}
}

// Specs builds a valid Config with the given categorical fields and
// every dial at lvl.
func Specs(model, goal string, lvl int) specs.Config {
	cfg := specs.Config{Model: model, Goal: goal}
	for _, d := range specs.Dials {
		d.Set(&cfg, lvl)
	}
	return cfg
}

// MakeRequest creates an HTTP test request
func MakeRequest(method, path string, body interface{}, headers map[string]string) *http.Request {
	var req *http.Request
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		req = httptest.NewRequest(method, path, bytes.NewReader(jsonBody))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return req
}

// AssertStatus checks that the response has the expected status code
func AssertStatus(t *testing.T, w *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if w.Code != expected {
		t.Errorf("Expected status %d, got %d. Body: %s", expected, w.Code, w.Body.String())
	}
}

// AssertJSON decodes the response body into the provided struct
func AssertJSON(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("Failed to decode JSON response: %v", err)
	}
}
