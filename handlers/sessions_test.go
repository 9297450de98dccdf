// Copyright (c) 2026 Alignparty.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/alignparty/specvote/identity"
	"github.com/alignparty/specvote/models"
	"github.com/alignparty/specvote/specs"
	"github.com/alignparty/specvote/testutil"
)

func TestCreateSession(t *testing.T) {
	svc := testutil.SetupTestService(t)
	h := NewSessionHandler(svc)

	req := testutil.MakeRequest("POST", "/sessions", nil, nil)
	w := httptest.NewRecorder()
	h.CreateSession(w, req)

	testutil.AssertStatus(t, w, http.StatusCreated)

	var resp models.CreateSessionResponse
	testutil.AssertJSON(t, w, &resp)

	if resp.HostKey == "" {
		t.Error("Expected a generated host key")
	}
	if len(resp.JoinCode) != identity.JoinCodeLength {
		t.Errorf("Expected %d character join code, got %q", identity.JoinCodeLength, resp.JoinCode)
	}
	if resp.SessionKey != strings.ToLower(resp.JoinCode) {
		t.Errorf("Session key should be the lower-cased join code")
	}
}

func TestCreateSession_ReusesProvidedHostKey(t *testing.T) {
	svc := testutil.SetupTestService(t)
	h := NewSessionHandler(svc)

	req := testutil.MakeRequest("POST", "/sessions", nil, map[string]string{
		"X-Host-Key": "my-device-key",
	})
	w := httptest.NewRecorder()
	h.CreateSession(w, req)

	testutil.AssertStatus(t, w, http.StatusCreated)

	var resp models.CreateSessionResponse
	testutil.AssertJSON(t, w, &resp)
	if resp.HostKey != "my-device-key" {
		t.Errorf("Expected the provided host key back, got %q", resp.HostKey)
	}
}

func TestGetSession(t *testing.T) {
	svc := testutil.SetupTestService(t)
	h := NewSessionHandler(svc)
	sess, _ := testutil.CreateTestSession(t, svc)

	req := testutil.MakeRequest("GET", "/sessions/"+sess.JoinCode, nil, nil)
	req.SetPathValue("code", sess.JoinCode)
	w := httptest.NewRecorder()
	h.GetSession(w, req)

	testutil.AssertStatus(t, w, http.StatusOK)

	var resp models.Session
	testutil.AssertJSON(t, w, &resp)
	if resp.Status != models.StatusLobby {
		t.Errorf("Expected lobby status, got %s", resp.Status)
	}
	if resp.FinalConfig != nil {
		t.Error("Lobby session must not expose a final config")
	}

	// The host id never crosses the wire.
	if strings.Contains(w.Body.String(), "host") {
		t.Errorf("Response leaks host material: %s", w.Body.String())
	}
}

func TestGetSession_NotFound(t *testing.T) {
	svc := testutil.SetupTestService(t)
	h := NewSessionHandler(svc)

	req := testutil.MakeRequest("GET", "/sessions/ZZZZZZ", nil, nil)
	req.SetPathValue("code", "ZZZZZZ")
	w := httptest.NewRecorder()
	h.GetSession(w, req)

	testutil.AssertStatus(t, w, http.StatusNotFound)
}

func TestGetSession_BadCode(t *testing.T) {
	svc := testutil.SetupTestService(t)
	h := NewSessionHandler(svc)

	req := testutil.MakeRequest("GET", "/sessions/nope", nil, nil)
	req.SetPathValue("code", "nope")
	w := httptest.NewRecorder()
	h.GetSession(w, req)

	testutil.AssertStatus(t, w, http.StatusBadRequest)
}

func TestLockSession(t *testing.T) {
	svc := testutil.SetupTestService(t)
	h := NewSessionHandler(svc)
	sess, hostKey := testutil.CreateTestSession(t, svc)

	pid := testutil.JoinTestPlayer(t, svc, sess.Key, "Dana")
	testutil.SubmitTestSelection(t, svc, sess.Key, pid, testutil.Specs("nimbus-2", specs.GoalEfficiency, 1))

	req := testutil.MakeRequest("POST", "/sessions/"+sess.JoinCode+"/lock", nil, map[string]string{
		"X-Host-Key": hostKey,
	})
	req.SetPathValue("code", sess.JoinCode)
	w := httptest.NewRecorder()
	h.LockSession(w, req)

	testutil.AssertStatus(t, w, http.StatusOK)

	var resp models.LockSessionResponse
	testutil.AssertJSON(t, w, &resp)
	if resp.FinalConfig.Model != "nimbus-2" {
		t.Errorf("Expected aggregated model nimbus-2, got %s", resp.FinalConfig.Model)
	}
	if resp.FinalMeta.MethodVersion != specs.MethodAggregated {
		t.Errorf("Expected method %s, got %s", specs.MethodAggregated, resp.FinalMeta.MethodVersion)
	}
	if resp.LockedAt.IsZero() {
		t.Error("Expected a lock timestamp")
	}
}

func TestLockSession_WithOverride(t *testing.T) {
	svc := testutil.SetupTestService(t)
	h := NewSessionHandler(svc)
	sess, hostKey := testutil.CreateTestSession(t, svc)

	override := testutil.Specs("nimbus-max", specs.GoalAutonomy, 2)
	body := models.LockSessionRequest{Override: &override}
	req := testutil.MakeRequest("POST", "/sessions/"+sess.JoinCode+"/lock", body, map[string]string{
		"X-Host-Key": hostKey,
	})
	req.SetPathValue("code", sess.JoinCode)
	w := httptest.NewRecorder()
	h.LockSession(w, req)

	testutil.AssertStatus(t, w, http.StatusOK)

	var resp models.LockSessionResponse
	testutil.AssertJSON(t, w, &resp)
	if resp.FinalConfig.Model != "nimbus-max" {
		t.Errorf("Expected override model, got %s", resp.FinalConfig.Model)
	}
	if resp.FinalMeta.MethodVersion != specs.MethodHostEdited {
		t.Errorf("Expected method %s, got %s", specs.MethodHostEdited, resp.FinalMeta.MethodVersion)
	}
}

func TestLockSession_Authorization(t *testing.T) {
	svc := testutil.SetupTestService(t)
	h := NewSessionHandler(svc)
	sess, _ := testutil.CreateTestSession(t, svc)

	tests := []struct {
		name     string
		headers  map[string]string
		expected int
	}{
		{"missing host key", nil, http.StatusUnauthorized},
		{"wrong host key", map[string]string{"X-Host-Key": "not-the-host"}, http.StatusUnauthorized},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := testutil.MakeRequest("POST", "/sessions/"+sess.JoinCode+"/lock", nil, tc.headers)
			req.SetPathValue("code", sess.JoinCode)
			w := httptest.NewRecorder()
			h.LockSession(w, req)

			testutil.AssertStatus(t, w, tc.expected)
		})
	}

	// And the failed attempts changed nothing.
	got, err := svc.Get(context.Background(), sess.Key)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Status != models.StatusLobby {
		t.Errorf("Failed lock attempts must not change state, got %s", got.Status)
	}
}

func TestLockSession_AlreadyLocked(t *testing.T) {
	svc := testutil.SetupTestService(t)
	h := NewSessionHandler(svc)
	sess, hostKey := testutil.CreateTestSession(t, svc)

	lock := func() *httptest.ResponseRecorder {
		req := testutil.MakeRequest("POST", "/sessions/"+sess.JoinCode+"/lock", nil, map[string]string{
			"X-Host-Key": hostKey,
		})
		req.SetPathValue("code", sess.JoinCode)
		w := httptest.NewRecorder()
		h.LockSession(w, req)
		return w
	}

	testutil.AssertStatus(t, lock(), http.StatusOK)
	testutil.AssertStatus(t, lock(), http.StatusConflict)
}

func TestEndSession(t *testing.T) {
	svc := testutil.SetupTestService(t)
	h := NewSessionHandler(svc)
	sess, hostKey := testutil.CreateTestSession(t, svc)

	host := identity.Identity{ParticipantID: hostKey}
	if _, err := svc.Lock(context.Background(), sess.Key, host, nil); err != nil {
		t.Fatalf("Lock failed: %v", err)
	}

	req := testutil.MakeRequest("POST", "/sessions/"+sess.JoinCode+"/end", nil, map[string]string{
		"X-Host-Key": hostKey,
	})
	req.SetPathValue("code", sess.JoinCode)
	w := httptest.NewRecorder()
	h.EndSession(w, req)

	testutil.AssertStatus(t, w, http.StatusOK)

	var resp models.Session
	testutil.AssertJSON(t, w, &resp)
	if resp.Status != models.StatusEnded {
		t.Errorf("Expected ended status, got %s", resp.Status)
	}
}

func TestEndSession_FromLobby(t *testing.T) {
	svc := testutil.SetupTestService(t)
	h := NewSessionHandler(svc)
	sess, hostKey := testutil.CreateTestSession(t, svc)

	req := testutil.MakeRequest("POST", "/sessions/"+sess.JoinCode+"/end", nil, map[string]string{
		"X-Host-Key": hostKey,
	})
	req.SetPathValue("code", sess.JoinCode)
	w := httptest.NewRecorder()
	h.EndSession(w, req)

	testutil.AssertStatus(t, w, http.StatusConflict)
}

func TestGetResult(t *testing.T) {
	svc := testutil.SetupTestService(t)
	h := NewSessionHandler(svc)
	sess, hostKey := testutil.CreateTestSession(t, svc)

	pid := testutil.JoinTestPlayer(t, svc, sess.Key, "Dana")
	testutil.SubmitTestSelection(t, svc, sess.Key, pid, testutil.Specs("nimbus-1", specs.GoalNone, 1))

	result := func() *httptest.ResponseRecorder {
		req := testutil.MakeRequest("GET", "/sessions/"+sess.JoinCode+"/result", nil, nil)
		req.SetPathValue("code", sess.JoinCode)
		w := httptest.NewRecorder()
		h.GetResult(w, req)
		return w
	}

	// Hidden while the lobby is open.
	testutil.AssertStatus(t, result(), http.StatusConflict)

	if _, err := svc.Lock(context.Background(), sess.Key, identity.Identity{ParticipantID: hostKey}, nil); err != nil {
		t.Fatalf("Lock failed: %v", err)
	}

	w := result()
	testutil.AssertStatus(t, w, http.StatusOK)

	var resp models.ResultResponse
	testutil.AssertJSON(t, w, &resp)
	if resp.FinalConfig.Model != "nimbus-1" {
		t.Errorf("Expected model nimbus-1, got %s", resp.FinalConfig.Model)
	}
	if resp.FinalMeta.ConfigID == "" {
		t.Error("Expected a config id")
	}
	if resp.PlayerCount != 1 {
		t.Errorf("Expected player count 1, got %d", resp.PlayerCount)
	}
}
