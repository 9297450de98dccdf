// Copyright (c) 2026 Alignparty.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alignparty/specvote/identity"
	"github.com/alignparty/specvote/models"
	"github.com/alignparty/specvote/testutil"
)

func TestJoin(t *testing.T) {
	svc := testutil.SetupTestService(t)
	h := NewPlayerHandler(svc)
	sess, _ := testutil.CreateTestSession(t, svc)

	body := models.JoinSessionRequest{DisplayName: "Dana"}
	req := testutil.MakeRequest("POST", "/sessions/"+sess.JoinCode+"/join", body, nil)
	req.SetPathValue("code", sess.JoinCode)
	w := httptest.NewRecorder()
	h.Join(w, req)

	testutil.AssertStatus(t, w, http.StatusOK)

	var resp models.JoinSessionResponse
	testutil.AssertJSON(t, w, &resp)
	if resp.ParticipantID == "" {
		t.Error("Expected a generated participant id")
	}
}

func TestJoin_NoBody(t *testing.T) {
	svc := testutil.SetupTestService(t)
	h := NewPlayerHandler(svc)
	sess, _ := testutil.CreateTestSession(t, svc)

	req := testutil.MakeRequest("POST", "/sessions/"+sess.JoinCode+"/join", nil, nil)
	req.SetPathValue("code", sess.JoinCode)
	w := httptest.NewRecorder()
	h.Join(w, req)

	testutil.AssertStatus(t, w, http.StatusOK)
}

func TestJoin_Idempotent(t *testing.T) {
	svc := testutil.SetupTestService(t)
	h := NewPlayerHandler(svc)
	sess, _ := testutil.CreateTestSession(t, svc)

	join := func() models.JoinSessionResponse {
		body := models.JoinSessionRequest{DisplayName: "Dana"}
		req := testutil.MakeRequest("POST", "/sessions/"+sess.JoinCode+"/join", body, map[string]string{
			"X-Participant-ID": "device-1",
		})
		req.SetPathValue("code", sess.JoinCode)
		w := httptest.NewRecorder()
		h.Join(w, req)
		testutil.AssertStatus(t, w, http.StatusOK)

		var resp models.JoinSessionResponse
		testutil.AssertJSON(t, w, &resp)
		return resp
	}

	first := join()
	second := join()
	if first.ParticipantID != "device-1" || second.ParticipantID != "device-1" {
		t.Errorf("Expected the provided id back both times")
	}

	players, err := svc.Players(context.Background(), sess.Key)
	if err != nil {
		t.Fatalf("Players failed: %v", err)
	}
	if len(players) != 1 {
		t.Errorf("Rejoin must not duplicate: expected 1 player, got %d", len(players))
	}
}

func TestJoin_SessionNotFound(t *testing.T) {
	svc := testutil.SetupTestService(t)
	h := NewPlayerHandler(svc)

	req := testutil.MakeRequest("POST", "/sessions/ZZZZZZ/join", nil, nil)
	req.SetPathValue("code", "ZZZZZZ")
	w := httptest.NewRecorder()
	h.Join(w, req)

	testutil.AssertStatus(t, w, http.StatusNotFound)
}

func TestHeartbeat(t *testing.T) {
	svc := testutil.SetupTestService(t)
	h := NewPlayerHandler(svc)
	sess, _ := testutil.CreateTestSession(t, svc)
	pid := testutil.JoinTestPlayer(t, svc, sess.Key, "Dana")

	req := testutil.MakeRequest("POST", "/sessions/"+sess.JoinCode+"/heartbeat", nil, map[string]string{
		"X-Participant-ID": pid,
	})
	req.SetPathValue("code", sess.JoinCode)
	w := httptest.NewRecorder()
	h.Heartbeat(w, req)

	testutil.AssertStatus(t, w, http.StatusNoContent)
}

func TestHeartbeat_RequiresParticipant(t *testing.T) {
	svc := testutil.SetupTestService(t)
	h := NewPlayerHandler(svc)
	sess, _ := testutil.CreateTestSession(t, svc)

	req := testutil.MakeRequest("POST", "/sessions/"+sess.JoinCode+"/heartbeat", nil, nil)
	req.SetPathValue("code", sess.JoinCode)
	w := httptest.NewRecorder()
	h.Heartbeat(w, req)

	testutil.AssertStatus(t, w, http.StatusBadRequest)
}

func TestHeartbeat_UnknownParticipant(t *testing.T) {
	svc := testutil.SetupTestService(t)
	h := NewPlayerHandler(svc)
	sess, _ := testutil.CreateTestSession(t, svc)

	req := testutil.MakeRequest("POST", "/sessions/"+sess.JoinCode+"/heartbeat", nil, map[string]string{
		"X-Participant-ID": identity.NewID(),
	})
	req.SetPathValue("code", sess.JoinCode)
	w := httptest.NewRecorder()
	h.Heartbeat(w, req)

	testutil.AssertStatus(t, w, http.StatusNotFound)
}

func TestListPlayers(t *testing.T) {
	svc := testutil.SetupTestService(t)
	h := NewPlayerHandler(svc)
	sess, _ := testutil.CreateTestSession(t, svc)

	testutil.JoinTestPlayer(t, svc, sess.Key, "Dana")
	testutil.JoinTestPlayer(t, svc, sess.Key, "Riley")

	req := testutil.MakeRequest("GET", "/sessions/"+sess.JoinCode+"/players", nil, nil)
	req.SetPathValue("code", sess.JoinCode)
	w := httptest.NewRecorder()
	h.List(w, req)

	testutil.AssertStatus(t, w, http.StatusOK)

	var players []models.Player
	testutil.AssertJSON(t, w, &players)
	if len(players) != 2 {
		t.Errorf("Expected 2 players, got %d", len(players))
	}
}
