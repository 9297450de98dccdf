// Copyright (c) 2026 Alignparty.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package session_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/alignparty/specvote/identity"
	"github.com/alignparty/specvote/models"
	"github.com/alignparty/specvote/session"
	"github.com/alignparty/specvote/specs"
	"github.com/alignparty/specvote/testutil"
)

// TestConcurrentSelectionSubmissions verifies that simultaneous submissions
// from different participants don't cause data corruption or duplicates
func TestConcurrentSelectionSubmissions(t *testing.T) {
	svc := testutil.SetupTestService(t)
	sess, _ := testutil.CreateTestSession(t, svc)
	ctx := context.Background()

	numParticipants := 10
	pids := make([]string, numParticipants)
	for i := 0; i < numParticipants; i++ {
		pids[i] = testutil.JoinTestPlayer(t, svc, sess.Key, "Voter"+string(rune('A'+i)))
	}

	var successCount atomic.Int32
	var wg sync.WaitGroup

	for i := 0; i < numParticipants; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()

			cfg := testutil.Specs(specs.Models[idx%len(specs.Models)], specs.GoalNone, idx%4)
			me := identity.Identity{ParticipantID: pids[idx]}
			if err := svc.SubmitSelection(ctx, sess.Key, me, cfg); err == nil {
				successCount.Add(1)
			}
		}(i)
	}

	wg.Wait()

	if int(successCount.Load()) != numParticipants {
		t.Errorf("Expected %d successful submissions, got %d", numParticipants, successCount.Load())
	}

	n, err := svc.SelectionCount(ctx, sess.Key)
	if err != nil {
		t.Fatalf("SelectionCount failed: %v", err)
	}
	if n != numParticipants {
		t.Errorf("Expected %d stored selections, got %d", numParticipants, n)
	}
}

// TestConcurrentLockAttempts verifies that of many simultaneous lock
// attempts exactly one wins and the rest observe the locked state
func TestConcurrentLockAttempts(t *testing.T) {
	svc := testutil.SetupTestService(t)
	sess, hostKey := testutil.CreateTestSession(t, svc)
	ctx := context.Background()
	host := identity.Identity{ParticipantID: hostKey}

	pid := testutil.JoinTestPlayer(t, svc, sess.Key, "Voter")
	testutil.SubmitTestSelection(t, svc, sess.Key, pid, testutil.Specs("nimbus-1", specs.GoalNone, 1))

	attempts := 8
	var successCount atomic.Int32
	var invalidState atomic.Int32
	var wg sync.WaitGroup

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			_, err := svc.Lock(ctx, sess.Key, host, nil)
			switch {
			case err == nil:
				successCount.Add(1)
			case errors.Is(err, session.ErrInvalidState):
				invalidState.Add(1)
			}
		}()
	}

	wg.Wait()

	if successCount.Load() != 1 {
		t.Errorf("Expected exactly 1 successful lock, got %d", successCount.Load())
	}
	if successCount.Load()+invalidState.Load() != int32(attempts) {
		t.Errorf("Expected every loser to see ErrInvalidState: %d winners, %d losers of %d",
			successCount.Load(), invalidState.Load(), attempts)
	}

	got, err := svc.Get(ctx, sess.Key)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Status != models.StatusLocked {
		t.Errorf("Expected locked session, got %s", got.Status)
	}
	if got.FinalMeta == nil || got.FinalMeta.SelectionCount != 1 {
		t.Errorf("Winner must have aggregated the one real vote: %+v", got.FinalMeta)
	}
}

// TestConcurrentSubmitDuringLock verifies that a selection racing a lock
// either lands before the freeze or is rejected, never silently dropped
// into a locked session
func TestConcurrentSubmitDuringLock(t *testing.T) {
	svc := testutil.SetupTestService(t)
	sess, hostKey := testutil.CreateTestSession(t, svc)
	ctx := context.Background()

	pid := testutil.JoinTestPlayer(t, svc, sess.Key, "Voter")

	var wg sync.WaitGroup
	var submitOK atomic.Bool

	wg.Add(2)
	go func() {
		defer wg.Done()
		err := svc.SubmitSelection(ctx, sess.Key, identity.Identity{ParticipantID: pid},
			testutil.Specs("nimbus-2", specs.GoalEfficiency, 2))
		if err == nil {
			submitOK.Store(true)
		}
	}()
	go func() {
		defer wg.Done()
		_, _ = svc.Lock(ctx, sess.Key, identity.Identity{ParticipantID: hostKey}, nil)
	}()
	wg.Wait()

	got, err := svc.Get(ctx, sess.Key)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Status != models.StatusLocked {
		t.Fatalf("Expected locked session, got %s", got.Status)
	}

	n, err := svc.SelectionCount(ctx, sess.Key)
	if err != nil {
		t.Fatalf("SelectionCount failed: %v", err)
	}
	if submitOK.Load() {
		// The submit won the race, so the lock saw it.
		if n != 1 {
			t.Errorf("Accepted selection missing from the store, count = %d", n)
		}
		if got.FinalMeta.SelectionCount != 1 {
			t.Errorf("Lock aggregated %d selections, store has 1", got.FinalMeta.SelectionCount)
		}
	} else {
		if n != 0 {
			t.Errorf("Rejected selection leaked into the store, count = %d", n)
		}
	}
}
