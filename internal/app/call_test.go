package app

import (
	"errors"
	"testing"
	"time"

	"github.com/dkeye/huddle/internal/core"
)

type callFixture struct {
	reg   *Registry
	rt    *Router
	calls *CallCoordinator

	alice core.Session
	bob   core.Session
	aConn *fakeConn
	bConn *fakeConn
}

func newCallFixture(t *testing.T, ringTimeout time.Duration) *callFixture {
	t.Helper()
	f := &callFixture{
		reg: NewRegistry(),
		rt:  NewRouter(),
	}
	f.calls = NewCallCoordinator(f.reg, f.rt, ringTimeout)
	f.alice, f.aConn = newFakeSession("c1")
	f.bob, f.bConn = newFakeSession("c2")
	f.reg.Register("alice", f.alice)
	f.reg.Register("bob", f.bob)
	return f
}

func (f *callFixture) invite(t *testing.T) {
	t.Helper()
	err := f.calls.Invite(f.alice, CallerInfo{ID: "alice", Username: "Alice"}, "bob", "call1")
	if err != nil {
		t.Fatalf("Invite() error = %v", err)
	}
}

func TestCall_InviteRings(t *testing.T) {
	f := newCallFixture(t, 0)
	f.invite(t)

	if got := f.calls.State("call1"); got != CallRinging {
		t.Errorf("State() = %s, want ringing", got)
	}
	evs := f.bConn.eventsOfType(t, EvCallIncoming)
	if len(evs) != 1 {
		t.Fatalf("bob got %d call-incoming events, want 1", len(evs))
	}
	from, _ := evs[0]["from"].(map[string]any)
	if from["id"] != "alice" || evs[0]["room"] != "call1" {
		t.Errorf("wrong incoming payload: %v", evs[0])
	}
}

func TestCall_InviteUnreachableCalleeFailsImmediately(t *testing.T) {
	f := newCallFixture(t, 0)

	err := f.calls.Invite(f.alice, CallerInfo{ID: "alice"}, "nobody", "call1")
	if err != nil {
		t.Fatalf("Invite() error = %v", err)
	}

	if got := f.calls.State("call1"); got != CallIdle {
		t.Errorf("State() = %s, want idle (no attempt persisted)", got)
	}
	if f.rt.MemberCount("call1") != 0 {
		t.Error("no room should exist for a failed invite")
	}
	evs := f.aConn.eventsOfType(t, EvCallFailed)
	if len(evs) != 1 {
		t.Fatalf("alice got %d call-failed events, want 1", len(evs))
	}
	if f.bConn.count() != 0 {
		t.Errorf("callee-side connection got %d frames, want 0", f.bConn.count())
	}
}

func TestCall_AcceptOnlyFromRinging(t *testing.T) {
	f := newCallFixture(t, 0)

	// No attempt yet.
	err := f.calls.Accept("call1", f.bob.ID())
	var se *StateConflictError
	if !errors.As(err, &se) {
		t.Fatalf("Accept() before invite error = %v, want StateConflictError", err)
	}

	f.invite(t)
	if err := f.calls.Accept("call1", f.bob.ID()); err != nil {
		t.Fatalf("Accept() error = %v", err)
	}
	if got := f.calls.State("call1"); got != CallConnecting {
		t.Errorf("State() = %s, want connecting", got)
	}
	if len(f.aConn.eventsOfType(t, EvCallAccepted)) != 1 {
		t.Error("caller should be told the call was accepted")
	}

	// A second accept is no longer legal, state unchanged.
	err = f.calls.Accept("call1", f.bob.ID())
	if !errors.As(err, &se) {
		t.Fatalf("double Accept() error = %v, want StateConflictError", err)
	}
	if got := f.calls.State("call1"); got != CallConnecting {
		t.Errorf("State() after conflict = %s, want connecting", got)
	}
}

func TestCall_RejectDiscardsAttempt(t *testing.T) {
	f := newCallFixture(t, 0)
	f.invite(t)

	if err := f.calls.Reject("call1", f.bob.ID()); err != nil {
		t.Fatalf("Reject() error = %v", err)
	}
	if len(f.aConn.eventsOfType(t, EvCallRejected)) != 1 {
		t.Error("caller should be told the call was rejected")
	}
	if got := f.calls.State("call1"); got != CallIdle {
		t.Errorf("State() = %s, want idle after reject", got)
	}

	// Accept after reject is a conflict on a gone attempt.
	var se *StateConflictError
	if err := f.calls.Accept("call1", f.bob.ID()); !errors.As(err, &se) {
		t.Errorf("Accept() after reject error = %v, want StateConflictError", err)
	}
}

func TestCall_OnlyCalleeMayAnswer(t *testing.T) {
	f := newCallFixture(t, 0)
	f.invite(t)

	var se *StateConflictError
	if err := f.calls.Accept("call1", f.alice.ID()); !errors.As(err, &se) {
		t.Errorf("caller Accept() error = %v, want StateConflictError", err)
	}
	if got := f.calls.State("call1"); got != CallRinging {
		t.Errorf("State() = %s, want ringing unchanged", got)
	}
}

func TestCall_SecondJoinerTriggersUserJoinedOnce(t *testing.T) {
	f := newCallFixture(t, 0)
	f.invite(t)
	if err := f.calls.Accept("call1", f.bob.ID()); err != nil {
		t.Fatalf("Accept() error = %v", err)
	}

	if err := f.calls.JoinMedia(f.alice, "call1"); err != nil {
		t.Fatalf("JoinMedia(alice) error = %v", err)
	}
	if len(f.aConn.eventsOfType(t, EvUserJoined)) != 0 {
		t.Fatal("first joiner must not be notified before a peer exists")
	}

	if err := f.calls.JoinMedia(f.bob, "call1"); err != nil {
		t.Fatalf("JoinMedia(bob) error = %v", err)
	}
	// Re-join must not re-trigger.
	if err := f.calls.JoinMedia(f.bob, "call1"); err != nil {
		t.Fatalf("JoinMedia(bob) again error = %v", err)
	}

	evs := f.aConn.eventsOfType(t, EvUserJoined)
	if len(evs) != 1 {
		t.Fatalf("first joiner got %d user-joined events, want exactly 1", len(evs))
	}
	if evs[0]["peer"] != "c2" {
		t.Errorf("user-joined peer = %v, want c2", evs[0]["peer"])
	}
	if len(f.bConn.eventsOfType(t, EvUserJoined)) != 0 {
		t.Error("second joiner must not receive user-joined")
	}
}

func TestCall_RelayVerbatimAndEstablish(t *testing.T) {
	f := newCallFixture(t, 0)
	f.invite(t)
	if err := f.calls.Accept("call1", f.bob.ID()); err != nil {
		t.Fatalf("Accept() error = %v", err)
	}
	if err := f.calls.JoinMedia(f.alice, "call1"); err != nil {
		t.Fatalf("JoinMedia(alice) error = %v", err)
	}
	if err := f.calls.JoinMedia(f.bob, "call1"); err != nil {
		t.Fatalf("JoinMedia(bob) error = %v", err)
	}

	offer := core.Frame(`{"type":"offer","target":"c2","sdp":"v=0 opaque"}`)
	if err := f.calls.Relay("c1", "offer", "c2", offer); err != nil {
		t.Fatalf("Relay(offer) error = %v", err)
	}
	got := f.bConn.eventsOfType(t, "offer")
	if len(got) != 1 {
		t.Fatalf("bob got %d offers, want 1", len(got))
	}
	if got[0]["sdp"] != "v=0 opaque" {
		t.Errorf("sdp was not forwarded verbatim: %v", got[0])
	}
	if f.calls.State("call1") != CallConnecting {
		t.Error("offer alone must not establish the call")
	}

	answer := core.Frame(`{"type":"answer","target":"c1","sdp":"v=0 reply"}`)
	if err := f.calls.Relay("c2", "answer", "c1", answer); err != nil {
		t.Fatalf("Relay(answer) error = %v", err)
	}
	if got := f.calls.State("call1"); got != CallEstablished {
		t.Errorf("State() = %s, want established after offer/answer pair", got)
	}

	cand := core.Frame(`{"type":"ice-candidate","target":"c2","candidate":{"candidate":"opaque"}}`)
	if err := f.calls.Relay("c1", "ice-candidate", "c2", cand); err != nil {
		t.Fatalf("Relay(candidate) error = %v", err)
	}
}

func TestCall_RelayToGoneTargetReportsUnreachable(t *testing.T) {
	f := newCallFixture(t, 0)
	f.invite(t)
	if err := f.calls.JoinMedia(f.alice, "call1"); err != nil {
		t.Fatalf("JoinMedia() error = %v", err)
	}

	err := f.calls.Relay("c1", "offer", "gone", core.Frame(`{"type":"offer","target":"gone"}`))
	var ue *UnreachableTargetError
	if !errors.As(err, &ue) {
		t.Fatalf("Relay() error = %v, want UnreachableTargetError", err)
	}
}

func TestCall_DisconnectNotifiesSurvivor(t *testing.T) {
	f := newCallFixture(t, 0)
	f.invite(t)
	if err := f.calls.Accept("call1", f.bob.ID()); err != nil {
		t.Fatalf("Accept() error = %v", err)
	}

	// Caller vanishes mid-call.
	f.calls.Disconnect(f.alice.ID())

	evs := f.bConn.eventsOfType(t, EvCallEnded)
	if len(evs) != 1 {
		t.Fatalf("survivor got %d call-ended events, want 1", len(evs))
	}
	if evs[0]["reason"] != "peer-left" {
		t.Errorf("call-ended reason = %v, want peer-left", evs[0]["reason"])
	}
	if got := f.calls.State("call1"); got != CallIdle {
		t.Errorf("State() = %s, want idle after teardown", got)
	}
}

func TestCall_SecondCallWhileBusyConflicts(t *testing.T) {
	f := newCallFixture(t, 0)
	f.invite(t)
	if err := f.calls.JoinMedia(f.alice, "call1"); err != nil {
		t.Fatalf("JoinMedia() error = %v", err)
	}

	carol, _ := newFakeSession("c3")
	f.reg.Register("carol", carol)
	if err := f.calls.Invite(carol, CallerInfo{ID: "carol"}, "alice", "call2"); err != nil {
		t.Fatalf("Invite() error = %v", err)
	}

	// alice is already in call1's media room; joining call2 conflicts.
	var se *StateConflictError
	if err := f.calls.JoinMedia(f.alice, "call2"); !errors.As(err, &se) {
		t.Errorf("JoinMedia() while busy error = %v, want StateConflictError", err)
	}
}

func TestCall_RingTimeoutFailsAttempt(t *testing.T) {
	f := newCallFixture(t, 20*time.Millisecond)
	f.invite(t)

	deadline := time.After(2 * time.Second)
	for f.calls.State("call1") != CallIdle {
		select {
		case <-deadline:
			t.Fatal("ring timeout never fired")
		case <-time.After(5 * time.Millisecond):
		}
	}

	evs := f.aConn.eventsOfType(t, EvCallFailed)
	if len(evs) != 1 || evs[0]["reason"] != "ring-timeout" {
		t.Fatalf("caller events = %v, want one ring-timeout failure", evs)
	}
	if len(f.bConn.eventsOfType(t, EvCallEnded)) != 1 {
		t.Error("callee should be told the ring ended")
	}

	// Late accept hits a gone attempt.
	var se *StateConflictError
	if err := f.calls.Accept("call1", f.bob.ID()); !errors.As(err, &se) {
		t.Errorf("Accept() after timeout error = %v, want StateConflictError", err)
	}
}
