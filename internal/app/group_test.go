package app

import (
	"context"
	"errors"
	"testing"

	"github.com/dkeye/huddle/internal/domain"
)

func TestGroup_CreateNotifiesOnlineMembersOnly(t *testing.T) {
	store := newFakeGroupStore()
	reg := NewRegistry()
	rt := NewRouter()
	groups := NewGroupManager(store, reg, rt)

	aliceSess, aliceConn := newFakeSession("c1")
	reg.Register("alice", aliceSess)
	// bob stays offline

	grp, err := groups.Create(context.Background(), "Squad", "alice", []domain.UserID{"alice", "bob"})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	members := store.members[grp.ID]
	if len(members) != 2 {
		t.Fatalf("persisted %d members, want 2", len(members))
	}

	evs := aliceConn.eventsOfType(t, EvNewGroupAdded)
	if len(evs) != 1 {
		t.Fatalf("alice got %d newGroupAdded events, want 1", len(evs))
	}
	if evs[0]["name"] != "Squad" || evs[0]["id"] != string(grp.ID) {
		t.Errorf("wrong group payload: %v", evs[0])
	}
}

func TestGroup_CreatorAlwaysAMember(t *testing.T) {
	store := newFakeGroupStore()
	groups := NewGroupManager(store, NewRegistry(), NewRouter())

	grp, err := groups.Create(context.Background(), "Solo", "alice", nil)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	members := store.members[grp.ID]
	if len(members) != 1 || members[0] != "alice" {
		t.Errorf("members = %v, want [alice]", members)
	}
}

func TestGroup_CreateValidation(t *testing.T) {
	groups := NewGroupManager(newFakeGroupStore(), NewRegistry(), NewRouter())
	ctx := context.Background()

	if _, err := groups.Create(ctx, "", "alice", nil); err == nil {
		t.Error("empty name should be rejected")
	}
	if _, err := groups.Create(ctx, "Squad", "", nil); err == nil {
		t.Error("empty creator should be rejected")
	}
}

func TestGroup_PersistFailureSuppressesNotifications(t *testing.T) {
	store := newFakeGroupStore()
	store.failCreate = true
	reg := NewRegistry()
	rt := NewRouter()
	groups := NewGroupManager(store, reg, rt)

	aliceSess, aliceConn := newFakeSession("c1")
	reg.Register("alice", aliceSess)

	_, err := groups.Create(context.Background(), "Squad", "alice", []domain.UserID{"bob"})
	var pe *PersistenceError
	if !errors.As(err, &pe) {
		t.Fatalf("Create() error = %v, want PersistenceError", err)
	}
	if aliceConn.count() != 0 {
		t.Errorf("got %d frames after failed persist, want 0", aliceConn.count())
	}
}
