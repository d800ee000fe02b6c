package app

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/dkeye/huddle/internal/core"
	"github.com/dkeye/huddle/internal/domain"
)

// fakeConn records every frame handed to it.
type fakeConn struct {
	mu     sync.Mutex
	frames []core.Frame
	closed bool
	fail   bool
}

func (f *fakeConn) TrySend(frame core.Frame) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail || f.closed {
		return errors.New("connection closed")
	}
	f.frames = append(f.frames, frame)
	return nil
}

func (f *fakeConn) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
}

func (f *fakeConn) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.frames)
}

// events decodes every recorded frame into a generic map.
func (f *fakeConn) events(t *testing.T) []map[string]any {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]map[string]any, 0, len(f.frames))
	for _, frame := range f.frames {
		var m map[string]any
		if err := json.Unmarshal(frame, &m); err != nil {
			t.Fatalf("undecodable frame %q: %v", frame, err)
		}
		out = append(out, m)
	}
	return out
}

// eventsOfType filters recorded frames by their type field.
func (f *fakeConn) eventsOfType(t *testing.T, typ string) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, ev := range f.events(t) {
		if ev["type"] == typ {
			out = append(out, ev)
		}
	}
	return out
}

func newFakeSession(id string) (core.Session, *fakeConn) {
	conn := &fakeConn{}
	return core.NewSession(core.ConnID(id), conn), conn
}

// fakeMessageStore keeps messages in memory and can be told to fail.
type fakeMessageStore struct {
	mu       sync.Mutex
	messages []domain.Message
	failSave bool
}

func (s *fakeMessageStore) SaveMessage(_ context.Context, m *domain.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failSave {
		return errors.New("disk on fire")
	}
	s.messages = append(s.messages, *m)
	return nil
}

func (s *fakeMessageStore) MessagesByRoom(_ context.Context, room domain.RoomID) ([]domain.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Message
	for _, m := range s.messages {
		if m.RoomID == room {
			out = append(out, m)
		}
	}
	return out, nil
}

// fakeGroupStore records created groups and can be told to fail.
type fakeGroupStore struct {
	mu         sync.Mutex
	groups     []domain.Group
	members    map[domain.GroupID][]domain.UserID
	failCreate bool
}

func newFakeGroupStore() *fakeGroupStore {
	return &fakeGroupStore{members: make(map[domain.GroupID][]domain.UserID)}
}

func (s *fakeGroupStore) CreateGroup(_ context.Context, g *domain.Group, members []domain.UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failCreate {
		return errors.New("disk on fire")
	}
	s.groups = append(s.groups, *g)
	s.members[g.ID] = append([]domain.UserID(nil), members...)
	return nil
}

func (s *fakeGroupStore) GroupsByUser(_ context.Context, uid domain.UserID) ([]domain.Group, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Group
	for _, g := range s.groups {
		for _, m := range s.members[g.ID] {
			if m == uid {
				out = append(out, g)
				break
			}
		}
	}
	return out, nil
}
