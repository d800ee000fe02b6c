package app

import (
	"encoding/json"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/huddle/internal/core"
	"github.com/dkeye/huddle/internal/domain"
)

// Router owns process-local room membership and fanout. Membership is
// set-valued: a connection may sit in several chat rooms at once and
// is removed from all of them on disconnect. Nothing here is
// persisted; a reconnecting client re-joins its rooms explicitly.
type Router struct {
	mu     sync.RWMutex
	rooms  map[domain.RoomID]map[core.ConnID]core.Session
	joined map[core.ConnID]map[domain.RoomID]struct{}
	conns  map[core.ConnID]core.Session
}

func NewRouter() *Router {
	return &Router{
		rooms:  make(map[domain.RoomID]map[core.ConnID]core.Session),
		joined: make(map[core.ConnID]map[domain.RoomID]struct{}),
		conns:  make(map[core.ConnID]core.Session),
	}
}

// Join adds the session to a room. Empty room IDs are a no-op.
func (rt *Router) Join(sess core.Session, room domain.RoomID) {
	if room == "" || sess == nil {
		return
	}
	cid := sess.ID()
	rt.mu.Lock()
	defer rt.mu.Unlock()
	members, ok := rt.rooms[room]
	if !ok {
		members = make(map[core.ConnID]core.Session)
		rt.rooms[room] = members
	}
	members[cid] = sess
	set, ok := rt.joined[cid]
	if !ok {
		set = make(map[domain.RoomID]struct{})
		rt.joined[cid] = set
	}
	set[room] = struct{}{}
	rt.conns[cid] = sess
	log.Info().Str("module", "app.router").Str("conn", string(cid)).Str("room", string(room)).Msg("joined room")
}

// LeaveRoom removes the connection from one room only.
func (rt *Router) LeaveRoom(cid core.ConnID, room domain.RoomID) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	rt.dropLocked(cid, room)
}

// Leave removes the connection from every room it occupies. Called on
// disconnect; safe for handles that never joined anything.
func (rt *Router) Leave(cid core.ConnID) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	for room := range rt.joined[cid] {
		rt.dropLocked(cid, room)
	}
	delete(rt.conns, cid)
}

func (rt *Router) dropLocked(cid core.ConnID, room domain.RoomID) {
	if members, ok := rt.rooms[room]; ok {
		delete(members, cid)
		if len(members) == 0 {
			delete(rt.rooms, room)
		}
	}
	if set, ok := rt.joined[cid]; ok {
		delete(set, room)
		if len(set) == 0 {
			delete(rt.joined, cid)
		}
	}
}

// Broadcast delivers v to every connection joined to the room at call
// time, the sender's own connection included. Returns the number of
// connections the payload was handed to.
func (rt *Router) Broadcast(room domain.RoomID, v any) int {
	frame, err := encode(v)
	if err != nil {
		log.Error().Err(err).Str("module", "app.router").Str("room", string(room)).Msg("broadcast marshal")
		return 0
	}
	rt.mu.RLock()
	members := make([]core.Session, 0, len(rt.rooms[room]))
	for _, sess := range rt.rooms[room] {
		members = append(members, sess)
	}
	rt.mu.RUnlock()

	sent := 0
	for _, sess := range members {
		if err := sess.Signal().TrySend(frame); err != nil {
			log.Warn().Err(err).Str("module", "app.router").Str("conn", string(sess.ID())).Msg("broadcast drop")
			continue
		}
		sent++
	}
	return sent
}

// Send marshals v and delivers it to one session directly.
func (rt *Router) Send(sess core.Session, v any) error {
	frame, err := encode(v)
	if err != nil {
		return err
	}
	return sess.Signal().TrySend(frame)
}

// Unicast delivers v to a connection handle known to the router.
// Handles that are gone yield an UnreachableTargetError.
func (rt *Router) Unicast(cid core.ConnID, v any) error {
	frame, err := encode(v)
	if err != nil {
		return err
	}
	return rt.UnicastFrame(cid, frame)
}

// UnicastFrame forwards an already-encoded frame verbatim. Used for
// opaque SDP/ICE relays, which must not be re-interpreted here.
func (rt *Router) UnicastFrame(cid core.ConnID, frame core.Frame) error {
	rt.mu.RLock()
	sess, ok := rt.conns[cid]
	rt.mu.RUnlock()
	if !ok {
		return &UnreachableTargetError{Target: string(cid)}
	}
	return sess.Signal().TrySend(frame)
}

// Member looks up one connection inside a room.
func (rt *Router) Member(room domain.RoomID, cid core.ConnID) (core.Session, bool) {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	sess, ok := rt.rooms[room][cid]
	return sess, ok
}

func (rt *Router) MemberCount(room domain.RoomID) int {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	return len(rt.rooms[room])
}

func encode(v any) (core.Frame, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return core.Frame(b), nil
}
