package app

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/huddle/internal/core"
	"github.com/dkeye/huddle/internal/domain"
)

// CallState is the lifecycle of one call attempt. Terminal states are
// never stored; the attempt is discarded when it reaches one.
type CallState int

const (
	CallIdle CallState = iota
	CallRinging
	CallConnecting
	CallEstablished
	CallRejected
	CallCancelled
	CallFailed
)

func (s CallState) String() string {
	switch s {
	case CallRinging:
		return "ringing"
	case CallConnecting:
		return "connecting"
	case CallEstablished:
		return "established"
	case CallRejected:
		return "rejected"
	case CallCancelled:
		return "cancelled"
	case CallFailed:
		return "failed"
	default:
		return "idle"
	}
}

// CallerInfo is the caller identity shown to the callee in the
// incoming-call event.
type CallerInfo struct {
	ID       domain.UserID `json:"id"`
	Username string        `json:"username,omitempty"`
}

type callAttempt struct {
	room       domain.RoomID
	caller     CallerInfo
	calleeID   domain.UserID
	callerConn core.ConnID
	calleeConn core.ConnID
	state      CallState

	joined       []core.ConnID
	peerNotified bool
	offerSeen    bool
	answerSeen   bool

	ringTimer *time.Timer
}

func (a *callAttempt) hasJoined(cid core.ConnID) bool {
	for _, j := range a.joined {
		if j == cid {
			return true
		}
	}
	return false
}

// CallCoordinator shepherds a call attempt from invitation to
// peer-connected to terminated, one attempt per room. SDP and ICE
// payloads pass through verbatim; this layer never inspects them.
type CallCoordinator struct {
	mu       sync.Mutex
	attempts map[domain.RoomID]*callAttempt
	byConn   map[core.ConnID]domain.RoomID

	registry    *Registry
	rooms       *Router
	ringTimeout time.Duration
}

func NewCallCoordinator(registry *Registry, rooms *Router, ringTimeout time.Duration) *CallCoordinator {
	return &CallCoordinator{
		attempts:    make(map[domain.RoomID]*callAttempt),
		byConn:      make(map[core.ConnID]domain.RoomID),
		registry:    registry,
		rooms:       rooms,
		ringTimeout: ringTimeout,
	}
}

// State reports the live attempt state for a room, CallIdle if none.
func (c *CallCoordinator) State(room domain.RoomID) CallState {
	c.mu.Lock()
	defer c.mu.Unlock()
	if a, ok := c.attempts[room]; ok {
		return a.state
	}
	return CallIdle
}

// Invite starts a call attempt. An unreachable callee fails the
// attempt immediately: the caller is notified and no state persists.
func (c *CallCoordinator) Invite(callerSess core.Session, caller CallerInfo, callee domain.UserID, room domain.RoomID) error {
	switch {
	case room == "":
		return &ValidationError{Field: "room", Reason: "required"}
	case callee == "":
		return &ValidationError{Field: "targetId", Reason: "required"}
	case caller.ID == "":
		return &ValidationError{Field: "from", Reason: "required"}
	}
	if _, ok := c.registry.Resolve(caller.ID); !ok {
		return &ValidationError{Field: "from", Reason: "caller not registered"}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if a, ok := c.attempts[room]; ok {
		return &StateConflictError{Room: room, Op: "invite", State: a.state}
	}

	calleeSess, ok := c.registry.Resolve(callee)
	if !ok {
		log.Info().Str("module", "app.call").Str("room", string(room)).Str("callee", string(callee)).Msg("invite to unreachable callee")
		c.send(callerSess, callStatusEvent{Type: EvCallFailed, Room: room, Reason: "unreachable"})
		return nil
	}

	a := &callAttempt{
		room:       room,
		caller:     caller,
		calleeID:   callee,
		callerConn: callerSess.ID(),
		calleeConn: calleeSess.ID(),
		state:      CallRinging,
	}
	if c.ringTimeout > 0 {
		a.ringTimer = time.AfterFunc(c.ringTimeout, func() { c.ringExpired(room) })
	}
	c.attempts[room] = a

	c.send(calleeSess, callIncomingEvent{Type: EvCallIncoming, From: caller, Room: room})
	log.Info().Str("module", "app.call").Str("room", string(room)).Str("caller", string(caller.ID)).Str("callee", string(callee)).Msg("ringing")
	return nil
}

// Accept moves RINGING to CONNECTING. Only the callee may accept.
func (c *CallCoordinator) Accept(room domain.RoomID, from core.ConnID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	a, err := c.transition(room, "accept", from)
	if err != nil {
		return err
	}
	a.state = CallConnecting
	c.notifyUser(a.caller.ID, callStatusEvent{Type: EvCallAccepted, Room: room})
	log.Info().Str("module", "app.call").Str("room", string(room)).Msg("accepted")
	return nil
}

// Reject terminates a RINGING attempt. The caller is notified and the
// attempt is discarded.
func (c *CallCoordinator) Reject(room domain.RoomID, from core.ConnID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	a, err := c.transition(room, "reject", from)
	if err != nil {
		return err
	}
	a.state = CallRejected
	c.notifyUser(a.caller.ID, callStatusEvent{Type: EvCallRejected, Room: room})
	c.discardLocked(a)
	log.Info().Str("module", "app.call").Str("room", string(room)).Msg("rejected")
	return nil
}

// transition validates an accept/reject request: the attempt must be
// RINGING and the request must come from the callee's identity.
func (c *CallCoordinator) transition(room domain.RoomID, op string, from core.ConnID) (*callAttempt, error) {
	a, ok := c.attempts[room]
	if !ok {
		return nil, &StateConflictError{Room: room, Op: op, State: CallIdle}
	}
	if a.state != CallRinging {
		return nil, &StateConflictError{Room: room, Op: op, State: a.state}
	}
	if uid, ok := c.registry.UserOf(from); !ok || uid != a.calleeID {
		return nil, &StateConflictError{Room: room, Op: op, State: a.state}
	}
	if a.ringTimer != nil {
		a.ringTimer.Stop()
	}
	return a, nil
}

// JoinMedia puts a party into the call's negotiation room. The second
// joiner triggers exactly one user-joined event to the first; that
// event is what kicks off the offer/answer exchange.
func (c *CallCoordinator) JoinMedia(sess core.Session, room domain.RoomID) error {
	if room == "" {
		return &ValidationError{Field: "room", Reason: "required"}
	}
	cid := sess.ID()

	c.mu.Lock()
	defer c.mu.Unlock()
	a, ok := c.attempts[room]
	if !ok {
		return &StateConflictError{Room: room, Op: "join", State: CallIdle}
	}
	if cur, ok := c.byConn[cid]; ok && cur != room {
		return &StateConflictError{Room: cur, Op: "join", State: c.attempts[cur].state}
	}
	if a.hasJoined(cid) {
		return nil
	}

	c.rooms.Join(sess, room)
	a.joined = append(a.joined, cid)
	c.byConn[cid] = room

	if len(a.joined) == 2 && !a.peerNotified {
		a.peerNotified = true
		first := a.joined[0]
		ev := peerJoinedEvent{Type: EvUserJoined, Room: room, Peer: string(cid)}
		if err := c.rooms.Unicast(first, ev); err != nil {
			log.Warn().Err(err).Str("module", "app.call").Str("room", string(room)).Msg("user-joined drop")
		}
	}
	return nil
}

// Relay forwards an opaque negotiation frame verbatim to the target
// connection. kind is one of offer, answer, ice-candidate; the first
// offer/answer pair moves a CONNECTING attempt to ESTABLISHED.
func (c *CallCoordinator) Relay(from core.ConnID, kind string, target core.ConnID, raw core.Frame) error {
	if target == "" {
		return &ValidationError{Field: "target", Reason: "required"}
	}
	if err := c.rooms.UnicastFrame(target, raw); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	room, ok := c.byConn[from]
	if !ok {
		return nil
	}
	a, ok := c.attempts[room]
	if !ok {
		return nil
	}
	switch kind {
	case "offer":
		a.offerSeen = true
	case "answer":
		a.answerSeen = true
	}
	if a.offerSeen && a.answerSeen && a.state == CallConnecting {
		a.state = CallEstablished
		log.Info().Str("module", "app.call").Str("room", string(room)).Msg("established")
	}
	return nil
}

// Disconnect terminates any attempt the connection participates in.
// The surviving party gets an explicit call-ended instead of being
// silently orphaned.
func (c *CallCoordinator) Disconnect(cid core.ConnID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, a := range c.attempts {
		if a.callerConn != cid && a.calleeConn != cid && !a.hasJoined(cid) {
			continue
		}
		a.state = CallCancelled
		survivor := a.calleeID
		if cid == a.calleeConn {
			survivor = a.caller.ID
		}
		c.notifyUser(survivor, callStatusEvent{Type: EvCallEnded, Room: a.room, Reason: "peer-left"})
		c.discardLocked(a)
		log.Info().Str("module", "app.call").Str("room", string(a.room)).Str("conn", string(cid)).Msg("cancelled on disconnect")
	}
}

func (c *CallCoordinator) ringExpired(room domain.RoomID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	a, ok := c.attempts[room]
	if !ok || a.state != CallRinging {
		return
	}
	a.state = CallFailed
	c.notifyUser(a.caller.ID, callStatusEvent{Type: EvCallFailed, Room: room, Reason: "ring-timeout"})
	c.notifyUser(a.calleeID, callStatusEvent{Type: EvCallEnded, Room: room, Reason: "ring-timeout"})
	c.discardLocked(a)
	log.Info().Str("module", "app.call").Str("room", string(room)).Msg("ring timeout")
}

// discardLocked tears the attempt down: timer stopped, negotiation
// room emptied, indexes cleared. Caller holds c.mu.
func (c *CallCoordinator) discardLocked(a *callAttempt) {
	if a.ringTimer != nil {
		a.ringTimer.Stop()
	}
	for _, cid := range a.joined {
		c.rooms.LeaveRoom(cid, a.room)
		if c.byConn[cid] == a.room {
			delete(c.byConn, cid)
		}
	}
	delete(c.attempts, a.room)
}

func (c *CallCoordinator) notifyUser(uid domain.UserID, v any) {
	sess, ok := c.registry.Resolve(uid)
	if !ok {
		return
	}
	c.send(sess, v)
}

func (c *CallCoordinator) send(sess core.Session, v any) {
	if err := c.rooms.Send(sess, v); err != nil {
		log.Warn().Err(err).Str("module", "app.call").Str("conn", string(sess.ID())).Msg("call event drop")
	}
}
