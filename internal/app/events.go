package app

import "github.com/dkeye/huddle/internal/domain"

// Wire event names. Inbound counterparts are dispatched in the
// signal adapter; these are the ones the coordinators emit.
const (
	EvReceiveMessage = "receiveMessage"
	EvNewGroupAdded  = "newGroupAdded"
	EvCallIncoming   = "call-incoming"
	EvCallAccepted   = "call-accepted"
	EvCallRejected   = "call-rejected"
	EvCallFailed     = "call-failed"
	EvCallEnded      = "call-ended"
	EvUserJoined     = "user-joined"
)

type receiveMessageEvent struct {
	Type string `json:"type"`
	domain.Message
}

type groupInfo struct {
	ID          domain.GroupID `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
}

type groupAddedEvent struct {
	Type string `json:"type"`
	groupInfo
}

type callIncomingEvent struct {
	Type string        `json:"type"`
	From CallerInfo    `json:"from"`
	Room domain.RoomID `json:"room"`
}

type callStatusEvent struct {
	Type   string        `json:"type"`
	Room   domain.RoomID `json:"room"`
	Reason string        `json:"reason,omitempty"`
}

type peerJoinedEvent struct {
	Type string        `json:"type"`
	Room domain.RoomID `json:"room"`
	Peer string        `json:"peer"`
}
