package domain

// RoomID names a fanout domain: a persistent chat group or an
// ephemeral call-negotiation session. Chat rooms use the group ID.
type RoomID string
