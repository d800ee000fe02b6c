package core

// Frame is a raw signaling payload, already encoded for the wire.
type Frame []byte

// ConnID identifies one live transport session, independent of user
// identity. A new one is minted per connection and dies with it.
type ConnID string

// SignalConnection abstracts the messaging transport.
// Owned by the adapter; the adapter must Close() it.
type SignalConnection interface {
	TrySend(Frame) error
	Close()
}

// Session binds a connection handle to its signaling endpoint.
// This is what the registry and router store and fan out to.
type Session interface {
	ID() ConnID
	Signal() SignalConnection
}
