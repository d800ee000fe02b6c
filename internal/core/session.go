package core

// session pairs a connection handle with its transport endpoint.
type session struct {
	id   ConnID
	conn SignalConnection
}

func NewSession(id ConnID, conn SignalConnection) Session {
	return &session{id: id, conn: conn}
}

func (s *session) ID() ConnID               { return s.id }
func (s *session) Signal() SignalConnection { return s.conn }
