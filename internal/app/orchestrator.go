package app

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/huddle/internal/core"
	"github.com/dkeye/huddle/internal/domain"
)

// UserDirectory is the read-only view of the identity store's user
// rows, used for the contact list.
type UserDirectory interface {
	UsersExcept(ctx context.Context, uid domain.UserID) ([]domain.User, error)
}

// Orchestrator wires the relay core together and owns the one
// cross-cutting flow: connection teardown.
type Orchestrator struct {
	Registry *Registry
	Rooms    *Router
	Chat     *ChatCoordinator
	Groups   *GroupManager
	Calls    *CallCoordinator
	Users    UserDirectory
}

// Disconnect fully retires a connection handle: any in-flight call
// attempt goes terminal, room membership is dropped, then the
// identity mapping is removed. Runs exactly once per connection.
func (o *Orchestrator) Disconnect(cid core.ConnID) {
	o.Calls.Disconnect(cid)
	o.Rooms.Leave(cid)
	o.Registry.Unregister(cid)
	log.Info().Str("module", "app.orch").Str("conn", string(cid)).Msg("connection retired")
}
