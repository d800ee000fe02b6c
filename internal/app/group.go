package app

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/huddle/internal/domain"
)

// GroupStore persists groups and their membership rows. CreateGroup
// must be atomic: either the group and every membership row land, or
// nothing does.
type GroupStore interface {
	CreateGroup(ctx context.Context, g *domain.Group, members []domain.UserID) error
	GroupsByUser(ctx context.Context, uid domain.UserID) ([]domain.Group, error)
}

// GroupManager creates chat groups and notifies the members that are
// currently connected. Offline members discover the group through the
// login-time group list.
type GroupManager struct {
	store    GroupStore
	registry *Registry
	rooms    *Router
}

func NewGroupManager(store GroupStore, registry *Registry, rooms *Router) *GroupManager {
	return &GroupManager{store: store, registry: registry, rooms: rooms}
}

func (g *GroupManager) Create(ctx context.Context, name string, creator domain.UserID, members []domain.UserID) (*domain.Group, error) {
	switch {
	case name == "":
		return nil, &ValidationError{Field: "name", Reason: "required"}
	case creator == "":
		return nil, &ValidationError{Field: "creatorId", Reason: "required"}
	}

	seen := make(map[domain.UserID]struct{}, len(members)+1)
	all := make([]domain.UserID, 0, len(members)+1)
	for _, m := range append([]domain.UserID{creator}, members...) {
		if m == "" {
			continue
		}
		if _, ok := seen[m]; ok {
			continue
		}
		seen[m] = struct{}{}
		all = append(all, m)
	}

	grp := &domain.Group{
		ID:          domain.GroupID(uuid.NewString()),
		Name:        name,
		Description: fmt.Sprintf("Group of %d members", len(all)),
		CreatorID:   creator,
	}
	if err := g.store.CreateGroup(ctx, grp, all); err != nil {
		return nil, &PersistenceError{Op: "create group", Err: err}
	}
	log.Info().Str("module", "app.group").Str("group", string(grp.ID)).Int("members", len(all)).Msg("group created")

	ev := groupAddedEvent{
		Type:      EvNewGroupAdded,
		groupInfo: groupInfo{ID: grp.ID, Name: grp.Name, Description: grp.Description},
	}
	for _, uid := range all {
		sess, ok := g.registry.Resolve(uid)
		if !ok {
			continue
		}
		if err := g.rooms.Send(sess, ev); err != nil {
			log.Warn().Err(err).Str("module", "app.group").Str("user", string(uid)).Msg("group notify drop")
		}
	}
	return grp, nil
}

// GroupsFor is the post-registration sync: the groups a user belongs to.
func (g *GroupManager) GroupsFor(ctx context.Context, uid domain.UserID) ([]domain.Group, error) {
	groups, err := g.store.GroupsByUser(ctx, uid)
	if err != nil {
		return nil, &PersistenceError{Op: "list groups", Err: err}
	}
	return groups, nil
}
