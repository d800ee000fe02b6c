package app

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/huddle/internal/core"
	"github.com/dkeye/huddle/internal/domain"
)

// Registry is the single source of truth for "is this user reachable".
// It maps durable user identity to the ephemeral connection session,
// last writer wins: a later registration for the same user replaces
// the earlier mapping without trying to detect stale sessions.
type Registry struct {
	mu     sync.RWMutex
	byUser map[domain.UserID]core.Session
	byConn map[core.ConnID]domain.UserID
}

func NewRegistry() *Registry {
	return &Registry{
		byUser: make(map[domain.UserID]core.Session),
		byConn: make(map[core.ConnID]domain.UserID),
	}
}

func (r *Registry) Register(uid domain.UserID, sess core.Session) {
	if uid == "" || sess == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if prev, ok := r.byUser[uid]; ok && prev.ID() != sess.ID() {
		delete(r.byConn, prev.ID())
	}
	// The connection re-registering as someone else drops its old identity.
	if prevUID, ok := r.byConn[sess.ID()]; ok && prevUID != uid {
		if prevSess, ok := r.byUser[prevUID]; ok && prevSess.ID() == sess.ID() {
			delete(r.byUser, prevUID)
		}
	}
	r.byUser[uid] = sess
	r.byConn[sess.ID()] = uid
	log.Info().Str("module", "app.registry").Str("user", string(uid)).Str("conn", string(sess.ID())).Msg("registered")
}

// Resolve returns the live session for a user. A miss means
// "unreachable", not an error.
func (r *Registry) Resolve(uid domain.UserID) (core.Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sess, ok := r.byUser[uid]
	return sess, ok
}

func (r *Registry) UserOf(cid core.ConnID) (domain.UserID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	uid, ok := r.byConn[cid]
	return uid, ok
}

// Unregister retires a connection handle. Idempotent, and a no-op for
// handles that were never registered. A newer registration for the
// same user (different handle) is left untouched.
func (r *Registry) Unregister(cid core.ConnID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	uid, ok := r.byConn[cid]
	if !ok {
		return
	}
	delete(r.byConn, cid)
	if sess, ok := r.byUser[uid]; ok && sess.ID() == cid {
		delete(r.byUser, uid)
	}
	log.Info().Str("module", "app.registry").Str("user", string(uid)).Str("conn", string(cid)).Msg("unregistered")
}
