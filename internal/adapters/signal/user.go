package signal

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/huddle/internal/core"
	"github.com/dkeye/huddle/internal/domain"
)

// handleRegister binds the connection to a durable user identity and
// pushes the login-time group list. A later registration for the same
// identity replaces the earlier connection mapping.
func (ctl *Controller) handleRegister(ctx context.Context, sess core.Session, conn *wsConn, data []byte) {
	type registerPayload struct {
		Type   string `json:"type"`
		UserID string `json:"userId" validate:"required"`
	}
	var p registerPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad register payload")
		ctl.sendError(conn, "bad_payload")
		return
	}
	if err := ctl.validate.Struct(p); err != nil {
		ctl.sendError(conn, "missing userId")
		return
	}

	uid := domain.UserID(p.UserID)
	ctl.Orch.Registry.Register(uid, sess)

	groups, err := ctl.Orch.Groups.GroupsFor(ctx, uid)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Str("user", p.UserID).Msg("group list fetch")
		ctl.replyErr(conn, err)
		return
	}

	type groupEntry struct {
		ID          domain.GroupID `json:"id"`
		Name        string         `json:"name"`
		Description string         `json:"description"`
	}
	resp := struct {
		Type   string       `json:"type"`
		Groups []groupEntry `json:"groups"`
	}{
		Type:   "initialGroupList",
		Groups: make([]groupEntry, 0, len(groups)),
	}
	for _, g := range groups {
		resp.Groups = append(resp.Groups, groupEntry{ID: g.ID, Name: g.Name, Description: g.Description})
	}
	ctl.sendJSON(conn, resp)
}
