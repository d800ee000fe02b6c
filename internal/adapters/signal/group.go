package signal

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/huddle/internal/domain"
)

func (ctl *Controller) handleCreateGroup(ctx context.Context, conn *wsConn, data []byte) {
	type createPayload struct {
		Type      string   `json:"type"`
		Name      string   `json:"name" validate:"required"`
		Members   []string `json:"members"`
		CreatorID string   `json:"creatorId" validate:"required"`
	}
	var p createPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad createGroup payload")
		ctl.sendError(conn, "bad_payload")
		return
	}
	if err := ctl.validate.Struct(p); err != nil {
		ctl.sendError(conn, "missing fields")
		return
	}

	members := make([]domain.UserID, 0, len(p.Members))
	for _, m := range p.Members {
		members = append(members, domain.UserID(m))
	}

	if _, err := ctl.Orch.Groups.Create(ctx, p.Name, domain.UserID(p.CreatorID), members); err != nil {
		log.Error().Err(err).Str("module", "signal").Str("name", p.Name).Msg("create group")
		ctl.replyErr(conn, err)
	}
}
