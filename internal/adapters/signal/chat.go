package signal

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/huddle/internal/core"
	"github.com/dkeye/huddle/internal/domain"
)

func (ctl *Controller) handleJoinRoom(sess core.Session, conn *wsConn, data []byte) {
	type joinPayload struct {
		Type string `json:"type"`
		Room string `json:"room" validate:"required"`
	}
	var p joinPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad join payload")
		ctl.sendError(conn, "bad_payload")
		return
	}
	if err := ctl.validate.Struct(p); err != nil {
		ctl.sendError(conn, "missing room")
		return
	}

	ctl.Orch.Rooms.Join(sess, domain.RoomID(p.Room))
	ctl.sendJSON(conn, struct {
		Type string `json:"type"`
		Room string `json:"room"`
	}{Type: "joined", Room: p.Room})
}

func (ctl *Controller) handleSendMessage(ctx context.Context, sess core.Session, conn *wsConn, data []byte) {
	type messagePayload struct {
		Type   string `json:"type"`
		Text   string `json:"text" validate:"required"`
		UserID string `json:"userId" validate:"required"`
		Room   string `json:"room" validate:"required"`
	}
	var p messagePayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad message payload")
		ctl.sendError(conn, "bad_payload")
		return
	}
	if err := ctl.validate.Struct(p); err != nil {
		ctl.sendError(conn, "missing fields")
		return
	}

	// The registered identity wins over whatever the payload claims.
	uid := domain.UserID(p.UserID)
	if bound, ok := ctl.Orch.Registry.UserOf(sess.ID()); ok {
		uid = bound
	}

	if _, err := ctl.Orch.Chat.Send(ctx, domain.RoomID(p.Room), uid, p.Text); err != nil {
		log.Error().Err(err).Str("module", "signal").Str("room", p.Room).Msg("send message")
		ctl.replyErr(conn, err)
	}
}
