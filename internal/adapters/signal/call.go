package signal

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/huddle/internal/app"
	"github.com/dkeye/huddle/internal/core"
	"github.com/dkeye/huddle/internal/domain"
)

func (ctl *Controller) handleCallInvite(sess core.Session, conn *wsConn, data []byte) {
	type invitePayload struct {
		Type     string         `json:"type"`
		TargetID string         `json:"targetId" validate:"required"`
		Room     string         `json:"room" validate:"required"`
		From     app.CallerInfo `json:"from"`
	}
	var p invitePayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad invite payload")
		ctl.sendError(conn, "bad_payload")
		return
	}
	if err := ctl.validate.Struct(p); err != nil {
		ctl.sendError(conn, "missing fields")
		return
	}
	// The registered identity is authoritative for who is calling.
	if uid, ok := ctl.Orch.Registry.UserOf(sess.ID()); ok {
		p.From.ID = uid
	}

	err := ctl.Orch.Calls.Invite(sess, p.From, domain.UserID(p.TargetID), domain.RoomID(p.Room))
	if err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("room", p.Room).Msg("call invite")
		ctl.replyErr(conn, err)
	}
}

func (ctl *Controller) handleCallAccepted(sess core.Session, conn *wsConn, data []byte) {
	room, ok := ctl.callRoom(conn, data)
	if !ok {
		return
	}
	if err := ctl.Orch.Calls.Accept(room, sess.ID()); err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("room", string(room)).Msg("call accept")
		ctl.replyErr(conn, err)
	}
}

func (ctl *Controller) handleCallRejected(sess core.Session, conn *wsConn, data []byte) {
	room, ok := ctl.callRoom(conn, data)
	if !ok {
		return
	}
	if err := ctl.Orch.Calls.Reject(room, sess.ID()); err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("room", string(room)).Msg("call reject")
		ctl.replyErr(conn, err)
	}
}

func (ctl *Controller) handleJoinVideoRoom(sess core.Session, conn *wsConn, data []byte) {
	room, ok := ctl.callRoom(conn, data)
	if !ok {
		return
	}
	if err := ctl.Orch.Calls.JoinMedia(sess, room); err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("room", string(room)).Msg("join video room")
		ctl.replyErr(conn, err)
	}
}

// handleRelay forwards offer/answer/ice-candidate frames verbatim.
// Only the target field is read; the SDP or candidate body is opaque
// here and passed through untouched.
func (ctl *Controller) handleRelay(sess core.Session, conn *wsConn, kind string, data []byte) {
	type relayPayload struct {
		Type   string `json:"type"`
		Target string `json:"target" validate:"required"`
	}
	var p relayPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad relay payload")
		ctl.sendError(conn, "bad_payload")
		return
	}
	if err := ctl.validate.Struct(p); err != nil {
		ctl.sendError(conn, "missing target")
		return
	}

	err := ctl.Orch.Calls.Relay(sess.ID(), kind, core.ConnID(p.Target), core.Frame(data))
	if err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("kind", kind).Msg("relay")
		ctl.replyErr(conn, err)
	}
}

func (ctl *Controller) callRoom(conn *wsConn, data []byte) (domain.RoomID, bool) {
	type roomPayload struct {
		Type string `json:"type"`
		Room string `json:"room" validate:"required"`
	}
	var p roomPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad call payload")
		ctl.sendError(conn, "bad_payload")
		return "", false
	}
	if err := ctl.validate.Struct(p); err != nil {
		ctl.sendError(conn, "missing room")
		return "", false
	}
	return domain.RoomID(p.Room), true
}
