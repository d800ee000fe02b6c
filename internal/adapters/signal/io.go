package signal

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/huddle/internal/app"
	"github.com/dkeye/huddle/internal/core"
)

func (ctl *Controller) writePump(ctx context.Context, c *wsConn) {
	ticker := time.NewTicker(ctl.pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "signal").Msg("writePump ctx done")
			return
		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Info().Err(err).Str("module", "signal").Msg("writePump ping error")
				return
			}
		case data, ok := <-c.send:
			if !ok {
				log.Warn().Str("module", "signal").Msg("writePump channel closed")
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second)); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump write error")
				return
			}
		}
	}
}

func (ctl *Controller) readPump(ctx context.Context, cancel context.CancelFunc, sess core.Session, c *wsConn) {
	cid := sess.ID()
	defer func() {
		log.Info().Str("module", "signal").Str("conn", string(cid)).Msg("readPump closing")
		ctl.Orch.Disconnect(cid)
		c.Close()
		cancel()
	}()

	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "signal").Str("conn", string(cid)).Msg("readPump ctx done")
			return
		default:
			_, data, err := c.conn.ReadMessage()
			if err != nil {
				log.Info().Err(err).Str("module", "signal").Str("conn", string(cid)).Msg("readPump read error")
				return
			}
			ctl.dispatch(ctx, sess, c, data)
		}
	}
}

func (ctl *Controller) dispatch(ctx context.Context, sess core.Session, c *wsConn, data []byte) {
	var env struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad json")
		ctl.sendError(c, "bad_payload")
		return
	}

	// Handlers get a context that survives the connection's teardown:
	// a disconnect mid-operation must not abort the persist for the
	// members still there.
	opCtx := context.WithoutCancel(ctx)

	switch env.Type {
	case "registerUser":
		ctl.handleRegister(opCtx, sess, c, data)
	case "joinRoom":
		ctl.handleJoinRoom(sess, c, data)
	case "sendMessage":
		ctl.handleSendMessage(opCtx, sess, c, data)
	case "createGroup":
		ctl.handleCreateGroup(opCtx, c, data)
	case "call-invite":
		ctl.handleCallInvite(sess, c, data)
	case "call-accepted":
		ctl.handleCallAccepted(sess, c, data)
	case "call-rejected":
		ctl.handleCallRejected(sess, c, data)
	case "join-video-room":
		ctl.handleJoinVideoRoom(sess, c, data)
	case "offer", "answer", "ice-candidate":
		ctl.handleRelay(sess, c, env.Type, data)
	case "ping":
		ctl.handlePing(c)
	default:
		log.Warn().Str("module", "signal").Str("type", env.Type).Msg("unknown event")
		ctl.sendError(c, "unknown_event")
	}
}

func (ctl *Controller) handlePing(c *wsConn) {
	ctl.sendJSON(c, struct {
		Type string `json:"type"`
	}{Type: "pong"})
}

func (ctl *Controller) sendJSON(c *wsConn, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("sendJSON marshal")
		return
	}
	_ = c.TrySend(b)
}

func (ctl *Controller) sendError(c *wsConn, code string) {
	ctl.sendJSON(c, map[string]any{
		"type":  "error",
		"error": code,
	})
}

// replyErr maps the core's error taxonomy to an error event for the
// initiating connection only. Nothing here is fatal to other sessions.
func (ctl *Controller) replyErr(c *wsConn, err error) {
	var (
		ve *app.ValidationError
		ue *app.UnreachableTargetError
		pe *app.PersistenceError
		se *app.StateConflictError
	)
	switch {
	case errors.As(err, &ve):
		ctl.sendJSON(c, map[string]any{"type": "error", "error": "invalid_payload", "detail": ve.Error()})
	case errors.As(err, &ue):
		ctl.sendJSON(c, map[string]any{"type": "error", "error": "target_unreachable", "detail": ue.Target})
	case errors.As(err, &pe):
		ctl.sendJSON(c, map[string]any{"type": "error", "error": "storage_failed"})
	case errors.As(err, &se):
		ctl.sendJSON(c, map[string]any{"type": "error", "error": "state_conflict", "detail": se.Error()})
	default:
		ctl.sendJSON(c, map[string]any{"type": "error", "error": "internal"})
	}
}
