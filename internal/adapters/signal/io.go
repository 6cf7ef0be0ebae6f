package signal

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Meet/internal/core"
	"github.com/dkeye/Meet/internal/domain"
)

func (ctl *SignalWSController) writePump(ctx context.Context, c *WsSignalConn) {
	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "signal").Msg("writePump ctx done")
			return
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

func (ctl *SignalWSController) readPump(ctx context.Context, sid domain.MemberID, c *WsSignalConn) {
	defer func() {
		log.Info().Str("module", "signal").Str("conn", string(sid)).Msg("readPump closing")
		ctl.onDisconnect(ctx, sid)
		c.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "signal").Str("conn", string(sid)).Msg("readPump ctx done")
			return
		default:
			_, data, err := c.conn.ReadMessage()
			if err != nil {
				log.Error().Err(err).Str("module", "signal").Str("conn", string(sid)).Msg("readPump read error")
				return
			}
			ctl.dispatch(ctx, sid, c, data)
		}
	}
}

// dispatch routes one inbound message and guarantees exactly one
// acknowledgement per request, whatever the handler does. Panics are
// recovered, logged with context and acked as a generic internal error.
func (ctl *SignalWSController) dispatch(ctx context.Context, sid domain.MemberID, c *WsSignalConn, data []byte) {
	var env struct {
		Type  string `json:"type"`
		ReqID string `json:"reqId"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad json")
		ctl.ack(c, "", nil, core.NewError(core.KindValidation, core.CodeBadPayload, "malformed message"))
		return
	}

	if env.Type == "ping" {
		ctl.handlePing(c)
		return
	}

	var payload map[string]any
	var err error
	func() {
		defer func() {
			if r := recover(); r != nil {
				log.Error().Str("module", "signal").Str("conn", string(sid)).Str("type", env.Type).Any("panic", r).Msg("handler panic")
				err = core.NewError(core.KindInternal, core.CodeInternal, "internal error")
			}
		}()
		switch env.Type {
		case "create-room":
			payload, err = ctl.handleCreateRoom(ctx, sid, data)
		case "join-room":
			payload, err = ctl.handleJoinRoom(ctx, sid, data)
		case "reconnect-room":
			payload, err = ctl.handleReconnectRoom(ctx, sid, data)
		case "leave-room":
			payload, err = ctl.handleLeaveRoom(ctx, sid, data)
		case "get-room-info":
			payload, err = ctl.handleRoomInfo(sid, data)
		case "webrtc-offer":
			payload, err = ctl.handleOffer(sid, data)
		case "webrtc-answer":
			payload, err = ctl.handleAnswer(sid, data)
		case "webrtc-ice-candidate":
			payload, err = ctl.handleCandidate(sid, data)
		case "typing":
			payload, err = ctl.handleTyping(ctx, sid, data)
		case "peer-state":
			payload, err = ctl.handlePeerState(ctx, sid, data)
		default:
			log.Warn().Str("module", "signal").Str("type", env.Type).Msg("unknown signal")
			err = core.NewError(core.KindValidation, core.CodeBadPayload, "unknown message type %q", env.Type)
		}
	}()
	ctl.ack(c, env.ReqID, payload, err)
}

// ack sends the single response for one request. Internal faults never
// leak detail past their code.
func (ctl *SignalWSController) ack(c *WsSignalConn, reqID string, payload map[string]any, err error) {
	msg := map[string]any{"type": "ack", "success": err == nil}
	if reqID != "" {
		msg["reqId"] = reqID
	}
	if err != nil {
		msg["code"] = core.CodeOf(err)
		if core.KindOf(err) == core.KindInternal {
			msg["error"] = "internal error"
		} else {
			msg["error"] = err.Error()
		}
	} else {
		for k, v := range payload {
			msg[k] = v
		}
	}
	ctl.sendJSON(c, msg)
}

// bind unmarshals and validates a request payload before anything
// touches the room registry.
func (ctl *SignalWSController) bind(data []byte, req any) error {
	if err := json.Unmarshal(data, req); err != nil {
		return core.NewError(core.KindValidation, core.CodeBadPayload, "malformed payload")
	}
	if err := ctl.validate.Struct(req); err != nil {
		return core.NewError(core.KindValidation, core.CodeBadPayload, "invalid payload: %v", err)
	}
	return nil
}

func (ctl *SignalWSController) sendJSON(c core.SignalConnection, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("sendJSON marshal")
		return
	}
	_ = c.TrySend(core.Frame(b))
}
