package signal

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Meet/internal/cache"
	"github.com/dkeye/Meet/internal/core"
	"github.com/dkeye/Meet/internal/domain"
)

func (ctl *SignalWSController) handleCreateRoom(ctx context.Context, sid domain.MemberID, data []byte) (map[string]any, error) {
	var req struct {
		RoomID            string `json:"roomId"`
		UserName          string `json:"userName" validate:"required,max=36"`
		ReconnectionToken string `json:"reconnectionToken"`
	}
	if err := ctl.bind(data, &req); err != nil {
		return nil, err
	}
	if roomID, ok := ctl.Rooms.RoomOfConn(sid); ok {
		return nil, core.NewError(core.KindValidation, core.CodeBadPayload, "already in room %s", roomID)
	}

	room, err := ctl.Rooms.CreateRoom(domain.RoomID(req.RoomID), sid)
	if err != nil {
		return nil, err
	}
	res, err := ctl.Rooms.AddParticipant(room.ID, sid, req.UserName, domain.ReconnectToken(req.ReconnectionToken))
	if err != nil {
		return nil, err
	}

	ctl.putPresence(ctx, res.Room.ID, res.Participant, true)
	return map[string]any{
		"room":              res.Room,
		"participant":       res.Participant,
		"reconnectionToken": res.Token,
	}, nil
}

func (ctl *SignalWSController) handleJoinRoom(ctx context.Context, sid domain.MemberID, data []byte) (map[string]any, error) {
	var req struct {
		RoomID            string `json:"roomId" validate:"required"`
		UserName          string `json:"userName" validate:"required,max=36"`
		ReconnectionToken string `json:"reconnectionToken"`
	}
	if err := ctl.bind(data, &req); err != nil {
		return nil, err
	}

	res, err := ctl.Rooms.AddParticipant(domain.RoomID(req.RoomID), sid, req.UserName, domain.ReconnectToken(req.ReconnectionToken))
	if err != nil {
		return nil, err
	}

	event := "joined"
	if res.IsReconnection {
		event = "reconnected"
	}
	ctl.broadcastRoomUpdated(res.Room, sid, event, res.Participant, "")
	ctl.putPresence(ctx, res.Room.ID, res.Participant, true)
	return map[string]any{
		"room":              res.Room,
		"participant":       res.Participant,
		"participants":      res.Room.Participants,
		"reconnectionToken": res.Token,
	}, nil
}

// handleReconnectRoom is join-room with the stored profile: no fresh
// username, just the token.
func (ctl *SignalWSController) handleReconnectRoom(ctx context.Context, sid domain.MemberID, data []byte) (map[string]any, error) {
	var req struct {
		RoomID            string `json:"roomId" validate:"required"`
		ReconnectionToken string `json:"reconnectionToken" validate:"required"`
	}
	if err := ctl.bind(data, &req); err != nil {
		return nil, err
	}

	roomID := domain.RoomID(req.RoomID)
	token := domain.ReconnectToken(req.ReconnectionToken)
	if !ctl.Rooms.ValidateReconnectToken(token, roomID) {
		return nil, core.ErrInvalidToken
	}

	res, err := ctl.Rooms.AddParticipant(roomID, sid, "", token)
	if err != nil {
		return nil, err
	}

	ctl.broadcastRoomUpdated(res.Room, sid, "reconnected", res.Participant, "")
	ctl.putPresence(ctx, res.Room.ID, res.Participant, true)
	return map[string]any{
		"room":              res.Room,
		"participant":       res.Participant,
		"participants":      res.Room.Participants,
		"reconnectionToken": res.Token,
	}, nil
}

func (ctl *SignalWSController) handleLeaveRoom(ctx context.Context, sid domain.MemberID, data []byte) (map[string]any, error) {
	var req struct {
		RoomID string `json:"roomId" validate:"required"`
	}
	if err := ctl.bind(data, &req); err != nil {
		return nil, err
	}

	res, ok := ctl.Rooms.RemoveParticipant(sid, true)
	if !ok {
		// leaving a room one was never in is not an error
		return map[string]any{}, nil
	}

	ctl.broadcastRoomUpdated(res.Room, sid, "left", res.Participant, sid)
	ctl.dropPresence(ctx, res.RoomID, sid)
	return map[string]any{}, nil
}

func (ctl *SignalWSController) handleRoomInfo(sid domain.MemberID, data []byte) (map[string]any, error) {
	var req struct {
		RoomID string `json:"roomId" validate:"required"`
	}
	if err := ctl.bind(data, &req); err != nil {
		return nil, err
	}

	room, ok := ctl.Rooms.Snapshot(domain.RoomID(req.RoomID))
	if !ok {
		return nil, core.ErrRoomNotFound
	}
	return map[string]any{
		"room":         room,
		"participants": room.Participants,
	}, nil
}

// onDisconnect handles the transport-level disconnect: retain the
// participant for the reconnect window instead of deleting it.
func (ctl *SignalWSController) onDisconnect(ctx context.Context, sid domain.MemberID) {
	res, ok := ctl.Rooms.RemoveParticipant(sid, false)
	ctl.Registry.Unbind(sid)
	if !ok {
		return
	}
	ctl.broadcastRoomUpdated(res.Room, sid, "disconnected", res.Participant, "")
	ctl.putPresence(ctx, res.RoomID, res.Participant, false)
}

// putPresence shares a presence fact through the state cache. Called
// only after the room mutation has committed: cache I/O may block and
// must never run under the RoomManager mutex.
func (ctl *SignalWSController) putPresence(ctx context.Context, roomID domain.RoomID, p core.ParticipantDTO, online bool) {
	rec := cache.NewPresence(string(roomID), string(p.MemberID), p.Username, online, time.Now())
	key := cache.Key(cache.KindParticipant, string(roomID), string(p.MemberID))
	if err := putRecord(ctx, ctl.Cache, key, rec, ctl.Cfg.PresenceTTL); err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("key", key).Msg("presence write failed")
	}
}

func (ctl *SignalWSController) dropPresence(ctx context.Context, roomID domain.RoomID, sid domain.MemberID) {
	key := cache.Key(cache.KindParticipant, string(roomID), string(sid))
	if err := ctl.Cache.Delete(ctx, key); err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("key", key).Msg("presence delete failed")
	}
}
