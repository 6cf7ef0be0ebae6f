package app

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Meet/internal/core"
)

// Notifier receives room/participant lifecycle transitions after they
// commit. Implementations observe only: they run outside the manager
// mutex, get snapshots, and can neither block admission nor veto it.
// This is the seam a persistence or analytics collaborator plugs into.
type Notifier interface {
	RoomCreated(room core.RoomDTO)
	ParticipantJoined(room core.RoomDTO, p core.ParticipantDTO)
	ParticipantReconnected(room core.RoomDTO, p core.ParticipantDTO)
	ParticipantLeft(room core.RoomDTO, p core.ParticipantDTO)
	ParticipantDisconnected(room core.RoomDTO, p core.ParticipantDTO)
	RoomExpired(room core.RoomDTO)
}

type NopNotifier struct{}

func (NopNotifier) RoomCreated(core.RoomDTO)                                 {}
func (NopNotifier) ParticipantJoined(core.RoomDTO, core.ParticipantDTO)      {}
func (NopNotifier) ParticipantReconnected(core.RoomDTO, core.ParticipantDTO) {}
func (NopNotifier) ParticipantLeft(core.RoomDTO, core.ParticipantDTO)        {}
func (NopNotifier) ParticipantDisconnected(core.RoomDTO, core.ParticipantDTO) {
}
func (NopNotifier) RoomExpired(core.RoomDTO) {}

// LogNotifier is the default collaborator: structured lifecycle events
// for downstream log shipping.
type LogNotifier struct{}

func (LogNotifier) event(name string, room core.RoomDTO) *zerolog.Event {
	return log.Info().Str("module", "app.lifecycle").Str("event", name).Str("room", string(room.ID)).Int("connected", room.ConnectedCount())
}

func (n LogNotifier) RoomCreated(room core.RoomDTO) {
	n.event("room_created", room).Msg("lifecycle")
}

func (n LogNotifier) ParticipantJoined(room core.RoomDTO, p core.ParticipantDTO) {
	n.event("participant_joined", room).Str("member", string(p.MemberID)).Msg("lifecycle")
}

func (n LogNotifier) ParticipantReconnected(room core.RoomDTO, p core.ParticipantDTO) {
	n.event("participant_reconnected", room).Str("member", string(p.MemberID)).Msg("lifecycle")
}

func (n LogNotifier) ParticipantLeft(room core.RoomDTO, p core.ParticipantDTO) {
	n.event("participant_left", room).Str("member", string(p.MemberID)).Msg("lifecycle")
}

func (n LogNotifier) ParticipantDisconnected(room core.RoomDTO, p core.ParticipantDTO) {
	n.event("participant_disconnected", room).Str("member", string(p.MemberID)).Msg("lifecycle")
}

func (n LogNotifier) RoomExpired(room core.RoomDTO) {
	n.event("room_expired", room).Msg("lifecycle")
}
