package app

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Meet/internal/core"
	"github.com/dkeye/Meet/internal/domain"
)

// ForwardKind names one of the three negotiation message kinds. They
// share one relay path; only the soft-failure rule differs.
type ForwardKind int

const (
	ForwardOffer ForwardKind = iota
	ForwardAnswer
	ForwardCandidate
)

func (k ForwardKind) MessageType() string {
	switch k {
	case ForwardOffer:
		return "webrtc-offer"
	case ForwardAnswer:
		return "webrtc-answer"
	default:
		return "webrtc-ice-candidate"
	}
}

// softFail is true only for ICE candidates: a peer gone mid-negotiation
// is an expected race, and late candidates are silently dropped.
func (k ForwardKind) softFail() bool { return k == ForwardCandidate }

// Membership is the slice of RoomManager the relay needs.
type Membership interface {
	RoomOfConn(connID domain.MemberID) (domain.RoomID, bool)
}

// Conns is the slice of Registry the relay needs.
type Conns interface {
	Get(id domain.MemberID) (core.SignalConnection, bool)
}

// Relay forwards negotiation payloads between two room members. It
// holds no state: membership comes from RoomManager, delivery from the
// live-connection registry.
type Relay struct {
	Rooms Membership
	Conns Conns
}

func NewRelay(rooms Membership, conns Conns) *Relay {
	return &Relay{Rooms: rooms, Conns: conns}
}

// relayFrame is what the target receives: same kind as the inbound
// message, with the target field rewritten to the sender's member id
// so the recipient knows who to reply to. The payload is opaque and
// passes through untouched.
type relayFrame struct {
	Type           string          `json:"type"`
	RoomID         domain.RoomID   `json:"roomId"`
	TargetMemberID domain.MemberID `json:"targetMemberId"`
	Payload        json.RawMessage `json:"payload,omitempty"`
	Candidate      json.RawMessage `json:"candidate,omitempty"`
}

// Forward relays one negotiation message. A nil return in the
// soft-failure case means the candidate was dropped on purpose.
func (r *Relay) Forward(sender domain.MemberID, roomID domain.RoomID, target domain.MemberID, kind ForwardKind, payload json.RawMessage) error {
	senderRoom, ok := r.Rooms.RoomOfConn(sender)
	if !ok || senderRoom != roomID {
		return core.ErrNotInRoom
	}

	conn, ok := r.Conns.Get(target)
	if !ok {
		if kind.softFail() {
			log.Debug().Str("module", "app.relay").Str("target", string(target)).Msg("candidate target gone, dropping")
			return nil
		}
		return core.ErrTargetNotFound
	}

	frame := relayFrame{
		Type:           kind.MessageType(),
		RoomID:         roomID,
		TargetMemberID: sender,
	}
	if kind == ForwardCandidate {
		frame.Candidate = payload
	} else {
		frame.Payload = payload
	}
	b, err := json.Marshal(frame)
	if err != nil {
		return core.NewError(core.KindInternal, core.CodeInternal, "marshal relay frame: %v", err)
	}

	// Fire and forget: a backpressure drop on the target is the
	// target's problem, not the sender's.
	if err := conn.TrySend(core.Frame(b)); err != nil {
		log.Warn().Str("module", "app.relay").Str("target", string(target)).Err(err).Msg("relay send dropped")
	}
	return nil
}
