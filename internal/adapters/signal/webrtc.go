package signal

import (
	"encoding/json"

	"github.com/dkeye/Meet/internal/app"
	"github.com/dkeye/Meet/internal/domain"
)

// The three negotiation handlers are one relay call each. Payloads are
// opaque to this server: no SDP or candidate parsing here, ever.

type relayRequest struct {
	RoomID         string          `json:"roomId" validate:"required"`
	TargetMemberID string          `json:"targetMemberId" validate:"required"`
	Payload        json.RawMessage `json:"payload"`
	Candidate      json.RawMessage `json:"candidate"`
}

func (ctl *SignalWSController) relay(sid domain.MemberID, data []byte, kind app.ForwardKind) (map[string]any, error) {
	var req relayRequest
	if err := ctl.bind(data, &req); err != nil {
		return nil, err
	}
	payload := req.Payload
	if kind == app.ForwardCandidate {
		payload = req.Candidate
	}
	if err := ctl.Relay.Forward(sid, domain.RoomID(req.RoomID), domain.MemberID(req.TargetMemberID), kind, payload); err != nil {
		return nil, err
	}
	return map[string]any{}, nil
}

func (ctl *SignalWSController) handleOffer(sid domain.MemberID, data []byte) (map[string]any, error) {
	return ctl.relay(sid, data, app.ForwardOffer)
}

func (ctl *SignalWSController) handleAnswer(sid domain.MemberID, data []byte) (map[string]any, error) {
	return ctl.relay(sid, data, app.ForwardAnswer)
}

func (ctl *SignalWSController) handleCandidate(sid domain.MemberID, data []byte) (map[string]any, error) {
	return ctl.relay(sid, data, app.ForwardCandidate)
}
