package core

import (
	"time"

	"github.com/dkeye/Meet/internal/domain"
)

// ParticipantDTO is a read-only view for APIs (no transport fields).
type ParticipantDTO struct {
	MemberID  domain.MemberID `json:"memberId"`
	Username  string          `json:"username"`
	IsCreator bool            `json:"isCreator"`
	Connected bool            `json:"connected"`
	JoinedAt  time.Time       `json:"joinedAt"`
}

// RoomDTO is a read-only snapshot of a room and its members.
type RoomDTO struct {
	ID              domain.RoomID    `json:"roomId"`
	CreatorID       domain.MemberID  `json:"creatorId"`
	Active          bool             `json:"active"`
	MaxParticipants int              `json:"maxParticipants"`
	CreatedAt       time.Time        `json:"createdAt"`
	Participants    []ParticipantDTO `json:"participants"`
}

// ConnectedCount counts members of the snapshot holding a live connection.
func (r RoomDTO) ConnectedCount() int {
	n := 0
	for _, p := range r.Participants {
		if p.Connected {
			n++
		}
	}
	return n
}

type RoomInfo struct {
	ID          domain.RoomID `json:"roomId"`
	Active      bool          `json:"active"`
	MemberCount int           `json:"memberCount"`
}
