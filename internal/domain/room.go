package domain

import "time"

type RoomID string

type Room struct {
	ID              RoomID
	CreatorID       MemberID
	CreatedAt       time.Time
	LastActivity    time.Time
	MaxParticipants int
	Timeout         time.Duration
	Active          bool
}

// Touch refreshes the activity clock used by the inactivity sweep.
func (r *Room) Touch(now time.Time) {
	r.LastActivity = now
}

// Expired reports whether the room has been idle past its timeout.
// Only meaningful when no connected participants remain.
func (r *Room) Expired(now time.Time) bool {
	return now.Sub(r.LastActivity) > r.Timeout
}
