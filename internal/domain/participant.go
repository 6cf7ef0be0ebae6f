// Package domain contains entity without logic, just meta-data
package domain

import (
	"errors"
	"time"
)

const MaxUsernameLen = 36

var (
	ErrUsernameTooLong = errors.New("username too long")
	ErrUsernameEmpty   = errors.New("username empty")
)

// MemberID equals the live connection id while the participant is
// connected, and is empty while the record is retained for reconnect.
type MemberID string

// ReconnectToken is an opaque credential issued once per participant;
// it stays stable across reconnects of the same identity.
type ReconnectToken string

type Participant struct {
	MemberID       MemberID
	Username       string
	IsCreator      bool
	JoinedAt       time.Time
	LastSeen       time.Time
	Connected      bool
	ReconnectToken ReconnectToken
}

// NewParticipant is a tiny helper to avoid ad-hoc struct literals in adapters.
func NewParticipant(id MemberID, username string, now time.Time) (*Participant, error) {
	if err := ValidateUsername(username); err != nil {
		return nil, err
	}
	return &Participant{
		MemberID:  id,
		Username:  username,
		JoinedAt:  now,
		LastSeen:  now,
		Connected: true,
	}, nil
}

func ValidateUsername(username string) error {
	if len(username) == 0 {
		return ErrUsernameEmpty
	}
	if len(username) > MaxUsernameLen {
		return ErrUsernameTooLong
	}
	return nil
}

// Revive re-attaches a retained record to a fresh connection.
func (p *Participant) Revive(id MemberID, now time.Time) {
	p.MemberID = id
	p.Connected = true
	p.LastSeen = now
}

// Retain marks the record disconnected but keeps it for the grace window.
func (p *Participant) Retain(now time.Time) {
	p.MemberID = ""
	p.Connected = false
	p.LastSeen = now
}
