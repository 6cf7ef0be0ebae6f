package cache

import (
	"encoding/json"
	"time"
)

// canonicalTime forces every timestamp through one textual form
// (RFC3339 with nanoseconds) so a value round-trips identically through
// the redis and local backends.
type canonicalTime time.Time

func (t canonicalTime) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Time(t).Format(time.RFC3339Nano))
}

func (t *canonicalTime) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return err
	}
	*t = canonicalTime(parsed)
	return nil
}

func (t canonicalTime) Time() time.Time { return time.Time(t) }

// PresenceRecord is the shared fact that a member is online in a room.
type PresenceRecord struct {
	RoomID   string        `json:"roomId"`
	MemberID string        `json:"memberId"`
	Username string        `json:"username"`
	Online   bool          `json:"online"`
	Seen     canonicalTime `json:"seen"`
}

// TypingRecord marks a member as typing in a room.
type TypingRecord struct {
	RoomID   string        `json:"roomId"`
	MemberID string        `json:"memberId"`
	Typing   bool          `json:"typing"`
	Since    canonicalTime `json:"since"`
}

// PeerStateRecord is a peer-connection diagnostic reported by a client.
type PeerStateRecord struct {
	RoomID   string        `json:"roomId"`
	MemberID string        `json:"memberId"`
	PeerID   string        `json:"peerId"`
	State    string        `json:"state"`
	At       canonicalTime `json:"at"`
}

func NewPresence(roomID, memberID, username string, online bool, seen time.Time) PresenceRecord {
	return PresenceRecord{RoomID: roomID, MemberID: memberID, Username: username, Online: online, Seen: canonicalTime(seen)}
}

func NewTyping(roomID, memberID string, typing bool, since time.Time) TypingRecord {
	return TypingRecord{RoomID: roomID, MemberID: memberID, Typing: typing, Since: canonicalTime(since)}
}

func NewPeerState(roomID, memberID, peerID, state string, at time.Time) PeerStateRecord {
	return PeerStateRecord{RoomID: roomID, MemberID: memberID, PeerID: peerID, State: state, At: canonicalTime(at)}
}
