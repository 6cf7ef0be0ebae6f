package cache

import "strings"

// Entity kinds that prefix cache keys.
const (
	KindParticipant = "participant"
	KindRoom        = "room"
	KindTyping      = "typing"
	KindPeerState   = "peerstate"
)

// Key builds a "kind:part:part" cache key, e.g. "typing:R1:alice".
func Key(kind string, parts ...string) string {
	b := make([]string, 0, len(parts)+1)
	b = append(b, kind)
	b = append(b, parts...)
	return strings.Join(b, ":")
}
