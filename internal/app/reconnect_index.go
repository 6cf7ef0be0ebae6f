package app

import "github.com/dkeye/Meet/internal/domain"

// tokenEntry is the reverse-index record kept for a participant.
type tokenEntry struct {
	RoomID      domain.RoomID
	Participant *domain.Participant
}

// reconnectIndex is the two-way connection/token mapping. Both directions
// are mutated only through these methods so they can never drift apart.
// Not locked itself: the owning RoomManager serializes access.
type reconnectIndex struct {
	byConn  map[domain.MemberID]domain.ReconnectToken
	byToken map[domain.ReconnectToken]tokenEntry
}

func newReconnectIndex() *reconnectIndex {
	return &reconnectIndex{
		byConn:  make(map[domain.MemberID]domain.ReconnectToken),
		byToken: make(map[domain.ReconnectToken]tokenEntry),
	}
}

// bind establishes both directions for a connected participant.
func (ix *reconnectIndex) bind(conn domain.MemberID, token domain.ReconnectToken, roomID domain.RoomID, p *domain.Participant) {
	ix.byConn[conn] = token
	ix.byToken[token] = tokenEntry{RoomID: roomID, Participant: p}
}

// dropConn removes only the forward entry; the reverse entry survives
// until the grace window elapses.
func (ix *reconnectIndex) dropConn(conn domain.MemberID) {
	delete(ix.byConn, conn)
}

// purge removes a participant from both directions.
func (ix *reconnectIndex) purge(token domain.ReconnectToken) {
	if e, ok := ix.byToken[token]; ok && e.Participant.MemberID != "" {
		delete(ix.byConn, e.Participant.MemberID)
	}
	delete(ix.byToken, token)
}

// resolve returns the reverse entry for a token.
func (ix *reconnectIndex) resolve(token domain.ReconnectToken) (tokenEntry, bool) {
	e, ok := ix.byToken[token]
	return e, ok
}

// tokenOf returns the token currently bound to a live connection.
func (ix *reconnectIndex) tokenOf(conn domain.MemberID) (domain.ReconnectToken, bool) {
	t, ok := ix.byConn[conn]
	return t, ok
}

// known reports whether a token exists in the reverse index at all,
// regardless of room.
func (ix *reconnectIndex) known(token domain.ReconnectToken) bool {
	_, ok := ix.byToken[token]
	return ok
}
