package app

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Meet/internal/core"
	"github.com/dkeye/Meet/internal/domain"
)

// RoomConfig carries the admission and expiry knobs for every room.
type RoomConfig struct {
	MaxRooms        int
	RoomCapacity    int
	RoomTimeout     time.Duration
	ReconnectWindow time.Duration
}

type roomState struct {
	room *domain.Room
	// keyed by reconnect token: the one identifier that stays stable
	// across disconnects, unlike the member/connection id
	participants map[domain.ReconnectToken]*domain.Participant
}

// RoomManager is the authoritative registry of rooms and participants.
// Every mutation runs as one critical section under mu: the capacity
// check-then-insert, the disconnect retention and the cleanup sweep all
// serialize here, which is what keeps admission race-free.
type RoomManager struct {
	mu    sync.Mutex
	cfg   RoomConfig
	rooms map[domain.RoomID]*roomState
	index *reconnectIndex

	notifier Notifier
	now      func() time.Time
}

func NewRoomManager(cfg RoomConfig, notifier Notifier) *RoomManager {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &RoomManager{
		cfg:      cfg,
		rooms:    make(map[domain.RoomID]*roomState),
		index:    newReconnectIndex(),
		notifier: notifier,
		now:      time.Now,
	}
}

// AdmitResult is what AddParticipant hands back to the transport layer.
type AdmitResult struct {
	Room           core.RoomDTO
	Participant    core.ParticipantDTO
	Token          domain.ReconnectToken
	IsReconnection bool
}

// LeaveResult reports the outcome of an explicit leave or a disconnect.
type LeaveResult struct {
	RoomID          domain.RoomID
	Room            core.RoomDTO
	Participant     core.ParticipantDTO
	WasConnected    bool
	RoomDeactivated bool
}

// CleanupStats summarizes one sweep for logging.
type CleanupStats struct {
	RoomsExpired       int
	ParticipantsPurged int
}

// CreateRoom inserts a fresh active room with zero participants. The
// creator joins through AddParticipant like everyone else; the first
// admission of creatorConn receives the creator flag.
func (m *RoomManager) CreateRoom(roomID domain.RoomID, creatorConn domain.MemberID) (core.RoomDTO, error) {
	m.mu.Lock()
	if len(m.rooms) >= m.cfg.MaxRooms {
		m.mu.Unlock()
		return core.RoomDTO{}, core.ErrServerFull
	}
	if roomID == "" {
		roomID = domain.RoomID(uuid.NewString())
	}
	if _, ok := m.rooms[roomID]; ok {
		m.mu.Unlock()
		return core.RoomDTO{}, core.ErrRoomExists
	}
	now := m.now()
	st := &roomState{
		room: &domain.Room{
			ID:              roomID,
			CreatorID:       creatorConn,
			CreatedAt:       now,
			LastActivity:    now,
			MaxParticipants: m.cfg.RoomCapacity,
			Timeout:         m.cfg.RoomTimeout,
			Active:          true,
		},
		participants: make(map[domain.ReconnectToken]*domain.Participant),
	}
	m.rooms[roomID] = st
	snap := snapshotLocked(st)
	m.mu.Unlock()

	log.Info().Str("module", "app.rooms").Str("room", string(roomID)).Str("creator", string(creatorConn)).Msg("room created")
	m.notifier.RoomCreated(snap)
	return snap, nil
}

// AddParticipant admits a connection into a room, either as a brand new
// member or by reviving a retained record when token matches. The whole
// check-then-insert runs under the manager mutex; two concurrent calls
// can never both observe the same free slot.
func (m *RoomManager) AddParticipant(roomID domain.RoomID, connID domain.MemberID, username string, token domain.ReconnectToken) (AdmitResult, error) {
	m.mu.Lock()
	st, ok := m.rooms[roomID]
	if !ok {
		m.mu.Unlock()
		return AdmitResult{}, core.ErrRoomNotFound
	}
	if !st.room.Active {
		m.mu.Unlock()
		return AdmitResult{}, core.ErrRoomInactive
	}
	if _, bound := m.index.tokenOf(connID); bound {
		m.mu.Unlock()
		return AdmitResult{}, core.NewError(core.KindValidation, core.CodeBadPayload, "connection %s is already in a room", connID)
	}
	now := m.now()

	// Reconnection path: token resolves to a retained record for this
	// exact room. Never competes for a capacity slot it already held.
	if token != "" {
		if e, ok := m.index.resolve(token); ok && e.RoomID == roomID {
			p := e.Participant
			// a still-bound previous connection (e.g. a zombie tab)
			// must not keep a forward entry for the old id
			if p.MemberID != "" {
				m.index.dropConn(p.MemberID)
			}
			p.Revive(connID, now)
			m.index.bind(connID, token, roomID, p)
			st.room.Touch(now)
			res := AdmitResult{
				Room:           snapshotLocked(st),
				Participant:    participantDTO(p),
				Token:          token,
				IsReconnection: true,
			}
			m.mu.Unlock()
			log.Info().Str("module", "app.rooms").Str("room", string(roomID)).Str("member", string(connID)).Msg("participant reconnected")
			m.notifier.ParticipantReconnected(res.Room, res.Participant)
			return res, nil
		}
	}

	// New admission: only connected members hold capacity slots.
	if connectedCount(st.participants) >= st.room.MaxParticipants {
		m.mu.Unlock()
		return AdmitResult{}, core.ErrRoomFull
	}

	p, err := domain.NewParticipant(connID, username, now)
	if err != nil {
		m.mu.Unlock()
		return AdmitResult{}, core.NewError(core.KindValidation, core.CodeBadPayload, "invalid username: %v", err)
	}
	p.IsCreator = connID == st.room.CreatorID

	// Adopt a caller-provided token for idempotent retries, but only if
	// it is unknown; a token may never point at two participants.
	if token == "" || m.index.known(token) {
		token = domain.ReconnectToken(uuid.NewString())
	}
	p.ReconnectToken = token

	st.participants[token] = p
	m.index.bind(connID, token, roomID, p)
	st.room.Touch(now)
	res := AdmitResult{
		Room:        snapshotLocked(st),
		Participant: participantDTO(p),
		Token:       token,
	}
	m.mu.Unlock()

	log.Info().Str("module", "app.rooms").Str("room", string(roomID)).Str("member", string(connID)).Str("username", username).Msg("participant joined")
	m.notifier.ParticipantJoined(res.Room, res.Participant)
	return res, nil
}

// RemoveParticipant takes a connection out of its room. explicit=true
// deletes the record and both index directions outright; explicit=false
// (abrupt disconnect) retains the record for the reconnect window and
// drops only the forward index entry. Unknown connections are a no-op:
// disconnecting twice is not an error.
func (m *RoomManager) RemoveParticipant(connID domain.MemberID, explicit bool) (LeaveResult, bool) {
	m.mu.Lock()
	token, ok := m.index.tokenOf(connID)
	if !ok {
		m.mu.Unlock()
		return LeaveResult{}, false
	}
	entry, ok := m.index.resolve(token)
	if !ok {
		// forward without reverse would be an index bug; heal and bail
		m.index.dropConn(connID)
		m.mu.Unlock()
		return LeaveResult{}, false
	}
	st := m.rooms[entry.RoomID]
	p := entry.Participant
	now := m.now()

	res := LeaveResult{
		RoomID:       entry.RoomID,
		Participant:  participantDTO(p),
		WasConnected: p.Connected,
	}

	if explicit {
		delete(st.participants, token)
		m.index.purge(token)
		if connectedCount(st.participants) == 0 {
			st.room.Active = false
			res.RoomDeactivated = true
		}
	} else {
		p.Retain(now)
		m.index.dropConn(connID)
	}
	st.room.Touch(now)
	res.Room = snapshotLocked(st)
	m.mu.Unlock()

	if explicit {
		log.Info().Str("module", "app.rooms").Str("room", string(res.RoomID)).Str("member", string(connID)).Bool("room_deactivated", res.RoomDeactivated).Msg("participant left")
		m.notifier.ParticipantLeft(res.Room, res.Participant)
	} else {
		log.Info().Str("module", "app.rooms").Str("room", string(res.RoomID)).Str("member", string(connID)).Msg("participant disconnected, retained for reconnect")
		m.notifier.ParticipantDisconnected(res.Room, res.Participant)
	}
	return res, true
}

// PerformCleanup purges disconnected participants past the reconnect
// window and removes rooms idle past their timeout with nobody
// connected. Runs under the same mutex as every other mutation.
func (m *RoomManager) PerformCleanup() CleanupStats {
	m.mu.Lock()
	now := m.now()
	var stats CleanupStats
	var expired []core.RoomDTO

	for id, st := range m.rooms {
		for token, p := range st.participants {
			if !p.Connected && now.Sub(p.LastSeen) > m.cfg.ReconnectWindow {
				delete(st.participants, token)
				m.index.purge(token)
				stats.ParticipantsPurged++
			}
		}
		if connectedCount(st.participants) == 0 && st.room.Expired(now) {
			st.room.Active = false
			for token := range st.participants {
				m.index.purge(token)
				stats.ParticipantsPurged++
			}
			expired = append(expired, snapshotLocked(st))
			delete(m.rooms, id)
			stats.RoomsExpired++
		}
	}
	m.mu.Unlock()

	for _, snap := range expired {
		m.notifier.RoomExpired(snap)
	}
	if stats.RoomsExpired > 0 || stats.ParticipantsPurged > 0 {
		log.Info().Str("module", "app.rooms").Int("rooms_expired", stats.RoomsExpired).Int("participants_purged", stats.ParticipantsPurged).Msg("cleanup sweep")
	}
	return stats
}

// ValidateReconnectToken reports whether token resolves to a retained
// record for exactly this room.
func (m *RoomManager) ValidateReconnectToken(token domain.ReconnectToken, roomID domain.RoomID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.index.resolve(token)
	return ok && e.RoomID == roomID
}

// RoomOfConn resolves the room a live connection currently belongs to.
func (m *RoomManager) RoomOfConn(connID domain.MemberID) (domain.RoomID, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	token, ok := m.index.tokenOf(connID)
	if !ok {
		return "", false
	}
	e, ok := m.index.resolve(token)
	if !ok {
		return "", false
	}
	return e.RoomID, ok
}

// Snapshot returns a read-only copy of one room.
func (m *RoomManager) Snapshot(roomID domain.RoomID) (core.RoomDTO, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.rooms[roomID]
	if !ok {
		return core.RoomDTO{}, false
	}
	return snapshotLocked(st), true
}

func (m *RoomManager) List() []core.RoomInfo {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]core.RoomInfo, 0, len(m.rooms))
	for id, st := range m.rooms {
		out = append(out, core.RoomInfo{
			ID:          id,
			Active:      st.room.Active,
			MemberCount: len(st.participants),
		})
	}
	return out
}

func snapshotLocked(st *roomState) core.RoomDTO {
	dto := core.RoomDTO{
		ID:              st.room.ID,
		CreatorID:       st.room.CreatorID,
		Active:          st.room.Active,
		MaxParticipants: st.room.MaxParticipants,
		CreatedAt:       st.room.CreatedAt,
		Participants:    make([]core.ParticipantDTO, 0, len(st.participants)),
	}
	for _, p := range st.participants {
		dto.Participants = append(dto.Participants, participantDTO(p))
	}
	return dto
}

// connectedCount ignores retained-disconnected records: only live
// connections hold capacity slots.
func connectedCount(participants map[domain.ReconnectToken]*domain.Participant) int {
	n := 0
	for _, p := range participants {
		if p.Connected {
			n++
		}
	}
	return n
}

func participantDTO(p *domain.Participant) core.ParticipantDTO {
	return core.ParticipantDTO{
		MemberID:  p.MemberID,
		Username:  p.Username,
		IsCreator: p.IsCreator,
		Connected: p.Connected,
		JoinedAt:  p.JoinedAt,
	}
}
