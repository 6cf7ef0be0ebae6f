package app

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/dkeye/Meet/internal/core"
	"github.com/dkeye/Meet/internal/domain"
)

func testConfig() RoomConfig {
	return RoomConfig{
		MaxRooms:        10,
		RoomCapacity:    2,
		RoomTimeout:     30 * time.Minute,
		ReconnectWindow: 2 * time.Minute,
	}
}

func newTestManager(t *testing.T) *RoomManager {
	t.Helper()
	return NewRoomManager(testConfig(), nil)
}

func TestCreateRoom(t *testing.T) {
	t.Parallel()
	m := newTestManager(t)

	room, err := m.CreateRoom("R1", "alice-conn")
	if err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}
	if !room.Active {
		t.Error("new room should be active")
	}
	if len(room.Participants) != 0 {
		t.Errorf("new room participants: got %d, want 0", len(room.Participants))
	}
	if room.CreatorID != "alice-conn" {
		t.Errorf("creator: got %q, want %q", room.CreatorID, "alice-conn")
	}
}

func TestCreateRoomDuplicate(t *testing.T) {
	t.Parallel()
	m := newTestManager(t)

	if _, err := m.CreateRoom("R1", "a"); err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}
	_, err := m.CreateRoom("R1", "b")
	if !errors.Is(err, core.ErrRoomExists) {
		t.Fatalf("duplicate CreateRoom: got %v, want ErrRoomExists", err)
	}
}

func TestCreateRoomServerFull(t *testing.T) {
	t.Parallel()
	cfg := testConfig()
	cfg.MaxRooms = 2
	m := NewRoomManager(cfg, nil)

	for i := 0; i < 2; i++ {
		if _, err := m.CreateRoom(domain.RoomID(fmt.Sprintf("R%d", i)), "c"); err != nil {
			t.Fatalf("CreateRoom %d: %v", i, err)
		}
	}
	_, err := m.CreateRoom("R-overflow", "c")
	if !errors.Is(err, core.ErrServerFull) {
		t.Fatalf("CreateRoom beyond max: got %v, want ErrServerFull", err)
	}
}

func TestCreateRoomGeneratedID(t *testing.T) {
	t.Parallel()
	m := newTestManager(t)

	room, err := m.CreateRoom("", "c")
	if err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}
	if room.ID == "" {
		t.Error("empty roomId should get a generated id")
	}
}

func TestAddParticipantRoomNotFound(t *testing.T) {
	t.Parallel()
	m := newTestManager(t)

	_, err := m.AddParticipant("nope", "conn", "alice", "")
	if !errors.Is(err, core.ErrRoomNotFound) {
		t.Fatalf("got %v, want ErrRoomNotFound", err)
	}
}

func TestAdmissionCreatorFlag(t *testing.T) {
	t.Parallel()
	m := newTestManager(t)

	if _, err := m.CreateRoom("R1", "alice-conn"); err != nil {
		t.Fatal(err)
	}
	res, err := m.AddParticipant("R1", "alice-conn", "alice", "")
	if err != nil {
		t.Fatalf("AddParticipant: %v", err)
	}
	if !res.Participant.IsCreator {
		t.Error("creator connection should get the creator flag")
	}
	other, err := m.AddParticipant("R1", "bob-conn", "bob", "")
	if err != nil {
		t.Fatalf("AddParticipant bob: %v", err)
	}
	if other.Participant.IsCreator {
		t.Error("non-creator connection must not get the creator flag")
	}
}

func TestAdmissionCapacityConcurrent(t *testing.T) {
	t.Parallel()
	m := newTestManager(t) // capacity 2

	if _, err := m.CreateRoom("R1", "creator"); err != nil {
		t.Fatal(err)
	}

	const attempts = 16
	var wg sync.WaitGroup
	var mu sync.Mutex
	admitted, full := 0, 0
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := m.AddParticipant("R1", domain.MemberID(fmt.Sprintf("conn-%d", i)), fmt.Sprintf("user-%d", i), "")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				admitted++
			case errors.Is(err, core.ErrRoomFull):
				full++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	if admitted != 2 {
		t.Errorf("admitted: got %d, want 2", admitted)
	}
	if full != attempts-2 {
		t.Errorf("rejected RoomFull: got %d, want %d", full, attempts-2)
	}
	snap, _ := m.Snapshot("R1")
	if got := snap.ConnectedCount(); got != 2 {
		t.Errorf("connected count: got %d, want 2", got)
	}
}

func TestReconnectRestoresIdentity(t *testing.T) {
	t.Parallel()
	m := newTestManager(t)

	m.CreateRoom("R1", "alice-conn")
	m.AddParticipant("R1", "alice-conn", "alice", "")
	bob, err := m.AddParticipant("R1", "bob-conn", "bob", "")
	if err != nil {
		t.Fatal(err)
	}

	if _, ok := m.RemoveParticipant("bob-conn", false); !ok {
		t.Fatal("disconnect should find bob")
	}
	snap, _ := m.Snapshot("R1")
	if got := snap.ConnectedCount(); got != 1 {
		t.Fatalf("connected after disconnect: got %d, want 1", got)
	}
	if !snap.Active {
		t.Fatal("room must stay active while a member is connected")
	}

	res, err := m.AddParticipant("R1", "bob-conn-2", "", bob.Token)
	if err != nil {
		t.Fatalf("reconnect: %v", err)
	}
	if !res.IsReconnection {
		t.Error("token admission should report IsReconnection")
	}
	if res.Token != bob.Token {
		t.Errorf("token changed across reconnect: got %q, want %q", res.Token, bob.Token)
	}
	if res.Participant.Username != "bob" {
		t.Errorf("username: got %q, want stored profile %q", res.Participant.Username, "bob")
	}
	if res.Participant.MemberID != "bob-conn-2" {
		t.Errorf("member id: got %q, want new connection id", res.Participant.MemberID)
	}
	snap, _ = m.Snapshot("R1")
	if got := snap.ConnectedCount(); got != 2 {
		t.Errorf("connected after reconnect: got %d, want 2", got)
	}
}

func TestReconnectBypassesCapacity(t *testing.T) {
	t.Parallel()
	m := newTestManager(t) // capacity 2

	m.CreateRoom("R1", "a")
	m.AddParticipant("R1", "a", "alice", "")
	bob, _ := m.AddParticipant("R1", "b", "bob", "")
	m.RemoveParticipant("b", false)

	// carol takes the freed slot; the room is at capacity again
	if _, err := m.AddParticipant("R1", "c", "carol", ""); err != nil {
		t.Fatalf("carol join: %v", err)
	}

	// bob's reconnect must not compete for a capacity slot
	res, err := m.AddParticipant("R1", "b2", "", bob.Token)
	if err != nil {
		t.Fatalf("reconnect at capacity: %v", err)
	}
	if !res.IsReconnection {
		t.Error("expected reconnection path")
	}
}

func TestReconnectSupersedesLiveConnection(t *testing.T) {
	t.Parallel()
	m := newTestManager(t)

	m.CreateRoom("R1", "a")
	res, _ := m.AddParticipant("R1", "a", "alice", "")

	// reconnect with the token while the old connection never went
	// through a disconnect (zombie tab)
	if _, err := m.AddParticipant("R1", "a2", "", res.Token); err != nil {
		t.Fatalf("reconnect: %v", err)
	}
	if _, ok := m.RoomOfConn("a"); ok {
		t.Error("superseded connection must lose its forward mapping")
	}
	if roomID, ok := m.RoomOfConn("a2"); !ok || roomID != "R1" {
		t.Errorf("new connection mapping: got %q ok=%v", roomID, ok)
	}
}

func TestExplicitLeaveDeactivatesRoom(t *testing.T) {
	t.Parallel()
	m := newTestManager(t)

	m.CreateRoom("R1", "a")
	m.AddParticipant("R1", "a", "alice", "")

	res, ok := m.RemoveParticipant("a", true)
	if !ok {
		t.Fatal("leave should find alice")
	}
	if !res.RoomDeactivated {
		t.Error("emptying the room should deactivate it")
	}

	_, err := m.AddParticipant("R1", "b", "bob", "")
	if !errors.Is(err, core.ErrRoomInactive) {
		t.Fatalf("join after deactivation: got %v, want ErrRoomInactive", err)
	}
}

func TestRemoveParticipantIdempotent(t *testing.T) {
	t.Parallel()
	m := newTestManager(t)

	if _, ok := m.RemoveParticipant("ghost", true); ok {
		t.Error("removing an unknown connection must be a no-op")
	}

	m.CreateRoom("R1", "a")
	m.AddParticipant("R1", "a", "alice", "")
	m.RemoveParticipant("a", false)
	if _, ok := m.RemoveParticipant("a", false); ok {
		t.Error("double disconnect must be a no-op")
	}
}

func TestExplicitLeavePurgesToken(t *testing.T) {
	t.Parallel()
	m := newTestManager(t)

	m.CreateRoom("R1", "a")
	res, _ := m.AddParticipant("R1", "a", "alice", "")
	m.RemoveParticipant("a", true)

	if m.ValidateReconnectToken(res.Token, "R1") {
		t.Error("explicit leave must purge the reconnect token")
	}
}

func TestDisconnectRetainsToken(t *testing.T) {
	t.Parallel()
	m := newTestManager(t)

	m.CreateRoom("R1", "a")
	m.AddParticipant("R1", "a", "alice", "")
	res, _ := m.AddParticipant("R1", "b", "bob", "")
	m.RemoveParticipant("b", false)

	if !m.ValidateReconnectToken(res.Token, "R1") {
		t.Error("disconnect must retain the reverse token mapping")
	}
	if _, ok := m.RoomOfConn("b"); ok {
		t.Error("disconnect must drop the forward connection mapping")
	}
}

func TestValidateReconnectTokenWrongRoom(t *testing.T) {
	t.Parallel()
	m := newTestManager(t)

	m.CreateRoom("R1", "a")
	m.CreateRoom("R2", "b")
	res, _ := m.AddParticipant("R1", "a", "alice", "")

	if m.ValidateReconnectToken(res.Token, "R2") {
		t.Error("token must only validate against its own room")
	}
	if !m.ValidateReconnectToken(res.Token, "R1") {
		t.Error("token must validate against its own room")
	}
}

func TestProvidedTokenAdoptedOnlyWhenUnknown(t *testing.T) {
	t.Parallel()
	cfg := testConfig()
	cfg.RoomCapacity = 4
	m := NewRoomManager(cfg, nil)

	m.CreateRoom("R1", "a")
	res, err := m.AddParticipant("R1", "a", "alice", "retry-token")
	if err != nil {
		t.Fatal(err)
	}
	if res.Token != "retry-token" {
		t.Errorf("unknown provided token should be adopted, got %q", res.Token)
	}

	other, err := m.AddParticipant("R1", "b", "bob", "retry-token")
	if err != nil {
		t.Fatal(err)
	}
	if other.Token == "retry-token" {
		t.Error("a token already bound to another participant must not be reused")
	}
}

func TestCleanupPurgesStaleParticipant(t *testing.T) {
	t.Parallel()
	m := newTestManager(t)

	m.CreateRoom("R1", "a")
	m.AddParticipant("R1", "a", "alice", "")
	bob, _ := m.AddParticipant("R1", "b", "bob", "")
	m.RemoveParticipant("b", false)

	base := time.Now()

	// inside the window: nothing purged
	m.now = func() time.Time { return base.Add(time.Minute) }
	stats := m.PerformCleanup()
	if stats.ParticipantsPurged != 0 {
		t.Fatalf("premature purge: %+v", stats)
	}

	m.now = func() time.Time { return base.Add(3 * time.Minute) }
	stats = m.PerformCleanup()
	if stats.ParticipantsPurged != 1 {
		t.Fatalf("participants purged: got %d, want 1", stats.ParticipantsPurged)
	}
	if m.ValidateReconnectToken(bob.Token, "R1") {
		t.Error("purged participant token must be gone")
	}
	if _, ok := m.Snapshot("R1"); !ok {
		t.Error("room with a connected member must survive the sweep")
	}
}

func TestCleanupExpiresIdleRoom(t *testing.T) {
	t.Parallel()
	m := newTestManager(t)

	m.CreateRoom("R1", "a")
	m.AddParticipant("R1", "a", "alice", "")
	m.RemoveParticipant("a", false)

	base := time.Now()

	// idle but inside the room timeout: kept
	m.now = func() time.Time { return base.Add(10 * time.Minute) }
	if stats := m.PerformCleanup(); stats.RoomsExpired != 0 {
		t.Fatalf("premature room expiry: %+v", stats)
	}

	m.now = func() time.Time { return base.Add(31 * time.Minute) }
	stats := m.PerformCleanup()
	if stats.RoomsExpired != 1 {
		t.Fatalf("rooms expired: got %d, want 1", stats.RoomsExpired)
	}
	if _, ok := m.Snapshot("R1"); ok {
		t.Error("expired room must be removed")
	}
}

func TestCleanupSkipsRoomWithConnectedMember(t *testing.T) {
	t.Parallel()
	m := newTestManager(t)

	m.CreateRoom("R1", "a")
	m.AddParticipant("R1", "a", "alice", "")

	m.now = func() time.Time { return time.Now().Add(24 * time.Hour) }
	if stats := m.PerformCleanup(); stats.RoomsExpired != 0 {
		t.Fatalf("room with connected member expired: %+v", stats)
	}
}

// TestSessionScenario walks the full lifecycle from the room's point of
// view: admission to capacity, overflow rejection, disconnect, timely
// reconnect and final teardown.
func TestSessionScenario(t *testing.T) {
	t.Parallel()
	m := newTestManager(t) // capacity 2

	if _, err := m.CreateRoom("R1", "alice"); err != nil {
		t.Fatal(err)
	}
	if _, err := m.AddParticipant("R1", "alice", "alice", ""); err != nil {
		t.Fatal(err)
	}
	bob, err := m.AddParticipant("R1", "bob", "bob", "")
	if err != nil {
		t.Fatal(err)
	}
	snap, _ := m.Snapshot("R1")
	if got := snap.ConnectedCount(); got != 2 {
		t.Fatalf("after two joins: got %d connected, want 2", got)
	}

	if _, err := m.AddParticipant("R1", "carol", "carol", ""); !errors.Is(err, core.ErrRoomFull) {
		t.Fatalf("carol join: got %v, want ErrRoomFull", err)
	}

	m.RemoveParticipant("bob", false)
	snap, _ = m.Snapshot("R1")
	if !snap.Active {
		t.Fatal("room must stay active after a non-explicit disconnect")
	}
	if got := snap.ConnectedCount(); got != 1 {
		t.Fatalf("after disconnect: got %d connected, want 1", got)
	}
	if len(snap.Participants) != 2 {
		t.Fatalf("bob must be retained: got %d participants, want 2", len(snap.Participants))
	}

	rec, err := m.AddParticipant("R1", "bob-2", "", bob.Token)
	if err != nil || !rec.IsReconnection {
		t.Fatalf("bob reconnect: err=%v isReconnection=%v", err, rec.IsReconnection)
	}
	snap, _ = m.Snapshot("R1")
	if got := snap.ConnectedCount(); got != 2 {
		t.Fatalf("after reconnect: got %d connected, want 2", got)
	}

	if res, _ := m.RemoveParticipant("alice", true); res.RoomDeactivated {
		t.Fatal("room must stay active while bob is connected")
	}
	res, _ := m.RemoveParticipant("bob-2", true)
	if !res.RoomDeactivated {
		t.Fatal("last explicit leave must deactivate the room")
	}
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []string
}

func (n *recordingNotifier) add(e string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, e)
}

func (n *recordingNotifier) RoomCreated(core.RoomDTO) { n.add("created") }
func (n *recordingNotifier) ParticipantJoined(core.RoomDTO, core.ParticipantDTO) {
	n.add("joined")
}
func (n *recordingNotifier) ParticipantReconnected(core.RoomDTO, core.ParticipantDTO) {
	n.add("reconnected")
}
func (n *recordingNotifier) ParticipantLeft(core.RoomDTO, core.ParticipantDTO) { n.add("left") }
func (n *recordingNotifier) ParticipantDisconnected(core.RoomDTO, core.ParticipantDTO) {
	n.add("disconnected")
}
func (n *recordingNotifier) RoomExpired(core.RoomDTO) { n.add("expired") }

func TestNotifierSeesLifecycle(t *testing.T) {
	t.Parallel()
	rec := &recordingNotifier{}
	m := NewRoomManager(testConfig(), rec)

	m.CreateRoom("R1", "a")
	res, _ := m.AddParticipant("R1", "a", "alice", "")
	m.RemoveParticipant("a", false)
	m.AddParticipant("R1", "a2", "", res.Token)
	m.RemoveParticipant("a2", true)
	m.now = func() time.Time { return time.Now().Add(time.Hour) }
	m.PerformCleanup()

	want := []string{"created", "joined", "disconnected", "reconnected", "left", "expired"}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.events) != len(want) {
		t.Fatalf("events: got %v, want %v", rec.events, want)
	}
	for i := range want {
		if rec.events[i] != want[i] {
			t.Fatalf("event %d: got %q, want %q (all: %v)", i, rec.events[i], want[i], rec.events)
		}
	}
}
