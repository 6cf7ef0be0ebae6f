package signal

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Meet/internal/app"
	"github.com/dkeye/Meet/internal/cache"
	"github.com/dkeye/Meet/internal/config"
	"github.com/dkeye/Meet/internal/core"
	"github.com/dkeye/Meet/internal/domain"
)

var ErrBackpressure = errors.New("backpressure")

type SignalWSController struct {
	Rooms    *app.RoomManager
	Registry *app.Registry
	Relay    *app.Relay
	Cache    cache.Cache
	Cfg      *config.Config

	validate *validator.Validate
}

func NewSignalWSController(rooms *app.RoomManager, registry *app.Registry, relay *app.Relay, store cache.Cache, cfg *config.Config) *SignalWSController {
	return &SignalWSController{
		Rooms:    rooms,
		Registry: registry,
		Relay:    relay,
		Cache:    store,
		Cfg:      cfg,
		validate: validator.New(),
	}
}

type WsSignalConn struct {
	conn *websocket.Conn
	send chan core.Frame

	mu     sync.RWMutex
	closed bool
}

func (c *WsSignalConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return errors.New("connection closed")
	}
	select {
	case c.send <- f:
	default:
		return ErrBackpressure
	}
	return nil
}

func (c *WsSignalConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func (ctl *SignalWSController) HandleSignal(ctx context.Context, c *gin.Context) {
	sid := domain.MemberID(c.GetString("client_token"))
	log.Info().Str("module", "signal").Str("conn", string(sid)).Msg("new WS connection")

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Msg("ws upgrade")
		return
	}
	ws.SetReadLimit(ctl.Cfg.ReadLimit)

	conn := &WsSignalConn{
		conn: ws,
		send: make(chan core.Frame, 32),
	}

	ctx, cancel := context.WithCancel(ctx)
	ctl.Registry.Bind(sid, conn, cancel)

	go ctl.writePump(ctx, conn)
	go ctl.readPump(ctx, sid, conn)
}

// broadcastRoomUpdated fans the new membership snapshot out to every
// other connected member after a lifecycle transition.
func (ctl *SignalWSController) broadcastRoomUpdated(room core.RoomDTO, exclude domain.MemberID, event string, participant core.ParticipantDTO, leftID domain.MemberID) {
	msg := struct {
		Type              string                `json:"type"`
		RoomID            domain.RoomID         `json:"roomId"`
		Participants      []core.ParticipantDTO `json:"participants"`
		Event             string                `json:"event"`
		Participant       core.ParticipantDTO   `json:"participant"`
		LeftParticipantID domain.MemberID       `json:"leftParticipantId,omitempty"`
	}{
		Type:              "room-updated",
		RoomID:            room.ID,
		Participants:      room.Participants,
		Event:             event,
		Participant:       participant,
		LeftParticipantID: leftID,
	}
	for _, p := range room.Participants {
		if !p.Connected || p.MemberID == exclude {
			continue
		}
		conn, ok := ctl.Registry.Get(p.MemberID)
		if !ok {
			continue
		}
		ctl.sendJSON(conn, msg)
	}
}
