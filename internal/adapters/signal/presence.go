package signal

import (
	"context"
	"encoding/json"
	"time"

	"github.com/dkeye/Meet/internal/cache"
	"github.com/dkeye/Meet/internal/core"
	"github.com/dkeye/Meet/internal/domain"
)

func putRecord(ctx context.Context, store cache.Cache, key string, rec any, ttl time.Duration) error {
	b, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return store.Set(ctx, key, b, ttl)
}

// handleTyping shares a short-lived typing indicator with the room.
func (ctl *SignalWSController) handleTyping(ctx context.Context, sid domain.MemberID, data []byte) (map[string]any, error) {
	var req struct {
		RoomID   string `json:"roomId" validate:"required"`
		IsTyping bool   `json:"isTyping"`
	}
	if err := ctl.bind(data, &req); err != nil {
		return nil, err
	}
	roomID := domain.RoomID(req.RoomID)
	if current, ok := ctl.Rooms.RoomOfConn(sid); !ok || current != roomID {
		return nil, core.ErrNotInRoom
	}

	key := cache.Key(cache.KindTyping, req.RoomID, string(sid))
	rec := cache.NewTyping(req.RoomID, string(sid), req.IsTyping, time.Now())
	if req.IsTyping {
		if err := putRecord(ctx, ctl.Cache, key, rec, ctl.Cfg.TypingTTL); err != nil {
			return nil, core.NewError(core.KindInternal, core.CodeInternal, "typing write: %v", err)
		}
	} else if err := ctl.Cache.Delete(ctx, key); err != nil {
		return nil, core.NewError(core.KindInternal, core.CodeInternal, "typing delete: %v", err)
	}

	if room, ok := ctl.Rooms.Snapshot(roomID); ok {
		msg := struct {
			Type     string          `json:"type"`
			RoomID   string          `json:"roomId"`
			MemberID domain.MemberID `json:"memberId"`
			IsTyping bool            `json:"isTyping"`
		}{"typing", req.RoomID, sid, req.IsTyping}
		for _, p := range room.Participants {
			if !p.Connected || p.MemberID == sid {
				continue
			}
			if conn, ok := ctl.Registry.Get(p.MemberID); ok {
				ctl.sendJSON(conn, msg)
			}
		}
	}
	return map[string]any{}, nil
}

// handlePeerState caches a client-reported peer-connection diagnostic
// (connected / failed / closed and the like) for operators to read.
func (ctl *SignalWSController) handlePeerState(ctx context.Context, sid domain.MemberID, data []byte) (map[string]any, error) {
	var req struct {
		RoomID string `json:"roomId" validate:"required"`
		PeerID string `json:"peerId" validate:"required"`
		State  string `json:"state" validate:"required,max=32"`
	}
	if err := ctl.bind(data, &req); err != nil {
		return nil, err
	}
	roomID := domain.RoomID(req.RoomID)
	if current, ok := ctl.Rooms.RoomOfConn(sid); !ok || current != roomID {
		return nil, core.ErrNotInRoom
	}

	key := cache.Key(cache.KindPeerState, req.RoomID, string(sid), req.PeerID)
	rec := cache.NewPeerState(req.RoomID, string(sid), req.PeerID, req.State, time.Now())
	if err := putRecord(ctx, ctl.Cache, key, rec, ctl.Cfg.PresenceTTL); err != nil {
		return nil, core.NewError(core.KindInternal, core.CodeInternal, "peer state write: %v", err)
	}
	return map[string]any{}, nil
}
