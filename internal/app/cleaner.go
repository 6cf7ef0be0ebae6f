package app

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// Cleaner drives the periodic expiry sweep. It holds the RoomManager by
// reference and has no constructor-time side effects: the ticker starts
// only when Run is called, which main does after all wiring is done, so
// the first tick can never observe a half-built registry.
type Cleaner struct {
	rooms    *RoomManager
	interval time.Duration
}

func NewCleaner(rooms *RoomManager, interval time.Duration) *Cleaner {
	if rooms == nil {
		panic("app: NewCleaner requires a constructed RoomManager")
	}
	return &Cleaner{rooms: rooms, interval: interval}
}

// Run blocks until ctx is canceled, sweeping once per interval.
func (c *Cleaner) Run(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	log.Info().Str("module", "app.cleaner").Dur("interval", c.interval).Msg("cleanup scheduler started")
	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "app.cleaner").Msg("cleanup scheduler stopped")
			return
		case <-ticker.C:
			c.rooms.PerformCleanup()
		}
	}
}
