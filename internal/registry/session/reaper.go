package session

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/extreg/extreg/internal/registry/config"
	"github.com/extreg/extreg/internal/registry/db"
)

// Reaper deletes sessions whose last use predates the inactivity window. It
// sweeps on a fixed interval in its own connection and transaction so it
// never blocks foreground requests.
type Reaper struct {
	interval   time.Duration
	expiration time.Duration
}

// NewReaper builds a reaper from the server's session configuration.
func NewReaper(cfg *config.ConfigParam) *Reaper {
	return &Reaper{
		interval:   cfg.Session.GetReaperIntervalOrDefault(),
		expiration: cfg.Session.GetExpirationTimeOrDefault(),
	}
}

// Run sweeps until the context is canceled. Call it in its own goroutine.
func (r *Reaper) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	log.Ctx(ctx).Info().Dur("interval", r.interval).Dur("expiration", r.expiration).Msg("session reaper started")
	for {
		select {
		case <-ctx.Done():
			log.Ctx(ctx).Info().Msg("session reaper stopped")
			return
		case <-ticker.C:
			r.sweep(ctx)
		}
	}
}

// sweep runs one deletion pass on a fresh connection. A failed sweep is
// logged and retried on the next tick.
func (r *Reaper) sweep(ctx context.Context) {
	connCtx, err := db.ConnCtx(ctx)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("session reaper could not get a db connection")
		return
	}
	defer func() {
		if conn := db.DB(connCtx); conn != nil {
			conn.Close(context.Background())
		}
	}()

	cutoff := time.Now().UTC().Add(-r.expiration)
	n, derr := db.DB(connCtx).DeleteExpiredUserSessions(connCtx, cutoff)
	if derr != nil {
		log.Ctx(ctx).Error().Err(derr).Msg("session reaper sweep failed")
		return
	}
	if n > 0 {
		log.Ctx(ctx).Info().Int64("deleted", n).Msg("reaped expired sessions")
	}
}
