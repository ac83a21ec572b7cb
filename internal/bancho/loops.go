package bancho

import (
	"context"
	"time"
)

const (
	sweepInterval     = 30 * time.Second
	cacheTrimInterval = time.Hour
)

// RunHousekeeping drives the periodic maintenance loops until the
// context is cancelled: evicting sessions that stopped sending packets,
// and trimming the password verification cache. It blocks, so callers
// run it on its own goroutine.
func (s *Server) RunHousekeeping(ctx context.Context) {
	sweep := time.NewTicker(sweepInterval)
	defer sweep.Stop()
	trim := time.NewTicker(cacheTrimInterval)
	defer trim.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-sweep.C:
			s.sweepStaleSessions()
		case <-trim.C:
			s.pwCache.trim()
		}
	}
}

// sweepStaleSessions disconnects every session whose last inbound
// packet is older than the configured timeout. Clients ping every few
// seconds, so a silent session is a dead socket whose close we missed.
func (s *Server) sweepStaleSessions() {
	s.world.Lock()
	defer s.world.Unlock()

	deadline := s.clock.Now().Add(-s.cfg.SessionTimeout)
	var stale []string
	for _, p := range s.world.Players.All() {
		if p.LastRecvTime.Before(deadline) {
			stale = append(stale, p.Token)
		}
	}
	for _, token := range stale {
		p, ok := s.world.Players.ByToken(token)
		if !ok {
			continue
		}
		s.log.Info("evicting stale session",
			"player", p.Name,
			"last_recv", p.LastRecvTime,
		)
		s.world.RemoveSession(p)
	}
}
