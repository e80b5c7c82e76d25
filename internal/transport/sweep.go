package transport

import (
	"time"

	"github.com/gorilla/websocket"
)

func (s *implServer) startSweep() {
	s.sweepOnce.Do(func() {
		go s.sweepLoop()
	})
}

// sweepLoop force-closes connections that have been silent longer than the
// heartbeat timeout. Session state is left untouched.
func (s *implServer) sweepLoop() {
	ticker := time.NewTicker(s.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.sweepCtx.Done():
			return
		case now := <-ticker.C:
			s.sweep(now)
		}
	}
}

func (s *implServer) sweep(now time.Time) int {
	s.mu.Lock()
	var stale []*conn
	for c := range s.conns {
		if c.silentFor(now) > s.cfg.HeartbeatTimeout {
			stale = append(stale, c)
		}
	}
	s.mu.Unlock()

	for _, c := range stale {
		s.logger.Warn(s.sweepCtx, "conn=%s silent for %s, disconnecting", c.id, c.silentFor(now).Round(time.Second))
		s.metrics.HeartbeatDisconnects.Inc()
		c.close(websocket.ClosePolicyViolation, "heartbeat timeout")
	}
	return len(stale)
}
