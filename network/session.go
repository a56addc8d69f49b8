package network

import (
	"time"

	"go.uber.org/zap"

	"siege_server/logic"
)

// Session is one attack in progress: an engine, the connection driving it
// and the watchdog bounding its age.
type Session struct {
	ID        string
	MapID     int
	Engine    *logic.Engine
	StartedAt time.Time

	client   *Client
	watchdog *Watchdog
	logger   *zap.Logger
}

// run drives the session to completion and returns once the engine is
// closed. Persistence happens in the manager after run returns.
func (s *Session) run(maxMessage int64) {
	go s.client.writePump()
	fired := make(chan bool, 1)
	go func() {
		fired <- s.watchdog.Run(s.client.quit)
	}()

	s.client.readPump(maxMessage)

	reason := s.client.closeReason()
	s.Engine.Close(reason)
	if <-fired {
		s.logger.Info("session timed out", zap.Duration("age", s.watchdog.Age))
	}
	s.logger.Info("session ended",
		zap.String("reason", reason),
		zap.String("phase", s.Engine.Phase().String()),
		zap.Duration("duration", s.watchdog.Clock.Now().Sub(s.StartedAt)),
	)
}
