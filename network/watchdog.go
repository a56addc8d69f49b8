package network

import (
	"time"

	"siege_server/logic"
)

// Watchdog enforces the wall-clock age of a session. It runs beside the
// session's read loop and never touches the engine: all it can do is push
// the timeout event and ask the connection to wind down.
type Watchdog struct {
	Start    time.Time
	Age      time.Duration
	Interval time.Duration
	Clock    logic.Clock
	Send     func(logic.Event) bool
	Expire   func(reason string)
}

// Run blocks until the session ends (done closes) or the age, counted from
// Start, is exceeded. It reports whether it fired.
func (w *Watchdog) Run(done <-chan struct{}) bool {
	start := w.Start
	if start.IsZero() {
		start = w.Clock.Now()
	}
	ticker := time.NewTicker(w.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return false
		case <-ticker.C:
			if w.Clock.Now().Sub(start) < w.Age {
				continue
			}
			ev := logic.TimeoutEvent()
			w.Send(ev)
			w.Expire(ev.Message)
			return true
		}
	}
}
