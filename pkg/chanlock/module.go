package chanlock

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/sasha-s/go-deadlock"
)

const (
	TIMEOUT_DURATION      = 15 * time.Second
	HEALTH_CHECK_DURATION = 1 * time.Second
)

// Chanlock watches an event loop for liveness. The loop receives from the
// channel returned by Poll; if it stops draining for TIMEOUT_DURATION the
// watchdog logs the last mark the loop reported.
type Chanlock struct {
	log      zerolog.Logger
	lastMark string
	ticker   *time.Ticker
	mutex    deadlock.RWMutex
}

func New(logger zerolog.Logger) *Chanlock {
	return &Chanlock{
		log:    logger,
		ticker: time.NewTicker(HEALTH_CHECK_DURATION),
	}
}

// Mark records the last event the loop started handling.
func (c *Chanlock) Mark(name string) {
	c.mutex.Lock()
	c.lastMark = name
	c.mutex.Unlock()
}

func (c *Chanlock) Poll(ctx context.Context) <-chan time.Time {
	out := make(chan time.Time)

	go func() {
		for {
			select {
			case t := <-c.ticker.C:
				timeout := time.NewTimer(TIMEOUT_DURATION)
				ok := make(chan bool)

				go func() {
					select {
					case <-ctx.Done():
					case <-ok:
					case <-timeout.C:
						c.mutex.RLock()
						mark := c.lastMark
						c.mutex.RUnlock()

						event := c.log.Error()
						if mark != "" {
							event = event.Str("lastMark", mark)
						}
						event.Msg("event loop no longer healthy")
					}
				}()

				select {
				case out <- t:
					timeout.Stop()
					close(ok)
				case <-ctx.Done():
					timeout.Stop()
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	return out
}
