package netwk

import (
	"context"
	"time"

	"github.com/beevik/ntp"
)

const (
	syncAttempts  = 3
	syncPollLimit = 10
)

// TimeQuery asks a remote reference for the current time.
type TimeQuery func(server string) (time.Time, error)

// NTPQuery is the production TimeQuery, backed by SNTP.
func NTPQuery(server string) (time.Time, error) {
	return ntp.Time(server)
}

// SyncTime attempts to synchronize the node clock, up to three attempts with
// backoff between them. It is fail-open: on total failure it returns false
// and leaves the existing clock state untouched, and callers proceed with
// whatever clock exists.
func (c *Coordinator) SyncTime(ctx context.Context, server string, gmtOffset, dstOffset time.Duration) bool {
	for attempt := 1; attempt <= syncAttempts; attempt++ {
		c.logger.Info("time sync attempt", "n", attempt, "of", syncAttempts, "server", server)
		if c.syncOnce(ctx, server, gmtOffset, dstOffset) {
			c.logger.Info("time synchronized", "now", c.clock.Now())
			return true
		}
		if attempt < syncAttempts {
			c.sleep(c.syncBackoff)
		}
	}

	c.logger.Error("time sync failed after all attempts; continuing with existing clock")
	return false
}

func (c *Coordinator) syncOnce(ctx context.Context, server string, gmtOffset, dstOffset time.Duration) bool {
	remote, err := c.query(server)
	if err != nil {
		c.logger.Warn("time query failed", "error", err)
		return false
	}

	correction := remote.Sub(c.clock.hostNow()) + gmtOffset + dstOffset

	// Poll for the candidate clock to clear the unset-clock sentinel.
	passed := false
	for i := 0; i < syncPollLimit; i++ {
		if ctx.Err() != nil {
			return false
		}
		if c.clock.hostNow().Add(correction).Unix() > sentinelEpoch {
			passed = true
			break
		}
		c.sleep(c.syncPoll)
	}
	if !passed {
		c.logger.Warn("clock did not advance past sentinel")
		return false
	}

	// A clock barely past the sentinel can still sit in 1970, which means
	// the reference never produced a real date. Reject it.
	if candidate := c.clock.hostNow().Add(correction); candidate.Year() <= 1970 {
		c.logger.Warn("time reference returned invalid year", "year", candidate.Year())
		return false
	}

	c.clock.adopt(correction)
	return true
}
