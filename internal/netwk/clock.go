package netwk

import "time"

// sentinelEpoch detects a clock that has never been set: anything at or
// below it is treated as the unsynchronized power-on default.
const sentinelEpoch int64 = 100000

// Clock is the node's wall clock: host monotonic time shifted by an
// NTP-derived correction plus the configured UTC/DST offset. Until a sync
// succeeds it reflects whatever the host clock holds.
type Clock struct {
	hostNow func() time.Time
	offset  time.Duration
	synced  bool
}

func NewClock() *Clock {
	return &Clock{hostNow: time.Now}
}

// Now returns the current node wall-clock time.
func (c *Clock) Now() time.Time {
	return c.hostNow().Add(c.offset)
}

// Synced reports whether a time synchronization has ever succeeded.
func (c *Clock) Synced() bool {
	return c.synced
}

func (c *Clock) adopt(offset time.Duration) {
	c.offset = offset
	c.synced = true
}
