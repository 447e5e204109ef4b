// SPDX-License-Identifier: MIT
package feature

import "time"

// Clock converts between wall time and the monotonic microsecond stamps
// carried in frame timestamps. Both execution contexts must share one
// Clock instance so that frame age is computed against a common epoch.
type Clock struct {
	epoch time.Time
}

// NewClock anchors a clock at the given epoch, typically process start.
func NewClock(epoch time.Time) *Clock {
	return &Clock{epoch: epoch}
}

// Micros returns the monotonic microsecond stamp for t.
func (c *Clock) Micros(t time.Time) int64 {
	return t.Sub(c.epoch).Microseconds()
}

// Time reconstructs the wall time for a microsecond stamp.
func (c *Clock) Time(micros int64) time.Time {
	return c.epoch.Add(time.Duration(micros) * time.Microsecond)
}
