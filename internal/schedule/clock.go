package schedule

import (
	"fmt"
	"time"

	"github.com/meow-stack/factory-sim/internal/types"
)

// Time-of-day at which operations execute.
const (
	GenerateHour = 9
	DefaultHour  = 10
)

// Clock is the simulated calendar of one run. It only moves forward, by
// exactly one day per Advance.
type Clock struct {
	start time.Time
	day   int
	total int
}

// NewClock returns a clock positioned on day 1 of a run of total days.
// The start is truncated to midnight UTC.
func NewClock(start time.Time, total int) (*Clock, error) {
	if start.IsZero() {
		return nil, fmt.Errorf("start date is required")
	}
	if total < 1 {
		return nil, fmt.Errorf("day count must be >= 1, got %d", total)
	}
	y, m, d := start.Date()
	return &Clock{
		start: time.Date(y, m, d, 0, 0, 0, 0, time.UTC),
		day:   1,
		total: total,
	}, nil
}

// Day returns the 1-based day index.
func (c *Clock) Day() int { return c.day }

// Total returns the run length in days.
func (c *Clock) Total() int { return c.total }

// Date returns midnight of the current simulated day.
func (c *Clock) Date() time.Time {
	return c.start.AddDate(0, 0, c.day-1)
}

// Start returns midnight of the first simulated day.
func (c *Clock) Start() time.Time { return c.start }

// Last reports whether the current day is the final day of the run.
func (c *Clock) Last() bool { return c.day >= c.total }

// Advance moves the clock to the next day. It reports false, leaving the
// clock unchanged, when the run has no days left.
func (c *Clock) Advance() bool {
	if c.Last() {
		return false
	}
	c.day++
	return true
}

// At returns the as-of timestamp for op on the current day.
func (c *Clock) At(op types.Operation) time.Time {
	return c.Date().Add(time.Duration(HourFor(op)) * time.Hour)
}

// HourFor returns the hour of day op executes at.
func HourFor(op types.Operation) int {
	if op == types.OpGenerate {
		return GenerateHour
	}
	return DefaultHour
}
