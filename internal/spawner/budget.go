package spawner

import "time"

// Budget is the per-tick stopwatch shared by every spawner. BudgetSystem
// resets it once per tick; creation and activation loops check it between
// single instance operations.
type Budget struct {
	max   time.Duration
	now   func() time.Time
	start time.Time

	overrun bool
}

// NewBudget returns a budget of max per tick. max <= 0 disables the limit.
func NewBudget(max time.Duration) *Budget {
	b := &Budget{max: max, now: time.Now}
	b.start = b.now()
	return b
}

// SetClock replaces the time source. Tests use it to make slicing deterministic.
func (b *Budget) SetClock(now func() time.Time) {
	b.now = now
	b.start = now()
}

func (b *Budget) Max() time.Duration { return b.max }

// Reset starts a new tick.
func (b *Budget) Reset() {
	b.start = b.now()
	b.overrun = false
}

func (b *Budget) Elapsed() time.Duration {
	return b.now().Sub(b.start)
}

// Exhausted reports whether this tick's budget is spent. The first positive
// answer in a tick is remembered for Overrun.
func (b *Budget) Exhausted() bool {
	if b.max <= 0 {
		return false
	}
	if b.Elapsed() >= b.max {
		b.overrun = true
		return true
	}
	return false
}

// Overrun reports whether any loop hit the budget since the last Reset.
func (b *Budget) Overrun() bool { return b.overrun }
