package level

import "time"

// Clock is the level's game clock: elapsed play time and the player's
// accumulated score. Spawn triggers read both.
type Clock struct {
	elapsed float64
	score   float64
	paused  bool
}

func (c *Clock) Advance(dt time.Duration) {
	if !c.paused {
		c.elapsed += dt.Seconds()
	}
}

func (c *Clock) Elapsed() float64 { return c.elapsed }
func (c *Clock) Score() float64   { return c.score }

func (c *Clock) AddScore(v float64) { c.score += v }

func (c *Clock) Pause(p bool) { c.paused = p }

// Reset zeroes time and score for a fresh level.
func (c *Clock) Reset() {
	c.elapsed, c.score = 0, 0
	c.paused = false
}
