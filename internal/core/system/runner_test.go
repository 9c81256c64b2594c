package system

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type probe struct {
	name  string
	phase Phase
	log   *[]string
}

func (p probe) Phase() Phase            { return p.phase }
func (p probe) Update(dt time.Duration) { *p.log = append(*p.log, p.name) }

func TestRunner_PhaseOrder(t *testing.T) {
	var log []string
	r := NewRunner()
	r.Register(probe{"cleanup", PhaseCleanup, &log})
	r.Register(probe{"spawn", PhasePostUpdate, &log})
	r.Register(probe{"budget", PhasePreUpdate, &log})
	r.Register(probe{"events", PhasePreUpdate, &log})

	r.Tick(time.Millisecond)
	assert.Equal(t, []string{"budget", "events", "spawn", "cleanup"}, log)

	log = log[:0]
	r.TickPhase(PhasePreUpdate, time.Millisecond)
	assert.Equal(t, []string{"budget", "events"}, log)
	assert.Equal(t, 4, r.Len())
}
