package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/l1jgo/spawnpool/internal/pool"
	"github.com/l1jgo/spawnpool/internal/spawner"
)

func TestCollector_Pools(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(reg)

	c.PoolChanged("wolf", 3, 2)
	c.Acquired("wolf", pool.ResultOK)
	c.Acquired("wolf", pool.ResultOK)
	c.Acquired("wolf", pool.ResultExhausted)

	assert.Equal(t, 3.0, testutil.ToFloat64(c.poolFree.WithLabelValues("wolf")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.poolInUse.WithLabelValues("wolf")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.acquires.WithLabelValues("wolf", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.acquires.WithLabelValues("wolf", "exhausted")))

	c.PoolDropped("wolf")
	assert.Equal(t, 0, testutil.CollectAndCount(c.poolFree))
}

func TestCollector_Spawners(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(reg)

	c.ObserveStates(map[spawner.State]int{spawner.StateAlive: 4, spawner.StateRespawning: 1})
	assert.Equal(t, 4.0, testutil.ToFloat64(c.spawnerStates.WithLabelValues("alive")))
	assert.Equal(t, 0.0, testutil.ToFloat64(c.spawnerStates.WithLabelValues("creating")))
	assert.Equal(t, len(spawner.States), testutil.CollectAndCount(c.spawnerStates))

	c.WaveFinished("group", true)
	c.WaveFinished("group", false)
	c.WaveFinished("group", true)
	assert.Equal(t, 2.0, testutil.ToFloat64(c.waves.WithLabelValues("group", "true")))

	c.BudgetOverrun()
	assert.Equal(t, 1.0, testutil.ToFloat64(c.overruns))

	c.ObserveTick(3 * time.Millisecond)
	n, err := testutil.GatherAndCount(reg, "spawnpool_tick_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestCollector_FedByPool(t *testing.T) {
	c := New(prometheus.NewRegistry())
	p, err := pool.New(1, "bat", benchFactory{}, 1, pool.Options{Observer: c}, nil)
	require.NoError(t, err)

	_, err = p.Acquire(true)
	require.NoError(t, err)
	_, err = p.Acquire(true)
	assert.ErrorIs(t, err, pool.ErrExhausted)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.acquires.WithLabelValues("bat", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.acquires.WithLabelValues("bat", "exhausted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.poolInUse.WithLabelValues("bat")))
}

type benchFactory struct{}

func (benchFactory) New() (*pool.Instance, error) { return &pool.Instance{}, nil }
func (benchFactory) Destroy(*pool.Instance)       {}
