// Package metrics exports pool and spawner activity as Prometheus metrics.
// A Collector is fed from the simulation goroutine: pools and spawners call
// it as observers, the metrics system polls spawner states once per tick.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/l1jgo/spawnpool/internal/pool"
	"github.com/l1jgo/spawnpool/internal/spawner"
)

const namespace = "spawnpool"

// Collector owns every spawnpool metric. It implements pool.Observer and
// spawner.Observer.
type Collector struct {
	poolFree      *prometheus.GaugeVec   // free instances per prototype
	poolInUse     *prometheus.GaugeVec   // handed-out instances per prototype
	acquires      *prometheus.CounterVec // acquire outcomes
	spawnerStates *prometheus.GaugeVec
	waves         *prometheus.CounterVec
	overruns      prometheus.Counter
	tickDuration  prometheus.Histogram
}

// New registers the metrics with reg. Pass prometheus.NewRegistry() in
// tests to keep them isolated.
func New(reg prometheus.Registerer) *Collector {
	f := promauto.With(reg)
	return &Collector{
		poolFree: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pool_free",
			Help:      "Instances parked in the free queue of each pool.",
		}, []string{"prototype"}),
		poolInUse: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pool_in_use",
			Help:      "Instances currently handed out by each pool.",
		}, []string{"prototype"}),
		acquires: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pool_acquire_total",
			Help:      "Acquire calls by outcome.",
		}, []string{"prototype", "result"}),
		spawnerStates: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "spawner_state",
			Help:      "Registered spawners per state.",
		}, []string{"state"}),
		waves: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "waves_total",
			Help:      "Finished waves by spawner kind.",
		}, []string{"kind", "all_killed"}),
		overruns: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "budget_overrun_total",
			Help:      "Ticks in which spawning ran out of time budget.",
		}),
		tickDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tick_duration_seconds",
			Help:      "Wall time of one simulation tick.",
			Buckets:   []float64{.0005, .001, .002, .004, .008, .016, .032, .064, .128},
		}),
	}
}

func (c *Collector) PoolChanged(name string, free, inUse int) {
	c.poolFree.WithLabelValues(name).Set(float64(free))
	c.poolInUse.WithLabelValues(name).Set(float64(inUse))
}

func (c *Collector) Acquired(name string, r pool.Result) {
	c.acquires.WithLabelValues(name, string(r)).Inc()
}

// PoolDropped forgets the gauges of a pool the registry discarded.
func (c *Collector) PoolDropped(name string) {
	c.poolFree.DeleteLabelValues(name)
	c.poolInUse.DeleteLabelValues(name)
}

func (c *Collector) WaveFinished(kind string, allKilled bool) {
	c.waves.WithLabelValues(kind, strconv.FormatBool(allKilled)).Inc()
}

// ObserveStates publishes a count per spawner state. States missing from
// counts are reported as zero.
func (c *Collector) ObserveStates(counts map[spawner.State]int) {
	for _, st := range spawner.States {
		c.spawnerStates.WithLabelValues(st.String()).Set(float64(counts[st]))
	}
}

func (c *Collector) BudgetOverrun() { c.overruns.Inc() }

func (c *Collector) ObserveTick(d time.Duration) { c.tickDuration.Observe(d.Seconds()) }

var (
	_ pool.Observer    = (*Collector)(nil)
	_ spawner.Observer = (*Collector)(nil)
)
