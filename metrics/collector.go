package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/opd-ai/beak/cache"
	"github.com/opd-ai/beak/engine"
	"github.com/opd-ai/beak/transport"
)

// Namespace prefixes every metric name.
const Namespace = "beak"

// EngineSource reports engine counters.
type EngineSource interface {
	Stats() engine.Stats
	Configured() bool
}

// CacheSource reports asset cache counters.
type CacheSource interface {
	Stats() cache.Stats
}

// ServerSource reports control-plane counters.
type ServerSource interface {
	Stats() transport.ServerStats
}

// Sources groups the components a Collector reads. Nil members are skipped.
type Sources struct {
	Engine EngineSource
	Cache  CacheSource
	Server ServerSource
}

// Collector is a prometheus.Collector over Sources.
type Collector struct {
	src Sources

	nodes          *prometheus.Desc
	connections    *prometheus.Desc
	oneShots       *prometheus.Desc
	pendingNotes   *prometheus.Desc
	played         *prometheus.Desc
	removed        *prometheus.Desc
	reclaimed      *prometheus.Desc
	blocks         *prometheus.Desc
	droppedEvents  *prometheus.Desc
	configured     *prometheus.Desc
	cacheEntries   *prometheus.Desc
	cacheFetches   *prometheus.Desc
	cacheLookups   *prometheus.Desc
	notModified    *prometheus.Desc
	breakerState   *prometheus.Desc
	packets        *prometheus.Desc
}

// NewCollector creates a Collector.
func NewCollector(src Sources) *Collector {
	desc := func(subsystem, name, help string, labels ...string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(Namespace, subsystem, name), help, labels, nil)
	}
	return &Collector{
		src:           src,
		nodes:         desc("graph", "nodes", "Nodes currently in the render graph"),
		connections:   desc("graph", "connections", "Connections currently in the render graph"),
		oneShots:      desc("engine", "active_one_shots", "One-shot players awaiting removal"),
		pendingNotes:  desc("engine", "pending_notes", "Timed synth notes awaiting release"),
		played:        desc("engine", "played_total", "One-shot playbacks started"),
		removed:       desc("engine", "removed_total", "Finished one-shot players removed"),
		reclaimed:     desc("graph", "reclaimed_total", "Retired nodes released after the render thread moved on"),
		blocks:        desc("graph", "blocks_total", "Audio blocks rendered"),
		droppedEvents: desc("graph", "dropped_completions_total", "Completion notifications that found the queue full"),
		configured:    desc("engine", "configured", "1 while the engine has an open device"),
		cacheEntries:  desc("cache", "entries", "Decoded assets held in the cache"),
		cacheFetches:  desc("cache", "fetches_total", "Asset loads from disk or network"),
		cacheLookups:  desc("cache", "lookups_total", "Cache lookups by result", "result"),
		notModified:   desc("cache", "not_modified_total", "Remote revalidations answered with 304"),
		breakerState:  desc("cache", "breaker_state", "Download circuit breaker state", "state"),
		packets:       desc("control", "packets_total", "Control packets by outcome", "outcome"),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range []*prometheus.Desc{
		c.nodes, c.connections, c.oneShots, c.pendingNotes, c.played, c.removed,
		c.reclaimed, c.blocks, c.droppedEvents, c.configured, c.cacheEntries,
		c.cacheFetches, c.cacheLookups, c.notModified, c.breakerState, c.packets,
	} {
		ch <- d
	}
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	gauge := func(d *prometheus.Desc, v float64, labels ...string) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.GaugeValue, v, labels...)
	}
	counter := func(d *prometheus.Desc, v uint64, labels ...string) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.CounterValue, float64(v), labels...)
	}

	if e := c.src.Engine; e != nil {
		s := e.Stats()
		gauge(c.nodes, float64(s.Nodes))
		gauge(c.connections, float64(s.Connections))
		gauge(c.oneShots, float64(s.ActiveOneShots))
		gauge(c.pendingNotes, float64(s.PendingNotes))
		counter(c.played, s.Played)
		counter(c.removed, s.Removed)
		counter(c.reclaimed, s.Reclaimed)
		counter(c.blocks, s.Blocks)
		counter(c.droppedEvents, s.DroppedCompletion)
		if e.Configured() {
			gauge(c.configured, 1)
		} else {
			gauge(c.configured, 0)
		}
	}

	if a := c.src.Cache; a != nil {
		s := a.Stats()
		gauge(c.cacheEntries, float64(s.Entries))
		counter(c.cacheFetches, s.Fetches)
		counter(c.cacheLookups, s.Hits, "hit")
		counter(c.cacheLookups, s.Misses, "miss")
		counter(c.notModified, s.NotModified)
		for _, state := range []string{"closed", "half-open", "open"} {
			v := 0.0
			if s.BreakerState == state {
				v = 1
			}
			gauge(c.breakerState, v, state)
		}
	}

	if srv := c.src.Server; srv != nil {
		s := srv.Stats()
		counter(c.packets, s.Received, "received")
		counter(c.packets, s.Malformed, "malformed")
		counter(c.packets, s.Unhandled, "unhandled")
		counter(c.packets, s.Dropped, "dropped")
		counter(c.packets, s.Handled, "handled")
		counter(c.packets, s.Failed, "failed")
	}
}
