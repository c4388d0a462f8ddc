// Package metrics exposes a running allocator's buddy and slab
// occupancy as Prometheus metrics, the same kind of external
// observability surface a production service wraps around its
// internals rather than baking into them.
package metrics

import (
	"strconv"

	_ "github.com/povilasv/prommod" // registers Go module build info as a collector
	"github.com/prometheus/client_golang/prometheus"

	"kalloc/buddy"
	"kalloc/slab"
)

// Collector adapts a buddy.Area and slab.Registry to the
// prometheus.Collector interface so they can be registered with any
// Prometheus registry.
type Collector struct {
	area     *buddy.Area
	registry *slab.Registry

	freePages   *prometheus.Desc
	freeBlocks  *prometheus.Desc
	cacheSlabs  *prometheus.Desc
	cacheActive *prometheus.Desc
	cacheObjs   *prometheus.Desc
}

// NewCollector builds a Collector over area and registry. Register it
// with a prometheus.Registry to start exporting.
func NewCollector(area *buddy.Area, registry *slab.Registry) *Collector {
	return &Collector{
		area:     area,
		registry: registry,
		freePages: prometheus.NewDesc(
			"kalloc_buddy_free_pages_total",
			"Total free pages tracked by the buddy allocator.",
			nil, nil,
		),
		freeBlocks: prometheus.NewDesc(
			"kalloc_buddy_free_blocks",
			"Number of free blocks at a given order.",
			[]string{"order"}, nil,
		),
		cacheSlabs: prometheus.NewDesc(
			"kalloc_slab_cache_slabs",
			"Number of slabs owned by a cache.",
			[]string{"cache"}, nil,
		),
		cacheActive: prometheus.NewDesc(
			"kalloc_slab_cache_active_objects",
			"Number of live objects allocated from a cache.",
			[]string{"cache"}, nil,
		),
		cacheObjs: prometheus.NewDesc(
			"kalloc_slab_cache_capacity_objects",
			"Total object capacity across a cache's slabs.",
			[]string{"cache"}, nil,
		),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.freePages
	ch <- c.freeBlocks
	ch <- c.cacheSlabs
	ch <- c.cacheActive
	ch <- c.cacheObjs
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	ch <- prometheus.MustNewConstMetric(c.freePages, prometheus.GaugeValue, float64(c.area.NumFreePages()))
	for order := 0; order < buddy.MaxOrder; order++ {
		n := c.area.NumFreePagesOrder(order)
		if n == 0 {
			continue
		}
		ch <- prometheus.MustNewConstMetric(c.freeBlocks, prometheus.GaugeValue, float64(n), strconv.Itoa(order))
	}

	c.registry.ForEach(func(cache *slab.Cache) {
		s := cache.Stats()
		ch <- prometheus.MustNewConstMetric(c.cacheSlabs, prometheus.GaugeValue, float64(s.NumSlabs), s.Name)
		ch <- prometheus.MustNewConstMetric(c.cacheActive, prometheus.GaugeValue, float64(s.NumActive), s.Name)
		ch <- prometheus.MustNewConstMetric(c.cacheObjs, prometheus.GaugeValue, float64(s.NumObjs), s.Name)
	})
}
