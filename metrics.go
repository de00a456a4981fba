package arena

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/samber/lo"
)

// SizeInUse returns the total number of allocated bytes across all segments,
// including the root word and landing pads.
func (a *Arena) SizeInUse() int {
	return lo.SumBy(a.segments, func(s *Segment) int { return s.end })
}

// NumSegments returns the number of segments in the arena.
func (a *Arena) NumSegments() int {
	return len(a.segments)
}

// Capacity returns the total capacity (in bytes) of all segments.
func (a *Arena) Capacity() int {
	return lo.SumBy(a.segments, func(s *Segment) int { return len(s.raw) })
}

// Utilization returns the ratio of bytes in use to total capacity (0.0 to 1.0).
func (a *Arena) Utilization() float64 {
	capacity := a.Capacity()
	if capacity == 0 {
		return 0
	}
	return float64(a.SizeInUse()) / float64(capacity)
}

// NextSegmentSize returns the capacity hint for the next new segment.
func (a *Arena) NextSegmentSize() int {
	return a.nextSize
}

// Metrics returns a snapshot of arena statistics.
func (a *Arena) Metrics() ArenaMetrics {
	return ArenaMetrics{
		SizeInUse:       a.SizeInUse(),
		Capacity:        a.Capacity(),
		NumSegments:     a.NumSegments(),
		NextSegmentSize: a.NextSegmentSize(),
		Utilization:     a.Utilization(),
	}
}

// ArenaMetrics contains statistical information about an arena.
type ArenaMetrics struct {
	SizeInUse       int     // Bytes allocated
	Capacity        int     // Total capacity in bytes
	NumSegments     int     // Number of segments
	NextSegmentSize int     // Capacity hint for the next segment
	Utilization     float64 // Ratio of used to total capacity (0.0-1.0)
}

func (m ArenaMetrics) String() string {
	return fmt.Sprintf("%s of %s in %d segments (%.1f%%)",
		humanBytes(m.SizeInUse), humanBytes(m.Capacity), m.NumSegments, m.Utilization*100)
}

func humanBytes(n int) string {
	return humanize.IBytes(uint64(n))
}

// AllocatorMetrics counts allocator activity across every arena it is passed
// to. A nil *AllocatorMetrics records nothing.
type AllocatorMetrics struct {
	segmentsCreated prometheus.Counter
	bytesAllocated  prometheus.Counter
	landingPads     *prometheus.CounterVec
	limitRejections *prometheus.CounterVec
}

// NewAllocatorMetrics creates the allocator counters and registers them with
// r when it is not nil.
func NewAllocatorMetrics(r prometheus.Registerer) *AllocatorMetrics {
	m := &AllocatorMetrics{}

	m.segmentsCreated = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "msgarena_segments_created_total",
		Help: "Segments opened beyond the first segment of each arena.",
	})
	m.bytesAllocated = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "msgarena_bytes_allocated_total",
		Help: "Bytes handed out by arenas, including landing pads.",
	})
	m.landingPads = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "msgarena_landing_pads_total",
		Help: "Far-pointer landing pads written, by kind.",
	}, []string{"kind"})
	m.limitRejections = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "msgarena_limit_rejections_total",
		Help: "Allocations refused by the limiter, by reason.",
	}, []string{"reason"})

	if r != nil {
		r.MustRegister(
			m.segmentsCreated,
			m.bytesAllocated,
			m.landingPads,
			m.limitRejections,
		)
	}
	return m
}

func (m *AllocatorMetrics) segmentCreated() {
	if m != nil {
		m.segmentsCreated.Inc()
	}
}

func (m *AllocatorMetrics) allocated(n int) {
	if m != nil {
		m.bytesAllocated.Add(float64(n))
	}
}

func (m *AllocatorMetrics) landingPad(kind string) {
	if m != nil {
		m.landingPads.WithLabelValues(kind).Inc()
	}
}

func (m *AllocatorMetrics) rejected(reason string) {
	if m != nil {
		m.limitRejections.WithLabelValues(reason).Inc()
	}
}

// MetricsSource is anything that can produce an arena snapshot. SafeArena is
// the usual choice, since collection happens on the scraping goroutine.
type MetricsSource interface {
	Metrics() ArenaMetrics
}

var (
	sizeInUseDesc   = prometheus.NewDesc("msgarena_size_in_use_bytes", "Bytes allocated in the arena.", nil, nil)
	capacityDesc    = prometheus.NewDesc("msgarena_capacity_bytes", "Total segment capacity of the arena.", nil, nil)
	segmentsDesc    = prometheus.NewDesc("msgarena_segments", "Number of segments in the arena.", nil, nil)
	utilizationDesc = prometheus.NewDesc("msgarena_utilization_ratio", "Ratio of allocated bytes to capacity.", nil, nil)
)

// Collector exposes a live arena's snapshot as gauges.
type Collector struct {
	src MetricsSource
}

// NewCollector returns a prometheus.Collector reading from src on every scrape.
func NewCollector(src MetricsSource) *Collector {
	return &Collector{src: src}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- sizeInUseDesc
	ch <- capacityDesc
	ch <- segmentsDesc
	ch <- utilizationDesc
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	m := c.src.Metrics()
	ch <- prometheus.MustNewConstMetric(sizeInUseDesc, prometheus.GaugeValue, float64(m.SizeInUse))
	ch <- prometheus.MustNewConstMetric(capacityDesc, prometheus.GaugeValue, float64(m.Capacity))
	ch <- prometheus.MustNewConstMetric(segmentsDesc, prometheus.GaugeValue, float64(m.NumSegments))
	ch <- prometheus.MustNewConstMetric(utilizationDesc, prometheus.GaugeValue, m.Utilization)
}
