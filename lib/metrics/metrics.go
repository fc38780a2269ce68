package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	SurfacesLive = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "vaframes_allocator_surfaces",
		Help: "Number of driver surfaces currently held by the allocator",
	}, []string{"allocator"})
	BuffersLive = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "vaframes_allocator_buffers",
		Help: "Number of driver bitstream buffers currently held by the allocator",
	}, []string{"allocator"})
	Allocations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vaframes_allocator_allocations_total",
		Help: "Total number of successful allocation batches",
	}, []string{"allocator"})
	AllocationFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vaframes_allocator_allocation_failures_total",
		Help: "Total number of allocation batches that were unwound",
	}, []string{"allocator"})
	Locks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vaframes_allocator_locks_total",
		Help: "Total number of frames locked for CPU access",
	}, []string{"allocator"})

	FramesWritten = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vaframes_pool_frames_written_total",
		Help: "Total number of frames written into a surface pool",
	}, []string{"name"})
	FramesRead = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vaframes_pool_frames_read_total",
		Help: "Total number of frames handed to readers of a surface pool",
	}, []string{"name"})
	FramesDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vaframes_pool_frames_dropped_total",
		Help: "Total number of frames dropped by a surface pool",
	}, []string{"name"})
)

type AllocatorMetrics struct {
	Surfaces           prometheus.Gauge
	Buffers            prometheus.Gauge
	Allocations        prometheus.Counter
	AllocationFailures prometheus.Counter
	Locks              prometheus.Counter
}

func NewAllocatorMetrics(name string) AllocatorMetrics {
	m := AllocatorMetrics{
		Surfaces:           SurfacesLive.WithLabelValues(name),
		Buffers:            BuffersLive.WithLabelValues(name),
		Allocations:        Allocations.WithLabelValues(name),
		AllocationFailures: AllocationFailures.WithLabelValues(name),
		Locks:              Locks.WithLabelValues(name),
	}
	m.Allocations.Add(0)
	m.AllocationFailures.Add(0)
	m.Locks.Add(0)
	return m
}

type PoolMetrics struct {
	FramesWritten prometheus.Counter
	FramesRead    prometheus.Counter
	FramesDropped prometheus.Counter
}

func NewPoolMetrics(name string) PoolMetrics {
	p := PoolMetrics{
		FramesWritten: FramesWritten.WithLabelValues(name),
		FramesRead:    FramesRead.WithLabelValues(name),
		FramesDropped: FramesDropped.WithLabelValues(name),
	}
	p.FramesWritten.Add(0)
	p.FramesRead.Add(0)
	p.FramesDropped.Add(0)
	return p
}

// Handler should usually be mounted at /metrics
func Handler() http.Handler {
	return promhttp.Handler()
}
