// Package allocator hands out driver surfaces as frame memory for a
// decode/encode pipeline and gives the CPU access to their pixels.
//
// An Allocator is not safe for concurrent use. Its owner serialises
// calls, and keeps track of who still references a surface before
// locking or releasing it.
package allocator

import (
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"unsafe"

	"github.com/fosdem/vaframes/lib/driver"
	"github.com/fosdem/vaframes/lib/metrics"
)

type ExportMode uint32

const (
	DoNotExport  ExportMode = 0
	ExportFlink  ExportMode = 1 << 0
	ExportPrime  ExportMode = 1 << 1
	ExportCustom ExportMode = 1 << 2

	NativeExportMask = ExportFlink | ExportPrime
	exportModeMask   = ExportFlink | ExportPrime | ExportCustom
)

func ParseExportMode(s string) (ExportMode, error) {
	switch strings.ToLower(s) {
	case "", "none":
		return DoNotExport, nil
	case "flink":
		return ExportFlink, nil
	case "prime":
		return ExportPrime, nil
	case "custom":
		return ExportCustom, nil
	default:
		return 0, fmt.Errorf("unknown export mode %q", s)
	}
}

func (e ExportMode) String() string {
	if e == DoNotExport {
		return "none"
	}
	var parts []string
	if e&ExportFlink != 0 {
		parts = append(parts, "flink")
	}
	if e&ExportPrime != 0 {
		parts = append(parts, "prime")
	}
	if e&ExportCustom != 0 {
		parts = append(parts, "custom")
	}
	if e&^exportModeMask != 0 {
		parts = append(parts, fmt.Sprintf("0x%x", uint32(e&^exportModeMask)))
	}
	return strings.Join(parts, "|")
}

// Exporter makes frames available to another component. Acquire
// returning nil is a failure and aborts the allocation.
type Exporter interface {
	Acquire(mid *MemID) unsafe.Pointer
	Release(mid *MemID, token unsafe.Pointer)
}

type Params struct {
	// Name labels the allocator's metrics and logs.
	Name       string
	Display    driver.Display
	ExportMode ExportMode
	Exporter   Exporter
}

type Stats struct {
	Surfaces    int64  `json:"surfaces"`
	Buffers     int64  `json:"buffers"`
	Locked      int64  `json:"locked"`
	Allocations uint64 `json:"allocations"`
	Failures    uint64 `json:"failures"`
}

type Allocator struct {
	drv        driver.Driver
	dpy        driver.Display
	exportMode ExportMode
	exporter   Exporter

	surfaces    atomic.Int64
	buffers     atomic.Int64
	locked      atomic.Int64
	allocations atomic.Uint64
	failures    atomic.Uint64

	metrics metrics.AllocatorMetrics
	log     *slog.Logger
}

func New(drv driver.Driver, params *Params) (*Allocator, error) {
	if drv == nil || params == nil || params.Display == driver.NoDisplay {
		return nil, fmt.Errorf("%w: a driver and a display are required", ErrNotInitialized)
	}
	if params.ExportMode&^exportModeMask != 0 {
		return nil, fmt.Errorf("%w: export mode %s", ErrUnsupported, params.ExportMode)
	}
	if params.ExportMode&ExportCustom != 0 && params.Exporter == nil {
		return nil, fmt.Errorf("%w: custom export mode without an exporter", ErrUnsupported)
	}

	name := params.Name
	if name == "" {
		name = "default"
	}
	a := &Allocator{
		drv:        drv,
		dpy:        params.Display,
		exportMode: params.ExportMode,
		exporter:   params.Exporter,
		metrics:    metrics.NewAllocatorMetrics(name),
		log:        slog.With("module", "allocator:"+name),
	}
	a.log.Debug("allocator ready", "export", params.ExportMode.String())
	return a, nil
}

// CheckRequestType accepts requests that come from a known pipeline
// stage and target decoder or processor video memory.
func (a *Allocator) CheckRequestType(req *Request) error {
	if req == nil {
		return ErrNullArgument
	}
	if req.Type&memTypeFromMask == 0 {
		return fmt.Errorf("%w: request type %s has no origin", ErrUnsupported, req.Type)
	}
	if req.Type&memTypeVideoTargetMask == 0 {
		return fmt.Errorf("%w: request type %s is not video memory", ErrUnsupported, req.Type)
	}
	return nil
}

func (a *Allocator) Stats() Stats {
	return Stats{
		Surfaces:    a.surfaces.Load(),
		Buffers:     a.buffers.Load(),
		Locked:      a.locked.Load(),
		Allocations: a.allocations.Load(),
		Failures:    a.failures.Load(),
	}
}

func (a *Allocator) ExportMode() ExportMode {
	return a.exportMode
}

func (a *Allocator) addSurfaces(n int64) {
	a.surfaces.Add(n)
	a.metrics.Surfaces.Add(float64(n))
}

func (a *Allocator) addBuffers(n int64) {
	a.buffers.Add(n)
	a.metrics.Buffers.Add(float64(n))
}

// destroyImage and unmapBuffer clean up on error paths, where the
// original error is the one returned.
func (a *Allocator) destroyImage(img driver.Image) {
	if err := a.drv.DestroyImage(a.dpy, img.ID); err != nil {
		a.log.Warn("could not destroy derived image", "image", img.ID, "err", err)
	}
}

func (a *Allocator) unmapBuffer(buf driver.BufferID) {
	if err := a.drv.UnmapBuffer(a.dpy, buf); err != nil {
		a.log.Warn("could not unmap buffer", "buffer", buf, "err", err)
	}
}
