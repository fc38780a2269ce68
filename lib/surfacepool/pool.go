// Package surfacepool forwards allocator frames from a single writer to
// any number of readers.
package surfacepool

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fosdem/vaframes/lib/allocator"
	"github.com/fosdem/vaframes/lib/metrics"
)

var (
	ErrBusy    = errors.New("pool has frames in use")
	ErrClosed  = errors.New("pool is closed")
	ErrNoFrame = errors.New("pool has no frame yet")
)

type Frame struct {
	ID  uint64
	Mem *allocator.MemID

	// Data is only valid between GetFrameForWriting and
	// FinishedWriting/FailedWriting.
	Data allocator.FrameData

	NumReaders         atomic.Int32
	MarkedForRecycling bool
}

// Pool owns one allocation and synchronises its frames between a
// single writer and multiple readers. Unused frames are dropped instead
// of queued, which keeps latency minimal.
type Pool struct {
	Name string
	Info allocator.FrameInfo
	Type allocator.MemType

	IsReady  bool
	FrameAge time.Duration

	alloc  *allocator.Allocator
	resp   allocator.Response
	frames []*Frame

	curReadingFrame *Frame
	bin             []*Frame
	writing         int
	closed          bool
	sync.Mutex

	LastFrameID      uint64
	DroppedFramesIn  uint64
	DroppedFramesOut uint64

	metrics metrics.PoolMetrics
	log     *slog.Logger
}

func New(name string, alloc *allocator.Allocator, req *allocator.Request) (*Pool, error) {
	if err := alloc.CheckRequestType(req); err != nil {
		return nil, fmt.Errorf("pool %s: %w", name, err)
	}

	p := &Pool{
		Name:    name,
		Info:    req.Info,
		Type:    req.Type,
		alloc:   alloc,
		metrics: metrics.NewPoolMetrics(name),
		log:     slog.With("module", "pool:"+name),
	}
	if err := alloc.Alloc(req, &p.resp); err != nil {
		return nil, fmt.Errorf("pool %s: could not allocate %d %s frames: %w",
			name, req.NumFrameSuggested, req.Info.FourCC, err)
	}

	p.frames = make([]*Frame, len(p.resp.MemIDs))
	for i, mid := range p.resp.MemIDs {
		p.frames[i] = &Frame{Mem: mid}
	}
	p.resetBin()
	p.log.Info("allocated frames", "count", len(p.frames), "format", req.Info.FourCC.String(),
		"width", req.Info.Width, "height", req.Info.Height)
	return p, nil
}

func (p *Pool) resetBin() {
	p.bin = make([]*Frame, len(p.frames))
	copy(p.bin, p.frames)
	p.curReadingFrame = nil
	p.IsReady = false
}

// GetFrameForReading gets the latest fully-written frame and blocks
// the writer from using it. Multiple readers can get the same frame
// concurrently. For each call there must be exactly one call of
// FinishedReading.
func (p *Pool) GetFrameForReading() *Frame {
	p.Lock()
	defer p.Unlock()

	frame := p.curReadingFrame
	if !p.IsReady || frame == nil {
		return nil
	}
	frame.NumReaders.Add(1)
	p.metrics.FramesRead.Inc()
	return frame
}

func (p *Pool) FinishedReading(frame *Frame) {
	p.Lock()
	defer p.Unlock()

	numReaders := frame.NumReaders.Add(-1)
	if numReaders < 0 {
		panic("FinishedReading called on frame with no readers")
	}
	if p.closed {
		return
	}
	if numReaders == 0 && frame.MarkedForRecycling {
		p.recycleFrame(frame)
	}
}

// GetFrameForWriting takes an unused frame out of the pool and locks it
// for CPU access. It returns nil and counts a dropped frame when every
// frame is in use. For each call there must be exactly one call of
// FinishedWriting or FailedWriting.
func (p *Pool) GetFrameForWriting() *Frame {
	p.Lock()
	defer p.Unlock()

	if p.closed || len(p.bin) == 0 {
		p.DroppedFramesOut += 1
		p.metrics.FramesDropped.Inc()
		return nil
	}

	frame := p.bin[len(p.bin)-1]
	if err := p.alloc.Lock(frame.Mem, &frame.Data); err != nil {
		p.log.Error("could not lock frame for writing", "surface", frame.Mem.Surface(), "err", err)
		p.DroppedFramesOut += 1
		p.metrics.FramesDropped.Inc()
		return nil
	}
	p.bin = p.bin[:len(p.bin)-1]
	p.writing++

	p.LastFrameID += 1
	frame.ID = p.LastFrameID
	frame.MarkedForRecycling = false
	return frame
}

// FinishedWriting unlocks the frame and makes it the latest frame. The
// previous latest frame goes back into the pool once its last reader
// is done with it.
func (p *Pool) FinishedWriting(frame *Frame) {
	p.Lock()
	defer p.Unlock()

	p.writing--
	if p.closed {
		// Close already unlocked and released it
		return
	}
	if err := p.alloc.Unlock(frame.Mem, &frame.Data); err != nil {
		p.log.Error("could not unlock written frame", "surface", frame.Mem.Surface(), "err", err)
		p.DroppedFramesIn += 1
		p.metrics.FramesDropped.Inc()
		p.recycleFrame(frame)
		return
	}

	if p.curReadingFrame != nil {
		if p.curReadingFrame.NumReaders.Load() == 0 {
			p.recycleFrame(p.curReadingFrame)
		} else {
			p.curReadingFrame.MarkedForRecycling = true
		}
	}

	p.curReadingFrame = frame
	p.metrics.FramesWritten.Inc()
	p.FrameAge = 0
	p.IsReady = true
}

// FailedWriting puts a frame back into the pool without updating the
// latest frame.
func (p *Pool) FailedWriting(frame *Frame) {
	p.Lock()
	defer p.Unlock()

	p.writing--
	if p.closed {
		return
	}
	if err := p.alloc.Unlock(frame.Mem, &frame.Data); err != nil {
		p.log.Warn("could not unlock failed frame", "surface", frame.Mem.Surface(), "err", err)
	}
	p.DroppedFramesIn += 1
	p.metrics.FramesDropped.Inc()
	p.recycleFrame(frame)
}

func (p *Pool) AvailableFramesForWriting() int {
	p.Lock()
	defer p.Unlock()
	return len(p.bin)
}

func (p *Pool) recycleFrame(frame *Frame) {
	if len(p.bin) >= len(p.frames) {
		panic("more frames returned than extracted??")
	}
	p.bin = append(p.bin, frame)
}

// Age marks the pool as not ready when the writer has not delivered a
// frame for a second.
func (p *Pool) Age(dt time.Duration) {
	p.Lock()
	defer p.Unlock()

	p.FrameAge += dt
	if p.FrameAge > 1*time.Second {
		p.IsReady = false
	}
}

// Snapshot locks the latest frame and passes its pixels to fn. The
// frame is unlocked again before Snapshot returns.
func (p *Pool) Snapshot(fn func(info allocator.FrameInfo, fd *allocator.FrameData) error) error {
	p.Lock()
	defer p.Unlock()

	if p.closed {
		return ErrClosed
	}
	frame := p.curReadingFrame
	if frame == nil {
		return ErrNoFrame
	}
	var fd allocator.FrameData
	if err := p.alloc.Lock(frame.Mem, &fd); err != nil {
		return err
	}
	info := allocator.FrameInfo{FourCC: frame.Mem.Format(), Width: frame.Mem.Width(), Height: frame.Mem.Height()}
	err := fn(info, &fd)
	return errors.Join(err, p.alloc.Unlock(frame.Mem, &fd))
}

// Reconfigure reallocates every frame for info. It fails with ErrBusy
// while a writer or reader still holds a frame.
func (p *Pool) Reconfigure(info allocator.FrameInfo) error {
	p.Lock()
	defer p.Unlock()

	if p.closed {
		return ErrClosed
	}
	if p.writing > 0 {
		return fmt.Errorf("%w: %d frames are being written", ErrBusy, p.writing)
	}
	for _, f := range p.frames {
		if n := f.NumReaders.Load(); n > 0 {
			return fmt.Errorf("%w: frame %d has %d readers", ErrBusy, f.ID, n)
		}
	}

	for _, f := range p.frames {
		if _, err := p.alloc.Realloc(f.Mem, &info, p.Type); err != nil {
			p.resetBin()
			return fmt.Errorf("pool %s: could not reallocate surface as %s %dx%d: %w",
				p.Name, info.FourCC, info.Width, info.Height, err)
		}
	}
	p.Info = info
	p.resetBin()
	p.log.Info("reconfigured frames", "format", info.FourCC.String(), "width", info.Width, "height", info.Height)
	return nil
}

// Close releases all frames. Frames still held by a writer are unlocked
// first; the writer's later FinishedWriting or FailedWriting is a no-op,
// as is FinishedReading.
func (p *Pool) Close() error {
	p.Lock()
	defer p.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true
	var errs []error
	for _, f := range p.frames {
		if f.Mem.Locked() {
			errs = append(errs, p.alloc.Unlock(f.Mem, &f.Data))
		}
	}
	errs = append(errs, p.alloc.Release(&p.resp))
	p.frames = nil
	p.bin = nil
	p.curReadingFrame = nil
	p.IsReady = false
	return errors.Join(errs...)
}

type Stats struct {
	Name             string `json:"name"`
	Format           string `json:"format"`
	Width            uint32 `json:"width"`
	Height           uint32 `json:"height"`
	Frames           int    `json:"frames"`
	Available        int    `json:"available"`
	Ready            bool   `json:"ready"`
	LastFrameID      uint64 `json:"last_frame_id"`
	DroppedFramesIn  uint64 `json:"dropped_frames_in"`
	DroppedFramesOut uint64 `json:"dropped_frames_out"`
}

func (p *Pool) Stats() Stats {
	p.Lock()
	defer p.Unlock()

	return Stats{
		Name:             p.Name,
		Format:           p.Info.FourCC.String(),
		Width:            p.Info.Width,
		Height:           p.Info.Height,
		Frames:           len(p.frames),
		Available:        len(p.bin),
		Ready:            p.IsReady,
		LastFrameID:      p.LastFrameID,
		DroppedFramesIn:  p.DroppedFramesIn,
		DroppedFramesOut: p.DroppedFramesOut,
	}
}
