// Package daemon builds the allocator and the surface pools from a
// config and keeps them fed until it is shut down.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/fosdem/vaframes/lib/allocator"
	"github.com/fosdem/vaframes/lib/config"
	"github.com/fosdem/vaframes/lib/driver"
	"github.com/fosdem/vaframes/lib/export"
	"github.com/fosdem/vaframes/lib/ffmpegsource"
	"github.com/fosdem/vaframes/lib/frames"
	"github.com/fosdem/vaframes/lib/imgsource"
	"github.com/fosdem/vaframes/lib/stats"
	"github.com/fosdem/vaframes/lib/surfacepool"
)

// TickInterval is how often pattern pools get a new frame and all pools
// are aged.
var TickInterval = 40 * time.Millisecond

type Daemon struct {
	Allocator *allocator.Allocator
	Registry  *export.Registry
	Pools     map[string]*surfacepool.Pool
	PoolList  []*surfacepool.Pool
	Images    map[string]*imgsource.ImgSource
	Sources   map[string]*ffmpegsource.FFmpegSource
	Stats     *stats.Stats

	// Lut is driver.InvalidID when no 3D LUT is configured.
	Lut driver.SurfaceID

	// mu serialises Tick against Reload.
	mu       sync.Mutex
	cfg      *config.Config
	patterns map[string]uint64
	listener map[string][]EventListener
	log      *slog.Logger
}

func New(cfg *config.Config, drv driver.Driver, dpy driver.Display) (*Daemon, error) {
	d := &Daemon{
		Pools:    make(map[string]*surfacepool.Pool),
		Images:   make(map[string]*imgsource.ImgSource),
		Sources:  make(map[string]*ffmpegsource.FFmpegSource),
		Lut:      driver.InvalidID,
		cfg:      cfg,
		patterns: make(map[string]uint64),
		listener: make(map[string][]EventListener),
		log:      slog.With("module", "daemon"),
	}

	params := &allocator.Params{
		Name:       "vaframes",
		Display:    dpy,
		ExportMode: cfg.ExportMode(),
	}
	if cfg.ExportMode()&allocator.ExportCustom != 0 {
		d.Registry = export.NewRegistry(exportedFrames(cfg))
		params.Exporter = d.Registry
	}

	var err error
	d.Allocator, err = allocator.New(drv, params)
	if err != nil {
		return nil, fmt.Errorf("could not create allocator: %w", err)
	}
	if d.Registry != nil {
		d.Stats = stats.New(d.Allocator, d.Registry)
	} else {
		d.Stats = stats.New(d.Allocator, nil)
	}

	if cfg.Lut3D != "" {
		d.Lut, err = d.Allocator.Create3DLut(string(cfg.Lut3D))
		if err != nil {
			return nil, err
		}
		d.log.Info("loaded 3D LUT", "path", cfg.Lut3D, "surface", d.Lut)
	}

	for _, name := range poolNames(cfg) {
		pcfg := cfg.Pools[name]
		p, err := surfacepool.New(name, d.Allocator, pcfg.Request())
		if err != nil {
			return nil, errors.Join(err, d.Close())
		}
		d.Pools[name] = p
		d.PoolList = append(d.PoolList, p)
		d.Stats.AddPool(p)
		if pcfg.Pattern {
			d.patterns[name] = 0
		}
		if pcfg.Image != "" {
			src, err := imgsource.New(string(pcfg.Image), p)
			if err != nil {
				return nil, errors.Join(err, d.Close())
			}
			d.Images[name] = src
		}
		if pcfg.Cmd != "" {
			d.Sources[name] = ffmpegsource.New(pcfg.Cmd, p)
		}
	}
	return d, nil
}

func poolNames(cfg *config.Config) []string {
	names := make([]string, 0, len(cfg.Pools))
	for k := range cfg.Pools {
		names = append(names, k)
	}
	slices.Sort(names)
	return names
}

// exportedFrames is the most tokens the custom exporter can ever hand
// out for cfg.
func exportedFrames(cfg *config.Config) int {
	n := 0
	for _, p := range cfg.Pools {
		if p.MemType()&allocator.MemTypeExportFrame != 0 {
			n += p.NumAllocatedFrames
		}
	}
	return n
}

// Run starts the command sources, writes test patterns and ages every
// pool until ctx is done. It returns once all sources have stopped.
func (d *Daemon) Run(ctx context.Context) {
	var wg sync.WaitGroup
	defer wg.Wait()
	for _, src := range d.Sources {
		wg.Add(1)
		go func() {
			defer wg.Done()
			src.Run(ctx)
		}()
	}

	ticker := time.NewTicker(TickInterval)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			dt := now.Sub(last)
			last = now
			d.Tick(dt)
		}
	}
}

// Tick draws one frame into each pattern pool and ages all pools by dt.
// Image pools are only written again once they stop being ready.
func (d *Daemon) Tick(dt time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, p := range d.PoolList {
		if seq, ok := d.patterns[p.Name]; ok {
			d.writePattern(p, seq)
			d.patterns[p.Name] = seq + 1
		} else if src := d.Images[p.Name]; src != nil && !p.Stats().Ready {
			if err := src.Refresh(); err != nil {
				d.log.Warn("could not write image", "pool", p.Name, "err", err)
			} else {
				d.Stats.FrameWritten()
			}
		}
		p.Age(dt)
	}
}

func (d *Daemon) writePattern(p *surfacepool.Pool, seq uint64) {
	frame := p.GetFrameForWriting()
	if frame == nil {
		return
	}
	info := allocator.FrameInfo{FourCC: frame.Mem.Format(), Width: frame.Mem.Width(), Height: frame.Mem.Height()}
	err := frames.FillTestPattern(&frame.Data, info.FourCC, int(info.Width), int(info.Height), seq)
	if err != nil {
		d.log.Warn("could not draw test pattern", "pool", p.Name, "err", err)
		p.FailedWriting(frame)
		return
	}
	p.FinishedWriting(frame)
	d.Stats.FrameWritten()
}

// Close releases every pool and the 3D LUT. It must not run
// concurrently with Run.
func (d *Daemon) Close() error {
	var errs []error
	for _, p := range d.PoolList {
		if err := p.Close(); err != nil {
			errs = append(errs, fmt.Errorf("pool %s: %w", p.Name, err))
		}
	}
	if d.Lut != driver.InvalidID {
		errs = append(errs, d.Allocator.Release3DLut(d.Lut))
		d.Lut = driver.InvalidID
	}
	if d.Registry != nil && d.Registry.Len() > 0 {
		d.log.Warn("export tokens left after closing all pools", "count", d.Registry.Len())
	}
	return errors.Join(errs...)
}
