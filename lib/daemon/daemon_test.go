//go:build linux

package daemon

import (
	"context"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fosdem/vaframes/lib/allocator"
	"github.com/fosdem/vaframes/lib/config"
	"github.com/fosdem/vaframes/lib/driver"
	"github.com/fosdem/vaframes/lib/driver/softva"
	"github.com/fosdem/vaframes/lib/fourcc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func poolCfg(format string, w, h, n int, usage ...string) *config.PoolCfg {
	p := &config.PoolCfg{Format: format, Usage: usage}
	p.Width, p.Height, p.NumAllocatedFrames = w, h, n
	return p
}

func testConfig(t *testing.T, export string) *config.Config {
	t.Helper()
	pattern := poolCfg("NV12", 64, 32, 3, "from_vppout", "processor_target")
	pattern.Pattern = true
	cfg := &config.Config{
		Export: export,
		Pools: map[string]*config.PoolCfg{
			"decode":  poolCfg("P010", 64, 64, 4, "from_decode", "decoder_target", "export"),
			"preview": pattern,
		},
	}
	if export == "" {
		cfg.Pools["decode"].Usage = cfg.Pools["decode"].Usage[:2]
	}
	require.NoError(t, cfg.Validate())
	return cfg
}

func newDaemon(t *testing.T, cfg *config.Config) (*Daemon, *softva.Driver) {
	drv := softva.New()
	t.Cleanup(drv.Close)
	d, err := New(cfg, drv, drv.Display())
	require.NoError(t, err)
	return d, drv
}

func TestNew(t *testing.T) {
	d, drv := newDaemon(t, testConfig(t, ""))

	require.Len(t, d.PoolList, 2)
	assert.Equal(t, "decode", d.PoolList[0].Name)
	assert.Equal(t, "preview", d.PoolList[1].Name)
	assert.Equal(t, 7, drv.NumSurfaces())
	assert.Nil(t, d.Registry)
	assert.Equal(t, driver.SurfaceID(driver.InvalidID), d.Lut)

	require.NoError(t, d.Close())
	assert.Equal(t, 0, drv.NumSurfaces())
}

func TestNewCustomExport(t *testing.T) {
	d, drv := newDaemon(t, testConfig(t, "custom"))

	require.NotNil(t, d.Registry)
	assert.Equal(t, 4, d.Registry.MaxTokens)
	assert.Equal(t, 4, d.Registry.Len())
	assert.Equal(t, 4, d.Stats.Snapshot().ExportTokens)

	require.NoError(t, d.Close())
	assert.Equal(t, 0, d.Registry.Len())
	assert.Equal(t, 0, drv.NumSurfaces())
}

func TestNewUnwindsPools(t *testing.T) {
	cfg := testConfig(t, "")
	cfg.Pools["zz"] = poolCfg("UYVY", 16, 16, 2, "from_vppin", "processor_target")
	require.NoError(t, cfg.Validate())

	drv := softva.New()
	defer drv.Close()
	_, err := New(cfg, drv, drv.Display())
	assert.ErrorIs(t, err, allocator.ErrMemoryAlloc)
	assert.Equal(t, 0, drv.NumSurfaces())
}

func TestNewMissingLut(t *testing.T) {
	cfg := testConfig(t, "")
	cfg.Lut3D = config.CfgPath(filepath.Join(t.TempDir(), "missing.3dlut"))

	drv := softva.New()
	defer drv.Close()
	_, err := New(cfg, drv, drv.Display())
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.Equal(t, 0, drv.NumSurfaces())
}

func TestNewWithLut(t *testing.T) {
	cfg := testConfig(t, "")
	lut := filepath.Join(t.TempDir(), "identity.3dlut")
	require.NoError(t, os.WriteFile(lut, make([]byte, 1024), 0o644))
	cfg.Lut3D = config.CfgPath(lut)

	d, drv := newDaemon(t, cfg)
	assert.NotEqual(t, driver.SurfaceID(driver.InvalidID), d.Lut)
	assert.Equal(t, 8, drv.NumSurfaces())

	require.NoError(t, d.Close())
	assert.Equal(t, 0, drv.NumSurfaces())
	assert.Equal(t, driver.SurfaceID(driver.InvalidID), d.Lut)
}

func TestTick(t *testing.T) {
	d, _ := newDaemon(t, testConfig(t, ""))
	defer d.Close()

	d.Tick(10 * time.Millisecond)
	preview := d.Pools["preview"].Stats()
	assert.True(t, preview.Ready)
	assert.Equal(t, uint64(1), preview.LastFrameID)
	assert.False(t, d.Pools["decode"].Stats().Ready)
	assert.Equal(t, uint64(1), d.Stats.Snapshot().FramesWritten)

	d.Tick(10 * time.Millisecond)
	assert.Equal(t, uint64(2), d.Pools["preview"].Stats().LastFrameID)
	assert.Equal(t, int64(0), d.Allocator.Stats().Locked)
}

func TestRun(t *testing.T) {
	d, _ := newDaemon(t, testConfig(t, ""))
	defer d.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		d.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool {
		return d.Pools["preview"].Stats().LastFrameID >= 2
	}, 5*time.Second, 10*time.Millisecond)
	cancel()
	<-done
}

func TestReload(t *testing.T) {
	d, drv := newDaemon(t, testConfig(t, ""))
	defer d.Close()

	events := make(chan EventDataReconfigure, 4)
	d.AddEventListener(EventReconfigure, func(_ *Daemon, data interface{}) {
		events <- data.(EventDataReconfigure)
	})

	cfg := testConfig(t, "")
	cfg.Pools["preview"].Format = "YUY2"
	cfg.Pools["preview"].Width = 128
	cfg.Pools["preview"].Pattern = false
	delete(cfg.Pools, "decode")
	cfg.Pools["extra"] = poolCfg("NV12", 16, 16, 1, "from_decode", "decoder_target")
	require.NoError(t, cfg.Validate())

	d.Reload(cfg)

	select {
	case ev := <-events:
		assert.Equal(t, "preview", ev.Pool)
		assert.Equal(t, "YUY2", ev.Format)
		assert.Equal(t, uint32(128), ev.Width)
		assert.Empty(t, ev.Error)
	case <-time.After(5 * time.Second):
		t.Fatal("no reconfigure event")
	}

	preview := d.Pools["preview"]
	assert.Equal(t, fourcc.YUY2, preview.Info.FourCC)
	assert.Equal(t, 7, drv.NumSurfaces())
	assert.NotContains(t, d.Pools, "extra")
	assert.Contains(t, d.cfg.Pools, "decode")

	// pattern writing was switched off
	d.Tick(time.Millisecond)
	assert.Equal(t, uint64(0), preview.Stats().LastFrameID)
}

func TestReloadBusy(t *testing.T) {
	d, _ := newDaemon(t, testConfig(t, ""))
	defer d.Close()

	events := make(chan EventDataReconfigure, 1)
	d.AddEventListener(EventReconfigure, func(_ *Daemon, data interface{}) {
		events <- data.(EventDataReconfigure)
	})

	d.Tick(time.Millisecond)
	r := d.Pools["preview"].GetFrameForReading()
	require.NotNil(t, r)

	cfg := testConfig(t, "")
	cfg.Pools["preview"].Height = 16
	d.Reload(cfg)

	select {
	case ev := <-events:
		assert.NotEmpty(t, ev.Error)
	case <-time.After(5 * time.Second):
		t.Fatal("no reconfigure event")
	}
	assert.Equal(t, uint32(32), d.Pools["preview"].Info.Height)
	d.Pools["preview"].FinishedReading(r)
}

func TestImagePool(t *testing.T) {
	path := filepath.Join(t.TempDir(), "still.png")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, image.NewRGBA(image.Rect(0, 0, 10, 10))))
	require.NoError(t, f.Close())

	cfg := testConfig(t, "")
	still := poolCfg("RGB4", 16, 16, 2, "from_vppout", "processor_target")
	still.Image = config.CfgPath(path)
	cfg.Pools["still"] = still
	require.NoError(t, cfg.Validate())

	d, _ := newDaemon(t, cfg)
	defer d.Close()
	require.Contains(t, d.Images, "still")

	d.Tick(10 * time.Millisecond)
	assert.Equal(t, uint64(1), d.Pools["still"].Stats().LastFrameID)

	// a ready image pool is left alone until it ages out
	d.Tick(10 * time.Millisecond)
	assert.Equal(t, uint64(1), d.Pools["still"].Stats().LastFrameID)
	d.Tick(2 * time.Second)
	d.Tick(10 * time.Millisecond)
	assert.Equal(t, uint64(2), d.Pools["still"].Stats().LastFrameID)
}

func TestImagePoolMissingFile(t *testing.T) {
	cfg := testConfig(t, "")
	still := poolCfg("RGB4", 16, 16, 2, "from_vppout", "processor_target")
	still.Image = config.CfgPath(filepath.Join(t.TempDir(), "missing.png"))
	cfg.Pools["still"] = still
	require.NoError(t, cfg.Validate())

	drv := softva.New()
	defer drv.Close()
	_, err := New(cfg, drv, drv.Display())
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.Equal(t, 0, drv.NumSurfaces())
}

func TestCmdPool(t *testing.T) {
	cfg := testConfig(t, "")
	cam := poolCfg("YUY2", 16, 8, 2, "from_vppin", "processor_target")
	cam.Cmd = "head -c $(( {width} * {height} * 2 )) /dev/zero"
	cfg.Pools["cam"] = cam
	require.NoError(t, cfg.Validate())

	d, _ := newDaemon(t, cfg)
	defer d.Close()
	require.Contains(t, d.Sources, "cam")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		d.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool {
		return d.Pools["cam"].Stats().LastFrameID >= 1
	}, 5*time.Second, 10*time.Millisecond)
	cancel()
	<-done
}
