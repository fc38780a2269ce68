package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fosdem/vaframes/lib/allocator"
	"github.com/fosdem/vaframes/lib/fourcc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
device: auto
export: prime
lut3d: luts/identity.3dlut
pools:
  decode:
    format: nv12
    usage: [from_decode, decoder_target, export]
    frames:
      width: 1920
      height: 1080
      num_allocated_frames: 6
  preview:
    format: RGB4
    usage: [from_vppout, processor_target]
    image: stills/slide.png
    frames:
      width: 640
      height: 360
      num_allocated_frames: 3
api:
  bind: 0.0.0.0:8001
  enable_profiler: true
`

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "vaframes.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestParse(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Parse(writeConfig(t, dir, sampleConfig))
	require.NoError(t, err)

	assert.Equal(t, DeviceAuto, cfg.Device)
	assert.Equal(t, allocator.ExportPrime, cfg.ExportMode())
	assert.Equal(t, CfgPath(filepath.Join(dir, "luts/identity.3dlut")), cfg.Lut3D)
	assert.Equal(t, "0.0.0.0:8001", cfg.Api.Bind)
	assert.True(t, cfg.Api.EnableProfiler)

	require.Contains(t, cfg.Pools, "decode")
	decode := cfg.Pools["decode"]
	assert.Equal(t, fourcc.NV12, decode.FourCC())
	assert.Equal(t, allocator.MemTypeFromDecode|allocator.MemTypeVideoMemoryDecoderTarget|allocator.MemTypeExportFrame, decode.MemType())

	req := decode.Request()
	assert.Equal(t, uint16(6), req.NumFrameSuggested)
	assert.Equal(t, uint32(1920), req.Info.Width)
	assert.Equal(t, uint32(1080), req.Info.Height)

	preview := cfg.Pools["preview"]
	assert.False(t, preview.Pattern)
	assert.Equal(t, CfgPath(filepath.Join(dir, "stills/slide.png")), preview.Image)
	assert.Equal(t, fourcc.RGB4, preview.FourCC())

	s := cfg.String()
	assert.Contains(t, s, "decode (6 x NV12 1920x1080")
	assert.Contains(t, s, "preview (3 x RGB4 640x360")
}

func TestParseDefaults(t *testing.T) {
	cfg, err := Parse(writeConfig(t, t.TempDir(), `
pools:
  p:
    format: YUY2
    usage: [from_vppin, processor_target]
    frames:
      width: 16
      height: 16
      num_allocated_frames: 1
`))
	require.NoError(t, err)
	assert.Equal(t, DeviceAuto, cfg.Device)
	assert.Equal(t, allocator.DoNotExport, cfg.ExportMode())
	assert.Equal(t, "127.0.0.1:8000", cfg.Api.Bind)
	assert.Empty(t, cfg.Lut3D)
}

func TestValidate(t *testing.T) {
	pool := func() *PoolCfg {
		p := &PoolCfg{Format: "NV12", Usage: []string{"from_decode", "decoder_target"}}
		p.Width, p.Height, p.NumAllocatedFrames = 64, 64, 2
		return p
	}

	cases := map[string]func(c *Config){
		"no pools":        func(c *Config) { c.Pools = nil },
		"relative device": func(c *Config) { c.Device = "dri/renderD128" },
		"export mode":     func(c *Config) { c.Export = "dmabuf" },
		"format":          func(c *Config) { c.Pools["p"].Format = "I420" },
		"usage":           func(c *Config) { c.Pools["p"].Usage = []string{"gpu"} },
		"no usage":        func(c *Config) { c.Pools["p"].Usage = nil },
		"frames":          func(c *Config) { c.Pools["p"].NumAllocatedFrames = 0 },
		"export disabled": func(c *Config) { c.Pools["p"].Usage = append(c.Pools["p"].Usage, "export") },
		"pattern":         func(c *Config) { c.Pools["p"].Format = "P010"; c.Pools["p"].Pattern = true },
		"image format":    func(c *Config) { c.Pools["p"].Format = "P010"; c.Pools["p"].Image = "/still.png" },
		"pattern & image": func(c *Config) { c.Pools["p"].Pattern = true; c.Pools["p"].Image = "/still.png" },
		"image & cmd":     func(c *Config) { c.Pools["p"].Cmd = "cat /dev/zero"; c.Pools["p"].Image = "/still.png" },
		"cmd format":      func(c *Config) { c.Pools["p"].Format = "P010"; c.Pools["p"].Cmd = "cat /dev/zero" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			c := &Config{Pools: map[string]*PoolCfg{"p": pool()}}
			require.NoError(t, c.Validate())
			mutate(c)
			assert.Error(t, c.Validate())
		})
	}
}

func TestParseErrors(t *testing.T) {
	_, err := Parse(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Parse(writeConfig(t, t.TempDir(), "pools: [nope"))
	assert.Error(t, err)
}

func TestWatch(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, sampleConfig)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reloaded := make(chan *Config, 1)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, path, func(c *Config) { reloaded <- c })
	}()

	// give the watcher time to register
	time.Sleep(200 * time.Millisecond)

	updated := strings.Replace(sampleConfig, "width: 1920", "width: 1280", 1)
	require.NoError(t, os.WriteFile(path, []byte(updated), 0o644))

	select {
	case cfg := <-reloaded:
		assert.Equal(t, 1280, cfg.Pools["decode"].Width)
	case <-time.After(5 * time.Second):
		t.Fatal("config was not reloaded")
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not return after cancel")
	}
}

func TestSchema(t *testing.T) {
	b, err := Schema()
	require.NoError(t, err)

	s := string(b)
	assert.Contains(t, s, `"pools"`)
	assert.Contains(t, s, `"num_allocated_frames"`)
	assert.Contains(t, s, `"enable_profiler"`)
	assert.Contains(t, s, `"prime"`)
	assert.NotContains(t, s, `"exportMode"`)
}
