package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/fosdem/vaframes/lib/allocator"
	"github.com/fosdem/vaframes/lib/fourcc"
	"github.com/fosdem/vaframes/lib/frames"
	yaml "github.com/goccy/go-yaml"
)

const DeviceAuto = "auto"

type Config struct {
	// Device is a DRM render node, or "auto" for the first one found. When
	// "auto" finds none the daemon runs without one.
	Device string              `yaml:"device"`
	Export string              `yaml:"export" jsonschema:"enum=none,enum=flink,enum=prime,enum=custom"`
	Lut3D  CfgPath             `yaml:"lut3d"`
	Pools  map[string]*PoolCfg `yaml:"pools" jsonschema:"required"`
	Api    *ApiCfg             `yaml:"api"`

	exportMode allocator.ExportMode
}

func Parse(filename string) (*Config, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("could not open %s: %s", filename, err)
	}
	defer func(f *os.File) {
		_ = f.Close()
	}(f)

	absFilename, err := filepath.Abs(filename)
	if err != nil {
		return nil, fmt.Errorf("somehow, %s is malformed: %w", filename, err)
	}
	UnmarshalBase = filepath.Dir(absFilename)

	m := yaml.NewDecoder(f)
	cfg := &Config{}
	err = m.Decode(cfg)
	if err != nil {
		return nil, err
	}
	err = cfg.Validate()
	if err != nil {
		return nil, err
	}
	return cfg, err
}

func (c *Config) Validate() error {
	var err error
	if c.Device == "" {
		c.Device = DeviceAuto
	}
	if c.Device != DeviceAuto && !filepath.IsAbs(c.Device) {
		return fmt.Errorf("device must be %q or an absolute path, not %s", DeviceAuto, c.Device)
	}

	c.exportMode, err = allocator.ParseExportMode(c.Export)
	if err != nil {
		return err
	}

	if len(c.Pools) < 1 {
		return fmt.Errorf("at least one pool should be defined")
	}
	for k, v := range c.Pools {
		err = v.Validate()
		if err != nil {
			return fmt.Errorf("pool %s is invalid: %w", k, err)
		}
		if v.memType&allocator.MemTypeExportFrame != 0 && c.exportMode == allocator.DoNotExport {
			return fmt.Errorf("pool %s wants exported frames, but export is not enabled", k)
		}
	}

	if c.Api == nil {
		c.Api = &ApiCfg{}
	}
	if c.Api.Bind == "" {
		c.Api.Bind = "127.0.0.1:8000"
	}
	return nil
}

func (c *Config) ExportMode() allocator.ExportMode {
	return c.exportMode
}

func (c *Config) String() string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("Device: %s\nExport: %s\n", c.Device, c.exportMode))
	if c.Lut3D != "" {
		b.WriteString(fmt.Sprintf("3D LUT: %s\n", c.Lut3D))
	}

	b.WriteString("\nPools:\n")
	names := make([]string, 0, len(c.Pools))
	for k := range c.Pools {
		names = append(names, k)
	}
	slices.Sort(names)
	for _, k := range names {
		v := c.Pools[k]
		b.WriteString(fmt.Sprintf("  %s (%d x %s %dx%d, %s)\n",
			k, v.NumAllocatedFrames, v.format, v.Width, v.Height, v.memType))
	}
	return b.String()
}

// drawableFormats are the formats the frame writers support.
var drawableFormats = []fourcc.Format{fourcc.NV12, fourcc.YV12, fourcc.YUY2, fourcc.RGB4, fourcc.BGR4}

type PoolCfg struct {
	Format          string   `yaml:"format" jsonschema:"required"`
	Usage           []string `yaml:"usage" jsonschema:"required"`
	Pattern         bool     `yaml:"pattern"`
	Image           CfgPath  `yaml:"image"`
	Cmd             string   `yaml:"cmd"`
	frames.FrameCfg `yaml:"frames" jsonschema:"required"`

	format  fourcc.Format
	memType allocator.MemType
}

func (p *PoolCfg) Validate() error {
	var err error
	p.format, err = fourcc.Parse(p.Format)
	if err != nil {
		return err
	}

	if len(p.Usage) == 0 {
		return fmt.Errorf("usage must list where frames come from and go to")
	}
	p.memType = 0
	for _, u := range p.Usage {
		m, err := allocator.ParseMemType(u)
		if err != nil {
			return err
		}
		p.memType |= m
	}

	err = p.FrameCfg.Validate()
	if err != nil {
		return fmt.Errorf("invalid frame config: %w", err)
	}
	writers := 0
	for _, set := range []bool{p.Pattern, p.Image != "", p.Cmd != ""} {
		if set {
			writers++
		}
	}
	if writers > 1 {
		return fmt.Errorf("a pool can have only one of pattern, image and cmd")
	}
	if writers > 0 && !slices.Contains(drawableFormats, p.format) {
		return fmt.Errorf("cannot draw into %s frames", p.format)
	}
	return nil
}

func (p *PoolCfg) FourCC() fourcc.Format {
	return p.format
}

func (p *PoolCfg) MemType() allocator.MemType {
	return p.memType
}

func (p *PoolCfg) Request() *allocator.Request {
	return &allocator.Request{
		Info:              p.FrameCfg.Info(p.format),
		Type:              p.memType,
		NumFrameMin:       uint16(p.NumAllocatedFrames),
		NumFrameSuggested: uint16(p.NumAllocatedFrames),
	}
}

type ApiCfg struct {
	Bind           string `yaml:"bind"`
	EnableProfiler bool   `yaml:"enable_profiler"`
}
