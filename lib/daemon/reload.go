package daemon

import (
	"github.com/fosdem/vaframes/lib/config"
)

// Reload applies the frame geometry and format of cfg to the running
// pools. Pools that were added or removed, and changes to usage, export
// or the 3D LUT, only take effect after a restart.
func (d *Daemon) Reload(cfg *config.Config) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, name := range poolNames(cfg) {
		pcfg := cfg.Pools[name]
		p := d.Pools[name]
		if p == nil {
			d.log.Warn("ignoring new pool until restart", "pool", name)
			continue
		}

		old := d.cfg.Pools[name]
		if pcfg.MemType() != old.MemType() {
			d.log.Warn("ignoring usage change until restart", "pool", name)
		}
		if pcfg.Image != old.Image || pcfg.Cmd != old.Cmd {
			d.log.Warn("ignoring new frame source until restart", "pool", name)
		}

		if pcfg.Pattern && d.Images[name] == nil && d.Sources[name] == nil {
			if _, ok := d.patterns[name]; !ok {
				d.patterns[name] = 0
			}
		} else {
			delete(d.patterns, name)
		}

		info := pcfg.FrameCfg.Info(pcfg.FourCC())
		if info == p.Info {
			continue
		}
		ev := EventDataReconfigure{
			Event:  EventReconfigure,
			Pool:   name,
			Format: info.FourCC.String(),
			Width:  info.Width,
			Height: info.Height,
		}
		if err := p.Reconfigure(info); err != nil {
			d.log.Error("could not reconfigure pool", "pool", name, "err", err)
			ev.Error = err.Error()
		}
		d.invoke(EventReconfigure, ev)
	}

	for name := range d.cfg.Pools {
		if cfg.Pools[name] == nil {
			d.log.Warn("pool was removed from the config, keeping it until restart", "pool", name)
			cfg.Pools[name] = d.cfg.Pools[name]
		}
	}
	d.cfg = cfg
}
