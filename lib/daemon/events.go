package daemon

type EventListener func(d *Daemon, data interface{})

const EventReconfigure = "reconfigure"

type EventDataReconfigure struct {
	Event  string `json:"event"`
	Pool   string `json:"pool"`
	Format string `json:"format"`
	Width  uint32 `json:"width"`
	Height uint32 `json:"height"`
	Error  string `json:"error,omitempty"`
}

// AddEventListener must be called before Reload can run.
func (d *Daemon) AddEventListener(event string, callback EventListener) {
	d.listener[event] = append(d.listener[event], callback)
}

func (d *Daemon) invoke(event string, data interface{}) {
	for _, listener := range d.listener[event] {
		go listener(d, data)
	}
}
