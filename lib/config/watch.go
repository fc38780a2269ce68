package config

import (
	"context"
	"log/slog"
	"time"

	"github.com/jhenstridge/go-inotify"
)

// Watch parses filename again every time it is written and passes the
// new config to reload. Configs that fail to parse are logged and
// skipped. Watch returns when ctx is done.
func Watch(ctx context.Context, filename string, reload func(*Config)) error {
	log := slog.With("module", "config")

	watcher, err := inotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func(watcher *inotify.Watcher) {
		_ = watcher.Close()
	}(watcher)

	_, err = watcher.Watch(filename)
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Event:
			if !ok {
				return nil
			}
			if ev.Mask&inotify.IN_CLOSE_WRITE == 0 {
				continue
			}
			log.Debug("reloading config due to inotify event", "path", filename)
			time.Sleep(100 * time.Millisecond)

			cfg, err := Parse(filename)
			if err != nil {
				log.Error("could not reload config", "path", filename, "err", err)
				continue
			}
			reload(cfg)
		}
	}
}
