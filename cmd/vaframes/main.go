package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fosdem/vaframes/lib/api"
	"github.com/fosdem/vaframes/lib/config"
	"github.com/fosdem/vaframes/lib/daemon"
	"github.com/fosdem/vaframes/lib/driver/softva"
	vlog "github.com/fosdem/vaframes/lib/log"
	"github.com/fosdem/vaframes/lib/utils"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

//	@title			vaframes API
//	@version		1.0
//	@description	Inspect the frame pools of a running vaframes daemon
//	@BasePath		/

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		logLevel string
		logAttrs bool
		noWatch  bool
	)

	cmd := &cobra.Command{
		Use:          "vaframes <config file>",
		Short:        "Allocate and serve video surface pools",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			level, err := vlog.ParseLevel(logLevel)
			if err != nil {
				return err
			}
			slog.SetDefault(slog.New(vlog.NewHandler(&vlog.Options{
				HandlerOptions: slog.HandlerOptions{Level: level},
				Attrs:          logAttrs,
			})))

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, args[0], !noWatch)
		},
	}
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "debug, info, warn or error")
	cmd.Flags().BoolVar(&logAttrs, "log-attrs", false, "print log attributes after each message")
	cmd.Flags().BoolVar(&noWatch, "no-watch", false, "do not reload the config when it changes")
	return cmd
}

func run(ctx context.Context, cfgPath string, watch bool) error {
	log := slog.With("module", "main")

	cfg, err := config.Parse(cfgPath)
	if err != nil {
		return err
	}

	var opts []softva.Option
	dev, err := utils.FindRenderNode(cfg.Device)
	switch {
	case errors.Is(err, utils.ErrNoRenderNode):
		log.Warn("running without a render node", "err", err)
	case err != nil:
		return fmt.Errorf("could not use device %s: %w", cfg.Device, err)
	default:
		log.Info("using render node", "path", dev.Path, "driver", dev.Driver, "vendor", dev.Vendor)
		opts = append(opts, softva.WithDevice(dev.Path))
	}

	drv := softva.New(opts...)
	defer drv.Close()

	d, err := daemon.New(cfg, drv, drv.Display())
	if err != nil {
		return err
	}
	d.Stats.SetDevice(drv.Device())
	defer func() {
		if err := d.Close(); err != nil {
			log.Error("could not release all frames", "err", err)
		}
	}()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	theApi := api.New(cfg.Api, d.Pools, d.Stats)
	theApi.Images = d.Images
	theApi.ShutdownRequested = cancel
	d.AddEventListener(daemon.EventReconfigure, func(_ *daemon.Daemon, data interface{}) {
		theApi.Broadcast(data)
	})

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting web server", "bind", cfg.Api.Bind)
		return theApi.Serve()
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return theApi.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		d.Run(ctx)
		return nil
	})
	if watch {
		g.Go(func() error {
			err := config.Watch(ctx, cfgPath, d.Reload)
			if err != nil {
				log.Warn("not watching config for changes", "err", err)
			}
			return nil
		})
	}

	err = g.Wait()
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	log.Info("shutting down")
	return err
}
