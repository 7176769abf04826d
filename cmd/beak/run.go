package main

import (
	"context"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/opd-ai/beak/cache"
	"github.com/opd-ai/beak/config"
	"github.com/opd-ai/beak/control"
	"github.com/opd-ai/beak/device"
	"github.com/opd-ai/beak/engine"
	"github.com/opd-ai/beak/metrics"
	"github.com/opd-ai/beak/transport"
)

func newRunCmd(opts *rootOptions) *cobra.Command {
	var flags overrides
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the playback daemon",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			if err := flags.apply(cmd.Flags(), cfg); err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runDaemon(ctx, cfg, nil)
		},
	}
	flags.bindServer(cmd.Flags())
	return cmd
}

// daemon describes a running instance.
type daemon struct {
	engine      *engine.Engine
	controlAddr net.Addr
	metricsAddr net.Addr
}

// runDaemon serves until ctx is cancelled or a component fails. ready, if
// non-nil, receives the daemon once packets are accepted.
func runDaemon(ctx context.Context, cfg *config.Config, ready chan<- daemon) error {
	dev, err := device.New(cfg.Audio.Backend)
	if err != nil {
		return err
	}
	eng := engine.New(dev)
	if err := eng.Configure(cfg.EngineConfig()); err != nil {
		return err
	}
	defer eng.Close()

	assets := cache.New(cfg.CacheConfig())
	if err := assets.Configure(); err != nil {
		return err
	}

	srv, err := transport.NewServer(cfg.Server.Listen, transport.WithQueueSize(cfg.Server.QueueSize))
	if err != nil {
		return err
	}
	control.New(eng, assets, control.WithMaxNoteDuration(cfg.Audio.MaxNoteDuration)).Register(srv)
	if err := srv.Start(); err != nil {
		return err
	}
	defer srv.Close()

	d := daemon{engine: eng, controlAddr: srv.LocalAddr()}

	var ms *metrics.Server
	if cfg.Metrics.Addr != "" {
		reg, err := metrics.NewRegistry(metrics.NewCollector(metrics.Sources{
			Engine: eng,
			Cache:  assets,
			Server: srv,
		}))
		if err != nil {
			return err
		}
		ms, err = metrics.Listen(cfg.Metrics.Addr, metrics.NewRouter(reg, eng))
		if err != nil {
			return err
		}
		d.metricsAddr = ms.Addr()
	}

	g, gctx := errgroup.WithContext(ctx)
	if ms != nil {
		g.Go(func() error {
			return ms.Serve(gctx)
		})
	}
	if cfg.Cache.Watch {
		g.Go(func() error {
			return assets.Watch(gctx)
		})
	}

	logrus.WithFields(logrus.Fields{
		"function":    "runDaemon",
		"listen":      srv.LocalAddr().String(),
		"backend":     cfg.Audio.Backend,
		"sample_rate": eng.SampleRate(),
		"channels":    eng.Channels(),
	}).Info("beak is running")

	if ready != nil {
		ready <- d
	}

	g.Go(func() error {
		<-gctx.Done()
		return nil
	})
	err = g.Wait()

	logrus.WithFields(logrus.Fields{
		"function": "runDaemon",
		"stats":    eng.Stats(),
	}).Info("beak is shutting down")

	return err
}
