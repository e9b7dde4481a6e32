package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/systmms/secretmgr/internal/config"
	"github.com/systmms/secretmgr/internal/metrics"
	"github.com/systmms/secretmgr/internal/watch"
)

// NewServeCommand creates the serve command
func NewServeCommand(cfg *config.Config) *cobra.Command {
	var (
		listen  string
		noWatch bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Keep secrets loaded and expose metrics",
		Long: `Initialize all secrets, then serve /metrics and /health until interrupted.

The configuration is reloaded and every secret reinitialized when the config
file changes or the process receives SIGHUP.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			rt, err := newRuntime(ctx, cfg)
			if err != nil {
				return err
			}
			defer rt.Close()

			rt.store.Initialize()

			if listen == "" {
				listen = cfg.Definition.Metrics.Listen
			}
			srv := metrics.NewServer(listen, rt.metrics, rt.store, cfg.Logger)
			if err := srv.Start(); err != nil {
				return err
			}
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = srv.Stop(shutdownCtx)
			}()

			return serveLoop(ctx, rt, noWatch)
		},
	}

	cmd.Flags().StringVar(&listen, "listen", "", "Metrics listen address (overrides metrics.listen)")
	cmd.Flags().BoolVar(&noWatch, "no-watch", false, "Do not reload when the config file changes")
	return cmd
}

// serveLoop reloads on SIGHUP and config changes until ctx is done.
func serveLoop(ctx context.Context, rt *runtime, noWatch bool, opts ...watch.Option) error {
	reload := make(chan struct{}, 1)
	trigger := func() {
		select {
		case reload <- struct{}{}:
		default:
		}
	}

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	// nil when not watching, so the select case never fires
	var watchDone chan error
	if !noWatch {
		watchDone = make(chan error, 1)
		opts = append([]watch.Option{watch.WithLogger(rt.cfg.Logger)}, opts...)
		w := watch.New(rt.cfg.Path, trigger, opts...)
		go func() { watchDone <- w.Run(ctx) }()
	}

	logger := rt.cfg.Logger
	for {
		select {
		case <-ctx.Done():
			logger.Info("Shutting down")
			if watchDone != nil {
				<-watchDone
			}
			return nil
		case <-hup:
			logger.Info("Received SIGHUP, reloading")
			trigger()
		case err := <-watchDone:
			if err != nil && ctx.Err() == nil {
				logger.Warn("Config watcher stopped: %v", err)
			}
			watchDone = nil
		case <-reload:
			if err := rt.Reload(); err != nil {
				logger.Error("Reload failed, keeping previous configuration: %v", err)
			}
		}
	}
}
