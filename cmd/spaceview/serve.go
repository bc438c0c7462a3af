package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"spaceview/internal/events"
	"spaceview/internal/logging"
	"spaceview/internal/platform"
	"spaceview/internal/scan"
	"spaceview/internal/server"
	"spaceview/internal/trash"
	"spaceview/internal/watch"
)

// NewServeCmd runs the HTTP API.
func NewServeCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the scan and layout API over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr != "" {
				cfg.Server.Addr = addr
			}

			scanner := scan.New(cfg.Profile(), cfg.Scan.Workers)
			cache := scan.NewCache(scanner, cfg.Scan.TTL())

			bin, err := trash.New(cfg.UI.TrashDir)
			if err != nil {
				return fmt.Errorf("trash: %w", err)
			}
			bin.Protect(cfg.Protected...)

			bus := events.NewBroadcaster()

			ctx, stop := signal.NotifyContext(context.Background(),
				syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if cfg.Watch.Enabled {
				root := cfg.UI.StartPath
				if root == "" {
					root = platform.Impl.DefaultStartPath()
				}
				w, err := watch.New(root, cfg.Watch.Settings(), bus, cache.Invalidate)
				if err != nil {
					logging.L().Warn("file watching disabled", zap.Error(err))
				} else if err := w.Start(); err != nil {
					logging.L().Warn("file watching disabled", zap.Error(err))
				} else {
					defer w.Stop()
					logging.L().Info("watching for changes",
						zap.String("root", root),
						zap.Duration("debounce", cfg.Watch.Settings().Debounce))
				}
			}

			srv := server.New(server.Config{
				Addr:         cfg.Server.Addr,
				ScanDefaults: cfg.Options(),
				Engines:      cfg.Layout.Engines,
				ScalerFor:    cfg.Layout.Scalers.ForMode,
			}, cache, scanner, bin, bus)

			return srv.ListenAndServe(ctx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides the config, e.g. :5005)")
	return cmd
}
