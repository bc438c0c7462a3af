package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"spaceview/internal/client"
	"spaceview/internal/events"
	"spaceview/internal/layout"
	"spaceview/internal/logging"
	"spaceview/internal/platform"
	"spaceview/internal/scan"
	"spaceview/internal/trash"
	"spaceview/internal/tui"
	"spaceview/internal/watch"
)

// NewBrowseCmd is the interactive terminal browser.
func NewBrowseCmd() *cobra.Command {
	var (
		remote string
		mode   string
		depth  int
	)

	cmd := &cobra.Command{
		Use:   "browse [path]",
		Short: "Browse disk usage in the terminal",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			// The alternate screen owns the terminal; logs only survive
			// when the config routes them to a file.
			if out := cfg.Log.Output; out == "" || out == "stdout" || out == "stderr" {
				logging.Discard()
			}

			start := cfg.UI.StartPath
			if start == "" {
				start = platform.Impl.DefaultStartPath()
			}
			if len(args) == 1 {
				start = args[0]
			}
			if mode == "" {
				mode = cfg.UI.Mode
			}

			opts := tui.Options{
				Depth:     cfg.Scan.Depth,
				StartPath: start,
				Mode:      layout.Mode(mode),
				Engines:   cfg.Layout.Engines,
				ScalerFor: cfg.Layout.Scalers.ForMode,
				Pacing:    cfg.Animation.Pacing(),
				Reveal:    platform.Impl.OpenInFileBrowser,
			}
			if depth > 0 {
				opts.Depth = depth
			}

			if remote != "" {
				return browseRemote(remote, opts)
			}
			return browseLocal(start, opts)
		},
	}

	cmd.Flags().StringVar(&remote, "remote", "", "browse a running spaceview server instead of the local disk (URL)")
	cmd.Flags().StringVar(&mode, "mode", "", "initial layout: sunburst, treemap, circlepack or city")
	cmd.Flags().IntVar(&depth, "depth", 0, "directory levels per view")
	return cmd
}

func browseRemote(url string, opts tui.Options) error {
	c := client.New(url)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	err := c.Ping(ctx)
	cancel()
	if err != nil {
		return fmt.Errorf("connect to %s: %w", url, err)
	}

	evCtx, evCancel := context.WithCancel(context.Background())
	defer evCancel()

	opts.Provider = c
	opts.Delete = c.Delete
	opts.Events = c.Events(evCtx)
	return tui.Run(opts)
}

func browseLocal(start string, opts tui.Options) error {
	scanner := scan.New(cfg.Profile(), cfg.Scan.Workers)
	cache := scan.NewCache(scanner, cfg.Scan.TTL())
	local := scan.NewLocal(cache, cfg.Scan.MaxChildren)
	opts.Provider = local
	opts.Invalidate = local.Invalidate

	bin, err := trash.New(cfg.UI.TrashDir)
	if err != nil {
		return fmt.Errorf("trash: %w", err)
	}
	bin.Protect(cfg.Protected...)
	opts.Delete = bin.Delete

	if cfg.Watch.Enabled {
		bus := events.NewBroadcaster()
		w, err := watch.New(start, cfg.Watch.Settings(), bus, cache.Invalidate)
		if err != nil {
			logging.L().Warn("file watching disabled", zap.Error(err))
		} else if err := w.Start(); err != nil {
			logging.L().Warn("file watching disabled", zap.Error(err))
		} else {
			defer w.Stop()
			ch := bus.Subscribe()
			defer bus.Unsubscribe(ch)
			opts.Events = ch
		}
	}

	return tui.Run(opts)
}
