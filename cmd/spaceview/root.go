package main

import (
	"github.com/spf13/cobra"

	"spaceview/internal/config"
	"spaceview/internal/logging"
)

var (
	cfgFile   string
	logLevel  string
	logFormat string
	cfg       *config.Config
)

// NewRootCmd assembles the command tree.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "spaceview",
		Short: "Explore what is eating your disk",
		Long: `spaceview scans directories and draws the result as an interactive
sunburst, treemap, circle pack or isometric city, right in the terminal.
It can also run as an HTTP server so other machines (or the TUI in
--remote mode) browse the same data.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.Load(cfgFile)
			if err != nil {
				return err
			}
			if logLevel != "" {
				cfg.Log.Level = logLevel
			}
			if logFormat != "" {
				cfg.Log.Format = logFormat
			}
			return logging.Init(logging.Config{
				Level:  cfg.Log.Level,
				Format: cfg.Log.Format,
				Output: cfg.Log.Output,
			})
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default "+config.DefaultPath()+")")
	pf.StringVar(&logLevel, "log-level", "", "debug, info, warn or error")
	pf.StringVar(&logFormat, "log-format", "", "console or json")

	rootCmd.AddCommand(
		NewBrowseCmd(),
		NewServeCmd(),
		NewScanCmd(),
		NewTrashCmd(),
		NewVersionCmd(),
	)
	return rootCmd
}
