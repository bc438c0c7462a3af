package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"spaceview/internal/scan"
	"spaceview/internal/tree"
)

// NewScanCmd does a one-shot scan and prints the tree.
func NewScanCmd() *cobra.Command {
	var (
		depth  int
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "scan [path]",
		Short: "Scan a directory once and print what it holds",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "."
			if len(args) == 1 {
				path = args[0]
			}

			opt := cfg.Options()
			if depth > 0 {
				opt.Depth = depth
			}

			ctx, stop := signal.NotifyContext(cmd.Context(),
				syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			scanner := scan.New(cfg.Profile(), cfg.Scan.Workers)
			root, stats, err := scanner.Scan(ctx, path, opt)
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(root)
			}

			printTree(root, 0)
			fmt.Printf("\n%s in %d files, %d dirs (%s)\n",
				humanize.IBytes(uint64(stats.Bytes)),
				stats.Files, stats.Dirs,
				stats.Elapsed.Round(time.Millisecond))
			return nil
		},
	}

	cmd.Flags().IntVar(&depth, "depth", 0, "directory levels to report")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the raw scan tree as JSON")
	return cmd
}

// printTree renders the human view: indented names, sizes right where the
// eye stops, largest entries first (the scanner already sorts them).
func printTree(n *tree.RawNode, indent int) {
	name := n.Name
	if n.Kind == tree.KindDirectory && !strings.HasSuffix(name, "/") {
		name += "/"
	}
	fmt.Printf("%s%-*s %10s\n",
		strings.Repeat("  ", indent),
		52-indent*2, name,
		humanize.IBytes(uint64(max(n.Size, 0))))
	for _, c := range n.Children {
		printTree(c, indent+1)
	}
}
