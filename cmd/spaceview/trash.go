package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"spaceview/internal/trash"
)

// NewTrashCmd manages the spaceview trash directory.
func NewTrashCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trash",
		Short: "List, restore or empty trashed items",
	}
	cmd.AddCommand(newTrashListCmd(), newTrashRestoreCmd(), newTrashEmptyCmd())
	return cmd
}

func openBin() (*trash.Bin, error) {
	bin, err := trash.New(cfg.UI.TrashDir)
	if err != nil {
		return nil, fmt.Errorf("trash: %w", err)
	}
	return bin, nil
}

func newTrashListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Show what is in the trash",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			bin, err := openBin()
			if err != nil {
				return err
			}
			entries, err := bin.List()
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Println("trash is empty")
				return nil
			}
			var total int64
			for _, e := range entries {
				kind := "file"
				if e.IsDir {
					kind = "dir"
				}
				fmt.Printf("%-40s %4s %10s  %s  (was %s)\n",
					e.TrashName, kind,
					humanize.IBytes(uint64(max(e.Size, 0))),
					humanize.Time(e.DeletedAt),
					e.OriginalPath)
				total += e.Size
			}
			fmt.Printf("\n%d items, %s\n", len(entries), humanize.IBytes(uint64(max(total, 0))))
			return nil
		},
	}
}

func newTrashRestoreCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "restore <trash-name>",
		Short: "Put a trashed item back where it came from",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bin, err := openBin()
			if err != nil {
				return err
			}
			restored, err := bin.Restore(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Println("restored to", restored)
			return nil
		},
	}
}

func newTrashEmptyCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "empty",
		Short: "Delete everything in the trash for good",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			bin, err := openBin()
			if err != nil {
				return err
			}
			entries, err := bin.List()
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Println("trash is already empty")
				return nil
			}
			if !force {
				return fmt.Errorf("would permanently delete %d items; rerun with --force", len(entries))
			}
			if err := bin.Empty(); err != nil {
				return err
			}
			fmt.Printf("deleted %d items\n", len(entries))
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "confirm the permanent delete")
	return cmd
}
