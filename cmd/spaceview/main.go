package main

import (
	"os"

	"spaceview/internal/logging"
)

// Populated by -ldflags at release time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	root := NewRootCmd()
	err := root.Execute()
	logging.Sync()
	if err != nil {
		os.Exit(1)
	}
}
