// Package main is the entry point for the cgap CLI.
package main

import (
	"os"

	"circularity-gap/cmd/cli/cmd"
	"circularity-gap/internal/logging"
)

func main() {
	os.Exit(run())
}

// run keeps deferred calls ahead of os.Exit
func run() int {
	defer func() { _ = logging.Sync() }()

	if err := cmd.Execute(); err != nil {
		return 1
	}
	return 0
}
