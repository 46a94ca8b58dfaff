// Package main is the entry point for the pulse-fetch CLI, a direct
// command surface over the library operations for local use and
// scripting. An MCP transport hosting these same operations for an
// external protocol dispatcher is out of scope for this binary; the
// CLI exercises the same orchestrators a dispatcher would.
package main

import (
	"fmt"
	"os"

	"github.com/pulse-fetch/pulse-fetch/cmd/pulse-fetch/commands"
	"github.com/pulse-fetch/pulse-fetch/internal/config"
	"github.com/pulse-fetch/pulse-fetch/internal/logger"
)

func main() {
	cfg, warnings, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "pulse-fetch: %v\n", err)
		os.Exit(1)
	}
	for _, w := range warnings {
		fmt.Fprintf(os.Stderr, "pulse-fetch: warning: %s\n", w)
	}

	app, err := commands.Build(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "pulse-fetch: %v\n", err)
		os.Exit(1)
	}

	if err := commands.Execute(app); err != nil {
		os.Exit(1)
	}

	logger.Component("main").Debug("clean shutdown")
}
