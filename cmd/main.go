package main

import (
	"context"
	"fmt"
	"os"

	"github.com/desertthunder/spindle/internal/shared"
	"github.com/desertthunder/spindle/internal/ui"
	"github.com/urfave/cli/v3"
)

func main() {
	logger := shared.NewLogger(nil)

	config := shared.DefaultConfig()
	if _, err := os.Stat("config.toml"); err == nil {
		if loadedConfig, err := shared.LoadConfig("config.toml"); err == nil {
			config = loadedConfig
		} else {
			logger.Warn("failed to load config.toml, using defaults", "error", err)
		}
	}

	runner := NewRunner(RunnerOpts{
		Config: config,
		Logger: logger,
	})

	app := &cli.Command{
		Name:     "spindle",
		Usage:    "Resilient Spotify playlist gateway & export tool",
		Version:  "0.1.0",
		Commands: runner.register(),
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", ui.Err("error:"), err)
		os.Exit(1)
	}
}
