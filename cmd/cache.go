package main

import (
	"context"
	"time"

	"github.com/desertthunder/spindle/internal/ui"
	"github.com/urfave/cli/v3"
)

func cacheCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "cache",
		Usage: "Manage the playlist cache",
		Commands: []*cli.Command{
			{
				Name:  "sweep",
				Usage: "Remove entries older than the staleness ceiling",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "ceiling-hours",
						Usage: "Override the staleness ceiling in hours",
					},
				},
				Action: r.SweepCache,
			},
			{
				Name:   "clear",
				Usage:  "Remove every cached entry",
				Action: r.ClearCache,
			},
		},
	}
}

// SweepCache removes cache entries past the staleness ceiling.
func (r *Runner) SweepCache(ctx context.Context, cmd *cli.Command) error {
	stack, err := r.buildStack()
	if err != nil {
		return err
	}
	defer stack.close()

	ceiling := r.config.Cache.StalenessCeiling()
	if hours := cmd.Int("ceiling-hours"); hours > 0 {
		ceiling = time.Duration(hours) * time.Hour
	}

	removed, err := stack.cache.Sweep(ctx, ceiling)
	if err != nil {
		return err
	}

	return r.writePlainln("%s %d entries older than %v", ui.OK("swept"), removed, ceiling)
}

// ClearCache removes every cached entry.
func (r *Runner) ClearCache(ctx context.Context, cmd *cli.Command) error {
	stack, err := r.buildStack()
	if err != nil {
		return err
	}
	defer stack.close()

	removed, err := stack.cache.Sweep(ctx, 0)
	if err != nil {
		return err
	}

	return r.writePlainln("%s %d entries", ui.OK("cleared"), removed)
}
