package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/desertthunder/spindle/internal/server"
	"github.com/urfave/cli/v3"
)

func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "serve",
		Usage:  "Run the playlist gateway HTTP server",
		Action: r.Serve,
	}
}

// Serve wires the full HTTP stack and runs it until interrupted.
//
// A background ticker sweeps cache entries past the staleness ceiling
// for as long as the server runs.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	stack, err := r.buildStack()
	if err != nil {
		return err
	}
	defer stack.close()

	codec := server.NewCookieCodec(r.config.Server.CookieSecret)
	ttl := r.config.Server.SessionTTL()

	router := server.NewBasicRouter()
	router.Use(
		server.Logging(r.logger),
		server.Sessions(stack.sessions, codec, ttl, r.logger),
	)

	router.Handler(server.NewAuthHandler(stack.tokens, stack.sessions, codec, stack.client, r.logger))
	router.Handler(server.NewPlaylistHandler(stack.client, stack.cache, r.config.Cache.Freshness(), r.logger))
	router.Handler(server.NewHealthHandler(stack.db))

	srv := server.NewServer(r.config.Server, router, r.logger)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go r.sweepLoop(ctx, stack)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}

// sweepLoop purges cache entries past the staleness ceiling, once at
// startup and then hourly.
func (r *Runner) sweepLoop(ctx context.Context, stack *stack) {
	ceiling := r.config.Cache.StalenessCeiling()

	if _, err := stack.cache.Sweep(ctx, ceiling); err != nil {
		r.logger.Warn("startup cache sweep failed", "error", err)
	}

	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := stack.cache.Sweep(ctx, ceiling); err != nil {
				r.logger.Warn("cache sweep failed", "error", err)
			}
		}
	}
}
