package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/tunex/internal/limiter"
	"github.com/desertthunder/tunex/internal/server"
)

// Serve runs the HTTP API until the process is interrupted.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	cfg := r.Config()

	searcher, err := r.Searcher(ctx)
	if err != nil {
		return err
	}
	reg, err := r.Registry()
	if err != nil {
		return err
	}

	addr := cmd.String("addr")
	if addr == "" {
		addr = cfg.Server.Addr()
	}
	cooldown := cfg.Limits.Cooldown.Duration
	if cmd.IsSet("cooldown") {
		cooldown = cmd.Duration("cooldown")
	}

	go searcher.CompactEvery(ctx, cfg.Cache.TTL.Duration)

	r.logger.Info("starting server", "addr", addr, "sources", len(reg.Handles()), "cooldown", cooldown)
	return server.New(addr, searcher, limiter.New(cooldown), reg, r.logger).Run(ctx)
}
