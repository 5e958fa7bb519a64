package main

import (
	"context"
	"errors"
	"time"

	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"

	"github.com/desertthunder/tunex/internal/services"
	"github.com/desertthunder/tunex/internal/shared"
)

const pingTimeout = 3 * time.Second

type sourceRow struct {
	ID       string `json:"id"`
	Tier     string `json:"tier"`
	Selected bool   `json:"selected"`
	Status   string `json:"status,omitempty"`
}

// Sources lists the registered sources in dispatch order and marks which ones
// fall inside the max_parallel_sources cap. With --ping each source is checked concurrently.
func (r *Runner) Sources(ctx context.Context, cmd *cli.Command) error {
	reg, err := r.Registry()
	if err != nil {
		return err
	}

	handles := services.SelectSources(reg.Handles(), len(reg.Handles()))
	limit := r.Config().Search.MaxParallelSources

	rows := make([]sourceRow, len(handles))
	for i, h := range handles {
		rows[i] = sourceRow{ID: h.ID, Tier: h.Tier.String(), Selected: limit <= 0 || i < limit}
	}

	if cmd.Bool("ping") {
		pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
		defer cancel()

		g := new(errgroup.Group)
		for i := range rows {
			g.Go(func() error {
				err := reg.Ping(pingCtx, rows[i].ID)
				if errors.Is(err, shared.ErrNotImplemented) {
					rows[i].Status = "unchecked"
					return nil
				}
				rows[i].Status = shared.ErrorKind(shared.ClassifySourceError(err))
				return nil
			})
		}
		g.Wait()
	}

	if cmd.Bool("json") {
		return r.writeJSON(rows, true)
	}

	r.writePlainHeader("Sources")
	for _, row := range rows {
		mark := "✓"
		if !row.Selected {
			mark = "-"
		}
		r.writePlain("%s %s (%s)", mark, row.ID, row.Tier)
		if row.Status != "" {
			r.writePlain(" [%s]", row.Status)
		}
		r.writePlain("\n")
	}
	return nil
}
