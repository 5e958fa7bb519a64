package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/tunex/internal/formatter"
	"github.com/desertthunder/tunex/internal/shared"
	"github.com/desertthunder/tunex/internal/tasks"
)

// Search runs one aggregate search for the joined arguments and prints the delivery.
//
// A miss is not an error: the delivery reports found=false.
func (r *Runner) Search(ctx context.Context, cmd *cli.Command) error {
	raw := strings.TrimSpace(strings.Join(cmd.Args().Slice(), " "))
	if raw == "" {
		return fmt.Errorf("%w: search query", shared.ErrMissingArgument)
	}

	format := formatter.FormatJSON
	if !cmd.Bool("json") {
		f, err := formatter.ParseFormat(cmd.String("format"))
		if err != nil {
			return err
		}
		format = f
	}

	searcher, err := r.Searcher(ctx)
	if err != nil {
		return err
	}

	var (
		progress chan tasks.ProgressUpdate
		stop     func()
	)
	if cmd.Bool("progress") {
		progress, stop = r.reportProgress()
	}

	res, err := searcher.SearchDetailed(ctx, raw, progress)
	if stop != nil {
		stop()
	}
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	d := formatter.NewDelivery(raw, res.Candidate, res.Found, string(res.Origin), res.Elapsed)
	if format == formatter.FormatJSON {
		return r.writeJSON(d, cmd.Bool("pretty"))
	}

	body, err := formatter.Render(d, format)
	if err != nil {
		return err
	}
	return r.writePlain("%s", body)
}

// reportProgress logs coordinator updates until stop is called. stop drains what is
// already buffered; the channel itself stays open since a shared search may still write to it.
func (r *Runner) reportProgress() (chan tasks.ProgressUpdate, func()) {
	progress := make(chan tasks.ProgressUpdate, 32)
	done := make(chan struct{})
	finished := make(chan struct{})

	emit := func(u tasks.ProgressUpdate) {
		r.logger.Info(u.Message, "phase", u.Phase, "step", u.Step, "total", u.Total)
	}

	go func() {
		defer close(finished)
		for {
			select {
			case u := <-progress:
				emit(u)
			case <-done:
				for len(progress) > 0 {
					emit(<-progress)
				}
				return
			}
		}
	}()

	return progress, func() {
		close(done)
		<-finished
	}
}
