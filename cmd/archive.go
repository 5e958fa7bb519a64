package main

import (
	"context"
	"time"

	"github.com/urfave/cli/v3"
)

type archiveRow struct {
	Performer  string    `json:"performer"`
	Title      string    `json:"title"`
	SourceID   string    `json:"source_id"`
	PayloadRef string    `json:"payload_ref"`
	Score      int       `json:"score"`
	InsertedAt time.Time `json:"inserted_at"`
}

// ArchiveList prints archived tracks, most recent first.
func (r *Runner) ArchiveList(ctx context.Context, cmd *cli.Command) error {
	searcher, err := r.Searcher(ctx)
	if err != nil {
		return err
	}

	entries := searcher.Archive().Entries()
	if limit := int(cmd.Int("limit")); limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}

	rows := make([]archiveRow, 0, len(entries))
	for _, e := range entries {
		c := e.Candidate
		rows = append(rows, archiveRow{
			Performer:  c.Performer,
			Title:      c.Title,
			SourceID:   c.SourceID,
			PayloadRef: c.PayloadRef,
			Score:      c.Score,
			InsertedAt: e.InsertedAt,
		})
	}

	if cmd.Bool("json") {
		return r.writeJSON(rows, cmd.Bool("pretty"))
	}

	r.writePlainHeader("Archived tracks")
	if len(rows) == 0 {
		return r.writePlain("(empty)\n")
	}
	for _, row := range rows {
		r.writePlain("%s - %s\n", row.Performer, row.Title)
		r.writePlain("  %s • score %d • %s\n", row.SourceID, row.Score, row.InsertedAt.Local().Format(time.DateTime))
	}
	return nil
}

// ArchiveClear drops every archived track, including persisted rows.
func (r *Runner) ArchiveClear(ctx context.Context, cmd *cli.Command) error {
	searcher, err := r.Searcher(ctx)
	if err != nil {
		return err
	}
	if err := searcher.ClearArchive(); err != nil {
		return err
	}
	return r.writePlain("✓ Archive cleared\n")
}
