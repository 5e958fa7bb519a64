package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/tunex/internal/shared"
	"github.com/desertthunder/tunex/internal/ui"
)

const tuiLogPath = "./tmp/tunex-tui.log"

// TUI launches the interactive terminal UI for searching.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, f, err := shared.NewFileLogger(tuiLogPath)
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	defer f.Close()
	r.SetLogger(fileLogger)

	searcher, err := r.Searcher(ctx)
	if err != nil {
		return err
	}

	model := ui.NewModel(ctx, searcher, fileLogger)
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
