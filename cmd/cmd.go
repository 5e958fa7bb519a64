// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

// searchCommand runs one aggregate search
func searchCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "search",
		Aliases:   []string{"s", "find"},
		Usage:     "Search every source for a track and print the best match",
		ArgsUsage: "<artist - title>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Output format: text, json or markdown",
				Value:   "text",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON (same as --format json)",
			},
			&cli.BoolFlag{
				Name:  "pretty",
				Usage: "Pretty-print JSON output",
				Value: true,
			},
			&cli.BoolFlag{
				Name:    "progress",
				Aliases: []string{"p"},
				Usage:   "Print coordinator progress while sources answer",
			},
		},
		Action: r.Search,
	}
}

// archiveCommand handles the archive of delivered results
func archiveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "archive",
		Usage: "Inspect and maintain the archive of delivered tracks",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List archived tracks, most recent first",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of entries to show",
						Value: 50,
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
						Value: true,
					},
				},
				Action: r.ArchiveList,
			},
			{
				Name:   "clear",
				Usage:  "Drop every archived track, including persisted rows",
				Action: r.ArchiveClear,
			},
		},
	}
}

// sourcesCommand lists the configured sources in dispatch order
func sourcesCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "sources",
		Usage: "List configured sources in dispatch order",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "ping",
				Usage: "Check that each source is reachable",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
		},
		Action: r.Sources,
	}
}

// setupCommand handles setup operations for configuration and the archive database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:   "config",
				Usage:  "Write a config.toml populated with defaults",
				Action: r.SetupConfig,
			},
			{
				Name:   "database",
				Usage:  "Initialize the archive database and run migrations",
				Action: r.SetupDatabase,
			},
		},
	}
}

// serveCommand starts the HTTP API
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the search API over HTTP",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "addr",
				Usage: "Listen address (default: server.host:server.port from config)",
			},
			&cli.DurationFlag{
				Name:  "cooldown",
				Usage: "Per-user cool-down between searches (default: limits.cooldown from config)",
			},
		},
		Action: r.Serve,
	}
}

// tuiCommand returns the top-level TUI command for interactive searching.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"interactive", "ui"},
		Usage:   "Launch interactive TUI for searching",
		Action:  r.TUI,
	}
}
