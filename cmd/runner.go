package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/tunex/internal/archive"
	"github.com/desertthunder/tunex/internal/repositories"
	"github.com/desertthunder/tunex/internal/services"
	"github.com/desertthunder/tunex/internal/shared"
	"github.com/desertthunder/tunex/internal/tasks"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
//
// The registry, archive database and searcher are built on first use so that commands
// like setup work before a config or database exists.
type Runner struct {
	config     *shared.Config
	configPath string
	registry   *services.Registry
	searcher   *tasks.Searcher
	db         *sql.DB
	logger     *log.Logger
	output     io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Registry   *services.Registry
	Searcher   *tasks.Searcher
	Logger     *log.Logger
	Output     io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		registry:   opts.Registry,
		searcher:   opts.Searcher,
		logger:     opts.Logger,
		output:     opts.Output,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		searchCommand, archiveCommand, sourcesCommand, setupCommand, serveCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// Before loads the configuration named by --config, falling back to defaults when the file is absent.
func (r *Runner) Before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if cmd.Bool("verbose") {
		shared.SetLogLevel(r.logger, log.DebugLevel)
	}
	if r.config != nil {
		return ctx, nil
	}

	r.configPath = cmd.String("config")
	cfg, err := r.loadConfig()
	if err != nil {
		return ctx, err
	}
	r.config = cfg
	return ctx, nil
}

func (r *Runner) loadConfig() (*shared.Config, error) {
	if r.configPath == "" {
		return shared.DefaultConfig(), nil
	}
	if _, err := os.Stat(r.configPath); err != nil {
		r.logger.Debug("config file not found, using defaults", "path", r.configPath)
		return shared.DefaultConfig(), nil
	}

	cfg, err := shared.LoadConfig(r.configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Config returns the loaded configuration, or the defaults.
func (r *Runner) Config() *shared.Config {
	if r.config == nil {
		r.config = shared.DefaultConfig()
	}
	return r.config
}

// Registry builds the source registry from config on first use.
func (r *Runner) Registry() (*services.Registry, error) {
	if r.registry != nil {
		return r.registry, nil
	}

	reg, err := services.NewRegistryFromConfig(r.Config(), r.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to build sources: %w", err)
	}
	r.registry = reg
	return reg, nil
}

// Searcher wires registry, archive and cache into a [tasks.Searcher] on first use.
//
// With archive persistence on, the SQLite database is opened, migrated and used to warm the archive.
func (r *Runner) Searcher(ctx context.Context) (*tasks.Searcher, error) {
	if r.searcher != nil {
		return r.searcher, nil
	}

	cfg := r.Config()
	reg, err := r.Registry()
	if err != nil {
		return nil, err
	}

	opts := []archive.Option{
		archive.WithTTL(cfg.Archive.TTL.Duration),
		archive.WithCapacity(cfg.Archive.Capacity),
		archive.WithMinScore(cfg.Archive.MinScore),
		archive.WithLogger(r.logger),
	}
	if cfg.Archive.Persist {
		db, err := shared.OpenArchiveDatabase(cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to open archive database: %w", err)
		}
		r.db = db
		opts = append(opts, archive.WithPersister(
			repositories.NewArchivePersister(repositories.NewArchiveRepository(db)),
		))
	}

	store := archive.New(opts...)
	if err := store.Load(ctx); err != nil {
		r.logger.Warn("failed to warm archive, starting empty", "err", err)
	}

	r.searcher = tasks.NewSearcherFromConfig(cfg, reg, reg.Handles(), store, r.logger)
	r.logger.Debug("searcher ready", "sources", len(reg.Handles()), "archived", store.Len())
	return r.searcher, nil
}

// SetLogger replaces the logger. Must be called before the searcher is built.
func (r *Runner) SetLogger(l *log.Logger) {
	r.logger = l
}

// Close releases the archive database, if one was opened.
func (r *Runner) Close() error {
	if r.db == nil {
		return nil
	}
	err := r.db.Close()
	r.db = nil
	return err
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
