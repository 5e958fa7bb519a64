package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/tunex/internal/models"
	"github.com/desertthunder/tunex/internal/services"
	"github.com/desertthunder/tunex/internal/shared"
	tu "github.com/desertthunder/tunex/internal/testing"
)

var believer = models.RawResult{
	Title:           "Believer",
	Performer:       "Imagine Dragons",
	DurationSeconds: 204,
	SizeBytes:       5_000_000,
	MIMEType:        "audio/mpeg",
	PayloadRef:      "believer-ref",
}

func scriptedRegistry(results ...models.RawResult) *services.Registry {
	reg := services.NewRegistry()
	reg.Register(models.SourceHandle{ID: "A"}, tu.NewScriptedSource(map[string]tu.Script{
		"A": {Results: results},
	}))
	reg.Register(models.SourceHandle{ID: "B", Tier: models.TierPreferred}, tu.NewScriptedSource(nil))
	return reg
}

func testConfig(t *testing.T, persist bool) *shared.Config {
	t.Helper()
	cfg := shared.DefaultConfig()
	cfg.Archive.Persist = persist
	cfg.Database.Path = filepath.Join(t.TempDir(), "tunex.db")
	return cfg
}

// run executes args against the runner's commands the way main does.
func run(t *testing.T, r *Runner, args ...string) error {
	t.Helper()
	app := &cli.Command{Name: "tunex", Commands: r.register()}
	return app.Run(context.Background(), append([]string{"tunex"}, args...))
}

func TestRunner(t *testing.T) {
	t.Run("NewRunner", func(t *testing.T) {
		t.Run("with all dependencies provided", func(t *testing.T) {
			config := shared.DefaultConfig()
			logger := shared.NewLogger(nil)
			output := &bytes.Buffer{}
			reg := services.NewRegistry()

			runner := NewRunner(RunnerOpts{
				Config:     config,
				ConfigPath: "/test/path/config.toml",
				Registry:   reg,
				Logger:     logger,
				Output:     output,
			})

			assert.Same(t, config, runner.config)
			assert.Equal(t, "/test/path/config.toml", runner.configPath)
			assert.Same(t, reg, runner.registry)
			assert.Same(t, logger, runner.logger)
			assert.Equal(t, output, runner.output)
		})

		t.Run("with nil config uses defaults", func(t *testing.T) {
			assert.NotNil(t, NewRunner(RunnerOpts{}).Config())
		})

		t.Run("with nil logger uses default", func(t *testing.T) {
			assert.NotNil(t, NewRunner(RunnerOpts{}).logger)
		})

		t.Run("with nil output uses stdout", func(t *testing.T) {
			assert.Equal(t, os.Stdout, NewRunner(RunnerOpts{}).output)
		})
	})

	t.Run("loadConfig", func(t *testing.T) {
		t.Run("missing file uses defaults", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{ConfigPath: filepath.Join(t.TempDir(), "nope.toml")})

			cfg, err := runner.loadConfig()
			require.NoError(t, err)
			assert.Equal(t, 6, cfg.Search.MaxParallelSources)
		})

		t.Run("reads file", func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			body := "[search]\nmax_parallel_sources = 3\n\n[[sources]]\nid = \"only\"\nkind = \"http\"\nbase_url = \"http://localhost:9\"\n"
			require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

			cfg, err := NewRunner(RunnerOpts{ConfigPath: path}).loadConfig()
			require.NoError(t, err)
			assert.Equal(t, 3, cfg.Search.MaxParallelSources)
			assert.Len(t, cfg.Sources, 1)
		})

		t.Run("rejects invalid config", func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			body := "[search]\nfast_path_timeout = \"10s\"\nslow_path_timeout = \"5s\"\n"
			require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

			_, err := NewRunner(RunnerOpts{ConfigPath: path}).loadConfig()
			assert.ErrorIs(t, err, shared.ErrInvalidConfig)
		})
	})

	t.Run("writeJSON", func(t *testing.T) {
		t.Run("writes formatted JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			require.NoError(t, runner.writeJSON(map[string]string{"key": "value"}, true))
			assert.Contains(t, output.String(), `"key": "value"`)
			assert.True(t, bytes.HasSuffix(output.Bytes(), []byte("\n")), "output ends with a newline")
		})

		t.Run("writes compact JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			require.NoError(t, runner.writeJSON(map[string]string{"key": "value"}, false))
			assert.Equal(t, `{"key":"value"}`+"\n", output.String())
		})

		t.Run("handles marshal error with non-serializable data", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}})
			assert.ErrorContains(t, runner.writeJSON(make(chan int), false), "failed to marshal JSON")
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})
			assert.ErrorContains(t, runner.writeJSON(map[string]string{"key": "value"}, false), "failed to write output")
		})

		t.Run("handles newline write failure", func(t *testing.T) {
			limitedWriter := tu.NewLimitedWriter(1, 0, &bytes.Buffer{})
			runner := NewRunner(RunnerOpts{Output: &limitedWriter})
			assert.ErrorContains(t, runner.writeJSON(map[string]string{"key": "value"}, false), "failed to write newline")
		})
	})

	t.Run("writePlain", func(t *testing.T) {
		t.Run("writes plain text successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			require.NoError(t, runner.writePlain("hello %s", "world"))
			assert.Equal(t, "hello world", output.String())
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})
			assert.ErrorContains(t, runner.writePlain("test"), "failed to write output")
		})
	})

	t.Run("register", func(t *testing.T) {
		commands := NewRunner(RunnerOpts{}).register()

		names := make([]string, 0, len(commands))
		for _, cmd := range commands {
			require.NotNil(t, cmd)
			names = append(names, cmd.Name)
		}
		assert.ElementsMatch(t, []string{"search", "archive", "sources", "setup", "serve", "tui"}, names)
	})
}

func TestSearchCommand(t *testing.T) {
	newRunner := func(t *testing.T, persist bool, results ...models.RawResult) (*Runner, *bytes.Buffer) {
		output := &bytes.Buffer{}
		return NewRunner(RunnerOpts{
			Config:   testConfig(t, persist),
			Registry: scriptedRegistry(results...),
			Logger:   shared.DiscardLogger(),
			Output:   output,
		}), output
	}

	t.Run("prints JSON delivery", func(t *testing.T) {
		runner, output := newRunner(t, false, believer)

		require.NoError(t, run(t, runner, "search", "--json", "Imagine Dragons - Believer"))

		var body map[string]any
		require.NoError(t, json.Unmarshal(output.Bytes(), &body), "output %q", output.String())
		assert.Equal(t, true, body["found"])
		assert.Equal(t, "sources", body["origin"])

		c, ok := body["candidate"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "believer-ref", c["payload_ref"])
	})

	t.Run("prints text caption", func(t *testing.T) {
		runner, output := newRunner(t, false, believer)

		require.NoError(t, run(t, runner, "search", "--progress", "imagine dragons believer"))
		assert.Contains(t, output.String(), "Performer: Imagine Dragons")
	})

	t.Run("miss is not an error", func(t *testing.T) {
		runner, output := newRunner(t, false)

		require.NoError(t, run(t, runner, "search", "--json", "ed sheeran shape of you"))
		assert.Contains(t, output.String(), `"found": false`)
	})

	t.Run("requires a query", func(t *testing.T) {
		runner, _ := newRunner(t, false)
		assert.ErrorIs(t, run(t, runner, "search"), shared.ErrMissingArgument)
	})

	t.Run("rejects unknown format", func(t *testing.T) {
		runner, _ := newRunner(t, false)
		assert.ErrorIs(t, run(t, runner, "search", "--format", "yaml", "believer"), shared.ErrInvalidFlag)
	})

	t.Run("archive survives restart", func(t *testing.T) {
		cfg := testConfig(t, true)

		first := NewRunner(RunnerOpts{
			Config:   cfg,
			Registry: scriptedRegistry(believer),
			Logger:   shared.DiscardLogger(),
			Output:   &bytes.Buffer{},
		})
		require.NoError(t, run(t, first, "search", "Imagine Dragons - Believer"))
		require.NoError(t, first.Close())

		output := &bytes.Buffer{}
		second := NewRunner(RunnerOpts{
			Config:   cfg,
			Registry: scriptedRegistry(),
			Logger:   shared.DiscardLogger(),
			Output:   output,
		})
		defer second.Close()

		require.NoError(t, run(t, second, "search", "--json", "believer imagine dragons"))
		assert.Contains(t, output.String(), `"origin": "archive"`)
	})

	t.Run("expired archive rows are pruned on restart", func(t *testing.T) {
		cfg := testConfig(t, true)
		cfg.Archive.TTL = shared.Duration{Duration: 50 * time.Millisecond}

		first := NewRunner(RunnerOpts{
			Config:   cfg,
			Registry: scriptedRegistry(believer),
			Logger:   shared.DiscardLogger(),
			Output:   &bytes.Buffer{},
		})
		require.NoError(t, run(t, first, "search", "Imagine Dragons - Believer"))
		require.NoError(t, first.Close())
		time.Sleep(100 * time.Millisecond)

		output := &bytes.Buffer{}
		second := NewRunner(RunnerOpts{
			Config:   cfg,
			Registry: scriptedRegistry(),
			Logger:   shared.DiscardLogger(),
			Output:   output,
		})
		require.NoError(t, run(t, second, "search", "--json", "believer imagine dragons"))
		require.NoError(t, second.Close())
		assert.Contains(t, output.String(), `"found": false`)

		db, err := shared.NewDatabase(cfg.Database.Path)
		require.NoError(t, err)
		defer db.Close()

		var n int
		require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM archive_entries").Scan(&n))
		assert.Zero(t, n)
	})
}

func TestMaintenanceCommands(t *testing.T) {
	newRunner := func(t *testing.T) (*Runner, *bytes.Buffer) {
		output := &bytes.Buffer{}
		runner := NewRunner(RunnerOpts{
			Config:   testConfig(t, false),
			Registry: scriptedRegistry(believer),
			Logger:   shared.DiscardLogger(),
			Output:   output,
		})
		require.NoError(t, run(t, runner, "search", "imagine dragons believer"))
		output.Reset()
		return runner, output
	}

	t.Run("archive list and clear", func(t *testing.T) {
		runner, output := newRunner(t)

		require.NoError(t, run(t, runner, "archive", "list", "--json"))
		var rows []archiveRow
		require.NoError(t, json.Unmarshal(output.Bytes(), &rows))
		require.Len(t, rows, 1)
		assert.Equal(t, "believer-ref", rows[0].PayloadRef)

		require.NoError(t, run(t, runner, "archive", "clear"))
		output.Reset()
		require.NoError(t, run(t, runner, "archive", "list"))
		assert.Contains(t, output.String(), "(empty)")
	})

	t.Run("sources in dispatch order", func(t *testing.T) {
		runner, output := newRunner(t)
		runner.Config().Search.MaxParallelSources = 1

		require.NoError(t, run(t, runner, "sources", "--ping", "--json"))
		var rows []sourceRow
		require.NoError(t, json.Unmarshal(output.Bytes(), &rows))
		require.Len(t, rows, 2)

		assert.Equal(t, "B", rows[0].ID, "preferred source first")
		assert.True(t, rows[0].Selected)
		assert.False(t, rows[1].Selected, "the cap applies")
		assert.Equal(t, "unchecked", rows[1].Status, "scripted sources cannot be pinged")
	})
}

func TestSetupCommands(t *testing.T) {
	t.Run("config", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.toml")
		runner := NewRunner(RunnerOpts{ConfigPath: path, Logger: shared.DiscardLogger(), Output: &bytes.Buffer{}})

		require.NoError(t, run(t, runner, "setup", "config"))
		tu.AssertFileExists(t, path)
		assert.Contains(t, tu.MustReadFile(t, path), "[search]")

		assert.Error(t, run(t, runner, "setup", "config"), "the file already exists")
	})

	t.Run("database", func(t *testing.T) {
		cfg := testConfig(t, true)
		runner := NewRunner(RunnerOpts{Config: cfg, Logger: shared.DiscardLogger(), Output: &bytes.Buffer{}})

		require.NoError(t, run(t, runner, "setup", "database"))
		tu.AssertFileExists(t, cfg.Database.Path)

		db, err := shared.NewDatabase(cfg.Database.Path)
		require.NoError(t, err)
		defer db.Close()

		var n int
		assert.NoError(t, db.QueryRow("SELECT COUNT(*) FROM archive_entries").Scan(&n), "archive table exists")
	})
}
