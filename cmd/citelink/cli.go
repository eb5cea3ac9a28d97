package main

import (
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/urfave/cli/v2"

	"github.com/hpungsan/citelink/internal/config"
	"github.com/hpungsan/citelink/internal/db"
	"github.com/hpungsan/citelink/internal/document"
	"github.com/hpungsan/citelink/internal/errors"
	"github.com/hpungsan/citelink/internal/history"
	"github.com/hpungsan/citelink/internal/ops"
	"github.com/hpungsan/citelink/internal/session"
	"github.com/hpungsan/citelink/internal/tui"
	"github.com/hpungsan/citelink/internal/web"
)

// stdout is where command results go. Tests swap it.
var stdout io.Writer = os.Stdout

func projectFlag() cli.Flag {
	return &cli.StringFlag{Name: "project", Aliases: []string{"p"}, Usage: "Project name (default: config default_project)"}
}

// newCLIApp creates the CLI application with all commands.
func newCLIApp(db *sql.DB, cfg *config.Config, logger *slog.Logger) *cli.App {
	if logger == nil {
		logger = slog.Default()
	}
	app := &cli.App{
		Name:    "citelink",
		Usage:   "Exhibit citations: import, suggest, resolve and track",
		Version: Version,
		Commands: []*cli.Command{
			importCmd(db, cfg),
			exportCmd(db, cfg),
			exhibitsCmd(db, cfg),
			projectsCmd(db),
			suggestCmd(db, cfg),
			resolveCmd(db, cfg),
			historyCmd(db, cfg),
			clearHistoryCmd(db, cfg),
			scanCmd(db, cfg),
			convertCmd(db, cfg),
			serveCmd(db, cfg, logger),
			editCmd(db, cfg, logger),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

func importCmd(db *sql.DB, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:      "import",
		Usage:     "Replace a project's exhibits and files from a .jsonl file or .yaml manifest",
		ArgsUsage: "<path>",
		Flags:     []cli.Flag{projectFlag()},
		Action: func(c *cli.Context) error {
			out, err := ops.Import(c.Context, db, cfg, ops.ImportInput{
				Project: c.String("project"),
				Path:    c.Args().First(),
			})
			if err != nil {
				return outputError(err)
			}
			if err := outputJSON(out); err != nil {
				return err
			}
			if len(out.Errors) > 0 {
				return cli.Exit(fmt.Sprintf("%d records rejected, nothing imported", len(out.Errors)), 1)
			}
			return nil
		},
	}
}

func exportCmd(db *sql.DB, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Write a project's exhibits and files to a .jsonl file import reads back",
		Flags: []cli.Flag{
			projectFlag(),
			&cli.StringFlag{Name: "path", Usage: "Export file path (default: ~/.citelink/imports/<project>-<timestamp>.jsonl)"},
		},
		Action: func(c *cli.Context) error {
			out, err := ops.Export(c.Context, db, cfg, ops.ExportInput{
				Project: c.String("project"),
				Path:    c.String("path"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(out)
		},
	}
}

func exhibitsCmd(db *sql.DB, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "exhibits",
		Usage: "List a project's exhibit directory and files",
		Flags: []cli.Flag{projectFlag()},
		Action: func(c *cli.Context) error {
			out, err := ops.Exhibits(c.Context, db, cfg, ops.ExhibitsInput{Project: c.String("project")})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(out)
		},
	}
}

func projectsCmd(db *sql.DB) *cli.Command {
	return &cli.Command{
		Name:  "projects",
		Usage: "List imported projects",
		Action: func(c *cli.Context) error {
			out, err := ops.Projects(c.Context, db)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(out)
		},
	}
}

func suggestCmd(db *sql.DB, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:      "suggest",
		Usage:     "Rank exhibits for the text before the caret (reads stdin when no text is given)",
		ArgsUsage: "[text]",
		Flags: []cli.Flag{
			projectFlag(),
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Usage: "Maximum suggestions (1-8)"},
		},
		Action: func(c *cli.Context) error {
			text := strings.Join(c.Args().Slice(), " ")
			if text == "" && stdinHasData() {
				data, err := readStdin()
				if err != nil {
					return outputError(errors.NewInternal(err))
				}
				text = data
			}
			out, err := ops.Suggest(c.Context, db, cfg, ops.SuggestInput{
				Project: c.String("project"),
				Text:    text,
				Limit:   c.Int("limit"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(out)
		},
	}
}

func resolveCmd(db *sql.DB, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:      "resolve",
		Usage:     "Resolve a citation reference (2B:15) or file id to a navigation intent",
		ArgsUsage: "[reference]",
		Flags: []cli.Flag{
			projectFlag(),
			&cli.StringFlag{Name: "file-id", Usage: "Resolve by file id instead of reference"},
			&cli.StringFlag{Name: "description", Aliases: []string{"d"}, Usage: "Source description carried into the intent"},
			&cli.BoolFlag{Name: "no-record", Usage: "Do not record the visit in history"},
		},
		Action: func(c *cli.Context) error {
			input := ops.ResolveInput{
				Project:     c.String("project"),
				Reference:   c.Args().First(),
				FileID:      c.String("file-id"),
				Description: c.String("description"),
			}
			if c.Bool("no-record") {
				record := false
				input.Record = &record
			}
			out, err := ops.Resolve(c.Context, db, cfg, input)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(out)
		},
	}
}

func historyCmd(db *sql.DB, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "List recently opened citations",
		Flags: []cli.Flag{
			projectFlag(),
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Usage: "Maximum entries (default: config recent_history)"},
		},
		Action: func(c *cli.Context) error {
			out, err := ops.HistoryList(c.Context, db, cfg, ops.HistoryListInput{
				Project: c.String("project"),
				Limit:   c.Int("limit"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(out)
		},
	}
}

func clearHistoryCmd(db *sql.DB, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "clear-history",
		Usage: "Delete a project's citation history",
		Flags: []cli.Flag{
			projectFlag(),
			&cli.BoolFlag{Name: "yes", Aliases: []string{"y"}, Usage: "Confirm; history cannot be restored"},
		},
		Action: func(c *cli.Context) error {
			if !c.Bool("yes") {
				return outputError(errors.NewInvalidRequest("clearing history cannot be undone; pass --yes"))
			}
			out, err := ops.HistoryClear(c.Context, db, cfg, ops.HistoryClearInput{Project: c.String("project")})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(out)
		},
	}
}

func scanCmd(db *sql.DB, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:      "scan",
		Usage:     "List the citations in a Markdown file and whether each resolves",
		ArgsUsage: "<path>",
		Flags:     []cli.Flag{projectFlag()},
		Action: func(c *cli.Context) error {
			out, err := ops.Scan(c.Context, db, cfg, ops.ScanInput{
				Project: c.String("project"),
				Path:    c.Args().First(),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(out)
		},
	}
}

func convertCmd(db *sql.DB, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:      "convert",
		Usage:     "Turn bracket citations in a Markdown file into a citation document",
		ArgsUsage: "<path>",
		Flags: []cli.Flag{
			projectFlag(),
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "Write the document to this .json path"},
		},
		Action: func(c *cli.Context) error {
			out, err := ops.Convert(c.Context, db, cfg, ops.ConvertInput{
				Project: c.String("project"),
				Path:    c.Args().First(),
				Output:  c.String("output"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(out)
		},
	}
}

func serveCmd(db *sql.DB, cfg *config.Config, logger *slog.Logger) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the viewer panel over HTTP",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "bind", Value: "127.0.0.1", Usage: "Address to bind", EnvVars: []string{"CITELINK_BIND"}},
			&cli.IntFlag{Name: "port", Value: 8742, Usage: "Port to listen on", EnvVars: []string{"CITELINK_PORT"}},
		},
		Action: func(c *cli.Context) error {
			srv := web.NewServer(db, cfg, Version, c.String("bind"), c.Int("port"), logger)
			return web.Run(c.Context, srv, logger)
		},
	}
}

func editCmd(database *sql.DB, cfg *config.Config, logger *slog.Logger) *cli.Command {
	return &cli.Command{
		Name:  "edit",
		Usage: "Open the terminal citation editor",
		Flags: []cli.Flag{projectFlag()},
		Action: func(c *cli.Context) error {
			project, snap, err := ops.LoadSource(c.Context, database, cfg, c.String("project"))
			if err != nil {
				return outputError(err)
			}
			tracker := history.NewTracker(db.NewHistoryStore(database, project))
			sess := session.New(document.New(), session.Options{
				Source:         snap,
				Tracker:        tracker,
				MaxSuggestions: cfg.MaxSuggestions,
				TimestampLimit: cfg.TimestampLimitSeconds,
				// stderr belongs to the terminal UI while it runs
				Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
			})
			model := tui.New(c.Context, sess, tui.Options{
				Project: project,
				Tracker: tracker,
				Recent:  cfg.RecentHistory,
			})
			if _, err := tea.NewProgram(model, tea.WithContext(c.Context)).Run(); err != nil {
				if stderrors.Is(err, tea.ErrProgramKilled) {
					return nil
				}
				logger.Error("editor exited", "error", err)
				return cli.Exit(err.Error(), 1)
			}
			return nil
		},
	}
}

// Helper functions

// outputJSON marshals result to stdout as JSON.
func outputJSON(v any) error {
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	var citeErr *errors.CiteError
	if stderrors.As(err, &citeErr) {
		return cli.Exit(fmt.Sprintf("[%s] %s", citeErr.Code, citeErr.Message), 1)
	}
	return cli.Exit(err.Error(), 1)
}

// stdinHasData returns true if stdin has piped data (not a terminal).
func stdinHasData() bool {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) == 0
}

// readStdin reads all content from stdin. Only the trailing newline is
// dropped; the detector cares about text right up to the caret.
func readStdin() (string, error) {
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", err
	}
	return strings.TrimRight(string(data), "\r\n"), nil
}
