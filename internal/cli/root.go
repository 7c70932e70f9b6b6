// Package cli wires the taskboard commands: the interactive board, the
// development backend and one-shot task commands against the task service.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"taskboard/internal/api"
	"taskboard/internal/config"
	"taskboard/internal/logging"
	"taskboard/internal/store"
	"taskboard/internal/task"
)

type app struct {
	ctx    context.Context
	cfg    config.Config
	stdout io.Writer
	stderr io.Writer
	log    *logrus.Logger
	closer io.Closer

	openLog func(logging.Options) (*logrus.Logger, io.Closer, error)
}

func newApp(ctx context.Context, stdout, stderr io.Writer, cfg config.Config) *app {
	return &app{
		ctx:     ctx,
		cfg:     cfg,
		stdout:  stdout,
		stderr:  stderr,
		log:     logging.Discard(),
		openLog: logging.New,
	}
}

// Execute runs the CLI with the given arguments and writers and returns the
// process exit code.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer, cfg config.Config) int {
	return newApp(ctx, stdout, stderr, cfg).execute(args)
}

// execute runs one command. The log opened by setup is closed here rather
// than in a post-run hook, which cobra skips when RunE fails.
func (a *app) execute(args []string) int {
	defer a.closeLog()

	root := a.rootCmd()
	root.SetArgs(args)
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)

	if err := root.Execute(); err != nil {
		if containsJSONFlag(args) {
			writeErrorJSON(a.stdout, err)
		} else {
			fmt.Fprintln(a.stderr, "Error:", err)
		}
		return 1
	}
	return 0
}

// NewRoot builds the command tree with injectable IO.
func NewRoot(ctx context.Context, stdout, stderr io.Writer, cfg config.Config) *cobra.Command {
	return newApp(ctx, stdout, stderr, cfg).rootCmd()
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "taskboard",
		Short: "Task manager backed by a remote task service",
		Long:  "Browse and edit tasks interactively, or script them with one-shot commands.",
		Args:  cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runTUI()
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("api-url", "", "Task service base URL (overrides config)")
	root.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error)")

	root.AddCommand(
		newTUICmd(a),
		newServeCmd(a),
		newListCmd(a),
		newAddCmd(a),
		newDoneCmd(a, true),
		newDoneCmd(a, false),
		newEditCmd(a),
		newRemoveCmd(a),
		newStatsCmd(a),
		newCategoriesCmd(a),
		newCategoryCmd(a),
	)
	return root
}

// setup applies flag overrides and opens the log for the running command.
func (a *app) setup(cmd *cobra.Command) error {
	if v, _ := cmd.Flags().GetString("api-url"); strings.TrimSpace(v) != "" {
		a.cfg.APIURL = strings.TrimSpace(v)
	}
	if v, _ := cmd.Flags().GetString("log-level"); v != "" {
		a.cfg.LogLevel = v
	}

	log, closer, err := a.openLog(logging.Options{
		Path:   a.cfg.LogPath,
		Level:  a.cfg.LogLevel,
		Stderr: cmd.Name() == "serve",
		Source: cmd.Name(),
	})
	if err != nil {
		return fmt.Errorf("open log: %w", err)
	}
	a.log, a.closer = log, closer
	return nil
}

func (a *app) closeLog() {
	if a.closer != nil {
		a.closer.Close()
		a.closer = nil
	}
}

func (a *app) client() *api.Client {
	return api.New(a.cfg.APIURL,
		api.WithLogger(a.log),
		api.WithBreaker(a.cfg.BreakerFailures, 30*time.Second),
	)
}

// loadStore returns a store populated from the task service.
func (a *app) loadStore() (*store.Store, error) {
	st := store.New(a.client(), a.log)
	if err := st.Initialize(a.ctx); err != nil {
		return nil, err
	}
	return st, nil
}

func containsJSONFlag(args []string) bool {
	for _, arg := range args {
		if arg == "--json" {
			return true
		}
	}
	return false
}

func writeErrorJSON(w io.Writer, err error) {
	out := struct {
		Error string `json:"error"`
		Kind  string `json:"kind,omitempty"`
	}{Error: err.Error(), Kind: task.KindOf(err)}
	data, _ := json.Marshal(out)
	fmt.Fprintln(w, string(data))
}
