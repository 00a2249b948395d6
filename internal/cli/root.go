// Package cli implements the wikihop command line.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/sanonone/wikihop/internal/config"
	"github.com/sanonone/wikihop/pkg/render"
	"github.com/sanonone/wikihop/pkg/search"
	"github.com/sanonone/wikihop/pkg/table"
)

// app carries the state shared by all subcommands.
type app struct {
	configPath string
	backend    string
	storePath  string
	logLevel   string
	logFormat  string
	color      string

	cfg    config.Config
	logger *slog.Logger
	out    io.Writer
	errOut io.Writer
}

// NewRootCommand builds the wikihop command tree writing to out and errOut.
func NewRootCommand(out, errOut io.Writer) *cobra.Command {
	a := &app{out: out, errOut: errOut}

	root := &cobra.Command{
		Use:   "wikihop",
		Short: "Find the shortest chain of links between two encyclopedia pages",
		Long: `wikihop searches a pre-built title table for the shortest chain of
direct links between two pages. Redirects are followed for free.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}
	root.SetOut(out)
	root.SetErr(errOut)

	pf := root.PersistentFlags()
	pf.StringVarP(&a.configPath, "config", "c", "", "path to a YAML config file")
	pf.StringVar(&a.backend, "backend", "", "table backend: memory, aof, sqlite, badger")
	pf.StringVar(&a.storePath, "store", "", "table location (file or directory)")
	pf.StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn, error")
	pf.StringVar(&a.logFormat, "log-format", "", "log format: text, json")
	pf.StringVar(&a.color, "color", "", "color output: auto, always, never")

	root.AddCommand(
		a.searchCommand(),
		a.importCommand(),
		a.titlesCommand(),
		a.batchCommand(),
		a.serveCommand(),
		a.mcpCommand(),
	)
	return root
}

// Execute runs the command line and returns the process exit code.
func Execute(ctx context.Context, args []string) int {
	root := NewRootCommand(os.Stdout, os.Stderr)
	root.SetArgs(args)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return 1
	}
	return 0
}

// setup loads the configuration, applies flag overrides and installs the logger.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("backend") {
		cfg.Store.Backend = a.backend
	}
	if flags.Changed("store") {
		cfg.Store.Path = a.storePath
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = a.logLevel
	}
	if flags.Changed("log-format") {
		cfg.Log.Format = a.logFormat
	}
	if flags.Changed("color") {
		cfg.Render.Color = a.color
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg

	logger, err := newLogger(cfg.Log, a.errOut)
	if err != nil {
		return err
	}
	a.logger = logger
	slog.SetDefault(logger)
	return nil
}

func (a *app) openStore(ctx context.Context) (table.Store, error) {
	backend, err := table.ParseBackend(a.cfg.Store.Backend)
	if err != nil {
		return nil, err
	}
	store, err := table.Open(ctx, backend, a.cfg.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("open %s table %q: %w", backend, a.cfg.Store.Path, err)
	}
	a.logger.Debug("table opened", "backend", backend, "path", a.cfg.Store.Path)
	return store, nil
}

func (a *app) newEngine(store table.Store, extra ...search.Option) (*search.Engine, error) {
	opts, err := a.cfg.SearchOptions()
	if err != nil {
		return nil, err
	}
	opts = append(opts, search.WithLogger(a.logger))
	return search.New(store, append(opts, extra...)...)
}

func (a *app) renderer() *render.Renderer {
	var color bool
	if f, ok := a.out.(*os.File); ok {
		color = render.ColorEnabled(a.cfg.Render.Color, f)
	} else {
		color = a.cfg.Render.Color == "always"
	}
	return render.New(a.cfg.Render.BaseURL, color)
}
