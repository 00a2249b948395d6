package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"github.com/sanonone/wikihop/pkg/search"
	"github.com/sanonone/wikihop/pkg/table"
)

const suggestionLimit = 5

type searchFlags struct {
	normalization string
	maxExplored   int
	timeout       string
	jsonOut       bool
}

func (a *app) searchCommand() *cobra.Command {
	var f searchFlags
	cmd := &cobra.Command{
		Use:   "search [start] [goal]",
		Short: "Find the shortest link path between two titles",
		Long: `Find the shortest chain of direct links from start to goal.
Titles are case sensitive. Missing arguments fall back to the configured defaults.`,
		Args: cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runSearch(cmd, args, f)
		},
	}
	fl := cmd.Flags()
	fl.StringVar(&f.normalization, "normalization", "", "title fallback: none, first-letter, word-initial")
	fl.IntVar(&f.maxExplored, "max-explored", 0, "stop after exploring this many titles")
	fl.StringVar(&f.timeout, "timeout", "", "stop after this much time, e.g. 5m")
	fl.BoolVar(&f.jsonOut, "json", false, "print the result as JSON")
	return cmd
}

func (a *app) runSearch(cmd *cobra.Command, args []string, f searchFlags) error {
	ctx := cmd.Context()
	start, goal := a.cfg.Search.DefaultStart, a.cfg.Search.DefaultGoal
	if len(args) > 0 {
		start = args[0]
	}
	if len(args) > 1 {
		goal = args[1]
	}

	flags := cmd.Flags()
	if flags.Changed("normalization") {
		a.cfg.Search.Normalization = f.normalization
	}
	if flags.Changed("max-explored") {
		a.cfg.Search.MaxExplored = f.maxExplored
	}
	if flags.Changed("timeout") {
		if err := setDuration(&a.cfg.Search.Timeout, f.timeout); err != nil {
			return err
		}
	}

	store, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	r := a.renderer()
	engine, err := a.newEngine(store, search.WithOnProgress(func(s search.Stats) {
		a.logger.Info("searching", "progress", r.Progress(s))
	}))
	if err != nil {
		return err
	}

	start, err = a.canonical(ctx, store, engine.Normalizer(), start)
	if err != nil {
		return err
	}
	goal, err = a.canonical(ctx, store, engine.Normalizer(), goal)
	if err != nil {
		return err
	}

	res, err := engine.Search(ctx, start, goal)
	if err != nil {
		return err
	}
	if f.jsonOut {
		enc := json.NewEncoder(a.out)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}
	return r.Result(a.out, res)
}

// canonical validates title and lists close titles when it is missing.
func (a *app) canonical(ctx context.Context, store table.Store, normalize search.Normalizer, title string) (string, error) {
	got, err := search.Canonicalize(ctx, store, normalize, title)
	if err == nil {
		if got != title {
			a.logger.Info("using normalized title", "given", title, "title", got)
		}
		return got, nil
	}
	if !errors.Is(err, search.ErrTitleNotFound) {
		return "", err
	}

	if suggestions := suggest(ctx, store, normalize, title); len(suggestions) > 0 {
		fmt.Fprintf(a.out, "%q is not in the table. Did you mean:\n", title)
		for _, s := range suggestions {
			fmt.Fprintf(a.out, "  %s\n", s)
		}
	}
	return "", err
}

// suggest lists stored titles sharing a prefix with title, shortening the
// prefix until something matches.
func suggest(ctx context.Context, store table.Store, normalize search.Normalizer, title string) []string {
	prefixer, ok := store.(table.Prefixer)
	if !ok {
		return nil
	}
	if normalize != nil {
		title = normalize(title)
	}
	for prefix := title; prefix != ""; prefix = shorten(prefix) {
		titles, err := prefixer.TitlesWithPrefix(ctx, prefix, suggestionLimit)
		if err != nil || len(titles) > 0 {
			return titles
		}
		if utf8.RuneCountInString(prefix) <= 3 {
			break
		}
	}
	return nil
}

// shorten drops the last word, or the last rune for single words.
func shorten(s string) string {
	if i := strings.LastIndexByte(strings.TrimRight(s, " "), ' '); i > 0 {
		return s[:i]
	}
	_, size := utf8.DecodeLastRuneInString(s)
	return s[:len(s)-size]
}

func setDuration(dst *time.Duration, raw string) error {
	d, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*dst = d
	return nil
}
