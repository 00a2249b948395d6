package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/sanonone/wikihop/pkg/search"
)

// pair is one line of a batch file.
type pair struct {
	line        int
	start, goal string
}

// batchResult is one JSON line of batch output.
type batchResult struct {
	Start  string         `json:"start"`
	Goal   string         `json:"goal"`
	Result *search.Result `json:"result,omitempty"`
	Error  string         `json:"error,omitempty"`
}

func (a *app) batchCommand() *cobra.Command {
	var (
		parallel int
		jsonOut  bool
	)
	cmd := &cobra.Command{
		Use:   "batch <pairs-file>",
		Short: "Run many searches concurrently against one table",
		Long: `Run one search per line of pairs-file. Each line holds a start and a goal
title separated by a TAB. Blank lines and lines starting with # are skipped.
Results are printed in input order. A failing pair does not stop the others.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runBatch(cmd, args[0], parallel, jsonOut)
		},
	}
	cmd.Flags().IntVarP(&parallel, "parallel", "p", runtime.NumCPU(), "maximum concurrent searches")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "print one JSON object per line")
	return cmd
}

func readPairs(r io.Reader) ([]pair, error) {
	var pairs []pair
	sc := bufio.NewScanner(r)
	n := 0
	for sc.Scan() {
		n++
		line := strings.TrimRight(sc.Text(), "\r")
		if strings.TrimSpace(line) == "" || strings.HasPrefix(line, "#") {
			continue
		}
		start, goal, ok := strings.Cut(line, "\t")
		if !ok || start == "" || goal == "" {
			return nil, fmt.Errorf("line %d: want \"start<TAB>goal\"", n)
		}
		pairs = append(pairs, pair{line: n, start: start, goal: goal})
	}
	return pairs, sc.Err()
}

func (a *app) runBatch(cmd *cobra.Command, path string, parallel int, jsonOut bool) error {
	if parallel <= 0 {
		return fmt.Errorf("--parallel must be positive")
	}
	ctx := cmd.Context()

	var r io.Reader = cmd.InOrStdin()
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		r = f
	}
	pairs, err := readPairs(r)
	if err != nil {
		return err
	}

	store, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	engine, err := a.newEngine(store)
	if err != nil {
		return err
	}

	results := make([]batchResult, len(pairs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parallel)
	for i, p := range pairs {
		g.Go(func() error {
			results[i] = a.searchPair(gctx, engine, p)
			// Only cancellation aborts the batch.
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	rend := a.renderer()
	enc := json.NewEncoder(a.out)
	failed := 0
	for _, res := range results {
		if res.Error != "" {
			failed++
		}
		switch {
		case jsonOut:
			if err := enc.Encode(res); err != nil {
				return err
			}
		case res.Error != "":
			fmt.Fprintf(a.out, "%q -> %q: %s\n", res.Start, res.Goal, res.Error)
		default:
			if err := rend.Result(a.out, res.Result); err != nil {
				return err
			}
		}
	}
	a.logger.Info("batch finished", "pairs", len(pairs), "failed", failed)
	return nil
}

func (a *app) searchPair(ctx context.Context, engine *search.Engine, p pair) batchResult {
	out := batchResult{Start: p.start, Goal: p.goal}
	start, err := search.Canonicalize(ctx, engine.Store(), engine.Normalizer(), p.start)
	if err == nil {
		var goal string
		goal, err = search.Canonicalize(ctx, engine.Store(), engine.Normalizer(), p.goal)
		if err == nil {
			out.Result, err = engine.Search(ctx, start, goal)
		}
	}
	if err != nil {
		a.logger.Warn("batch search failed", "line", p.line, "start", p.start, "goal", p.goal, "error", err)
		out.Error = err.Error()
	}
	return out
}
