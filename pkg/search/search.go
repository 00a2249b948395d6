// Package search finds a shortest chain of links between two titles of a
// title table.
//
// The engine runs a breadth-first search where only direct links are
// counted as hops. Redirects and normalized lookups are folded into the hop
// that reached them, so a redirect chain of any legal length never costs a
// frontier slot. Titles are marked visited when they are scheduled and
// expanded once their links have been walked, so each page is expanded at
// most once per run. A goal found among the links of a depth d title is only
// accepted after the titles still queued at depth d have been resolved,
// since a redirect among them may reach the goal one hop earlier.
package search

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/sanonone/wikihop/pkg/table"
)

// Outcome is the terminal state of a completed run.
type Outcome uint8

const (
	// Found: a path to the goal was discovered.
	Found Outcome = iota + 1
	// Exhausted: the frontier emptied; no path exists.
	Exhausted
	// BudgetExceeded: MaxExplored or Timeout stopped the run first.
	BudgetExceeded
)

func (o Outcome) String() string {
	switch o {
	case Found:
		return "found"
	case Exhausted:
		return "exhausted"
	case BudgetExceeded:
		return "budget_exceeded"
	}
	return fmt.Sprintf("Outcome(%d)", uint8(o))
}

func (o Outcome) MarshalText() ([]byte, error) { return []byte(o.String()), nil }

func (o *Outcome) UnmarshalText(b []byte) error {
	switch string(b) {
	case "found":
		*o = Found
	case "exhausted":
		*o = Exhausted
	case "budget_exceeded":
		*o = BudgetExceeded
	default:
		return fmt.Errorf("search: unknown outcome %q", b)
	}
	return nil
}

// PruneCounts tallies abandoned titles by reason.
type PruneCounts struct {
	NotFound          int `json:"not_found"`
	FilteredNamespace int `json:"filtered_namespace"`
	DepthExceeded     int `json:"depth_exceeded"`
}

func (p *PruneCounts) add(r Reason) {
	switch r {
	case ReasonNotFound:
		p.NotFound++
	case ReasonFilteredNamespace:
		p.FilteredNamespace++
	case ReasonDepthExceeded:
		p.DepthExceeded++
	}
}

// Stats are the running counters of a search. Explored counts dequeued
// titles, Visited is the size of the visited set and Depth is the
// direct-hop depth of the last dequeued title.
type Stats struct {
	Explored    int           `json:"explored"`
	Visited     int           `json:"visited"`
	Frontier    int           `json:"frontier"`
	MaxFrontier int           `json:"max_frontier"`
	Depth       int           `json:"depth"`
	Lookups     int           `json:"lookups"`
	Pruned      PruneCounts   `json:"pruned"`
	Elapsed     time.Duration `json:"elapsed"`
}

// Result is the report of a completed run. Path is set only when Outcome
// is Found.
type Result struct {
	RunID   string  `json:"run_id"`
	Start   string  `json:"start"`
	Goal    string  `json:"goal"`
	Outcome Outcome `json:"outcome"`
	Path    []Hop   `json:"path,omitempty"`
	Stats   Stats   `json:"stats"`
}

// DirectHops returns the number of counted hops in the path.
func (r *Result) DirectHops() int { return DirectHops(r.Path) }

// Engine runs searches against one store. It holds no per-run state, so a
// single Engine may serve concurrent Search calls as long as the store
// tolerates concurrent lookups.
type Engine struct {
	store    table.Store
	opts     Options
	resolver *Resolver
	logger   *slog.Logger
}

// New validates opts and returns an Engine over store.
func New(store table.Store, opts ...Option) (*Engine, error) {
	o := DefaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.err != nil {
		return nil, o.err
	}
	if store == nil {
		return nil, fmt.Errorf("%w: nil store", ErrInvalidOption)
	}
	logger := o.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		store:    store,
		opts:     o,
		resolver: NewResolver(store, o.Normalizer, o.MaxRedirectDepth, logger),
		logger:   logger,
	}, nil
}

// Run is a convenience wrapper around New and Search.
func Run(ctx context.Context, store table.Store, start, goal string, opts ...Option) (*Result, error) {
	e, err := New(store, opts...)
	if err != nil {
		return nil, err
	}
	return e.Search(ctx, start, goal)
}

// Store returns the store the engine reads from.
func (e *Engine) Store() table.Store { return e.store }

// Normalizer returns the configured lookup fallback.
func (e *Engine) Normalizer() Normalizer { return e.opts.Normalizer }

// Resolver returns the redirect resolver built from the engine options.
func (e *Engine) Resolver() *Resolver { return e.resolver }

// Search finds a shortest path from start to goal. Titles are used as
// given; see Canonicalize for validating them first. opts override the
// engine options for this run only.
//
// A run that ends without a path is not an error: the Result carries
// Exhausted or BudgetExceeded. Errors are reserved for empty titles, store
// failures (*StoreError) and context cancellation.
func (e *Engine) Search(ctx context.Context, start, goal string, opts ...Option) (*Result, error) {
	o := e.opts
	resolver := e.resolver
	if len(opts) > 0 {
		for _, opt := range opts {
			opt(&o)
		}
		if o.err != nil {
			return nil, o.err
		}
		if o.Logger == nil {
			o.Logger = e.logger
		}
		resolver = NewResolver(e.store, o.Normalizer, o.MaxRedirectDepth, o.Logger)
	}

	res, err := e.search(ctx, &o, resolver, start, goal)
	if o.OnFinish != nil {
		o.OnFinish(res, err)
	}
	return res, err
}

func (e *Engine) search(ctx context.Context, o *Options, resolver *Resolver, start, goal string) (*Result, error) {
	if start == "" || goal == "" {
		return nil, ErrEmptyTitle
	}
	logger := o.Logger
	if logger == nil {
		logger = e.logger
	}

	w := &walker{
		opts:     o,
		resolver: resolver,
		goal:     goal,
		runID:    uuid.NewString(),
		visited:  NewVisitedSet(1024),
		expanded: NewVisitedSet(1024),
		began:    time.Now(),
	}
	w.logger = logger.With("run_id", w.runID)
	if o.Timeout > 0 {
		w.deadline = w.began.Add(o.Timeout)
	}

	w.logger.Debug("search started", "start", start, "goal", goal)
	res, err := w.run(ctx, start)
	if err != nil {
		w.logger.Debug("search failed", "error", err, "explored", w.stats.Explored)
		return nil, err
	}
	res.Start = start
	res.Goal = goal
	w.logger.Debug("search finished",
		"outcome", res.Outcome,
		"hops", res.DirectHops(),
		"explored", res.Stats.Explored,
		"visited", res.Stats.Visited,
		"elapsed", res.Stats.Elapsed,
	)
	return res, nil
}

// walker holds the state of a single run.
type walker struct {
	opts     *Options
	resolver *Resolver
	goal     string
	runID    string
	visited  *VisitedSet
	expanded *VisitedSet
	chain    []string
	queue    frontier
	stats    Stats
	began    time.Time
	deadline time.Time
	logger   *slog.Logger
}

func (w *walker) run(ctx context.Context, start string) (*Result, error) {
	w.visited.Insert(start)
	w.queue.Push(Root(start))

	for w.queue.Len() > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if w.overBudget() {
			return w.finish(BudgetExceeded, nil), nil
		}

		node := w.queue.Pop()
		w.stats.Explored++
		w.stats.Depth = int(node.Depth)
		w.reportProgress()

		if node.Title == w.goal {
			return w.finish(Found, node), nil
		}
		if w.expanded.Contains(node.Title) {
			continue
		}

		hit, err := w.expand(ctx, node)
		if err != nil {
			return nil, err
		}
		if hit == nil {
			continue
		}
		if hit.Depth > node.Depth {
			closer, err := w.closerHit(ctx, node.Depth)
			if err != nil {
				return nil, err
			}
			if closer != nil {
				hit = closer
			}
		}
		return w.finish(Found, hit), nil
	}
	return w.finish(Exhausted, nil), nil
}

// expand resolves node and schedules its links. It returns the goal node
// when the goal is reached along the way.
func (w *walker) expand(ctx context.Context, node *Node) (*Node, error) {
	var hit *Node
	cur := node
	w.chain = w.chain[:0]
	res, err := w.resolver.Resolve(ctx, node.Title, func(title string, kind HopKind) bool {
		cur = Extend(cur, title, kind)
		if title == w.goal {
			hit = cur
			return false
		}
		// The rest of the chain was walked from an earlier title.
		if w.expanded.Contains(title) {
			return false
		}
		// A title that is only scheduled is expanded here, at this depth,
		// and its own frontier node is skipped later.
		w.visited.Insert(title)
		w.chain = append(w.chain, title)
		return true
	})
	w.stats.Lookups += res.Lookups
	if err != nil {
		return nil, err
	}
	if hit != nil {
		return hit, nil
	}
	if res.Reason == ReasonStopped {
		return nil, nil
	}
	if !res.Resolved() {
		w.stats.Pruned.add(res.Reason)
		if w.opts.OnPrune != nil {
			w.opts.OnPrune(node.Title, res.Reason)
		}
		return nil, nil
	}
	w.expanded.Insert(node.Title)
	for _, title := range w.chain {
		w.expanded.Insert(title)
	}

	for _, link := range res.Entry.Links {
		if link == "" {
			continue
		}
		if link == w.goal {
			return Extend(cur, link, HopDirect), nil
		}
		if w.visited.Insert(link) {
			w.queue.Push(Extend(cur, link, HopDirect))
		}
	}
	if n := w.queue.Len(); n > w.stats.MaxFrontier {
		w.stats.MaxFrontier = n
	}
	return nil, nil
}

// closerHit resolves, without expanding them, the queued nodes at depth and
// returns the first whose redirect chain reaches the goal.
func (w *walker) closerHit(ctx context.Context, depth int32) (*Node, error) {
	for next := w.queue.Peek(); next != nil && next.Depth == depth; next = w.queue.Peek() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		node := w.queue.Pop()
		if w.expanded.Contains(node.Title) {
			continue
		}

		var hit *Node
		cur := node
		res, err := w.resolver.Resolve(ctx, node.Title, func(title string, kind HopKind) bool {
			cur = Extend(cur, title, kind)
			if title == w.goal {
				hit = cur
				return false
			}
			return !w.expanded.Contains(title)
		})
		w.stats.Lookups += res.Lookups
		if err != nil || hit != nil {
			return hit, err
		}
	}
	return nil, nil
}

func (w *walker) overBudget() bool {
	if limit := w.opts.MaxExplored; limit > 0 && w.stats.Explored >= limit {
		return true
	}
	return !w.deadline.IsZero() && time.Now().After(w.deadline)
}

func (w *walker) snapshot() Stats {
	s := w.stats
	s.Visited = w.visited.Len()
	s.Frontier = w.queue.Len()
	s.Elapsed = time.Since(w.began)
	return s
}

func (w *walker) reportProgress() {
	every := w.opts.ProgressEvery
	if every <= 0 || w.stats.Explored%every != 0 {
		return
	}
	s := w.snapshot()
	if w.opts.OnProgress != nil {
		w.opts.OnProgress(s)
		return
	}
	w.logger.Debug("search progress",
		"explored", s.Explored,
		"visited", s.Visited,
		"frontier", s.Frontier,
		"depth", s.Depth,
	)
}

func (w *walker) finish(outcome Outcome, goal *Node) *Result {
	res := &Result{
		RunID:   w.runID,
		Outcome: outcome,
		Stats:   w.snapshot(),
	}
	if goal != nil {
		res.Path = goal.Path()
	}
	return res
}
