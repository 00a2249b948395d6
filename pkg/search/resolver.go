package search

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sanonone/wikihop/pkg/table"
)

// MaxRedirectDepth is the default bound on chained redirects.
const MaxRedirectDepth = 20

// Reason explains why a title was abandoned during resolution.
type Reason uint8

const (
	ReasonNone Reason = iota
	// ReasonNotFound: neither the title nor its normalized form is present.
	ReasonNotFound
	// ReasonFilteredNamespace: a redirect pointed at a filtered-out page.
	ReasonFilteredNamespace
	// ReasonDepthExceeded: too many chained redirects, including cycles.
	ReasonDepthExceeded
	// ReasonStopped: the visit callback ended resolution early.
	ReasonStopped
)

func (r Reason) String() string {
	switch r {
	case ReasonNone:
		return "none"
	case ReasonNotFound:
		return "not_found"
	case ReasonFilteredNamespace:
		return "filtered_namespace"
	case ReasonDepthExceeded:
		return "depth_exceeded"
	case ReasonStopped:
		return "stopped"
	}
	return fmt.Sprintf("Reason(%d)", uint8(r))
}

// Resolution is the terminal state of resolving one title.
type Resolution struct {
	// Title is the title whose entry was found, after redirects and
	// normalization. Empty unless Reason is ReasonNone.
	Title string
	// Entry is always a page entry when Reason is ReasonNone.
	Entry  table.Entry
	Reason Reason
	// Lookups counts store lookups performed.
	Lookups int
}

// Resolved reports whether a page entry was reached.
func (r Resolution) Resolved() bool { return r.Reason == ReasonNone }

// VisitFunc is called for every title reached after the first one, in
// order, with the way it was reached. Returning false stops resolution.
type VisitFunc func(title string, kind HopKind) bool

// Resolver turns a title into the page entry that owns its links by
// following redirects, with an optional single normalization retry per
// lookup. A Resolver holds no per-run state and may be shared.
type Resolver struct {
	store     table.Store
	normalize Normalizer
	maxDepth  int
	logger    *slog.Logger
}

// NewResolver creates a resolver over store. maxDepth <= 0 selects
// MaxRedirectDepth; a nil logger selects slog.Default().
func NewResolver(store table.Store, normalize Normalizer, maxDepth int, logger *slog.Logger) *Resolver {
	if maxDepth <= 0 {
		maxDepth = MaxRedirectDepth
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{store: store, normalize: normalize, maxDepth: maxDepth, logger: logger}
}

// Resolve runs the resolution state machine starting at title. visit may
// be nil. Store failures are returned as *StoreError.
func (r *Resolver) Resolve(ctx context.Context, title string, visit VisitFunc) (Resolution, error) {
	var res Resolution
	current := title

	for depth := 0; ; {
		entry, found, err := r.lookup(ctx, &res, current)
		if err != nil {
			return res, err
		}
		if !found {
			alt := current
			if r.normalize != nil {
				alt = r.normalize(current)
			}
			if alt == current {
				res.Reason = ReasonNotFound
				return res, nil
			}
			entry, found, err = r.lookup(ctx, &res, alt)
			if err != nil {
				return res, err
			}
			if !found {
				res.Reason = ReasonNotFound
				return res, nil
			}
			current = alt
			if visit != nil && !visit(current, HopNormalized) {
				res.Reason = ReasonStopped
				return res, nil
			}
		}

		if !entry.Redirect {
			res.Title = current
			res.Entry = entry
			return res, nil
		}
		if entry.Filtered() {
			res.Reason = ReasonFilteredNamespace
			return res, nil
		}
		if depth+1 >= r.maxDepth {
			r.logger.Debug("redirect depth exceeded", "title", title, "at", current, "max_depth", r.maxDepth)
			res.Reason = ReasonDepthExceeded
			return res, nil
		}
		depth++
		current = entry.Target
		if visit != nil && !visit(current, HopRedirect) {
			res.Reason = ReasonStopped
			return res, nil
		}
	}
}

func (r *Resolver) lookup(ctx context.Context, res *Resolution, title string) (table.Entry, bool, error) {
	res.Lookups++
	entry, found, err := r.store.Lookup(ctx, title)
	if err != nil {
		return table.Entry{}, false, &StoreError{Title: title, Err: err}
	}
	return entry, found, nil
}
