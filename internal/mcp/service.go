package mcp

import (
	"context"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/sanonone/wikihop/pkg/render"
	"github.com/sanonone/wikihop/pkg/search"
	"github.com/sanonone/wikihop/pkg/table"
)

const (
	defaultTitlesLimit = 20
	maxTitlesLimit     = 1000
)

type Service struct {
	engine   *search.Engine
	renderer *render.Renderer
}

func NewService(eng *search.Engine, renderer *render.Renderer) *Service {
	return &Service{
		engine:   eng,
		renderer: renderer,
	}
}

// --- Tool Handlers ---

func (s *Service) FindPath(ctx context.Context, req *mcp.CallToolRequest, args FindPathArgs) (*mcp.CallToolResult, FindPathResult, error) {
	from, err := search.Canonicalize(ctx, s.engine.Store(), s.engine.Normalizer(), args.From)
	if err != nil {
		return nil, FindPathResult{}, fmt.Errorf("from: %w", err)
	}
	to, err := search.Canonicalize(ctx, s.engine.Store(), s.engine.Normalizer(), args.To)
	if err != nil {
		return nil, FindPathResult{}, fmt.Errorf("to: %w", err)
	}

	var opts []search.Option
	if args.MaxExplored > 0 {
		opts = append(opts, search.WithMaxExplored(args.MaxExplored))
	}
	if args.TimeoutSeconds > 0 {
		opts = append(opts, search.WithTimeout(time.Duration(args.TimeoutSeconds*float64(time.Second))))
	}

	res, err := s.engine.Search(ctx, from, to, opts...)
	if err != nil {
		return nil, FindPathResult{}, err
	}

	out := FindPathResult{
		Outcome:         res.Outcome.String(),
		Hops:            res.DirectHops(),
		Path:            s.steps(res.Path),
		PathDescription: s.renderer.Summary(res),
		Explored:        res.Stats.Explored,
	}
	if res.Outcome == search.Found {
		out.PathDescription += "\n" + s.renderer.Path(res.Path)
	}
	return nil, out, nil
}

func (s *Service) ListTitles(ctx context.Context, req *mcp.CallToolRequest, args ListTitlesArgs) (*mcp.CallToolResult, ListTitlesResult, error) {
	prefixer, ok := s.engine.Store().(table.Prefixer)
	if !ok {
		return nil, ListTitlesResult{}, fmt.Errorf("this table backend cannot list titles")
	}
	limit := args.Limit
	if limit <= 0 {
		limit = defaultTitlesLimit
	}
	limit = min(limit, maxTitlesLimit)

	titles, err := prefixer.TitlesWithPrefix(ctx, args.Prefix, limit)
	if err != nil {
		return nil, ListTitlesResult{}, err
	}
	if titles == nil {
		titles = []string{}
	}
	return nil, ListTitlesResult{Titles: titles}, nil
}

func (s *Service) ResolveTitle(ctx context.Context, req *mcp.CallToolRequest, args ResolveTitleArgs) (*mcp.CallToolResult, ResolveTitleResult, error) {
	title, err := search.Canonicalize(ctx, s.engine.Store(), s.engine.Normalizer(), args.Title)
	if err != nil {
		return nil, ResolveTitleResult{}, err
	}

	out := ResolveTitleResult{Title: title}
	res, err := s.engine.Resolver().Resolve(ctx, title, func(t string, kind search.HopKind) bool {
		out.Chain = append(out.Chain, s.step(search.Hop{Title: t, Kind: kind}))
		return true
	})
	if err != nil {
		return nil, ResolveTitleResult{}, err
	}
	if !res.Resolved() {
		out.Reason = res.Reason.String()
		return nil, out, nil
	}
	out.Page = res.Title
	out.Links = len(res.Entry.Links)
	return nil, out, nil
}

func (s *Service) steps(path []search.Hop) []Step {
	if len(path) == 0 {
		return nil
	}
	out := make([]Step, len(path))
	for i, hop := range path {
		out[i] = s.step(hop)
	}
	return out
}

func (s *Service) step(hop search.Hop) Step {
	return Step{Title: hop.Title, Kind: hop.Kind.String(), URL: s.renderer.URL(hop.Title)}
}
