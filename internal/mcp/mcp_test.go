package mcp

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sanonone/wikihop/pkg/render"
	"github.com/sanonone/wikihop/pkg/search"
	"github.com/sanonone/wikihop/pkg/table"
)

const baseURL = "https://en.wikipedia.org/wiki/"

func connect(t *testing.T) *mcp.ClientSession {
	t.Helper()
	store := table.NewMemory()
	store.Set("Bedford", table.Page("Paul Singer (businessman)", "X"))
	store.Set("Bedfordshire", table.RedirectTo("Bedford"))
	store.Set("Paul Singer (businessman)", table.Page("Elliott Management"))
	store.Set("Elliott Management", table.Page())

	eng, err := search.New(store, search.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	require.NoError(t, err)

	ctx := context.Background()
	clientTransport, serverTransport := mcp.NewInMemoryTransports()
	ss, err := NewMCPServer(eng, render.New(baseURL, false)).Connect(ctx, serverTransport, nil)
	require.NoError(t, err)

	client := mcp.NewClient(&mcp.Implementation{Name: "wikihop-test", Version: "v0.0.1"}, nil)
	cs, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() {
		cs.Close()
		ss.Wait()
	})
	return cs
}

func callTool(t *testing.T, cs *mcp.ClientSession, name string, args map[string]any, out any) *mcp.CallToolResult {
	t.Helper()
	res, err := cs.CallTool(context.Background(), &mcp.CallToolParams{Name: name, Arguments: args})
	require.NoError(t, err)
	if out != nil && !res.IsError {
		data, err := json.Marshal(res.StructuredContent)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(data, out))
	}
	return res
}

func TestListTools(t *testing.T) {
	cs := connect(t)
	res, err := cs.ListTools(context.Background(), nil)
	require.NoError(t, err)

	var names []string
	for _, tool := range res.Tools {
		names = append(names, tool.Name)
	}
	assert.ElementsMatch(t, []string{"find_path", "list_titles", "resolve_title"}, names)
}

func TestFindPathTool(t *testing.T) {
	cs := connect(t)

	var out FindPathResult
	res := callTool(t, cs, "find_path", map[string]any{"from": "Bedfordshire", "to": "Elliott Management"}, &out)
	require.False(t, res.IsError)

	assert.Equal(t, "found", out.Outcome)
	assert.Equal(t, 2, out.Hops)
	require.Len(t, out.Path, 4)
	assert.Equal(t, Step{Title: "Bedford", Kind: "redirect", URL: baseURL + "Bedford"}, out.Path[1])
	assert.Contains(t, out.PathDescription, baseURL+"Elliott%20Management")
}

func TestFindPathToolBudget(t *testing.T) {
	cs := connect(t)

	var out FindPathResult
	res := callTool(t, cs, "find_path", map[string]any{"from": "Bedford", "to": "Elliott Management", "max_explored": 1}, &out)
	require.False(t, res.IsError)
	assert.Equal(t, "budget_exceeded", out.Outcome)
	assert.Empty(t, out.Path)
}

func TestFindPathToolUnknownTitle(t *testing.T) {
	cs := connect(t)
	res := callTool(t, cs, "find_path", map[string]any{"from": "Nowhere", "to": "Bedford"}, nil)
	assert.True(t, res.IsError)
}

func TestListTitlesTool(t *testing.T) {
	cs := connect(t)

	var out ListTitlesResult
	res := callTool(t, cs, "list_titles", map[string]any{"prefix": "Bed"}, &out)
	require.False(t, res.IsError)
	assert.Equal(t, []string{"Bedford", "Bedfordshire"}, out.Titles)

	res = callTool(t, cs, "list_titles", map[string]any{"prefix": "Bed", "limit": 1}, &out)
	require.False(t, res.IsError)
	assert.Equal(t, []string{"Bedford"}, out.Titles)
}

func TestResolveTitleTool(t *testing.T) {
	cs := connect(t)

	var out ResolveTitleResult
	res := callTool(t, cs, "resolve_title", map[string]any{"title": "bedfordshire"}, &out)
	require.False(t, res.IsError)
	assert.Equal(t, "Bedfordshire", out.Title)
	assert.Equal(t, "Bedford", out.Page)
	assert.Equal(t, 2, out.Links)
	require.Len(t, out.Chain, 1)
	assert.Equal(t, "redirect", out.Chain[0].Kind)
}
