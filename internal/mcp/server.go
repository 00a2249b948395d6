// Package mcp exposes path searches as Model Context Protocol tools.
package mcp

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/sanonone/wikihop/pkg/render"
	"github.com/sanonone/wikihop/pkg/search"
)

// Version is reported to MCP clients during initialization.
const Version = "0.1.0"

func NewMCPServer(eng *search.Engine, renderer *render.Renderer) *mcp.Server {
	service := NewService(eng, renderer)

	s := mcp.NewServer(&mcp.Implementation{
		Name:    "wikihop",
		Version: Version,
	}, nil)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "find_path",
		Description: "Find the shortest chain of links between two encyclopedia pages. Redirects are followed for free.",
	}, service.FindPath)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "list_titles",
		Description: "List stored page titles starting with a prefix, to find the exact spelling of a page.",
	}, service.ListTitles)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "resolve_title",
		Description: "Show which page a title leads to after following its redirects.",
	}, service.ResolveTitle)

	return s
}
