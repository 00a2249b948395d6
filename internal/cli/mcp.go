package cli

import (
	"errors"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"github.com/sanonone/wikihop/internal/mcp"
	"github.com/sanonone/wikihop/pkg/render"
)

func (a *app) mcpCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve path searches as MCP tools over stdio",
		Long: `mcp speaks the Model Context Protocol on stdin and stdout so that an
LLM client can call find_path, list_titles and resolve_title. Logs go to
stderr.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			store, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			engine, err := a.newEngine(store)
			if err != nil {
				return err
			}
			srv := mcp.NewMCPServer(engine, render.New(a.cfg.Render.BaseURL, false))

			a.logger.Info("mcp server listening on stdio")
			err = srv.Run(ctx, &sdkmcp.StdioTransport{})
			if err != nil && !errors.Is(err, ctx.Err()) {
				return err
			}
			return nil
		},
	}
}
