package cli

import (
	"github.com/spf13/cobra"

	"docdrift/internal/mcp"
)

func newMCPCommand(st *state) *cobra.Command {
	var httpAddr string

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start the MCP server",
		Long: `Start the Model Context Protocol server so AI assistants can index
documentation, search it and check repositories for stale docs.

By default the server speaks JSON-RPC over stdio. Use --http to serve the
streamable HTTP transport instead.

Examples:
  # Stdio mode (for desktop assistants)
  docdrift mcp

  # HTTP mode (for MCP Inspector, remote access)
  docdrift mcp --http :8090`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, app, err := st.open(cmd)
			if err != nil {
				return err
			}
			defer closeApp(ctx, app)

			server, err := mcp.NewServer(app.Service, app.Logger)
			if err != nil {
				return err
			}
			if httpAddr != "" {
				return server.RunHTTP(ctx, httpAddr)
			}
			return server.Run(ctx)
		},
	}

	cmd.Flags().StringVar(&httpAddr, "http", "", "serve streamable HTTP on this address instead of stdio")
	return cmd
}
