package cli

import (
	"github.com/spf13/cobra"

	"docdrift/internal/service"
)

func newSearchCommand(st *state) *cobra.Command {
	var (
		limit  int
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Semantic search over indexed documentation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, app, err := st.open(cmd)
			if err != nil {
				return err
			}
			defer closeApp(ctx, app)

			resp, err := app.Service.Search(ctx, service.SearchRequest{
				Query:      args[0],
				Collection: app.Config.Collection,
				Limit:      limit,
			})
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(cmd, resp)
			}
			printSearchResults(cmd, resp)
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 5, "maximum number of results")
	cmd.Flags().BoolVar(&asJSON, "json", false, "output results as JSON")
	return cmd
}

func printSearchResults(cmd *cobra.Command, resp *service.SearchResponse) {
	if len(resp.Results) == 0 {
		cmd.Println("No results found.")
		return
	}
	for i, hit := range resp.Results {
		cmd.Printf("[%d] %s (%.2f)\n", i+1, hit.SourcePath, hit.Score)
		if hit.HeadingPath != "" {
			cmd.Printf("    %s\n", hit.HeadingPath)
		}
		cmd.Printf("    %s\n\n", hit.Text)
	}
}
