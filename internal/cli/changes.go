package cli

import (
	"github.com/spf13/cobra"

	"docdrift/internal/service"
)

func newChangesCommand(st *state) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "changes",
		Short: "Work with indexed code changes",
	}

	var (
		commitRange string
		sinceDays   int
		target      string
	)
	index := &cobra.Command{
		Use:   "index <repo>",
		Short: "Index significant changes from a git repository",
		Long: `Analyzes the diff of a commit range (or the last N days) and stores each
significant change as a searchable record in the changes collection.
Re-running over the same range updates records in place.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, app, err := st.open(cmd)
			if err != nil {
				return err
			}
			defer closeApp(ctx, app)

			report, err := app.Service.IndexChanges(ctx, service.ChangesRequest{
				RepoPath:    args[0],
				CommitRange: commitRange,
				SinceDays:   sinceDays,
				Collection:  target,
			})
			if err != nil {
				return err
			}
			cmd.Println(report.Summary)
			return nil
		},
	}
	index.Flags().StringVarP(&commitRange, "range", "r", "", "commit range such as v1.0..HEAD")
	index.Flags().IntVar(&sinceDays, "since-days", 0, "look back this many days (default from config)")
	index.Flags().StringVar(&target, "into", "", "collection for change records (default changes_collection)")
	index.MarkFlagsMutuallyExclusive("range", "since-days")

	cmd.AddCommand(index)
	return cmd
}
