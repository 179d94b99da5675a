package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"docdrift/internal/service"
)

func newCheckCommand(st *state) *cobra.Command {
	var (
		commitRange string
		sinceDays   int
		asJSON      bool
	)

	cmd := &cobra.Command{
		Use:   "check <repo>",
		Short: "Report documentation affected by recent code changes",
		Long: `Extracts the diff of a commit range (or the last N days) from a git
repository, keeps the significant changes, and matches each one against the
indexed documentation. Prints the documentation likely to be stale and the
changes that have no documentation at all.`,
		Example: `  docdrift check . --range v1.2.0..HEAD
  docdrift check ../service --since-days 14 --top-k 3 --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, app, err := st.open(cmd)
			if err != nil {
				return err
			}
			defer closeApp(ctx, app)

			report, err := app.Service.Check(ctx, service.CheckRequest{
				RepoPath:    args[0],
				CommitRange: commitRange,
				SinceDays:   sinceDays,
				Collection:  app.Config.Collection,
				TopK:        app.Config.TopK,
			})
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(cmd, report)
			}
			printCheckReport(cmd, report)
			return nil
		},
	}

	cmd.Flags().StringVarP(&commitRange, "range", "r", "", "commit range such as v1.0..HEAD")
	cmd.Flags().IntVar(&sinceDays, "since-days", 0, "look back this many days (default from config)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the full report as JSON")
	cmd.MarkFlagsMutuallyExclusive("range", "since-days")
	return cmd
}

func printCheckReport(cmd *cobra.Command, r *service.CheckReport) {
	cmd.Printf("Checked %s (%s) against %q\n", r.RepoPath, r.Range, r.Collection)

	if len(r.AffectedDocs) > 0 {
		cmd.Println()
		cmd.Println("Documentation likely affected:")
		for _, d := range r.AffectedDocs {
			marker := "      "
			if d.Stale {
				marker = "STALE "
			}
			cmd.Printf("  %s%s (%.2f)\n", marker, d.Path, d.Score)
			for _, c := range d.Changes {
				cmd.Printf("          %s\n", c)
			}
		}
	}

	if len(r.Gaps) > 0 {
		cmd.Println()
		cmd.Println("Changes without documentation:")
		for _, g := range r.Gaps {
			cmd.Printf("  %-18s %.2f  %s\n", g.Category, g.Significance, displayPath(g.Path))
		}
	}

	if len(r.Results) > 0 {
		cmd.Println()
		cmd.Println("Recommendations:")
		for i := range r.Results {
			cmd.Printf("  %d. %s\n", i+1, r.Results[i].Recommendation)
		}
	}

	cmd.Println()
	cmd.Println(r.Summary)
}

func displayPath(p string) string {
	if p == "" {
		return "(unknown file)"
	}
	return p
}

func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	cmd.Println(string(data))
	return nil
}
