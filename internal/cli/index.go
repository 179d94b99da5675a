package cli

import (
	"time"

	"github.com/spf13/cobra"

	"docdrift/internal/indexer"
	"docdrift/internal/service"
)

func newIndexCommand(st *state) *cobra.Command {
	var (
		watch    bool
		debounce time.Duration
	)

	cmd := &cobra.Command{
		Use:   "index <folder>",
		Short: "Index a documentation folder",
		Long: `Chunks every documentation file under the folder, embeds the chunks and
upserts them into the collection. Re-indexing a file replaces its chunks.

With --watch the folder is indexed once and then re-indexed file by file as
files are created, modified or removed, until interrupted.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, app, err := st.open(cmd)
			if err != nil {
				return err
			}
			defer closeApp(ctx, app)

			folder := args[0]
			report, err := app.Service.Index(ctx, service.IndexRequest{Folder: folder, Collection: app.Config.Collection})
			if err != nil {
				return err
			}
			printIndexReport(cmd, report)

			if !watch {
				return nil
			}
			w, err := indexer.NewWatcher(app.Pipeline, folder, report.Collection, debounce)
			if err != nil {
				return err
			}
			cmd.Printf("Watching %s for changes (Ctrl+C to stop)\n", folder)
			return w.Run(ctx)
		},
	}

	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "keep running and re-index files as they change")
	cmd.Flags().DurationVar(&debounce, "debounce", 400*time.Millisecond, "quiet period before a changed file is re-indexed")
	return cmd
}

func printIndexReport(cmd *cobra.Command, r *indexer.IndexReport) {
	cmd.Printf("Indexed %d documents into %q (%d chunks) in %s\n",
		r.DocumentsProcessed, r.Collection, r.ChunksWritten, r.Duration.Round(time.Millisecond))
	if r.ChunkStats.Max > 0 {
		cmd.Printf("Chunk tokens: min %d, avg %.0f, p95 %d, max %d\n", r.ChunkStats.Min, r.ChunkStats.Mean, r.ChunkStats.P95, r.ChunkStats.Max)
	}
	for _, e := range r.Errors {
		cmd.Printf("  error: %s (%s): %s\n", e.Path, e.Op, e.Message)
	}
}
