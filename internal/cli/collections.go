package cli

import (
	"github.com/spf13/cobra"
)

func newCollectionsCommand(st *state) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "collections",
		Short: "Manage vector index collections",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List collections and their sizes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, app, err := st.open(cmd)
			if err != nil {
				return err
			}
			defer closeApp(ctx, app)

			infos, err := app.Service.ListCollections(ctx)
			if err != nil {
				return err
			}
			if len(infos) == 0 {
				cmd.Println("No collections.")
				return nil
			}
			for _, info := range infos {
				cmd.Printf("%-30s %8d points  dim %d\n", info.Name, info.PointsCount, info.VectorSize)
			}
			return nil
		},
	}

	del := &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a collection and everything indexed in it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, app, err := st.open(cmd)
			if err != nil {
				return err
			}
			defer closeApp(ctx, app)

			if err := app.Service.DeleteCollection(ctx, args[0]); err != nil {
				return err
			}
			cmd.Printf("Deleted collection %q\n", args[0])
			return nil
		},
	}

	cmd.AddCommand(list, del)
	return cmd
}
