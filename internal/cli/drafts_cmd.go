package cli

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/samirrijal/planpresso/internal/core/editor"
	"github.com/spf13/cobra"
)

func newDraftsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "drafts",
		Short: "Manage locally stored drafts",
	}

	cmd.PersistentFlags().StringVar(&app.DraftsPath, "db", app.DraftsPath, "Path to the drafts database")

	cmd.AddCommand(
		newDraftsListCmd(app),
		newDraftsShowCmd(app),
		newDraftsClearCmd(app),
		newDraftsPurgeCmd(app),
	)

	return cmd
}

func newDraftsListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List live drafts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, db, err := app.openDrafts()
			if err != nil {
				return err
			}
			defer db.Close()

			drafts, err := store.List(context.Background())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(drafts) == 0 {
				fmt.Fprintln(out, styleDim.Render("No drafts."))
				return nil
			}

			rows := make([][]string, 0, len(drafts))
			for _, d := range drafts {
				expires := "never"
				if d.ExpiresAt != nil {
					expires = d.ExpiresAt.Local().Format(time.DateTime)
				}
				rows = append(rows, []string{
					d.Key,
					d.Draft.Data.Name,
					strconv.Itoa(len(d.Draft.Data.Stops)),
					d.Draft.Timestamp.Local().Format(time.DateTime),
					expires,
				})
			}
			fmt.Fprint(out, renderTable([]string{"Key", "Name", "Stops", "Saved", "Expires"}, rows))
			return nil
		},
	}
}

func newDraftsShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show <key>",
		Short: "Print a draft as plan text",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, db, err := app.openDrafts()
			if err != nil {
				return err
			}
			defer db.Close()

			d, err := store.Load(context.Background(), args[0])
			if err != nil {
				return err
			}
			if d == nil {
				return fmt.Errorf("no draft under %q", args[0])
			}
			fmt.Fprintln(cmd.OutOrStdout(), editor.ToText(d.Data))
			return nil
		},
	}
}

func newDraftsClearCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "clear <key>",
		Short: "Delete a draft",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, db, err := app.openDrafts()
			if err != nil {
				return err
			}
			defer db.Close()

			if err := store.Clear(context.Background(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cleared draft %s\n", args[0])
			return nil
		},
	}
}

func newDraftsPurgeCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "purge",
		Short: "Delete expired drafts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, db, err := app.openDrafts()
			if err != nil {
				return err
			}
			defer db.Close()

			n, err := store.Purge(context.Background())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Purged %d expired drafts\n", n)
			return nil
		},
	}
}
