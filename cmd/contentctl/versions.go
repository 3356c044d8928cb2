package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/yungbote/neurobridge-authoring/internal/app"
)

func newVersionsCmd(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "versions",
		Short: "List or restore content versions",
	}
	cmd.AddCommand(newVersionsListCmd(g), newVersionsRestoreCmd(g))
	return cmd
}

func newVersionsListCmd(g *globalFlags) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "list <entity-id>",
		Short: "List every version of an entity, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid entity id: %w", err)
			}
			return withApp(cmd.Context(), g, true, func(a *app.App) error {
				list, err := a.Services.Authoring.ListVersions(cmd.Context(), id)
				if err != nil {
					return err
				}
				if asJSON {
					return printJSON(cmd.OutOrStdout(), list)
				}
				if len(list) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No versions found.")
					return nil
				}
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "VERSION\tCURRENT\tCREATED\tMODEL\tREASON\tID")
				for _, v := range list {
					current := ""
					if v.IsCurrent {
						current = "*"
					}
					fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n",
						v.VersionNumber, current, v.CreatedAt.Format("2006-01-02 15:04"), v.AIModel, v.ChangeReason, v.ID)
				}
				return w.Flush()
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print versions as JSON")
	return cmd
}

func newVersionsRestoreCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "restore <entity-id> <version-id>",
		Short: "Make a version current and copy it back into the draft",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid entity id: %w", err)
			}
			versionID, err := uuid.Parse(args[1])
			if err != nil {
				return fmt.Errorf("invalid version id: %w", err)
			}
			return withApp(cmd.Context(), g, true, func(a *app.App) error {
				res, err := a.Services.Authoring.Restore(cmd.Context(), id, versionID)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Restored version %d of %s\n", res.Version.VersionNumber, id)
				if res.Integrity.Shrunk {
					fmt.Fprintln(cmd.ErrOrStderr(), "warning: restore shrank at least one text field")
				}
				return nil
			})
		},
	}
}
