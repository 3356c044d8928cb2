package main

import (
	"github.com/spf13/cobra"

	"github.com/yungbote/neurobridge-authoring/internal/app"
)

func newServeCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), g, false, func(a *app.App) error {
				a.Start()
				return a.Run(cmd.Context())
			})
		},
	}
}
