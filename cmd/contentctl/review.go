package main

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/yungbote/neurobridge-authoring/internal/app"
	types "github.com/yungbote/neurobridge-authoring/internal/domain/authoring"
	"github.com/yungbote/neurobridge-authoring/internal/modules/authoring/modes"
)

const maxConcurrentReviews = 4

func newReviewCmd(g *globalFlags) *cobra.Command {
	var modeNames []string
	cmd := &cobra.Command{
		Use:   "review <entity-id>",
		Short: "Run the critic over an entity for one or more modes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid entity id: %w", err)
			}
			ms := make([]modes.Mode, 0, len(modeNames))
			for _, n := range modeNames {
				m, err := modes.Parse(n)
				if err != nil {
					return err
				}
				ms = append(ms, m)
			}
			return withApp(cmd.Context(), g, false, func(a *app.App) error {
				var (
					mu      sync.Mutex
					reports = make(map[modes.Mode]*types.ReviewReport, len(ms))
				)
				eg, ctx := errgroup.WithContext(cmd.Context())
				eg.SetLimit(maxConcurrentReviews)
				for _, m := range ms {
					m := m
					eg.Go(func() error {
						rep, err := a.Services.Authoring.Review(ctx, id, m)
						if err != nil {
							return fmt.Errorf("review %s: %w", m, err)
						}
						mu.Lock()
						reports[m] = rep
						mu.Unlock()
						return nil
					})
				}
				if err := eg.Wait(); err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), reports)
			})
		},
	}
	cmd.Flags().StringSliceVarP(&modeNames, "mode", "m", []string{string(modes.FullText)}, "Modes whose output to review")
	return cmd
}
