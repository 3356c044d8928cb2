package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/yungbote/neurobridge-authoring/internal/modules/authoring/modes"
	"github.com/yungbote/neurobridge-authoring/internal/modules/authoring/resolve"
	"github.com/yungbote/neurobridge-authoring/internal/modules/authoring/unwrap"
)

func newUnwrapCmd() *cobra.Command {
	var keys []string
	cmd := &cobra.Command{
		Use:   "unwrap",
		Short: "Recover the text payload from stdin",
		Long:  "Reads a raw provider payload from stdin, prints the recovered text, and reports the strategy on stderr.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := io.ReadAll(cmd.InOrStdin())
			if err != nil {
				return fmt.Errorf("reading stdin: %w", err)
			}
			out := unwrap.UnwrapKeys(string(b), keys)
			fmt.Fprintln(cmd.OutOrStdout(), out.Text)
			degraded := ""
			if out.Degraded {
				degraded = " (degraded)"
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "strategy: %s%s\n", out.Strategy, degraded)
			return nil
		},
	}
	cmd.Flags().StringSliceVarP(&keys, "key", "k", nil, "Payload keys to try before the defaults")
	return cmd
}

func newResolveCmd() *cobra.Command {
	var (
		modeName string
		provider string
	)
	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Normalize a raw provider response from stdin into a generation result",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			mode, err := modes.Parse(modeName)
			if err != nil {
				return err
			}
			spec, err := modes.Lookup(mode)
			if err != nil {
				return err
			}
			b, err := io.ReadAll(cmd.InOrStdin())
			if err != nil {
				return fmt.Errorf("reading stdin: %w", err)
			}
			res, err := resolve.New(provider).Resolve(b, spec)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), res)
		},
	}
	cmd.Flags().StringVarP(&modeName, "mode", "m", string(modes.FullText), "Generation mode")
	cmd.Flags().StringVar(&provider, "provider", "", "Provider assumed when the payload does not name one")
	return cmd
}
