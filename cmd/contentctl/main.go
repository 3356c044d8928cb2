// Command contentctl is the operator CLI for the authoring store: it normalizes
// provider payloads offline and inspects, restores, and reviews stored content.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/yungbote/neurobridge-authoring/internal/app"
)

var version = "0.1.0-dev"

type globalFlags struct {
	sqlite  string
	logMode string
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}
	root := &cobra.Command{
		Use:           "contentctl",
		Short:         "Normalize AI payloads and manage versioned authored content",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&g.sqlite, "sqlite", "", "Use a local SQLite database file instead of Postgres")
	root.PersistentFlags().StringVar(&g.logMode, "log-mode", "nop", "Logger mode (development, production, nop)")

	root.AddCommand(
		newUnwrapCmd(),
		newResolveCmd(),
		newVersionsCmd(g),
		newReviewCmd(g),
		newServeCmd(g),
	)
	return root
}

// withApp builds the application for one command and closes it afterwards.
func withApp(ctx context.Context, g *globalFlags, offline bool, fn func(a *app.App) error) error {
	a, err := app.New(ctx, app.Options{LogMode: g.logMode, SQLitePath: g.sqlite, Offline: offline})
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
