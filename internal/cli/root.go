package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gridquery/gridquery/internal/cliopt"
	"github.com/gridquery/gridquery/internal/gologger"
)

var logger = gologger.NewLogger()

// NewRootCommand returns the gridquery command tree
func NewRootCommand() *cobra.Command {
	g := cliopt.DefaultGlobalOptions()
	root := &cobra.Command{
		Use:   "gridquery",
		Short: "Serve and run data grid requests over SQL tables",
		Long: `gridquery translates data grid requests (global and per-column search,
multi-column ordering, paging) into queries over SQLite or PostgreSQL tables.

Configuration is read from --config, then GRIDQUERY_* environment variables
(GRIDQUERY_HTTP_PORT sets http.port), then the global flags.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cliopt.BindGlobalFlags(root.PersistentFlags(), &g)

	root.AddCommand(
		newServeCommand(&g),
		newQueryCommand(&g),
		newDescribeCommand(&g),
	)
	return root
}

// Execute runs the CLI and returns an exit code. Cancelling ctx stops
// long-running commands.
func Execute(ctx context.Context, argv []string) int {
	root := NewRootCommand()
	root.SetArgs(argv)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

var errMissingTable = errors.New("missing --table")
