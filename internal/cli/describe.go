package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/gridquery/gridquery/internal/cliopt"
	"github.com/gridquery/gridquery/internal/cliutil"
	"github.com/gridquery/gridquery/internal/config"
	"github.com/gridquery/gridquery/internal/server"
)

func newDescribeCommand(g *cliopt.GlobalOptions) *cobra.Command {
	var table string
	cmd := &cobra.Command{
		Use:   "describe",
		Short: "List the searchable and orderable columns of a table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if table == "" {
				return errMissingTable
			}
			cfg, err := ResolveConfig(*g)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			backend, err := OpenBackend(ctx, cfg)
			if err != nil {
				return err
			}
			defer backend.Close()

			tbl, err := backend.OpenTable(ctx, config.GridConfig{Name: table})
			if err != nil {
				return err
			}
			cols := server.DescribeColumns(tbl.RecordType())
			out := cmd.OutOrStdout()
			if cliutil.ParseOutputFormat(g.Format) == cliutil.FormatJSON {
				cliutil.PrintJSON(out, cols)
				return nil
			}
			rows := make([][]string, 0, len(cols))
			for _, c := range cols {
				rows = append(rows, []string{c.Data, c.Kind, strings.Join(c.Values, ",")})
			}
			return cliutil.PrintTable(out, []string{"COLUMN", "KIND", "VALUES"}, rows)
		},
	}
	cmd.Flags().StringVarP(&table, "table", "t", "", "table to describe (required)")
	return cmd
}
