package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/gridquery/gridquery/gridquery"
	"github.com/gridquery/gridquery/gridquery/record"
	"github.com/gridquery/gridquery/gridquery/storage"
	"github.com/gridquery/gridquery/internal/cliopt"
	"github.com/gridquery/gridquery/internal/cliutil"
	"github.com/gridquery/gridquery/internal/config"
)

func newQueryCommand(g *cliopt.GlobalOptions) *cobra.Command {
	var table, requestPath string
	var keyColumns []string
	var explain bool
	cmd := &cobra.Command{
		Use:   "query",
		Short: "Run one grid request against a table",
		Example: `  gridquery query --table people --request req.json
  echo '{"search":{"value":"30"},"columns":[{"data":"name","searchable":true}]}' | gridquery query --table people`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if table == "" {
				return errMissingTable
			}
			req, err := readRequest(cmd.InOrStdin(), requestPath)
			if err != nil {
				return err
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

			gc := config.GridConfig{Name: table, Table: table, KeyColumns: keyColumns}
			if !cmd.Flags().Changed("key") {
				gc.KeyColumns = nil
			}
			tbl, err := backend.OpenTable(ctx, gc)
			if err != nil {
				return err
			}
			opts := []gridquery.Option{gridquery.WithColumnSearch(cfg.ColumnSearchPolicy())}
			out := cmd.OutOrStdout()
			format := cliutil.ParseOutputFormat(g.Format)

			if explain {
				return printExplain(out, format, tbl, req, opts)
			}

			grid, err := gridquery.NewGrid(table, tbl, opts...)
			if err != nil {
				return err
			}
			start := time.Now()
			resp, err := grid.Execute(ctx, req)
			if err != nil {
				return err
			}
			if format == cliutil.FormatJSON {
				cliutil.PrintJSON(out, resp)
				return nil
			}
			return printResponse(out, tbl.RecordType(), req, resp, time.Since(start))
		},
	}
	cmd.Flags().StringVarP(&table, "table", "t", "", "table to query (required)")
	cmd.Flags().StringVarP(&requestPath, "request", "r", "-", "request JSON file, - for stdin")
	cmd.Flags().StringSliceVar(&keyColumns, "key", nil, "tie-breaking key columns (default: backend row key)")
	cmd.Flags().BoolVar(&explain, "explain", false, "print the translated operations and SQL instead of running")
	return cmd
}

func readRequest(stdin io.Reader, path string) (*gridquery.Request, error) {
	var data []byte
	var err error
	if path == "" || path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read request: %w", err)
	}
	var req gridquery.Request
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, gridquery.Wrap(gridquery.ErrInvalidArgument, "decode request", err)
	}
	return &req, nil
}

type explainOutput struct {
	ExplainSteps []string `json:"explainSteps"`
	SQL          string   `json:"sql"`
	Args         []any    `json:"args"`
	CountSQL     string   `json:"countSql"`
}

func printExplain(w io.Writer, format cliutil.OutputFormat, tbl *storage.Table[record.Row], req *gridquery.Request, opts []gridquery.Option) error {
	plan, err := gridquery.Explain(tbl, req, opts...)
	if err != nil {
		return err
	}
	unpaginated, paginated, err := gridquery.Translate(tbl, req, opts...)
	if err != nil {
		return err
	}
	q, args, err := paginated.(*storage.Table[record.Row]).SQL()
	if err != nil {
		return err
	}
	countQ, _, err := unpaginated.(*storage.Table[record.Row]).CountSQL()
	if err != nil {
		return err
	}
	out := explainOutput{ExplainSteps: plan.ExplainSteps, SQL: q, Args: args, CountSQL: countQ}
	if format == cliutil.FormatJSON {
		cliutil.PrintJSON(w, out)
		return nil
	}
	fmt.Fprintln(w, "=== Query Plan ===")
	for _, step := range out.ExplainSteps {
		fmt.Fprintf(w, "  %s\n", step)
	}
	fmt.Fprintln(w, "\n=== SQL ===")
	fmt.Fprintln(w, out.SQL)
	if len(out.Args) > 0 {
		fmt.Fprintf(w, "args: %v\n", out.Args)
	}
	fmt.Fprintln(w, "\n=== Count SQL ===")
	fmt.Fprintln(w, out.CountSQL)
	return nil
}

func printResponse(w io.Writer, typ *record.Type, req *gridquery.Request, resp *gridquery.Response, dur time.Duration) error {
	var headers []string
	for _, c := range req.Columns {
		if c.Bound() {
			headers = append(headers, c.Data)
		}
	}
	if len(headers) == 0 {
		for _, f := range typ.Fields() {
			headers = append(headers, f.Name)
		}
	}

	rows := resp.Data.([]record.Row)
	cells := make([][]string, 0, len(rows))
	for _, row := range rows {
		line := make([]string, len(headers))
		for i, h := range headers {
			if acc, ok := record.Resolve(typ, h); ok {
				if v, ok := acc.Get(row); ok {
					line[i] = cliutil.Cell(v)
				}
			}
		}
		cells = append(cells, line)
	}
	if err := cliutil.PrintTable(w, headers, cells); err != nil {
		return err
	}
	fmt.Fprintf(w, "\n--- %d of %d filtered, %d total in %dms", len(rows), resp.RecordsFiltered, resp.RecordsTotal, dur.Milliseconds())
	if resp.ContinuationToken != "" {
		fmt.Fprintf(w, " (next: %s)", resp.ContinuationToken)
	}
	fmt.Fprintln(w, " ---")
	return nil
}
