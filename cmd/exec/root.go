package exec

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/ValentinKolb/dQuery/cmd/util"
	"github.com/ValentinKolb/dQuery/lib/db"
	"github.com/ValentinKolb/dQuery/lib/source"
	"github.com/VictoriaMetrics/metrics"
	"github.com/lni/dragonboat/v4/logger"
	gometrics "github.com/rcrowley/go-metrics"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

var (
	log = logger.GetLogger("cmd")

	// ExecCmd runs a query against a database and prints the loaded rows
	ExecCmd = &cobra.Command{
		Use:   "exec [query]",
		Short: "Run a query against a database and print the rows",
		Long: `Run a query against a database, load the result into the tables of the
schema file and print the rows of the base table. Flags can be set via
environment variables in the format DQ_<flag> (e.g. DQ_DSN=file:app.db)`,
		Args:    cobra.MinimumNArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error { return util.BindCommandFlags(cmd) },
		RunE:    run,
	}
)

func init() {
	util.SetupSchemaFlags(ExecCmd)
	util.SetupConnectionFlags(ExecCmd)

	key := "output"
	ExecCmd.Flags().String(key, "table", util.WrapString("Output format (table, json, yaml)"))

	key = "verify"
	ExecCmd.Flags().Bool(key, false, util.WrapString("Evaluate the query locally on the loaded rows and report rows the database and the local evaluation disagree on"))
}

func run(cmd *cobra.Command, args []string) error {
	config := util.GetConfig()
	schema, err := util.LoadSchema(config)
	if err != nil {
		return err
	}
	q, err := util.ParseQuery(schema, strings.Join(args, " "))
	if err != nil {
		return err
	}
	d, err := config.ResolveDialect()
	if err != nil {
		return err
	}

	conn, err := util.OpenDB(config)
	if err != nil {
		return err
	}
	defer conn.Close()

	loader := source.NewLoader(conn, d, source.WithTimeout(config.Timeout))
	rows, err := loader.Load(context.Background(), q)
	if err != nil {
		return err
	}
	log.Infof("loaded %d rows from %s", len(rows), q.Base().Table.Name())

	out := cmd.OutOrStdout()
	if err := printRows(out, viper.GetString("output"), q.Base().Table, rows); err != nil {
		return err
	}

	if viper.GetBool("verify") {
		if err := verify(out, q.Base().Table, rows, q.Check); err != nil {
			return err
		}
	}

	if config.Metrics {
		fmt.Fprintln(out)
		metrics.WritePrometheus(out, false)
		gometrics.WriteOnce(loader.Registry(), out)
	}
	return nil
}

// --------------------------------------------------------------------------
// Output
// --------------------------------------------------------------------------

// record maps column names to display values
func record(table *db.Table, row *db.Row) map[string]any {
	rec := make(map[string]any)
	for _, c := range table.Columns() {
		if !c.IsQueryable() {
			continue
		}
		if c.IsNull(row) {
			rec[c.Name()] = nil
			continue
		}
		rec[c.Name()] = db.Unwrap(c.GetValue(row))
	}
	return rec
}

func printRows(w io.Writer, format string, table *db.Table, rows []*db.Row) error {
	switch format {
	case "json":
		records := make([]map[string]any, len(rows))
		for i, row := range rows {
			records[i] = record(table, row)
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(records)
	case "yaml":
		records := make([]map[string]any, len(rows))
		for i, row := range rows {
			records[i] = record(table, row)
		}
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(records)
	case "table":
		return printTable(w, table, rows)
	default:
		return fmt.Errorf("invalid output format %s", format)
	}
}

func printTable(w io.Writer, table *db.Table, rows []*db.Row) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	var header []string
	var columns []db.Column
	for _, c := range table.Columns() {
		if c.IsQueryable() {
			header = append(header, c.Name())
			columns = append(columns, c)
		}
	}
	fmt.Fprintln(tw, strings.Join(header, "\t"))
	for _, row := range rows {
		cells := make([]string, len(columns))
		for i, c := range columns {
			if c.IsNull(row) {
				cells[i] = "null"
			} else {
				cells[i] = c.DisplayValue(c.GetValue(row))
			}
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "(%d rows)\n", len(rows))
	return err
}

// verify runs check on every loaded row and lists the rows it rejects
func verify(w io.Writer, table *db.Table, rows []*db.Row, check func(*db.Row) (bool, error)) error {
	var mismatches int
	for _, row := range rows {
		ok, err := check(row)
		if err != nil {
			return fmt.Errorf("evaluate row %v: %w", row.PrimaryKey(), err)
		}
		if !ok {
			mismatches++
			fmt.Fprintf(w, "local evaluation rejects %s row %v\n", table.Name(), row.PrimaryKey())
		}
	}
	_, err := fmt.Fprintf(w, "verified %d rows, %d mismatches\n", len(rows), mismatches)
	return err
}
