package perf

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/ValentinKolb/dQuery/cmd/util"
	"github.com/ValentinKolb/dQuery/lib/common"
	"github.com/ValentinKolb/dQuery/lib/db"
	"github.com/ValentinKolb/dQuery/lib/query"
	"github.com/ValentinKolb/dQuery/lib/source"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	log = logger.GetLogger("cmd")

	// PerfCmd measures parsing, formatting, loading and local evaluation of a query
	PerfCmd = &cobra.Command{
		Use:   "perf [query]",
		Short: "Performance testing tool for queries",
		Long: `Measure the stages of a query: parse the text, format the SQL command,
load the result from the database and evaluate the query locally on the
loaded rows. Without --dsn only parse and format are measured.`,
		Args:    cobra.MinimumNArgs(1),
		PreRunE: processPerfConfig,
		RunE:    run,
	}
	perfSkip = make([]string, 0)
)

// stages in execution order
var stages = []string{"parse", "format", "load", "select", "check"}

func init() {
	util.SetupSchemaFlags(PerfCmd)
	util.SetupConnectionFlags(PerfCmd)

	key := "skip"
	PerfCmd.Flags().String(key, "", util.WrapString("Benchmarks to skip (comma separated - e.g. load,check)"))
	key = "csv"
	PerfCmd.Flags().String(key, "", util.WrapString("Optional path to save benchmark results as CSV"))
}

func processPerfConfig(cmd *cobra.Command, _ []string) error {
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}
	perfSkip = strings.Split(viper.GetString("skip"), ",")
	return nil
}

func run(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	text := strings.Join(args, " ")
	config := util.GetConfig()

	schema, err := util.LoadSchema(config)
	if err != nil {
		return err
	}
	q, err := util.ParseQuery(schema, text)
	if err != nil {
		return err
	}
	d, err := config.ResolveDialect()
	if err != nil {
		return err
	}

	var loader *source.Loader
	if config.DSN != "" {
		conn, err := util.OpenDB(config)
		if err != nil {
			return err
		}
		defer conn.Close()
		loader = source.NewLoader(conn, d, source.WithTimeout(config.Timeout))
	} else {
		perfSkip = append(perfSkip, "load", "select", "check")
	}

	fmt.Fprintln(out, "Performance testing tool for queries")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Configuration:")
	fmt.Fprintln(out, config.String())
	fmt.Fprintf(out, "Query: %s\n\n", text)

	table := q.Base().Table
	// the text names its table itself unless --table is given
	parseTable := schema.Table(viper.GetString("table"))
	results := make(map[string]testing.BenchmarkResult)
	benchmarks := map[string]func(b *testing.B){
		"parse": func(b *testing.B) {
			for i := 0; i < b.N; i++ {
				if _, err := query.Parse(schema, parseTable, text); err != nil {
					b.Fatal(err)
				}
			}
		},
		"format": func(b *testing.B) {
			for i := 0; i < b.N; i++ {
				if _, err := q.ToCommand(d); err != nil {
					b.Fatal(err)
				}
			}
		},
		"load": func(b *testing.B) {
			for i := 0; i < b.N; i++ {
				if _, err := loader.Load(context.Background(), q); err != nil {
					b.Fatal(err)
				}
			}
		},
		"select": func(b *testing.B) {
			for i := 0; i < b.N; i++ {
				if _, err := q.Select(); err != nil {
					b.Fatal(err)
				}
			}
		},
		"check": func(b *testing.B) {
			rows := table.Rows()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if len(rows) == 0 {
					continue
				}
				if _, err := q.Check(rows[i%len(rows)]); err != nil {
					b.Fatal(err)
				}
			}
		},
	}

	for _, stage := range stages {
		if shouldSkip(stage) {
			results[stage] = testing.BenchmarkResult{}
			printResult(out, stage, results[stage])
			continue
		}
		results[stage] = testing.Benchmark(benchmarks[stage])
		printResult(out, stage, results[stage])
	}
	log.Infof("%s holds %d rows after the benchmark", table.Name(), table.Count())

	// Write results to csv is specified
	if csvPath := viper.GetString("csv"); csvPath != "" {
		fmt.Fprintf(out, "\nExporting results to CSV: %s\n", csvPath)
		if err := writeResultsToCSV(csvPath, results, config, table); err != nil {
			return fmt.Errorf("failed to export results to CSV: %v", err)
		}
		fmt.Fprintln(out, "Export complete")
	}
	return nil
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

func shouldSkip(stage string) bool {
	return slices.Contains(perfSkip, stage)
}

// printResult prints the result of a benchmark test in a formatted way
func printResult(w io.Writer, test string, result testing.BenchmarkResult) {
	if result.NsPerOp() == 0 {
		fmt.Fprintf(w, "%-20sskipped\n", test)
		return
	}

	nsPerOp := math.Max(float64(result.NsPerOp()), 1) // prevent division by zero
	opsPerSec := 1.0 / (nsPerOp / 1e9)

	// Print the formatted result
	fmt.Fprintf(w, "%-20s%.0fns/op (%s/op)\t%.0f ops/sec\n", test, nsPerOp, time.Duration(nsPerOp), opsPerSec)
}

// writeResultsToCSV writes benchmark results to a CSV file
func writeResultsToCSV(csvPath string, results map[string]testing.BenchmarkResult, config *common.Config, table *db.Table) error {
	file, err := os.Create(csvPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %v", err)
	}
	defer file.Close()
	return writeResults(file, results, config, table)
}

func writeResults(w io.Writer, results map[string]testing.BenchmarkResult, config *common.Config, table *db.Table) error {
	writer := csv.NewWriter(w)

	// Write header
	header := []string{
		"Test", "NsPerOp", "DurationPerOp", "OpsPerSec", "Skipped",
		"Driver", "Dialect", "Table", "Rows",
	}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %v", err)
	}

	dialectName := ""
	if d, err := config.ResolveDialect(); err == nil {
		dialectName = d.Name()
	}

	// Write test results in stage order
	for _, test := range stages {
		result, ok := results[test]
		if !ok {
			continue
		}
		var nsPerOp float64
		var opsPerSec float64
		var skipped string

		if result.NsPerOp() == 0 {
			skipped = "true"
		} else {
			skipped = "false"
			nsPerOp = math.Max(float64(result.NsPerOp()), 1)
			opsPerSec = 1.0 / (nsPerOp / 1e9)
		}

		row := []string{
			test,
			fmt.Sprintf("%.0f", nsPerOp),
			time.Duration(nsPerOp).String(),
			fmt.Sprintf("%.0f", opsPerSec),
			skipped,
			config.Driver,
			dialectName,
			table.Name(),
			fmt.Sprintf("%d", table.Count()),
		}

		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write row for test %s: %v", test, err)
		}
	}

	writer.Flush()
	return writer.Error()
}
