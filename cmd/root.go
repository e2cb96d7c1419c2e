package cmd

import (
	"fmt"
	"os"

	"github.com/ValentinKolb/dQuery/cmd/exec"
	"github.com/ValentinKolb/dQuery/cmd/format"
	"github.com/ValentinKolb/dQuery/cmd/perf"
	"github.com/ValentinKolb/dQuery/cmd/schema"
	"github.com/ValentinKolb/dQuery/cmd/util"
	"github.com/spf13/cobra"
)

const (
	Version = "0.3.0"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "dq",
		Short: "typed query engine for relational tables",
		Long: fmt.Sprintf(`dQuery (v%s)

A typed column store with a query object model: parse query text against
a schema, format it as SQL for a dialect, load the result into columnar
tables and evaluate queries locally.`, Version),
		SilenceUsage: true,
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of dQuery",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "dQuery v%s\n", Version)
		},
	}
)

func init() {
	// initialize viper
	cobra.OnInitialize(util.InitConfig)

	// Add Commands
	RootCmd.AddCommand(format.FormatCmd)
	RootCmd.AddCommand(exec.ExecCmd)
	RootCmd.AddCommand(schema.SchemaCmd)
	RootCmd.AddCommand(perf.PerfCmd)
	RootCmd.AddCommand(versionCmd)
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
