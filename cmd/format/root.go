package format

import (
	"fmt"
	"strings"

	"github.com/ValentinKolb/dQuery/cmd/util"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	// FormatCmd parses a query and prints the generated SQL command
	FormatCmd = &cobra.Command{
		Use:   "format [query]",
		Short: "Parse a query and print the SQL command",
		Long: `Parse a query against the schema file and print the SQL command with its
parameters. The query is either a full select statement or a bare
predicate on the table given with --table, e.g.

  dq format --table person "age between 18 and 30 and name like 'A%'"`,
		Args:    cobra.MinimumNArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error { return util.BindCommandFlags(cmd) },
		RunE:    run,
	}
)

func init() {
	util.SetupSchemaFlags(FormatCmd)

	key := "literal"
	FormatCmd.Flags().Bool(key, false, util.WrapString("Inline values as literals instead of binding parameters"))
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

	out := cmd.OutOrStdout()
	if viper.GetBool("literal") {
		_, err = fmt.Fprintln(out, q.String())
		return err
	}

	d, err := config.ResolveDialect()
	if err != nil {
		return err
	}
	command, err := q.ToCommand(d)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, command.String())
	return err
}
