package schema

import (
	"fmt"

	"github.com/ValentinKolb/dQuery/cmd/util"
	"github.com/ValentinKolb/dQuery/lib/db/schemafile"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	// SchemaCmd validates a schema file and prints it in normalized form
	SchemaCmd = &cobra.Command{
		Use:     "schema",
		Short:   "Validate a schema file and print it normalized",
		Long:    `Build the tables of a schema file, resolve all references and print the schema as the engine sees it. With --relations only the reference graph is printed.`,
		Args:    cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error { return util.BindCommandFlags(cmd) },
		RunE:    run,
	}
)

func init() {
	util.SetupSchemaFlags(SchemaCmd)

	key := "relations"
	SchemaCmd.Flags().Bool(key, false, util.WrapString("Print the reference graph instead of the schema"))
}

func run(cmd *cobra.Command, _ []string) error {
	s, err := util.LoadSchema(util.GetConfig())
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if !viper.GetBool("relations") {
		return schemafile.Describe(s).Write(out)
	}

	for _, t := range s.Tables() {
		fmt.Fprintf(out, "%s\n", t.Name())
		for _, c := range t.Columns() {
			if ref := c.ReferenceTable(); ref != nil {
				fmt.Fprintf(out, "  %-22s -> %s\n", c.Name(), ref.Name())
			}
		}
		for _, c := range s.Referencing(t) {
			fmt.Fprintf(out, "  %-22s <- %s.%s\n", "", c.Table().Name(), c.Name())
		}
	}
	return nil
}
