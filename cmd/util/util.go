package util

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/ValentinKolb/dQuery/lib/common"
	"github.com/ValentinKolb/dQuery/lib/db"
	"github.com/ValentinKolb/dQuery/lib/db/schemafile"
	"github.com/ValentinKolb/dQuery/lib/query"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	// database/sql drivers selectable with --driver
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

const (
	// Wrap is the number of characters to Wrap the help text at
	Wrap int = 50
)

// WrapString wraps a string at Wrap characters
func WrapString(text string) string {
	var wrappedLines []string
	var currentLine strings.Builder
	lineWidth := 0

	for _, word := range strings.Fields(text) {
		wordWidth := len(word)

		// Check if we need to wrap
		if lineWidth > 0 && lineWidth+1+wordWidth > Wrap {
			wrappedLines = append(wrappedLines, currentLine.String())
			currentLine.Reset()
			lineWidth = 0
		}

		// Add space before word (if not first word on line)
		if lineWidth > 0 {
			currentLine.WriteString(" ")
			lineWidth++
		}

		// Add the word
		currentLine.WriteString(word)
		lineWidth += wordWidth
	}

	// Add any remaining text
	if currentLine.Len() > 0 {
		wrappedLines = append(wrappedLines, currentLine.String())
	}

	return strings.Join(wrappedLines, "\n")
}

// SetupSchemaFlags adds the schema and query flags shared by all commands
func SetupSchemaFlags(cmd *cobra.Command) {
	key := "schema"
	cmd.PersistentFlags().String(key, "schema.yaml", WrapString("Path of the YAML file describing tables and columns"))

	key = "table"
	cmd.PersistentFlags().String(key, "", WrapString("Table the query runs on. May be omitted when the query text has a from clause"))

	key = "dialect"
	cmd.PersistentFlags().String(key, "", WrapString("SQL dialect of the generated command (sqlite, postgres, mysql, mssql). Defaults to the driver's dialect"))

	key = "log-level"
	cmd.PersistentFlags().String(key, "warn", WrapString("LogLevel is the level at which logs will be output (debug, info, warn, error)"))
}

// SetupConnectionFlags adds the database connection flags to a command
func SetupConnectionFlags(cmd *cobra.Command) {
	key := "driver"
	cmd.PersistentFlags().String(key, "sqlite", WrapString("database/sql driver (sqlite, postgres, mysql)"))

	key = "dsn"
	cmd.PersistentFlags().String(key, "", WrapString("Data source name passed to the driver (e.g. file:app.db, postgres://user:pw@host/db, user:pw@tcp(host:3306)/db)"))

	key = "timeout"
	cmd.PersistentFlags().Int(key, 30, WrapString("The timeout in seconds of a query"))

	key = "metrics"
	cmd.PersistentFlags().Bool(key, false, WrapString("Print store and loader metrics in Prometheus text format after the command"))
}

// InitConfig initializes configuration from environment variables
func InitConfig() {
	// load env files
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	// initialize viper
	viper.SetEnvPrefix("dq")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match
}

// BindCommandFlags binds a command's flags to viper and applies the log level
func BindCommandFlags(cmd *cobra.Command) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}
	return common.InitLoggers(viper.GetString("log-level"))
}

// GetConfig reads the configuration from viper
func GetConfig() *common.Config {
	// driver names differ from dialect names, normalize the common aliases
	driver := viper.GetString("driver")
	if driver == "sqlite3" {
		driver = "sqlite"
	}
	return &common.Config{
		Driver:     driver,
		DSN:        viper.GetString("dsn"),
		Dialect:    viper.GetString("dialect"),
		SchemaFile: viper.GetString("schema"),
		Timeout:    time.Duration(viper.GetInt("timeout")) * time.Second,
		Metrics:    viper.GetBool("metrics"),
		LogLevel:   viper.GetString("log-level"),
	}
}

// LoadSchema reads the configured schema file
func LoadSchema(config *common.Config) (*db.Schema, error) {
	if config.SchemaFile == "" {
		return nil, fmt.Errorf("no schema file configured (--schema)")
	}
	return schemafile.LoadFile(config.SchemaFile)
}

// ParseQuery parses text against schema. The --table flag names the base
// table, otherwise the text must contain a from clause.
func ParseQuery(schema *db.Schema, text string) (*query.Query, error) {
	var table *db.Table
	if name := viper.GetString("table"); name != "" {
		if table = schema.Table(name); table == nil {
			return nil, fmt.Errorf("unknown table %q in schema %s", name, schema.Name())
		}
	}
	q, err := query.Parse(schema, table, text)
	if err != nil {
		return nil, err
	}
	if q.Base() == nil {
		return nil, fmt.Errorf("query has no table: pass --table or add a from clause")
	}
	return q, nil
}

// OpenDB opens and pings the configured database
func OpenDB(config *common.Config) (*sql.DB, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	conn, err := sql.Open(config.Driver, config.DSN)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", config.Driver, err)
	}
	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("connect to %s database: %w", config.Driver, err)
	}
	return conn, nil
}
