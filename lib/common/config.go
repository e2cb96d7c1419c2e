package common

import (
	"fmt"
	"strings"
	"time"

	"github.com/ValentinKolb/dQuery/lib/query/dialect"
)

// --------------------------------------------------------------------------
// Runtime configuration struct
// --------------------------------------------------------------------------

// Config holds the settings of a dq invocation
type Config struct {
	// database/sql driver name ("sqlite", "postgres", "mysql")
	Driver string
	DSN    string
	// Dialect defaults to the dialect matching Driver
	Dialect string

	// SchemaFile is the YAML description of the tables
	SchemaFile string

	Timeout time.Duration

	// Metrics prints store and loader metrics after execution
	Metrics bool

	LogLevel string
}

// ResolveDialect returns the configured dialect, falling back to the driver
func (c *Config) ResolveDialect() (dialect.Dialect, error) {
	name := c.Dialect
	if name == "" {
		name = c.Driver
	}
	if name == "" {
		return dialect.SQLite, nil
	}
	d, ok := dialect.ByName(name)
	if !ok {
		return nil, fmt.Errorf("unknown dialect %q", name)
	}
	return d, nil
}

// Validate checks the settings needed to reach a database
func (c *Config) Validate() error {
	if c.Driver == "" {
		return fmt.Errorf("driver is required")
	}
	if c.DSN == "" {
		return fmt.Errorf("dsn is required")
	}
	if c.SchemaFile == "" {
		return fmt.Errorf("schema file is required")
	}
	if c.Timeout < 0 {
		return fmt.Errorf("invalid timeout %s", c.Timeout)
	}
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		return err
	}
	_, err := c.ResolveDialect()
	return err
}

// String returns a formatted string representation of the configuration.
// The DSN is masked since it may carry credentials.
func (c *Config) String() string {
	var sb strings.Builder

	// Create helper functions for consistent formatting
	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	dialectName := "-"
	if d, err := c.ResolveDialect(); err == nil {
		dialectName = d.Name()
	}

	addSection("Database")
	addField("Driver", c.Driver)
	addField("DSN", maskDSN(c.DSN))
	addField("Dialect", dialectName)
	addField("Timeout", c.Timeout.String())

	addSection("Schema")
	addField("File", c.SchemaFile)

	addSection("Logging")
	addField("Log Level", c.LogLevel)
	addField("Metrics", fmt.Sprintf("%t", c.Metrics))

	return sb.String()
}

// maskDSN hides the password of "user:password@" style DSNs
func maskDSN(dsn string) string {
	at := strings.LastIndex(dsn, "@")
	if at < 0 {
		return dsn
	}
	head := dsn[:at]
	colon := strings.LastIndex(head, ":")
	if colon < 0 || colon < strings.LastIndex(head, "/") {
		return dsn
	}
	return head[:colon+1] + "****" + dsn[at:]
}
