package schemafile

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ValentinKolb/dQuery/lib/db"
	"github.com/ValentinKolb/dQuery/lib/db/serializer"
	"github.com/lni/dragonboat/v4/logger"
	"gopkg.in/yaml.v3"
)

var log = logger.GetLogger("db")

// File is the YAML description of a schema
type File struct {
	Name   string     `yaml:"name"`
	Tables []TableDef `yaml:"tables"`
}

// TableDef describes one table
type TableDef struct {
	Name      string      `yaml:"name"`
	BlockSize int         `yaml:"blockSize,omitempty"`
	Columns   []ColumnDef `yaml:"columns"`
}

// ColumnDef describes one column
type ColumnDef struct {
	Name       string           `yaml:"name"`
	Property   string           `yaml:"property,omitempty"`
	Type       string           `yaml:"type"`
	Nullable   bool             `yaml:"nullable,omitempty"`
	Width      int              `yaml:"width,omitempty"`
	Size       int              `yaml:"size,omitempty"`
	Scale      int              `yaml:"scale,omitempty"`
	Keys       []string         `yaml:"keys,omitempty"`
	Reference  string           `yaml:"reference,omitempty"`
	Enum       map[int64]string `yaml:"enum,omitempty"`
	ColumnType string           `yaml:"columnType,omitempty"`
	Serializer string           `yaml:"serializer,omitempty"`
}

// --------------------------------------------------------------------------
// Loading
// --------------------------------------------------------------------------

// LoadFile reads a schema description from path
func LoadFile(path string) (*db.Schema, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open schema file: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// Load reads a schema description and builds the schema
func Load(r io.Reader) (*db.Schema, error) {
	var file File
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("decode schema file: %w", err)
	}
	return file.Build()
}

// Build creates the schema described by f
func (f File) Build() (*db.Schema, error) {
	schema := db.NewSchema(f.Name)
	for _, td := range f.Tables {
		table, err := td.build()
		if err != nil {
			return nil, err
		}
		if err := schema.AddTable(table); err != nil {
			return nil, err
		}
	}
	// references are resolved by name, check them once everything exists
	for _, td := range f.Tables {
		for _, cd := range td.Columns {
			if cd.Reference != "" && schema.Table(cd.Reference) == nil {
				return nil, db.NewError(db.ErrCUnknownTable, "column %s.%s references unknown table %q", td.Name, cd.Name, cd.Reference)
			}
		}
	}
	log.Infof("loaded schema %s with %d tables", f.Name, len(f.Tables))
	return schema, nil
}

func (td TableDef) build() (*db.Table, error) {
	table, err := db.NewTable(td.Name)
	if err != nil {
		return nil, err
	}
	if td.BlockSize > 0 {
		table.SetBlockSize(td.BlockSize)
	}
	for _, cd := range td.Columns {
		c, err := cd.build()
		if err != nil {
			return nil, fmt.Errorf("table %s: %w", td.Name, err)
		}
		if err := table.AddColumn(c); err != nil {
			return nil, err
		}
	}
	return table, nil
}

func (cd ColumnDef) build() (db.Column, error) {
	kind, err := db.ParseKind(cd.Type)
	if err != nil {
		return nil, fmt.Errorf("column %s: %w", cd.Name, err)
	}
	keys, err := db.ParseKeys(cd.Keys...)
	if err != nil {
		return nil, fmt.Errorf("column %s: %w", cd.Name, err)
	}
	columnType, err := parseColumnType(cd.ColumnType)
	if err != nil {
		return nil, fmt.Errorf("column %s: %w", cd.Name, err)
	}

	opts := []db.ColumnOption{
		db.WithKeys(keys),
		db.WithSize(cd.Size, cd.Scale),
		db.WithColumnType(columnType),
	}
	if cd.Property != "" {
		opts = append(opts, db.WithProperty(cd.Property))
	}
	if cd.Reference != "" {
		opts = append(opts, db.WithReferenceName(cd.Reference))
	}
	if len(cd.Enum) > 0 {
		opts = append(opts, db.WithEnumNames(cd.Enum))
	}
	if cd.Serializer != "" {
		s, ok := serializer.ByName(cd.Serializer)
		if !ok {
			return nil, fmt.Errorf("column %s: unknown serializer %q", cd.Name, cd.Serializer)
		}
		opts = append(opts, db.WithSerializer(s))
	}
	return db.NewColumn(cd.Name, db.DataType{Kind: kind, Nullable: cd.Nullable, Width: cd.Width}, opts...)
}

func parseColumnType(s string) (db.ColumnType, error) {
	for t := db.ColumnDefault; t <= db.ColumnInternal; t++ {
		if strings.EqualFold(t.String(), s) {
			return t, nil
		}
	}
	if s == "" {
		return db.ColumnDefault, nil
	}
	return db.ColumnDefault, fmt.Errorf("unknown column type %q", s)
}

// --------------------------------------------------------------------------
// Describing
// --------------------------------------------------------------------------

// Describe renders an existing schema back into its file description
func Describe(s *db.Schema) File {
	f := File{Name: s.Name()}
	for _, t := range s.Tables() {
		td := TableDef{Name: t.Name(), BlockSize: t.BlockSize()}
		for _, c := range t.Columns() {
			dt := c.DataType()
			cd := ColumnDef{
				Name:     c.Name(),
				Type:     dt.Kind.String(),
				Nullable: dt.Nullable,
				Width:    dt.Width,
				Size:     c.Size(),
				Scale:    c.Scale(),
			}
			if c.Property() != c.Name() {
				cd.Property = c.Property()
			}
			if ref := c.ReferenceTable(); ref != nil {
				cd.Reference = ref.Name()
			}
			if k := c.Keys() &^ db.KeyReference; k != db.KeyNone {
				cd.Keys = strings.Split(k.String(), "|")
			}
			if c.ColumnType() != db.ColumnDefault {
				cd.ColumnType = c.ColumnType().String()
			}
			td.Columns = append(td.Columns, cd)
		}
		f.Tables = append(f.Tables, td)
	}
	return f
}

// Write encodes f as YAML
func (f File) Write(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(f); err != nil {
		return err
	}
	return enc.Close()
}
