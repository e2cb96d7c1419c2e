package db

import "strings"

// --------------------------------------------------------------------------
// Column Keys
// --------------------------------------------------------------------------

// Keys describes the role of a column as bit flags
type Keys uint32

const (
	KeyNone      Keys = 0
	KeyPrimary   Keys = 1 << (iota - 1) // Primary key of the table
	KeyUnique                           // Values are unique
	KeyReference                        // Column references the primary key of another table
	KeyIndexing                         // Maintain a secondary index
	KeyView                             // Shown in default views
	KeyCulture                          // Culture specific (localized) value
	KeyNotnull                          // Null values are rejected by the database
	KeyStamp                            // Modification timestamp
	KeyItemType                         // Discriminator used by TypeFilter
	KeyState                            // Status column used by StatusFilter
	KeySystem                           // Maintained by the engine, hidden from users
	KeyAccess                           // Access control data
	KeyPassword                         // Secret, never displayed
	KeyFile                             // Binary file content
)

var keyNames = []struct {
	key  Keys
	name string
}{
	{KeyPrimary, "Primary"},
	{KeyUnique, "Unique"},
	{KeyReference, "Reference"},
	{KeyIndexing, "Indexing"},
	{KeyView, "View"},
	{KeyCulture, "Culture"},
	{KeyNotnull, "Notnull"},
	{KeyStamp, "Stamp"},
	{KeyItemType, "ItemType"},
	{KeyState, "State"},
	{KeySystem, "System"},
	{KeyAccess, "Access"},
	{KeyPassword, "Password"},
	{KeyFile, "File"},
}

// Has reports whether all flags of k2 are set in k
func (k Keys) Has(k2 Keys) bool {
	return k&k2 == k2
}

// String returns the flag names joined by "|"
func (k Keys) String() string {
	if k == KeyNone {
		return "None"
	}
	var parts []string
	for _, kn := range keyNames {
		if k&kn.key != 0 {
			parts = append(parts, kn.name)
		}
	}
	return strings.Join(parts, "|")
}

// ParseKeys converts a list of flag names (case-insensitive) to Keys
func ParseKeys(names ...string) (Keys, error) {
	var k Keys
outer:
	for _, name := range names {
		for _, kn := range keyNames {
			if strings.EqualFold(kn.name, strings.TrimSpace(name)) {
				k |= kn.key
				continue outer
			}
		}
		return k, newError(ErrCInvalidOperation, "unknown column key %q", name)
	}
	return k, nil
}

// --------------------------------------------------------------------------
// Column Type
// --------------------------------------------------------------------------

// ColumnType tells where the value of a column comes from
type ColumnType uint8

const (
	ColumnDefault    ColumnType = iota // Stored in the database
	ColumnExpression                   // Computed by a database expression
	ColumnCode                         // Computed in code, never queried
	ColumnQuery                        // Filled by a sub query
	ColumnInternal                     // Engine bookkeeping, never queried
)

func (c ColumnType) String() string {
	switch c {
	case ColumnDefault:
		return "Default"
	case ColumnExpression:
		return "Expression"
	case ColumnCode:
		return "Code"
	case ColumnQuery:
		return "Query"
	case ColumnInternal:
		return "Internal"
	default:
		return "Unknown"
	}
}
