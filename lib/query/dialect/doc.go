// Package dialect describes the SQL spelling differences between database
// engines: parameter prefixes and placeholders, identifier quoting, boolean
// literals and the names of built-in functions.
package dialect
