// Package testing provides a standardised conformance suite for column
// implementations of the db package.
//
// The suite checks the contract every column kind has to satisfy:
//   - values written through SetValue are read back equal
//   - FormatValue produces a literal that parses back to an equal value
//   - Compare is a total order consistent with equality
//   - Select (index backed or scanning) agrees with CheckValue, also after
//     updates, removals and block size changes
//   - old value tracking, Accept and Reject
//   - null handling of nullable kinds
//
// Example usage:
//
//	factory := func() db.Column {
//		return db.MustColumn("age", db.Type(db.KindInt32), db.WithKeys(db.KeyIndexing))
//	}
//	testing.RunColumnTests(t, "int32", factory, []any{1, 2, 3})
package testing
