// Package util provides small building blocks shared by the storage layer.
//
// The package contains:
//   - functions: seeded FNV-1a hashing of strings and byte slices and integer
//     mixing, used to turn column values into index bucket keys
//   - statistics: distribution statistics used to report how evenly an index
//     spreads its entries over buckets
package util
