// Package pull implements the value storage of a column and its secondary index.
//
// Key Components:
//
//   - Pull: a growable array of fixed-size blocks addressed by a stable
//     Handle{Block, Offset}. Growth publishes a new block directory through an
//     atomic pointer and never copies existing blocks, so handles issued before
//     a growth event stay valid and readers never block while a bulk loader
//     appends new rows.
//
//   - Index: a hash index value -> handles on top of a Pull. It is maintained
//     incrementally (Add, Remove, Update) by the owning column and can be
//     rebuilt by replaying the current values of a set of handles. Lookups
//     always verify candidates against the pull so Select(key) equals a full
//     scan filtered by equality.
//
// Lifecycle:
//
// An Index is bound to exactly one Pull. When the owner swaps the pull (type
// change, new block size) it must Detach the index and build a new one.
// Disposing an index that is still attached panics with ErrIndexAttached.
//
// Concurrency:
//
// Writers of different slots may run concurrently with each other and with
// readers. Two writers of the same slot must be synchronized by the caller.
package pull
