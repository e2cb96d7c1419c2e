// Package serializer provides the value serializers used by object columns.
//
// An object column stores arbitrary Go values (structs, maps, slices) in its
// pull. Whenever such a value has to leave the process it is serialized:
// query literals and command parameters carry the serialized form, and a row
// source delivers it as text or bytes that are deserialized on read.
//
// Key Components:
//
//   - ISerializer: interface every format implements.
//   - jsonSerializerImpl: JSON encoding, human readable, the default.
//   - gobSerializerImpl: Go's gob encoding, compact but Go specific.
//
// Thread Safety:
//
//	All serializer implementations are stateless and safe for concurrent use.
package serializer
