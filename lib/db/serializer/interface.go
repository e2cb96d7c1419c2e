package serializer

// ISerializer turns arbitrary Go values into bytes and back.
// It backs the object column kind, whose values are stored as Go values in
// the pull but travel as serialized text in queries and row sources.
type ISerializer interface {
	// Name identifies the format ("json", "gob")
	Name() string
	// Serialize encodes v
	Serialize(v any) ([]byte, error)
	// Deserialize decodes b into the value pointed to by v
	Deserialize(b []byte, v any) error
}

// ByName returns the serializer registered under name
func ByName(name string) (ISerializer, bool) {
	switch name {
	case "json":
		return NewJSONSerializer(), true
	case "gob":
		return NewGOBSerializer(), true
	default:
		return nil, false
	}
}
