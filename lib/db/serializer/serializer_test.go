package serializer

import (
	"reflect"
	"testing"
)

type address struct {
	Street string
	Zip    int
	Tags   []string
}

// testSerializers is a map of serializer name to factory function
var testSerializers = map[string]func() ISerializer{
	"json": NewJSONSerializer,
	"gob":  NewGOBSerializer,
}

func TestSerializerRoundTrip(t *testing.T) {
	values := []address{
		{},
		{Street: "Main", Zip: 12345},
		{Street: "Side", Zip: 1, Tags: []string{"a", "b"}},
	}

	for name, factory := range testSerializers {
		t.Run(name, func(t *testing.T) {
			s := factory()
			if s.Name() != name {
				t.Errorf("expected name %s, got %s", name, s.Name())
			}
			for _, v := range values {
				data, err := s.Serialize(v)
				if err != nil {
					t.Fatalf("serialize %+v: %v", v, err)
				}
				var back address
				if err := s.Deserialize(data, &back); err != nil {
					t.Fatalf("deserialize %+v: %v", v, err)
				}
				// gob decodes empty slices as nil
				if len(v.Tags) == 0 {
					back.Tags = v.Tags
				}
				if !reflect.DeepEqual(v, back) {
					t.Errorf("round trip mismatch: %+v != %+v", v, back)
				}
			}
		})
	}
}

func TestByName(t *testing.T) {
	for name := range testSerializers {
		if s, ok := ByName(name); !ok || s.Name() != name {
			t.Errorf("ByName(%q) failed", name)
		}
	}
	if _, ok := ByName("xml"); ok {
		t.Errorf("unknown serializer should not resolve")
	}
}
