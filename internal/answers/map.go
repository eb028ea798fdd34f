package answers

import (
	"bytes"
	"fmt"

	jsoniter "github.com/json-iterator/go"

	"github.com/xkilldash9x/visa-autofill/internal/textnorm"
)

// Map is an ordered mapping from normalized question text to an answer value.
// Iteration follows insertion order, which is what fuzzy matching tie-breaks on.
// A Map is read-only once handed to the fill engine; refreshes replace it wholesale.
type Map struct {
	keys   []string
	values map[string]string
}

// NewMap returns an empty Map.
func NewMap() *Map {
	return &Map{values: make(map[string]string)}
}

// FromPairs builds a Map from alternating question, answer strings. Questions
// are normalized. It panics on an odd argument count and is meant for tests and
// fixed tables.
func FromPairs(pairs ...string) *Map {
	if len(pairs)%2 != 0 {
		panic("answers.FromPairs: odd number of arguments")
	}
	m := NewMap()
	for i := 0; i < len(pairs); i += 2 {
		m.Set(pairs[i], pairs[i+1])
	}
	return m
}

// Set normalizes question and stores answer. Re-setting an existing key keeps
// its original position. Keys that normalize to "" are dropped.
func (m *Map) Set(question, answer string) {
	key := textnorm.Normalize(question)
	if key == "" {
		return
	}
	m.setKey(key, answer)
}

func (m *Map) setKey(key, answer string) {
	if m.values == nil {
		m.values = make(map[string]string)
	}
	if _, exists := m.values[key]; !exists {
		m.keys = append(m.keys, key)
	}
	m.values[key] = answer
}

// Get returns the answer stored under an already-normalized key.
func (m *Map) Get(key string) (string, bool) {
	if m == nil {
		return "", false
	}
	v, ok := m.values[key]
	return v, ok
}

// Len reports the number of entries. A nil Map is empty.
func (m *Map) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

// Keys returns the keys in insertion order. The slice is a copy.
func (m *Map) Keys() []string {
	if m == nil {
		return nil
	}
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	return out
}

// Range calls fn for each entry in insertion order until fn returns false.
func (m *Map) Range(fn func(key, answer string) bool) {
	if m == nil {
		return
	}
	for _, k := range m.keys {
		if !fn(k, m.values[k]) {
			return
		}
	}
}

// Equal reports whether both maps hold the same entries in the same order.
func (m *Map) Equal(other *Map) bool {
	if m.Len() != other.Len() {
		return false
	}
	if m.Len() == 0 {
		return true
	}
	for i, k := range m.keys {
		if other.keys[i] != k || other.values[k] != m.values[k] {
			return false
		}
	}
	return true
}

// MarshalJSON writes the map as a JSON object in insertion order.
func (m *Map) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	stream := jsoniter.NewStream(jsoniter.ConfigCompatibleWithStandardLibrary, &buf, 512)
	stream.WriteObjectStart()
	for i, k := range m.keys {
		if i > 0 {
			stream.WriteMore()
		}
		stream.WriteObjectField(k)
		stream.WriteString(m.values[k])
	}
	stream.WriteObjectEnd()
	if err := stream.Flush(); err != nil {
		return nil, err
	}
	if stream.Error != nil {
		return nil, stream.Error
	}
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a JSON object, keeping key order. Keys are normalized.
func (m *Map) UnmarshalJSON(data []byte) error {
	decoded, err := decodeMapping(data)
	if err != nil {
		return err
	}
	*m = *decoded
	return nil
}

// decodeMapping reads a flat JSON object into a Map. Non-string scalars are
// stringified; nulls, objects and arrays are skipped.
func decodeMapping(data []byte) (*Map, error) {
	iter := jsoniter.ConfigCompatibleWithStandardLibrary.BorrowIterator(data)
	defer jsoniter.ConfigCompatibleWithStandardLibrary.ReturnIterator(iter)

	if iter.WhatIsNext() != jsoniter.ObjectValue {
		return nil, fmt.Errorf("answers: expected a JSON object")
	}

	m := NewMap()
	iter.ReadObjectCB(func(it *jsoniter.Iterator, field string) bool {
		if value, ok := readScalar(it); ok {
			m.Set(field, value)
		}
		return true
	})
	if iter.Error != nil {
		return nil, fmt.Errorf("answers: malformed mapping: %w", iter.Error)
	}
	return m, nil
}

// readScalar consumes the next value and returns it as a string when it is a
// string, number or bool.
func readScalar(it *jsoniter.Iterator) (string, bool) {
	switch it.WhatIsNext() {
	case jsoniter.StringValue:
		return it.ReadString(), true
	case jsoniter.NumberValue:
		return it.ReadNumber().String(), true
	case jsoniter.BoolValue:
		if it.ReadBool() {
			return "true", true
		}
		return "false", true
	default:
		it.Skip()
		return "", false
	}
}
