package models

import (
	"bytes"
	"encoding/json"
	"sort"

	"gopkg.in/yaml.v3"
)

// Kind identifies which variant a Value holds.
type Kind int

const (
	KindScalar Kind = iota
	KindSequence
	KindMapping
)

func (k Kind) String() string {
	switch k {
	case KindSequence:
		return "sequence"
	case KindMapping:
		return "mapping"
	default:
		return "scalar"
	}
}

// Value is a document node: a Scalar, a Sequence or a Mapping.
// A nil Value is treated as null.
type Value interface {
	Kind() Kind
	// Interface returns the value as plain Go data (map[string]any, []any or a scalar).
	Interface() any
}

// Scalar holds a leaf value: nil (null), bool, string, json.Number or a
// native number decoded from YAML. Scalars read from YAML also carry their
// source text in Lit.
type Scalar struct {
	V   any
	Lit *Literal
}

// Literal is a YAML scalar as written: resolved tag, text and style.
// YAML output reuses it so values survive unchanged.
type Literal struct {
	Tag   string
	Text  string
	Style yaml.Style
}

// Null is the null scalar.
var Null = Scalar{}

func (Scalar) Kind() Kind { return KindScalar }

func (s Scalar) Interface() any { return s.V }

// IsNull reports whether the scalar is null.
func (s Scalar) IsNull() bool { return s.V == nil }

func (s Scalar) MarshalJSON() ([]byte, error) {
	return encodeJSON(s.V)
}

// Sequence is an ordered list of values.
type Sequence []Value

func (Sequence) Kind() Kind { return KindSequence }

func (s Sequence) Interface() any {
	out := make([]any, len(s))
	for i, v := range s {
		out[i] = interfaceOf(v)
	}
	return out
}

func (s Sequence) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, v := range s {
		if i > 0 {
			buf.WriteByte(',')
		}
		b, err := marshalValue(v)
		if err != nil {
			return nil, err
		}
		buf.Write(b)
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

// Entry is a single key/value pair of a Mapping.
type Entry struct {
	Key   string
	Value Value
}

// Mapping is an ordered collection of entries with unique keys.
// Enumeration order is insertion order.
type Mapping []Entry

func (Mapping) Kind() Kind { return KindMapping }

func (m Mapping) Interface() any {
	out := make(map[string]any, len(m))
	for _, e := range m {
		out[e.Key] = interfaceOf(e.Value)
	}
	return out
}

// Get returns the value stored under key.
func (m Mapping) Get(key string) (Value, bool) {
	for _, e := range m {
		if e.Key == key {
			return e.Value, true
		}
	}
	return nil, false
}

// Set stores v under key. An existing entry keeps its position and has
// its value replaced. Set scans the mapping; use a MappingBuilder to build
// large mappings.
func (m *Mapping) Set(key string, v Value) {
	for i := range *m {
		if (*m)[i].Key == key {
			(*m)[i].Value = v
			return
		}
	}
	*m = append(*m, Entry{Key: key, Value: v})
}

// MappingBuilder assembles a Mapping with the semantics of Mapping.Set
// in constant time per key.
type MappingBuilder struct {
	entries Mapping
	index   map[string]int
}

// NewMappingBuilder creates a builder sized for n entries.
func NewMappingBuilder(n int) *MappingBuilder {
	return &MappingBuilder{
		entries: make(Mapping, 0, n),
		index:   make(map[string]int, n),
	}
}

// Set stores v under key, as Mapping.Set does.
func (b *MappingBuilder) Set(key string, v Value) {
	if i, ok := b.index[key]; ok {
		b.entries[i].Value = v
		return
	}
	b.index[key] = len(b.entries)
	b.entries = append(b.entries, Entry{Key: key, Value: v})
}

// Has reports whether key has been set.
func (b *MappingBuilder) Has(key string) bool {
	_, ok := b.index[key]
	return ok
}

// Mapping returns the entries built so far.
func (b *MappingBuilder) Mapping() Mapping {
	return b.entries
}

// Keys returns the keys in enumeration order.
func (m Mapping) Keys() []string {
	keys := make([]string, len(m))
	for i, e := range m {
		keys[i] = e.Key
	}
	return keys
}

func (m Mapping) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range m {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := encodeJSON(e.Key)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		b, err := marshalValue(e.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(b)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// FromAny converts plain Go data into a Value. Go maps carry no order, so
// map entries are enumerated in sorted key order.
func FromAny(v any) Value {
	switch val := v.(type) {
	case Value:
		return val
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		m := make(Mapping, 0, len(val))
		for _, k := range keys {
			m = append(m, Entry{Key: k, Value: FromAny(val[k])})
		}
		return m
	case []any:
		s := make(Sequence, len(val))
		for i, elem := range val {
			s[i] = FromAny(elem)
		}
		return s
	default:
		return Scalar{V: val}
	}
}

// Document is a parsed input together with the format it came from.
type Document struct {
	Root   Value
	Format string
}

func interfaceOf(v Value) any {
	if v == nil {
		return nil
	}
	return v.Interface()
}

func marshalValue(v Value) ([]byte, error) {
	if v == nil {
		return []byte("null"), nil
	}
	return encodeJSON(v)
}

// encodeJSON is json.Marshal without HTML escaping.
func encodeJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}
