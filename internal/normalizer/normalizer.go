// Package normalizer rewrites the keys of a document tree into a single case.
package normalizer

import (
	"fmt"
	"strings"

	"github.com/iancoleman/strcase"
	"github.com/mcncl/keycase/internal/errors"
	"github.com/mcncl/keycase/internal/models"
)

// Case names a key transform.
type Case string

const (
	Lower     Case = "lower"
	Upper     Case = "upper"
	Snake     Case = "snake"
	Camel     Case = "camel"
	Pascal    Case = "pascal"
	Kebab     Case = "kebab"
	Screaming Case = "screaming"
)

var keyFuncs = map[Case]func(string) string{
	Lower:     strings.ToLower,
	Upper:     strings.ToUpper,
	Snake:     strcase.ToSnake,
	Camel:     strcase.ToLowerCamel,
	Pascal:    strcase.ToCamel,
	Kebab:     strcase.ToKebab,
	Screaming: strcase.ToScreamingSnake,
}

// Cases lists the supported cases.
func Cases() []Case {
	return []Case{Lower, Upper, Snake, Camel, Pascal, Kebab, Screaming}
}

// ParseCase resolves a case name. The empty string means Lower.
func ParseCase(s string) (Case, error) {
	c := Case(strings.ToLower(strings.TrimSpace(s)))
	if c == "" {
		return Lower, nil
	}
	if _, ok := keyFuncs[c]; !ok {
		return "", fmt.Errorf("%w: %q", errors.ErrInvalidCase, s)
	}
	return c, nil
}

// Normalizer rewrites mapping keys with a fixed transform.
// It holds no mutable state and is safe for concurrent use.
type Normalizer struct {
	key     func(string) string
	exclude map[string]struct{}
}

// Option configures a Normalizer.
type Option func(*Normalizer)

// WithExclude leaves the subtrees under the given dotted paths untouched.
// Paths are written in the target case, e.g. "metadata.labels"; sequence
// elements share the path of their sequence.
func WithExclude(paths ...string) Option {
	return func(n *Normalizer) {
		for _, p := range paths {
			if p = strings.TrimSpace(p); p != "" {
				n.exclude[p] = struct{}{}
			}
		}
	}
}

// New creates a Normalizer for case c.
func New(c Case, opts ...Option) (*Normalizer, error) {
	c, err := ParseCase(string(c))
	if err != nil {
		return nil, err
	}
	n := &Normalizer{key: keyFuncs[c], exclude: make(map[string]struct{})}
	for _, opt := range opts {
		opt(n)
	}
	return n, nil
}

var lower = &Normalizer{key: strings.ToLower}

// NormalizeKeys returns a copy of v with every mapping key lower-cased.
//
// Sequences keep their length and order, null stays null and other scalars
// are returned unchanged. When two keys of one mapping lower-case to the
// same string the later entry wins. v must be acyclic.
func NormalizeKeys(v models.Value) models.Value {
	return lower.Normalize(v)
}

// Key applies the transform to a single key.
func (n *Normalizer) Key(k string) string {
	return n.key(k)
}

// Normalize returns a copy of v with every mapping key transformed.
// The input is never modified.
func (n *Normalizer) Normalize(v models.Value) models.Value {
	return n.normalize(v, "")
}

func (n *Normalizer) normalize(v models.Value, path string) models.Value {
	switch val := v.(type) {
	case models.Sequence:
		out := make(models.Sequence, len(val))
		for i, elem := range val {
			out[i] = n.normalize(elem, path)
		}
		return out
	case models.Mapping:
		out := models.NewMappingBuilder(len(val))
		for _, e := range val {
			k := n.key(e.Key)
			child := join(path, k)
			if _, skip := n.exclude[child]; skip {
				out.Set(k, clone(e.Value))
				continue
			}
			out.Set(k, n.normalize(e.Value, child))
		}
		return out.Mapping()
	default:
		return v
	}
}

// clone copies v without touching keys.
func clone(v models.Value) models.Value {
	switch val := v.(type) {
	case models.Sequence:
		out := make(models.Sequence, len(val))
		for i, elem := range val {
			out[i] = clone(elem)
		}
		return out
	case models.Mapping:
		out := make(models.Mapping, len(val))
		for i, e := range val {
			out[i] = models.Entry{Key: e.Key, Value: clone(e.Value)}
		}
		return out
	default:
		return v
	}
}

func join(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}
