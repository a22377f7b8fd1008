package formatter

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mcncl/keycase/internal/errors"
	"github.com/mcncl/keycase/internal/models"
	"gopkg.in/yaml.v3"
)

// Output formats
const (
	JSON = "json"
	YAML = "yaml"
)

// DefaultIndent is used when a non-positive indent is configured
const DefaultIndent = 2

// Formatter renders a document tree as JSON or YAML, keeping mapping order
type Formatter struct {
	format string
	indent int
}

// NewFormatter creates a new Formatter instance
func NewFormatter(format string, indent int) (*Formatter, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	switch format {
	case "", JSON:
		format = JSON
	case YAML, "yml":
		format = YAML
	default:
		return nil, fmt.Errorf("%w: %q", errors.ErrUnsupportedFormat, format)
	}
	if indent <= 0 {
		indent = DefaultIndent
	}
	return &Formatter{format: format, indent: indent}, nil
}

// Format returns v encoded in the configured format, ending in a newline
func (f *Formatter) Format(v models.Value) (string, error) {
	if v == nil {
		v = models.Null
	}
	switch f.format {
	case YAML:
		return f.formatYAML(v)
	default:
		return f.formatJSON(v)
	}
}

func (f *Formatter) formatJSON(v models.Value) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", strings.Repeat(" ", f.indent))
	if err := enc.Encode(v); err != nil {
		return "", fmt.Errorf("failed to encode JSON: %w", err)
	}
	return buf.String(), nil
}

func (f *Formatter) formatYAML(v models.Value) (string, error) {
	node, err := toNode(v)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(f.indent)
	if err := enc.Encode(node); err != nil {
		return "", fmt.Errorf("failed to encode YAML: %w", err)
	}
	if err := enc.Close(); err != nil {
		return "", fmt.Errorf("failed to encode YAML: %w", err)
	}
	return buf.String(), nil
}

// toNode builds a yaml.Node tree so entry order is kept on output
func toNode(v models.Value) (*yaml.Node, error) {
	switch val := v.(type) {
	case models.Mapping:
		node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		for _, e := range val {
			key, err := scalarNode(e.Key)
			if err != nil {
				return nil, err
			}
			child, err := toNode(e.Value)
			if err != nil {
				return nil, err
			}
			node.Content = append(node.Content, key, child)
		}
		return node, nil
	case models.Sequence:
		node := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, elem := range val {
			child, err := toNode(elem)
			if err != nil {
				return nil, err
			}
			node.Content = append(node.Content, child)
		}
		return node, nil
	case models.Scalar:
		// Scalars read from YAML are written back as they were.
		if val.Lit != nil {
			return &yaml.Node{Kind: yaml.ScalarNode, Tag: val.Lit.Tag, Value: val.Lit.Text, Style: val.Lit.Style}, nil
		}
		return scalarNode(val.V)
	case nil:
		return scalarNode(nil)
	default:
		return nil, fmt.Errorf("unexpected value type %T", v)
	}
}

func scalarNode(v any) (*yaml.Node, error) {
	// json.Number is a string type; emit it as a plain number instead of a quoted string.
	if num, ok := v.(json.Number); ok {
		tag := "!!float"
		if _, err := num.Int64(); err == nil {
			tag = "!!int"
		}
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: num.String()}, nil
	}

	node := &yaml.Node{}
	if err := node.Encode(v); err != nil {
		return nil, fmt.Errorf("failed to encode scalar %v: %w", v, err)
	}
	return node, nil
}
