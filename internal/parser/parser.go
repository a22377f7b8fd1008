package parser

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	stderrors "errors" // Standard errors package
	"github.com/mcncl/keycase/internal/errors" // Custom errors package
	"github.com/mcncl/keycase/internal/models"
	"gopkg.in/yaml.v3"
)

// Format is an input document format.
type Format string

const (
	FormatAuto Format = "auto"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat resolves a format name. The empty string means FormatAuto.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return FormatAuto, nil
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("%w: %q", errors.ErrUnsupportedFormat, s)
	}
}

// FormatForPath picks a format from a file extension, falling back to JSON.
func FormatForPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// Parse reads a single document from reader. FormatAuto sniffs the content:
// input starting with '{' or '[' is JSON, anything else is YAML.
func Parse(reader io.Reader, format Format) (models.Document, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return models.Document{}, errors.NewInputError("failed to read input", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return models.Document{}, errors.NewParsingError("input is empty or contains only whitespace", errors.ErrEmptyInput)
	}

	if format == FormatAuto || format == "" {
		format = sniff(data)
	}

	var root models.Value
	switch format {
	case FormatJSON:
		root, err = parseJSON(data)
	case FormatYAML:
		root, err = parseYAML(data)
	default:
		return models.Document{}, errors.NewInputError(fmt.Sprintf("cannot parse format '%s'", format), errors.ErrUnsupportedFormat)
	}
	if err != nil {
		return models.Document{}, err
	}
	return models.Document{Root: root, Format: string(format)}, nil
}

func sniff(data []byte) Format {
	trimmed := bytes.TrimSpace(data)
	if trimmed[0] == '{' || trimmed[0] == '[' {
		return FormatJSON
	}
	return FormatYAML
}

// ParseString parses a document from a string
func ParseString(input string, format Format) (models.Document, error) {
	if strings.TrimSpace(input) == "" {
		return models.Document{}, errors.NewInputError("input string is empty", errors.ErrEmptyInput)
	}
	return Parse(strings.NewReader(input), format)
}

// ParseFile parses a document from a file path. FormatAuto uses the file
// extension.
func ParseFile(filePath string, format Format) (models.Document, error) {
	if strings.TrimSpace(filePath) == "" {
		return models.Document{}, errors.NewInputError("file path is empty", errors.ErrInvalidFilePath)
	}
	file, err := os.Open(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return models.Document{}, errors.NewInputError(
				fmt.Sprintf("file '%s' not found", filePath),
				errors.ErrFileNotFound,
			)
		}
		return models.Document{}, errors.NewInputError(
			fmt.Sprintf("failed to open file '%s'", filePath),
			err,
		)
	}
	defer func() {
		if err := file.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "Error closing file: %v\n", err)
		}
	}()

	stat, err := file.Stat()
	if err != nil {
		return models.Document{}, errors.NewInputError(
			fmt.Sprintf("failed to get file stats for '%s'", filePath),
			err,
		)
	}
	if stat.Size() == 0 {
		return models.Document{}, errors.NewInputError(
			fmt.Sprintf("input file '%s' is empty", filePath),
			errors.ErrFileEmpty,
		)
	}

	if format == FormatAuto || format == "" {
		format = FormatForPath(filePath)
	}
	return Parse(file, format)
}

// parseJSON decodes token by token so object key order survives.
func parseJSON(data []byte) (models.Value, error) {
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()

	root, err := decodeJSONValue(decoder)
	if err != nil {
		return nil, jsonError(err)
	}

	// Anything but EOF after the first value is either a second value or garbage.
	if _, err := decoder.Token(); !stderrors.Is(err, io.EOF) {
		if err != nil {
			return nil, errors.NewParsingError("invalid trailing data after first JSON value", err)
		}
		return nil, errors.NewParsingError("multiple JSON values found at the root", errors.ErrMultipleJSON)
	}
	return root, nil
}

func decodeJSONValue(decoder *json.Decoder) (models.Value, error) {
	tok, err := decoder.Token()
	if err != nil {
		return nil, err
	}

	delim, ok := tok.(json.Delim)
	if !ok {
		return models.Scalar{V: tok}, nil
	}

	switch delim {
	case '{':
		obj := models.NewMappingBuilder(0)
		for decoder.More() {
			keyTok, err := decoder.Token()
			if err != nil {
				return nil, err
			}
			key, ok := keyTok.(string)
			if !ok {
				return nil, fmt.Errorf("unexpected object key %v", keyTok)
			}
			val, err := decodeJSONValue(decoder)
			if err != nil {
				return nil, err
			}
			// Duplicate keys: the later one wins, as in most JSON decoders.
			obj.Set(key, val)
		}
		if _, err := decoder.Token(); err != nil {
			return nil, err
		}
		return obj.Mapping(), nil
	case '[':
		arr := models.Sequence{}
		for decoder.More() {
			val, err := decodeJSONValue(decoder)
			if err != nil {
				return nil, err
			}
			arr = append(arr, val)
		}
		if _, err := decoder.Token(); err != nil {
			return nil, err
		}
		return arr, nil
	default:
		return nil, fmt.Errorf("unexpected delimiter %q", delim)
	}
}

func jsonError(err error) error {
	var syntaxError *json.SyntaxError
	if stderrors.As(err, &syntaxError) {
		return errors.NewParsingError(
			fmt.Sprintf("JSON syntax error at offset %d", syntaxError.Offset),
			errors.ErrInvalidJSON,
		)
	}
	if stderrors.Is(err, io.EOF) || stderrors.Is(err, io.ErrUnexpectedEOF) {
		return errors.NewParsingError("unexpected end of JSON input", errors.ErrInvalidJSON)
	}
	return errors.NewParsingError("failed to decode JSON", stderrors.Join(errors.ErrInvalidJSON, err))
}

// Alias expansion may add at most aliasBaseBudget nodes plus aliasNodeRatio
// nodes per node in the source document.
const (
	aliasBaseBudget = 10000
	aliasNodeRatio  = 100
)

func parseYAML(data []byte) (models.Value, error) {
	decoder := yaml.NewDecoder(bytes.NewReader(data))

	var node yaml.Node
	if err := decoder.Decode(&node); err != nil || node.Kind == 0 {
		if err == nil || stderrors.Is(err, io.EOF) {
			return nil, errors.NewParsingError("input is empty or contains only whitespace", errors.ErrEmptyInput)
		}
		return nil, errors.NewParsingError("YAML syntax error", stderrors.Join(errors.ErrInvalidYAML, err))
	}

	var next yaml.Node
	if err := decoder.Decode(&next); err == nil {
		return nil, errors.NewParsingError(
			fmt.Sprintf("multiple YAML documents found, second starts at line %d", next.Line),
			errors.ErrMultipleYAML,
		)
	} else if !stderrors.Is(err, io.EOF) {
		return nil, errors.NewParsingError("YAML syntax error", stderrors.Join(errors.ErrInvalidYAML, err))
	}

	c := &yamlConverter{
		active: make(map[*yaml.Node]bool),
		limit:  aliasBaseBudget + aliasNodeRatio*countNodes(&node),
	}
	v, err := c.convert(&node)
	if err != nil {
		return nil, errors.NewParsingError("failed to convert YAML document", stderrors.Join(errors.ErrInvalidYAML, err))
	}
	return v, nil
}

// yamlConverter turns a yaml.Node tree into a Value, expanding aliases.
type yamlConverter struct {
	// active holds the collections currently being converted.
	active   map[*yaml.Node]bool
	expanded int
	limit    int
}

func (c *yamlConverter) convert(node *yaml.Node) (models.Value, error) {
	switch node.Kind {
	case yaml.DocumentNode:
		if len(node.Content) == 0 {
			return models.Null, nil
		}
		return c.convert(node.Content[0])
	case yaml.AliasNode:
		return c.expand(node)
	case yaml.SequenceNode:
		c.active[node] = true
		defer delete(c.active, node)

		seq := make(models.Sequence, 0, len(node.Content))
		for _, child := range node.Content {
			v, err := c.convert(child)
			if err != nil {
				return nil, err
			}
			seq = append(seq, v)
		}
		return seq, nil
	case yaml.MappingNode:
		c.active[node] = true
		defer delete(c.active, node)
		return c.mapping(node)
	case yaml.ScalarNode:
		return scalarValue(node)
	default:
		return nil, fmt.Errorf("line %d: unsupported YAML node kind %d", node.Line, node.Kind)
	}
}

func (c *yamlConverter) expand(alias *yaml.Node) (models.Value, error) {
	target := alias.Alias
	if target == nil {
		return nil, fmt.Errorf("line %d: unknown alias '*%s'", alias.Line, alias.Value)
	}
	if c.active[target] {
		return nil, fmt.Errorf("line %d: alias '*%s' contains itself", alias.Line, alias.Value)
	}
	c.expanded += countNodes(target)
	if c.expanded > c.limit {
		return nil, fmt.Errorf("line %d: too many alias expansions (more than %d nodes)", alias.Line, c.limit)
	}
	return c.convert(target)
}

func (c *yamlConverter) mapping(node *yaml.Node) (models.Value, error) {
	b := models.NewMappingBuilder(len(node.Content) / 2)

	// Merged entries go first so explicit keys override them.
	for i := 0; i+1 < len(node.Content); i += 2 {
		if isMergeKey(node.Content[i]) {
			if err := c.merge(b, node.Content[i+1]); err != nil {
				return nil, err
			}
		}
	}

	for i := 0; i+1 < len(node.Content); i += 2 {
		keyNode := node.Content[i]
		if isMergeKey(keyNode) {
			continue
		}
		if keyNode.Kind == yaml.AliasNode && keyNode.Alias != nil {
			keyNode = keyNode.Alias
		}
		if keyNode.Kind != yaml.ScalarNode {
			return nil, fmt.Errorf("line %d: only scalar mapping keys are supported", keyNode.Line)
		}
		v, err := c.convert(node.Content[i+1])
		if err != nil {
			return nil, err
		}
		b.Set(keyNode.Value, v)
	}
	return b.Mapping(), nil
}

// merge adds the entries of a '<<' value that are not already present.
// The value is a mapping or a sequence of mappings; earlier mappings win.
func (c *yamlConverter) merge(b *models.MappingBuilder, node *yaml.Node) error {
	v, err := c.convert(node)
	if err != nil {
		return err
	}

	var sources []models.Mapping
	switch val := v.(type) {
	case models.Mapping:
		sources = append(sources, val)
	case models.Sequence:
		for _, elem := range val {
			m, ok := elem.(models.Mapping)
			if !ok {
				return fmt.Errorf("line %d: merge sequence may only contain mappings", node.Line)
			}
			sources = append(sources, m)
		}
	default:
		return fmt.Errorf("line %d: merge value must be a mapping or a sequence of mappings", node.Line)
	}

	for _, m := range sources {
		for _, e := range m {
			if !b.Has(e.Key) {
				b.Set(e.Key, e.Value)
			}
		}
	}
	return nil
}

func isMergeKey(node *yaml.Node) bool {
	return node.Kind == yaml.ScalarNode && node.ShortTag() == "!!merge"
}

// scalarValue keeps the scalar's source text. Numbers that are valid JSON
// stay as json.Number and timestamps stay as strings so no precision or
// spelling is lost.
func scalarValue(node *yaml.Node) (models.Value, error) {
	lit := &models.Literal{Tag: node.Tag, Text: node.Value, Style: node.Style}

	switch node.ShortTag() {
	case "!!int", "!!float":
		if isJSONNumber(node.Value) {
			return models.Scalar{V: json.Number(node.Value), Lit: lit}, nil
		}
	case "!!timestamp":
		return models.Scalar{V: node.Value, Lit: lit}, nil
	}

	var v any
	if err := node.Decode(&v); err != nil {
		return nil, fmt.Errorf("line %d: %w", node.Line, err)
	}
	return models.Scalar{V: v, Lit: lit}, nil
}

func isJSONNumber(s string) bool {
	if s == "" || (s[0] != '-' && (s[0] < '0' || s[0] > '9')) {
		return false
	}
	return json.Valid([]byte(s))
}

// countNodes counts the nodes of the tree under n without following aliases.
func countNodes(n *yaml.Node) int {
	count := 1
	for _, child := range n.Content {
		count += countNodes(child)
	}
	return count
}
