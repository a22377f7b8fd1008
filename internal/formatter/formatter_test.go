package formatter

import (
	"encoding/json"
	"testing"

	"github.com/mcncl/keycase/internal/errors"
	"github.com/mcncl/keycase/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func sampleDocument() models.Value {
	return models.Mapping{
		{Key: "name", Value: models.Scalar{V: "web"}},
		{Key: "replicas", Value: models.Scalar{V: json.Number("3")}},
		{Key: "tags", Value: models.Sequence{models.Scalar{V: "a"}}},
		{Key: "owner", Value: models.Null},
	}
}

func TestFormat_JSON(t *testing.T) {
	formatter, err := NewFormatter(JSON, 2)
	require.NoError(t, err)

	formatted, err := formatter.Format(sampleDocument())
	require.NoError(t, err)

	expectedOutput := `{
  "name": "web",
  "replicas": 3,
  "tags": [
    "a"
  ],
  "owner": null
}
`
	assert.Equal(t, expectedOutput, formatted)
}

func TestFormat_JSONKeepsEntryOrder(t *testing.T) {
	formatter, err := NewFormatter("", 0)
	require.NoError(t, err)

	formatted, err := formatter.Format(models.Mapping{
		{Key: "z", Value: models.Scalar{V: json.Number("1")}},
		{Key: "a", Value: models.Scalar{V: json.Number("2")}},
	})
	require.NoError(t, err)

	assert.Equal(t, "{\n  \"z\": 1,\n  \"a\": 2\n}\n", formatted)
}

func TestFormat_YAML(t *testing.T) {
	formatter, err := NewFormatter(YAML, 2)
	require.NoError(t, err)

	formatted, err := formatter.Format(sampleDocument())
	require.NoError(t, err)

	expectedOutput := `name: web
replicas: 3
tags:
  - a
owner: null
`
	assert.Equal(t, expectedOutput, formatted)
}

func TestFormat_YAMLQuotesAmbiguousStrings(t *testing.T) {
	formatter, err := NewFormatter("yml", 2)
	require.NoError(t, err)

	formatted, err := formatter.Format(models.Mapping{
		{Key: "true", Value: models.Scalar{V: "123"}},
		{Key: "ratio", Value: models.Scalar{V: json.Number("0.25")}},
	})
	require.NoError(t, err)

	assert.Equal(t, "\"true\": \"123\"\nratio: 0.25\n", formatted)
}

func TestFormat_Scalars(t *testing.T) {
	formatter, err := NewFormatter(JSON, 2)
	require.NoError(t, err)

	tests := []struct {
		name     string
		value    models.Value
		expected string
	}{
		{"null", models.Null, "null\n"},
		{"nil value", nil, "null\n"},
		{"string", models.Scalar{V: "X"}, "\"X\"\n"},
		{"number", models.Scalar{V: json.Number("42")}, "42\n"},
		{"empty mapping", models.Mapping{}, "{}\n"},
		{"empty sequence", models.Sequence{}, "[]\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			formatted, err := formatter.Format(tt.value)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, formatted)
		})
	}
}

func TestNewFormatter_UnsupportedFormat(t *testing.T) {
	_, err := NewFormatter("xml", 2)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrUnsupportedFormat)
}

func TestFormat_JSONDoesNotEscapeHTML(t *testing.T) {
	formatter, err := NewFormatter(JSON, 2)
	require.NoError(t, err)

	formatted, err := formatter.Format(models.Mapping{
		{Key: "<a & b>", Value: models.Scalar{V: "x < y && y > z"}},
		{Key: "list", Value: models.Sequence{models.Scalar{V: "&amp;"}}},
	})
	require.NoError(t, err)

	expected := `{
  "<a & b>": "x < y && y > z",
  "list": [
    "&amp;"
  ]
}
`
	assert.Equal(t, expected, formatted)
	assert.NotContains(t, formatted, `\u00`)
}

func TestFormat_YAMLWritesLiteralScalars(t *testing.T) {
	formatter, err := NewFormatter(YAML, 2)
	require.NoError(t, err)

	formatted, err := formatter.Format(models.Mapping{
		{Key: "version", Value: models.Scalar{V: json.Number("1.10"), Lit: &models.Literal{Tag: "!!float", Text: "1.10"}}},
		{Key: "mask", Value: models.Scalar{V: 31, Lit: &models.Literal{Tag: "!!int", Text: "0x1F"}}},
		{Key: "date", Value: models.Scalar{V: "2024-01-01", Lit: &models.Literal{Tag: "!!timestamp", Text: "2024-01-01"}}},
		{Key: "quoted", Value: models.Scalar{V: "123", Lit: &models.Literal{Tag: "!!str", Text: "123", Style: yaml.SingleQuotedStyle}}},
	})
	require.NoError(t, err)

	assert.Equal(t, "version: 1.10\nmask: 0x1F\ndate: 2024-01-01\nquoted: '123'\n", formatted)
}
