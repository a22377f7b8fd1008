package analyzer

import (
	"testing"

	"github.com/iancoleman/strcase"
	"github.com/mcncl/keycase/internal/models"
	"github.com/mcncl/keycase/internal/parser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyze_SimpleObject(t *testing.T) {
	jsonInput := `{"name": "John Doe", "age": 30, "is_student": false, "score": 99.5, "city": null}`
	doc, err := parser.ParseString(jsonInput, parser.FormatJSON)
	require.NoError(t, err)

	report := NewAnalyzer(nil).Analyze(doc.Root)

	assert.Equal(t, 1, report.Mappings)
	assert.Equal(t, 0, report.Sequences)
	assert.Equal(t, 5, report.Keys)
	assert.Equal(t, 1, report.Strings)
	assert.Equal(t, 1, report.Integers)
	assert.Equal(t, 1, report.Floats)
	assert.Equal(t, 1, report.Booleans)
	assert.Equal(t, 1, report.Nulls)
	assert.Equal(t, 5, report.Scalars())
	assert.Equal(t, 1, report.MaxDepth)
	assert.Empty(t, report.Collisions)
}

func TestAnalyze_NestedCollisions(t *testing.T) {
	jsonInput := `{
		"Users": [
			{"ID": 1, "id": 2, "Name": "a", "NAME": "b", "name": "c"},
			{"id": 3}
		],
		"users": []
	}`
	doc, err := parser.ParseString(jsonInput, parser.FormatJSON)
	require.NoError(t, err)

	report := NewAnalyzer(nil).Analyze(doc.Root)

	expected := []Collision{
		{Path: "$", Key: "users", Sources: []string{"Users", "users"}},
		{Path: "$.Users[0]", Key: "id", Sources: []string{"ID", "id"}},
		{Path: "$.Users[0]", Key: "name", Sources: []string{"Name", "NAME", "name"}},
	}
	assert.ElementsMatch(t, expected, report.Collisions)
	assert.Equal(t, 3, report.MaxDepth)
	assert.Equal(t, 3, report.Mappings)
	assert.Equal(t, 2, report.Sequences)
}

func TestAnalyze_CustomKeyFunc(t *testing.T) {
	root := models.Mapping{
		{Key: "userId", Value: models.Scalar{V: 1}},
		{Key: "user_id", Value: models.Scalar{V: 2}},
		{Key: "UserID", Value: models.Scalar{V: 3}},
	}

	report := NewAnalyzer(strcase.ToSnake).Analyze(root)

	require.Len(t, report.Collisions, 1)
	assert.Equal(t, "user_id", report.Collisions[0].Key)
	assert.Equal(t, []string{"userId", "user_id", "UserID"}, report.Collisions[0].Sources)
	assert.Equal(t, "$: user_id <- userId, user_id, UserID", report.Collisions[0].String())
	assert.Equal(t, 3, report.Integers)
}

func TestAnalyze_Scalars(t *testing.T) {
	tests := []struct {
		name  string
		value models.Value
		check func(t *testing.T, r Report)
	}{
		{"nil value", nil, func(t *testing.T, r Report) { assert.Equal(t, 1, r.Nulls) }},
		{"null", models.Null, func(t *testing.T, r Report) { assert.Equal(t, 1, r.Nulls) }},
		{"float", models.Scalar{V: 1.5}, func(t *testing.T, r Report) { assert.Equal(t, 1, r.Floats) }},
		{"uint", models.Scalar{V: uint64(7)}, func(t *testing.T, r Report) { assert.Equal(t, 1, r.Integers) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewAnalyzer(nil).Analyze(tt.value)
			assert.Equal(t, 0, r.MaxDepth)
			tt.check(t, r)
		})
	}
}

func TestAnalyzer_Reuse(t *testing.T) {
	a := NewAnalyzer(nil)
	a.Analyze(models.Mapping{{Key: "A", Value: models.Null}, {Key: "a", Value: models.Null}})

	report := a.Analyze(models.Sequence{})
	assert.Empty(t, report.Collisions)
	assert.Equal(t, 1, report.Sequences)
}
