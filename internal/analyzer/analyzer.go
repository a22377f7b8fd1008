package analyzer

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/mcncl/keycase/internal/models"
)

// Collision describes keys of one mapping that share a normalized form.
// Only the last of Sources survives normalization.
type Collision struct {
	Path    string   // location of the mapping, e.g. "$.users[0]"
	Key     string   // normalized key
	Sources []string // original keys in enumeration order
}

func (c Collision) String() string {
	return fmt.Sprintf("%s: %s <- %s", c.Path, c.Key, strings.Join(c.Sources, ", "))
}

// Report summarizes the shape of a document
type Report struct {
	Mappings   int
	Sequences  int
	Keys       int
	Strings    int
	Integers   int
	Floats     int
	Booleans   int
	Nulls      int
	MaxDepth   int
	Collisions []Collision
}

// Scalars returns the number of leaf values
func (r Report) Scalars() int {
	return r.Strings + r.Integers + r.Floats + r.Booleans + r.Nulls
}

// Analyzer walks a document and reports what normalization would do to it
type Analyzer struct {
	// key is the transform normalization applies to mapping keys
	key    func(string) string
	report Report
}

// NewAnalyzer creates a new Analyzer. A nil key func means strings.ToLower.
func NewAnalyzer(key func(string) string) *Analyzer {
	if key == nil {
		key = strings.ToLower
	}
	return &Analyzer{key: key}
}

// Analyze walks v and returns its report. The Analyzer can be reused.
func (a *Analyzer) Analyze(v models.Value) Report {
	a.report = Report{}
	a.analyzeNode(v, "$", 0)
	return a.report
}

func (a *Analyzer) analyzeNode(node models.Value, path string, depth int) {
	if depth > a.report.MaxDepth {
		a.report.MaxDepth = depth
	}

	switch v := node.(type) {
	case models.Mapping:
		a.report.Mappings++
		a.report.Keys += len(v)
		a.analyzeMapping(v, path, depth)
	case models.Sequence:
		a.report.Sequences++
		for i, elem := range v {
			a.analyzeNode(elem, fmt.Sprintf("%s[%d]", path, i), depth+1)
		}
	case models.Scalar:
		a.analyzeScalar(v.V)
	case nil:
		a.report.Nulls++
	}
}

func (a *Analyzer) analyzeMapping(m models.Mapping, path string, depth int) {
	groups := make(map[string][]string, len(m))
	for _, e := range m {
		k := a.key(e.Key)
		groups[k] = append(groups[k], e.Key)
		a.analyzeNode(e.Value, path+"."+e.Key, depth+1)
	}

	// Sorted for deterministic output.
	keys := make([]string, 0, len(groups))
	for k, sources := range groups {
		if len(sources) > 1 {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		a.report.Collisions = append(a.report.Collisions, Collision{Path: path, Key: k, Sources: groups[k]})
	}
}

func (a *Analyzer) analyzeScalar(v any) {
	switch val := v.(type) {
	case nil:
		a.report.Nulls++
	case bool:
		a.report.Booleans++
	case string:
		a.report.Strings++
	case json.Number:
		if _, err := val.Int64(); err == nil {
			a.report.Integers++
		} else {
			a.report.Floats++
		}
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		a.report.Integers++
	case float32, float64:
		a.report.Floats++
	default:
		// Anything else (e.g. time.Time from FromAny) is reported as a string.
		a.report.Strings++
	}
}
