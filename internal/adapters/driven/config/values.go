// Package config defines the settings key schema and the value handling
// shared by the config store adapters.
//
// Keys have the form <section>.<name>, where section is one of the
// settings tables written to config.toml. Values are normalised to the
// types the TOML decoder produces, so a value read back from disk has the
// same type as the one that was set.
package config

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/didact-labs/didact/internal/core/domain"
)

// Settings sections, one TOML table each.
const (
	SectionAnswer     = "answer"
	SectionRetrieval  = "retrieval"
	SectionEmbedding  = "embedding"
	SectionLLM        = "llm"
	SectionSummaryLLM = "summary_llm"
)

// Sections returns the known sections in file order.
func Sections() []string {
	return []string{SectionAnswer, SectionRetrieval, SectionEmbedding, SectionLLM, SectionSummaryLLM}
}

var keyPattern = regexp.MustCompile(`^([a-z_]+)\.([a-z][a-z0-9_]*)$`)

// CheckKey reports whether key names a setting in a known section.
func CheckKey(key string) error {
	m := keyPattern.FindStringSubmatch(key)
	if m == nil {
		return fmt.Errorf("%w: config key %q must look like section.name", domain.ErrInvalidInput, key)
	}
	if !KnownSection(m[1]) {
		return fmt.Errorf("%w: unknown config section %q (known: %s)",
			domain.ErrInvalidInput, m[1], strings.Join(Sections(), ", "))
	}
	return nil
}

// KnownSection reports whether name is a settings section.
func KnownSection(name string) bool {
	for _, s := range Sections() {
		if s == name {
			return true
		}
	}
	return false
}

// Normalize converts a value to its stored form: integers become int64,
// floats float64, durations their string form and string lists []string.
// Other types are rejected.
func Normalize(value any) (any, error) {
	switch v := value.(type) {
	case string, bool, int64, float64, []string:
		return v, nil
	case int:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case float32:
		return float64(v), nil
	case time.Duration:
		return v.String(), nil
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("%w: list values must be strings, got %T", domain.ErrInvalidInput, item)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: unsupported config value type %T", domain.ErrInvalidInput, value)
	}
}

// Values is a flat view of the settings keyed by dotted name.
type Values map[string]any

// String returns the value as a string, or "" when absent or not a string.
func (v Values) String(key string) string {
	s, _ := v[key].(string)
	return s
}

// Int returns the value as an int. Floats with no fractional part convert.
func (v Values) Int(key string) int {
	switch n := v[key].(type) {
	case int64:
		return int(n)
	case int:
		return n
	case float64:
		if n == float64(int64(n)) {
			return int(n)
		}
	}
	return 0
}

// Float returns the value as a float64. Integers convert, so
// "mmr_lambda = 1" reads as 1.0.
func (v Values) Float(key string) float64 {
	switch n := v[key].(type) {
	case float64:
		return n
	case int64:
		return float64(n)
	case int:
		return float64(n)
	}
	return 0
}

// Bool returns the value as a bool, or false when absent or not a bool.
func (v Values) Bool(key string) bool {
	b, _ := v[key].(bool)
	return b
}

// Strings returns a string list. Non-string items in a decoded array are dropped.
func (v Values) Strings(key string) []string {
	switch list := v[key].(type) {
	case []string:
		return list
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// Flatten turns decoded TOML tables into dotted keys.
// {"answer": {"evidence_k": 5}} becomes {"answer.evidence_k": 5}.
func Flatten(tables map[string]any) Values {
	out := make(Values)
	flattenInto(out, tables, "")
	return out
}

func flattenInto(out Values, m map[string]any, prefix string) {
	for k, val := range m {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if nested, ok := val.(map[string]any); ok {
			flattenInto(out, nested, key)
			continue
		}
		out[key] = val
	}
}

// Tables nests dotted keys back into TOML tables, the inverse of Flatten.
func (v Values) Tables() map[string]any {
	keys := make([]string, 0, len(v))
	for k := range v {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	root := make(map[string]any)
	for _, key := range keys {
		parts := strings.Split(key, ".")
		table := root
		for _, p := range parts[:len(parts)-1] {
			next, ok := table[p].(map[string]any)
			if !ok {
				next = make(map[string]any)
				table[p] = next
			}
			table = next
		}
		table[parts[len(parts)-1]] = v[key]
	}
	return root
}

// Unknown returns the keys outside the known sections, sorted.
func (v Values) Unknown() []string {
	var out []string
	for k := range v {
		section, _, _ := strings.Cut(k, ".")
		if !KnownSection(section) {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}
