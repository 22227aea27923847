// Package openapi converts between OpenAPI 3.x documents and request trees.
//
// Import reads YAML or JSON into a generic value, resolves local $refs and
// synthesizes example payloads from schemas. Export walks a tree back into a
// typed document serialized as YAML. Both directions are lossy by design of
// the two models, but an exported document re-imports to the same set of
// operations, parameters and bodies.
package openapi

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/blackcoderx/reqtree/pkg/apperr"
)

// parseDocument decodes document text into maps, slices and scalars. Text
// starting with '{' is read as JSON, anything else as YAML.
func parseDocument(text string) (map[string]any, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, apperr.Parse("import", nil, "document is empty")
	}

	var raw any
	if strings.HasPrefix(trimmed, "{") {
		dec := json.NewDecoder(strings.NewReader(trimmed))
		dec.UseNumber()
		if err := dec.Decode(&raw); err != nil {
			return nil, apperr.Parse("import", err, "JSON parse error")
		}
	} else if err := yaml.Unmarshal([]byte(trimmed), &raw); err != nil {
		return nil, apperr.Parse("import", err, "YAML parse error")
	}

	doc, ok := normalize(raw).(map[string]any)
	if !ok {
		return nil, apperr.Parse("import", nil, "document is not an object")
	}
	return doc, nil
}

// normalize rewrites YAML's map[any]any (produced by keys like `200:`) into
// map[string]any, recursively.
func normalize(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, child := range t {
			t[k] = normalize(child)
		}
		return t
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, child := range t {
			out[fmt.Sprint(k)] = normalize(child)
		}
		return out
	case []any:
		for i, child := range t {
			t[i] = normalize(child)
		}
		return t
	case time.Time:
		return t.Format(time.RFC3339)
	default:
		return v
	}
}

func mapOf(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}

func listOf(v any) []any {
	l, _ := v.([]any)
	return l
}

func stringOf(v any) string {
	s, _ := v.(string)
	return strings.TrimSpace(s)
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// scalarText renders an example value the way it is typed into a header or
// parameter cell: strings as-is, nil as empty, structures as compact JSON.
func scalarText(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case map[string]any, []any:
		b, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(b)
	default:
		return fmt.Sprint(t)
	}
}
