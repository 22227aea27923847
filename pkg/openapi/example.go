package openapi

import (
	"strings"
)

// maxSchemaDepth bounds the recursive schema walk.
const maxSchemaDepth = 6

// Synthesize builds an example value for a JSON Schema. schema may contain
// $refs into root; root may be nil when it has none.
func Synthesize(schema any, root map[string]any) any {
	return resolver{root: root}.synthesize(schema, 0)
}

// synthesize is a pure walk: enum picks its first value, composition picks
// its first variant, objects map each property, arrays hold one item and
// primitives take their zero value. Anything past maxSchemaDepth, or without
// a recognizable type, is nil.
func (r resolver) synthesize(schema any, depth int) any {
	if depth > maxSchemaDepth {
		return nil
	}
	s := r.resolveMap(schema)
	if s == nil {
		return nil
	}

	if enum := listOf(s["enum"]); len(enum) > 0 {
		return enum[0]
	}
	for _, key := range []string{"allOf", "oneOf", "anyOf"} {
		if variants := listOf(s[key]); len(variants) > 0 {
			return r.synthesize(variants[0], depth+1)
		}
	}

	typ := schemaType(s)
	props, hasProps := s["properties"].(map[string]any)
	if typ == "object" || hasProps {
		out := make(map[string]any, len(props))
		for name, prop := range props {
			out[name] = r.synthesize(prop, depth+1)
		}
		return out
	}

	switch typ {
	case "array":
		return []any{r.synthesize(s["items"], depth+1)}
	case "string":
		return ""
	case "integer":
		return 0
	case "number":
		return 0.0
	case "boolean":
		return false
	default:
		return nil
	}
}

// schemaType reads `type`, taking the first non-null entry of a type list.
func schemaType(s map[string]any) string {
	switch t := s["type"].(type) {
	case string:
		return strings.TrimSpace(t)
	case []any:
		for _, v := range t {
			if name := stringOf(v); name != "" && name != "null" {
				return name
			}
		}
	}
	return ""
}

// exampleSource says where an example value came from.
type exampleSource int

const (
	fromExample exampleSource = iota
	fromExamples
	fromSchema
	fromSynthesis
)

// explicit reports whether the value was written by the document author.
func (s exampleSource) explicit() bool {
	return s == fromExample || s == fromExamples
}

// pickExample selects a value for a media type or parameter object in order:
// `example`, the first entry of `examples` (unwrapping `value`), the schema's
// own `example` or `default`, and finally a synthesized value.
func (r resolver) pickExample(obj map[string]any) (any, exampleSource) {
	if v, ok := obj["example"]; ok {
		return v, fromExample
	}
	if examples := mapOf(obj["examples"]); len(examples) > 0 {
		first := r.resolve(examples[sortedKeys(examples)[0]])
		if m, ok := first.(map[string]any); ok {
			if v, ok := m["value"]; ok {
				return v, fromExamples
			}
		}
		return first, fromExamples
	}
	schema := r.resolveMap(obj["schema"])
	if v, ok := schema["example"]; ok {
		return v, fromSchema
	}
	if v, ok := schema["default"]; ok {
		return v, fromSchema
	}
	return r.synthesize(schema, 0), fromSynthesis
}
