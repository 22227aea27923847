package openapi

import (
	"net/url"
	"strconv"
	"strings"
)

// maxRefDepth bounds chains of $ref hops.
const maxRefDepth = 8

// resolver looks up local JSON-pointer references against a document root.
type resolver struct {
	root map[string]any
}

// resolve follows v's $ref chain. A ref that does not resolve, or a chain
// longer than maxRefDepth, yields the last object still holding a $ref.
func (r resolver) resolve(v any) any {
	return r.resolveDepth(v, 0)
}

func (r resolver) resolveDepth(v any, depth int) any {
	m, ok := v.(map[string]any)
	if !ok {
		return v
	}
	ref, ok := m["$ref"].(string)
	if !ok {
		return v
	}
	if depth >= maxRefDepth {
		return m
	}
	target, ok := r.lookup(ref)
	if !ok {
		return m
	}
	return r.resolveDepth(target, depth+1)
}

// resolveMap is resolve for values expected to be objects.
func (r resolver) resolveMap(v any) map[string]any {
	return mapOf(r.resolve(v))
}

// lookup evaluates a "#/a/b/0" pointer. External refs are not followed.
func (r resolver) lookup(ref string) (any, bool) {
	pointer, ok := strings.CutPrefix(strings.TrimSpace(ref), "#")
	if !ok {
		return nil, false
	}
	if pointer == "" {
		return r.root, true
	}
	if !strings.HasPrefix(pointer, "/") {
		return nil, false
	}

	var cur any = r.root
	for _, token := range strings.Split(pointer[1:], "/") {
		if unescaped, err := url.PathUnescape(token); err == nil {
			token = unescaped
		}
		token = strings.ReplaceAll(token, "~1", "/")
		token = strings.ReplaceAll(token, "~0", "~")

		switch node := cur.(type) {
		case map[string]any:
			next, ok := node[token]
			if !ok {
				return nil, false
			}
			cur = next
		case []any:
			i, err := strconv.Atoi(token)
			if err != nil || i < 0 || i >= len(node) {
				return nil, false
			}
			cur = node[i]
		default:
			return nil, false
		}
	}
	return cur, true
}

// inline returns a copy of schema with every reachable $ref replaced by its
// target, up to maxSchemaDepth levels. Refs left over are dropped, leaving an
// unconstrained schema, so the result is self-contained.
func (r resolver) inline(schema any, depth int) any {
	if depth > maxSchemaDepth {
		return map[string]any{}
	}
	switch t := r.resolve(schema).(type) {
	case map[string]any:
		if _, unresolved := t["$ref"]; unresolved {
			return map[string]any{}
		}
		out := make(map[string]any, len(t))
		for k, v := range t {
			out[k] = r.inline(v, depth+1)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, v := range t {
			out[i] = r.inline(v, depth+1)
		}
		return out
	default:
		return t
	}
}
