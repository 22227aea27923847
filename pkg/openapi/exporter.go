package openapi

import (
	"bytes"
	"encoding/json"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/blackcoderx/reqtree/pkg/apperr"
	"github.com/blackcoderx/reqtree/pkg/auth"
	"github.com/blackcoderx/reqtree/pkg/request"
	"github.com/blackcoderx/reqtree/pkg/tree"
)

// ExportOptions controls what Export writes.
type ExportOptions struct {
	// IncludeSecrets writes API key values, passwords and tokens into
	// x-reqtree-auth.
	IncludeSecrets bool
}

// Export renders the tree and servers as OpenAPI 3.0 YAML.
func Export(root *tree.Node, servers []request.Server, opts ExportOptions) (string, error) {
	doc, err := BuildDocument(root, servers, opts)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return "", apperr.Validation("export", err, "cannot serialize document")
	}
	if err := enc.Close(); err != nil {
		return "", apperr.Validation("export", err, "cannot serialize document")
	}
	return buf.String(), nil
}

// BuildDocument walks the tree into a Document. Top-level leaves become
// untagged operations; every leaf under a top-level folder is tagged with
// that folder's label. The first occurrence of a (method, path) pair wins.
func BuildDocument(root *tree.Node, servers []request.Server, opts ExportOptions) (*Document, error) {
	if root == nil || len(root.Children) == 0 {
		return nil, apperr.Validation("export", apperr.ErrEmptyTree, "")
	}

	title := strings.TrimSpace(root.Label)
	if title == "" {
		title = "OpenAPI"
	}
	doc := &Document{
		OpenAPI: "3.0.3",
		Info:    Info{Title: title, Version: "1.0.0"},
		Paths:   map[string]*PathItem{},
	}

	type opKey struct{ method, path string }
	seen := map[opKey]bool{}
	tagged := map[string]bool{}
	count := 0

	add := func(leaf *tree.Node, tag string) {
		method := leaf.Content.Method
		if method == "" {
			method = request.GET
		}
		path := normalizePath(leaf.Content.URL)
		k := opKey{method.Key(), path}
		if seen[k] {
			return
		}
		seen[k] = true

		item, ok := doc.Paths[path]
		if !ok {
			item = &PathItem{}
			doc.Paths[path] = item
		}
		op := buildOperation(leaf, path)
		if tag != "" {
			op.Tags = []string{tag}
			if !tagged[tag] {
				tagged[tag] = true
				doc.Tags = append(doc.Tags, Tag{Name: tag})
			}
		}
		*item.operation(method.Key()) = op
		count++
	}

	for _, child := range root.Children {
		if child.IsLeaf() {
			add(child, "")
			continue
		}
		tag := strings.TrimSpace(child.Label)
		child.Walk(func(_ tree.Path, n *tree.Node) bool {
			if n.IsLeaf() {
				add(n, tag)
			}
			return true
		})
	}
	if count == 0 {
		return nil, apperr.Validation("export", apperr.ErrNoOperations, "")
	}

	schemes := newSchemeSet()
	urls := map[string]bool{}
	for _, s := range servers {
		base := strings.TrimSpace(s.BaseURL)
		if base == "" || urls[base] {
			continue
		}
		urls[base] = true
		entry := Server{URL: base}
		if !auth.IsNone(s.Auth) {
			entry.Auth = auth.ToMap(s.Auth, opts.IncludeSecrets)
			schemes.add(s.Auth)
		}
		doc.Servers = append(doc.Servers, entry)
	}
	doc.Components = schemes.components()
	doc.Security = schemes.requirement()
	return doc, nil
}

// normalizePath reduces a request URL to the path key of its operation:
// absolute URLs lose scheme and host, query and fragment are dropped.
func normalizePath(raw string) string {
	path := strings.TrimSpace(raw)
	lower := strings.ToLower(path)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		_, after, _ := strings.Cut(path, "://")
		if i := strings.IndexAny(after, "/?#"); i >= 0 {
			path = after[i:]
		} else {
			path = ""
		}
	}
	path, _, _ = strings.Cut(path, "#")
	path, _, _ = strings.Cut(path, "?")
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return path
}

var excludedHeaders = map[string]bool{
	"content-type":  true,
	"accept":        true,
	"authorization": true,
}

func buildOperation(leaf *tree.Node, path string) *Operation {
	c := leaf.Content
	op := &Operation{
		Summary:   leaf.Label,
		Responses: map[string]Response{"200": {Description: "OK"}},
	}

	// Every placeholder needs a path parameter, with or without a row.
	values := map[string]string{}
	for _, row := range c.PathParams {
		key := strings.TrimSpace(row.Key)
		if _, ok := values[key]; row.Active() && !ok {
			values[key] = row.Value
		}
	}
	for _, name := range request.Placeholders(path) {
		p := Parameter{Name: name, In: "path", Required: true, Schema: stringSchema()}
		if v := values[name]; v != "" {
			p.Example = v
		}
		op.Parameters = append(op.Parameters, p)
	}

	query := c.QueryParams
	if !hasActive(query) {
		query = request.ParamsFromURL(c.URL)
	}
	op.Parameters = append(op.Parameters, rowParameters(query, "query", nil)...)
	op.Parameters = append(op.Parameters, rowParameters(c.Headers, "header", excludedHeaders)...)

	if body := strings.TrimSpace(c.Body); body != "" {
		op.RequestBody = buildRequestBody(body)
	}
	return op
}

func hasActive(rows []request.Row) bool {
	for _, row := range rows {
		if row.Active() {
			return true
		}
	}
	return false
}

func rowParameters(rows []request.Row, in string, exclude map[string]bool) []Parameter {
	var params []Parameter
	seen := map[string]bool{}
	for _, row := range rows {
		if !row.Active() {
			continue
		}
		name := strings.TrimSpace(row.Key)
		lower := strings.ToLower(name)
		if exclude[lower] || seen[lower] {
			continue
		}
		seen[lower] = true
		p := Parameter{Name: name, In: in, Schema: stringSchema()}
		if row.Value != "" {
			p.Example = row.Value
		}
		params = append(params, p)
	}
	return params
}

func stringSchema() map[string]any {
	return map[string]any{"type": "string"}
}

// buildRequestBody embeds body as a JSON example with an inferred schema when
// it parses as JSON, else as a text/plain string.
func buildRequestBody(body string) *RequestBody {
	dec := json.NewDecoder(strings.NewReader(body))
	dec.UseNumber()
	var value any
	if err := dec.Decode(&value); err == nil && !dec.More() {
		value = plainNumbers(value)
		return &RequestBody{Content: map[string]MediaType{
			"application/json": {Schema: inferSchema(value), Example: value},
		}}
	}
	return &RequestBody{Content: map[string]MediaType{
		"text/plain": {Schema: stringSchema(), Example: body},
	}}
}

// plainNumbers converts json.Number into int64 or float64 so YAML writes
// numbers rather than strings.
func plainNumbers(v any) any {
	switch t := v.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		f, _ := t.Float64()
		return f
	case map[string]any:
		for k, child := range t {
			t[k] = plainNumbers(child)
		}
		return t
	case []any:
		for i, child := range t {
			t[i] = plainNumbers(child)
		}
		return t
	default:
		return v
	}
}

// inferSchema describes a decoded JSON value so the embedded example
// validates against its own schema.
func inferSchema(v any) map[string]any {
	switch t := v.(type) {
	case map[string]any:
		props := make(map[string]any, len(t))
		for k, child := range t {
			props[k] = inferSchema(child)
		}
		return map[string]any{"type": "object", "properties": props}
	case []any:
		items := map[string]any{}
		if len(t) > 0 {
			items = inferSchema(t[0])
		}
		return map[string]any{"type": "array", "items": items}
	case string:
		return stringSchema()
	case int64:
		return map[string]any{"type": "integer"}
	case float64:
		return map[string]any{"type": "number"}
	case bool:
		return map[string]any{"type": "boolean"}
	default:
		return map[string]any{"nullable": true}
	}
}
