package openapi

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/blackcoderx/reqtree/pkg/auth"
	"github.com/blackcoderx/reqtree/pkg/request"
	"github.com/blackcoderx/reqtree/pkg/tree"
)

// AuthExtension is the server-object field carrying a full auth descriptor.
const AuthExtension = "x-reqtree-auth"

// Result is an imported collection.
type Result struct {
	Root     *tree.Node
	Servers  []request.Server
	Warnings []string
}

// Import parses an OpenAPI 3.x document into a request tree and server list.
// A malformed document is a parse error and yields no partial result.
func Import(text string) (*Result, error) {
	doc, err := parseDocument(text)
	if err != nil {
		return nil, err
	}
	im := &importer{resolver: resolver{root: doc}}
	return im.run(), nil
}

type importer struct {
	resolver
	warnings []string
}

func (im *importer) warn(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	slog.Warn("openapi import", "warning", msg)
	im.warnings = append(im.warnings, msg)
}

func (im *importer) run() *Result {
	title := stringOf(mapOf(im.root["info"])["title"])
	if title == "" {
		title = "OpenAPI"
	}

	paths := mapOf(im.root["paths"])
	folders := map[string]*tree.Node{}
	var untagged []*tree.Node

	for _, key := range sortedKeys(paths) {
		item := im.resolveMap(paths[key])
		if item == nil {
			im.warn("path %s is not an object", key)
			continue
		}
		shared := listOf(item["parameters"])
		for _, method := range request.Methods {
			op := im.resolveMap(item[method.Key()])
			if op == nil {
				continue
			}
			leaf := im.leaf(method, key, op, shared)
			tag := ""
			if tags := listOf(op["tags"]); len(tags) > 0 {
				tag = scalarText(tags[0])
			}
			if tag == "" {
				untagged = append(untagged, leaf)
				continue
			}
			folder, ok := folders[tag]
			if !ok {
				folder = tree.NewFolder(tag)
				folder.Expanded = true
				folders[tag] = folder
			}
			folder.Children = append(folder.Children, leaf)
		}
	}

	root := tree.NewRoot(title)
	names := make([]string, 0, len(folders))
	for name := range folders {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		root.Children = append(root.Children, folders[name])
	}
	root.Children = append(root.Children, untagged...)

	return &Result{
		Root:     root,
		Servers:  im.servers(len(paths) > 0),
		Warnings: im.warnings,
	}
}

func (im *importer) servers(hasPaths bool) []request.Server {
	var fallback auth.Descriptor
	defaultAuth := func() auth.Descriptor {
		if fallback == nil {
			fallback = im.defaultAuth()
		}
		return fallback
	}

	var servers []request.Server
	for _, entry := range listOf(im.root["servers"]) {
		server := im.resolveMap(entry)
		base := stringOf(server["url"])
		if base == "" {
			continue
		}
		base = substituteVariables(base, mapOf(server["variables"]))

		d := defaultAuth()
		if ext := mapOf(server[AuthExtension]); ext != nil {
			if parsed, err := auth.FromMap(ext); err != nil {
				im.warn("server %s: %v", base, err)
			} else {
				d = parsed
			}
		}
		servers = append(servers, request.Server{BaseURL: base, Auth: d})
	}
	if len(servers) == 0 && hasPaths {
		servers = append(servers, request.Server{BaseURL: "http://localhost", Auth: defaultAuth()})
	}
	return servers
}

// substituteVariables fills {name} in a server URL with each variable's default.
func substituteVariables(base string, variables map[string]any) string {
	if len(variables) == 0 {
		return base
	}
	return request.SubstitutePlaceholdersRaw(base, func(name string) (string, bool) {
		v := mapOf(variables[name])
		if v == nil {
			return "", false
		}
		def, ok := v["default"]
		return scalarText(def), ok
	})
}

func (im *importer) leaf(method request.Method, key string, op map[string]any, shared []any) *tree.Node {
	path := key
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	content := request.NewContent(method, path)
	for _, param := range im.parameters(shared, listOf(op["parameters"])) {
		name := stringOf(param["name"])
		value, _ := im.pickExample(param)
		switch strings.ToLower(stringOf(param["in"])) {
		case "query":
			content.QueryParams = append(content.QueryParams, request.Row{Enabled: true, Key: name, Value: scalarText(value)})
		case "header":
			content.Headers = append(content.Headers, request.Row{Enabled: true, Key: name, Value: scalarText(value)})
		}
	}

	if body := im.resolveMap(op["requestBody"]); body != nil {
		im.requestBody(content, method, path, body)
	}

	label := stringOf(op["summary"])
	if label == "" {
		label = stringOf(op["operationId"])
	}
	if label == "" {
		label = string(method) + " " + path
	}
	return tree.NewLeaf(label, content)
}

// parameters merges path-item parameters under operation parameters; an
// operation parameter replaces a shared one with the same (in, name).
func (im *importer) parameters(shared, own []any) []map[string]any {
	type key struct{ in, name string }
	var out []map[string]any
	index := map[key]int{}
	add := func(raw any, override bool) {
		param := im.resolveMap(raw)
		name := stringOf(param["name"])
		if name == "" {
			return
		}
		k := key{strings.ToLower(stringOf(param["in"])), name}
		if i, ok := index[k]; ok {
			if override {
				out[i] = param
			}
			return
		}
		index[k] = len(out)
		out = append(out, param)
	}
	for _, p := range shared {
		add(p, false)
	}
	for _, p := range own {
		add(p, true)
	}
	return out
}

func (im *importer) requestBody(content *request.Content, method request.Method, path string, body map[string]any) {
	media := mapOf(body["content"])
	if len(media) == 0 {
		return
	}
	contentType := "application/json"
	if _, ok := media[contentType]; !ok {
		contentType = sortedKeys(media)[0]
	}
	mediaType := im.resolveMap(media[contentType])

	value, source := im.pickExample(mediaType)
	if source.explicit() {
		if schema := mediaType["schema"]; schema != nil {
			for _, problem := range im.conformance(schema, value) {
				im.warn("%s %s: example does not match schema: %s", method, path, problem)
			}
		}
	}

	content.Body = renderBody(contentType, value)
	setRow(&content.Headers, "Content-Type", contentType)
}

// renderBody pretty-prints JSON payloads and passes other text through.
func renderBody(contentType string, value any) string {
	if s, ok := value.(string); ok {
		if !strings.Contains(strings.ToLower(contentType), "json") {
			return s
		}
		if formatted, ok := request.FormatBody(s); ok {
			return formatted
		}
	}
	if value == nil {
		return ""
	}
	b, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return scalarText(value)
	}
	return string(b)
}

// setRow replaces the value of a row with a case-insensitively equal key, or
// appends an enabled row.
func setRow(rows *[]request.Row, key, value string) {
	for i, row := range *rows {
		if strings.EqualFold(strings.TrimSpace(row.Key), key) {
			(*rows)[i].Value = value
			return
		}
	}
	*rows = append(*rows, request.Row{Enabled: true, Key: key, Value: value})
}
