// Package compiler turns a saved request and a server entry into the literal
// HTTP call that goes on the wire, and processes the response for bearer
// token auto-refresh.
//
// Compile runs these steps, in order, each returning an error instead of
// panicking on malformed input:
//
//  1. normalize the URL to a path (absolute URLs contribute path and query)
//  2. substitute {name} placeholders from the active path parameters
//  3. rebuild the query string from the active query rows
//  4. merge onto the server base URL, which must be selected
//  5. assemble headers and defaults
//  6. inject the server's credentials
package compiler

import (
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/blackcoderx/reqtree/pkg/apperr"
	"github.com/blackcoderx/reqtree/pkg/auth"
	"github.com/blackcoderx/reqtree/pkg/request"
)

// Header is one outgoing header. Order is preserved.
type Header struct {
	Key   string
	Value string
}

// Request is a compiled, literal HTTP call.
type Request struct {
	Method  request.Method
	URL     string
	Headers []Header
	// Body is nil when no body is sent.
	Body *string
}

// Header returns the value of the header named key, matched case-insensitively.
func (r *Request) Header(key string) (string, bool) {
	if i := r.headerIndex(key); i >= 0 {
		return r.Headers[i].Value, true
	}
	return "", false
}

// SetHeader replaces the value of an existing header, keeping its casing, or
// appends a new one.
func (r *Request) SetHeader(key, value string) {
	if i := r.headerIndex(key); i >= 0 {
		r.Headers[i].Value = value
		return
	}
	r.Headers = append(r.Headers, Header{Key: key, Value: value})
}

// AppendQuery appends an encoded key=value pair to the URL.
func (r *Request) AppendQuery(key, value string) {
	pair := url.QueryEscape(key) + "=" + url.QueryEscape(value)
	if strings.Contains(r.URL, "?") {
		r.URL += "&" + pair
		return
	}
	r.URL += "?" + pair
}

func (r *Request) headerIndex(key string) int {
	for i, h := range r.Headers {
		if strings.EqualFold(h.Key, key) {
			return i
		}
	}
	return -1
}

// HeaderMap returns the headers as a map, the shape transports expect.
func (r *Request) HeaderMap() map[string]string {
	m := make(map[string]string, len(r.Headers))
	for _, h := range r.Headers {
		m[h.Key] = h.Value
	}
	return m
}

// Echo returns the debug echo stored with a response.
func (r *Request) Echo() *request.Echo {
	e := &request.Echo{Method: string(r.Method), URL: r.URL, Headers: r.HeaderMap()}
	if r.Body != nil {
		e.Body = *r.Body
	}
	return e
}

// Curl renders the request as a curl command line.
func (r *Request) Curl() string {
	var sb strings.Builder
	sb.WriteString("curl -X " + string(r.Method) + " " + shellQuote(r.URL))
	for _, h := range r.Headers {
		sb.WriteString(" \\\n  -H " + shellQuote(h.Key+": "+h.Value))
	}
	if r.Body != nil {
		sb.WriteString(" \\\n  --data-raw " + shellQuote(*r.Body))
	}
	return sb.String()
}

func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// Compile produces the literal request for content sent to server.
// A nil server fails with apperr.ErrNoServer: an absolute content URL is
// reduced to its path and query like any other. The body is attached only
// for POST, PUT and PATCH and only when it is non-empty.
func Compile(content *request.Content, server *request.Server) (*Request, error) {
	const op = "compile"
	if content == nil {
		return nil, apperr.RequestBuild(op, apperr.ErrNotALeaf, "")
	}

	// 1. normalize
	raw := strings.TrimSpace(content.URL)
	var path string
	if isAbsolute(raw) {
		_, path = splitAbsolute(raw)
	} else {
		if raw == "" {
			return nil, apperr.RequestBuild(op, apperr.ErrEmptyPath, "")
		}
		path = raw
		if !strings.HasPrefix(path, "/") {
			path = "/" + path
		}
	}
	path, _, _ = strings.Cut(path, "#")
	path, _, _ = strings.Cut(path, "?")

	// 2. path parameters
	params := activeValues(content.PathParams)
	path = request.SubstitutePlaceholders(path, func(name string) (string, bool) {
		v, ok := params[name]
		return v, ok
	})

	// 3. query
	if query := request.EncodeQuery(content.QueryParams); query != "" {
		path += "?" + query
	}

	// 4. server merge
	var final string
	switch {
	case isAbsolute(path):
		final = path
	case server != nil:
		base, err := normalizeBaseURL(server.BaseURL)
		if err != nil {
			return nil, err
		}
		final = base + path
	default:
		return nil, apperr.RequestBuild(op, apperr.ErrNoServer, "")
	}

	req := &Request{Method: content.Method, URL: final}
	if req.Method == "" {
		req.Method = request.GET
	}

	// 5. headers
	explicitContentType := false
	for _, row := range content.Headers {
		if !row.Active() {
			continue
		}
		key := strings.TrimSpace(row.Key)
		if strings.EqualFold(key, "Content-Type") {
			explicitContentType = true
		}
		req.SetHeader(key, row.Value)
	}
	if _, ok := req.Header("Accept"); !ok {
		req.SetHeader("Accept", "*/*")
	}
	hasBody := req.Method.HasBody() && strings.TrimSpace(content.Body) != ""
	if hasBody && !explicitContentType {
		req.SetHeader("Content-Type", "application/json")
	}

	// 6. auth
	if server != nil {
		auth.Apply(server.Auth, req)
	}

	if req.Method.HasBody() && content.Body != "" {
		body := content.Body
		req.Body = &body
	}
	return req, nil
}

func isAbsolute(raw string) bool {
	lower := strings.ToLower(raw)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

// splitAbsolute splits an absolute URL into scheme://host and the rest, which
// always starts with '/'. Placeholders in the path are kept unescaped.
func splitAbsolute(raw string) (origin, rest string) {
	scheme, after, _ := strings.Cut(raw, "://")
	end := strings.IndexAny(after, "/?#")
	if end < 0 {
		return scheme + "://" + after, "/"
	}
	rest = after[end:]
	if !strings.HasPrefix(rest, "/") {
		rest = "/" + rest
	}
	return scheme + "://" + after[:end], rest
}

func normalizeBaseURL(raw string) (string, error) {
	base := strings.TrimSpace(raw)
	u, err := url.Parse(base)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", apperr.RequestBuild("compile", apperr.ErrInvalidBaseURL, "%q", base)
	}
	return strings.TrimRight(base, "/"), nil
}

// activeValues maps the trimmed key of each active row to its value; the
// first row for a key wins. Rows with a blank value are skipped so their
// placeholder stays in the path.
func activeValues(rows []request.Row) map[string]string {
	values := make(map[string]string, len(rows))
	for _, row := range rows {
		if !row.Active() {
			continue
		}
		if strings.TrimSpace(row.Value) == "" {
			continue
		}
		key := strings.TrimSpace(row.Key)
		if _, ok := values[key]; !ok {
			values[key] = row.Value
		}
	}
	return values
}

// String renders the request like an HTTP/1.1 message head, for debugging.
func (r *Request) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s %s\n", r.Method, r.URL)
	headers := append([]Header(nil), r.Headers...)
	sort.SliceStable(headers, func(i, j int) bool {
		return strings.ToLower(headers[i].Key) < strings.ToLower(headers[j].Key)
	})
	for _, h := range headers {
		fmt.Fprintf(&sb, "%s: %s\n", h.Key, h.Value)
	}
	if r.Body != nil {
		sb.WriteString("\n" + *r.Body)
	}
	return sb.String()
}
