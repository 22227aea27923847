package request

import (
	"bytes"
	"encoding/json"
	"net/url"
	"regexp"
	"strings"
)

// placeholderPattern matches {name} tokens in a URL path template.
var placeholderPattern = regexp.MustCompile(`\{([^{}/?#]+)\}`)

// Placeholders returns the distinct {name} tokens of a URL template, in order
// of first appearance. The query string is not searched.
func Placeholders(rawURL string) []string {
	path, _, _ := strings.Cut(rawURL, "?")
	var names []string
	seen := make(map[string]bool)
	for _, m := range placeholderPattern.FindAllStringSubmatch(path, -1) {
		name := strings.TrimSpace(m[1])
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}
	return names
}

// SubstitutePlaceholders replaces every {name} token with the path-escaped
// value from lookup. Tokens lookup does not know are left verbatim.
func SubstitutePlaceholders(template string, lookup func(name string) (string, bool)) string {
	return substitute(template, lookup, url.PathEscape)
}

// SubstitutePlaceholdersRaw is SubstitutePlaceholders without escaping, for
// templates such as server URLs whose variables hold URL fragments.
func SubstitutePlaceholdersRaw(template string, lookup func(name string) (string, bool)) string {
	return substitute(template, lookup, func(s string) string { return s })
}

func substitute(template string, lookup func(name string) (string, bool), escape func(string) string) string {
	return placeholderPattern.ReplaceAllStringFunc(template, func(token string) string {
		name := strings.TrimSpace(token[1 : len(token)-1])
		if value, ok := lookup(name); ok {
			return escape(value)
		}
		return token
	})
}

// SyncPathParams rebuilds c.PathParams so that it holds exactly one row per
// placeholder in c.URL, in placeholder order. Existing rows keep their value
// and enabled flag; new placeholders get an enabled, empty row.
func (c *Content) SyncPathParams() {
	existing := make(map[string]Row, len(c.PathParams))
	for _, row := range c.PathParams {
		key := strings.TrimSpace(row.Key)
		if _, ok := existing[key]; !ok {
			existing[key] = row
		}
	}
	names := Placeholders(c.URL)
	var rows []Row
	for _, name := range names {
		if row, ok := existing[name]; ok {
			row.Key = name
			rows = append(rows, row)
			continue
		}
		rows = append(rows, Row{Enabled: true, Key: name})
	}
	c.PathParams = rows
}

// ParamsFromURL parses the literal query string of rawURL into enabled rows.
// A URL without a query yields no rows.
func ParamsFromURL(rawURL string) []Row {
	_, query, ok := strings.Cut(rawURL, "?")
	if !ok {
		return nil
	}
	query, _, _ = strings.Cut(query, "#")
	var rows []Row
	for _, pair := range strings.Split(query, "&") {
		if pair == "" {
			continue
		}
		key, value, _ := strings.Cut(pair, "=")
		if k, err := url.QueryUnescape(key); err == nil {
			key = k
		}
		if v, err := url.QueryUnescape(value); err == nil {
			value = v
		}
		rows = append(rows, Row{Enabled: true, Key: key, Value: value})
	}
	return rows
}

// EncodeQuery serializes the active rows, in row order, as a form-encoded
// query string without the leading '?'.
func EncodeQuery(rows []Row) string {
	var parts []string
	for _, row := range rows {
		if !row.Active() {
			continue
		}
		parts = append(parts, url.QueryEscape(strings.TrimSpace(row.Key))+"="+url.QueryEscape(row.Value))
	}
	return strings.Join(parts, "&")
}

// URLWithParams replaces the literal query of rawURL with the active rows.
func URLWithParams(rawURL string, rows []Row) string {
	base, _, _ := strings.Cut(rawURL, "?")
	if query := EncodeQuery(rows); query != "" {
		return base + "?" + query
	}
	return base
}

// EnsureTrailingRow appends an empty enabled row unless the table already ends
// with one, so an editor always has a blank line to type into.
func EnsureTrailingRow(rows []Row) []Row {
	if n := len(rows); n > 0 {
		last := rows[n-1]
		if last.Enabled && strings.TrimSpace(last.Key) == "" && strings.TrimSpace(last.Value) == "" {
			return rows
		}
	}
	return append(rows, Row{Enabled: true})
}

// FormatBody pretty-prints a JSON body with two-space indentation. Bodies
// that are not JSON are returned unchanged with ok set to false.
func FormatBody(body string) (formatted string, ok bool) {
	trimmed := strings.TrimSpace(body)
	if trimmed == "" || !json.Valid([]byte(trimmed)) {
		return body, false
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, []byte(trimmed), "", "  "); err != nil {
		return body, false
	}
	return buf.String(), true
}

// NewContent returns a request with the path parameters of rawURL seeded
// and its literal query parsed into query rows.
func NewContent(method Method, rawURL string) *Content {
	c := &Content{Method: method, URL: rawURL}
	c.QueryParams = ParamsFromURL(rawURL)
	c.SyncPathParams()
	return c
}
