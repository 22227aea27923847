package compiler

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/blackcoderx/reqtree/pkg/auth"
	"github.com/blackcoderx/reqtree/pkg/request"
)

// RefreshBearer updates the server's bearer token from a JSON response body
// when the server uses HTTP bearer auth with auto-update on. The token is
// read at the configured dot path and must be a scalar; it replaces the
// current token only when it is non-blank and different. Bodies that are not
// JSON, or paths that do not resolve, leave the server untouched.
func RefreshBearer(server *request.Server, body string) (string, bool) {
	if server == nil {
		return "", false
	}
	bearer, ok := auth.AutoRefreshing(server.Auth)
	if !ok {
		return "", false
	}

	dec := json.NewDecoder(strings.NewReader(body))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return "", false
	}
	value, ok := ResolvePath(doc, bearer.TokenPath)
	if !ok {
		return "", false
	}
	token, ok := scalarString(value)
	if !ok || strings.TrimSpace(token) == "" || token == bearer.Token {
		return "", false
	}
	bearer.Token = token
	server.Auth = bearer
	return token, true
}

var indexPattern = regexp.MustCompile(`\[(\d+)\]`)

// ResolvePath walks a decoded JSON value along a dot path such as
// "data.token", "$.data.items.0.id" or "items[0].id". Numeric segments index
// arrays.
func ResolvePath(doc any, path string) (any, bool) {
	path = strings.TrimSpace(path)
	path = strings.TrimPrefix(path, "$")
	path = indexPattern.ReplaceAllString(path, ".$1")

	cur := doc
	for _, seg := range strings.Split(path, ".") {
		if seg == "" {
			continue
		}
		switch v := cur.(type) {
		case map[string]any:
			next, ok := v[seg]
			if !ok {
				return nil, false
			}
			cur = next
		case []any:
			i, err := strconv.Atoi(seg)
			if err != nil || i < 0 || i >= len(v) {
				return nil, false
			}
			cur = v[i]
		default:
			return nil, false
		}
	}
	return cur, true
}

func scalarString(v any) (string, bool) {
	switch s := v.(type) {
	case string:
		return s, true
	case json.Number:
		return s.String(), true
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(s), true
	default:
		return "", false
	}
}
