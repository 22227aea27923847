// Package request holds the payload of a saved request (a tree leaf), the
// response snapshot kept with it, and the server entries requests are sent to.
package request

import (
	"strings"
	"time"

	"github.com/blackcoderx/reqtree/pkg/auth"
)

// Method is one of the eight HTTP methods a saved request may use.
type Method string

const (
	GET     Method = "GET"
	POST    Method = "POST"
	PUT     Method = "PUT"
	PATCH   Method = "PATCH"
	DELETE  Method = "DELETE"
	OPTIONS Method = "OPTIONS"
	HEAD    Method = "HEAD"
	TRACE   Method = "TRACE"
)

// Methods lists every supported method in OpenAPI path-item order.
var Methods = []Method{GET, POST, PUT, PATCH, DELETE, OPTIONS, HEAD, TRACE}

// ParseMethod matches s case-insensitively against the supported methods.
func ParseMethod(s string) (Method, bool) {
	upper := Method(strings.ToUpper(strings.TrimSpace(s)))
	for _, m := range Methods {
		if m == upper {
			return m, true
		}
	}
	return "", false
}

// Key returns the lower-case OpenAPI path-item key of m.
func (m Method) Key() string {
	return strings.ToLower(string(m))
}

// HasBody reports whether a body is sent with m.
func (m Method) HasBody() bool {
	return m == POST || m == PUT || m == PATCH
}

// Row is one line of a header or parameter table.
type Row struct {
	Enabled bool   `yaml:"enabled"`
	Key     string `yaml:"key"`
	Value   string `yaml:"value"`
}

// Active reports whether the row takes part in a request: enabled with a non-blank key.
func (r Row) Active() bool {
	return r.Enabled && strings.TrimSpace(r.Key) != ""
}

// Content is the payload of a leaf: one saved HTTP request.
type Content struct {
	Method      Method    `yaml:"method"`
	URL         string    `yaml:"url"`
	Headers     []Row     `yaml:"headers,omitempty"`
	QueryParams []Row     `yaml:"query_params,omitempty"`
	PathParams  []Row     `yaml:"path_params,omitempty"`
	Body        string    `yaml:"body,omitempty"`
	Response    *Response `yaml:"response,omitempty"`
}

// Clone returns a deep copy of c.
func (c *Content) Clone() *Content {
	if c == nil {
		return nil
	}
	out := *c
	out.Headers = cloneRows(c.Headers)
	out.QueryParams = cloneRows(c.QueryParams)
	out.PathParams = cloneRows(c.PathParams)
	out.Response = c.Response.Clone()
	return &out
}

func cloneRows(rows []Row) []Row {
	if rows == nil {
		return nil
	}
	return append([]Row(nil), rows...)
}

// Response is the snapshot of the last response received for a request.
type Response struct {
	URL        string              `yaml:"url"`
	Status     int                 `yaml:"status"`
	OK         bool                `yaml:"ok"`
	Headers    map[string]string   `yaml:"headers,omitempty"`
	RawHeaders map[string][]string `yaml:"raw_headers,omitempty"`
	Data       string              `yaml:"data"`
	Request    *Echo               `yaml:"request,omitempty"`
	Duration   time.Duration       `yaml:"duration,omitempty"`
}

// Echo is the compiled request that produced a response, kept for debugging.
type Echo struct {
	Method  string            `yaml:"method"`
	URL     string            `yaml:"url"`
	Headers map[string]string `yaml:"headers,omitempty"`
	Body    string            `yaml:"body,omitempty"`
}

// Clone returns a deep copy of r.
func (r *Response) Clone() *Response {
	if r == nil {
		return nil
	}
	out := *r
	if r.Headers != nil {
		out.Headers = make(map[string]string, len(r.Headers))
		for k, v := range r.Headers {
			out.Headers[k] = v
		}
	}
	if r.RawHeaders != nil {
		out.RawHeaders = make(map[string][]string, len(r.RawHeaders))
		for k, v := range r.RawHeaders {
			out.RawHeaders[k] = append([]string(nil), v...)
		}
	}
	if r.Request != nil {
		echo := *r.Request
		out.Request = &echo
	}
	return &out
}

// Server is a target a request can be sent to, with its credentials.
type Server struct {
	BaseURL string
	Auth    auth.Descriptor
}
