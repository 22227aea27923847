package request

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blackcoderx/reqtree/pkg/auth"
)

func TestParseMethod(t *testing.T) {
	m, ok := ParseMethod(" patch ")
	require.True(t, ok)
	assert.Equal(t, PATCH, m)
	assert.Equal(t, "patch", m.Key())
	assert.True(t, m.HasBody())

	_, ok = ParseMethod("CONNECT")
	assert.False(t, ok)
	assert.False(t, GET.HasBody())
}

func TestPlaceholders(t *testing.T) {
	tests := []struct {
		url  string
		want []string
	}{
		{"/users/{id}/posts/{postId}", []string{"id", "postId"}},
		{"/users/{id}/again/{id}", []string{"id"}},
		{"/search?q={term}", nil},
		{"/plain", nil},
		{"https://api.test/{v}/x", []string{"v"}},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			assert.Equal(t, tt.want, Placeholders(tt.url))
		})
	}
}

func TestSyncPathParams(t *testing.T) {
	c := &Content{
		URL: "/users/{id}/posts/{postId}",
		PathParams: []Row{
			{Enabled: false, Key: "postId", Value: "9"},
			{Enabled: true, Key: "stale", Value: "x"},
		},
	}
	c.SyncPathParams()
	assert.Equal(t, []Row{
		{Enabled: true, Key: "id"},
		{Enabled: false, Key: "postId", Value: "9"},
	}, c.PathParams)
}

func TestParamsFromURL(t *testing.T) {
	rows := ParamsFromURL("/search?q=hello+world&page=2&flag")
	assert.Equal(t, []Row{
		{Enabled: true, Key: "q", Value: "hello world"},
		{Enabled: true, Key: "page", Value: "2"},
		{Enabled: true, Key: "flag", Value: ""},
	}, rows)
	assert.Nil(t, ParamsFromURL("/search"))
}

func TestURLWithParams(t *testing.T) {
	rows := []Row{
		{Enabled: true, Key: "q", Value: "a b"},
		{Enabled: false, Key: "skip", Value: "1"},
		{Enabled: true, Key: " ", Value: "blank"},
		{Enabled: true, Key: "z", Value: "&"},
	}
	assert.Equal(t, "/search?q=a+b&z=%26", URLWithParams("/search?old=1", rows))
	assert.Equal(t, "/search", URLWithParams("/search?old=1", nil))
}

func TestEnsureTrailingRow(t *testing.T) {
	rows := EnsureTrailingRow(nil)
	assert.Equal(t, []Row{{Enabled: true}}, rows)
	assert.Len(t, EnsureTrailingRow(rows), 1)
	assert.Len(t, EnsureTrailingRow([]Row{{Enabled: true, Key: "a"}}), 2)
}

func TestFormatBody(t *testing.T) {
	out, ok := FormatBody(`{"a":1,"b":[true]}`)
	require.True(t, ok)
	assert.Equal(t, "{\n  \"a\": 1,\n  \"b\": [\n    true\n  ]\n}", out)

	out, ok = FormatBody("plain text")
	assert.False(t, ok)
	assert.Equal(t, "plain text", out)
}

func TestNewContent(t *testing.T) {
	c := NewContent(GET, "/users/{id}?expand=true")
	assert.Equal(t, []Row{{Enabled: true, Key: "id"}}, c.PathParams)
	assert.Equal(t, []Row{{Enabled: true, Key: "expand", Value: "true"}}, c.QueryParams)
}

func TestContentCloneIsDeep(t *testing.T) {
	c := &Content{
		Headers:  []Row{{Enabled: true, Key: "A", Value: "1"}},
		Response: &Response{Status: 200, Headers: map[string]string{"X": "1"}},
	}
	clone := c.Clone()
	clone.Headers[0].Value = "2"
	clone.Response.Headers["X"] = "2"
	assert.Equal(t, "1", c.Headers[0].Value)
	assert.Equal(t, "1", c.Response.Headers["X"])
	assert.Nil(t, (*Content)(nil).Clone())
}

func TestServerDefaultsToNoAuth(t *testing.T) {
	s := Server{BaseURL: "http://localhost"}
	assert.True(t, auth.IsNone(s.Auth))
}
