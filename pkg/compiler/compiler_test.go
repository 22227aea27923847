package compiler

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blackcoderx/reqtree/pkg/apperr"
	"github.com/blackcoderx/reqtree/pkg/auth"
	"github.com/blackcoderx/reqtree/pkg/request"
)

func server(base string, d auth.Descriptor) *request.Server {
	return &request.Server{BaseURL: base, Auth: d}
}

func TestCompileURL(t *testing.T) {
	tests := []struct {
		name    string
		content *request.Content
		server  *request.Server
		want    string
	}{
		{
			name: "partial path substitution",
			content: &request.Content{
				Method:     request.GET,
				URL:        "/users/{id}/posts/{postId}",
				PathParams: []request.Row{{Enabled: true, Key: "id", Value: "7"}},
			},
			server: server("https://api.test", nil),
			want:   "https://api.test/users/7/posts/{postId}",
		},
		{
			name: "first active path param wins",
			content: &request.Content{
				URL: "/users/{id}",
				PathParams: []request.Row{
					{Enabled: false, Key: "id", Value: "0"},
					{Enabled: true, Key: "id", Value: "1"},
					{Enabled: true, Key: "id", Value: "2"},
				},
			},
			server: server("https://api.test", nil),
			want:   "https://api.test/users/1",
		},
		{
			name: "path param values are escaped",
			content: &request.Content{
				URL:        "/files/{name}",
				PathParams: []request.Row{{Enabled: true, Key: "name", Value: "a b/c"}},
			},
			server: server("https://api.test", nil),
			want:   "https://api.test/files/a%20b%2Fc",
		},
		{
			name:    "missing leading slash and trailing base slash",
			content: &request.Content{URL: "health"},
			server:  server("https://api.test/v1/", nil),
			want:    "https://api.test/v1/health",
		},
		{
			name: "query rebuilt from rows",
			content: &request.Content{
				URL: "/search?stale=1",
				QueryParams: []request.Row{
					{Enabled: true, Key: "q", Value: "a b"},
					{Enabled: false, Key: "off", Value: "1"},
					{Enabled: true, Key: "page", Value: "2"},
				},
			},
			server: server("http://localhost:8080", nil),
			want:   "http://localhost:8080/search?q=a+b&page=2",
		},
		{
			name:    "absolute URL merges onto selected server",
			content: &request.Content{URL: "https://other.test/ping"},
			server:  server("https://api.test/base", nil),
			want:    "https://api.test/base/ping",
		},
		{
			name:    "absolute URL without path",
			content: &request.Content{URL: "https://other.test"},
			server:  server("https://api.test", nil),
			want:    "https://api.test/",
		},
		{
			name:    "blank path param keeps placeholder",
			content: request.NewContent(request.GET, "/users/{id}"),
			server:  server("https://api.test", nil),
			want:    "https://api.test/users/{id}",
		},
		{
			name: "blank path param falls through to next row",
			content: &request.Content{
				URL: "/users/{id}",
				PathParams: []request.Row{
					{Enabled: true, Key: "id", Value: "  "},
					{Enabled: true, Key: "id", Value: "9"},
				},
			},
			server: server("https://api.test", nil),
			want:   "https://api.test/users/9",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := Compile(tt.content, tt.server)
			require.NoError(t, err)
			assert.Equal(t, tt.want, req.URL)
			assert.Equal(t, request.GET, req.Method)
		})
	}
}

func TestCompileErrors(t *testing.T) {
	tests := []struct {
		name    string
		content *request.Content
		server  *request.Server
		wantErr error
	}{
		{"empty path", &request.Content{URL: "  "}, server("https://api.test", nil), apperr.ErrEmptyPath},
		{"relative path without server", &request.Content{URL: "/users"}, nil, apperr.ErrNoServer},
		{"absolute URL without server", &request.Content{URL: "https://other.test/ping"}, nil, apperr.ErrNoServer},
		{"base without scheme", &request.Content{URL: "/users"}, server("api.test", nil), apperr.ErrInvalidBaseURL},
		{"base with ftp scheme", &request.Content{URL: "/users"}, server("ftp://api.test", nil), apperr.ErrInvalidBaseURL},
		{"base without host", &request.Content{URL: "/users"}, server("https://", nil), apperr.ErrInvalidBaseURL},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compile(tt.content, tt.server)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.True(t, apperr.IsKind(err, apperr.KindRequestBuild))
		})
	}
}

func TestCompileHeaders(t *testing.T) {
	content := &request.Content{
		Method: request.POST,
		URL:    "/items",
		Headers: []request.Row{
			{Enabled: true, Key: "X-Trace", Value: "a"},
			{Enabled: false, Key: "X-Off", Value: "1"},
			{Enabled: true, Key: "x-trace", Value: "b"},
			{Enabled: true, Key: "  ", Value: "blank"},
		},
		Body: `{"name":"x"}`,
	}
	req, err := Compile(content, server("https://api.test", nil))
	require.NoError(t, err)
	assert.Equal(t, []Header{
		{Key: "X-Trace", Value: "b"},
		{Key: "Accept", Value: "*/*"},
		{Key: "Content-Type", Value: "application/json"},
	}, req.Headers)
	require.NotNil(t, req.Body)
	assert.Equal(t, `{"name":"x"}`, *req.Body)
}

func TestCompileKeepsExplicitContentTypeAndAccept(t *testing.T) {
	content := &request.Content{
		Method: request.PUT,
		URL:    "/items/1",
		Headers: []request.Row{
			{Enabled: true, Key: "accept", Value: "application/xml"},
			{Enabled: true, Key: "content-type", Value: "text/plain"},
		},
		Body: "hello",
	}
	req, err := Compile(content, server("https://api.test", nil))
	require.NoError(t, err)
	assert.Equal(t, []Header{
		{Key: "accept", Value: "application/xml"},
		{Key: "content-type", Value: "text/plain"},
	}, req.Headers)
}

func TestCompileBodyOnlyForBodyMethods(t *testing.T) {
	for _, m := range request.Methods {
		req, err := Compile(&request.Content{Method: m, URL: "/x", Body: `{"a":1}`}, server("https://api.test", nil))
		require.NoError(t, err)
		if m.HasBody() {
			assert.NotNil(t, req.Body, m)
			continue
		}
		assert.Nil(t, req.Body, m)
		_, ok := req.Header("Content-Type")
		assert.False(t, ok, m)
	}
}

func TestCompileAuth(t *testing.T) {
	tests := []struct {
		name       string
		desc       auth.Descriptor
		wantURL    string
		wantHeader Header
	}{
		{
			name:    "api key in query",
			desc:    auth.APIKey{Name: "X-Key", Location: auth.InQuery, Value: "abc"},
			wantURL: "https://api.test/x?X-Key=abc",
		},
		{
			name:       "api key in header",
			desc:       auth.APIKey{Name: "X-Key", Location: auth.InHeader, Value: "abc"},
			wantURL:    "https://api.test/x",
			wantHeader: Header{Key: "X-Key", Value: "abc"},
		},
		{
			name:    "api key with blank value is skipped",
			desc:    auth.APIKey{Name: "X-Key", Location: auth.InQuery, Value: ""},
			wantURL: "https://api.test/x",
		},
		{
			name:       "basic with empty credentials still sent",
			desc:       auth.HTTPBasic{},
			wantURL:    "https://api.test/x",
			wantHeader: Header{Key: "Authorization", Value: "Basic Og=="},
		},
		{
			name:       "basic",
			desc:       auth.HTTPBasic{Username: "u", Password: "p"},
			wantURL:    "https://api.test/x",
			wantHeader: Header{Key: "Authorization", Value: "Basic dTpw"},
		},
		{
			name:       "bearer",
			desc:       auth.HTTPBearer{Token: "t1"},
			wantURL:    "https://api.test/x",
			wantHeader: Header{Key: "Authorization", Value: "Bearer t1"},
		},
		{
			name:       "oauth2",
			desc:       auth.OAuth2{AccessToken: "at"},
			wantURL:    "https://api.test/x",
			wantHeader: Header{Key: "Authorization", Value: "Bearer at"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := Compile(&request.Content{URL: "/x"}, server("https://api.test", tt.desc))
			require.NoError(t, err)
			assert.Equal(t, tt.wantURL, req.URL)
			if tt.wantHeader.Key != "" {
				v, ok := req.Header(tt.wantHeader.Key)
				require.True(t, ok)
				assert.Equal(t, tt.wantHeader.Value, v)
			}
		})
	}
}

func TestCompileAPIKeyQueryOnAbsoluteURL(t *testing.T) {
	s := server("https://api.test", auth.APIKey{Name: "X-Key", Location: auth.InQuery, Value: "abc"})
	req, err := Compile(&request.Content{URL: "https://api.test/x"}, s)
	require.NoError(t, err)
	assert.Equal(t, "https://api.test/x?X-Key=abc", req.URL)

	req, err = Compile(&request.Content{
		URL:         "/x",
		QueryParams: []request.Row{{Enabled: true, Key: "q", Value: "1"}},
	}, s)
	require.NoError(t, err)
	assert.Equal(t, "https://api.test/x?q=1&X-Key=abc", req.URL)
}

func TestCurl(t *testing.T) {
	body := `{"it's":1}`
	req := &Request{
		Method:  request.POST,
		URL:     "https://api.test/x",
		Headers: []Header{{Key: "Accept", Value: "*/*"}},
		Body:    &body,
	}
	assert.Equal(t, "curl -X POST 'https://api.test/x' \\\n  -H 'Accept: */*' \\\n  --data-raw '{\"it'\\''s\":1}'", req.Curl())
}

func TestRefreshBearer(t *testing.T) {
	tests := []struct {
		name      string
		desc      auth.Descriptor
		body      string
		wantToken string
		wantOK    bool
	}{
		{"top level", auth.HTTPBearer{Token: "t1", AutoUpdate: true, TokenPath: "token"}, `{"token":"t2"}`, "t2", true},
		{"dollar prefix nested", auth.HTTPBearer{Token: "t1", AutoUpdate: true, TokenPath: "$.data.auth.token"}, `{"data":{"auth":{"token":"t2"}}}`, "t2", true},
		{"array index", auth.HTTPBearer{Token: "t1", AutoUpdate: true, TokenPath: "items.1.id"}, `{"items":[{"id":"a"},{"id":"b"}]}`, "b", true},
		{"bracket index", auth.HTTPBearer{Token: "t1", AutoUpdate: true, TokenPath: "items[0].id"}, `{"items":[{"id":"a"}]}`, "a", true},
		{"numeric token keeps digits", auth.HTTPBearer{Token: "t1", AutoUpdate: true, TokenPath: "n"}, `{"n":12345678901234567890}`, "12345678901234567890", true},
		{"same token", auth.HTTPBearer{Token: "t1", AutoUpdate: true, TokenPath: "token"}, `{"token":"t1"}`, "t1", false},
		{"blank token", auth.HTTPBearer{Token: "t1", AutoUpdate: true, TokenPath: "token"}, `{"token":" "}`, "t1", false},
		{"object at path", auth.HTTPBearer{Token: "t1", AutoUpdate: true, TokenPath: "token"}, `{"token":{"v":1}}`, "t1", false},
		{"missing path", auth.HTTPBearer{Token: "t1", AutoUpdate: true, TokenPath: "nope"}, `{"token":"t2"}`, "t1", false},
		{"not json", auth.HTTPBearer{Token: "t1", AutoUpdate: true, TokenPath: "token"}, `<html>`, "t1", false},
		{"auto update off", auth.HTTPBearer{Token: "t1", TokenPath: "token"}, `{"token":"t2"}`, "t1", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := server("https://api.test", tt.desc)
			_, ok := RefreshBearer(s, tt.body)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantToken, auth.DescriptorToken(s.Auth))
		})
	}

	s := server("https://api.test", auth.APIKey{Name: "k", Value: "v"})
	_, ok := RefreshBearer(s, `{"token":"t2"}`)
	assert.False(t, ok)
	assert.Equal(t, auth.APIKey{Name: "k", Value: "v"}, s.Auth)
}

type fakeTransport struct {
	resp *request.Response
	err  error
	got  *Request
}

func (f *fakeTransport) Send(_ context.Context, req *Request) (*request.Response, error) {
	f.got = req
	return f.resp, f.err
}

func TestExecuteRefreshesToken(t *testing.T) {
	s := server("https://api.test", auth.HTTPBearer{Token: "t1", AutoUpdate: true, TokenPath: "token"})
	ft := &fakeTransport{resp: &request.Response{Status: 200, OK: true, Data: `{"token":"t2"}`}}

	resp, err := Execute(context.Background(), ft, &request.Content{Method: request.POST, URL: "/login"}, s)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.Status)
	assert.Equal(t, "https://api.test/login", resp.URL)
	require.NotNil(t, resp.Request)
	assert.Equal(t, "Bearer t1", resp.Request.Headers["Authorization"])
	assert.Equal(t, "t2", auth.DescriptorToken(s.Auth))

	_, err = Execute(context.Background(), ft, &request.Content{URL: "/me"}, s)
	require.NoError(t, err)
	v, _ := ft.got.Header("Authorization")
	assert.Equal(t, "Bearer t2", v)
}

func TestExecuteBuildErrorSkipsTransport(t *testing.T) {
	ft := &fakeTransport{}
	resp, err := Execute(context.Background(), ft, &request.Content{URL: "/x"}, nil)
	assert.Nil(t, resp)
	assert.ErrorIs(t, err, apperr.ErrNoServer)
	assert.Nil(t, ft.got)
}

func TestExecuteTransportFailure(t *testing.T) {
	ft := &fakeTransport{err: errors.New("connection refused")}
	resp, err := Execute(context.Background(), ft, &request.Content{URL: "/x"}, server("http://localhost:1", nil))
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindTransport))
	require.NotNil(t, resp)
	assert.False(t, resp.OK)
	assert.Equal(t, 0, resp.Status)
	assert.Contains(t, resp.Data, "connection refused")
}
