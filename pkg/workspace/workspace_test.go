package workspace

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/blackcoderx/reqtree/pkg/apperr"
	"github.com/blackcoderx/reqtree/pkg/auth"
	"github.com/blackcoderx/reqtree/pkg/compiler"
	"github.com/blackcoderx/reqtree/pkg/openapi"
	"github.com/blackcoderx/reqtree/pkg/request"
	"github.com/blackcoderx/reqtree/pkg/tree"
)

type recorder struct {
	sent  []*compiler.Request
	reply func(req *compiler.Request) (*request.Response, error)
}

func (r *recorder) Send(_ context.Context, req *compiler.Request) (*request.Response, error) {
	r.sent = append(r.sent, req)
	if r.reply != nil {
		return r.reply(req)
	}
	return &request.Response{Status: 200, OK: true, Data: "{}"}, nil
}

func sample() *Workspace {
	w := New("API")
	w.Root.Children = []*tree.Node{
		tree.NewFolder("auth",
			tree.NewLeaf("Login", request.NewContent(request.POST, "/login")),
		),
		tree.NewFolder("users",
			tree.NewLeaf("List", request.NewContent(request.GET, "/users")),
			tree.NewLeaf("Get", &request.Content{
				Method:     request.GET,
				URL:        "/users/{id}",
				PathParams: []request.Row{{Enabled: true, Key: "id", Value: "{{USER_ID}}"}},
			}),
		),
	}
	w.AddServer(request.Server{BaseURL: "https://{{HOST}}"})
	return w
}

func TestServers(t *testing.T) {
	w := New("x")
	assert.Equal(t, 0, w.AddServer(request.Server{BaseURL: "http://a"}))
	assert.Equal(t, 1, w.AddServer(request.Server{BaseURL: "http://b"}))
	assert.True(t, auth.IsNone(w.Servers[0].Auth))

	assert.True(t, w.UpdateServerAuth(1, auth.HTTPBasic{Username: "u"}))
	assert.False(t, w.UpdateServerAuth(5, auth.None{}))
	assert.Equal(t, auth.KindHTTPBasic, auth.KindOf(w.Servers[1].Auth))

	assert.True(t, w.RemoveServer(0))
	assert.False(t, w.RemoveServer(3))
	require.Len(t, w.Servers, 1)
	assert.Equal(t, "http://b", w.Servers[0].BaseURL)

	_, ok := w.Server(-1)
	assert.False(t, ok)
}

func TestSendAppliesEnvironmentAndStoresResponse(t *testing.T) {
	w := sample()
	rec := &recorder{}
	env := map[string]string{"HOST": "api.test", "USER_ID": "9"}

	resp, err := w.Send(context.Background(), rec, tree.Path{1, 1}, 0, env)
	require.NoError(t, err)
	require.Len(t, rec.sent, 1)
	assert.Equal(t, "https://api.test/users/9", rec.sent[0].URL)

	leaf, err := w.Leaf(tree.Path{1, 1})
	require.NoError(t, err)
	assert.Same(t, resp, leaf.Content.Response)
	assert.Equal(t, "{{USER_ID}}", leaf.Content.PathParams[0].Value, "stored rows keep their variables")
	assert.Equal(t, "https://{{HOST}}", w.Servers[0].BaseURL)
}

func TestSendErrors(t *testing.T) {
	w := sample()
	rec := &recorder{}
	ctx := context.Background()

	_, err := w.Send(ctx, rec, tree.Path{0}, 0, nil)
	assert.ErrorIs(t, err, apperr.ErrNotALeaf)

	_, err = w.Send(ctx, rec, tree.Path{7}, 0, nil)
	assert.ErrorIs(t, err, apperr.ErrNoSuchNode)

	_, err = w.Send(ctx, rec, tree.Path{1, 0}, 4, nil)
	assert.ErrorIs(t, err, apperr.ErrNoSuchServer)

	_, err = w.Send(ctx, rec, tree.Path{1, 0}, NoServer, nil)
	assert.ErrorIs(t, err, apperr.ErrNoServer)
	assert.Empty(t, rec.sent)

	leaf, _ := w.Leaf(tree.Path{1, 0})
	assert.Nil(t, leaf.Content.Response)
}

func TestSendTransportFailureIsStored(t *testing.T) {
	w := sample()
	rec := &recorder{reply: func(*compiler.Request) (*request.Response, error) {
		return nil, errors.New("boom")
	}}

	resp, err := w.Send(context.Background(), rec, tree.Path{1, 0}, 0, map[string]string{"HOST": "h"})
	assert.True(t, apperr.IsKind(err, apperr.KindTransport))
	require.NotNil(t, resp)
	assert.Equal(t, 0, resp.Status)

	leaf, _ := w.Leaf(tree.Path{1, 0})
	assert.Same(t, resp, leaf.Content.Response)
}

func TestSendWritesRefreshedTokenBack(t *testing.T) {
	w := sample()
	w.UpdateServerAuth(0, auth.HTTPBearer{Token: "old", AutoUpdate: true, TokenPath: "$.data.token"})
	rec := &recorder{reply: func(req *compiler.Request) (*request.Response, error) {
		return &request.Response{Status: 200, OK: true, Data: `{"data":{"token":"new"}}`}, nil
	}}
	env := map[string]string{"HOST": "api.test"}

	_, err := w.Send(context.Background(), rec, tree.Path{0, 0}, 0, env)
	require.NoError(t, err)
	assert.Equal(t, "new", auth.DescriptorToken(w.Servers[0].Auth))

	_, err = w.Send(context.Background(), rec, tree.Path{1, 0}, 0, env)
	require.NoError(t, err)
	v, _ := rec.sent[1].Header("Authorization")
	assert.Equal(t, "Bearer new", v)
}

func TestRunFolder(t *testing.T) {
	w := sample()
	rec := &recorder{reply: func(req *compiler.Request) (*request.Response, error) {
		if req.URL == "https://api.test/users" {
			return &request.Response{Status: 500, Data: "no"}, nil
		}
		return &request.Response{Status: 200, OK: true}, nil
	}}
	env := map[string]string{"HOST": "api.test", "USER_ID": "1"}

	results, err := w.RunFolder(context.Background(), rec, tree.Path{}, 0, env, rate.NewLimiter(rate.Inf, 1))
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, "Login", results[0].Label)
	assert.Equal(t, tree.Path{0, 0}, results[0].Path)
	assert.True(t, results[0].Passed())
	assert.False(t, results[1].Passed())
	assert.Equal(t, tree.Path{1, 1}, results[2].Path)
	assert.True(t, results[2].Passed())

	folder, err := w.RunFolder(context.Background(), rec, tree.Path{1}, 0, env, nil)
	require.NoError(t, err)
	assert.Len(t, folder, 2)

	single, err := w.RunFolder(context.Background(), rec, tree.Path{0, 0}, 0, env, nil)
	require.NoError(t, err)
	assert.Len(t, single, 1)

	_, err = w.RunFolder(context.Background(), rec, tree.Path{9}, 0, env, nil)
	assert.ErrorIs(t, err, apperr.ErrNoSuchNode)
}

func TestRunFolderCanceled(t *testing.T) {
	w := sample()
	rec := &recorder{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results, err := w.RunFolder(ctx, rec, tree.Path{}, 0, map[string]string{"HOST": "h"}, nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, results)
	assert.Empty(t, rec.sent)
}

func TestSaveLoad(t *testing.T) {
	w := sample()
	path := filepath.Join(t.TempDir(), "workspace.yaml")
	require.NoError(t, w.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, w.Root, loaded.Root)
	require.Len(t, loaded.Servers, 1)
	assert.Equal(t, "https://{{HOST}}", loaded.Servers[0].BaseURL)
}

func TestFromImportAndExport(t *testing.T) {
	res, err := openapi.Import(`
openapi: 3.0.3
info: {title: Pets, version: "1"}
servers: [{url: "https://pets.test"}]
paths:
  /pets:
    get:
      summary: List pets
`)
	require.NoError(t, err)

	w := FromImport(res)
	require.Len(t, w.Servers, 1)
	require.Len(t, w.Root.Leaves(), 1)

	doc, err := w.Export(openapi.ExportOptions{})
	require.NoError(t, err)
	assert.Contains(t, doc, "/pets:")
	assert.Contains(t, doc, "https://pets.test")
}

func TestFetchServerToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"granted","token_type":"bearer"}`))
	}))
	defer srv.Close()

	w := New("x")
	w.AddServer(request.Server{BaseURL: "http://a", Auth: auth.OAuth2{Flow: auth.FlowClientCredentials, TokenURL: srv.URL}})
	w.AddServer(request.Server{BaseURL: "http://b"})

	require.NoError(t, w.FetchServerToken(context.Background(), 0, auth.Credentials{ClientID: "id", ClientSecret: "s"}))
	assert.Equal(t, "granted", auth.DescriptorToken(w.Servers[0].Auth))

	assert.Error(t, w.FetchServerToken(context.Background(), 1, auth.Credentials{ClientID: "id"}))
	assert.ErrorIs(t, w.FetchServerToken(context.Background(), 2, auth.Credentials{}), apperr.ErrNoSuchServer)
}
