package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blackcoderx/reqtree/pkg/auth"
	"github.com/blackcoderx/reqtree/pkg/request"
	"github.com/blackcoderx/reqtree/pkg/tree"
)

func TestWriteTextCreateNew(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "api.yaml")

	require.NoError(t, WriteText(path, "one", WriteOptions{CreateNew: true}))
	err := WriteText(path, "two", WriteOptions{CreateNew: true})
	assert.ErrorIs(t, err, ErrAlreadyExists)

	text, err := ReadText(path)
	require.NoError(t, err)
	assert.Equal(t, "one", text)

	require.NoError(t, WriteText(path, "two", WriteOptions{}))
	text, err = ReadText(path)
	require.NoError(t, err)
	assert.Equal(t, "two", text)
}

func TestReadTextMissing(t *testing.T) {
	_, err := ReadText(filepath.Join(t.TempDir(), "nope"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestDiff(t *testing.T) {
	assert.Empty(t, Diff("api.yaml", "a\nb\n", "a\nb\n"))

	d := Diff("api.yaml", "a\nb\nc\n", "a\nB\nc\n")
	assert.Contains(t, d, "--- a/api.yaml")
	assert.Contains(t, d, "+++ b/api.yaml")
	assert.Contains(t, d, "-b\n")
	assert.Contains(t, d, "+B\n")
}

func TestWorkspaceRoundTrip(t *testing.T) {
	content := request.NewContent(request.POST, "/users/{id}?v=1")
	content.Body = `{"a":1}`
	content.Headers = []request.Row{{Enabled: false, Key: "X-Off", Value: "1"}}
	content.Response = &request.Response{Status: 201, OK: true, Data: "done"}

	root := tree.NewRoot("API")
	root.Children = []*tree.Node{
		tree.NewFolder("users", tree.NewLeaf("Create", content)),
		tree.NewLeaf("Health", request.NewContent(request.GET, "/health")),
	}
	servers := []request.Server{
		{BaseURL: "https://api.test", Auth: auth.HTTPBearer{Token: "t", AutoUpdate: true, TokenPath: "token"}},
		{BaseURL: "http://localhost"},
	}

	path := filepath.Join(t.TempDir(), "workspace.yaml")
	require.NoError(t, SaveWorkspace(Snapshot{Root: root, Servers: servers}, path))
	assert.True(t, WorkspaceExists(path))

	snap, err := LoadWorkspace(path)
	require.NoError(t, err)
	assert.Equal(t, root, snap.Root)
	require.Len(t, snap.Servers, 2)
	assert.Equal(t, servers[0], snap.Servers[0])
	assert.True(t, auth.IsNone(snap.Servers[1].Auth))
}

func TestSaveWorkspaceAddsExtension(t *testing.T) {
	base := filepath.Join(t.TempDir(), "ws")
	require.NoError(t, SaveWorkspace(Snapshot{Root: tree.NewRoot("x")}, base))
	assert.True(t, WorkspaceExists(base+".yaml"))
}

func TestLoadWorkspaceErrors(t *testing.T) {
	dir := t.TempDir()

	newer := filepath.Join(dir, "newer.yaml")
	require.NoError(t, os.WriteFile(newer, []byte("version: 99\nroot:\n  label: x\n"), 0644))
	_, err := LoadWorkspace(newer)
	assert.Error(t, err)

	badAuth := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(badAuth, []byte("version: 1\nroot:\n  label: x\nservers:\n  - base_url: http://a\n    auth:\n      type: kerberos\n"), 0644))
	_, err = LoadWorkspace(badAuth)
	assert.ErrorContains(t, err, "kerberos")
}

func TestEnvironments(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("REQTREE_TEST_SECRET", "from-os")

	require.NoError(t, SaveEnvironment(map[string]string{
		"BASE_URL": "http://localhost:3000",
		"TOKEN":    "{{env:REQTREE_TEST_SECRET}}",
	}, filepath.Join(GetEnvironmentsDir(dir), "dev")))

	names, err := ListEnvironments(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"dev"}, names)

	env, err := LoadNamedEnvironment(dir, "dev")
	require.NoError(t, err)
	assert.Equal(t, "from-os", env["TOKEN"])

	_, err = LoadNamedEnvironment(dir, "prod")
	assert.Error(t, err)

	names, err = ListEnvironments(filepath.Join(dir, "missing"))
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestApplyEnvironment(t *testing.T) {
	env := map[string]string{"HOST": "api.test", "ID": "42", "TOKEN": "t"}
	c := &request.Content{
		Method:      request.POST,
		URL:         "https://{{HOST}}/users/{id}",
		Headers:     []request.Row{{Enabled: true, Key: "Authorization", Value: "Bearer {{TOKEN}}"}},
		QueryParams: []request.Row{{Enabled: true, Key: "q", Value: "{{MISSING}}"}},
		PathParams:  []request.Row{{Enabled: true, Key: "id", Value: "{{ID}}"}},
		Body:        `{"id":"{{ID}}"}`,
	}

	applied := ApplyEnvironment(c, env)
	assert.Equal(t, "https://api.test/users/{id}", applied.URL)
	assert.Equal(t, "Bearer t", applied.Headers[0].Value)
	assert.Equal(t, "{{MISSING}}", applied.QueryParams[0].Value)
	assert.Equal(t, "42", applied.PathParams[0].Value)
	assert.Equal(t, `{"id":"42"}`, applied.Body)

	assert.Equal(t, "Bearer {{TOKEN}}", c.Headers[0].Value, "the stored request is untouched")
	assert.Nil(t, ApplyEnvironment(nil, env))

	s := ApplyEnvironmentToServer(request.Server{BaseURL: "https://{{HOST}}"}, env)
	assert.Equal(t, "https://api.test", s.BaseURL)
}
