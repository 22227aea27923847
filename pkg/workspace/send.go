package workspace

import (
	"context"

	"golang.org/x/time/rate"

	"github.com/blackcoderx/reqtree/pkg/apperr"
	"github.com/blackcoderx/reqtree/pkg/compiler"
	"github.com/blackcoderx/reqtree/pkg/request"
	"github.com/blackcoderx/reqtree/pkg/storage"
	"github.com/blackcoderx/reqtree/pkg/tree"
)

// NoServer selects no server; only absolute request URLs can be sent.
const NoServer = -1

// Prepare resolves the leaf at path and the selected server with env applied,
// ready for compiling. The returned server is a copy.
func (w *Workspace) Prepare(path tree.Path, serverIndex int, env map[string]string) (*request.Content, *request.Server, error) {
	leaf, err := w.Leaf(path)
	if err != nil {
		return nil, nil, err
	}
	content := storage.ApplyEnvironment(leaf.Content, env)
	if serverIndex == NoServer {
		return content, nil, nil
	}
	stored, ok := w.Server(serverIndex)
	if !ok {
		return nil, nil, apperr.RequestBuild("workspace", apperr.ErrNoSuchServer, "%d", serverIndex)
	}
	server := storage.ApplyEnvironmentToServer(*stored, env)
	return content, &server, nil
}

// Send compiles the leaf at path against the selected server, dispatches it,
// and stores the response on the leaf. A token refreshed from the response is
// written back to the stored server.
//
// A build error leaves the leaf untouched. A transport error is stored as a
// failure response and also returned.
func (w *Workspace) Send(ctx context.Context, t compiler.Transport, path tree.Path, serverIndex int, env map[string]string) (*request.Response, error) {
	content, server, err := w.Prepare(path, serverIndex, env)
	if err != nil {
		return nil, err
	}

	resp, err := compiler.Execute(ctx, t, content, server)
	if resp != nil {
		leaf, _ := w.Leaf(path)
		leaf.Content.Response = resp
	}
	if server != nil {
		stored, _ := w.Server(serverIndex)
		stored.Auth = server.Auth
	}
	if err != nil {
		w.log().Debug("send failed", "path", path.String(), "error", err)
	}
	return resp, err
}

// RunResult is the outcome of one request in a folder run.
type RunResult struct {
	Path     tree.Path
	Label    string
	Response *request.Response
	Err      error
}

// Passed reports whether the request got a 2xx response.
func (r RunResult) Passed() bool {
	return r.Err == nil && r.Response != nil && r.Response.OK
}

// RunFolder sends every request under the node at path, depth-first and one
// at a time, waiting on limiter before each when it is non-nil. A failing
// request does not stop the run; a canceled context does.
func (w *Workspace) RunFolder(ctx context.Context, t compiler.Transport, path tree.Path, serverIndex int, env map[string]string, limiter *rate.Limiter) ([]RunResult, error) {
	node, ok := w.Root.Get(path)
	if !ok {
		return nil, apperr.RequestBuild("workspace", apperr.ErrNoSuchNode, "%s", path)
	}

	var targets []tree.Path
	if node.IsLeaf() {
		targets = append(targets, append(tree.Path{}, path...))
	}
	for _, rel := range node.Leaves() {
		full := append(append(tree.Path{}, path...), rel...)
		targets = append(targets, full)
	}

	results := make([]RunResult, 0, len(targets))
	for _, p := range targets {
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				return results, err
			}
		}
		if err := ctx.Err(); err != nil {
			return results, err
		}
		leaf, _ := w.Root.Get(p)
		resp, err := w.Send(ctx, t, p, serverIndex, env)
		results = append(results, RunResult{Path: p, Label: leaf.Label, Response: resp, Err: err})
	}

	passed := 0
	for _, r := range results {
		if r.Passed() {
			passed++
		}
	}
	w.log().Info("folder run finished", "path", path.String(), "requests", len(results), "passed", passed)
	return results, nil
}
