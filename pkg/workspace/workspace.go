// Package workspace is the aggregate the CLI edits: one request tree and the
// list of servers its requests are sent to. It has a single writer; callers
// run one action at a time against it.
package workspace

import (
	"log/slog"

	"github.com/blackcoderx/reqtree/pkg/apperr"
	"github.com/blackcoderx/reqtree/pkg/auth"
	"github.com/blackcoderx/reqtree/pkg/openapi"
	"github.com/blackcoderx/reqtree/pkg/request"
	"github.com/blackcoderx/reqtree/pkg/storage"
	"github.com/blackcoderx/reqtree/pkg/tree"
)

// Workspace owns a request tree and its servers.
type Workspace struct {
	Root    *tree.Node
	Servers []request.Server

	logger *slog.Logger
}

// New returns an empty workspace.
func New(label string) *Workspace {
	return &Workspace{Root: tree.NewRoot(label)}
}

// FromImport builds a workspace from an imported document.
func FromImport(res *openapi.Result) *Workspace {
	w := &Workspace{Root: res.Root}
	w.Servers = append(w.Servers, res.Servers...)
	return w
}

// FromSnapshot wraps persisted state.
func FromSnapshot(snap *storage.Snapshot) *Workspace {
	return &Workspace{Root: snap.Root, Servers: snap.Servers}
}

// Snapshot returns the state to persist.
func (w *Workspace) Snapshot() storage.Snapshot {
	return storage.Snapshot{Root: w.Root, Servers: w.Servers}
}

// Load reads a workspace file.
func Load(path string) (*Workspace, error) {
	snap, err := storage.LoadWorkspace(path)
	if err != nil {
		return nil, err
	}
	return FromSnapshot(snap), nil
}

// Save writes the workspace file.
func (w *Workspace) Save(path string) error {
	return storage.SaveWorkspace(w.Snapshot(), path)
}

// SetLogger sets the logger used for send events.
func (w *Workspace) SetLogger(l *slog.Logger) {
	w.logger = l
}

func (w *Workspace) log() *slog.Logger {
	if w.logger != nil {
		return w.logger
	}
	return slog.Default()
}

// Export renders the workspace as an OpenAPI document.
func (w *Workspace) Export(opts openapi.ExportOptions) (string, error) {
	return openapi.Export(w.Root, w.Servers, opts)
}

// AddServer appends a server and returns its index.
func (w *Workspace) AddServer(s request.Server) int {
	s.Auth = auth.OrNone(s.Auth)
	w.Servers = append(w.Servers, s)
	return len(w.Servers) - 1
}

// RemoveServer deletes the server at i.
func (w *Workspace) RemoveServer(i int) bool {
	if i < 0 || i >= len(w.Servers) {
		return false
	}
	w.Servers = append(w.Servers[:i:i], w.Servers[i+1:]...)
	return true
}

// UpdateServerAuth replaces the auth of the server at i.
func (w *Workspace) UpdateServerAuth(i int, d auth.Descriptor) bool {
	if i < 0 || i >= len(w.Servers) {
		return false
	}
	w.Servers[i].Auth = auth.OrNone(d)
	return true
}

// Server returns the server at i for in-place updates.
func (w *Workspace) Server(i int) (*request.Server, bool) {
	if i < 0 || i >= len(w.Servers) {
		return nil, false
	}
	return &w.Servers[i], true
}

// Leaf returns the saved request at path.
func (w *Workspace) Leaf(path tree.Path) (*tree.Node, error) {
	n, ok := w.Root.Get(path)
	if !ok {
		return nil, apperr.RequestBuild("workspace", apperr.ErrNoSuchNode, "%s", path)
	}
	if !n.IsLeaf() {
		return nil, apperr.RequestBuild("workspace", apperr.ErrNotALeaf, "%s", path)
	}
	return n, nil
}
