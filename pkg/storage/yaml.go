package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/blackcoderx/reqtree/pkg/auth"
	"github.com/blackcoderx/reqtree/pkg/request"
	"github.com/blackcoderx/reqtree/pkg/tree"
)

// Snapshot is the persisted state: the request tree and the server list.
type Snapshot struct {
	Root    *tree.Node
	Servers []request.Server
}

// SaveWorkspace writes a snapshot to a YAML file. The file is the user's own
// state, so credentials are written in full.
func SaveWorkspace(snap Snapshot, filePath string) error {
	// Ensure directory exists
	dir := filepath.Dir(filePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	// Ensure .yaml extension
	if !strings.HasSuffix(filePath, ".yaml") && !strings.HasSuffix(filePath, ".yml") {
		filePath = filePath + ".yaml"
	}

	file := WorkspaceFile{Version: WorkspaceVersion, Root: toNodeFile(snap.Root)}
	for _, s := range snap.Servers {
		sf := ServerFile{BaseURL: s.BaseURL}
		if !auth.IsNone(s.Auth) {
			sf.Auth = auth.ToMap(s.Auth, true)
		}
		file.Servers = append(file.Servers, sf)
	}

	data, err := yaml.Marshal(file)
	if err != nil {
		return fmt.Errorf("failed to marshal workspace: %w", err)
	}

	if err := os.WriteFile(filePath, data, 0644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	return nil
}

// LoadWorkspace loads a snapshot from a YAML file.
func LoadWorkspace(filePath string) (*Snapshot, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var file WorkspaceFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if file.Version > WorkspaceVersion {
		return nil, fmt.Errorf("workspace version %d is newer than supported version %d", file.Version, WorkspaceVersion)
	}

	snap := &Snapshot{Root: fromNodeFile(file.Root)}
	snap.Root.Expanded = true
	var errs []error
	for i, sf := range file.Servers {
		d, err := auth.FromMap(sf.Auth)
		if err != nil {
			errs = append(errs, fmt.Errorf("server %d: %w", i, err))
		}
		snap.Servers = append(snap.Servers, request.Server{BaseURL: sf.BaseURL, Auth: d})
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	return snap, nil
}

// WorkspaceExists reports whether a workspace file is present.
func WorkspaceExists(filePath string) bool {
	_, err := os.Stat(filePath)
	return err == nil
}

func toNodeFile(n *tree.Node) NodeFile {
	if n == nil {
		return NodeFile{}
	}
	nf := NodeFile{Label: n.Label, Expanded: n.Expanded, Request: n.Content}
	for _, child := range n.Children {
		nf.Children = append(nf.Children, toNodeFile(child))
	}
	return nf
}

func fromNodeFile(nf NodeFile) *tree.Node {
	n := &tree.Node{Label: nf.Label, Expanded: nf.Expanded, Content: nf.Request}
	if n.Content != nil && n.Content.Method == "" {
		n.Content.Method = request.GET
	}
	for _, child := range nf.Children {
		n.Children = append(n.Children, fromNodeFile(child))
	}
	return n
}

// GetEnvironmentsDir returns the environments directory path
func GetEnvironmentsDir(baseDir string) string {
	return filepath.Join(baseDir, "environments")
}
