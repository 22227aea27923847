package storage

import "github.com/blackcoderx/reqtree/pkg/request"

// WorkspaceVersion is written to every workspace file.
const WorkspaceVersion = 1

// WorkspaceFile is the on-disk form of a workspace.
type WorkspaceFile struct {
	Version int          `yaml:"version"`
	Root    NodeFile     `yaml:"root"`
	Servers []ServerFile `yaml:"servers,omitempty"`
}

// NodeFile is a folder, or a saved request when Request is set.
type NodeFile struct {
	Label    string           `yaml:"label"`
	Expanded bool             `yaml:"expanded,omitempty"`
	Request  *request.Content `yaml:"request,omitempty"`
	Children []NodeFile       `yaml:"children,omitempty"`
}

// ServerFile is a server entry; Auth is the descriptor's map form.
type ServerFile struct {
	BaseURL string         `yaml:"base_url"`
	Auth    map[string]any `yaml:"auth,omitempty"`
}
