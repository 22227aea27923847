// Package tree is the ordered, path-addressed collection of saved requests.
//
// A Node with Content is a leaf (one saved request); a Node without Content
// is a folder. Nodes are addressed by Path, the list of child indices from the
// root. Paths are not identities: any insert, remove or move invalidates paths
// captured earlier in the same subtree, so callers re-derive paths after each
// mutation instead of caching them.
//
// Every operation mutates the tree in place and either completes fully or
// leaves it untouched. Callers serialize access; the tree has a single writer.
package tree

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/blackcoderx/reqtree/pkg/request"
)

// Node is a folder or a saved request.
type Node struct {
	Label    string
	Content  *request.Content
	Expanded bool
	Children []*Node
}

// Path locates a node by sibling indices from the root. The empty path is the root.
type Path []int

// NewRoot returns an empty, expanded root folder.
func NewRoot(label string) *Node {
	return &Node{Label: label, Expanded: true}
}

// NewFolder returns a folder with the given children.
func NewFolder(label string, children ...*Node) *Node {
	return &Node{Label: label, Children: children}
}

// NewLeaf returns a saved request.
func NewLeaf(label string, content *request.Content) *Node {
	if content == nil {
		content = &request.Content{Method: request.GET}
	}
	return &Node{Label: label, Content: content}
}

// IsLeaf reports whether n is a saved request.
func (n *Node) IsLeaf() bool {
	return n != nil && n.Content != nil
}

// Clone returns a deep copy of the subtree rooted at n.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	out := &Node{Label: n.Label, Content: n.Content.Clone(), Expanded: n.Expanded}
	if n.Children != nil {
		out.Children = make([]*Node, len(n.Children))
		for i, child := range n.Children {
			out.Children[i] = child.Clone()
		}
	}
	return out
}

// Get returns the node at path.
func (n *Node) Get(path Path) (*Node, bool) {
	cur := n
	for _, i := range path {
		if cur == nil || i < 0 || i >= len(cur.Children) {
			return nil, false
		}
		cur = cur.Children[i]
	}
	return cur, cur != nil
}

// SetExpanded opens or closes the node at path.
func (n *Node) SetExpanded(path Path, open bool) {
	if target, ok := n.Get(path); ok {
		target.Expanded = open
	}
}

// Rename sets the label of the node at path.
func (n *Node) Rename(path Path, label string) {
	if target, ok := n.Get(path); ok {
		target.Label = label
	}
}

// Replace swaps the node at path for node. Replacing the root copies node's
// fields into the root.
func (n *Node) Replace(path Path, node *Node) {
	if node == nil {
		return
	}
	if len(path) == 0 {
		*n = *node
		return
	}
	parent, ok := n.Get(path[:len(path)-1])
	if !ok {
		return
	}
	i := path[len(path)-1]
	if i < 0 || i >= len(parent.Children) {
		return
	}
	parent.Children[i] = node
}

// AddChild appends node under the node at path and expands that parent.
// It returns the path of the new child.
func (n *Node) AddChild(path Path, node *Node) (Path, bool) {
	if node == nil {
		return nil, false
	}
	parent, ok := n.Get(path)
	if !ok {
		return nil, false
	}
	parent.Children = append(parent.Children, node)
	parent.Expanded = true
	return childPath(path, len(parent.Children)-1), true
}

// Remove detaches and discards the subtree at path. The root cannot be removed.
func (n *Node) Remove(path Path) (*Node, bool) {
	if len(path) == 0 {
		return nil, false
	}
	parent, ok := n.Get(path[:len(path)-1])
	if !ok {
		return nil, false
	}
	i := path[len(path)-1]
	if i < 0 || i >= len(parent.Children) {
		return nil, false
	}
	removed := parent.Children[i]
	parent.Children = append(parent.Children[:i:i], parent.Children[i+1:]...)
	return removed, true
}

// Move detaches the subtree at from and appends it under the node at to,
// expanding to. It returns the moved node's new path.
//
// Move refuses, leaving the tree untouched, when from is the root, when to
// equals from or lies below it (which would create a cycle), or when either
// path does not resolve.
func (n *Node) Move(from, to Path) (Path, bool) {
	if len(from) == 0 || to.HasPrefix(from) {
		return nil, false
	}
	if _, ok := n.Get(from); !ok {
		return nil, false
	}
	if _, ok := n.Get(to); !ok {
		return nil, false
	}

	// Removing from shifts later siblings left; adjust to if it runs through one.
	target := append(Path(nil), to...)
	depth := len(from) - 1
	if len(target) > depth && Path(target[:depth]).Equal(from[:depth]) && target[depth] > from[depth] {
		target[depth]--
	}

	moved, ok := n.Remove(from)
	if !ok {
		return nil, false
	}
	return n.AddChild(target, moved)
}

// Walk calls fn for every node below n in depth-first order, with its path.
// Returning false from fn skips the node's children.
func (n *Node) Walk(fn func(path Path, node *Node) bool) {
	var walk func(prefix Path, node *Node)
	walk = func(prefix Path, node *Node) {
		for i, child := range node.Children {
			p := childPath(prefix, i)
			if fn(p, child) {
				walk(p, child)
			}
		}
	}
	walk(nil, n)
}

// Leaves returns the paths of every saved request below n, depth-first.
func (n *Node) Leaves() []Path {
	var paths []Path
	n.Walk(func(p Path, node *Node) bool {
		if node.IsLeaf() {
			paths = append(paths, p)
		}
		return true
	})
	return paths
}

func childPath(parent Path, i int) Path {
	p := make(Path, len(parent)+1)
	copy(p, parent)
	p[len(parent)] = i
	return p
}

// Equal reports whether p and q address the same node.
func (p Path) Equal(q Path) bool {
	if len(p) != len(q) {
		return false
	}
	for i := range p {
		if p[i] != q[i] {
			return false
		}
	}
	return true
}

// HasPrefix reports whether p equals prefix or lies below it.
func (p Path) HasPrefix(prefix Path) bool {
	return len(p) >= len(prefix) && p[:len(prefix)].Equal(prefix)
}

// String renders p as dot-separated indices; the root is ".".
func (p Path) String() string {
	if len(p) == 0 {
		return "."
	}
	parts := make([]string, len(p))
	for i, idx := range p {
		parts[i] = strconv.Itoa(idx)
	}
	return strings.Join(parts, ".")
}

// ParsePath parses the String form of a path. "" and "." are the root.
func ParsePath(s string) (Path, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "." {
		return Path{}, nil
	}
	parts := strings.Split(s, ".")
	p := make(Path, len(parts))
	for i, part := range parts {
		idx, err := strconv.Atoi(part)
		if err != nil || idx < 0 {
			return nil, fmt.Errorf("invalid path %q: segment %q is not an index", s, part)
		}
		p[i] = idx
	}
	return p, nil
}
