package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/blackcoderx/reqtree/pkg/apperr"
	"github.com/blackcoderx/reqtree/pkg/cli"
	"github.com/blackcoderx/reqtree/pkg/request"
	"github.com/blackcoderx/reqtree/pkg/tree"
	"github.com/blackcoderx/reqtree/pkg/workspace"
)

func newInitCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the .reqtree folder with a default config, workspace and environment",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a.printf("%s %s\n", cli.OKStyle.Render("✓"), a.workspacePath())
			return nil
		},
	}
}

// edit loads the workspace, applies fn and saves the result.
func (a *app) edit(fn func(w *workspace.Workspace) error) error {
	w, err := a.load()
	if err != nil {
		return err
	}
	if err := fn(w); err != nil {
		return err
	}
	return a.save(w)
}

// node resolves a path argument against the tree.
func node(w *workspace.Workspace, arg string) (tree.Path, *tree.Node, error) {
	p, err := tree.ParsePath(arg)
	if err != nil {
		return nil, nil, err
	}
	n, ok := w.Root.Get(p)
	if !ok {
		return nil, nil, apperr.RequestBuild("tree", apperr.ErrNoSuchNode, "%s", p)
	}
	return p, n, nil
}

// folder resolves a path argument that must name a folder.
func folder(w *workspace.Workspace, arg string) (tree.Path, error) {
	p, n, err := node(w, arg)
	if err != nil {
		return nil, err
	}
	if n.IsLeaf() {
		return nil, fmt.Errorf("%s is a request, not a folder", p)
	}
	return p, nil
}

func newLsCmd(a *app) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "ls",
		Short: "List the request tree",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := a.load()
			if err != nil {
				return err
			}
			a.printf("%s", cli.RenderTree(w.Root, all))
			return nil
		},
	}
	cmd.Flags().BoolVarP(&all, "all", "a", false, "show children of collapsed folders")
	return cmd
}

func newShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <path>",
		Short: "Show a saved request and its last response",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := a.load()
			if err != nil {
				return err
			}
			p, n, err := node(w, args[0])
			if err != nil {
				return err
			}
			if !n.IsLeaf() {
				a.printf("%s", cli.RenderTree(n, false))
				return nil
			}
			c := n.Content
			a.printf("%s %s %s\n", cli.PathStyle.Render(p.String()), cli.MethodBadge(c.Method), n.Label)
			a.printf("%s\n", c.URL)
			printRows(a, "path", c.PathParams)
			printRows(a, "query", c.QueryParams)
			printRows(a, "header", c.Headers)
			if c.Body != "" {
				a.printf("\n%s\n", c.Body)
			}
			a.printf("\n%s", cli.RenderResponse(c.Response))
			return nil
		},
	}
}

func printRows(a *app, kind string, rows []request.Row) {
	for _, r := range rows {
		if strings.TrimSpace(r.Key) == "" {
			continue
		}
		line := fmt.Sprintf("  %-6s %s: %s", kind, r.Key, r.Value)
		if !r.Enabled {
			line = cli.HelpStyle.Render(line + " (off)")
		}
		a.printf("%s\n", line)
	}
}

func newMkdirCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "mkdir <parent> <label>",
		Short: "Add a folder under parent",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.edit(func(w *workspace.Workspace) error {
				parent, err := folder(w, args[0])
				if err != nil {
					return err
				}
				p, _ := w.Root.AddChild(parent, tree.NewFolder(args[1]))
				a.printf("%s %s\n", cli.PathStyle.Render(p.String()), args[1])
				return nil
			})
		},
	}
}

func newAddCmd(a *app) *cobra.Command {
	var (
		method  string
		rawURL  string
		body    string
		headers []string
	)
	cmd := &cobra.Command{
		Use:   "add <parent> <label>",
		Short: "Add a saved request under parent",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, ok := request.ParseMethod(method)
			if !ok {
				return fmt.Errorf("unsupported method %q", method)
			}
			content := request.NewContent(m, rawURL)
			content.Body = body
			for _, h := range headers {
				key, value, found := strings.Cut(h, ":")
				if !found {
					return fmt.Errorf("header %q must be Key: Value", h)
				}
				content.Headers = append(content.Headers, request.Row{
					Enabled: true,
					Key:     strings.TrimSpace(key),
					Value:   strings.TrimSpace(value),
				})
			}
			return a.edit(func(w *workspace.Workspace) error {
				parent, err := folder(w, args[0])
				if err != nil {
					return err
				}
				p, _ := w.Root.AddChild(parent, tree.NewLeaf(args[1], content))
				a.printf("%s %s%s\n", cli.PathStyle.Render(p.String()), cli.MethodBadge(m), args[1])
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&method, "method", "X", "GET", "HTTP method")
	cmd.Flags().StringVarP(&rawURL, "url", "u", "/", "request URL, relative to the server or absolute")
	cmd.Flags().StringVarP(&body, "body", "d", "", "request body")
	cmd.Flags().StringArrayVarP(&headers, "header", "H", nil, "header as 'Key: Value' (repeatable)")
	return cmd
}

func newRenameCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "rename <path> <label>",
		Short: "Rename a folder or request",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.edit(func(w *workspace.Workspace) error {
				p, _, err := node(w, args[0])
				if err != nil {
					return err
				}
				w.Root.Rename(p, args[1])
				return nil
			})
		},
	}
}

func newRmCmd(a *app) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "rm <path>",
		Short: "Remove a folder or request",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.edit(func(w *workspace.Workspace) error {
				p, n, err := node(w, args[0])
				if err != nil {
					return err
				}
				if len(p) == 0 {
					return fmt.Errorf("the root cannot be removed")
				}
				if !n.IsLeaf() && len(n.Children) > 0 && !yes {
					ok, err := a.prompt.Confirm(
						fmt.Sprintf("Remove %q?", n.Label),
						fmt.Sprintf("The folder holds %d requests.", len(n.Leaves())))
					if err != nil {
						return err
					}
					if !ok {
						return fmt.Errorf("aborted")
					}
				}
				w.Root.Remove(p)
				return nil
			})
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "don't ask before removing a non-empty folder")
	return cmd
}

func newMvCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "mv <from> <to-folder>",
		Short: "Move a folder or request under another folder",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.edit(func(w *workspace.Workspace) error {
				from, _, err := node(w, args[0])
				if err != nil {
					return err
				}
				to, err := folder(w, args[1])
				if err != nil {
					return err
				}
				p, ok := w.Root.Move(from, to)
				if !ok {
					return fmt.Errorf("cannot move %s under %s", from, to)
				}
				a.printf("%s\n", cli.PathStyle.Render(p.String()))
				return nil
			})
		},
	}
}

func newExpandCmd(a *app, open bool) *cobra.Command {
	use, short := "collapse <path>", "Collapse a folder in listings"
	if open {
		use, short = "expand <path>", "Expand a folder in listings"
	}
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.edit(func(w *workspace.Workspace) error {
				p, err := folder(w, args[0])
				if err != nil {
					return err
				}
				w.Root.SetExpanded(p, open)
				return nil
			})
		},
	}
}
