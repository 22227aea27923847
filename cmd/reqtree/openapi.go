package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/blackcoderx/reqtree/pkg/cli"
	"github.com/blackcoderx/reqtree/pkg/openapi"
	"github.com/blackcoderx/reqtree/pkg/storage"
	"github.com/blackcoderx/reqtree/pkg/workspace"
)

// pickDocument asks for an OpenAPI file among the YAML and JSON files in dir.
func (a *app) pickDocument(title string) (string, error) {
	entries, err := os.ReadDir(a.dir)
	if err != nil {
		return "", err
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".yaml", ".yml", ".json":
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)
	name, err := a.prompt.Pick(title, files)
	if err != nil {
		return "", err
	}
	return filepath.Join(a.dir, name), nil
}

func newImportCmd(a *app) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "import [file]",
		Short: "Replace the workspace with the operations of an OpenAPI document",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			} else {
				p, err := a.pickDocument("OpenAPI document to import")
				if err != nil {
					return err
				}
				path = p
			}

			text, err := storage.ReadText(path)
			if err != nil {
				return err
			}
			res, err := openapi.Import(text)
			if err != nil {
				return err
			}

			if !force {
				current, err := a.load()
				if err != nil {
					return err
				}
				if n := len(current.Root.Leaves()); n > 0 {
					ok, err := a.prompt.Confirm("Replace the current workspace?",
						fmt.Sprintf("It holds %d saved requests.", n))
					if err != nil {
						return err
					}
					if !ok {
						return fmt.Errorf("aborted")
					}
				}
			}

			w := workspace.FromImport(res)
			if err := a.save(w); err != nil {
				return err
			}
			for _, warning := range res.Warnings {
				a.printf("%s %s\n", cli.WarnStyle.Render("!"), warning)
			}
			a.printf("%s imported %d requests and %d servers from %s\n",
				cli.OKStyle.Render("✓"), len(w.Root.Leaves()), len(w.Servers), filepath.Base(path))
			return nil
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "replace a non-empty workspace without asking")
	return cmd
}

func newExportCmd(a *app) *cobra.Command {
	var (
		force          bool
		includeSecrets bool
	)
	cmd := &cobra.Command{
		Use:   "export [file]",
		Short: "Write the workspace as an OpenAPI 3 document",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := a.load()
			if err != nil {
				return err
			}
			path := ""
			if len(args) == 1 {
				path = args[0]
			} else {
				name, err := a.prompt.Input("Export to", "openapi.yaml")
				if err != nil {
					return err
				}
				if strings.TrimSpace(name) == "" {
					name = "openapi.yaml"
				}
				if path, err = storage.ResolveWithin(name, a.dir); err != nil {
					return err
				}
			}

			text, err := w.Export(openapi.ExportOptions{IncludeSecrets: includeSecrets || a.cfg.IncludeSecrets})
			if err != nil {
				return err
			}
			if err := openapi.Validate(cmd.Context(), text); err != nil {
				a.printf("%s %v\n", cli.WarnStyle.Render("!"), err)
			}

			return a.writeDocument(path, text, force)
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing file without showing the diff")
	cmd.Flags().BoolVar(&includeSecrets, "include-secrets", false, "write tokens and passwords into x-reqtree-auth")
	return cmd
}

// writeDocument writes text to path. An existing file is overwritten only
// with force or after the user confirms the diff.
func (a *app) writeDocument(path, text string, force bool) error {
	if force {
		return a.finishWrite(path, storage.WriteText(path, text, storage.WriteOptions{}))
	}

	old, err := storage.ReadText(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return err
		}
		return a.finishWrite(path, storage.WriteText(path, text, storage.WriteOptions{CreateNew: true}))
	}

	diff := storage.Diff(filepath.Base(path), old, text)
	if diff == "" {
		a.printf("%s is up to date\n", path)
		return nil
	}
	a.printf("%s", cli.RenderMarkdown("```diff\n"+diff+"```\n", 120))
	ok, err := a.prompt.Confirm(fmt.Sprintf("Overwrite %s?", filepath.Base(path)), "")
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("aborted")
	}
	return a.finishWrite(path, storage.WriteText(path, text, storage.WriteOptions{}))
}

func (a *app) finishWrite(path string, err error) error {
	if err != nil {
		return err
	}
	a.printf("%s wrote %s\n", cli.OKStyle.Render("✓"), path)
	return nil
}

func newLintCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "lint <file>",
		Short: "Validate an OpenAPI document and list import warnings",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := storage.ReadText(args[0])
			if err != nil {
				return err
			}
			return a.lint(cmd.Context(), text)
		},
	}
}

func (a *app) lint(ctx context.Context, text string) error {
	if err := openapi.Validate(ctx, text); err != nil {
		return err
	}
	res, err := openapi.Import(text)
	if err != nil {
		return err
	}
	for _, warning := range res.Warnings {
		a.printf("%s %s\n", cli.WarnStyle.Render("!"), warning)
	}
	a.printf("%s valid, %d operations\n", cli.OKStyle.Render("✓"), len(res.Root.Leaves()))
	return nil
}
