package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/blackcoderx/reqtree/pkg/cli"
	"github.com/blackcoderx/reqtree/pkg/compiler"
	"github.com/blackcoderx/reqtree/pkg/config"
	"github.com/blackcoderx/reqtree/pkg/storage"
	"github.com/blackcoderx/reqtree/pkg/tree"
)

func newCompileCmd(a *app) *cobra.Command {
	var copyOut bool
	cmd := &cobra.Command{
		Use:   "compile <path>",
		Short: "Print the HTTP call a saved request compiles to, as curl",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := a.load()
			if err != nil {
				return err
			}
			p, err := tree.ParsePath(args[0])
			if err != nil {
				return err
			}
			env, err := a.environment()
			if err != nil {
				return err
			}
			content, server, err := w.Prepare(p, a.serverIndex(w), env)
			if err != nil {
				return err
			}
			req, err := compiler.Compile(content, server)
			if err != nil {
				return err
			}

			curl := req.Curl()
			a.printf("%s\n", curl)
			if copyOut {
				if err := a.clip.WriteAll(curl); err != nil {
					return err
				}
				a.printf("%s\n", cli.HelpStyle.Render("copied to clipboard"))
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&copyOut, "copy", "c", false, "copy the curl command to the clipboard")
	return cmd
}

func newSendCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "send <path>",
		Short: "Send a saved request and store its response",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := a.load()
			if err != nil {
				return err
			}
			p, err := tree.ParsePath(args[0])
			if err != nil {
				return err
			}
			env, err := a.environment()
			if err != nil {
				return err
			}

			resp, sendErr := w.Send(cmd.Context(), a.transport, p, a.serverIndex(w), env)
			if resp == nil {
				return sendErr
			}
			if err := a.save(w); err != nil {
				return err
			}
			a.printf("%s", cli.RenderResponse(resp))
			return sendErr
		},
	}
}

func newRunCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "run [folder]",
		Short: "Send every request under a folder, in order",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := a.load()
			if err != nil {
				return err
			}
			p := tree.Path{}
			if len(args) == 1 {
				if p, err = tree.ParsePath(args[0]); err != nil {
					return err
				}
			}
			env, err := a.environment()
			if err != nil {
				return err
			}

			results, runErr := w.RunFolder(cmd.Context(), a.transport, p, a.serverIndex(w), env, a.cfg.Limiter())
			if len(results) > 0 {
				if err := a.save(w); err != nil {
					return err
				}
				a.printf("%s", cli.RenderRun(results))
			}
			if runErr != nil {
				return runErr
			}

			failed := 0
			for _, r := range results {
				if !r.Passed() {
					failed++
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d requests failed", failed, len(results))
			}
			return nil
		},
	}
}

func newEnvCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "env",
		Short: "List environments",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			names, err := storage.ListEnvironments(filepath.Join(a.dir, config.FolderName))
			if err != nil {
				return err
			}
			active := a.envName
			if active == "" {
				active = a.cfg.Environment
			}
			for _, name := range names {
				marker := "  "
				if name == active {
					marker = cli.OKStyle.Render("* ")
				}
				a.printf("%s%s\n", marker, name)
			}
			return nil
		},
	}
	return cmd
}
