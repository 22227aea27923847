package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/blackcoderx/reqtree/pkg/cli"
	"github.com/blackcoderx/reqtree/pkg/compiler"
	"github.com/blackcoderx/reqtree/pkg/config"
	"github.com/blackcoderx/reqtree/pkg/storage"
	"github.com/blackcoderx/reqtree/pkg/transport"
	"github.com/blackcoderx/reqtree/pkg/workspace"
)

// version is set at release time with -ldflags "-X main.version=...".
var version = "dev"

// app is the state shared by every command of one invocation.
type app struct {
	dir       string
	cfgFile   string
	wsFile    string
	envName   string
	server    int
	verbose   bool
	cfg       config.Config
	out       io.Writer
	prompt    cli.Prompter
	clip      cli.Clipboard
	transport compiler.Transport
}

func newApp() *app {
	return &app{
		out:    os.Stdout,
		prompt: cli.Dialog{},
		clip:   cli.SystemClipboard{},
	}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "reqtree",
		Short: "reqtree - API requests as a tree, in sync with OpenAPI",
		Long: `reqtree keeps saved HTTP requests in a folder tree, sends them against
configured servers with their auth, and imports or exports the tree as an
OpenAPI 3 document.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
	}

	root.PersistentFlags().StringVar(&a.dir, "dir", ".", "project directory holding the .reqtree folder")
	root.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (default is .reqtree/config.json)")
	root.PersistentFlags().StringVarP(&a.wsFile, "workspace", "w", "", "workspace file (default from config)")
	root.PersistentFlags().StringVarP(&a.envName, "env", "e", "", "environment for variable substitution (default from config)")
	root.PersistentFlags().IntVarP(&a.server, "server", "s", 0, "server index to send against, -1 for none")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "log at debug level")

	root.AddCommand(
		newInitCmd(a),
		newImportCmd(a),
		newExportCmd(a),
		newLintCmd(a),
		newLsCmd(a),
		newShowCmd(a),
		newMkdirCmd(a),
		newAddCmd(a),
		newRenameCmd(a),
		newRmCmd(a),
		newMvCmd(a),
		newExpandCmd(a, true),
		newExpandCmd(a, false),
		newServerCmd(a),
		newEnvCmd(a),
		newCompileCmd(a),
		newSendCmd(a),
		newRunCmd(a),
		newUpdateCmd(a),
	)
	return root
}

// setup loads .env, bootstraps the .reqtree folder, reads the config and
// installs the logger.
func (a *app) setup() error {
	if err := config.LoadDotEnv(filepath.Join(a.dir, ".env")); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}

	created, err := config.Initialize(a.dir)
	if err != nil {
		return fmt.Errorf("error initializing %s folder: %w", config.FolderName, err)
	}

	cfg, err := config.Load(config.NewViper(a.dir, a.cfgFile))
	if err != nil {
		return err
	}
	a.cfg = cfg

	level := cfg.Level()
	if a.verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	if created {
		slog.Info("initialized project folder", "dir", filepath.Join(a.dir, config.FolderName))
	}
	if a.transport == nil {
		a.transport = transport.NewHTTP(cfg.Timeout())
	}
	return nil
}

func (a *app) workspacePath() string {
	p := a.wsFile
	if p == "" {
		p = a.cfg.Workspace
	}
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(a.dir, p)
}

func (a *app) load() (*workspace.Workspace, error) {
	w, err := workspace.Load(a.workspacePath())
	if err != nil {
		return nil, err
	}
	w.SetLogger(slog.Default())
	return w, nil
}

func (a *app) save(w *workspace.Workspace) error {
	return w.Save(a.workspacePath())
}

// environment loads the selected environment. A missing default environment
// is treated as empty; a missing one named on the command line is an error.
func (a *app) environment() (map[string]string, error) {
	name := a.envName
	explicit := name != ""
	if !explicit {
		name = a.cfg.Environment
	}
	if name == "" {
		return nil, nil
	}
	env, err := storage.LoadNamedEnvironment(filepath.Join(a.dir, config.FolderName), name)
	if err != nil {
		if explicit {
			return nil, err
		}
		slog.Debug("default environment not loaded", "env", name, "error", err)
		return nil, nil
	}
	return env, nil
}

// serverIndex maps the --server flag onto the workspace, falling back to no
// server when the workspace has none.
func (a *app) serverIndex(w *workspace.Workspace) int {
	if a.server < 0 || len(w.Servers) == 0 {
		return workspace.NoServer
	}
	return a.server
}

func (a *app) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format, args...)
}

func main() {
	if err := newRootCmd(newApp()).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, cli.ErrorStyle.Render("Error: "+err.Error()))
		os.Exit(1)
	}
}
