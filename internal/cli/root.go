package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"todopanel/internal/bridge"
	"todopanel/internal/storage"
	"todopanel/internal/ui"
)

type App struct {
	ConfigPath string
	Workspace  string
	Ephemeral  bool
}

func NewRootCmd() *cobra.Command {
	app := &App{}

	cmd := &cobra.Command{
		Use:          "todo",
		Short:        "Global and per-project todo lists",
		SilenceUsage: true,
		Example: strings.TrimSpace(`
  # Open the panel
  todo

  # Quick add to the project list
  todo add --project "write release notes"

  # Print completed global todos as JSON
  todo list --history --json
`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPanel(cmd, app)
		},
	}

	cmd.PersistentFlags().StringVar(&app.ConfigPath, "config", "", "Path to config.toml (default: $TODOPANEL_CONFIG or the user config dir)")
	cmd.PersistentFlags().StringVar(&app.Workspace, "workspace", envOr("TODOPANEL_WORKSPACE", ""), "Project root for the project list (default: nearest folder with the metadata dir or .git)")
	cmd.PersistentFlags().BoolVar(&app.Ephemeral, "ephemeral", false, "Keep the global list in memory for this run only")

	cmd.AddCommand(newAddCmd(app))
	cmd.AddCommand(newListCmd(app))
	cmd.AddCommand(newImportCmd(app))
	cmd.AddCommand(newClearCmd(app))
	cmd.AddCommand(newServeCmd(app))

	return cmd
}

func runPanel(cmd *cobra.Command, app *App) error {
	s, err := openSession(app, nil)
	if err != nil {
		return writeErr(cmd, err)
	}
	defer s.Close()

	notice := ""
	if s.created {
		notice = fmt.Sprintf("Config created at %s", s.configPath)
	}
	if s.root == "" {
		s.log.Info("no active project; project list is read-only and empty")
	}

	pipe := bridge.NewPipe(16)
	ctx, cancel := context.WithCancel(cmd.Context())
	served := make(chan error, 1)
	go func() { served <- s.router.Serve(ctx, pipe) }()

	runErr := ui.Run(pipe, s.cfg, ui.Options{
		Scope:  storage.ParseScope(s.cfg.DefaultScope),
		Notice: notice,
	})
	pipe.Close()
	cancel()
	if err := <-served; err != nil {
		s.log.Error("router stopped", "err", err)
	}
	if runErr != nil {
		return writeErr(cmd, fmt.Errorf("run panel: %w", runErr))
	}
	return nil
}

func scopeFlag(project bool) storage.Scope {
	if project {
		return storage.ScopeProject
	}
	return storage.ScopeGlobal
}

func envOr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func writeErr(cmd *cobra.Command, err error) error {
	fmt.Fprintln(cmd.ErrOrStderr(), err.Error())
	return err
}
