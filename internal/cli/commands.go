package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"todopanel/internal/bridge"
	"todopanel/internal/ui"
)

func newAddCmd(app *App) *cobra.Command {
	var project bool

	cmd := &cobra.Command{
		Use:   "add <text...>",
		Short: "Add a todo without opening the panel",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.TrimSpace(strings.Join(args, " "))
			if text == "" {
				return writeErr(cmd, errors.New("todo text is empty"))
			}
			s, err := openSession(app, cmd.ErrOrStderr())
			if err != nil {
				return writeErr(cmd, err)
			}
			defer s.Close()

			scope := scopeFlag(project)
			if _, err := s.router.QuickAdd(text, scope, bridge.Discard); err != nil {
				return writeErr(cmd, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Todo added to %s list\n", scope.Label())
			return nil
		},
	}

	cmd.Flags().BoolVarP(&project, "project", "p", false, "Add to the project list")
	return cmd
}

func newListCmd(app *App) *cobra.Command {
	var (
		project bool
		history bool
		search  string
		asJSON  bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Print the active or completed todos",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(app, cmd.ErrOrStderr())
			if err != nil {
				return writeErr(cmd, err)
			}
			defer s.Close()

			var rec bridge.Recorder
			if err := s.router.Handle(bridge.Request{Type: bridge.GetTodos, Scope: string(scopeFlag(project))}, &rec); err != nil {
				return writeErr(cmd, err)
			}
			todos, _ := rec.LastLoaded()
			items := ui.VisibleItems(todos, search, history)

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(items)
			}
			if len(items) == 0 {
				fmt.Fprintln(out, "No todos")
				return nil
			}
			now := time.Now()
			for _, it := range items {
				fmt.Fprintln(out, ui.ItemLine(it, now))
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&project, "project", "p", false, "Use the project list")
	cmd.Flags().BoolVar(&history, "history", false, "Show completed todos, newest first")
	cmd.Flags().StringVar(&search, "search", "", "Only show todos containing this text")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON")
	return cmd
}

func newImportCmd(app *App) *cobra.Command {
	var project bool

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Append todos from a .json or .yaml file",
		Long: strings.TrimSpace(`
Append todos from a file. JSON files may hold a plain array of todos or a
project document ({"version", "todos", "lastModified"}); YAML files may hold
either shape too. Items are appended as-is, ids included.
`),
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			items, err := readImportFile(args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			s, err := openSession(app, cmd.ErrOrStderr())
			if err != nil {
				return writeErr(cmd, err)
			}
			defer s.Close()

			scope := scopeFlag(project)
			if err := s.router.Handle(bridge.Request{Type: bridge.ImportTodos, Scope: string(scope), Todos: items}, bridge.Discard); err != nil {
				return writeErr(cmd, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d todos to %s list\n", len(items), scope.Label())
			return nil
		},
	}

	cmd.Flags().BoolVarP(&project, "project", "p", false, "Import into the project list")
	return cmd
}

func newClearCmd(app *App) *cobra.Command {
	var project bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove all completed todos",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(app, cmd.ErrOrStderr())
			if err != nil {
				return writeErr(cmd, err)
			}
			defer s.Close()

			scope := scopeFlag(project)
			if err := s.router.Handle(bridge.Request{Type: bridge.ClearCompleted, Scope: string(scope)}, bridge.Discard); err != nil {
				return writeErr(cmd, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cleared completed todos from %s list\n", scope.Label())
			return nil
		},
	}

	cmd.Flags().BoolVarP(&project, "project", "p", false, "Clear the project list")
	return cmd
}

func newServeCmd(app *App) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Expose the todo protocol over a websocket",
		Example: strings.TrimSpace(`
# Serve on the configured address
todo serve

# Serve on all interfaces
todo serve --addr :7077
`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(app, cmd.ErrOrStderr())
			if err != nil {
				return writeErr(cmd, err)
			}
			defer s.Close()

			listenAddr := strings.TrimSpace(addr)
			if listenAddr == "" {
				listenAddr = s.cfg.ServeAddr
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			s.log.Info("bridge listening", "addr", "ws://"+listenAddr+"/ws", "project", s.root)
			if err := bridge.NewWSServer(s.router, s.log).ListenAndServe(ctx, listenAddr); err != nil {
				return writeErr(cmd, err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Bind address (host:port or :port)")
	return cmd
}

