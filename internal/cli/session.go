package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"

	"todopanel/internal/bridge"
	"todopanel/internal/config"
	"todopanel/internal/storage"
)

// session owns the service objects for one command run: config, logger, the
// two stores and the router that sits in front of them.
type session struct {
	cfg        config.Config
	configPath string
	created    bool
	root       string

	log    *log.Logger
	stores storage.Selector
	router *bridge.Router

	closers []io.Closer
}

// openSession loads config and wires the stores. Logs go to logOut, or to the
// configured log file when logOut is nil.
func openSession(app *App, logOut io.Writer) (*session, error) {
	configPath := app.ConfigPath
	if configPath == "" {
		configPath = config.ResolveConfigPath()
	}
	created := false
	if _, err := os.Stat(configPath); err != nil {
		created = errors.Is(err, os.ErrNotExist)
	}
	cfg, err := config.LoadOrCreate(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	s := &session{cfg: cfg, configPath: configPath, created: created}

	if logOut == nil {
		f, err := openLogFile(cfg.LogFile)
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, f)
		logOut = f
	}
	s.log = newLogger(logOut, cfg.LogLevel)
	log.SetDefault(s.log)

	var kv storage.KV
	if app.Ephemeral {
		kv = storage.NewMemoryKV()
	} else {
		db, err := storage.OpenSQLiteKV(cfg.DBPath)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("open database: %w", err)
		}
		s.closers = append(s.closers, db)
		kv = db
	}

	root, err := resolveWorkspace(app.Workspace, cfg.ProjectFile)
	if err != nil {
		s.Close()
		return nil, err
	}
	s.root = root

	s.stores = storage.Selector{
		Global:  storage.NewGlobalStore(kv),
		Project: storage.NewProjectStore(root, cfg.ProjectFile),
	}
	s.router = bridge.NewRouter(s.stores, bridge.WithLogger(s.log))
	s.log.Debug("session opened", "config", configPath, "db", cfg.DBPath, "ephemeral", app.Ephemeral, "project", root)
	return s, nil
}

func (s *session) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		_ = s.closers[i].Close()
	}
	s.closers = nil
}

func openLogFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return f, nil
}

func newLogger(w io.Writer, level string) *log.Logger {
	logger := log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		Prefix:          "todopanel",
	})
	lvl, err := log.ParseLevel(level)
	if err != nil {
		lvl = log.InfoLevel
		logger.Warn("unknown log level, using info", "level", level)
	}
	logger.SetLevel(lvl)
	return logger
}
