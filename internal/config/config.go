package config

import (
	"errors"
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
)

const (
	DefaultConfigFileName = "config.toml"
	DefaultDBName         = "todos.db"
	DefaultLogName        = "todopanel.log"
	DefaultProjectFile    = ".vscode/todos.json"
	DefaultServeAddr      = "127.0.0.1:7077"

	envConfigPath = "TODOPANEL_CONFIG"
	appDirName    = "todopanel"
)

type Keymap struct {
	Quit         string `toml:"quit"`
	Add          string `toml:"add"`
	Up           string `toml:"up"`
	Down         string `toml:"down"`
	Toggle       string `toml:"toggle"`
	Delete       string `toml:"delete"`
	Detail       string `toml:"detail"`
	Confirm      string `toml:"confirm"`
	Cancel       string `toml:"cancel"`
	Edit         string `toml:"edit"`
	Search       string `toml:"search"`
	History      string `toml:"history"`
	Scope        string `toml:"scope"`
	ClearHistory string `toml:"clear_history"`
	Paste        string `toml:"paste"`
}

type Config struct {
	DBPath       string `toml:"db_path"`
	ProjectFile  string `toml:"project_file"`
	DefaultScope string `toml:"default_scope"`
	LogFile      string `toml:"log_file"`
	LogLevel     string `toml:"log_level"`
	ServeAddr    string `toml:"serve_addr"`
	Keys         Keymap `toml:"keys"`
}

// ResolveConfigPath returns $TODOPANEL_CONFIG when set, otherwise config.toml
// under the user config directory.
func ResolveConfigPath() string {
	if p := os.Getenv(envConfigPath); p != "" {
		return p
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return DefaultConfigFileName
	}
	return filepath.Join(dir, appDirName, DefaultConfigFileName)
}

// LoadOrCreate reads the config at path, writing the defaults there first when
// the file does not exist yet. Relative db_path and log_file are resolved
// against the config file's directory.
func LoadOrCreate(path string) (Config, error) {
	cfg := defaultConfig()
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := write(path, cfg); err != nil {
			return cfg, err
		}
		return cfg.resolve(filepath.Dir(path)), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	cfg.fillDefaults()
	return cfg.resolve(filepath.Dir(path)), nil
}

func write(path string, cfg Config) error {
	data, err := toml.Marshal(cfg)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func (c *Config) fillDefaults() {
	def := defaultConfig()
	if c.DBPath == "" {
		c.DBPath = def.DBPath
	}
	if c.ProjectFile == "" {
		c.ProjectFile = def.ProjectFile
	}
	if c.DefaultScope == "" {
		c.DefaultScope = def.DefaultScope
	}
	if c.LogFile == "" {
		c.LogFile = def.LogFile
	}
	if c.LogLevel == "" {
		c.LogLevel = def.LogLevel
	}
	if c.ServeAddr == "" {
		c.ServeAddr = def.ServeAddr
	}
	c.Keys.fillDefaults(def.Keys)
}

func (k *Keymap) fillDefaults(def Keymap) {
	fields := []struct {
		dst *string
		val string
	}{
		{&k.Quit, def.Quit},
		{&k.Add, def.Add},
		{&k.Up, def.Up},
		{&k.Down, def.Down},
		{&k.Toggle, def.Toggle},
		{&k.Delete, def.Delete},
		{&k.Detail, def.Detail},
		{&k.Confirm, def.Confirm},
		{&k.Cancel, def.Cancel},
		{&k.Edit, def.Edit},
		{&k.Search, def.Search},
		{&k.History, def.History},
		{&k.Scope, def.Scope},
		{&k.ClearHistory, def.ClearHistory},
		{&k.Paste, def.Paste},
	}
	for _, f := range fields {
		if *f.dst == "" {
			*f.dst = f.val
		}
	}
}

func (c Config) resolve(dir string) Config {
	if c.DBPath != "" && !filepath.IsAbs(c.DBPath) {
		c.DBPath = filepath.Join(dir, c.DBPath)
	}
	if c.LogFile != "" && !filepath.IsAbs(c.LogFile) {
		c.LogFile = filepath.Join(dir, c.LogFile)
	}
	return c
}

func defaultConfig() Config {
	return Config{
		DBPath:       DefaultDBName,
		ProjectFile:  DefaultProjectFile,
		DefaultScope: "global",
		LogFile:      DefaultLogName,
		LogLevel:     "info",
		ServeAddr:    DefaultServeAddr,
		Keys: Keymap{
			Quit:         "q",
			Add:          "a",
			Up:           "k",
			Down:         "j",
			Toggle:       " ",
			Delete:       "d",
			Detail:       "enter",
			Confirm:      "enter",
			Cancel:       "esc",
			Edit:         "e",
			Search:       "/",
			History:      "h",
			Scope:        "tab",
			ClearHistory: "C",
			Paste:        "ctrl+v",
		},
	}
}
