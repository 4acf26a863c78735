package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// engineNames lists the engines in panel order.
var engineNames = []string{"mysql", "postgres", "sqlite"}

// Config holds the full TOML-driven configuration.
type Config struct {
	Table    string        `toml:"table"`
	MySQL    EngineConfig  `toml:"mysql"`
	Postgres EngineConfig  `toml:"postgres"`
	SQLite   EngineConfig  `toml:"sqlite"`
	Log      LogConfig     `toml:"log"`
	Display  DisplayConfig `toml:"display"`
	Hooks    HooksConfig   `toml:"hooks"`

	// configDir is the directory containing the TOML file, used to resolve relative paths.
	configDir string
}

// EngineConfig configures one engine panel. An engine with neither DSN nor path is disabled.
type EngineConfig struct {
	DSN       string `toml:"dsn"`  // mysql, postgres
	Path      string `toml:"path"` // sqlite
	Bootstrap bool   `toml:"bootstrap"`
	ReadOnly  bool   `toml:"read_only"`
}

func (e EngineConfig) enabled() bool {
	return e.DSN != "" || e.Path != ""
}

type LogConfig struct {
	Level string `toml:"level"` // debug|info|warn|error
}

type DisplayConfig struct {
	Limit int `toml:"limit"` // rows rendered per panel, 0 = all
}

// HooksConfig lists SQL files run on a migration target around the row copy.
type HooksConfig struct {
	BeforeCopy []string `toml:"before_copy"`
	AfterCopy  []string `toml:"after_copy"`
}

// loadConfig reads a TOML config file and returns a Config with defaults applied.
func loadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := Config{
		Table:   licenseTable,
		MySQL:   EngineConfig{Bootstrap: true},
		Log:     LogConfig{Level: "info"},
		Display: DisplayConfig{Limit: 100},
	}
	md, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if unknown := md.Undecoded(); len(unknown) > 0 {
		keys := make([]string, len(unknown))
		for i, k := range unknown {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("unknown config keys: %s", strings.Join(keys, ", "))
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve config path: %w", err)
	}
	cfg.configDir = filepath.Dir(absPath)

	cfg.Table = strings.TrimSpace(cfg.Table)
	if cfg.Table == "" {
		return nil, fmt.Errorf("table is required")
	}

	switch strings.ToLower(strings.TrimSpace(cfg.Log.Level)) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return nil, fmt.Errorf("log.level must be one of: debug, info, warn, error")
	}

	if cfg.Display.Limit < 0 {
		return nil, fmt.Errorf("display.limit must not be negative")
	}

	if cfg.MySQL.Path != "" {
		return nil, fmt.Errorf("mysql.path is a SQLite-only option (use mysql.dsn)")
	}
	if cfg.Postgres.Path != "" {
		return nil, fmt.Errorf("postgres.path is a SQLite-only option (use postgres.dsn)")
	}
	if cfg.SQLite.DSN != "" {
		return nil, fmt.Errorf("sqlite.dsn is not supported (use sqlite.path)")
	}
	if cfg.MySQL.DSN != "" {
		if _, err := mysqlDSNWithOptions(cfg.MySQL.DSN); err != nil {
			return nil, err
		}
	}
	if cfg.SQLite.Path != "" {
		if _, err := sqliteURI(cfg.SQLite.Path); err != nil {
			return nil, err
		}
		if !strings.HasPrefix(cfg.SQLite.Path, "file:") {
			cfg.SQLite.Path = cfg.resolvePath(cfg.SQLite.Path)
		}
	}

	if len(cfg.enabledEngines()) == 0 {
		return nil, fmt.Errorf("at least one of mysql.dsn, postgres.dsn or sqlite.path is required")
	}

	return &cfg, nil
}

// engine returns the configuration for the named engine.
func (c *Config) engine(name string) (EngineConfig, error) {
	switch name {
	case "mysql":
		return c.MySQL, nil
	case "postgres":
		return c.Postgres, nil
	case "sqlite":
		return c.SQLite, nil
	default:
		return EngineConfig{}, fmt.Errorf("unsupported engine %q (must be mysql, postgres or sqlite)", name)
	}
}

func (c *Config) enabledEngines() []string {
	var names []string
	for _, name := range engineNames {
		if ec, _ := c.engine(name); ec.enabled() {
			names = append(names, name)
		}
	}
	return names
}

// resolvePath resolves a path relative to the config file directory.
func (c *Config) resolvePath(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.configDir, p)
}
