package main

import (
	"flag"
	"fmt"
	"strconv"
	"strings"

	"github.com/caarlos0/env/v11"
)

type serverConfig struct {
	Addr         string
	GameID       string
	DataDir      string
	TuningPath   string
	DisableDB    bool
	IndexBackend string
	IndexDSN     string
	LogLevel     string
	LogFormat    string
}

// serverEnv overrides flags when a variable is set.
type serverEnv struct {
	Addr         string `env:"GT_ADDR"`
	GameID       string `env:"GT_GAME_ID"`
	DataDir      string `env:"GT_DATA_DIR"`
	TuningPath   string `env:"GT_TUNING"`
	DisableDB    string `env:"GT_DISABLE_DB"`
	IndexBackend string `env:"GT_INDEX_BACKEND"`
	IndexDSN     string `env:"GT_INDEX_DSN"`
	LogLevel     string `env:"LOG_LEVEL"`
	LogFormat    string `env:"LOG_FORMAT"`
}

func parseFlags(fs *flag.FlagSet, args []string) (serverConfig, error) {
	var c serverConfig
	fs.StringVar(&c.Addr, "addr", ":8080", "http listen address")
	fs.StringVar(&c.GameID, "game", "game_1", "game id")
	fs.StringVar(&c.DataDir, "data", "./data", "runtime data directory")
	fs.StringVar(&c.TuningPath, "tuning", "./configs/game.yaml", "path to the game tuning file")
	fs.BoolVar(&c.DisableDB, "disable_db", false, "disable the command index")
	fs.StringVar(&c.IndexBackend, "index_backend", "sqlite", "command index backend (sqlite|postgres|none)")
	fs.StringVar(&c.IndexDSN, "index_dsn", "", "postgres connection string for -index_backend=postgres")
	fs.StringVar(&c.LogLevel, "log_level", "info", "log level")
	fs.StringVar(&c.LogFormat, "log_format", "text", "log format (text|json)")
	if err := fs.Parse(args); err != nil {
		return c, err
	}
	return c, nil
}

func loadConfig(fs *flag.FlagSet, args []string, environ map[string]string) (serverConfig, error) {
	c, err := parseFlags(fs, args)
	if err != nil {
		return c, err
	}
	var e serverEnv
	opts := env.Options{}
	if environ != nil {
		opts.Environment = environ
	}
	if err := env.ParseWithOptions(&e, opts); err != nil {
		return c, fmt.Errorf("parse env: %w", err)
	}
	return c.apply(e)
}

func (c serverConfig) apply(e serverEnv) (serverConfig, error) {
	set := func(dst *string, v string) {
		if v = strings.TrimSpace(v); v != "" {
			*dst = v
		}
	}
	set(&c.Addr, e.Addr)
	set(&c.GameID, e.GameID)
	set(&c.DataDir, e.DataDir)
	set(&c.TuningPath, e.TuningPath)
	set(&c.IndexBackend, e.IndexBackend)
	set(&c.IndexDSN, e.IndexDSN)
	set(&c.LogLevel, e.LogLevel)
	set(&c.LogFormat, e.LogFormat)
	if v := strings.TrimSpace(e.DisableDB); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return c, fmt.Errorf("GT_DISABLE_DB: %w", err)
		}
		c.DisableDB = b
	}
	return c, nil
}
