package main

import (
	"flag"
	"testing"
)

func TestLoadConfigFlagsThenEnv(t *testing.T) {
	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	c, err := loadConfig(fs, []string{"-addr", ":9000", "-game", "skirmish"}, map[string]string{
		"GT_DATA_DIR":   "/var/lib/gt",
		"GT_DISABLE_DB": "true",
		"LOG_FORMAT":    "json",
		"GT_INDEX_DSN":  "postgres://gt@localhost/gt",
	})
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if c.Addr != ":9000" || c.GameID != "skirmish" {
		t.Fatalf("flags lost: %+v", c)
	}
	if c.DataDir != "/var/lib/gt" || !c.DisableDB || c.LogFormat != "json" || c.IndexDSN != "postgres://gt@localhost/gt" {
		t.Fatalf("env not applied: %+v", c)
	}
	if c.TuningPath != "./configs/game.yaml" || c.LogLevel != "info" {
		t.Fatalf("defaults lost: %+v", c)
	}
}

func TestEnvOverridesFlags(t *testing.T) {
	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	c, err := loadConfig(fs, []string{"-addr", ":9000"}, map[string]string{"GT_ADDR": ":7000"})
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if c.Addr != ":7000" {
		t.Fatalf("addr = %s", c.Addr)
	}
}

func TestBadDisableDB(t *testing.T) {
	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	if _, err := loadConfig(fs, nil, map[string]string{"GT_DISABLE_DB": "maybe"}); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestOpenRuntimeIndex(t *testing.T) {
	dir := t.TempDir()
	idx, err := openRuntimeIndex(dir, "r1", serverConfig{IndexBackend: "none"})
	if err != nil || idx != nil {
		t.Fatalf("none backend: idx=%v err=%v", idx, err)
	}
	idx, err = openRuntimeIndex(dir, "r1", serverConfig{IndexBackend: "sqlite", DisableDB: true})
	if err != nil || idx != nil {
		t.Fatalf("disabled: idx=%v err=%v", idx, err)
	}
	if _, err := openRuntimeIndex(dir, "r1", serverConfig{IndexBackend: "d1"}); err == nil {
		t.Fatalf("expected unsupported backend error")
	}
	if _, err := openRuntimeIndex(dir, "r1", serverConfig{IndexBackend: "postgres"}); err == nil {
		t.Fatalf("expected missing dsn error")
	}
	idx, err = openRuntimeIndex(dir, "r1", serverConfig{})
	if err != nil || idx == nil {
		t.Fatalf("sqlite backend: idx=%v err=%v", idx, err)
	}
	if idx.Backend() != "sqlite" {
		t.Fatalf("backend = %s", idx.Backend())
	}
	_ = idx.Close()
}
