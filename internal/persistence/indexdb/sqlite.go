package indexdb

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

var sqliteDialect = dialect{
	name: "sqlite",
	schema: []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS configs (
			run TEXT NOT NULL,
			name TEXT NOT NULL,
			digest TEXT NOT NULL,
			json TEXT NOT NULL,
			updated_at TEXT NOT NULL,
			PRIMARY KEY (run, name)
		);`,
		`CREATE TABLE IF NOT EXISTS commands (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			run TEXT NOT NULL,
			tick INTEGER NOT NULL,
			event TEXT NOT NULL,
			kind TEXT NOT NULL,
			origin TEXT NOT NULL,
			player INTEGER NOT NULL,
			ts INTEGER NOT NULL,
			payload TEXT NOT NULL,
			error TEXT
		);`,
		`CREATE INDEX IF NOT EXISTS idx_commands_kind_tick ON commands(run, kind, tick);`,
		`CREATE INDEX IF NOT EXISTS idx_commands_player_tick ON commands(run, player, tick);`,
		`CREATE TABLE IF NOT EXISTS snapshots (
			run TEXT NOT NULL,
			tick INTEGER NOT NULL,
			path TEXT NOT NULL,
			digest TEXT NOT NULL,
			maps INTEGER NOT NULL,
			objects INTEGER NOT NULL,
			players INTEGER NOT NULL,
			PRIMARY KEY (run, tick)
		);`,
	},
	upsertMeta:     `INSERT OR REPLACE INTO meta(key,value) VALUES(?,?)`,
	upsertConfig:   `INSERT OR REPLACE INTO configs(run,name,digest,json,updated_at) VALUES(?,?,?,?,?)`,
	insertCommand:  `INSERT INTO commands(run,tick,event,kind,origin,player,ts,payload,error) VALUES(?,?,?,?,?,?,?,?,?)`,
	insertSnapshot: `INSERT OR REPLACE INTO snapshots(run,tick,path,digest,maps,objects,players) VALUES(?,?,?,?,?,?,?)`,
	commandsByKind: `SELECT seq,tick,event,kind,origin,player,ts,payload,COALESCE(error,'') FROM commands WHERE run=? AND kind=? ORDER BY seq`,
	latestSnapshot: `SELECT path,tick FROM snapshots WHERE run=? ORDER BY tick DESC LIMIT 1`,
}

// OpenSQLite opens (creating if needed) a file-backed index for one run.
func OpenSQLite(path, run string) (*Index, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)
	return newIndex(db, sqliteDialect, run)
}
