package indexdb

import (
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
)

var postgresDialect = dialect{
	name: "postgres",
	schema: []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS configs (
			run TEXT NOT NULL,
			name TEXT NOT NULL,
			digest TEXT NOT NULL,
			json JSONB NOT NULL,
			updated_at TIMESTAMP WITH TIME ZONE NOT NULL,
			PRIMARY KEY (run, name)
		)`,
		`CREATE TABLE IF NOT EXISTS commands (
			seq BIGSERIAL PRIMARY KEY,
			run TEXT NOT NULL,
			tick BIGINT NOT NULL,
			event TEXT NOT NULL,
			kind TEXT NOT NULL,
			origin TEXT NOT NULL,
			player BIGINT NOT NULL,
			ts BIGINT NOT NULL,
			payload TEXT NOT NULL,
			error TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_commands_kind_tick ON commands(run, kind, tick)`,
		`CREATE INDEX IF NOT EXISTS idx_commands_player_tick ON commands(run, player, tick)`,
		`CREATE TABLE IF NOT EXISTS snapshots (
			run TEXT NOT NULL,
			tick BIGINT NOT NULL,
			path TEXT NOT NULL,
			digest TEXT NOT NULL,
			maps INTEGER NOT NULL,
			objects INTEGER NOT NULL,
			players INTEGER NOT NULL,
			PRIMARY KEY (run, tick)
		)`,
	},
	upsertMeta: `INSERT INTO meta(key,value) VALUES($1,$2)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`,
	upsertConfig: `INSERT INTO configs(run,name,digest,json,updated_at) VALUES($1,$2,$3,$4,$5)
		ON CONFLICT (run, name) DO UPDATE SET digest = EXCLUDED.digest, json = EXCLUDED.json, updated_at = EXCLUDED.updated_at`,
	insertCommand: `INSERT INTO commands(run,tick,event,kind,origin,player,ts,payload,error) VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
	insertSnapshot: `INSERT INTO snapshots(run,tick,path,digest,maps,objects,players) VALUES($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (run, tick) DO UPDATE SET path = EXCLUDED.path, digest = EXCLUDED.digest,
		maps = EXCLUDED.maps, objects = EXCLUDED.objects, players = EXCLUDED.players`,
	commandsByKind: `SELECT seq,tick,event,kind,origin,player,ts,payload,COALESCE(error,'') FROM commands WHERE run=$1 AND kind=$2 ORDER BY seq`,
	latestSnapshot: `SELECT path,tick FROM snapshots WHERE run=$1 ORDER BY tick DESC LIMIT 1`,
}

// OpenPostgres connects to a shared PostgreSQL database. Rows of different runs
// live side by side and are told apart by run.
func OpenPostgres(dsn, run string) (*Index, error) {
	if dsn == "" {
		return nil, fmt.Errorf("empty postgres dsn")
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	db.SetMaxOpenConns(4)
	return newIndex(db, postgresDialect, run)
}
