package indexdb

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"gridtactics.dev/internal/persistence/snapshot"
	"gridtactics.dev/internal/sim/commands"
)

// Index is a queryable secondary index of the command history. Writes are
// queued and applied by one goroutine; the journal remains the source of truth.
type Index struct {
	db  *sql.DB
	d   dialect
	run string

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	// mu guards closed and the sends on ch against Close.
	mu     sync.RWMutex
	closed bool

	dropCommand  atomic.Uint64
	dropSnapshot atomic.Uint64
}

// dialect holds the backend specific SQL. Statements take the run id as their
// first argument.
type dialect struct {
	name   string
	schema []string

	upsertMeta     string
	upsertConfig   string
	insertCommand  string
	insertSnapshot string
	commandsByKind string
	latestSnapshot string
}

type reqKind int

const (
	reqCommand reqKind = iota + 1
	reqSnapshot
	reqSync
)

type req struct {
	kind reqKind

	command  commandRow
	snapshot snapshotRow
	done     chan struct{}
}

type commandRow struct {
	Tick      uint64
	Event     string
	Kind      string
	Origin    string
	Player    uint32
	Timestamp int64
	Payload   string
	Error     string
}

type snapshotRow struct {
	Tick    uint64
	Path    string
	Digest  string
	Maps    int
	Objects int
	Players int
}

// CommandRow is a command history row as returned by queries.
type CommandRow struct {
	Seq       int64
	Tick      uint64
	Event     commands.EventType
	Kind      string
	Origin    string
	Player    uint32
	Timestamp int64
	Payload   json.RawMessage
	Error     string
}

type Stats struct {
	DropCommandTotal  uint64
	DropSnapshotTotal uint64
	QueueDepth        int
	QueueCapacity     int
}

func newIndex(db *sql.DB, d dialect, run string) (*Index, error) {
	for _, stmt := range d.schema {
		if _, err := db.Exec(stmt); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	s := &Index{
		db:  db,
		d:   d,
		run: run,
		ch:  make(chan req, 65536),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

// Backend names the SQL dialect in use.
func (s *Index) Backend() string {
	if s == nil {
		return ""
	}
	return s.d.name
}

func (s *Index) Close() error {
	var err error
	s.once.Do(func() {
		s.mu.Lock()
		s.closed = true
		close(s.ch)
		s.mu.Unlock()
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

// OnCommand queues a history transition. It never blocks the drain: when the
// writer falls behind the row is dropped and counted.
func (s *Index) OnCommand(ev commands.Event) {
	if s == nil {
		return
	}
	row := commandRow{
		Tick:      ev.Tick,
		Event:     string(ev.Type),
		Kind:      ev.Record.Kind(),
		Origin:    ev.Record.Origin.String(),
		Player:    uint32(ev.Record.Player),
		Timestamp: ev.Record.Timestamp,
	}
	if env, err := commands.Encode(ev.Record); err == nil {
		row.Payload = string(env.Payload)
	}
	if ev.Err != nil {
		row.Error = ev.Err.Error()
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return
	}
	select {
	case s.ch <- req{kind: reqCommand, command: row}:
	default:
		s.dropCommand.Add(1)
	}
}

func (s *Index) RecordSnapshot(path string, snap snapshot.SnapshotV1) {
	if s == nil {
		return
	}
	r := snapshotRow{
		Tick:    snap.Header.Tick,
		Path:    path,
		Digest:  snap.Header.Digest,
		Maps:    len(snap.Maps),
		Objects: len(snap.Objects),
		Players: len(snap.Players),
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return
	}
	select {
	case s.ch <- req{kind: reqSnapshot, snapshot: r}:
	default:
		s.dropSnapshot.Add(1)
	}
}

// Sync waits until everything queued so far is committed.
func (s *Index) Sync(ctx context.Context) error {
	if s == nil {
		return nil
	}
	done := make(chan struct{})
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return nil
	}
	select {
	case s.ch <- req{kind: reqSync, done: done}:
		s.mu.RUnlock()
	case <-ctx.Done():
		s.mu.RUnlock()
		return ctx.Err()
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Index) Stats() Stats {
	if s == nil {
		return Stats{}
	}
	return Stats{
		DropCommandTotal:  s.dropCommand.Load(),
		DropSnapshotTotal: s.dropSnapshot.Load(),
		QueueDepth:        len(s.ch),
		QueueCapacity:     cap(s.ch),
	}
}

// UpsertConfig stores the canonical JSON of a configuration the game runs with.
func (s *Index) UpsertConfig(name string, v any) error {
	if s == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	sum := sha256.Sum256(b)
	now := time.Now().UTC().Format(time.RFC3339Nano)

	tx, err := s.db.BeginTx(context.Background(), nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	if _, err := tx.Exec(s.d.upsertMeta, "schema_version", "2"); err != nil {
		return err
	}
	if _, err := tx.Exec(s.d.upsertConfig, s.run, name, hex.EncodeToString(sum[:]), string(b), now); err != nil {
		return err
	}
	return tx.Commit()
}

// CommandsByKind lists the run's rows of one command kind in history order.
func (s *Index) CommandsByKind(ctx context.Context, kind string) ([]CommandRow, error) {
	rows, err := s.db.QueryContext(ctx, s.d.commandsByKind, s.run, kind)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []CommandRow
	for rows.Next() {
		var (
			r       CommandRow
			tick    int64
			event   string
			payload string
		)
		if err := rows.Scan(&r.Seq, &tick, &event, &r.Kind, &r.Origin, &r.Player, &r.Timestamp, &payload, &r.Error); err != nil {
			return nil, err
		}
		r.Tick = uint64(tick)
		r.Event = commands.EventType(event)
		r.Payload = json.RawMessage(payload)
		out = append(out, r)
	}
	return out, rows.Err()
}

// LatestSnapshot returns the path and tick of the newest snapshot recorded for the run.
func (s *Index) LatestSnapshot(ctx context.Context) (path string, tick uint64, err error) {
	var t int64
	err = s.db.QueryRowContext(ctx, s.d.latestSnapshot, s.run).Scan(&path, &t)
	if err != nil {
		return "", 0, err
	}
	return path, uint64(t), nil
}

func (s *Index) loop() {
	ctx := context.Background()

	insertCommand, _ := s.db.Prepare(s.d.insertCommand)
	insertSnapshot, _ := s.db.Prepare(s.d.insertSnapshot)
	defer func() {
		if insertCommand != nil {
			_ = insertCommand.Close()
		}
		if insertSnapshot != nil {
			_ = insertSnapshot.Close()
		}
	}()

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 2000
		commitMaxWait = 2 * time.Second
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
		opCount = 0
		lastCommit = time.Now()
	}
	commit := func() {
		if tx == nil {
			return
		}
		_ = tx.Commit()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	rollback := func() {
		if tx == nil {
			return
		}
		_ = tx.Rollback()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	flushIfNeeded := func() {
		if tx == nil {
			return
		}
		// An idle queue commits right away so readers never wait on the writer.
		if opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait || len(s.ch) == 0 {
			commit()
		}
	}

	for r := range s.ch {
		if r.kind == reqSync {
			commit()
			close(r.done)
			continue
		}
		begin()
		if tx == nil {
			continue
		}
		switch r.kind {
		case reqCommand:
			c := r.command
			if insertCommand == nil {
				continue
			}
			var errText any
			if c.Error != "" {
				errText = c.Error
			}
			if _, err := tx.Stmt(insertCommand).Exec(s.run, int64(c.Tick), c.Event, c.Kind, c.Origin, c.Player, c.Timestamp, c.Payload, errText); err != nil {
				rollback()
				continue
			}
			opCount++

		case reqSnapshot:
			sn := r.snapshot
			if insertSnapshot == nil {
				continue
			}
			if _, err := tx.Stmt(insertSnapshot).Exec(s.run, int64(sn.Tick), sn.Path, sn.Digest, sn.Maps, sn.Objects, sn.Players); err != nil {
				rollback()
				continue
			}
			opCount++
		}
		flushIfNeeded()
	}

	commit()
}
