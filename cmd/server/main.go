package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"

	"gridtactics.dev/internal/logging"
	"gridtactics.dev/internal/persistence/indexdb"
	persistlog "gridtactics.dev/internal/persistence/log"
	"gridtactics.dev/internal/persistence/snapshot"
	"gridtactics.dev/internal/protocol"
	"gridtactics.dev/internal/sim/commands"
	"gridtactics.dev/internal/sim/game"
	"gridtactics.dev/internal/sim/tuning"
	"gridtactics.dev/internal/transport/ws"
)

func main() {
	cfg, err := loadConfig(flag.CommandLine, os.Args[1:], nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(2)
	}
	logger := logging.New(cfg.LogLevel, cfg.LogFormat)

	tune, err := tuning.Load(cfg.TuningPath)
	if err != nil {
		logger.WithError(err).Fatal("load tuning")
	}

	// Every process start is a fresh run with its own journal.
	runID := ulid.Make().String()
	gameDir := filepath.Join(cfg.DataDir, "games", cfg.GameID, runID)
	if err := os.MkdirAll(gameDir, 0o755); err != nil {
		logger.WithError(err).Fatal("create game dir")
	}
	log := logger.WithFields(logrus.Fields{"game": cfg.GameID, "run": runID})

	journal := persistlog.NewJournal(gameDir, log.WithField("component", "journal"))
	defer journal.Close()
	hooks := []commands.Hook{journal}

	idx, err := openRuntimeIndex(gameDir, runID, cfg)
	if err != nil {
		log.WithError(err).Fatal("open index backend")
	}
	if idx != nil {
		defer idx.Close()
		if err := idx.UpsertConfig("tuning", tune); err != nil {
			log.WithError(err).Warn("index backend: upsert tuning")
		}
		hooks = append(hooks, idx)
		log.WithField("backend", idx.Backend()).Info("command index enabled")
	} else {
		log.Info("command index disabled")
	}

	ctx, cancel := signalContext()
	defer cancel()

	// Snapshot writer.
	snapCh := make(chan snapshot.SnapshotV1, 2)
	onSnap := func(snap snapshot.SnapshotV1) {
		select {
		case snapCh <- snap:
		default:
			log.WithField("tick", snap.Header.Tick).Warn("snapshot writer busy; skipped")
		}
	}
	go writeSnapshots(ctx, gameDir, snapCh, idx, journal, log)

	g, err := buildGame(cfg.GameID, tune, log, onSnap, hooks...)
	if err != nil {
		log.WithError(err).Fatal("build game")
	}

	validator, err := protocol.NewValidator()
	if err != nil {
		log.WithError(err).Fatal("compile protocol schemas")
	}

	runErr := make(chan error, 1)
	go func() {
		err := g.Run(ctx)
		if err != nil && err != context.Canceled {
			log.WithError(err).Error("game stopped")
		}
		runErr <- err
		cancel()
	}()

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		select {
		case <-g.Done():
			http.Error(rw, "game stopped", http.StatusServiceUnavailable)
		default:
			rw.WriteHeader(http.StatusOK)
			_, _ = rw.Write([]byte("ok"))
		}
	})
	mux.HandleFunc("/metrics", func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "text/plain; version=0.0.4")
		writeMetrics(rw, cfg.GameID, g.Metrics(), idx)
	})
	mux.HandleFunc("/admin/v1/state", func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(rw).Encode(struct {
			GameID  string       `json:"game_id"`
			RunID   string       `json:"run_id"`
			Metrics game.Metrics `json:"metrics"`
		}{cfg.GameID, runID, g.Metrics()})
	})
	mux.HandleFunc("/v1/ws", ws.NewServer(g, validator, log.WithField("component", "ws")).Handler())

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	log.WithFields(logrus.Fields{"addr": cfg.Addr, "dir": gameDir}).Info("listening")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.WithError(err).Fatal("ListenAndServe")
	}
	if err := <-runErr; err != nil && err != context.Canceled {
		log.WithError(err).Error("exit after fatal tick")
	}
	if err := journal.Sync(); err != nil {
		log.WithError(err).Warn("journal sync")
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}

// writeSnapshots persists exported snapshots. The journal is flushed first so a
// snapshot never refers to history that is not yet on disk.
func writeSnapshots(ctx context.Context, gameDir string, ch <-chan snapshot.SnapshotV1, idx *indexdb.Index, journal *persistlog.Journal, log logrus.FieldLogger) {
	for {
		select {
		case <-ctx.Done():
			return
		case snap := <-ch:
			if err := journal.Sync(); err != nil {
				log.WithError(err).Warn("journal sync")
			}
			path := snapshotPath(gameDir, snap.Header.Tick)
			if err := snapshot.WriteSnapshot(path, snap); err != nil {
				log.WithError(err).Warn("snapshot write")
				continue
			}
			if idx != nil {
				idx.RecordSnapshot(path, snap)
			}
			log.WithFields(logrus.Fields{"tick": snap.Header.Tick, "path": path}).Info("snapshot written")
		}
	}
}

func snapshotPath(gameDir string, tick uint64) string {
	return filepath.Join(gameDir, "snapshots", fmt.Sprintf("%d.snap.zst", tick))
}
