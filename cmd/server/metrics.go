package main

import (
	"fmt"
	"io"

	"gridtactics.dev/internal/persistence/indexdb"
	"gridtactics.dev/internal/sim/game"
)

// writeMetrics renders a minimal Prometheus exposition.
func writeMetrics(w io.Writer, gameID string, m game.Metrics, idx *indexdb.Index) {
	fmt.Fprintf(w, "# HELP gridtactics_game_tick Current game tick.\n")
	fmt.Fprintf(w, "# TYPE gridtactics_game_tick gauge\n")
	fmt.Fprintf(w, "gridtactics_game_tick{game=%q} %d\n", gameID, m.Tick)

	fmt.Fprintf(w, "# HELP gridtactics_game_subscribers Players currently receiving state.\n")
	fmt.Fprintf(w, "# TYPE gridtactics_game_subscribers gauge\n")
	fmt.Fprintf(w, "gridtactics_game_subscribers{game=%q} %d\n", gameID, m.Subscribers)

	fmt.Fprintf(w, "# HELP gridtactics_game_history Applied commands in history.\n")
	fmt.Fprintf(w, "# TYPE gridtactics_game_history gauge\n")
	fmt.Fprintf(w, "gridtactics_game_history{game=%q} %d\n", gameID, m.History)

	fmt.Fprintf(w, "# HELP gridtactics_game_inbox_depth Requests waiting for the run loop.\n")
	fmt.Fprintf(w, "# TYPE gridtactics_game_inbox_depth gauge\n")
	fmt.Fprintf(w, "gridtactics_game_inbox_depth{game=%q} %d\n", gameID, m.InboxDepth)

	if idx == nil {
		return
	}
	s := idx.Stats()
	fmt.Fprintf(w, "# HELP gridtactics_index_queue_depth Index writer queue depth.\n")
	fmt.Fprintf(w, "# TYPE gridtactics_index_queue_depth gauge\n")
	fmt.Fprintf(w, "gridtactics_index_queue_depth{backend=%q} %d\n", idx.Backend(), s.QueueDepth)

	fmt.Fprintf(w, "# HELP gridtactics_index_dropped_total Index rows dropped under backpressure.\n")
	fmt.Fprintf(w, "# TYPE gridtactics_index_dropped_total counter\n")
	fmt.Fprintf(w, "gridtactics_index_dropped_total{table=%q} %d\n", "commands", s.DropCommandTotal)
	fmt.Fprintf(w, "gridtactics_index_dropped_total{table=%q} %d\n", "snapshots", s.DropSnapshotTotal)
}
