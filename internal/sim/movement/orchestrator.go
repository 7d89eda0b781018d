package movement

import (
	"gridtactics.dev/internal/sim/commands"
	"gridtactics.dev/internal/sim/ids"
	"gridtactics.dev/internal/sim/mapping"
	"gridtactics.dev/internal/sim/players"
	"gridtactics.dev/internal/sim/world"
)

// Enqueuer is the part of the command log the orchestrator needs.
type Enqueuer interface {
	Enqueue(r commands.Record) commands.Record
}

// Orchestrator turns move requests into move commands. It keeps no state between
// calls; reachability is recomputed on every request.
type Orchestrator struct {
	Calc *Calculator
	Log  Enqueuer
}

func NewOrchestrator(calc *Calculator, log Enqueuer) *Orchestrator {
	if calc == nil {
		calc = NewCalculator(false)
	}
	return &Orchestrator{Calc: calc, Log: log}
}

type MoveRequest struct {
	Object ids.ObjectID
	Map    ids.MapID
	To     mapping.TilePos
	// Player is set for player-issued requests; zero means a system request.
	Player players.ID
	// Timestamp overrides the log clock when non-zero.
	Timestamp int64
}

// RequestMove validates the destination against the current reachable set and
// enqueues a move command carrying the path and cost. On any failure nothing is
// enqueued.
func (o *Orchestrator) RequestMove(w *world.World, req MoveRequest) (commands.Record, error) {
	obj, ok := w.Object(req.Object)
	if !ok {
		return commands.Record{}, commands.MissingEntity("object %s", req.Object)
	}
	if !obj.Position.Placed || obj.Position.Map != req.Map {
		return commands.Record{}, commands.InvalidMove("object %s is not on map %s", req.Object, req.Map)
	}
	reach, err := o.Calc.Reachable(w, req.Object)
	if err != nil {
		return commands.Record{}, err
	}
	if !reach.Contains(req.To) {
		return commands.Record{}, commands.InvalidMove("%s%s not reachable by object %s", req.Map, req.To, req.Object)
	}
	path, ok := reach.Path(req.To)
	if !ok {
		return commands.Record{}, commands.InvalidMove("no path to %s%s", req.Map, req.To)
	}
	cmd := &commands.MoveObject{
		Object: req.Object,
		Map:    req.Map,
		From:   obj.Position.Tile,
		To:     req.To,
		Path:   path,
		Cost:   reach.Nodes[req.To].Cost,
	}
	rec := commands.Record{Command: cmd, Timestamp: req.Timestamp}
	if req.Player != 0 {
		rec.Origin = commands.OriginPlayer
		rec.Player = req.Player
	}
	return o.Log.Enqueue(rec), nil
}

// AvailableMoves lists the tiles the object can currently move to.
func (o *Orchestrator) AvailableMoves(w *world.World, id ids.ObjectID) ([]mapping.TilePos, error) {
	reach, err := o.Calc.Reachable(w, id)
	if err != nil {
		return nil, err
	}
	return reach.Reachable, nil
}
