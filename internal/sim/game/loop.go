package game

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"gridtactics.dev/internal/sim/commands"
	"gridtactics.dev/internal/sim/movement"
	"gridtactics.dev/internal/sim/players"
	"gridtactics.dev/internal/sim/state"
)

type RequestKind string

const (
	RequestMove    RequestKind = "move"
	RequestUndo    RequestKind = "undo"
	RequestRedo    RequestKind = "redo"
	RequestEndTurn RequestKind = "end_turn"
	RequestCommand RequestKind = "command"
)

// Request is an input from a connected player. Resp, when set, receives the
// result once the request has been handled (not once the command has applied).
type Request struct {
	Kind    RequestKind
	Player  players.ID
	Move    movement.MoveRequest
	Count   int
	Command commands.Command
	Resp    chan error
}

// Update is pushed to subscribers. Full updates replace the client's view.
type Update struct {
	Tick   uint64        `json:"tick"`
	Full   bool          `json:"full"`
	Events []state.Event `json:"events"`
}

type SubscribeRequest struct {
	Player players.ID
	Out    chan Update
	Resp   chan error
}

type subscriber struct {
	out    chan Update
	resync bool
}

func (g *Game) Inbox() chan<- Request              { return g.inbox }
func (g *Game) Subscribe() chan<- SubscribeRequest { return g.subscribe }
func (g *Game) Unsubscribe() chan<- players.ID     { return g.unsubscribe }
func (g *Game) Stop()                              { close(g.stop) }

// Done is closed once Run has returned.
func (g *Game) Done() <-chan struct{} { return g.done }

// Run drives the game at its tick rate until ctx is done or Stop is called. It
// returns the error of a fatal tick.
func (g *Game) Run(ctx context.Context) error {
	interval := time.Second / time.Duration(g.tickRate)
	ticker := time.NewTicker(interval)
	defer close(g.done)
	defer ticker.Stop()
	defer g.closeSubscribers()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-g.stop:
			return nil
		case req := <-g.subscribe:
			g.handleSubscribe(req)
		case id := <-g.unsubscribe:
			g.dropSubscriber(id)
		case req := <-g.inbox:
			err := g.handleRequest(req)
			if req.Resp != nil {
				req.Resp <- err
			}
		case <-ticker.C:
			if err := g.step(); err != nil {
				g.logger.WithError(err).Error("fatal tick")
				return err
			}
		}
	}
}

func (g *Game) step() error {
	consumers := make([]players.ID, 0, len(g.subs))
	for _, p := range g.w.Players().StateConsumers() {
		if _, ok := g.subs[p]; ok {
			consumers = append(consumers, p)
		}
	}
	res, err := g.tick(consumers)
	if err != nil {
		return err
	}
	g.lastTick.Store(g.w.CurrentTick())
	g.historySize.Store(int64(g.log.HistoryLen()))
	if res.Failed != nil {
		g.logger.WithField("tick", res.Tick).WithError(res.Failed).Warn("commands failed")
	}
	for _, p := range consumers {
		sub := g.subs[p]
		up := Update{Tick: res.Tick, Events: res.Updates[p]}
		if sub.resync {
			pid := p
			evs, err := g.proj.EntireState(g.w, &pid)
			if err != nil {
				return err
			}
			up = Update{Tick: res.Tick, Full: true, Events: evs}
		}
		if len(up.Events) == 0 && !up.Full {
			continue
		}
		select {
		case sub.out <- up:
			sub.resync = false
		default:
			// Slow consumer: the next update it gets is a full one.
			sub.resync = true
			g.logger.WithFields(logrus.Fields{"player": p, "tick": res.Tick}).Warn("subscriber lagging")
		}
	}
	if g.snapEvery > 0 && g.onSnap != nil && g.w.CurrentTick()%g.snapEvery == 0 {
		snap, err := g.Snapshot()
		if err != nil {
			g.logger.WithError(err).Warn("snapshot export failed")
		} else {
			g.onSnap(snap)
		}
	}
	return nil
}

func (g *Game) handleSubscribe(req SubscribeRequest) {
	reply := func(err error) {
		if req.Resp != nil {
			req.Resp <- err
		}
	}
	p, ok := g.w.Players().Get(req.Player)
	if !ok {
		reply(fmt.Errorf("%w %d", ErrUnknownPlayer, req.Player))
		return
	}
	if !p.NeedsState {
		reply(fmt.Errorf("player %d does not take state", req.Player))
		return
	}
	if _, taken := g.subs[req.Player]; taken {
		reply(fmt.Errorf("%w: %d", ErrPlayerBusy, req.Player))
		return
	}
	evs, err := g.proj.EntireState(g.w, &req.Player)
	if err != nil {
		reply(err)
		return
	}
	sub := &subscriber{out: req.Out}
	select {
	case req.Out <- Update{Tick: g.w.CurrentTick(), Full: true, Events: evs}:
	default:
		sub.resync = true
	}
	g.subs[req.Player] = sub
	g.subCount.Store(int64(len(g.subs)))
	g.logger.WithField("player", req.Player).Info("player subscribed")
	reply(nil)
}

func (g *Game) dropSubscriber(id players.ID) {
	sub, ok := g.subs[id]
	if !ok {
		return
	}
	delete(g.subs, id)
	g.subCount.Store(int64(len(g.subs)))
	g.proj.Forget(id)
	close(sub.out)
	g.logger.WithField("player", id).Info("player unsubscribed")
}

func (g *Game) closeSubscribers() {
	for id := range g.subs {
		g.dropSubscriber(id)
	}
}

func (g *Game) handleRequest(req Request) error {
	if _, ok := g.w.Players().Get(req.Player); !ok {
		return fmt.Errorf("%w %d", ErrUnknownPlayer, req.Player)
	}
	if err := g.checkTurn(req); err != nil {
		return err
	}
	switch req.Kind {
	case RequestMove:
		mv := req.Move
		mv.Player = req.Player
		o, ok := g.w.Object(mv.Object)
		if ok && !o.OwnedBy(req.Player) {
			return commands.InvalidMove("object %s is not owned by player %d", mv.Object, req.Player)
		}
		_, err := g.orch.RequestMove(g.w, mv)
		return err
	case RequestUndo:
		n := countOrOne(req.Count)
		if have := g.log.UndoableBy(req.Player); have < n {
			return fmt.Errorf("%w: player %d can undo %d of %d", ErrHistoryNotOwned, req.Player, have, n)
		}
		g.log.RequestRollbackFor(req.Player, n)
		return nil
	case RequestRedo:
		n := countOrOne(req.Count)
		if have := g.log.RedoableBy(req.Player); have < n {
			return fmt.Errorf("%w: player %d can redo %d of %d", ErrHistoryNotOwned, req.Player, have, n)
		}
		g.log.RequestRollforwardFor(req.Player, n)
		return nil
	case RequestEndTurn:
		return g.EndTurn(req.Player)
	case RequestCommand:
		if req.Command == nil {
			return fmt.Errorf("empty command")
		}
		g.log.AddFor(req.Player, req.Command)
		return nil
	default:
		return fmt.Errorf("unknown request %q", req.Kind)
	}
}

// checkTurn rejects world-changing requests from anyone but the active player of
// a turn-based game.
func (g *Game) checkTurn(req Request) error {
	tb, ok := g.runner.(*TurnBased)
	if !ok || req.Kind == RequestEndTurn {
		return nil
	}
	if active := tb.Active(); req.Player != active {
		return fmt.Errorf("%w: player %d is active", ErrNotYourTurn, active)
	}
	return nil
}

func countOrOne(n int) int {
	if n <= 0 {
		return 1
	}
	return n
}
