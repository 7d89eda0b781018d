package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"gridtactics.dev/internal/logging"
	"gridtactics.dev/internal/protocol"
	"gridtactics.dev/internal/sim/ids"
	"gridtactics.dev/internal/sim/players"
)

func main() {
	var (
		url      = flag.String("url", "ws://localhost:8080/v1/ws", "ws url")
		player   = flag.Uint("player", 1, "player id to play as")
		every    = flag.Duration("every", time.Second, "minimum delay between actions")
		logLevel = flag.String("log_level", "info", "log level")
	)
	flag.Parse()

	logger := logging.New(*logLevel, "text").WithField("player", *player)
	conn, _, err := websocket.DefaultDialer.Dial(*url, nil)
	if err != nil {
		logger.WithError(err).Fatal("dial")
	}
	defer conn.Close()

	hello := protocol.HelloMsg{
		Type:            protocol.TypeHello,
		ProtocolVersion: protocol.Version,
		Player:          uint32(*player),
		Name:            "bot",
		MaxQueue:        8,
	}
	if err := conn.WriteJSON(hello); err != nil {
		logger.WithError(err).Fatal("send HELLO")
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)
	go func() {
		<-stop
		_ = conn.Close()
	}()

	b := &bot{
		conn: conn,
		log:  logger,
		view: newView(players.ID(*player)),
		rng:  rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			logger.WithError(err).Info("connection closed")
			return
		}
		base, err := protocol.DecodeBase(msg)
		if err != nil {
			continue
		}
		switch base.Type {
		case protocol.TypeWelcome:
			var w protocol.WelcomeMsg
			if err := json.Unmarshal(msg, &w); err != nil {
				continue
			}
			logger.WithFields(logrus.Fields{"session": w.SessionID, "game": w.GameID, "tick_rate": w.TickRateHz}).Info("WELCOME")

		case protocol.TypeState:
			var st protocol.StateMsg
			if err := json.Unmarshal(msg, &st); err != nil {
				continue
			}
			if err := b.view.apply(st.Full, st.Events); err != nil {
				logger.WithError(err).Warn("bad STATE events")
				continue
			}
			if time.Since(b.last) >= *every {
				b.act(st.Tick)
			}

		case protocol.TypeError:
			var e protocol.ErrorMsg
			if err := json.Unmarshal(msg, &e); err != nil {
				continue
			}
			logger.WithFields(logrus.Fields{"req": e.ReqID, "code": e.Code}).Debug(e.Message)
		}
	}
}

type bot struct {
	conn *websocket.Conn
	log  logrus.FieldLogger
	view *view
	rng  *rand.Rand
	last time.Time
	seq  int

	ended    uint64
	hasEnded bool
}

// act moves one random owned unit a single step and, in turn-based games, ends
// the turn.
func (b *bot) act(tick uint64) {
	if !b.view.myTurn() {
		return
	}
	if t := b.view.turn; t != nil && b.hasEnded && t.Turn == b.ended {
		return
	}
	b.last = time.Now()
	if mine := b.view.mine(); len(mine) > 0 {
		u := mine[b.rng.Intn(len(mine))]
		to := step(u, b.rng.Intn)
		b.seq++
		move := protocol.MoveMsg{
			Type:            protocol.TypeMove,
			ProtocolVersion: protocol.Version,
			ReqID:           fmt.Sprintf("m%d", b.seq),
			Object:          ids.FormatObjectID(u.ID),
			Map:             ids.FormatMapID(u.Pos.Map),
			To:              protocol.Point{X: to.X, Y: to.Y},
		}
		if err := b.conn.WriteJSON(move); err != nil {
			return
		}
		b.log.WithFields(logrus.Fields{"tick": tick, "object": move.Object, "to": to}).Debug("MOVE")
	}
	if t := b.view.turn; t != nil {
		b.ended, b.hasEnded = t.Turn, true
		b.seq++
		_ = b.conn.WriteJSON(protocol.EndTurnMsg{
			Type:            protocol.TypeEndTurn,
			ProtocolVersion: protocol.Version,
			ReqID:           fmt.Sprintf("t%d", b.seq),
		})
	}
}
