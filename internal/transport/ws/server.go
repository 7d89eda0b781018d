package ws

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"

	"gridtactics.dev/internal/protocol"
	"gridtactics.dev/internal/sim/game"
	"gridtactics.dev/internal/sim/ids"
	"gridtactics.dev/internal/sim/movement"
	"gridtactics.dev/internal/sim/players"
	"gridtactics.dev/internal/sim/state"
)

const (
	handshakeTimeout = 5 * time.Second
	writeTimeout     = 5 * time.Second
	readTimeout      = 60 * time.Second
	defaultQueue     = 8
	maxQueue         = 64
)

// Server streams state updates of one game to websocket clients and forwards
// their requests to the game's run loop.
type Server struct {
	game      *game.Game
	validator *protocol.Validator
	log       logrus.FieldLogger

	upgrader websocket.Upgrader
}

func NewServer(g *game.Game, v *protocol.Validator, logger logrus.FieldLogger) *Server {
	if logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		logger = l
	}
	return &Server{
		game:      g,
		validator: v,
		log:       logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
}

type session struct {
	id      string
	player  players.ID
	out     chan game.Update
	replies chan any
	log     logrus.FieldLogger
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		sess := s.handshake(ctx, conn)
		if sess == nil {
			return
		}
		sess.log.Info("session started")

		// Writer goroutine.
		writerDone := make(chan struct{})
		go func() {
			defer close(writerDone)
			defer cancel()
			for {
				select {
				case <-ctx.Done():
					return
				case up, ok := <-sess.out:
					if !ok {
						_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "game closed"), time.Now().Add(time.Second))
						_ = conn.Close()
						return
					}
					if err := writeJSON(conn, stateMsg(up)); err != nil {
						_ = conn.Close()
						return
					}
				case msg := <-sess.replies:
					if err := writeJSON(conn, msg); err != nil {
						_ = conn.Close()
						return
					}
				}
			}
		}()

		s.readLoop(ctx, conn, sess)
		cancel()
		<-writerDone

		// Cleanup.
		select {
		case s.game.Unsubscribe() <- sess.player:
		case <-s.game.Done():
		}
		for range sess.out {
		}
		sess.log.Info("session ended")
	}
}

func (s *Server) handshake(ctx context.Context, conn *websocket.Conn) *session {
	_ = conn.SetReadDeadline(time.Now().Add(handshakeTimeout))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return nil
	}
	base, decoded, err := s.validator.Decode(msg)
	if err != nil {
		_ = writeJSON(conn, protocol.NewError(base.ReqID, protocol.ErrProtoBadRequest, err.Error()))
		closeWith(conn, "bad HELLO")
		return nil
	}
	hello, ok := decoded.(*protocol.HelloMsg)
	if !ok {
		_ = writeJSON(conn, protocol.NewError(base.ReqID, protocol.ErrProtoBadRequest, "expected HELLO"))
		closeWith(conn, "expected HELLO")
		return nil
	}
	if hello.ProtocolVersion != protocol.Version {
		_ = writeJSON(conn, protocol.NewError("", protocol.ErrProtoVersion, "server speaks "+protocol.Version))
		closeWith(conn, "bad protocol_version")
		return nil
	}

	maxQ := hello.MaxQueue
	if maxQ <= 0 {
		maxQ = defaultQueue
	}
	if maxQ > maxQueue {
		maxQ = maxQueue
	}
	sess := &session{
		id:      ulid.Make().String(),
		player:  players.ID(hello.Player),
		out:     make(chan game.Update, maxQ),
		replies: make(chan any, maxQ),
	}
	sess.log = s.log.WithFields(logrus.Fields{"session": sess.id, "player": sess.player})

	resp := make(chan error, 1)
	err = send(ctx, s.game, s.game.Subscribe(), game.SubscribeRequest{Player: sess.player, Out: sess.out, Resp: resp})
	if err == nil {
		err = await(ctx, s.game, resp)
	}
	if err != nil {
		code := protocol.ErrBadRequest
		switch {
		case errors.Is(err, game.ErrUnknownPlayer):
			code = protocol.ErrUnknownPlayer
		case errors.Is(err, game.ErrPlayerBusy):
			code = protocol.ErrPlayerBusy
		case errors.Is(err, errGameClosed):
			code = protocol.ErrGameBusy
		}
		sess.log.WithError(err).Warn("subscribe rejected")
		_ = writeJSON(conn, protocol.NewError("", code, err.Error()))
		closeWith(conn, "rejected")
		return nil
	}

	welcome := protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		SessionID:       sess.id,
		GameID:          s.game.ID(),
		Player:          hello.Player,
		TickRateHz:      s.game.TickRateHz(),
	}
	if err := writeJSON(conn, welcome); err != nil {
		select {
		case s.game.Unsubscribe() <- sess.player:
		case <-s.game.Done():
		}
		return nil
	}
	return sess
}

var errGameClosed = errors.New("game closed")

// send hands v to the run loop, giving up when the game or ctx ends first.
func send[T any](ctx context.Context, g *game.Game, ch chan<- T, v T) error {
	select {
	case ch <- v:
		return nil
	case <-g.Done():
		return errGameClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func await(ctx context.Context, g *game.Game, resp <-chan error) error {
	select {
	case err := <-resp:
		return err
	case <-g.Done():
		return errGameClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Server) readLoop(ctx context.Context, conn *websocket.Conn, sess *session) {
	for {
		_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		base, decoded, err := s.validator.Decode(msg)
		if err != nil {
			s.reply(ctx, sess, protocol.NewError(base.ReqID, protocol.ErrProtoBadRequest, err.Error()))
			continue
		}
		if base.ProtocolVersion != protocol.Version {
			s.reply(ctx, sess, protocol.NewError(base.ReqID, protocol.ErrProtoVersion, "server speaks "+protocol.Version))
			continue
		}
		req, err := toRequest(sess.player, decoded)
		if err != nil {
			s.reply(ctx, sess, protocol.NewError(base.ReqID, protocol.ErrBadRequest, err.Error()))
			continue
		}
		resp := make(chan error, 1)
		req.Resp = resp
		err = send(ctx, s.game, s.game.Inbox(), req)
		if err == nil {
			err = await(ctx, s.game, resp)
		}
		if ctx.Err() != nil || errors.Is(err, errGameClosed) {
			return
		}
		if err != nil {
			sess.log.WithError(err).WithField("request", req.Kind).Debug("request rejected")
			s.reply(ctx, sess, protocol.NewError(base.ReqID, errorCode(err), err.Error()))
			continue
		}
		s.reply(ctx, sess, protocol.AckMsg{Type: protocol.TypeAck, ProtocolVersion: protocol.Version, ReqID: base.ReqID})
	}
}

func (s *Server) reply(ctx context.Context, sess *session, msg any) {
	select {
	case sess.replies <- msg:
	case <-ctx.Done():
	}
}

func toRequest(player players.ID, msg any) (game.Request, error) {
	switch m := msg.(type) {
	case *protocol.MoveMsg:
		obj, ok := ids.ParseObjectID(m.Object)
		if !ok {
			return game.Request{}, errors.New("bad object id")
		}
		mp, ok := ids.ParseMapID(m.Map)
		if !ok {
			return game.Request{}, errors.New("bad map id")
		}
		return game.Request{
			Kind:   game.RequestMove,
			Player: player,
			Move:   movement.MoveRequest{Object: obj, Map: mp, To: m.To.TilePos()},
		}, nil
	case *protocol.HistoryMsg:
		kind := game.RequestUndo
		if m.Type == protocol.TypeRedo {
			kind = game.RequestRedo
		}
		return game.Request{Kind: kind, Player: player, Count: m.Count}, nil
	case *protocol.EndTurnMsg:
		return game.Request{Kind: game.RequestEndTurn, Player: player}, nil
	default:
		return game.Request{}, errors.New("HELLO already received")
	}
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, game.ErrNotYourTurn):
		return protocol.ErrNotYourTurn
	case errors.Is(err, game.ErrNotTurnBased):
		return protocol.ErrBadRequest
	case errors.Is(err, game.ErrUnknownPlayer):
		return protocol.ErrUnknownPlayer
	case errors.Is(err, game.ErrHistoryNotOwned):
		return protocol.ErrNoPermission
	}
	return protocol.CodeFor(err, protocol.ErrInternal)
}

func stateMsg(up game.Update) protocol.StateMsg {
	evs := up.Events
	if evs == nil {
		evs = []state.Event{}
	}
	b, err := json.Marshal(evs)
	if err != nil {
		b = []byte("[]")
	}
	return protocol.StateMsg{
		Type:            protocol.TypeState,
		ProtocolVersion: protocol.Version,
		Tick:            up.Tick,
		Full:            up.Full,
		Events:          b,
	}
}

func closeWith(conn *websocket.Conn, reason string) {
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, reason), time.Now().Add(time.Second))
}

func writeJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return conn.WriteMessage(websocket.TextMessage, b)
}
