package protocol

import (
	"encoding/json"

	"gridtactics.dev/internal/sim/mapping"
)

// HELLO (client -> server)
type HelloMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Player          uint32 `json:"player"`
	Name            string `json:"name,omitempty"`
	MaxQueue        int    `json:"max_queue,omitempty"`
}

// WELCOME (server -> client)
type WelcomeMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	SessionID       string `json:"session_id"`
	GameID          string `json:"game_id"`
	Player          uint32 `json:"player"`
	TickRateHz      int    `json:"tick_rate_hz"`
}

// STATE (server -> client). Full states replace everything the client holds.
type StateMsg struct {
	Type            string          `json:"type"`
	ProtocolVersion string          `json:"protocol_version"`
	Tick            uint64          `json:"tick"`
	Full            bool            `json:"full"`
	Events          json.RawMessage `json:"events"`
}

type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

func (p Point) TilePos() mapping.TilePos { return mapping.TilePos{X: p.X, Y: p.Y} }

// MOVE (client -> server). Object and map use the wire id form ("O12", "M1").
type MoveMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ReqID           string `json:"req_id,omitempty"`
	Object          string `json:"object"`
	Map             string `json:"map"`
	To              Point  `json:"to"`
}

// UNDO / REDO (client -> server)
type HistoryMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ReqID           string `json:"req_id,omitempty"`
	Count           int    `json:"count,omitempty"`
}

// END_TURN (client -> server)
type EndTurnMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ReqID           string `json:"req_id,omitempty"`
}

// ACK (server -> client) confirms a request was accepted into the command log.
type AckMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ReqID           string `json:"req_id,omitempty"`
}

// ERROR (server -> client)
type ErrorMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ReqID           string `json:"req_id,omitempty"`
	Code            string `json:"code"`
	Message         string `json:"message"`
}

func NewError(reqID, code, message string) ErrorMsg {
	return ErrorMsg{Type: TypeError, ProtocolVersion: Version, ReqID: reqID, Code: code, Message: message}
}
