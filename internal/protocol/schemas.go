package protocol

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"path"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/*.schema.json
var schemaFS embed.FS

const schemaBase = "https://gridtactics.dev/schemas/"

// schemaFiles maps each message type to the schema that describes it.
var schemaFiles = map[string]string{
	TypeHello:   "hello.schema.json",
	TypeWelcome: "welcome.schema.json",
	TypeState:   "state.schema.json",
	TypeMove:    "move.schema.json",
	TypeUndo:    "history.schema.json",
	TypeRedo:    "history.schema.json",
	TypeEndTurn: "end_turn.schema.json",
	TypeError:   "error.schema.json",
}

// Validator checks raw messages against the embedded JSON schemas.
type Validator struct {
	byType map[string]*jsonschema.Schema
}

func NewValidator() (*Validator, error) {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	entries, err := schemaFS.ReadDir("schemas")
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		b, err := schemaFS.ReadFile(path.Join("schemas", e.Name()))
		if err != nil {
			return nil, err
		}
		if err := c.AddResource(schemaBase+e.Name(), bytes.NewReader(b)); err != nil {
			return nil, fmt.Errorf("schema %s: %w", e.Name(), err)
		}
	}
	compiled := map[string]*jsonschema.Schema{}
	v := &Validator{byType: map[string]*jsonschema.Schema{}}
	for typ, name := range schemaFiles {
		s, ok := compiled[name]
		if !ok {
			s, err = c.Compile(schemaBase + name)
			if err != nil {
				return nil, fmt.Errorf("compile %s: %w", name, err)
			}
			compiled[name] = s
		}
		v.byType[typ] = s
	}
	return v, nil
}

// Validate decodes raw and checks it against the schema of msgType.
func (v *Validator) Validate(msgType string, raw []byte) error {
	s, ok := v.byType[msgType]
	if !ok {
		return fmt.Errorf("unknown message type %q", msgType)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return err
	}
	if t, _ := dec.Token(); t != nil {
		return fmt.Errorf("invalid character %v after top-level value", t)
	}
	return s.Validate(doc)
}

// Decode routes raw by its type, validates it and unmarshals it into the typed
// message. It returns the base header alongside so callers can reply with req_id.
func (v *Validator) Decode(raw []byte) (BaseMessage, any, error) {
	base, err := DecodeBase(raw)
	if err != nil {
		return base, nil, err
	}
	if err := v.Validate(base.Type, raw); err != nil {
		return base, nil, err
	}
	var msg any
	switch base.Type {
	case TypeHello:
		msg = &HelloMsg{}
	case TypeMove:
		msg = &MoveMsg{}
	case TypeUndo, TypeRedo:
		msg = &HistoryMsg{}
	case TypeEndTurn:
		msg = &EndTurnMsg{}
	default:
		return base, nil, fmt.Errorf("%s is not a client message", base.Type)
	}
	if err := json.Unmarshal(raw, msg); err != nil {
		return base, nil, err
	}
	return base, msg, nil
}
