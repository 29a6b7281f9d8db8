package bridge

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/gravitas-games/invmirror/internal/network"
)

//go:embed schemas/*.schema.json
var schemaFS embed.FS

// eventSchemas maps each outbound event to the schema its payload must
// satisfy. Events not listed here cannot be sent.
var eventSchemas = map[string]string{
	network.EventUILoaded:                "empty.schema.json",
	network.EventTransferFocusToCrafting: "empty.schema.json",
	network.EventLockControls:            "lock_controls.schema.json",
	network.EventSwapItems:               "transfer.schema.json",
	network.EventBuyItem:                 "transfer.schema.json",
	network.EventCraftItem:               "transfer.schema.json",
	network.EventUseItem:                 "transfer.schema.json",
}

// Validator checks outbound payloads before they reach the wire.
type Validator struct {
	byEvent map[string]*jsonschema.Schema
}

// NewValidator compiles the embedded payload schemas.
func NewValidator() (*Validator, error) {
	c := jsonschema.NewCompiler()
	compiled := make(map[string]*jsonschema.Schema)
	v := &Validator{byEvent: make(map[string]*jsonschema.Schema, len(eventSchemas))}

	for event, name := range eventSchemas {
		s, ok := compiled[name]
		if !ok {
			raw, err := schemaFS.ReadFile("schemas/" + name)
			if err != nil {
				return nil, fmt.Errorf("failed to read schema %s: %w", name, err)
			}
			if err := c.AddResource(name, bytes.NewReader(raw)); err != nil {
				return nil, fmt.Errorf("failed to add schema %s: %w", name, err)
			}
			s, err = c.Compile(name)
			if err != nil {
				return nil, fmt.Errorf("failed to compile schema %s: %w", name, err)
			}
			compiled[name] = s
		}
		v.byEvent[event] = s
	}
	return v, nil
}

// Validate encodes payload and checks it against the event's schema. It
// returns the encoded payload so the caller doesn't marshal twice. Every
// failure wraps ErrBridgeRejected.
func (v *Validator) Validate(event string, payload any) (json.RawMessage, error) {
	s, ok := v.byEvent[event]
	if !ok {
		return nil, fmt.Errorf("%w: unknown event %q", ErrBridgeRejected, event)
	}
	if payload == nil {
		payload = struct{}{}
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBridgeRejected, err)
	}
	var doc any
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBridgeRejected, err)
	}
	if err := s.Validate(doc); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrBridgeRejected, event, err)
	}
	return b, nil
}
