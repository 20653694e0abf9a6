package taskbridge

import (
	"encoding/json"
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

// Raw Draft-7 schemas for host→child payloads. Child→host payloads are built
// by this library and are not validated on receipt.
var hostPayloadSchemas = map[MessageType]string{
	MessageTypeInit: `{
		"type": "object",
		"required": ["runId"],
		"properties": {
			"runId": {"type": "string", "minLength": 1},
			"inputs": {"type": "object"},
			"context": {"type": "object"},
			"renderMode": {"enum": ["display", "interaction", ""]}
		}
	}`,
	MessageTypeUpdateInputs: `{
		"type": "object",
		"required": ["runId", "inputs"],
		"properties": {
			"runId": {"type": "string", "minLength": 1},
			"inputs": {"type": "object"}
		}
	}`,
	MessageTypeDestroy: `{
		"type": "object",
		"required": ["runId"],
		"properties": {
			"runId": {"type": "string", "minLength": 1}
		}
	}`,
	MessageTypeUpdateTheme: `{
		"type": "object",
		"required": ["runId", "theme"],
		"properties": {
			"runId": {"type": "string", "minLength": 1},
			"theme": {"enum": ["light", "dark", "system"]}
		}
	}`,
	MessageTypeUpdateLocale: `{
		"type": "object",
		"required": ["runId", "locale"],
		"properties": {
			"runId": {"type": "string", "minLength": 1},
			"locale": {"type": "string", "minLength": 1}
		}
	}`,
}

// PayloadValidator checks inbound host payloads against the protocol schemas.
// Message types without a schema pass.
type PayloadValidator struct {
	schemas map[MessageType]*gojsonschema.Schema
}

// NewPayloadValidator compiles the host payload schemas.
func NewPayloadValidator() (*PayloadValidator, error) {
	compiled := make(map[MessageType]*gojsonschema.Schema, len(hostPayloadSchemas))
	for msgType, raw := range hostPayloadSchemas {
		schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(raw))
		if err != nil {
			return nil, fmt.Errorf("compile schema for %s: %w", msgType.String(), err)
		}
		compiled[msgType] = schema
	}
	return &PayloadValidator{schemas: compiled}, nil
}

// Validate checks the message payload against its schema, if one exists.
func (v *PayloadValidator) Validate(msg *Message) error {
	schema, ok := v.schemas[msg.Type]
	if !ok {
		return nil
	}
	encoded, err := json.Marshal(msg.Payload)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}
	result, err := schema.Validate(gojsonschema.NewBytesLoader(encoded))
	if err != nil {
		return fmt.Errorf("validate payload: %w", err)
	}
	if !result.Valid() {
		first := result.Errors()[0]
		return fmt.Errorf("payload rejected: %s", first.String())
	}
	return nil
}
