package taskbridge

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ProtocolVersion is sent in the READY handshake. Version 1: JSON envelopes,
// additive-optional payload evolution, no schema version field on the wire.
const ProtocolVersion = "1.0"

// Namespace prefixes every message type. The channel may be shared with
// unrelated traffic; anything without this prefix is not ours.
const Namespace = "taskui:"

// MessageType is the envelope discriminator.
type MessageType string

// Host → child message types.
const (
	MessageTypeInit         MessageType = Namespace + "INIT"
	MessageTypeUpdateInputs MessageType = Namespace + "UPDATE_INPUTS"
	MessageTypeDestroy      MessageType = Namespace + "DESTROY"
	MessageTypeUpdateTheme  MessageType = Namespace + "UPDATE_THEME"
	MessageTypeUpdateLocale MessageType = Namespace + "UPDATE_LOCALE"
)

// Child → host message types.
const (
	MessageTypeReady    MessageType = Namespace + "READY"
	MessageTypeResize   MessageType = Namespace + "RESIZE"
	MessageTypeComplete MessageType = Namespace + "COMPLETE"
	MessageTypeCancel   MessageType = Namespace + "CANCEL"
	MessageTypeError    MessageType = Namespace + "ERROR"
	MessageTypeLog      MessageType = Namespace + "LOG"
)

// String returns the type without the namespace prefix.
func (t MessageType) String() string {
	return strings.TrimPrefix(string(t), Namespace)
}

// Message is the wire envelope: a tagged union over Type with one payload
// shape per variant. Payload holds a pointer to the variant's payload struct
// (e.g. *InitPayload for MessageTypeInit).
type Message struct {
	Type    MessageType
	Payload any
}

// InitPayload carries the run identity and execution environment from host to
// child. Optional fields may be absent; receivers must not treat that as an
// error.
type InitPayload struct {
	RunID      string         `json:"runId"`
	Inputs     map[string]any `json:"inputs,omitempty"`
	Context    *TaskContext   `json:"context,omitempty"`
	RenderMode RenderMode     `json:"renderMode,omitempty"`
}

// UpdateInputsPayload carries a partial inputs mapping to shallow-merge.
type UpdateInputsPayload struct {
	RunID  string         `json:"runId"`
	Inputs map[string]any `json:"inputs"`
}

// DestroyPayload notifies the child of imminent teardown.
type DestroyPayload struct {
	RunID string `json:"runId"`
}

// UpdateThemePayload patches the session context theme.
type UpdateThemePayload struct {
	RunID string `json:"runId"`
	Theme Theme  `json:"theme"`
}

// UpdateLocalePayload patches the session context locale.
type UpdateLocalePayload struct {
	RunID  string `json:"runId"`
	Locale string `json:"locale"`
}

// ReadyPayload announces the child and its protocol version.
type ReadyPayload struct {
	Version string `json:"version"`
}

// ResizePayload reports the child's desired height.
type ResizePayload struct {
	RunID  string `json:"runId"`
	Height Height `json:"height"`
}

// CompletePayload delivers the run output. Sent at most once per run.
type CompletePayload struct {
	RunID  string `json:"runId"`
	Output any    `json:"output"`
}

// CancelPayload abandons the run. Sent at most once per run.
type CancelPayload struct {
	RunID  string `json:"runId"`
	Reason string `json:"reason,omitempty"`
}

// ErrorPayload reports a child-side failure to the host.
type ErrorPayload struct {
	RunID string      `json:"runId"`
	Error SignalError `json:"error"`
}

// LogPayload forwards a child-side log record to the host.
type LogPayload struct {
	RunID   string   `json:"runId"`
	Level   LogLevel `json:"level"`
	Message string   `json:"message"`
	Data    any      `json:"data,omitempty"`
}

// SignalError is the error shape carried by ERROR signals.
type SignalError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// Height is either a pixel height or the literal "auto".
type Height struct {
	Auto   bool
	Pixels float64
}

// AutoHeight is the "auto" height value.
func AutoHeight() Height {
	return Height{Auto: true}
}

// PixelHeight is a fixed numeric height.
func PixelHeight(px float64) Height {
	return Height{Pixels: px}
}

// MarshalJSON encodes the height as a number or the string "auto".
func (h Height) MarshalJSON() ([]byte, error) {
	if h.Auto {
		return json.Marshal("auto")
	}
	return json.Marshal(h.Pixels)
}

// UnmarshalJSON accepts a number or the string "auto".
func (h *Height) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if s != "auto" {
			return fmt.Errorf("invalid height string %q", s)
		}
		*h = Height{Auto: true}
		return nil
	}
	var px float64
	if err := json.Unmarshal(data, &px); err != nil {
		return fmt.Errorf("invalid height: %w", err)
	}
	*h = Height{Pixels: px}
	return nil
}

// Message constructors, one per variant.

func newMessage(t MessageType, payload any) *Message {
	return &Message{Type: t, Payload: payload}
}

// NewInit creates an INIT message.
func NewInit(runID string, inputs map[string]any, tc *TaskContext, mode RenderMode) *Message {
	return newMessage(MessageTypeInit, &InitPayload{
		RunID:      runID,
		Inputs:     inputs,
		Context:    tc,
		RenderMode: mode,
	})
}

// NewUpdateInputs creates an UPDATE_INPUTS message.
func NewUpdateInputs(runID string, inputs map[string]any) *Message {
	return newMessage(MessageTypeUpdateInputs, &UpdateInputsPayload{RunID: runID, Inputs: inputs})
}

// NewDestroy creates a DESTROY message.
func NewDestroy(runID string) *Message {
	return newMessage(MessageTypeDestroy, &DestroyPayload{RunID: runID})
}

// NewUpdateTheme creates an UPDATE_THEME message.
func NewUpdateTheme(runID string, theme Theme) *Message {
	return newMessage(MessageTypeUpdateTheme, &UpdateThemePayload{RunID: runID, Theme: theme})
}

// NewUpdateLocale creates an UPDATE_LOCALE message.
func NewUpdateLocale(runID, locale string) *Message {
	return newMessage(MessageTypeUpdateLocale, &UpdateLocalePayload{RunID: runID, Locale: locale})
}

// NewReady creates a READY message.
func NewReady(version string) *Message {
	return newMessage(MessageTypeReady, &ReadyPayload{Version: version})
}

// NewResize creates a RESIZE message.
func NewResize(runID string, height Height) *Message {
	return newMessage(MessageTypeResize, &ResizePayload{RunID: runID, Height: height})
}

// NewComplete creates a COMPLETE message.
func NewComplete(runID string, output any) *Message {
	return newMessage(MessageTypeComplete, &CompletePayload{RunID: runID, Output: output})
}

// NewCancel creates a CANCEL message.
func NewCancel(runID, reason string) *Message {
	return newMessage(MessageTypeCancel, &CancelPayload{RunID: runID, Reason: reason})
}

// NewError creates an ERROR message.
func NewError(runID string, sigErr SignalError) *Message {
	return newMessage(MessageTypeError, &ErrorPayload{RunID: runID, Error: sigErr})
}

// NewLog creates a LOG message.
func NewLog(runID string, level LogLevel, message string, data any) *Message {
	return newMessage(MessageTypeLog, &LogPayload{RunID: runID, Level: level, Message: message, Data: data})
}

// payloadFor returns a fresh payload struct for a known type, nil otherwise.
func payloadFor(t MessageType) any {
	switch t {
	case MessageTypeInit:
		return &InitPayload{}
	case MessageTypeUpdateInputs:
		return &UpdateInputsPayload{}
	case MessageTypeDestroy:
		return &DestroyPayload{}
	case MessageTypeUpdateTheme:
		return &UpdateThemePayload{}
	case MessageTypeUpdateLocale:
		return &UpdateLocalePayload{}
	case MessageTypeReady:
		return &ReadyPayload{}
	case MessageTypeResize:
		return &ResizePayload{}
	case MessageTypeComplete:
		return &CompletePayload{}
	case MessageTypeCancel:
		return &CancelPayload{}
	case MessageTypeError:
		return &ErrorPayload{}
	case MessageTypeLog:
		return &LogPayload{}
	default:
		return nil
	}
}

// Known reports whether the type is part of the protocol.
func (t MessageType) Known() bool {
	return payloadFor(t) != nil
}

type messageJSON struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// MarshalJSON encodes the envelope as {"type": ..., "payload": {...}}.
func (m *Message) MarshalJSON() ([]byte, error) {
	var raw json.RawMessage
	if m.Payload != nil {
		b, err := json.Marshal(m.Payload)
		if err != nil {
			return nil, fmt.Errorf("encode %s payload: %w", m.Type, err)
		}
		raw = b
	}
	return json.Marshal(messageJSON{Type: m.Type, Payload: raw})
}

// DecodeMessage parses envelope bytes read from a shared channel. Traffic
// that is not ours (not JSON, missing the namespace prefix, an unrecognized
// type) decodes to (nil, nil) and must be silently ignored by the caller.
// A recognized type with a malformed payload is an error.
func DecodeMessage(data []byte) (*Message, error) {
	var env messageJSON
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, nil
	}
	return DecodeMessageParts(env.Type, env.Payload)
}

// DecodeMessageParts assembles a Message from an already-split discriminator
// and raw JSON payload, applying the same foreign-traffic rules as
// DecodeMessage. Used by transports that frame type and payload separately.
func DecodeMessageParts(t MessageType, rawPayload []byte) (*Message, error) {
	if !strings.HasPrefix(string(t), Namespace) {
		return nil, nil
	}
	payload := payloadFor(t)
	if payload == nil {
		return nil, nil
	}
	if len(rawPayload) > 0 {
		if err := json.Unmarshal(rawPayload, payload); err != nil {
			return nil, fmt.Errorf("decode %s payload: %w", t, err)
		}
	}
	return &Message{Type: t, Payload: payload}, nil
}
