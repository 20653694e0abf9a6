package taskbridge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidatorAcceptsWellFormedMessages(t *testing.T) {
	validator, err := NewPayloadValidator()
	require.NoError(t, err)

	valid := []*Message{
		NewInit("r1", map[string]any{"a": 1}, &TaskContext{RunID: "r1"}, RenderModeDisplay),
		NewUpdateInputs("r1", map[string]any{"a": 2}),
		NewDestroy("r1"),
		NewUpdateTheme("r1", ThemeSystem),
		NewUpdateLocale("r1", "ja-JP"),
	}
	for _, msg := range valid {
		assert.NoError(t, validator.Validate(msg), "type %s", msg.Type)
	}
}

func TestValidatorRejectsMissingRunID(t *testing.T) {
	validator, err := NewPayloadValidator()
	require.NoError(t, err)

	assert.Error(t, validator.Validate(NewInit("", nil, nil, "")))
	assert.Error(t, validator.Validate(NewDestroy("")))
}

func TestValidatorRejectsBadTheme(t *testing.T) {
	validator, err := NewPayloadValidator()
	require.NoError(t, err)

	assert.Error(t, validator.Validate(NewUpdateTheme("r1", Theme("sepia"))))
}

func TestValidatorPassesUnschemaedTypes(t *testing.T) {
	validator, err := NewPayloadValidator()
	require.NoError(t, err)

	// Child→host types carry no inbound schema on the child side.
	assert.NoError(t, validator.Validate(NewReady(ProtocolVersion)))
	assert.NoError(t, validator.Validate(NewComplete("r1", nil)))
}
