package taskbridge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHostChildHandshake(t *testing.T) {
	hostEnd, childEnd := Pipe()

	var readyVersion string
	host, err := NewHost(hostEnd,
		WithHostLogger(quietLogger()),
		OnReady(func(version string) { readyVersion = version }),
	)
	require.NoError(t, err)
	defer host.Close()

	session, err := NewSession(childEnd, WithLogger(quietLogger()))
	require.NoError(t, err)
	defer session.Close()

	assert.Equal(t, ProtocolVersion, readyVersion)

	runID := NewRunID()
	require.NoError(t, host.Init(runID, map[string]any{"q": "hi"}, &TaskContext{RunID: runID}, RenderModeDisplay))
	assert.Equal(t, StatusReady, session.Status())
	assert.Equal(t, runID, session.RunID())
}

func TestHostRoutesSignals(t *testing.T) {
	hostEnd, childEnd := Pipe()

	var output any
	var heights []Height
	var logLines []string
	host, err := NewHost(hostEnd,
		WithHostLogger(quietLogger()),
		OnComplete(func(out any) { output = out }),
		OnResize(func(h Height) { heights = append(heights, h) }),
		OnLog(func(_ LogLevel, message string, _ any) { logLines = append(logLines, message) }),
	)
	require.NoError(t, err)
	defer host.Close()

	session, err := NewSession(childEnd, WithLogger(quietLogger()))
	require.NoError(t, err)
	defer session.Close()

	require.NoError(t, host.Init("r1", nil, nil, RenderModeInteraction))
	require.NoError(t, session.SetHeight(250))
	require.NoError(t, session.Log(LogLevelInfo, "working", nil))
	require.NoError(t, session.Complete(map[string]any{"ok": true}))

	require.Len(t, heights, 1)
	assert.Equal(t, float64(250), heights[0].Pixels)
	assert.Equal(t, []string{"working"}, logLines)
	assert.Equal(t, map[string]any{"ok": true}, output)
}

func TestHostDropsWrongRunSignals(t *testing.T) {
	hostEnd, childEnd := Pipe()

	completions := 0
	host, err := NewHost(hostEnd,
		WithHostLogger(quietLogger()),
		OnComplete(func(any) { completions++ }),
	)
	require.NoError(t, err)
	defer host.Close()

	require.NoError(t, host.Init("r1", nil, nil, RenderModeDisplay))
	require.NoError(t, childEnd.Send(NewComplete("someone-else", "x")))
	assert.Equal(t, 0, completions)

	require.NoError(t, childEnd.Send(NewComplete("r1", "x")))
	assert.Equal(t, 1, completions)
}

func TestHostDropsDuplicateTerminalSignals(t *testing.T) {
	hostEnd, childEnd := Pipe()

	var completions, cancellations int
	host, err := NewHost(hostEnd,
		WithHostLogger(quietLogger()),
		OnComplete(func(any) { completions++ }),
		OnCancel(func(string) { cancellations++ }),
	)
	require.NoError(t, err)
	defer host.Close()

	require.NoError(t, host.Init("r1", nil, nil, RenderModeDisplay))
	require.NoError(t, childEnd.Send(NewComplete("r1", "x")))
	require.NoError(t, childEnd.Send(NewComplete("r1", "y")))
	require.NoError(t, childEnd.Send(NewCancel("r1", "late")))
	assert.Equal(t, 1, completions)
	assert.Equal(t, 0, cancellations)

	// A fresh run re-arms terminal tracking.
	require.NoError(t, host.Init("r2", nil, nil, RenderModeDisplay))
	require.NoError(t, childEnd.Send(NewCancel("r2", "user closed")))
	assert.Equal(t, 1, cancellations)
}

func TestHostOutboundRequiresRun(t *testing.T) {
	hostEnd, childEnd := Pipe()

	var seen []*Message
	_, err := childEnd.Subscribe(func(msg *Message) { seen = append(seen, msg) })
	require.NoError(t, err)

	host, err := NewHost(hostEnd, WithHostLogger(quietLogger()))
	require.NoError(t, err)
	defer host.Close()

	require.NoError(t, host.UpdateTheme(ThemeDark))
	require.NoError(t, host.Destroy())
	assert.Empty(t, seen)

	require.NoError(t, host.Init("r1", nil, nil, RenderModeDisplay))
	require.NoError(t, host.UpdateLocale("fr-FR"))
	require.Len(t, seen, 2)
	assert.Equal(t, MessageTypeUpdateLocale, seen[1].Type)
	assert.Equal(t, "fr-FR", seen[1].Payload.(*UpdateLocalePayload).Locale)
}

func TestNewRunIDUnique(t *testing.T) {
	assert.NotEqual(t, NewRunID(), NewRunID())
}
