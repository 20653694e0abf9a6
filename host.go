package taskbridge

import (
	"fmt"
	"os"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

// HostOption configures a Host.
type HostOption func(*Host)

// WithHostLogger overrides the diagnostic logger.
func WithHostLogger(logger *log.Logger) HostOption {
	return func(h *Host) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// OnReady registers the handshake callback. The usual reaction is to call
// Init.
func OnReady(fn func(version string)) HostOption {
	return func(h *Host) {
		h.onReady = fn
	}
}

// OnResize registers the height callback.
func OnResize(fn func(Height)) HostOption {
	return func(h *Host) {
		h.onResize = fn
	}
}

// OnComplete registers the run output callback.
func OnComplete(fn func(output any)) HostOption {
	return func(h *Host) {
		h.onComplete = fn
	}
}

// OnCancel registers the cancellation callback.
func OnCancel(fn func(reason string)) HostOption {
	return func(h *Host) {
		h.onCancel = fn
	}
}

// OnError registers the child failure callback.
func OnError(fn func(SignalError)) HostOption {
	return func(h *Host) {
		h.onError = fn
	}
}

// OnLog registers the child log callback.
func OnLog(fn func(level LogLevel, message string, data any)) HostOption {
	return func(h *Host) {
		h.onLog = fn
	}
}

// Host is the host side of the protocol: it drives a child over a channel,
// routing child signals to registered callbacks and addressing host signals
// by the current run identity. Signals for an unknown run, and terminal
// signals after the first one, are dropped with a diagnostic.
type Host struct {
	mu     sync.Mutex
	ch     Channel
	logger *log.Logger

	runID    string
	terminal bool

	onReady    func(string)
	onResize   func(Height)
	onComplete func(any)
	onCancel   func(string)
	onError    func(SignalError)
	onLog      func(LogLevel, string, any)

	unsubscribe func()
}

// NewHost attaches the host side to a channel.
func NewHost(ch Channel, opts ...HostOption) (*Host, error) {
	h := &Host{
		ch:     ch,
		logger: log.NewWithOptions(os.Stderr, log.Options{Prefix: "taskbridge/host"}),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	unsub, err := ch.Subscribe(h.handle)
	if err != nil {
		return nil, fmt.Errorf("subscribe to channel: %w", err)
	}
	h.unsubscribe = unsub
	return h, nil
}

// Close detaches the host from the channel.
func (h *Host) Close() {
	h.mu.Lock()
	unsub := h.unsubscribe
	h.unsubscribe = nil
	h.mu.Unlock()
	if unsub != nil {
		unsub()
	}
}

// NewRunID generates a fresh run identifier.
func NewRunID() string {
	return uuid.NewString()
}

// Init starts a run: sends INIT with the run identity, inputs, context, and
// render mode, and re-arms terminal-signal tracking.
func (h *Host) Init(runID string, inputs map[string]any, tc *TaskContext, mode RenderMode) error {
	h.mu.Lock()
	h.runID = runID
	h.terminal = false
	h.mu.Unlock()
	if err := h.ch.Send(NewInit(runID, inputs, tc, mode)); err != nil {
		return fmt.Errorf("send init: %w", err)
	}
	return nil
}

// UpdateInputs sends a partial inputs mapping for the current run.
func (h *Host) UpdateInputs(inputs map[string]any) error {
	return h.sendForRun(func(runID string) *Message { return NewUpdateInputs(runID, inputs) })
}

// UpdateTheme patches the child's theme.
func (h *Host) UpdateTheme(theme Theme) error {
	return h.sendForRun(func(runID string) *Message { return NewUpdateTheme(runID, theme) })
}

// UpdateLocale patches the child's locale.
func (h *Host) UpdateLocale(locale string) error {
	return h.sendForRun(func(runID string) *Message { return NewUpdateLocale(runID, locale) })
}

// Destroy notifies the child of teardown. Independent of completion.
func (h *Host) Destroy() error {
	return h.sendForRun(func(runID string) *Message { return NewDestroy(runID) })
}

func (h *Host) sendForRun(build func(runID string) *Message) error {
	h.mu.Lock()
	runID := h.runID
	h.mu.Unlock()
	if runID == "" {
		h.logger.Warn("no run started, dropping outbound message")
		return nil
	}
	msg := build(runID)
	if err := h.ch.Send(msg); err != nil {
		return fmt.Errorf("send %s: %w", msg.Type.String(), err)
	}
	return nil
}

func (h *Host) handle(msg *Message) {
	if msg == nil {
		return
	}
	switch payload := msg.Payload.(type) {
	case *ReadyPayload:
		if h.onReady != nil {
			h.onReady(payload.Version)
		}
	case *ResizePayload:
		if !h.knownRun(payload.RunID, msg.Type) {
			return
		}
		if h.onResize != nil {
			h.onResize(payload.Height)
		}
	case *CompletePayload:
		if !h.acceptTerminal(payload.RunID, msg.Type) {
			return
		}
		if h.onComplete != nil {
			h.onComplete(payload.Output)
		}
	case *CancelPayload:
		if !h.acceptTerminal(payload.RunID, msg.Type) {
			return
		}
		if h.onCancel != nil {
			h.onCancel(payload.Reason)
		}
	case *ErrorPayload:
		if !h.knownRun(payload.RunID, msg.Type) {
			return
		}
		if h.onError != nil {
			h.onError(payload.Error)
		}
	case *LogPayload:
		if !h.knownRun(payload.RunID, msg.Type) {
			return
		}
		if h.onLog != nil {
			h.onLog(payload.Level, payload.Message, payload.Data)
		}
	default:
		// Host→child types echoed back, or types added after this build.
	}
}

func (h *Host) knownRun(runID string, t MessageType) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.runID == "" || runID != h.runID {
		h.logger.Warn("dropping signal for unknown run", "type", t.String(), "runId", runID)
		return false
	}
	return true
}

func (h *Host) acceptTerminal(runID string, t MessageType) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.runID == "" || runID != h.runID {
		h.logger.Warn("dropping signal for unknown run", "type", t.String(), "runId", runID)
		return false
	}
	if h.terminal {
		h.logger.Warn("dropping duplicate terminal signal", "type", t.String(), "runId", runID)
		return false
	}
	h.terminal = true
	return true
}
