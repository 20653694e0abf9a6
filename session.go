package taskbridge

import (
	"fmt"
	"os"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/embedkit/taskbridge-go/api"
)

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithLogger overrides the diagnostic logger.
func WithLogger(logger *log.Logger) SessionOption {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithTeardown registers the callback invoked on DESTROY. The child context
// is expected to unload afterwards; the session does not clear its own state.
func WithTeardown(fn func()) SessionOption {
	return func(s *Session) {
		s.onDestroy = fn
	}
}

// WithInitHandler registers a callback invoked after each INIT is applied.
func WithInitHandler(fn func(*InitPayload)) SessionOption {
	return func(s *Session) {
		s.onInit = fn
	}
}

// WithInputsHandler registers a callback invoked with the merged inputs after
// each UPDATE_INPUTS.
func WithInputsHandler(fn func(map[string]any)) SessionOption {
	return func(s *Session) {
		s.onInputs = fn
	}
}

// WithPayloadValidation rejects inbound host messages whose payloads fail
// schema validation. Rejected messages are logged and ignored.
func WithPayloadValidation(v *PayloadValidator) SessionOption {
	return func(s *Session) {
		s.validator = v
	}
}

// WithAPIOptions passes extra options (such as a custom http.Client) through
// to the bound API clients created after INIT.
func WithAPIOptions(opts ...api.Option) SessionOption {
	return func(s *Session) {
		s.apiOpts = opts
	}
}

// Session is the child side of the protocol: it owns the lifecycle state
// machine, the task context, and the completion guard, and emits all
// child-to-host signals. All transitions happen on message-arrival callbacks
// or direct calls from hosting code; the mutex only guards against the two
// interleaving, the protocol itself is single-threaded.
type Session struct {
	mu        sync.Mutex
	ch        Channel
	logger    *log.Logger
	validator *PayloadValidator
	apiOpts   []api.Option

	status     Status
	runID      string
	inputs     map[string]any
	taskCtx    *TaskContext
	renderMode RenderMode
	completed  bool // completion guard, reset only by INIT

	onDestroy func()
	onInit    func(*InitPayload)
	onInputs  func(map[string]any)

	unsubscribe func()
}

// NewSession starts the child side on a channel: it subscribes to host
// messages and emits READY carrying the protocol version. The status stays
// initializing until the first INIT arrives.
func NewSession(ch Channel, opts ...SessionOption) (*Session, error) {
	s := &Session{
		ch:     ch,
		logger: log.NewWithOptions(os.Stderr, log.Options{Prefix: "taskbridge"}),
		status: StatusInitializing,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	unsub, err := ch.Subscribe(s.handle)
	if err != nil {
		return nil, fmt.Errorf("subscribe to channel: %w", err)
	}
	s.unsubscribe = unsub
	if err := ch.Send(NewReady(ProtocolVersion)); err != nil {
		unsub()
		return nil, fmt.Errorf("send ready: %w", err)
	}
	return s, nil
}

// Close detaches the session from the channel.
func (s *Session) Close() {
	s.mu.Lock()
	unsub := s.unsubscribe
	s.unsubscribe = nil
	s.mu.Unlock()
	if unsub != nil {
		unsub()
	}
}

// Status returns the current lifecycle status.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// SetError marks the session failed. Reserved for the hosting implementation;
// no protocol handler reaches this state.
func (s *Session) SetError() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = StatusError
}

// RunID returns the current run identity, empty before INIT.
func (s *Session) RunID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runID
}

// Inputs returns the current inputs mapping, nil before INIT.
func (s *Session) Inputs() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inputs
}

// Context returns a copy of the task context, nil before INIT.
func (s *Session) Context() *TaskContext {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.taskCtx.Clone()
}

// RenderMode returns the render mode delivered by INIT.
func (s *Session) RenderMode() RenderMode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.renderMode
}

// API returns clients bound to the session's auth fields, or nil before INIT
// delivers a context.
func (s *Session) API() *api.SessionClient {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.taskCtx == nil {
		return nil
	}
	return api.NewSessionClient(
		s.taskCtx.AuthToken,
		s.taskCtx.OrganizationID,
		s.taskCtx.ConversationID,
		s.taskCtx.APIBaseURL,
		s.apiOpts...,
	)
}

// handle dispatches one inbound message. Foreign traffic never reaches here
// on a validating transport, but unknown payload types are dropped anyway.
func (s *Session) handle(msg *Message) {
	if msg == nil {
		return
	}
	if s.validator != nil {
		if err := s.validator.Validate(msg); err != nil {
			s.logger.Warn("dropping invalid message", "type", msg.Type.String(), "err", err)
			return
		}
	}
	switch payload := msg.Payload.(type) {
	case *InitPayload:
		s.handleInit(payload)
	case *UpdateInputsPayload:
		s.handleUpdateInputs(payload)
	case *UpdateThemePayload:
		s.handleUpdateTheme(payload)
	case *UpdateLocalePayload:
		s.handleUpdateLocale(payload)
	case *DestroyPayload:
		s.handleDestroy(payload)
	default:
		// Child→host types echoed back, or types added after this build.
	}
}

func (s *Session) handleInit(p *InitPayload) {
	s.mu.Lock()
	s.runID = p.RunID
	s.inputs = p.Inputs
	s.taskCtx = p.Context
	s.renderMode = p.RenderMode
	s.completed = false
	s.status = StatusReady
	onInit := s.onInit
	s.mu.Unlock()

	s.logger.Debug("initialized", "runId", p.RunID, "renderMode", p.RenderMode)
	if onInit != nil {
		onInit(p)
	}
}

func (s *Session) handleUpdateInputs(p *UpdateInputsPayload) {
	s.mu.Lock()
	if s.inputs == nil && s.status == StatusInitializing {
		// Inputs stay null until INIT establishes the session.
		s.mu.Unlock()
		s.logger.Warn("ignoring inputs update before init")
		return
	}
	if s.inputs == nil {
		s.inputs = p.Inputs
	} else {
		for key, value := range p.Inputs {
			s.inputs[key] = value
		}
	}
	merged := s.inputs
	onInputs := s.onInputs
	s.mu.Unlock()

	if onInputs != nil {
		onInputs(merged)
	}
}

func (s *Session) handleUpdateTheme(p *UpdateThemePayload) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.taskCtx == nil {
		s.logger.Warn("ignoring theme update without context")
		return
	}
	s.taskCtx.Theme = p.Theme
}

func (s *Session) handleUpdateLocale(p *UpdateLocalePayload) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.taskCtx == nil {
		s.logger.Warn("ignoring locale update without context")
		return
	}
	s.taskCtx.Locale = p.Locale
}

func (s *Session) handleDestroy(p *DestroyPayload) {
	s.mu.Lock()
	onDestroy := s.onDestroy
	s.mu.Unlock()
	s.logger.Debug("destroy received", "runId", p.RunID)
	if onDestroy != nil {
		onDestroy()
	}
}

// Complete delivers the run output and moves the session to completed. Fires
// at most once per run: a second call is a logged no-op, as is any call
// before INIT has delivered a run identity.
func (s *Session) Complete(output any) error {
	return s.finish(StatusCompleted, output, "")
}

// Cancel abandons the run and moves the session to cancelled. Same at-most-
// once and run-identity rules as Complete.
func (s *Session) Cancel(reason string) error {
	return s.finish(StatusCancelled, nil, reason)
}

func (s *Session) finish(terminal Status, output any, reason string) error {
	s.mu.Lock()
	if s.completed {
		s.mu.Unlock()
		s.logger.Info("completion already delivered, ignoring", "status", terminal)
		return nil
	}
	if s.runID == "" {
		s.mu.Unlock()
		s.logger.Error("cannot finish before init delivers a run identity")
		return nil
	}
	s.completed = true
	s.status = terminal
	runID := s.runID
	s.mu.Unlock()

	var msg *Message
	if terminal == StatusCompleted {
		msg = NewComplete(runID, output)
	} else {
		msg = NewCancel(runID, reason)
	}
	if err := s.ch.Send(msg); err != nil {
		return fmt.Errorf("send %s: %w", msg.Type.String(), err)
	}
	return nil
}

// SetHeight emits RESIZE with a fixed pixel height. No-op before INIT.
func (s *Session) SetHeight(px float64) error {
	return s.emitResize(PixelHeight(px))
}

// SetAutoHeight emits RESIZE with the literal "auto" height. No-op before
// INIT.
func (s *Session) SetAutoHeight() error {
	return s.emitResize(AutoHeight())
}

func (s *Session) emitResize(height Height) error {
	runID, ok := s.requireRun("resize")
	if !ok {
		return nil
	}
	if err := s.ch.Send(NewResize(runID, height)); err != nil {
		return fmt.Errorf("send resize: %w", err)
	}
	return nil
}

// Log forwards a log record to the host. No-op before INIT.
func (s *Session) Log(level LogLevel, message string, data any) error {
	runID, ok := s.requireRun("log")
	if !ok {
		return nil
	}
	if err := s.ch.Send(NewLog(runID, level, message, data)); err != nil {
		return fmt.Errorf("send log: %w", err)
	}
	return nil
}

// ReportError surfaces a child-side failure to the host without finishing the
// run. No-op before INIT.
func (s *Session) ReportError(code, message string, details any) error {
	runID, ok := s.requireRun("error")
	if !ok {
		return nil
	}
	sigErr := SignalError{Code: code, Message: message, Details: details}
	if err := s.ch.Send(NewError(runID, sigErr)); err != nil {
		return fmt.Errorf("send error: %w", err)
	}
	return nil
}

func (s *Session) requireRun(signal string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.runID == "" {
		s.logger.Warn("dropping signal before init", "signal", signal)
		return "", false
	}
	return s.runID, true
}
