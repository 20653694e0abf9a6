package taskbridge

// Theme is the host UI color scheme preference.
type Theme string

const (
	ThemeLight  Theme = "light"
	ThemeDark   Theme = "dark"
	ThemeSystem Theme = "system"
)

// RenderMode tells the child whether the host expects an output.
type RenderMode string

const (
	// RenderModeDisplay renders the task with no output expected.
	RenderModeDisplay RenderMode = "display"
	// RenderModeInteraction blocks the host workflow pending Complete.
	RenderModeInteraction RenderMode = "interaction"
)

// LogLevel classifies LOG signals.
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// Status is the one-shot session state. Exactly one forward path leads to a
// terminal state; only a fresh INIT leaves one.
type Status string

const (
	StatusInitializing Status = "initializing"
	StatusReady        Status = "ready"
	StatusCompleted    Status = "completed"
	StatusCancelled    Status = "cancelled"
	StatusError        Status = "error"
)

// Terminal reports whether the status is completed or cancelled.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// TaskContext is the execution environment handed from host to child on INIT.
// Once received it is owned by the Session; only theme and locale are ever
// patched in place, via the dedicated host signals. The HTTP clients read the
// auth fields but never mutate them.
type TaskContext struct {
	RunID          string `json:"runId"`
	StepID         string `json:"stepId,omitempty"`
	UserID         string `json:"userId,omitempty"`
	OrganizationID string `json:"organizationId,omitempty"`
	Theme          Theme  `json:"theme,omitempty"`
	Locale         string `json:"locale,omitempty"`
	ConversationID string `json:"conversationId,omitempty"`
	AuthToken      string `json:"authToken,omitempty"`
	APIBaseURL     string `json:"apiBaseUrl,omitempty"`
}

// Clone returns a copy of the context.
func (tc *TaskContext) Clone() *TaskContext {
	if tc == nil {
		return nil
	}
	dup := *tc
	return &dup
}
