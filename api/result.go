// Package api implements the HTTP side-channel the embedded task invokes
// against the backend: task execution, file upload, and file content
// retrieval. Every operation returns a normalized Result: validation,
// transport, HTTP, and application failures all collapse into the same
// {code, message, details} error shape and are never surfaced as Go errors.
package api

import (
	"encoding/json"
	"fmt"
)

// Validation error codes. Produced before any network activity.
const (
	CodeMissingOrganizationID = "MISSING_ORGANIZATION_ID"
	CodeMissingTaskID         = "MISSING_TASK_ID"
	CodeMissingFile           = "MISSING_FILE"
	CodeMissingFileID         = "MISSING_FILE_ID"
)

// CodeNetworkError marks a request that never completed.
const CodeNetworkError = "NETWORK_ERROR"

// CodeTaskExecutionFailed marks a 2xx execute response whose body signals a
// logical failure.
const CodeTaskExecutionFailed = "TASK_EXECUTION_FAILED"

// Error is the uniform failure shape shared by all four error sources.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// Error implements the error interface for logging convenience; operations
// never return it as a Go error.
func (e *Error) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Result is the normalized outcome of every HTTP-backed operation: success
// carrying data, or failure carrying an Error. NotModified is set only by
// GetFileContent on a 304 response, in which case Data is absent.
type Result struct {
	Success     bool   `json:"success"`
	Data        any    `json:"data,omitempty"`
	NotModified bool   `json:"notModified,omitempty"`
	Error       *Error `json:"error,omitempty"`
}

func successResult(data any) Result {
	return Result{Success: true, Data: data}
}

func failureResult(code, message string, details any) Result {
	return Result{Success: false, Error: &Error{Code: code, Message: message, Details: details}}
}

// decodeBody parses response text as JSON. A non-JSON body is wrapped as
// {"raw": <text>}; an empty body decodes to absent (nil, false).
func decodeBody(body []byte) (any, bool) {
	if len(body) == 0 {
		return nil, false
	}
	var decoded any
	if err := json.Unmarshal(body, &decoded); err != nil {
		return map[string]any{"raw": string(body)}, true
	}
	return decoded, true
}

// normalizeHTTPFailure maps a non-2xx response to a failure Result. The body
// supplies code/message/details when it carries them; otherwise they are
// synthesized from the status.
func normalizeHTTPFailure(status int, body []byte) Result {
	code := fmt.Sprintf("HTTP_%d", status)
	message := fmt.Sprintf("request failed with status %d", status)
	decoded, present := decodeBody(body)
	var details any
	if present {
		details = decoded
	}
	if m, ok := decoded.(map[string]any); ok {
		if c, ok := m["code"].(string); ok && c != "" {
			code = c
		}
		if msg, ok := m["message"].(string); ok && msg != "" {
			message = msg
		}
		if d, ok := m["details"]; ok {
			details = d
		}
	}
	return failureResult(code, message, details)
}

// networkFailure maps a transport exception to a failure Result.
func networkFailure(err error) Result {
	message := "network request failed"
	if err != nil && err.Error() != "" {
		message = err.Error()
	}
	var details any
	if err != nil {
		details = err.Error()
	}
	return failureResult(CodeNetworkError, message, details)
}
