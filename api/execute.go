package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
)

type executeRequest struct {
	Inputs map[string]any `json:"inputs"`
}

// ExecuteTask runs a remote task and normalizes the outcome. The empty
// organizationID falls back to the client's bound organization; a missing
// organization or task identifier fails with a validation code before any
// network activity. A 2xx body matching the action-execution shape (any of
// the success/error/result keys) is unwrapped: an explicit success=false maps
// to TASK_EXECUTION_FAILED, otherwise the result value (or the whole body)
// becomes the data, with embedded base64 bytes nodes decoded.
func (c *Client) ExecuteTask(ctx context.Context, organizationID, taskID string, inputs map[string]any) Result {
	if organizationID == "" {
		organizationID = c.organizationID
	}
	if organizationID == "" {
		return failureResult(CodeMissingOrganizationID, "organization ID is required", nil)
	}
	if taskID == "" {
		return failureResult(CodeMissingTaskID, "task ID is required", nil)
	}

	endpoint := fmt.Sprintf("%s/v1/organizations/%s/tasks/%s/execute",
		c.baseURL, url.PathEscape(organizationID), url.PathEscape(taskID))

	payload, err := json.Marshal(executeRequest{Inputs: inputs})
	if err != nil {
		return networkFailure(fmt.Errorf("encode inputs: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return networkFailure(err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.authToken)
	}
	if c.conversationID != "" {
		req.Header.Set("x-conversation-id", c.conversationID)
	}

	status, _, body, err := c.do(req)
	if err != nil {
		return networkFailure(err)
	}
	if !is2xx(status) {
		return normalizeHTTPFailure(status, body)
	}

	decoded, present := decodeBody(body)
	if !present {
		return successResult(nil)
	}
	decoded = DecodeBinaryNodes(decoded)

	if m, ok := decoded.(map[string]any); ok && isExecutionEnvelope(m) {
		if success, ok := m["success"].(bool); ok && !success {
			message := "task execution failed"
			if errStr, ok := m["error"].(string); ok && errStr != "" {
				message = errStr
			}
			return failureResult(CodeTaskExecutionFailed, message, m)
		}
		if result, ok := m["result"]; ok {
			return successResult(result)
		}
	}
	return successResult(decoded)
}

// isExecutionEnvelope reports whether the body matches the action-execution
// payload shape.
func isExecutionEnvelope(m map[string]any) bool {
	for _, key := range []string{"success", "error", "result"} {
		if _, ok := m[key]; ok {
			return true
		}
	}
	return false
}
