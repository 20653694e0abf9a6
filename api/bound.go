package api

import "context"

// SessionClient is the context-bound variant of Client: organization, bearer
// token, conversation, and base URL are fixed from a session's task context
// when it is established. Callers may override the organization per call but
// never the auth-sensitive fields.
type SessionClient struct {
	client *Client
}

// NewSessionClient binds the auth fields of an established session. An empty
// baseURL falls back to the standard resolution.
func NewSessionClient(authToken, organizationID, conversationID, baseURL string, opts ...Option) *SessionClient {
	bound := []Option{
		WithBearerToken(authToken),
		WithOrganizationID(organizationID),
		WithConversationID(conversationID),
	}
	if baseURL != "" {
		bound = append(bound, WithBaseURL(baseURL))
	}
	// Caller options first so the bound fields always win.
	return &SessionClient{client: New(append(opts, bound...)...)}
}

// CallOption adjusts a single bound call.
type CallOption func(*callSettings)

type callSettings struct {
	organizationID string
}

// WithCallOrganizationID overrides the bound organization for one call.
func WithCallOrganizationID(id string) CallOption {
	return func(s *callSettings) {
		s.organizationID = id
	}
}

// ExecuteTask runs a task with the bound auth fields.
func (sc *SessionClient) ExecuteTask(ctx context.Context, taskID string, inputs map[string]any, opts ...CallOption) Result {
	var settings callSettings
	for _, opt := range opts {
		opt(&settings)
	}
	return sc.client.ExecuteTask(ctx, settings.organizationID, taskID, inputs)
}

// UploadFile stores a file with the bound auth fields.
func (sc *SessionClient) UploadFile(ctx context.Context, file *FileUpload) Result {
	return sc.client.UploadFile(ctx, file)
}

// GetFileContent retrieves file bytes with the bound auth fields.
func (sc *SessionClient) GetFileContent(ctx context.Context, fileID string, opts *FileContentOptions) Result {
	return sc.client.GetFileContent(ctx, fileID, opts)
}
