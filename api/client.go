package api

import (
	"io"
	"net/http"
	"os"
	"strings"
)

// ProductionBaseURL is the default backend address.
const ProductionBaseURL = "https://api.taskbridge.io"

// LocalBaseURL is used when TASKBRIDGE_ENV=development.
const LocalBaseURL = "http://localhost:8787"

const envKey = "TASKBRIDGE_ENV"

// Client issues the HTTP side-channel operations. The zero configuration
// targets the resolved default base URL with no auth; use the options to bind
// a bearer token, organization, and conversation. Calls are independent and
// carry no shared mutable state, so a Client is safe for concurrent use.
type Client struct {
	baseURL        string
	httpClient     *http.Client
	authToken      string
	organizationID string
	conversationID string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying *http.Client used for requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithBaseURL overrides base-URL resolution entirely.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	}
}

// WithBearerToken configures the Authorization header for all operations.
func WithBearerToken(token string) Option {
	return func(c *Client) {
		c.authToken = token
	}
}

// WithOrganizationID configures the default organization identifier.
func WithOrganizationID(id string) Option {
	return func(c *Client) {
		c.organizationID = id
	}
}

// WithConversationID configures the conversation identifier header.
func WithConversationID(id string) Option {
	return func(c *Client) {
		c.conversationID = id
	}
}

// New constructs a Client. No timeout is enforced beyond the transport's
// defaults; callers needing one supply their own http.Client or a request
// context deadline.
func New(opts ...Option) *Client {
	c := &Client{
		httpClient: http.DefaultClient,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	if c.baseURL == "" {
		c.baseURL = resolveBaseURL("")
	}
	return c
}

// resolveBaseURL picks the backend address: explicit override, else the local
// development address when TASKBRIDGE_ENV=development, else production.
func resolveBaseURL(override string) string {
	if trimmed := strings.TrimRight(strings.TrimSpace(override), "/"); trimmed != "" {
		return trimmed
	}
	if os.Getenv(envKey) == "development" {
		return LocalBaseURL
	}
	return ProductionBaseURL
}

// do executes the request and reads the full body. A nil error with a non-2xx
// status is an HTTP failure, reported by the caller via normalizeHTTPFailure.
func (c *Client) do(req *http.Request) (status int, header http.Header, body []byte, err error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, nil, err
	}
	defer resp.Body.Close()
	body, err = io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, nil, err
	}
	return resp.StatusCode, resp.Header, body, nil
}

func is2xx(status int) bool {
	return status >= 200 && status < 300
}
