package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// NoResponse is shown when the remote reply carries no response text.
const NoResponse = "No response received."

// DefaultTimeout bounds one round trip to the chat API.
const DefaultTimeout = 30 * time.Second

// Request is the JSON body posted for every user message.
type Request struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id"`
}

// Reply is the decoded body of a successful chat API call.
type Reply struct {
	Response *string `json:"response"`
	// Metadata is accepted but not interpreted.
	Metadata json.RawMessage `json:"metadata,omitempty"`
}

// Text returns the response text or NoResponse when it is missing.
func (r *Reply) Text() string {
	if r == nil || r.Response == nil {
		return NoResponse
	}
	return *r.Response
}

// Client posts chat messages to a fixed endpoint. It is safe for concurrent
// use; one instance is shared by every conversation.
type Client struct {
	endpoint   string
	httpClient *http.Client
}

// NewHTTPClient returns the shared transport used by Client.
func NewHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &http.Client{Timeout: timeout}
}

// NewClient creates a client for endpoint. A nil httpClient gets the default
// timeout.
func NewClient(endpoint string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = NewHTTPClient(DefaultTimeout)
	}
	return &Client{endpoint: endpoint, httpClient: httpClient}
}

// Endpoint reports the URL messages are posted to.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// Send posts message and sessionID and returns the decoded reply.
// Failures are *TransportError or *GenericError.
func (c *Client) Send(ctx context.Context, message, sessionID string) (*Reply, error) {
	payload, err := json.Marshal(Request{Message: message, SessionID: sessionID})
	if err != nil {
		return nil, &GenericError{Err: errors.Wrap(err, "encode request")}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, &GenericError{Err: errors.Wrap(err, "build request")}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Err: errors.Wrap(err, "read response body")}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &TransportError{Err: errors.Errorf("unexpected status '%s' for url '%s'", resp.Status, c.endpoint)}
	}

	var reply Reply
	if err := json.Unmarshal(body, &reply); err != nil {
		return nil, &GenericError{Err: errors.Wrap(err, "decode response")}
	}

	log.Info().
		Str("component", "remote").
		Str("session_id", sessionID).
		RawJSON("response", body).
		Msg("API response")

	return &reply, nil
}
