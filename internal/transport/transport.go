package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-cleanhttp"

	azstrings "github.com/giantswarm/azauth/pkg/strings"
)

const (
	// DefaultHTTPTimeout is the default timeout for HTTP requests.
	DefaultHTTPTimeout = 30 * time.Second

	// HeaderCorrelationID carries the per-acquisition correlation id on requests and responses.
	HeaderCorrelationID = "client-request-id"

	// HeaderReturnCorrelationID asks the server to echo the correlation id.
	HeaderReturnCorrelationID = "return-client-request-id"

	// maxResponseBytes bounds how much of a response body is read.
	maxResponseBytes = 1 << 20
)

// ErrMalformedResponse is returned when a server response cannot be decoded.
var ErrMalformedResponse = errors.New("malformed response")

// CallState identifies a single acquisition attempt. Its correlation id is sent
// with every request made on behalf of that attempt.
type CallState struct {
	CorrelationID uuid.UUID
}

// NewCallState returns a CallState for id, generating a fresh id when id is uuid.Nil.
func NewCallState(id uuid.UUID) CallState {
	if id == uuid.Nil {
		id = uuid.New()
	}
	return CallState{CorrelationID: id}
}

// ProtocolError is an explicit OAuth error returned by the identity provider.
type ProtocolError struct {
	// StatusCode is the HTTP status of the response, 200 when the error came in a success body.
	StatusCode int
	// Code is the OAuth error code, e.g. "invalid_grant".
	Code string
	// Description is the server supplied error_description.
	Description string
	// ErrorCodes are the numeric provider error codes, when present.
	ErrorCodes []int
	// CorrelationID is the correlation id reported by the server.
	CorrelationID string
}

// Error implements the error interface.
func (e *ProtocolError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Description)
	}
	return e.Code
}

// StatusError is a non-success HTTP response that does not carry an OAuth error body.
type StatusError struct {
	StatusCode int
	Body       string
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected HTTP status %d: %s", e.StatusCode, e.Body)
}

// errorEnvelope is the error part shared by every identity provider JSON response.
type errorEnvelope struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
	ErrorCodes       []int  `json:"error_codes"`
	CorrelationID    string `json:"correlation_id"`
}

// Client performs the HTTP exchanges with the authority: form posts to the
// token endpoint and JSON gets for instance discovery.
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
}

// Option configures the Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient creates a new transport client. The default HTTP client is a pooled
// client with DefaultHTTPTimeout.
func NewClient(opts ...Option) *Client {
	httpClient := cleanhttp.DefaultPooledClient()
	httpClient.Timeout = DefaultHTTPTimeout

	c := &Client{
		httpClient: httpClient,
		logger:     slog.Default(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// HTTPClient returns the underlying HTTP client.
func (c *Client) HTTPClient() *http.Client {
	return c.httpClient
}

// PostForm posts form to endpoint and decodes the JSON response into out.
//
// An OAuth error in the body (any status) yields a *ProtocolError. A non-200
// status without an OAuth error yields a *StatusError. A body that is not JSON
// yields an error wrapping ErrMalformedResponse.
func (c *Client) PostForm(ctx context.Context, endpoint string, form url.Values, callState CallState, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	body, err := c.do(req, callState)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: failed to parse token response: %v", ErrMalformedResponse, err)
	}
	return nil
}

// GetJSON issues a GET to endpoint and returns the raw JSON body after the
// same status and error checks as PostForm.
func (c *Client) GetJSON(ctx context.Context, endpoint string, callState CallState) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	return c.do(req, callState)
}

func (c *Client) do(req *http.Request, callState CallState) ([]byte, error) {
	correlationID := callState.CorrelationID.String()
	req.Header.Set("Accept", "application/json")
	req.Header.Set(HeaderCorrelationID, correlationID)
	req.Header.Set(HeaderReturnCorrelationID, "true")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request to %s failed: %w", redactURL(req.URL), err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	c.verifyCorrelationID(correlationID, resp.Header.Get(HeaderCorrelationID))

	var envelope errorEnvelope
	envelopeErr := json.Unmarshal(body, &envelope)
	if envelopeErr == nil && envelope.Error != "" {
		c.verifyCorrelationID(correlationID, envelope.CorrelationID)
		c.logger.Debug("Identity provider returned an error",
			"endpoint", redactURL(req.URL),
			"status", resp.StatusCode,
			"error", envelope.Error,
			"correlation_id", correlationID)
		return nil, &ProtocolError{
			StatusCode:    resp.StatusCode,
			Code:          envelope.Error,
			Description:   envelope.ErrorDescription,
			ErrorCodes:    envelope.ErrorCodes,
			CorrelationID: envelope.CorrelationID,
		}
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.Debug("Request failed",
			"endpoint", redactURL(req.URL),
			"status", resp.StatusCode,
			"correlation_id", correlationID)
		return nil, &StatusError{
			StatusCode: resp.StatusCode,
			Body:       azstrings.Truncate(string(body), azstrings.DefaultLogValueMaxLen),
		}
	}

	if envelopeErr != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, envelopeErr)
	}

	return body, nil
}

// verifyCorrelationID logs a warning when the server echoed a different correlation id.
func (c *Client) verifyCorrelationID(sent, received string) {
	if received == "" || strings.EqualFold(sent, received) {
		return
	}
	c.logger.Warn("Returned correlation id does not match the sent correlation id",
		"sent", sent,
		"received", received)
}

// redactURL strips the query string, which may carry user hints.
func redactURL(u *url.URL) string {
	if u == nil {
		return ""
	}
	clone := *u
	clone.RawQuery = ""
	return clone.String()
}
