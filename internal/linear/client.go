// Package linear is a minimal GraphQL client for the Linear API covering
// the issue and comment calls issuelens needs.
package linear

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/andywolf/issuelens/internal/auth"
	"github.com/andywolf/issuelens/internal/version"
)

// DefaultBaseURL is the Linear GraphQL endpoint.
const DefaultBaseURL = "https://api.linear.app/graphql"

// Client talks to the Linear GraphQL API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	tokens     auth.TokenProvider
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client for the Client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithBaseURL sets a custom GraphQL endpoint (useful for testing).
func WithBaseURL(url string) ClientOption {
	return func(c *Client) {
		c.baseURL = url
	}
}

// NewClient creates a new Client authenticating with tokens.
func NewClient(tokens auth.TokenProvider, opts ...ClientOption) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    DefaultBaseURL,
		tokens:     tokens,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// APIError represents errors reported by the GraphQL endpoint.
type APIError struct {
	StatusCode int
	Messages   []string
}

func (e *APIError) Error() string {
	if len(e.Messages) == 0 {
		return fmt.Sprintf("linear API error (status %d)", e.StatusCode)
	}
	return fmt.Sprintf("linear API error (status %d): %s", e.StatusCode, strings.Join(e.Messages, "; "))
}

type graphQLRequest struct {
	Query     string                 `json:"query"`
	Variables map[string]interface{} `json:"variables,omitempty"`
}

type graphQLResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// authorizationHeader formats token for Linear: personal API keys are sent
// as-is, OAuth access tokens with the Bearer scheme.
func authorizationHeader(token string) string {
	if strings.HasPrefix(token, "lin_api_") {
		return token
	}
	return "Bearer " + token
}

// do executes a GraphQL operation and decodes its data into out.
func (c *Client) do(ctx context.Context, query string, variables map[string]interface{}, out interface{}) error {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return err
	}

	payload, err := json.Marshal(graphQLRequest{Query: query, Variables: variables})
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", authorizationHeader(token))
	req.Header.Set("User-Agent", version.UserAgent())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		return fmt.Errorf("%w: linear API rejected the token", auth.ErrNoSession)
	}

	var gql graphQLResponse
	if err := json.Unmarshal(body, &gql); err != nil {
		if resp.StatusCode != http.StatusOK {
			return &APIError{StatusCode: resp.StatusCode, Messages: []string{strings.TrimSpace(string(body))}}
		}
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if len(gql.Errors) > 0 || resp.StatusCode != http.StatusOK {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		for _, e := range gql.Errors {
			apiErr.Messages = append(apiErr.Messages, e.Message)
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(gql.Data, out); err != nil {
		return fmt.Errorf("failed to decode response data: %w", err)
	}
	return nil
}
