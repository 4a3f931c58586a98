// Package client is a Go client for the Hola Lucia admin API.
//
//	c := client.New(token, client.WithBaseURL("https://admin-api.holalucia.cl"))
//	ents, err := c.Entitlements.Get(ctx)
package client

import (
	"net/http"
	"time"
)

const (
	// DefaultBaseURL is the local development API endpoint.
	DefaultBaseURL = "http://localhost:8080"
	// DefaultTimeout is the default HTTP client timeout.
	DefaultTimeout = 30 * time.Second
)

// Client calls the /v1 API with a bearer token.
type Client struct {
	token      string
	baseURL    string
	httpClient *http.Client

	Entitlements *EntitlementsService
	Workflows    *WorkflowsService
	Billing      *BillingService
}

// Option configures the client.
type Option func(*Client)

// WithBaseURL sets the API base URL.
func WithBaseURL(url string) Option {
	return func(c *Client) {
		c.baseURL = url
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if c.httpClient == nil {
			c.httpClient = &http.Client{}
		}
		c.httpClient.Timeout = timeout
	}
}

// New creates a client that authenticates with the given bearer token.
func New(token string, opts ...Option) *Client {
	c := &Client{
		token:      token,
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}

	c.Entitlements = &EntitlementsService{client: c}
	c.Workflows = &WorkflowsService{client: c}
	c.Billing = &BillingService{client: c}
	return c
}

// BaseURL returns the current base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}
