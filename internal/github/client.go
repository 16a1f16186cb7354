// Package github talks to the GitHub REST API on behalf of the auth package.
//
// Verifier answers "whose token is this" and Resolver answers "what is their
// standing in an organization". Both report outcomes as auth result values
// and never return transport errors to the caller.
package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	gh "github.com/google/go-github/v73/github"
	"golang.org/x/oauth2"

	"github.com/felixgeelhaar/ghgate/internal/auth"
)

const (
	// DefaultBaseURL is the public GitHub REST endpoint.
	DefaultBaseURL = "https://api.github.com/"

	// DefaultTimeout bounds each API request.
	DefaultTimeout = 5 * time.Second
)

// Config configures API access.
type Config struct {
	// BaseURL is the REST root, e.g. https://ghe.example.com/api/v3/.
	BaseURL string

	Timeout   time.Duration
	UserAgent string

	// Transport is the underlying round tripper. Nil uses http.DefaultTransport.
	Transport http.RoundTripper
}

// Client builds per-token API clients.
type Client struct {
	baseURL   *url.URL
	timeout   time.Duration
	userAgent string
	transport http.RoundTripper
}

// NewClient validates cfg and returns a Client.
func NewClient(cfg Config) (*Client, error) {
	raw := cfg.BaseURL
	if raw == "" {
		raw = DefaultBaseURL
	}
	if !strings.HasSuffix(raw, "/") {
		raw += "/"
	}
	base, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse api url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("api url %q must be http or https", cfg.BaseURL)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &Client{
		baseURL:   base,
		timeout:   timeout,
		userAgent: cfg.UserAgent,
		transport: cfg.Transport,
	}, nil
}

// BaseURL returns the REST root with its trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// Timeout returns the per-request bound.
func (c *Client) Timeout() time.Duration {
	return c.timeout
}

// api returns a go-github client that sends token as a bearer credential.
func (c *Client) api(token string) *gh.Client {
	httpClient := &http.Client{
		Timeout: c.timeout,
		Transport: &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}),
			Base:   c.transport,
		},
	}

	api := gh.NewClient(httpClient)
	api.BaseURL = c.baseURL
	if c.userAgent != "" {
		api.UserAgent = c.userAgent
	}
	return api
}

func ensureTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}

	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}

	return context.WithTimeout(ctx, timeout)
}

// transportFailure classifies a call that produced no HTTP response.
// Only an explicit cancellation by the caller counts as cancelled; deadlines,
// including the caller's own, are a network failure.
func transportFailure(parent context.Context) (auth.Reason, string) {
	if parent != nil && errors.Is(parent.Err(), context.Canceled) {
		return auth.ReasonCancelled, auth.CodeCancelled
	}
	return auth.ReasonNetwork, auth.CodeNetwork
}

// statusOf returns the HTTP status of resp, or 0 when the request never
// produced a response.
func statusOf(resp *gh.Response) int {
	if resp == nil || resp.Response == nil {
		return 0
	}
	return resp.StatusCode
}

// rateLimited reports whether err is one of go-github's rate limit errors.
// Those arrive as 403/429 and must not be mistaken for a scope problem.
func rateLimited(err error) bool {
	var primary *gh.RateLimitError
	var secondary *gh.AbuseRateLimitError
	return errors.As(err, &primary) || errors.As(err, &secondary)
}
