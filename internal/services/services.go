package services

import (
	"bytes"
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"

	"github.com/desertthunder/homeboard/internal/credentials"
	"github.com/desertthunder/homeboard/internal/shared"
)

// Service is implemented by every provider client.
type Service interface {
	// Name returns the provider name (e.g. "Calendar", "Home Assistant")
	Name() string

	// Configured reports whether credentials are present. Unconfigured clients serve mock or empty data.
	Configured() bool
}

// TokenSource hands out valid OAuth access tokens. Implemented by [credentials.Refresher].
type TokenSource interface {
	GetValidToken(ctx context.Context, p credentials.Provider) (*credentials.Token, error)
}

// ClientOpts configures a [Client].
type ClientOpts struct {
	Name       string
	BaseURL    string
	HTTPClient *http.Client
	// RateLimit is requests per second; zero disables limiting.
	RateLimit float64
	Burst     int
	Logger    *log.Logger
	// Timeout applies when HTTPClient is nil; zero means 15s.
	Timeout time.Duration
}

// Client is a JSON-over-HTTP helper shared by the provider clients.
type Client struct {
	name    string
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	logger  *log.Logger
}

func NewClient(opts ClientOpts) *Client {
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: cmp.Or(opts.Timeout, 15*time.Second)}
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}

	c := &Client{
		name:    opts.Name,
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		http:    opts.HTTPClient,
		logger:  opts.Logger.With("component", opts.Name),
	}
	if opts.RateLimit > 0 {
		burst := max(opts.Burst, 1)
		c.limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
	}
	return c
}

// request describes one upstream call.
type request struct {
	method string
	path   string
	query  url.Values
	body   any
	bearer string
	header http.Header
}

// do performs req and decodes a JSON response into result (which may be nil).
//
// Errors:
//   - [shared.ErrNotAuthenticated]: upstream returned 401
//   - [shared.ErrNotFound]: upstream returned 404
//   - [shared.ErrUpstreamUnavailable]: transport failure or any other non-2xx status
func (c *Client) do(ctx context.Context, req request, result any) error {
	if req.header.Get("Accept") == "" {
		req.header = req.header.Clone()
		if req.header == nil {
			req.header = http.Header{}
		}
		req.header.Set("Accept", "application/json")
	}

	resp, err := c.send(ctx, req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent || result == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		if err == io.EOF {
			return nil
		}
		return fmt.Errorf("%w: %s: failed to decode response: %v", shared.ErrUpstreamUnavailable, c.name, err)
	}
	return nil
}

// send performs req and returns the response for a 2xx status. The caller closes the body.
func (c *Client) send(ctx context.Context, req request) (*http.Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: %s: rate limiter: %v", shared.ErrUpstreamUnavailable, c.name, err)
		}
	}

	endpoint := req.path
	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		endpoint = c.baseURL + endpoint
	}
	if len(req.query) > 0 {
		endpoint += "?" + req.query.Encode()
	}

	var body io.Reader
	if req.body != nil {
		data, err := json.Marshal(req.body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	method := req.method
	if method == "" {
		method = http.MethodGet
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for k, vs := range req.header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	if req.body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if req.bearer != "" {
		httpReq.Header.Set("Authorization", "Bearer "+req.bearer)
	}

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: request failed: %v", shared.ErrUpstreamUnavailable, c.name, err)
	}
	c.logger.Debug("upstream request", "method", method, "path", req.path, "status", resp.StatusCode, "duration", time.Since(start))

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}

	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return nil, fmt.Errorf("%w: %s rejected credentials", shared.ErrNotAuthenticated, c.name)
	case http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s %s", shared.ErrNotFound, c.name, req.path)
	default:
		return nil, fmt.Errorf("%w: %s: status %d: %s", shared.ErrUpstreamUnavailable, c.name, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
}

// accessToken returns a valid token for p or an error wrapping [shared.ErrNotAuthenticated].
func accessToken(ctx context.Context, tokens TokenSource, p credentials.Provider) (string, error) {
	if tokens == nil {
		return "", fmt.Errorf("%w: no token source", shared.ErrNotAuthenticated)
	}
	tok, err := tokens.GetValidToken(ctx, p)
	if err != nil {
		return "", fmt.Errorf("%w: %v", shared.ErrNotAuthenticated, err)
	}
	return tok.AccessToken, nil
}
