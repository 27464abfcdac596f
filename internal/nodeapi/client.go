// Package nodeapi is the HTTP client for the archon node agent API.
// Every call is bearer-token authenticated and exchanges JSON bodies.
package nodeapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"archon/internal/logging"
	"archon/internal/models"

	"github.com/google/uuid"
)

// DefaultTimeout bounds every request made by a Client.
const DefaultTimeout = 30 * time.Second

// DefaultLogLines is how many log lines are requested when a caller has no preference.
const DefaultLogLines = 100

// Client talks to any number of node agents; the target is chosen per call.
// It is safe for concurrent use.
type Client struct {
	httpClient *http.Client
}

// Option customises client instantiation.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.httpClient = h
		}
	}
}

// New constructs a Client with a 30 second timeout and pooled connections.
func New(opts ...Option) *Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.MaxIdleConnsPerHost = 10
	c := &Client{
		httpClient: &http.Client{Timeout: DefaultTimeout, Transport: transport},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// DeploySite deploys a site to the node.
func (c *Client) DeploySite(ctx context.Context, ep Endpoint, req DeployRequest) (*DeploymentResponse, error) {
	var resp DeploymentResponse
	if err := c.do(ctx, ep, http.MethodPost, "/api/v1/sites/deploy", req, &resp, "deployment response"); err != nil {
		return nil, err
	}
	return &resp, nil
}

// UpdateSite redeploys an existing site with a new configuration.
func (c *Client) UpdateSite(ctx context.Context, ep Endpoint, siteID uuid.UUID, req DeployRequest) error {
	return c.do(ctx, ep, http.MethodPut, sitePath(siteID, ""), req, nil, "")
}

// SiteStatus fetches the current status of a site.
func (c *Client) SiteStatus(ctx context.Context, ep Endpoint, siteID uuid.UUID) (models.SiteStatus, error) {
	var resp StatusResponse
	if err := c.do(ctx, ep, http.MethodGet, sitePath(siteID, "/status"), nil, &resp, "status response"); err != nil {
		return "", err
	}
	if !resp.Status.Valid() {
		return "", fmt.Errorf("%w: unknown site status %q", ErrInvalidResponse, resp.Status)
	}
	return resp.Status, nil
}

// DeleteSite removes a site and its container from the node.
func (c *Client) DeleteSite(ctx context.Context, ep Endpoint, siteID uuid.UUID) error {
	return c.do(ctx, ep, http.MethodDelete, sitePath(siteID, ""), nil, nil, "")
}

// StopSite stops a site's container.
func (c *Client) StopSite(ctx context.Context, ep Endpoint, siteID uuid.UUID) error {
	return c.do(ctx, ep, http.MethodPost, sitePath(siteID, "/stop"), nil, nil, "")
}

// RestartSite restarts a site's container.
func (c *Client) RestartSite(ctx context.Context, ep Endpoint, siteID uuid.UUID) error {
	return c.do(ctx, ep, http.MethodPost, sitePath(siteID, "/restart"), nil, nil, "")
}

// Health runs the node's health check.
func (c *Client) Health(ctx context.Context, ep Endpoint) (*HealthResponse, error) {
	var resp HealthResponse
	if err := c.do(ctx, ep, http.MethodGet, "/api/v1/health", nil, &resp, "health response"); err != nil {
		return nil, err
	}
	if !resp.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown node status %q", ErrInvalidResponse, resp.Status)
	}
	return &resp, nil
}

// DockerInfo fetches docker engine details from the node.
func (c *Client) DockerInfo(ctx context.Context, ep Endpoint) (*models.DockerInfo, error) {
	var resp models.DockerInfo
	if err := c.do(ctx, ep, http.MethodGet, "/api/v1/docker/info", nil, &resp, "Docker info"); err != nil {
		return nil, err
	}
	return &resp, nil
}

// TraefikInfo fetches Traefik router details from the node.
func (c *Client) TraefikInfo(ctx context.Context, ep Endpoint) (*models.TraefikInfo, error) {
	var resp models.TraefikInfo
	if err := c.do(ctx, ep, http.MethodGet, "/api/v1/traefik/info", nil, &resp, "Traefik info"); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Logs returns the last n lines of a site's container log.
func (c *Client) Logs(ctx context.Context, ep Endpoint, siteID uuid.UUID, n int) ([]string, error) {
	path := sitePath(siteID, "/logs") + "?lines=" + url.QueryEscape(fmt.Sprint(n))
	var resp logsResponse
	if err := c.do(ctx, ep, http.MethodGet, path, nil, &resp, "logs response"); err != nil {
		return nil, err
	}
	return resp.Logs, nil
}

// Metrics returns a resource sample for a site's container.
func (c *Client) Metrics(ctx context.Context, ep Endpoint, siteID uuid.UUID) (*models.ContainerMetrics, error) {
	var resp models.ContainerMetrics
	if err := c.do(ctx, ep, http.MethodGet, sitePath(siteID, "/metrics"), nil, &resp, "metrics response"); err != nil {
		return nil, err
	}
	return &resp, nil
}

func sitePath(id uuid.UUID, suffix string) string {
	return "/api/v1/sites/" + id.String() + suffix
}

// do performs one request. A nil v means the response body is ignored;
// what names the body in InvalidResponse errors.
func (c *Client) do(ctx context.Context, ep Endpoint, method, path string, body, v any, what string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	endpoint := strings.TrimRight(ep.BaseURL, "/") + path

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("%w: create request: %v", ErrNetwork, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+ep.Token)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		logging.Get(logging.CategoryAPI).Warn("%s %s failed: %v", method, endpoint, err)
		return classifyTransportError(err)
	}
	defer resp.Body.Close()
	logging.APIDebug("%s %s -> %d (%s)", method, endpoint, resp.StatusCode, time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := "Unknown error"
		if data, err := io.ReadAll(resp.Body); err == nil && len(bytes.TrimSpace(data)) > 0 {
			msg = strings.TrimSpace(string(data))
		}
		return &ServerError{Status: resp.StatusCode, Message: msg}
	}

	if v == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: failed to parse %s: %v", ErrInvalidResponse, what, err)
	}
	return nil
}

func classifyTransportError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return fmt.Errorf("%w: %v", ErrNetwork, err)
}
