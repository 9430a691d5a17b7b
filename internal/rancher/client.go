package rancher

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"golang.org/x/oauth2"

	"github.com/suse/upscout/internal/config"
	"github.com/suse/upscout/pkg/logging"
)

// ErrClusterNotFound is returned by GetClusterByName when no cluster matches.
var ErrClusterNotFound = errors.New("cluster not found")

// ErrNotConfigured is returned when no Rancher URL is configured.
var ErrNotConfigured = errors.New("rancher url is not configured")

// APIError is a non-2xx answer of the management API.
type APIError struct {
	StatusCode int
	Path       string
	Body       string
}

func (e *APIError) Error() string {
	msg := strings.TrimSpace(e.Body)
	if len(msg) > 200 {
		msg = msg[:200] + "..."
	}
	if msg == "" {
		return fmt.Sprintf("rancher API %s: status %d", e.Path, e.StatusCode)
	}
	return fmt.Sprintf("rancher API %s: status %d: %s", e.Path, e.StatusCode, msg)
}

// Retryable reports whether the request may succeed when repeated.
func (e *APIError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// Client talks to the Rancher management API (/v3).
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	maxTries   uint
	backoff    func() backoff.BackOff
}

// NewClient creates a management API client from configuration. The token is
// sent as a bearer token on every request.
func NewClient(cfg config.RancherConfig) (*Client, error) {
	if cfg.URL == "" {
		return nil, ErrNotConfigured
	}
	base, err := url.Parse(strings.TrimRight(cfg.URL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid rancher url %q: %w", cfg.URL, err)
	}

	transport, err := NewTransport(cfg)
	if err != nil {
		return nil, err
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = config.DefaultRancherTimeout
	}
	maxTries := cfg.MaxRetries
	if maxTries == 0 {
		maxTries = config.DefaultRancherRetries
	}

	return &Client{
		baseURL:    base,
		httpClient: &http.Client{Transport: transport, Timeout: timeout},
		maxTries:   maxTries,
		backoff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 250 * time.Millisecond
			b.MaxInterval = 5 * time.Second
			return b
		},
	}, nil
}

// NewTransport builds an HTTP transport honouring the TLS settings of cfg
// and adding the bearer token when one is configured.
func NewTransport(cfg config.RancherConfig) (http.RoundTripper, error) {
	tlsConfig, err := TLSConfig(cfg)
	if err != nil {
		return nil, err
	}

	base := http.DefaultTransport.(*http.Transport).Clone()
	base.TLSClientConfig = tlsConfig

	if cfg.Token == "" {
		return base, nil
	}
	return &oauth2.Transport{
		Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token, TokenType: "Bearer"}),
		Base:   base,
	}, nil
}

// TLSConfig returns the TLS client configuration for the management server.
func TLSConfig(cfg config.RancherConfig) (*tls.Config, error) {
	tlsConfig := &tls.Config{
		MinVersion:         tls.VersionTLS12,
		InsecureSkipVerify: cfg.InsecureSkipVerify, //nolint:gosec
	}
	if cfg.CAFile == "" {
		return tlsConfig, nil
	}
	pem, err := os.ReadFile(cfg.CAFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read CA file %s: %w", cfg.CAFile, err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return nil, fmt.Errorf("no certificates found in %s", cfg.CAFile)
	}
	tlsConfig.RootCAs = pool
	return tlsConfig, nil
}

// BaseURL returns the management server URL without a trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// ListClusters returns every cluster visible to the token.
func (c *Client) ListClusters(ctx context.Context) ([]Cluster, error) {
	var coll clusterCollection
	if err := c.get(ctx, "/v3/clusters", nil, &coll); err != nil {
		return nil, fmt.Errorf("failed to list clusters: %w", err)
	}
	logging.Debug("Rancher", "Listed %d clusters", len(coll.Data))
	return coll.Data, nil
}

// GetClusterByName looks a cluster up by its name.
func (c *Client) GetClusterByName(ctx context.Context, name string) (Cluster, error) {
	var coll clusterCollection
	query := url.Values{"name": []string{name}}
	if err := c.get(ctx, "/v3/clusters", query, &coll); err != nil {
		return Cluster{}, fmt.Errorf("failed to look up cluster %q: %w", name, err)
	}
	if len(coll.Data) == 0 {
		return Cluster{}, fmt.Errorf("%q: %w", name, ErrClusterNotFound)
	}
	return coll.Data[0], nil
}

// AccessibleClusters returns the clusters that are active or Ready.
func (c *Client) AccessibleClusters(ctx context.Context) ([]Cluster, error) {
	all, err := c.ListClusters(ctx)
	if err != nil {
		return nil, err
	}
	accessible := make([]Cluster, 0, len(all))
	for _, cl := range all {
		if cl.IsAccessible() {
			accessible = append(accessible, cl)
			logging.Debug("Rancher", "Cluster %s (%s) state=%s is accessible", cl.DisplayNameOrName(), cl.ID, cl.State)
		}
	}
	logging.Info("Rancher", "Found %d accessible clusters out of %d", len(accessible), len(all))
	return accessible, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out interface{}) error {
	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + path
	if query != nil {
		u.RawQuery = query.Encode()
	}
	target := u.String()

	attempt := 0
	operation := func() ([]byte, error) {
		attempt++
		body, err := c.do(ctx, target)
		if err == nil {
			return body, nil
		}
		var apiErr *APIError
		if errors.As(err, &apiErr) && !apiErr.Retryable() {
			return nil, backoff.Permanent(err)
		}
		if ctx.Err() != nil {
			return nil, backoff.Permanent(err)
		}
		logging.Debug("Rancher", "Request %s failed (attempt %d/%d): %v", path, attempt, c.maxTries, err)
		return nil, err
	}

	body, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(c.backoff()),
		backoff.WithMaxTries(c.maxTries),
	)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, target string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{StatusCode: resp.StatusCode, Path: req.URL.Path, Body: string(body)}
	}
	return body, nil
}
