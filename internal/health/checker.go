package health

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/suse/upscout/pkg/logging"
)

const (
	// DefaultTimeout bounds a single health request.
	DefaultTimeout = 5 * time.Second

	// DefaultPath is appended to the base URL of every check.
	DefaultPath = "/health"

	// DefaultPort is the Universal Proxy port used by CheckAddress callers
	// that have no port of their own.
	DefaultPort = 8911

	// maxBodyBytes caps how much of a health response is read for the version.
	maxBodyBytes = 64 << 10
)

// Result is the outcome of one health check. Failures are reported in the
// result rather than as errors.
type Result struct {
	URL          string        `json:"url"`
	Healthy      bool          `json:"healthy"`
	StatusCode   int           `json:"statusCode,omitempty"`
	ResponseTime time.Duration `json:"responseTime"`
	Error        string        `json:"error,omitempty"`
	CheckedAt    time.Time     `json:"checkedAt"`
	Version      string        `json:"version,omitempty"`
}

// Checker performs HTTP liveness checks against Universal Proxy endpoints.
type Checker struct {
	client  *http.Client
	timeout time.Duration
	path    string
	now     func() time.Time
}

// Option customizes a Checker.
type Option func(*Checker)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Checker) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithPath sets the health path appended to base URLs.
func WithPath(path string) Option {
	return func(c *Checker) {
		if path != "" {
			c.path = "/" + strings.TrimLeft(path, "/")
		}
	}
}

// WithHTTPClient replaces the HTTP client. The checker's timeout still applies
// through the request context.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Checker) {
		if client != nil {
			c.client = client
		}
	}
}

// NewChecker creates a Checker with a 5s timeout and the /health path.
func NewChecker(opts ...Option) *Checker {
	c := &Checker{
		client:  &http.Client{},
		timeout: DefaultTimeout,
		path:    DefaultPath,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Timeout returns the configured per-request timeout.
func (c *Checker) Timeout() time.Duration {
	return c.timeout
}

// Check issues GET <baseURL><path>. The endpoint is healthy iff it answers
// with a 2xx status within the timeout. A JSON body carrying a "version"
// field is recorded on the result.
func (c *Checker) Check(ctx context.Context, baseURL string) Result {
	result := Result{
		URL:       baseURL,
		CheckedAt: c.now(),
	}

	target := JoinPath(baseURL, c.path)

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		result.Error = fmt.Sprintf("invalid health URL %q: %v", target, err)
		return result
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.client.Do(req)
	result.ResponseTime = time.Since(start)
	if err != nil {
		result.Error = describeTransportError(err)
		logging.Debug("Health", "Health check of %s failed: %s", target, result.Error)
		return result
	}
	defer resp.Body.Close()

	result.StatusCode = resp.StatusCode
	result.Healthy = resp.StatusCode >= 200 && resp.StatusCode < 300
	if !result.Healthy {
		result.Error = fmt.Sprintf("unexpected status %d", resp.StatusCode)
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	result.Version = parseVersion(body)

	logging.Debug("Health", "Health check of %s: status=%d healthy=%t in %s",
		target, resp.StatusCode, result.Healthy, result.ResponseTime)
	return result
}

// CheckAddress checks http://<address>:<port>.
func (c *Checker) CheckAddress(ctx context.Context, address string, port int) Result {
	return c.Check(ctx, BaseURL(address, port))
}

// CheckWithFallback tries the load balancer address first and falls back to
// localhost. The first healthy result is returned, otherwise the localhost
// result. An empty loadBalancerIP goes straight to localhost.
func (c *Checker) CheckWithFallback(ctx context.Context, loadBalancerIP string) Result {
	if loadBalancerIP != "" {
		lb := c.CheckAddress(ctx, loadBalancerIP, DefaultPort)
		if lb.Healthy {
			return lb
		}
		logging.Debug("Health", "Load balancer %s not healthy, falling back to localhost", loadBalancerIP)
	}
	return c.CheckAddress(ctx, "localhost", DefaultPort)
}

// BaseURL builds http://<address>:<port>, bracketing IPv6 literals.
func BaseURL(address string, port int) string {
	return "http://" + net.JoinHostPort(address, strconv.Itoa(port))
}

// JoinPath appends path to base without producing a double slash.
func JoinPath(base, path string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")
}

func parseVersion(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	var payload struct {
		Version string `json:"version"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	return payload.Version
}

func describeTransportError(err error) string {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "timeout: " + err.Error()
	}
	return err.Error()
}
