package cli

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strings"
	"syscall"

	"golang.org/x/oauth2"

	"github.com/suse/upscout/internal/config"
	"github.com/suse/upscout/internal/rancher"
)

// Process exit codes.
const (
	ExitCodeSuccess = 0
	ExitCodeError   = 1
	// ExitCodeConfig signals an invalid or incomplete configuration.
	ExitCodeConfig = 2
	// ExitCodePartial signals a discovery run where some clusters failed.
	ExitCodePartial = 3
)

// ExitCoder is implemented by errors that carry their own exit code.
type ExitCoder interface {
	ExitCode() int
}

// ExitCodeFor maps an error returned by a command to a process exit code.
func ExitCodeFor(err error) int {
	if err == nil {
		return ExitCodeSuccess
	}
	var coder ExitCoder
	if errors.As(err, &coder) {
		return coder.ExitCode()
	}
	var cfgErr *config.ConfigurationError
	if errors.As(err, &cfgErr) || errors.Is(err, rancher.ErrNotConfigured) {
		return ExitCodeConfig
	}
	return ExitCodeError
}

// ConfigError marks an error as a configuration problem.
type ConfigError struct {
	Err error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("configuration error: %v", e.Err)
}

// Unwrap returns the underlying error.
func (e *ConfigError) Unwrap() error { return e.Err }

// ExitCode implements ExitCoder.
func (e *ConfigError) ExitCode() int { return ExitCodeConfig }

// PartialFailureError reports a discovery run in which some clusters failed.
type PartialFailureError struct {
	Failed []string
	Total  int
}

func (e *PartialFailureError) Error() string {
	return fmt.Sprintf("%d of %d clusters failed: %s\n\nRetry them with:\n  upscout discover --retry-failed",
		len(e.Failed), e.Total, strings.Join(e.Failed, ", "))
}

// ExitCode implements ExitCoder.
func (e *PartialFailureError) ExitCode() int { return ExitCodePartial }

// ConnectionErrorType categorizes the type of connection error.
type ConnectionErrorType int

const (
	// ConnectionErrorUnknown indicates an unclassified connection error.
	ConnectionErrorUnknown ConnectionErrorType = iota
	// ConnectionErrorTLS indicates a TLS/certificate verification error.
	ConnectionErrorTLS
	// ConnectionErrorNetwork indicates a network connectivity error (e.g., refused, unreachable).
	ConnectionErrorNetwork
	// ConnectionErrorTimeout indicates a connection timeout.
	ConnectionErrorTimeout
	// ConnectionErrorDNS indicates a DNS resolution failure.
	ConnectionErrorDNS
	// ConnectionErrorScheme indicates an https URL served over plain HTTP.
	ConnectionErrorScheme
)

// String returns a human-readable name for the connection error type.
func (t ConnectionErrorType) String() string {
	switch t {
	case ConnectionErrorTLS:
		return "TLS certificate error"
	case ConnectionErrorNetwork:
		return "Network error"
	case ConnectionErrorTimeout:
		return "Connection timeout"
	case ConnectionErrorDNS:
		return "DNS resolution error"
	case ConnectionErrorScheme:
		return "Protocol mismatch"
	default:
		return "Connection error"
	}
}

// ConnectionError indicates a connection failure to an endpoint.
// It wraps the underlying error and provides categorization for better user feedback.
type ConnectionError struct {
	// Endpoint is the URL that could not be reached.
	Endpoint string
	// Type categorizes the connection error.
	Type ConnectionErrorType
	// Reason is the underlying error.
	Reason error
}

// Error returns the category, endpoint and a hint for the category.
func (e *ConnectionError) Error() string {
	msg := fmt.Sprintf("%s: cannot reach %s: %v", e.Type, e.Endpoint, e.Reason)
	switch e.Type {
	case ConnectionErrorTLS:
		msg += "\n\nSet rancher.caFile to the Rancher CA bundle, or rancher.insecureSkipVerify for testing."
	case ConnectionErrorDNS, ConnectionErrorNetwork:
		msg += "\n\nCheck rancher.url and that the server is reachable from this host."
	case ConnectionErrorScheme:
		msg += "\n\nThe server answered with plain HTTP; use an http:// rancher.url or the TLS port."
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *ConnectionError) Unwrap() error {
	return e.Reason
}

// Is allows errors.Is() to work with wrapped errors.
func (e *ConnectionError) Is(target error) bool {
	_, ok := target.(*ConnectionError)
	return ok
}

// ClassifyConnectionError wraps a transport error of the Rancher client in a
// ConnectionError of the matching type. If the error is nil, returns nil.
func ClassifyConnectionError(err error, endpoint string) *ConnectionError {
	if err == nil {
		return nil
	}

	var t ConnectionErrorType
	switch {
	case isSchemeMismatch(err):
		t = ConnectionErrorScheme
	case isTLSError(err):
		t = ConnectionErrorTLS
	case isDNSError(err):
		t = ConnectionErrorDNS
	case isTimeoutError(err):
		t = ConnectionErrorTimeout
	case isNetworkError(err):
		t = ConnectionErrorNetwork
	default:
		t = ConnectionErrorUnknown
	}
	return &ConnectionError{Endpoint: endpoint, Type: t, Reason: err}
}

// isSchemeMismatch reports an https rancher.url pointing at a plain HTTP
// listener. net/http only reports this as text.
func isSchemeMismatch(err error) bool {
	return strings.Contains(err.Error(), "server gave HTTP response to HTTPS client")
}

// isTLSError reports certificate verification and handshake failures.
func isTLSError(err error) bool {
	if err == nil {
		return false
	}

	var (
		verifyErr      *tls.CertificateVerificationError
		recordErr      tls.RecordHeaderError
		alertErr       tls.AlertError
		certErr        x509.CertificateInvalidError
		hostErr        x509.HostnameError
		unknownAuthErr x509.UnknownAuthorityError
		systemRootsErr x509.SystemRootsError
	)
	if errors.As(err, &verifyErr) || errors.As(err, &recordErr) || errors.As(err, &alertErr) ||
		errors.As(err, &certErr) || errors.As(err, &hostErr) ||
		errors.As(err, &unknownAuthErr) || errors.As(err, &systemRootsErr) {
		return true
	}

	// Remote alerts lose their type once net/http wraps them.
	msg := err.Error()
	return strings.Contains(msg, "x509: ") || strings.Contains(msg, "tls: ")
}

func isDNSError(err error) bool {
	var dnsErr *net.DNSError
	return errors.As(err, &dnsErr)
}

// isTimeoutError reports dial and response timeouts, including the client
// timeout of the Rancher http.Client.
func isTimeoutError(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// isNetworkError reports refused, reset and unreachable connections.
func isNetworkError(err error) bool {
	for _, errno := range []syscall.Errno{syscall.ECONNREFUSED, syscall.ECONNRESET, syscall.EHOSTUNREACH, syscall.ENETUNREACH} {
		if errors.Is(err, errno) {
			return true
		}
	}
	var opErr *net.OpError
	return errors.As(err, &opErr) && opErr.Op == "dial"
}

// AuthRequiredError indicates the Rancher API rejected the token.
type AuthRequiredError struct {
	// Endpoint is the Rancher URL that requires authentication.
	Endpoint string
}

// Error returns a user-friendly error message with actionable guidance.
func (e *AuthRequiredError) Error() string {
	return fmt.Sprintf(`Authentication required for %s

Create an API key in Rancher (User Avatar > Account & API Keys) and export it:
  export %s=token-xxxxx:secret`, e.Endpoint, config.RancherTokenEnvVar)
}

// Is allows errors.Is() to work with wrapped errors.
func (e *AuthRequiredError) Is(target error) bool {
	_, ok := target.(*AuthRequiredError)
	return ok
}

// ExitCode implements ExitCoder.
func (e *AuthRequiredError) ExitCode() int { return ExitCodeConfig }

// ExplainRancherError turns errors from the Rancher API into errors with
// guidance: 401/403 become AuthRequiredError, transport failures become a
// classified ConnectionError. Other errors are returned unchanged.
func ExplainRancherError(err error, endpoint string) error {
	if err == nil {
		return nil
	}
	var apiErr *rancher.APIError
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode == 401 || apiErr.StatusCode == 403 {
			return &AuthRequiredError{Endpoint: endpoint}
		}
		return err
	}
	if errors.Is(err, rancher.ErrNotConfigured) || errors.Is(err, rancher.ErrClusterNotFound) {
		return err
	}
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) && retrieveErr.Response != nil {
		if code := retrieveErr.Response.StatusCode; code == 401 || code == 403 {
			return &AuthRequiredError{Endpoint: endpoint}
		}
		return err
	}
	var urlErr *url.Error
	var netErr net.Error
	if errors.As(err, &urlErr) || errors.As(err, &netErr) || isNetworkError(err) || isTLSError(err) {
		return ClassifyConnectionError(err, endpoint)
	}
	return err
}
