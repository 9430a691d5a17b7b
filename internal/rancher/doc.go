// Package rancher is a small read-only client for the Rancher management API.
//
// Only cluster listing and lookup are implemented. Requests carry the
// configured API token as a bearer token, and transient failures (network
// errors, 429, 5xx) are retried with exponential backoff. Other 4xx answers
// fail immediately.
package rancher
