// Package health checks the liveness of SUSE AI Universal Proxy endpoints.
//
// A check is a GET of <base>/health with a 5 second timeout. Only a 2xx
// answer counts as healthy; transport errors, timeouts and every other status
// are reported as unhealthy in the returned Result. Checks never return
// errors.
//
// Monitor polls a named set of endpoints on an interval (2 minutes by
// default) and keeps the latest ServiceHealth for each. The monitor command
// exposes its snapshot over HTTP.
package health
