// Package discovery finds SUSE AI Universal Proxy instances in downstream
// clusters.
//
// Detection in one cluster is a two step fallback run by Prober:
//
//  1. List the services exposing the proxy port, resolve a reachable
//     address for each (load balancer ingress, Rancher publicEndpoints
//     annotation, external IP, cluster IP) and health-check them in list
//     order. The first healthy service wins.
//  2. When no service answered, list the pods running the proxy container
//     and health-check all of them with bounded concurrency. Every healthy
//     pod is kept.
//
// Only endpoints whose health check passed are ever reported.
//
// Scanner runs the prober across many clusters one after the other,
// reporting progress and an ETA, and remembers which clusters failed so
// they can be retried without rescanning the rest. Scan reports can be
// persisted with SaveReport and restored into a Scanner.
package discovery
