// Package kube provides read-only access to the Kubernetes API of downstream
// clusters.
//
// Discovery only lists Services, Pods and Ingresses, so ClusterClient exposes
// exactly those three list calls. Two factories produce clients:
//
//   - RancherFactory goes through the Rancher proxy at
//     <rancher-url>/k8s/clusters/<cluster-id> using the Rancher API token.
//   - KubeconfigFactory uses kubeconfig contexts directly, with the context
//     name standing in for the cluster ID.
//
// Both are backed by a controller-runtime client with the client-go scheme.
// KubeconfigFactory also lists its contexts as clusters, so it can replace
// the Rancher client as the source of cluster names.
package kube
