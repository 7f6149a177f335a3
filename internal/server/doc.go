// Package server exposes the HTTP surface of the service: the calendar
// notification endpoint, Kubernetes-style health probes and a dedicated
// Prometheus metrics listener.
package server
