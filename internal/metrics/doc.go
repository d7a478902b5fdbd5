// ABOUTME: Metrics package exposing engine counters to Prometheus
// ABOUTME: Observer implementation registered on a caller-owned registry
// Package metrics exports soundboard engine activity as Prometheus metrics.
package metrics
