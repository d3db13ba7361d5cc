// ABOUTME: Package doc for metrics
// ABOUTME: Describes the prometheus counters the gateway exports

// Package metrics holds the process-wide prometheus collectors. They
// are registered through promauto at init and served by the gateway's
// /metrics endpoint when enabled.
package metrics
