// Package http provides the operational HTTP endpoints.
//
// The HTTP server exposes:
//   - Health checks
//   - Prometheus metrics
//   - A read-only executor state snapshot
package http
