// Package broker provides message broker implementations.
//
// Implementations:
//   - redis: list-based queues plus a Redis result backend
//   - memory: scriptable in-memory fake for testing and local development
package broker
