// Package server manages the lifecycle of the service's HTTP listeners:
// non-blocking start, asynchronous error reporting and graceful,
// signal-driven shutdown.
package server
