// Package httpserver wraps http.Server with address validation, configurable
// timeouts and a bounded graceful shutdown.
package httpserver
