// Package handler wires the circuit breaker into HTTP. BreakerHandler wraps a
// server-side http.Handler and Transport wraps a client-side RoundTripper;
// both reject calls while a circuit is open and report upstream statuses
// back to the engine.
package handler
