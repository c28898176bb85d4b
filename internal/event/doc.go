// Package event defines the fixed set of breaker events and the Logger sink
// that receives them. Sinks are fire-and-forget: the breaker never waits on
// them and a nil sink is a valid no-op.
package event
