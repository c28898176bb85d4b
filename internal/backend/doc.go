// Package backend forwards requests to the protected upstream API. It tracks
// in-flight requests and a moving average of upstream latency, and turns
// transport failures into 502 responses so the breaker can count them.
package backend
