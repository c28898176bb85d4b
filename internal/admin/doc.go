// Package admin serves read-only views of breaker state and a rule reload
// endpoint.
package admin
