// Package healthcheck probes the upstream's health endpoint on an interval
// and records the result on the backend. The breaker does not act on it;
// it is surfaced through the admin upstream view and the logs.
package healthcheck
