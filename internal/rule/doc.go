// Package rule holds the breaker policy model: the Rule definition, the
// predicate deciding whether a response counts as a failure, and the key
// builder that partitions circuit state by rule, client and route.
package rule
