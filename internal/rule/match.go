package rule

import "net/http"

// IsSuccessful classifies a status code for breaker purposes. Only server
// errors are failures; a 404 is the caller's problem, not the upstream's.
func IsSuccessful(status int) bool {
	return status < http.StatusInternalServerError
}

// Matches reports whether status trips the rule's failure condition: the
// configured code exactly, or any unsuccessful code when none is configured.
func Matches(r *Rule, status int) bool {
	if r.Limit.StatusCode != nil {
		return status == *r.Limit.StatusCode
	}
	return !IsSuccessful(status)
}
