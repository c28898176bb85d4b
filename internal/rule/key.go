package rule

import (
	"net/http"
	"strings"
)

const keySeparator = "_"

// AddressSource resolves the caller's network identity for a request.
type AddressSource interface {
	ClientAddress(r *http.Request) string
}

// AddressFunc adapts a plain function to AddressSource.
type AddressFunc func(r *http.Request) string

func (f AddressFunc) ClientAddress(r *http.Request) string {
	return f(r)
}

// Key builds the circuit partition key "<name>_<client>_<path>". The client
// segment is only resolved for per-client rules and the path segment only
// for per-route rules; the other segments stay empty.
func Key(r *Rule, req *http.Request, addr AddressSource) string {
	var client, path string

	if r.ApplicabilityScope == ScopePerClient && addr != nil && req != nil {
		client = addr.ClientAddress(req)
	}
	if r.RouteScope == RoutePerRoute && req != nil && req.URL != nil {
		path = req.URL.Path
	}

	var b strings.Builder
	b.Grow(len(r.Name) + len(client) + len(path) + 2)
	b.WriteString(r.Name)
	b.WriteString(keySeparator)
	b.WriteString(client)
	b.WriteString(keySeparator)
	b.WriteString(path)
	return b.String()
}
