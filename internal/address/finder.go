package address

import (
	"net"
	"net/http"
	"strings"
)

const headerForwardedFor = "X-Forwarded-For"

// Finder extracts the client address from a request.
type Finder struct {
	// TrustForwardedFor makes the finder prefer the last hop recorded in
	// X-Forwarded-For, which is the address seen by our own edge proxy.
	TrustForwardedFor bool
}

func NewFinder(trustForwardedFor bool) *Finder {
	return &Finder{TrustForwardedFor: trustForwardedFor}
}

// ClientAddress returns the caller address or "" when none is known.
func (f *Finder) ClientAddress(r *http.Request) string {
	if r == nil {
		return ""
	}

	if f.TrustForwardedFor {
		if values, ok := r.Header[headerForwardedFor]; ok {
			return lastForwarded(values)
		}
	}

	return remoteHost(r.RemoteAddr)
}

// lastForwarded takes the last hop of the first X-Forwarded-For line.
func lastForwarded(values []string) string {
	if len(values) == 0 {
		return ""
	}
	list := strings.Split(values[0], ",")
	return strings.TrimSpace(list[len(list)-1])
}

func remoteHost(remoteAddr string) string {
	remoteAddr = strings.TrimSpace(remoteAddr)
	if remoteAddr == "" {
		return ""
	}
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return strings.Trim(remoteAddr, "[]")
	}
	return host
}
