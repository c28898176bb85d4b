package handler

import (
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Transport applies the breaker to outgoing client calls.
type Transport struct {
	breaker Breaker
	base    http.RoundTripper
}

// NewTransport wraps base, or http.DefaultTransport when base is nil.
func NewTransport(breaker Breaker, base http.RoundTripper) *Transport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &Transport{breaker: breaker, base: base}
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if open := t.breaker.FindOpenCircuit(req); open != nil {
		code := rejectStatus(open)
		resp := &http.Response{
			Status:        fmt.Sprintf("%d %s", code, http.StatusText(code)),
			StatusCode:    code,
			Proto:         "HTTP/1.1",
			ProtoMajor:    1,
			ProtoMinor:    1,
			Header:        make(http.Header),
			Body:          io.NopCloser(strings.NewReader("")),
			ContentLength: 0,
			Request:       req,
		}
		reject(resp.Header, open, t.breaker.Now())
		return resp, nil
	}

	resp, err := t.base.RoundTrip(req)
	if err != nil {
		// transport failures count as a bad gateway
		t.breaker.CheckCircuit(req, http.StatusBadGateway)
		return nil, err
	}

	t.breaker.CheckCircuit(req, resp.StatusCode)
	return resp, nil
}
