package backend

import (
	"log/slog"
	"net/http"
	"net/http/httputil"
	"net/url"
	"sync"
	"time"
)

// Backend is the upstream the gate protects.
type Backend struct {
	url    *url.URL
	proxy  *httputil.ReverseProxy
	logger *slog.Logger

	mutex            sync.Mutex
	isHealthy        bool
	activeRequests   int
	ewmaResponseTime time.Duration
	hasEWMA          bool
}

// Stats is a point-in-time view of the upstream.
type Stats struct {
	URL              string        `json:"url"`
	Healthy          bool          `json:"healthy"`
	ActiveRequests   int           `json:"active_requests"`
	EWMAResponseTime time.Duration `json:"ewma_response_time_ns"`
}

const ewmaAlpha = 0.2

type Option func(*Backend)

// WithTransport sets the round tripper used to reach the upstream.
func WithTransport(rt http.RoundTripper) Option {
	return func(b *Backend) { b.proxy.Transport = rt }
}

func WithLogger(logger *slog.Logger) Option {
	return func(b *Backend) { b.logger = logger }
}

// New creates a Backend proxying to u.
func New(u *url.URL, opts ...Option) *Backend {
	b := &Backend{
		url:       u,
		proxy:     httputil.NewSingleHostReverseProxy(u),
		logger:    slog.Default(),
		// assumed up until a probe says otherwise
		isHealthy: true,
	}
	b.proxy.ErrorHandler = b.handleError
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Backend) URL() *url.URL {
	return b.url
}

func (b *Backend) IsHealthy() bool {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	return b.isHealthy
}

// SetHealthy records a probe result and reports whether it changed.
func (b *Backend) SetHealthy(healthy bool) (changed bool) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	if b.isHealthy == healthy {
		return false
	}
	b.isHealthy = healthy
	return true
}

// ServeHTTP forwards r upstream.
func (b *Backend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.mutex.Lock()
	b.activeRequests++
	b.mutex.Unlock()

	start := time.Now()
	defer func() {
		b.recordResponse(time.Since(start))
	}()

	b.proxy.ServeHTTP(w, r)
}

func (b *Backend) handleError(w http.ResponseWriter, r *http.Request, err error) {
	b.logger.Warn("Upstream request failed",
		slog.String("upstream", b.url.String()),
		slog.String("path", r.URL.Path),
		slog.String("error", err.Error()))
	w.WriteHeader(http.StatusBadGateway)
}

// recordResponse releases the in-flight slot and folds duration into the
// moving average: ewma = (1 - α) * ewma + α * latest.
func (b *Backend) recordResponse(duration time.Duration) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	if b.activeRequests > 0 {
		b.activeRequests--
	}

	if !b.hasEWMA {
		b.ewmaResponseTime = duration
		b.hasEWMA = true
		return
	}
	b.ewmaResponseTime = time.Duration((1-ewmaAlpha)*float64(b.ewmaResponseTime) + ewmaAlpha*float64(duration))
}

func (b *Backend) Stats() Stats {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	return Stats{
		URL:              b.url.String(),
		Healthy:          b.isHealthy,
		ActiveRequests:   b.activeRequests,
		EWMAResponseTime: b.ewmaResponseTime,
	}
}
