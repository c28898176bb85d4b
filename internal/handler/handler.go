package handler

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/angeloszaimis/circuit-gate/internal/circuitbreaker"
)

const headerRetryAfter = "Retry-After"

// Breaker is the subset of the engine used around a forwarded call.
type Breaker interface {
	FindOpenCircuit(r *http.Request) *circuitbreaker.Context
	CheckCircuit(r *http.Request, statusCode int)
	Now() time.Time
}

type BreakerHandler struct {
	logger  *slog.Logger
	breaker Breaker
	next    http.Handler
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode  int
	wroteHeader bool
}

func New(logger *slog.Logger, breaker Breaker, next http.Handler) *BreakerHandler {
	return &BreakerHandler{
		logger:  logger,
		breaker: breaker,
		next:    next,
	}
}

func (h *BreakerHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if open := h.breaker.FindOpenCircuit(r); open != nil {
		h.logger.Debug("Rejected request, circuit open",
			slog.String("rule", open.Rule.Name),
			slog.String("key", open.Key),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path))
		reject(w.Header(), open, h.breaker.Now())
		w.WriteHeader(rejectStatus(open))
		return
	}

	wrapped := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}
	h.next.ServeHTTP(wrapped, r)

	h.breaker.CheckCircuit(r, wrapped.statusCode)
}

// reject fills the headers of a synthetic open-circuit response.
func reject(header http.Header, open *circuitbreaker.Context, now time.Time) {
	for name, value := range open.Rule.Enforcement.CustomHeaders {
		header.Set(name, value)
	}
	header.Set(headerRetryAfter, strconv.Itoa(open.RetryAfter(now)))
}

// rejectStatus is the rule's response code, or 503 when the rule carries
// something net/http cannot write.
func rejectStatus(open *circuitbreaker.Context) int {
	code := open.Rule.Enforcement.ResponseCode
	if code < 100 || code > 599 {
		return http.StatusServiceUnavailable
	}
	return code
}

func (r *statusRecorder) WriteHeader(code int) {
	if !r.wroteHeader {
		r.statusCode = code
		r.wroteHeader = true
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	r.wroteHeader = true
	return r.ResponseWriter.Write(b)
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}
