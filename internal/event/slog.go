package event

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/time/rate"
)

// SlogLogger writes events to a structured logger.
type SlogLogger struct {
	logger  *slog.Logger
	limiter *rate.Limiter
}

type SlogOption func(*SlogLogger)

// WithErrorRateLimit throttles unexpected_error records. Lock contention can
// produce one of those per rule per request, which would drown the log.
func WithErrorRateLimit(every time.Duration, burst int) SlogOption {
	return func(s *SlogLogger) {
		s.limiter = rate.NewLimiter(rate.Every(every), burst)
	}
}

func NewSlogLogger(logger *slog.Logger, opts ...SlogOption) *SlogLogger {
	s := &SlogLogger{logger: logger.With(slog.String("component", "breaker"))}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *SlogLogger) Log(e Event) {
	if e.Kind == KindUnexpectedError && s.limiter != nil && !s.limiter.Allow() {
		return
	}

	attrs := []slog.Attr{slog.String("event", string(e.Kind))}
	if e.Rule != "" {
		attrs = append(attrs, slog.String("rule", e.Rule))
	}
	if e.Key != "" {
		attrs = append(attrs, slog.String("key", e.Key))
	}
	switch e.Kind {
	case KindLowWatermark:
		attrs = append(attrs, slog.Int("count", e.Count))
	case KindCircuitOpened:
		attrs = append(attrs,
			slog.Int("count", e.Count),
			slog.Time("open_until", e.OpenUntil))
	}
	if e.Err != nil {
		attrs = append(attrs, slog.String("error", e.Err.Error()))
	}

	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	s.logger.LogAttrs(context.Background(), levelFor(e.Kind), msg, attrs...)
}

func levelFor(k Kind) slog.Level {
	switch k {
	case KindUnexpectedError:
		return slog.LevelError
	case KindCircuitOpened, KindLowWatermark:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}
