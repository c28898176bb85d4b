package event

import (
	"time"
)

type Kind string

const (
	KindCircuitOpened   Kind = "circuit_opened"
	KindCircuitClosed   Kind = "circuit_closed"
	KindLowWatermark    Kind = "low_watermark"
	KindRulesLoaded     Kind = "rules_loaded"
	KindUnexpectedError Kind = "unexpected_error"
)

// Kinds lists every event kind in a stable order.
var Kinds = []Kind{
	KindCircuitOpened,
	KindCircuitClosed,
	KindLowWatermark,
	KindRulesLoaded,
	KindUnexpectedError,
}

// Event describes something the breaker did or noticed. Rule and Key are
// empty for events that are not tied to a circuit (rules_loaded).
type Event struct {
	Kind      Kind
	Time      time.Time
	Rule      string
	Key       string
	Count     int
	OpenUntil time.Time
	Message   string
	Err       error
}

// Logger receives breaker events. Implementations must not block the caller.
type Logger interface {
	Log(Event)
}

type nop struct{}

func (nop) Log(Event) {}

// Nop returns a Logger that discards everything.
func Nop() Logger {
	return nop{}
}

// OrNop returns l, or a no-op logger when l is nil.
func OrNop(l Logger) Logger {
	if l == nil {
		return nop{}
	}
	return l
}

type multi []Logger

func (m multi) Log(e Event) {
	for _, l := range m {
		l.Log(e)
	}
}

// Multi fans every event out to all non-nil loggers.
func Multi(loggers ...Logger) Logger {
	out := make(multi, 0, len(loggers))
	for _, l := range loggers {
		if l != nil {
			out = append(out, l)
		}
	}
	if len(out) == 0 {
		return nop{}
	}
	if len(out) == 1 {
		return out[0]
	}
	return out
}
