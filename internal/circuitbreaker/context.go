package circuitbreaker

import (
	"math"
	"time"

	"github.com/angeloszaimis/circuit-gate/internal/rule"
)

type State int

const (
	StateClosed State = iota // Requests pass through
	StateOpen                // Requests are rejected
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "CLOSED"
	case StateOpen:
		return "OPEN"
	default:
		return "UNKNOWN"
	}
}

// Context is the state of one circuit. Values stored in a Table are never
// modified after publication; every change stores a new copy.
type Context struct {
	Rule       *rule.Rule
	Key        string
	Count      int
	Open       bool
	OpenUntil  time.Time
	LastUpdate time.Time
}

func (c *Context) State() State {
	if c.Open {
		return StateOpen
	}
	return StateClosed
}

// Remaining is the cooldown left at now, zero once expired or closed.
func (c *Context) Remaining(now time.Time) time.Duration {
	if !c.Open || !now.Before(c.OpenUntil) {
		return 0
	}
	return c.OpenUntil.Sub(now)
}

// RetryAfter is Remaining rounded up to whole seconds.
func (c *Context) RetryAfter(now time.Time) int {
	return int(math.Ceil(c.Remaining(now).Seconds()))
}

func (c *Context) clone() *Context {
	cp := *c
	return &cp
}
