package circuitbreaker

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/angeloszaimis/circuit-gate/internal/event"
	"github.com/angeloszaimis/circuit-gate/internal/rule"
)

const (
	DefaultLockTimeout = time.Second
	DefaultStaleAfter  = 5 * time.Minute
)

var ErrLockTimeout = errors.New("circuitbreaker: timed out waiting for state lock")

// RuleSet supplies the current rule list. The returned slice must not be
// modified by the caller or the supplier.
type RuleSet interface {
	Rules() []rule.Rule
}

// Engine evaluates rules against requests and responses.
type Engine struct {
	rules  RuleSet
	addr   rule.AddressSource
	table  *Table
	events event.Logger

	// serializes CheckCircuit mutations; a weighted semaphore gives us a
	// context-aware acquire, which sync.Mutex does not
	lock        *semaphore.Weighted
	lockTimeout time.Duration
	staleAfter  time.Duration
	hostname    string
	now         func() time.Time
}

type Option func(*Engine)

func WithEventLogger(l event.Logger) Option {
	return func(e *Engine) { e.events = event.OrNop(l) }
}

// WithTable shares an existing table, e.g. for admin inspection.
func WithTable(t *Table) Option {
	return func(e *Engine) {
		if t != nil {
			e.table = t
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithHostname sets the identifier matched against ApplicableServers.
func WithHostname(host string) Option {
	return func(e *Engine) { e.hostname = host }
}

// WithLockTimeout bounds the wait for the state lock. Non-positive values
// keep the default.
func WithLockTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.lockTimeout = d
		}
	}
}

// WithStaleAfter sets how long a context may go without updates before
// CheckCircuit starts it over. Zero disables the reset.
func WithStaleAfter(d time.Duration) Option {
	return func(e *Engine) { e.staleAfter = d }
}

func NewEngine(rules RuleSet, addr rule.AddressSource, opts ...Option) *Engine {
	host, _ := os.Hostname()
	e := &Engine{
		rules:       rules,
		addr:        addr,
		table:       NewTable(),
		events:      event.Nop(),
		lock:        semaphore.NewWeighted(1),
		lockTimeout: DefaultLockTimeout,
		staleAfter:  DefaultStaleAfter,
		hostname:    host,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) Table() *Table {
	return e.table
}

func (e *Engine) Hostname() string {
	return e.hostname
}

// Now is the engine clock.
func (e *Engine) Now() time.Time {
	return e.now()
}

// FindOpenCircuit returns the first open circuit, in rule order, that applies
// to req, or nil when the request may be forwarded. Expired circuits met on
// the way are closed.
func (e *Engine) FindOpenCircuit(req *http.Request) *Context {
	rules := e.currentRules()
	if len(rules) == 0 {
		return nil
	}

	now := e.now()
	addr := &callAddress{src: e.addr}
	for i := range rules {
		r := &rules[i]
		if !r.Active {
			continue
		}
		if c := e.findOpen(r, req, addr, now); c != nil {
			return c
		}
	}
	return nil
}

func (e *Engine) findOpen(r *rule.Rule, req *http.Request, addr *callAddress, now time.Time) (found *Context) {
	defer func() {
		if p := recover(); p != nil {
			e.unexpected(r, "", fmt.Errorf("panic finding open circuit: %v", p))
			found = nil
		}
	}()

	// black-listed callers are rejected without touching the table
	if len(r.BlackList) > 0 && r.IsBlacklisted(addr.ClientAddress(req)) {
		return &Context{
			Rule:       r,
			Key:        rule.Key(r, req, addr),
			Open:       true,
			OpenUntil:  now.Add(r.Limit.BreakerInterval()),
			LastUpdate: now,
		}
	}

	key := rule.Key(r, req, addr)
	c, ok := e.table.Get(key)
	if !ok || !c.Open {
		return nil
	}
	if now.Before(c.OpenUntil) {
		return c
	}

	closed := c.clone()
	closed.Open = false
	closed.Count = 0
	// losing the swap means a concurrent writer already replaced the entry
	if e.table.CompareAndSwap(key, c, closed) {
		e.events.Log(event.Event{
			Kind:    event.KindCircuitClosed,
			Time:    now,
			Rule:    r.Name,
			Key:     key,
			Message: fmt.Sprintf("Circuit %s closed", key),
		})
	}
	return nil
}

// CheckCircuit records the upstream status for req against every active rule.
// Faults in one rule are reported and never affect the others.
func (e *Engine) CheckCircuit(req *http.Request, statusCode int) {
	rules := e.currentRules()
	if len(rules) == 0 {
		return
	}

	addr := &callAddress{src: e.addr}
	for i := range rules {
		r := &rules[i]
		if !r.Active {
			continue
		}
		e.check(r, req, statusCode, addr)
	}
}

func (e *Engine) check(r *rule.Rule, req *http.Request, statusCode int, addr *callAddress) {
	var key string
	defer func() {
		if p := recover(); p != nil {
			e.unexpected(r, key, fmt.Errorf("panic checking circuit: %v", p))
		}
	}()

	if len(r.WhiteList) > 0 && r.IsWhitelisted(addr.ClientAddress(req)) {
		return
	}
	if !r.AppliesToServer(e.hostname) {
		return
	}
	key = rule.Key(r, req, addr)

	ctx, cancel := context.WithTimeout(context.Background(), e.lockTimeout)
	defer cancel()
	if err := e.lock.Acquire(ctx, 1); err != nil {
		e.unexpected(r, key, fmt.Errorf("%w after %s", ErrLockTimeout, e.lockTimeout))
		return
	}
	defer e.lock.Release(1)

	now := e.now()
	var next *Context
	if cur, ok := e.table.Get(key); ok && !e.isStale(cur, now) {
		next = cur.clone()
	} else {
		next = &Context{Key: key}
	}
	next.Rule = r
	next.LastUpdate = now

	if !rule.Matches(r, statusCode) {
		next.Count = 0
		e.table.Upsert(key, next)
		return
	}

	next.Count++
	if next.Count == r.Limit.LowWatermark {
		e.events.Log(event.Event{
			Kind:    event.KindLowWatermark,
			Time:    now,
			Rule:    r.Name,
			Key:     key,
			Count:   next.Count,
			Message: fmt.Sprintf("Circuit %s reached low watermark", key),
		})
	}
	if next.Count >= r.Limit.HighWatermark {
		next.Open = true
		next.OpenUntil = now.Add(r.Limit.BreakerInterval())
		e.events.Log(event.Event{
			Kind:      event.KindCircuitOpened,
			Time:      now,
			Rule:      r.Name,
			Key:       key,
			Count:     next.Count,
			OpenUntil: next.OpenUntil,
			Message:   fmt.Sprintf("Circuit %s opened", key),
		})
	}
	e.table.Upsert(key, next)
}

func (e *Engine) isStale(c *Context, now time.Time) bool {
	return e.staleAfter > 0 && now.Sub(c.LastUpdate) > e.staleAfter
}

func (e *Engine) currentRules() (rules []rule.Rule) {
	if e.rules == nil {
		return nil
	}
	defer func() {
		if p := recover(); p != nil {
			e.unexpected(nil, "", fmt.Errorf("panic reading rules: %v", p))
			rules = nil
		}
	}()
	return e.rules.Rules()
}

func (e *Engine) unexpected(r *rule.Rule, key string, err error) {
	ev := event.Event{
		Kind:    event.KindUnexpectedError,
		Time:    e.now(),
		Key:     key,
		Message: "circuit evaluation failed",
		Err:     err,
	}
	if r != nil {
		ev.Rule = r.Name
	}
	e.events.Log(ev)
}

// callAddress resolves the client address at most once per engine call.
type callAddress struct {
	src      rule.AddressSource
	resolved bool
	value    string
}

func (a *callAddress) ClientAddress(req *http.Request) string {
	if !a.resolved {
		a.resolved = true
		if a.src != nil && req != nil {
			a.value = a.src.ClientAddress(req)
		}
	}
	return a.value
}
