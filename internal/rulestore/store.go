package rulestore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/angeloszaimis/circuit-gate/internal/event"
	"github.com/angeloszaimis/circuit-gate/internal/rule"
)

var (
	ErrNoSource        = errors.New("rulestore: no rule source")
	ErrInvalidInterval = errors.New("rulestore: refresh interval must be positive")
)

// Snapshot is one immutable generation of the rule list.
type Snapshot struct {
	Rules      []rule.Rule
	Generation uint64
	LoadedAt   time.Time
}

// Store holds the current Snapshot and refreshes it from a Source.
type Store struct {
	source       Source
	host         string
	strategy     Strategy
	events       event.Logger
	fetchTimeout time.Duration
	validate     bool

	current atomic.Pointer[Snapshot]

	loadMu     sync.Mutex
	generation uint64
	reloads    singleflight.Group

	cancel    context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once
}

type Option func(*Store)

func WithEventLogger(l event.Logger) Option {
	return func(s *Store) { s.events = event.OrNop(l) }
}

// WithHost overrides the host identifier passed to the source.
func WithHost(host string) Option {
	return func(s *Store) { s.host = host }
}

// WithFetchTimeout bounds every call to the source.
func WithFetchTimeout(d time.Duration) Option {
	return func(s *Store) { s.fetchTimeout = d }
}

// WithoutValidation publishes rule sets as-is.
func WithoutValidation() Option {
	return func(s *Store) { s.validate = false }
}

// New loads the first snapshot synchronously and, for a periodic strategy,
// starts the refresh loop. The loop stops when ctx is cancelled or Close is
// called.
func New(ctx context.Context, source Source, strategy Strategy, opts ...Option) (*Store, error) {
	if source == nil {
		return nil, ErrNoSource
	}
	if strategy.Refresh && strategy.Interval <= 0 {
		return nil, ErrInvalidInterval
	}

	host, _ := os.Hostname()
	s := &Store{
		source:   source,
		host:     host,
		strategy: strategy,
		events:   event.Nop(),
		validate: true,
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	if _, err := s.load(ctx); err != nil {
		return nil, fmt.Errorf("initial rule load: %w", err)
	}

	if !strategy.Refresh {
		close(s.done)
		s.cancel = func() {}
		return s, nil
	}

	loopCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	go s.run(loopCtx)

	return s, nil
}

// Current returns the latest published snapshot. It never blocks.
func (s *Store) Current() *Snapshot {
	return s.current.Load()
}

// Rules returns the rule list of the current snapshot.
func (s *Store) Rules() []rule.Rule {
	return s.current.Load().Rules
}

// Host is the identifier the source is queried with.
func (s *Store) Host() string {
	return s.host
}

// Reload fetches the rules now, outside the regular schedule. Concurrent
// calls share a single fetch.
func (s *Store) Reload(ctx context.Context) (*Snapshot, error) {
	v, err, _ := s.reloads.Do("reload", func() (interface{}, error) {
		return s.load(ctx)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Snapshot), nil
}

// Close stops the refresh loop and waits for it to exit.
func (s *Store) Close() {
	s.closeOnce.Do(func() {
		s.cancel()
		<-s.done
	})
}

func (s *Store) run(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.strategy.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// failures are reported through the event logger; the previous
			// snapshot stays current
			_, _ = s.load(ctx)
		}
	}
}

func (s *Store) load(ctx context.Context) (*Snapshot, error) {
	s.loadMu.Lock()
	defer s.loadMu.Unlock()

	if s.fetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.fetchTimeout)
		defer cancel()
	}

	rules, err := s.read(ctx)
	if err == nil && s.validate {
		err = rule.ValidateAll(rules)
	}
	if err != nil {
		s.events.Log(event.Event{
			Kind:    event.KindUnexpectedError,
			Time:    time.Now(),
			Message: "rule load failed",
			Err:     err,
		})
		return nil, err
	}

	s.generation++
	snap := &Snapshot{
		Rules:      slices.Clone(rules),
		Generation: s.generation,
		LoadedAt:   time.Now(),
	}
	s.current.Store(snap)

	s.events.Log(event.Event{
		Kind:    event.KindRulesLoaded,
		Time:    snap.LoadedAt,
		Count:   len(snap.Rules),
		Message: fmt.Sprintf("Rules loaded at %s", snap.LoadedAt.Format(time.DateTime)),
	})

	return snap, nil
}

// read calls the source, turning a panic into an error so a misbehaving
// source cannot take the refresh loop down.
func (s *Store) read(ctx context.Context) (rules []rule.Rule, err error) {
	defer func() {
		if p := recover(); p != nil {
			rules, err = nil, fmt.Errorf("rule source panicked: %v", p)
		}
	}()
	return s.source.ReadRules(ctx, s.host)
}
