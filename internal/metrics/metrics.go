package metrics

import (
	"sync"
	"time"

	"github.com/angeloszaimis/circuit-gate/internal/event"
)

const recentEvents = 100

type Metrics struct {
	mutex        sync.RWMutex
	totals       map[event.Kind]int64
	rules        map[string]map[event.Kind]int64
	lastOpened   map[string]time.Time
	openCircuits map[string]time.Time
	recent       []Record
	startTime    time.Time
}

type Snapshot struct {
	Uptime       time.Duration          `json:"uptime"`
	Totals       map[string]int64       `json:"totals"`
	Rules        map[string]RuleMetrics `json:"rules"`
	OpenCircuits int                    `json:"open_circuits"`
	Dropped      int64                  `json:"dropped"`
	Recent       []Record               `json:"recent"`
}

type RuleMetrics struct {
	Opened       int64     `json:"opened"`
	Closed       int64     `json:"closed"`
	LowWatermark int64     `json:"low_watermark"`
	Errors       int64     `json:"errors"`
	LastOpened   time.Time `json:"last_opened,omitzero"`
}

// Record is the serializable form of an event.
type Record struct {
	Kind      string    `json:"kind"`
	Time      time.Time `json:"time"`
	Rule      string    `json:"rule,omitempty"`
	Key       string    `json:"key,omitempty"`
	Count     int       `json:"count,omitempty"`
	OpenUntil time.Time `json:"open_until,omitzero"`
	Message   string    `json:"message,omitempty"`
	Error     string    `json:"error,omitempty"`
}

func NewMetrics() *Metrics {
	return &Metrics{
		totals:       make(map[event.Kind]int64),
		rules:        make(map[string]map[event.Kind]int64),
		lastOpened:   make(map[string]time.Time),
		openCircuits: make(map[string]time.Time),
		startTime:    time.Now(),
	}
}

// Record folds e into the counters and returns the number of circuits
// currently reported open. A circuit stays open until its closed event;
// reloading the rules leaves the breaker state untouched.
func (m *Metrics) Record(e event.Event) int {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.totals[e.Kind]++
	if e.Rule != "" {
		if m.rules[e.Rule] == nil {
			m.rules[e.Rule] = make(map[event.Kind]int64)
		}
		m.rules[e.Rule][e.Kind]++
	}

	switch e.Kind {
	case event.KindCircuitOpened:
		m.openCircuits[e.Key] = e.OpenUntil
		m.lastOpened[e.Rule] = e.Time
	case event.KindCircuitClosed:
		delete(m.openCircuits, e.Key)
	}

	m.recent = append(m.recent, toRecord(e))
	if len(m.recent) > recentEvents {
		m.recent = m.recent[1:]
	}

	return len(m.openCircuits)
}

func (m *Metrics) Snapshot() Snapshot {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	snap := Snapshot{
		Uptime:       time.Since(m.startTime),
		Totals:       make(map[string]int64, len(event.Kinds)),
		Rules:        make(map[string]RuleMetrics, len(m.rules)),
		OpenCircuits: len(m.openCircuits),
		Recent:       make([]Record, len(m.recent)),
	}
	copy(snap.Recent, m.recent)

	for _, k := range event.Kinds {
		snap.Totals[string(k)] = m.totals[k]
	}
	for name, counts := range m.rules {
		snap.Rules[name] = RuleMetrics{
			Opened:       counts[event.KindCircuitOpened],
			Closed:       counts[event.KindCircuitClosed],
			LowWatermark: counts[event.KindLowWatermark],
			Errors:       counts[event.KindUnexpectedError],
			LastOpened:   m.lastOpened[name],
		}
	}

	return snap
}

func toRecord(e event.Event) Record {
	r := Record{
		Kind:      string(e.Kind),
		Time:      e.Time,
		Rule:      e.Rule,
		Key:       e.Key,
		Count:     e.Count,
		OpenUntil: e.OpenUntil,
		Message:   e.Message,
	}
	if e.Err != nil {
		r.Error = e.Err.Error()
	}
	return r
}
