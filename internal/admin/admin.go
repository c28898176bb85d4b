package admin

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/angeloszaimis/circuit-gate/internal/backend"
	"github.com/angeloszaimis/circuit-gate/internal/circuitbreaker"
	"github.com/angeloszaimis/circuit-gate/internal/rule"
	"github.com/angeloszaimis/circuit-gate/internal/rulestore"
)

// RuleStore is the part of rulestore.Store the admin endpoints need.
type RuleStore interface {
	Current() *rulestore.Snapshot
	Reload(ctx context.Context) (*rulestore.Snapshot, error)
}

type Handler struct {
	logger   *slog.Logger
	engine   *circuitbreaker.Engine
	store    RuleStore
	upstream *backend.Backend
}

type Circuit struct {
	Key        string    `json:"key"`
	Rule       string    `json:"rule"`
	State      string    `json:"state"`
	Count      int       `json:"count"`
	OpenUntil  time.Time `json:"open_until,omitzero"`
	RetryAfter int       `json:"retry_after,omitempty"`
	LastUpdate time.Time `json:"last_update"`
}

type RuleSet struct {
	Generation uint64      `json:"generation"`
	LoadedAt   time.Time   `json:"loaded_at"`
	Rules      []rule.Rule `json:"rules"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// New builds the admin handler. upstream may be nil.
func New(logger *slog.Logger, engine *circuitbreaker.Engine, store RuleStore, upstream *backend.Backend) *Handler {
	return &Handler{
		logger:   logger,
		engine:   engine,
		store:    store,
		upstream: upstream,
	}
}

// Register mounts the admin routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /admin/circuits", h.Circuits)
	mux.HandleFunc("GET /admin/rules", h.Rules)
	mux.HandleFunc("POST /admin/rules/reload", h.Reload)
	if h.upstream != nil {
		mux.HandleFunc("GET /admin/upstream", h.Upstream)
	}
}

// Circuits lists every known circuit sorted by key.
func (h *Handler) Circuits(w http.ResponseWriter, r *http.Request) {
	now := h.engine.Now()
	circuits := make([]Circuit, 0, h.engine.Table().Len())

	h.engine.Table().Range(func(key string, c *circuitbreaker.Context) bool {
		item := Circuit{
			Key:        key,
			State:      c.State().String(),
			Count:      c.Count,
			LastUpdate: c.LastUpdate,
		}
		if c.Rule != nil {
			item.Rule = c.Rule.Name
		}
		if c.Open {
			item.OpenUntil = c.OpenUntil
			item.RetryAfter = c.RetryAfter(now)
		}
		circuits = append(circuits, item)
		return true
	})

	slices.SortFunc(circuits, func(a, b Circuit) int {
		return strings.Compare(a.Key, b.Key)
	})

	h.writeJSON(w, http.StatusOK, circuits)
}

func (h *Handler) Rules(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, toRuleSet(h.store.Current()))
}

// Reload fetches rules now. A failed fetch keeps the current rules.
func (h *Handler) Reload(w http.ResponseWriter, r *http.Request) {
	snap, err := h.store.Reload(r.Context())
	if err != nil {
		h.logger.Warn("Rule reload failed", slog.String("error", err.Error()))
		h.writeJSON(w, http.StatusBadGateway, errorResponse{Error: err.Error()})
		return
	}

	h.logger.Info("Rules reloaded",
		slog.Uint64("generation", snap.Generation),
		slog.Int("rules", len(snap.Rules)))
	h.writeJSON(w, http.StatusOK, toRuleSet(snap))
}

func (h *Handler) Upstream(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.upstream.Stats())
}

func toRuleSet(snap *rulestore.Snapshot) RuleSet {
	if snap == nil {
		return RuleSet{Rules: []rule.Rule{}}
	}
	rules := snap.Rules
	if rules == nil {
		rules = []rule.Rule{}
	}
	return RuleSet{
		Generation: snap.Generation,
		LoadedAt:   snap.LoadedAt,
		Rules:      rules,
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("Failed to encode admin response", slog.String("error", err.Error()))
	}
}
