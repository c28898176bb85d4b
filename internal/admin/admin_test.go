package admin_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/circuit-gate/internal/address"
	"github.com/angeloszaimis/circuit-gate/internal/admin"
	"github.com/angeloszaimis/circuit-gate/internal/backend"
	"github.com/angeloszaimis/circuit-gate/internal/circuitbreaker"
	"github.com/angeloszaimis/circuit-gate/internal/rule"
	"github.com/angeloszaimis/circuit-gate/internal/rulestore"
)

type fakeStore struct {
	snap      *rulestore.Snapshot
	reloadErr error
	reloads   int
}

func (f *fakeStore) Current() *rulestore.Snapshot { return f.snap }

func (f *fakeStore) Rules() []rule.Rule { return f.snap.Rules }

func (f *fakeStore) Reload(context.Context) (*rulestore.Snapshot, error) {
	f.reloads++
	if f.reloadErr != nil {
		return nil, f.reloadErr
	}
	f.snap = &rulestore.Snapshot{Rules: f.snap.Rules, Generation: f.snap.Generation + 1, LoadedAt: time.Now()}
	return f.snap, nil
}

var _ = Describe("Admin", func() {
	var (
		now    time.Time
		store  *fakeStore
		engine *circuitbreaker.Engine
		mux    *http.ServeMux
	)

	do := func(method, target string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, httptest.NewRequest(method, target, nil))
		return w
	}

	BeforeEach(func() {
		now = time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)
		store = &fakeStore{snap: &rulestore.Snapshot{
			Generation: 1,
			LoadedAt:   now,
			Rules: []rule.Rule{{
				Name:        "rule1",
				Active:      true,
				Limit:       rule.Limit{LowWatermark: 1, HighWatermark: 1, BreakerIntervalSeconds: 10},
				Enforcement: rule.Enforcement{ResponseCode: http.StatusServiceUnavailable},
			}},
		}}
		engine = circuitbreaker.NewEngine(store, address.NewFinder(false),
			circuitbreaker.WithClock(func() time.Time { return now }))

		u, _ := url.Parse("http://upstream.invalid")
		upstream := backend.New(u)

		mux = http.NewServeMux()
		admin.New(slog.New(slog.NewTextHandler(io.Discard, nil)), engine, store, upstream).Register(mux)
	})

	It("should list circuits", func() {
		engine.CheckCircuit(httptest.NewRequest(http.MethodGet, "/", nil), http.StatusInternalServerError)

		w := do(http.MethodGet, "/admin/circuits")
		Expect(w.Code).To(Equal(http.StatusOK))

		var circuits []admin.Circuit
		Expect(json.Unmarshal(w.Body.Bytes(), &circuits)).To(Succeed())
		Expect(circuits).To(HaveLen(1))
		Expect(circuits[0].Key).To(Equal("rule1__"))
		Expect(circuits[0].Rule).To(Equal("rule1"))
		Expect(circuits[0].State).To(Equal("OPEN"))
		Expect(circuits[0].RetryAfter).To(Equal(10))
	})

	It("should return an empty circuit list as an array", func() {
		w := do(http.MethodGet, "/admin/circuits")
		Expect(w.Body.String()).To(Equal("[]\n"))
	})

	It("should show the current rules", func() {
		w := do(http.MethodGet, "/admin/rules")
		Expect(w.Code).To(Equal(http.StatusOK))

		var set admin.RuleSet
		Expect(json.Unmarshal(w.Body.Bytes(), &set)).To(Succeed())
		Expect(set.Generation).To(Equal(uint64(1)))
		Expect(set.Rules).To(HaveLen(1))
	})

	It("should reload rules", func() {
		w := do(http.MethodPost, "/admin/rules/reload")
		Expect(w.Code).To(Equal(http.StatusOK))

		var set admin.RuleSet
		Expect(json.Unmarshal(w.Body.Bytes(), &set)).To(Succeed())
		Expect(set.Generation).To(Equal(uint64(2)))
		Expect(store.reloads).To(Equal(1))
	})

	It("should report reload failures", func() {
		store.reloadErr = errors.New("source down")
		w := do(http.MethodPost, "/admin/rules/reload")
		Expect(w.Code).To(Equal(http.StatusBadGateway))
		Expect(w.Body.String()).To(ContainSubstring("source down"))
	})

	It("should only reload on POST", func() {
		w := do(http.MethodGet, "/admin/rules/reload")
		Expect(w.Code).To(Equal(http.StatusMethodNotAllowed))
	})

	It("should show upstream stats", func() {
		w := do(http.MethodGet, "/admin/upstream")
		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(w.Body.String()).To(ContainSubstring("http://upstream.invalid"))
	})
})
