package handler_test

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/circuit-gate/internal/address"
	"github.com/angeloszaimis/circuit-gate/internal/circuitbreaker"
	"github.com/angeloszaimis/circuit-gate/internal/handler"
	"github.com/angeloszaimis/circuit-gate/internal/rule"
)

type staticRules []rule.Rule

func (s staticRules) Rules() []rule.Rule { return s }

func demoRule() rule.Rule {
	return rule.Rule{
		Name:   "rule1",
		Active: true,
		Limit: rule.Limit{
			LowWatermark:           1,
			HighWatermark:          2,
			BreakerIntervalSeconds: 3,
		},
		Enforcement: rule.Enforcement{
			ResponseCode:  http.StatusServiceUnavailable,
			CustomHeaders: map[string]string{"X-Circuit": "open"},
		},
	}
}

// demoUpstream fails when called with ?text=err.
func demoUpstream() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("text") == "err" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte("ok"))
	})
}

var _ = Describe("BreakerHandler", func() {
	var (
		now      time.Time
		engine   *circuitbreaker.Engine
		h        *handler.BreakerHandler
		upstream http.Handler
		calls    int
	)

	serve := func(target string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
		return w
	}

	BeforeEach(func() {
		now = time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
		calls = 0
		demo := demoUpstream()
		upstream = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls++
			demo.ServeHTTP(w, r)
		})
		engine = circuitbreaker.NewEngine(staticRules{demoRule()}, address.NewFinder(false),
			circuitbreaker.WithClock(func() time.Time { return now }))
		h = handler.New(slog.New(slog.NewTextHandler(io.Discard, nil)), engine, upstream)
	})

	It("should forward while the circuit is closed", func() {
		w := serve("/api/demo?text=hi")
		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(w.Body.String()).To(Equal("ok"))
	})

	It("should open after repeated failures and reject without forwarding", func() {
		Expect(serve("/api/demo?text=err").Code).To(Equal(http.StatusInternalServerError))
		Expect(serve("/api/demo?text=err").Code).To(Equal(http.StatusInternalServerError))

		w := serve("/api/demo?text=hi")
		Expect(w.Code).To(Equal(http.StatusServiceUnavailable))
		Expect(w.Header().Get("Retry-After")).To(Equal("3"))
		Expect(w.Header().Get("X-Circuit")).To(Equal("open"))
		Expect(w.Body.Len()).To(BeZero())
		Expect(calls).To(Equal(2))
	})

	It("should round Retry-After up and forward again after the interval", func() {
		serve("/api/demo?text=err")
		serve("/api/demo?text=err")

		now = now.Add(1500 * time.Millisecond)
		Expect(serve("/").Header().Get("Retry-After")).To(Equal("2"))

		now = now.Add(2 * time.Second)
		Expect(serve("/api/demo?text=hi").Code).To(Equal(http.StatusOK))
		Expect(calls).To(Equal(3))
	})

	It("should keep rejections out of the info log", func() {
		var buf bytes.Buffer
		h = handler.New(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo})), engine, upstream)
		serve("/api/demo?text=err")
		serve("/api/demo?text=err")

		Expect(serve("/").Code).To(Equal(http.StatusServiceUnavailable))
		Expect(buf.String()).NotTo(ContainSubstring("Rejected request"))
	})

	It("should answer 503 when the rule carries an unusable response code", func() {
		r := demoRule()
		r.Enforcement.ResponseCode = 0
		engine = circuitbreaker.NewEngine(staticRules{r}, address.NewFinder(false),
			circuitbreaker.WithClock(func() time.Time { return now }))
		h = handler.New(slog.New(slog.NewTextHandler(io.Discard, nil)), engine, upstream)
		serve("/api/demo?text=err")
		serve("/api/demo?text=err")

		w := serve("/")
		Expect(w.Code).To(Equal(http.StatusServiceUnavailable))
		Expect(w.Header().Get("X-Circuit")).To(Equal("open"))
	})

	It("should record the implicit 200 of a handler that only writes a body", func() {
		serve("/api/demo?text=err")
		serve("/api/demo?text=hi")

		c, ok := engine.Table().Get("rule1__")
		Expect(ok).To(BeTrue())
		Expect(c.Count).To(BeZero())
	})
})

var _ = Describe("Transport", func() {
	var (
		now    time.Time
		server *httptest.Server
		client *http.Client
		engine *circuitbreaker.Engine
	)

	BeforeEach(func() {
		now = time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
		server = httptest.NewServer(demoUpstream())
		engine = circuitbreaker.NewEngine(staticRules{demoRule()}, address.NewFinder(false),
			circuitbreaker.WithClock(func() time.Time { return now }))
		client = &http.Client{Transport: handler.NewTransport(engine, nil)}
	})

	AfterEach(func() {
		server.Close()
	})

	get := func(path string) *http.Response {
		resp, err := client.Get(server.URL + path)
		Expect(err).NotTo(HaveOccurred())
		_, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		return resp
	}

	It("should short-circuit once open", func() {
		Expect(get("/api/demo?text=err").StatusCode).To(Equal(http.StatusInternalServerError))
		Expect(get("/api/demo?text=err").StatusCode).To(Equal(http.StatusInternalServerError))

		resp := get("/api/demo?text=hi")
		Expect(resp.StatusCode).To(Equal(http.StatusServiceUnavailable))
		Expect(resp.Status).To(Equal("503 Service Unavailable"))
		Expect(resp.Header.Get("Retry-After")).To(Equal("3"))
		Expect(resp.Header.Get("X-Circuit")).To(Equal("open"))
	})

	It("should answer 503 when the rule carries an unusable response code", func() {
		r := demoRule()
		r.Enforcement.ResponseCode = 42
		engine = circuitbreaker.NewEngine(staticRules{r}, address.NewFinder(false),
			circuitbreaker.WithClock(func() time.Time { return now }))
		client = &http.Client{Transport: handler.NewTransport(engine, nil)}
		get("/api/demo?text=err")
		get("/api/demo?text=err")

		resp := get("/")
		Expect(resp.StatusCode).To(Equal(http.StatusServiceUnavailable))
		Expect(resp.Status).To(Equal("503 Service Unavailable"))
	})

	It("should count transport errors as bad gateway and return them", func() {
		server.Close()

		for i := 0; i < 2; i++ {
			_, err := client.Get(server.URL + "/")
			Expect(err).To(HaveOccurred())
		}

		resp := get("/")
		Expect(resp.StatusCode).To(Equal(http.StatusServiceUnavailable))
	})
})
