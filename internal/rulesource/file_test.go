package rulesource_test

import (
	"context"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/circuit-gate/internal/rule"
	"github.com/angeloszaimis/circuit-gate/internal/rulesource"
)

const yamlRules = `
rules:
  - name: per-client
    active: true
    applicability_scope: per_client
    route_scope: 1
    applicable_servers: [gate-1, gate-2]
    black_list: ["10.0.0.9"]
    limit:
      status_code: 503
      low_watermark: 2
      high_watermark: 5
      breaker_interval_seconds: 30
    enforcement:
      response_code: 429
      custom_headers:
        X-Circuit: open
  - name: global
    active: false
    limit:
      low_watermark: 1
      high_watermark: 1
      breaker_interval_seconds: 5
    enforcement:
      response_code: 503
`

var _ = Describe("File", func() {
	var dir string

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
	})

	write := func(name, content string) string {
		path := filepath.Join(dir, name)
		Expect(os.WriteFile(path, []byte(content), 0o600)).To(Succeed())
		return path
	}

	It("should decode a YAML rule file", func() {
		rules, err := rulesource.NewFile(write("rules.yaml", yamlRules)).ReadRules(context.Background(), "")
		Expect(err).NotTo(HaveOccurred())
		Expect(rules).To(HaveLen(2))

		r := rules[0]
		Expect(r.Name).To(Equal("per-client"))
		Expect(r.Active).To(BeTrue())
		Expect(r.ApplicabilityScope).To(Equal(rule.ScopePerClient))
		Expect(r.RouteScope).To(Equal(rule.RoutePerRoute))
		Expect(r.ApplicableServers).To(Equal([]string{"gate-1", "gate-2"}))
		Expect(r.BlackList).To(Equal([]string{"10.0.0.9"}))
		Expect(r.Limit.StatusCode).NotTo(BeNil())
		Expect(*r.Limit.StatusCode).To(Equal(503))
		Expect(r.Limit.HighWatermark).To(Equal(5))
		Expect(r.Enforcement.ResponseCode).To(Equal(429))
		Expect(r.Enforcement.CustomHeaders).To(HaveLen(1))

		Expect(rules[1].Active).To(BeFalse())
		Expect(rules[1].Limit.StatusCode).To(BeNil())
		Expect(rule.ValidateAll(rules)).To(Succeed())
	})

	It("should decode a JSON rule file", func() {
		path := write("rules.json", `{"rules":[{"name":"j","active":true,"route_scope":"per_route",
			"limit":{"low_watermark":1,"high_watermark":2,"breaker_interval_seconds":1},
			"enforcement":{"response_code":503}}]}`)

		rules, err := rulesource.NewFile(path).ReadRules(context.Background(), "")
		Expect(err).NotTo(HaveOccurred())
		Expect(rules).To(HaveLen(1))
		Expect(rules[0].RouteScope).To(Equal(rule.RoutePerRoute))
	})

	It("should return no rules when the key is absent", func() {
		rules, err := rulesource.NewFile(write("empty.yaml", "other: 1\n")).ReadRules(context.Background(), "")
		Expect(err).NotTo(HaveOccurred())
		Expect(rules).To(BeEmpty())
	})

	It("should pick up edits on the next read", func() {
		path := write("rules.yaml", yamlRules)
		src := rulesource.NewFile(path)

		_, err := src.ReadRules(context.Background(), "")
		Expect(err).NotTo(HaveOccurred())

		write("rules.yaml", "rules: []\n")
		rules, err := src.ReadRules(context.Background(), "")
		Expect(err).NotTo(HaveOccurred())
		Expect(rules).To(BeEmpty())
	})

	It("should fail for a missing file", func() {
		_, err := rulesource.NewFile(filepath.Join(dir, "missing.yaml")).ReadRules(context.Background(), "")
		Expect(err).To(HaveOccurred())
	})

	It("should fail for an unknown scope", func() {
		path := write("bad.yaml", "rules:\n  - name: x\n    applicability_scope: sometimes\n")
		_, err := rulesource.NewFile(path).ReadRules(context.Background(), "")
		Expect(err).To(MatchError(ContainSubstring("unknown applicability scope")))
	})

	It("should honour a cancelled context", func() {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := rulesource.NewFile(write("rules.yaml", yamlRules)).ReadRules(ctx, "")
		Expect(err).To(MatchError(context.Canceled))
	})
})
