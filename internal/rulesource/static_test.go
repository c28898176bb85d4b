package rulesource_test

import (
	"context"
	"net/http"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/circuit-gate/internal/rule"
	"github.com/angeloszaimis/circuit-gate/internal/rulesource"
	"github.com/angeloszaimis/circuit-gate/internal/rulestore"
)

var (
	_ rulestore.Source = rulesource.Empty{}
	_ rulestore.Source = (*rulesource.Static)(nil)
	_ rulestore.Source = (*rulesource.File)(nil)
	_ rulestore.Source = (*rulesource.HTTP)(nil)
	_ rulestore.Source = (*rulesource.Redis)(nil)
)

var _ = Describe("Empty", func() {
	It("should return an empty list", func() {
		rules, err := rulesource.Empty{}.ReadRules(context.Background(), "host")
		Expect(err).NotTo(HaveOccurred())
		Expect(rules).NotTo(BeNil())
		Expect(rules).To(BeEmpty())
	})
})

var _ = Describe("Static", func() {
	It("should return copies of its rules", func() {
		src := rulesource.NewStatic(rule.Rule{Name: "a"}, rule.Rule{Name: "b"})

		first, err := src.ReadRules(context.Background(), "")
		Expect(err).NotTo(HaveOccurred())
		Expect(first).To(HaveLen(2))
		first[0].Name = "changed"

		second, _ := src.ReadRules(context.Background(), "")
		Expect(second[0].Name).To(Equal("a"))
	})

	It("should provide a valid demo rule", func() {
		rules, err := rulesource.Demo().ReadRules(context.Background(), "")
		Expect(err).NotTo(HaveOccurred())
		Expect(rules).To(HaveLen(1))
		Expect(rules[0].RouteScope).To(Equal(rule.RoutePerRoute))
		Expect(rules[0].Enforcement.ResponseCode).To(Equal(http.StatusServiceUnavailable))
		Expect(rule.ValidateAll(rules)).To(Succeed())
	})
})
