package rulesource

import (
	"context"
	"net/http"
	"slices"

	"github.com/angeloszaimis/circuit-gate/internal/rule"
)

// Static returns the same rules on every read.
type Static struct {
	rules []rule.Rule
}

func NewStatic(rules ...rule.Rule) *Static {
	return &Static{rules: slices.Clone(rules)}
}

func (s *Static) ReadRules(context.Context, string) ([]rule.Rule, error) {
	return slices.Clone(s.rules), nil
}

// Demo is a single global, per-route rule that opens for 20 seconds after two
// consecutive server errors.
func Demo() *Static {
	return NewStatic(rule.Rule{
		Name:               "simple rule",
		Active:             true,
		ApplicabilityScope: rule.ScopeGlobal,
		RouteScope:         rule.RoutePerRoute,
		Limit: rule.Limit{
			LowWatermark:           1,
			HighWatermark:          2,
			BreakerIntervalSeconds: 20,
		},
		Enforcement: rule.Enforcement{ResponseCode: http.StatusServiceUnavailable},
	})
}
