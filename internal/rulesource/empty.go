package rulesource

import (
	"context"

	"github.com/angeloszaimis/circuit-gate/internal/rule"
)

// Empty always returns an empty rule list.
type Empty struct{}

func (Empty) ReadRules(context.Context, string) ([]rule.Rule, error) {
	return []rule.Rule{}, nil
}
