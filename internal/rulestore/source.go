package rulestore

import (
	"context"

	"github.com/angeloszaimis/circuit-gate/internal/rule"
)

// Source fetches the ordered rule list that applies to a host.
type Source interface {
	ReadRules(ctx context.Context, host string) ([]rule.Rule, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context, host string) ([]rule.Rule, error)

func (f SourceFunc) ReadRules(ctx context.Context, host string) ([]rule.Rule, error) {
	return f(ctx, host)
}
