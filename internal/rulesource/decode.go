package rulesource

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/angeloszaimis/circuit-gate/internal/rule"
)

var (
	ErrUnexpectedStatus = errors.New("rulesource: unexpected status")
	ErrEmptyPayload     = errors.New("rulesource: empty payload")
)

// decodeJSON parses a JSON rule list. A JSON null is treated as empty.
func decodeJSON(data []byte) ([]rule.Rule, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, ErrEmptyPayload
	}

	var rules []rule.Rule
	if err := json.Unmarshal(data, &rules); err != nil {
		return nil, fmt.Errorf("decode rules: %w", err)
	}
	if rules == nil {
		rules = []rule.Rule{}
	}
	return rules, nil
}
