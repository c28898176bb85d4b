package rule

import (
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

func (r Rule) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required),
		validation.Field(&r.ApplicabilityScope, validation.In(ScopeGlobal, ScopePerClient)),
		validation.Field(&r.RouteScope, validation.In(RouteGlobal, RoutePerRoute)),
		validation.Field(&r.Limit),
		validation.Field(&r.Enforcement),
	)
}

func (l Limit) Validate() error {
	return validation.ValidateStruct(&l,
		validation.Field(&l.StatusCode, validation.NilOrNotEmpty, validation.By(validateStatusCode)),
		validation.Field(&l.LowWatermark, validation.Required, validation.Min(1)),
		validation.Field(&l.HighWatermark,
			validation.Required,
			validation.Min(l.LowWatermark).Error(fmt.Sprintf("must be no less than low_watermark (%d)", l.LowWatermark)),
		),
		validation.Field(&l.BreakerIntervalSeconds, validation.Required, validation.Min(1)),
	)
}

func (e Enforcement) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.ResponseCode, validation.Required, validation.By(validateStatusCode)),
	)
}

// ValidateAll checks every rule and that names are unique.
func ValidateAll(rules []Rule) error {
	seen := make(map[string]struct{}, len(rules))
	for i := range rules {
		if err := rules[i].Validate(); err != nil {
			return fmt.Errorf("rule %d (%q): %w", i, rules[i].Name, err)
		}
		if _, dup := seen[rules[i].Name]; dup {
			return fmt.Errorf("rule %d: duplicate name %q", i, rules[i].Name)
		}
		seen[rules[i].Name] = struct{}{}
	}
	return nil
}

func validateStatusCode(value interface{}) error {
	var code int
	switch v := value.(type) {
	case int:
		code = v
	case *int:
		if v == nil {
			return nil
		}
		code = *v
	default:
		return validation.NewError("validation_invalid_type", "must be an int")
	}

	if code < 100 || code > 599 {
		return validation.NewError("validation_invalid_status", "must be a valid HTTP status code")
	}
	return nil
}
