package rule

import (
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"
)

// ApplicabilityScope decides whether circuit state is shared by all clients
// or partitioned per client address.
type ApplicabilityScope int

const (
	ScopeGlobal ApplicabilityScope = iota
	ScopePerClient
)

// RouteScope decides whether circuit state is shared by all routes or
// partitioned per request path.
type RouteScope int

const (
	RouteGlobal RouteScope = iota
	RoutePerRoute
)

// Limit controls what counts as a failure and how long a circuit stays open.
type Limit struct {
	// StatusCode is the exact code that counts as a failure. Nil means any
	// unsuccessful (5xx) code.
	StatusCode             *int `json:"status_code,omitempty" yaml:"status_code,omitempty" mapstructure:"status_code"`
	LowWatermark           int  `json:"low_watermark" yaml:"low_watermark" mapstructure:"low_watermark"`
	HighWatermark          int  `json:"high_watermark" yaml:"high_watermark" mapstructure:"high_watermark"`
	BreakerIntervalSeconds int  `json:"breaker_interval_seconds" yaml:"breaker_interval_seconds" mapstructure:"breaker_interval_seconds"`
}

// BreakerInterval is the cooldown applied after a circuit opens.
func (l Limit) BreakerInterval() time.Duration {
	return time.Duration(l.BreakerIntervalSeconds) * time.Second
}

// Enforcement is what a caller receives while the circuit is open.
type Enforcement struct {
	ResponseCode  int               `json:"response_code" yaml:"response_code" mapstructure:"response_code"`
	CustomHeaders map[string]string `json:"custom_headers,omitempty" yaml:"custom_headers,omitempty" mapstructure:"custom_headers"`
}

// Rule is one named breaker policy.
type Rule struct {
	Name               string             `json:"name" yaml:"name" mapstructure:"name"`
	Active             bool               `json:"active" yaml:"active" mapstructure:"active"`
	ApplicabilityScope ApplicabilityScope `json:"applicability_scope" yaml:"applicability_scope" mapstructure:"applicability_scope"`
	RouteScope         RouteScope         `json:"route_scope" yaml:"route_scope" mapstructure:"route_scope"`
	ApplicableServers  []string           `json:"applicable_servers,omitempty" yaml:"applicable_servers,omitempty" mapstructure:"applicable_servers"`
	WhiteList          []string           `json:"white_list,omitempty" yaml:"white_list,omitempty" mapstructure:"white_list"`
	BlackList          []string           `json:"black_list,omitempty" yaml:"black_list,omitempty" mapstructure:"black_list"`
	Limit              Limit              `json:"limit" yaml:"limit" mapstructure:"limit"`
	Enforcement        Enforcement        `json:"enforcement" yaml:"enforcement" mapstructure:"enforcement"`
}

// AppliesToServer reports whether the rule evaluates on host. An empty
// server list applies everywhere.
func (r *Rule) AppliesToServer(host string) bool {
	if len(r.ApplicableServers) == 0 {
		return true
	}
	return slices.ContainsFunc(r.ApplicableServers, func(s string) bool {
		return strings.EqualFold(s, host)
	})
}

func (r *Rule) IsWhitelisted(client string) bool {
	return slices.Contains(r.WhiteList, client)
}

func (r *Rule) IsBlacklisted(client string) bool {
	return slices.Contains(r.BlackList, client)
}

func (s ApplicabilityScope) String() string {
	switch s {
	case ScopeGlobal:
		return "global"
	case ScopePerClient:
		return "per_client"
	default:
		return "unknown"
	}
}

func (s ApplicabilityScope) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *ApplicabilityScope) UnmarshalText(b []byte) error {
	switch strings.ToLower(strings.TrimSpace(string(b))) {
	case "global", "0", "":
		*s = ScopeGlobal
	case "per_client", "perclient", "per-client", "1":
		*s = ScopePerClient
	default:
		return fmt.Errorf("unknown applicability scope %q", string(b))
	}
	return nil
}

func (s *ApplicabilityScope) UnmarshalJSON(b []byte) error {
	if n, err := strconv.Atoi(string(b)); err == nil {
		*s = ApplicabilityScope(n)
		return nil
	}
	var str string
	if err := json.Unmarshal(b, &str); err != nil {
		return err
	}
	return s.UnmarshalText([]byte(str))
}

func (s RouteScope) String() string {
	switch s {
	case RouteGlobal:
		return "global"
	case RoutePerRoute:
		return "per_route"
	default:
		return "unknown"
	}
}

func (s RouteScope) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *RouteScope) UnmarshalText(b []byte) error {
	switch strings.ToLower(strings.TrimSpace(string(b))) {
	case "global", "0", "":
		*s = RouteGlobal
	case "per_route", "perroute", "per-route", "1":
		*s = RoutePerRoute
	default:
		return fmt.Errorf("unknown route scope %q", string(b))
	}
	return nil
}

func (s *RouteScope) UnmarshalJSON(b []byte) error {
	if n, err := strconv.Atoi(string(b)); err == nil {
		*s = RouteScope(n)
		return nil
	}
	var str string
	if err := json.Unmarshal(b, &str); err != nil {
		return err
	}
	return s.UnmarshalText([]byte(str))
}
