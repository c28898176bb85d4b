package rulesource

import (
	"context"
	"fmt"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/angeloszaimis/circuit-gate/internal/rule"
)

const rulesKey = "rules"

// File reads rules from a config file on every call, so edits are picked up
// by the next refresh.
type File struct {
	path string
}

func NewFile(path string) *File {
	return &File{path: path}
}

func (f *File) ReadRules(ctx context.Context, _ string) ([]rule.Rule, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetConfigFile(f.path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read rules file %s: %w", f.path, err)
	}

	return DecodeKey(v, rulesKey)
}

// DecodeKey decodes the rule list stored under key in v. Scope fields accept
// names ("per_client") or numbers.
func DecodeKey(v *viper.Viper, key string) ([]rule.Rule, error) {
	rules := []rule.Rule{}
	if !v.IsSet(key) {
		return rules, nil
	}

	err := v.UnmarshalKey(key, &rules, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.TextUnmarshallerHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", key, err)
	}
	return rules, nil
}
