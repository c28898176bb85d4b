package rulesource

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/angeloszaimis/circuit-gate/internal/rule"
)

const DefaultRedisKey = "circuitgate:rules"

// Redis reads a JSON rule list from a string key. A host-specific key
// "<key>:<host>" takes precedence over the shared one.
type Redis struct {
	client *redis.Client
	key    string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Key      string
}

func NewRedis(cfg RedisConfig) *Redis {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return NewRedisFromClient(client, cfg.Key)
}

func NewRedisFromClient(client *redis.Client, key string) *Redis {
	if key == "" {
		key = DefaultRedisKey
	}
	return &Redis{client: client, key: key}
}

func (r *Redis) ReadRules(ctx context.Context, host string) ([]rule.Rule, error) {
	keys := []string{r.key}
	if host != "" {
		keys = []string{r.hostKey(host), r.key}
	}

	for _, key := range keys {
		data, err := r.client.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("redis get %s: %w", key, err)
		}

		rules, err := decodeJSON(data)
		if err != nil {
			return nil, fmt.Errorf("redis key %s: %w", key, err)
		}
		return rules, nil
	}

	return nil, fmt.Errorf("redis key %s: %w", r.key, ErrEmptyPayload)
}

// WriteRules stores rules under the shared key, or under the host key when
// host is set.
func (r *Redis) WriteRules(ctx context.Context, host string, rules []rule.Rule) error {
	data, err := json.Marshal(rules)
	if err != nil {
		return fmt.Errorf("encode rules: %w", err)
	}

	key := r.key
	if host != "" {
		key = r.hostKey(host)
	}
	if err := r.client.Set(ctx, key, data, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *Redis) Close() error {
	return r.client.Close()
}

func (r *Redis) hostKey(host string) string {
	return r.key + ":" + host
}
