package config

import (
	"errors"
	"log/slog"
	"net"
	"net/url"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/spf13/viper"

	"github.com/angeloszaimis/circuit-gate/internal/rule"
	"github.com/angeloszaimis/circuit-gate/internal/rulesource"
)

const (
	EnvDev     = "dev"
	EnvStaging = "staging"
	EnvProd    = "prod"
)

const (
	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"
)

const (
	SourceStatic = "static"
	SourceFile   = "file"
	SourceHTTP   = "http"
	SourceRedis  = "redis"
	SourceEmpty  = "empty"
)

const (
	RefreshOnce     = "once"
	RefreshPeriodic = "periodic"
)

type ServerConfig struct {
	Address      string        `mapstructure:"address"`
	Environment  string        `mapstructure:"environment"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

type UpstreamConfig struct {
	URL               string `mapstructure:"url"`
	TrustForwardedFor bool   `mapstructure:"trust_forwarded_for"`
	// HealthPath is probed every HealthInterval; empty disables probing.
	HealthPath     string        `mapstructure:"health_path"`
	HealthInterval time.Duration `mapstructure:"health_interval"`
}

type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Key      string `mapstructure:"key"`
}

type RulesConfig struct {
	Source   string        `mapstructure:"source"`
	File     string        `mapstructure:"file"`
	URL      string        `mapstructure:"url"`
	Timeout  time.Duration `mapstructure:"timeout"`
	Redis    RedisConfig   `mapstructure:"redis"`
	Refresh  string        `mapstructure:"refresh"`
	Interval time.Duration `mapstructure:"interval"`
	// Static is decoded separately so scope names resolve.
	Static []rule.Rule `mapstructure:"-"`
}

type BreakerConfig struct {
	LockTimeout time.Duration `mapstructure:"lock_timeout"`
	StaleAfter  time.Duration `mapstructure:"stale_after"`
	// Hostname defaults to the machine name when empty.
	Hostname string `mapstructure:"hostname"`
}

type MetricsConfig struct {
	BufferSize int `mapstructure:"buffer_size"`
}

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Upstream UpstreamConfig `mapstructure:"upstream"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Rules    RulesConfig    `mapstructure:"rules"`
	Breaker  BreakerConfig  `mapstructure:"breaker"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.environment", EnvDev)
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Second)
	v.SetDefault("server.idle_timeout", 60*time.Second)
	v.SetDefault("upstream.url", "http://localhost:8081")
	v.SetDefault("upstream.trust_forwarded_for", false)
	v.SetDefault("upstream.health_path", "/health")
	v.SetDefault("upstream.health_interval", 10*time.Second)
	v.SetDefault("logging.level", LogLevelInfo)
	v.SetDefault("rules.source", SourceStatic)
	v.SetDefault("rules.file", "")
	v.SetDefault("rules.url", "")
	v.SetDefault("rules.timeout", 10*time.Second)
	v.SetDefault("rules.redis.address", "localhost:6379")
	v.SetDefault("rules.redis.password", "")
	v.SetDefault("rules.redis.db", 0)
	v.SetDefault("rules.redis.key", rulesource.DefaultRedisKey)
	v.SetDefault("rules.refresh", RefreshPeriodic)
	v.SetDefault("rules.interval", 30*time.Second)
	v.SetDefault("breaker.lock_timeout", time.Second)
	v.SetDefault("breaker.stale_after", 5*time.Minute)
	v.SetDefault("breaker.hostname", "")
	v.SetDefault("metrics.buffer_size", 1000)
}

// Load reads path, or config.yaml from ./config or the working directory when
// path is empty. A missing default file is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			slog.Error("failed to read config file", slog.String("error", err.Error()))
			return nil, err
		}
		slog.Warn("config file not found, using defaults and environment variables")
	} else {
		slog.Info("loaded config file", slog.String("file", v.ConfigFileUsed()))
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		slog.Error("failed to unmarshal config", slog.String("error", err.Error()))
		return nil, err
	}

	static, err := rulesource.DecodeKey(v, "rules.static")
	if err != nil {
		slog.Error("failed to decode static rules", slog.String("error", err.Error()))
		return nil, err
	}
	cfg.Rules.Static = static

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Server),
		validation.Field(&c.Upstream),
		validation.Field(&c.Logging),
		validation.Field(&c.Rules),
		validation.Field(&c.Breaker),
		validation.Field(&c.Metrics),
	)
}

func (s ServerConfig) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.Environment,
			validation.Required,
			validation.In(EnvDev, EnvStaging, EnvProd),
		),
		validation.Field(&s.Address,
			validation.Required,
			validation.By(validateHostPort),
		),
		validation.Field(&s.ReadTimeout, validation.Min(time.Duration(0))),
		validation.Field(&s.WriteTimeout, validation.Min(time.Duration(0))),
		validation.Field(&s.IdleTimeout, validation.Min(time.Duration(0))),
	)
}

func (u UpstreamConfig) Validate() error {
	return validation.ValidateStruct(&u,
		validation.Field(&u.URL, validation.Required, validation.By(validateServerURL)),
		validation.Field(&u.HealthPath, validation.When(u.HealthPath != "", validation.By(validatePath))),
		validation.Field(&u.HealthInterval,
			validation.When(u.HealthPath != "", validation.Required, validation.Min(100*time.Millisecond)),
		),
	)
}

func (l LoggingConfig) Validate() error {
	return validation.ValidateStruct(&l,
		validation.Field(&l.Level,
			validation.Required,
			validation.In(LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError),
		),
	)
}

func (r RulesConfig) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Source,
			validation.Required,
			validation.In(SourceStatic, SourceFile, SourceHTTP, SourceRedis, SourceEmpty),
		),
		validation.Field(&r.File, validation.When(r.Source == SourceFile, validation.Required)),
		validation.Field(&r.URL,
			validation.When(r.Source == SourceHTTP, validation.Required, validation.By(validateServerURL)),
		),
		validation.Field(&r.Redis, validation.Skip.When(r.Source != SourceRedis)),
		validation.Field(&r.Refresh,
			validation.Required,
			validation.In(RefreshOnce, RefreshPeriodic),
		),
		validation.Field(&r.Interval,
			validation.When(r.Refresh == RefreshPeriodic, validation.Required, validation.Min(time.Second)),
		),
		validation.Field(&r.Timeout, validation.Min(time.Duration(0))),
		validation.Field(&r.Static, validation.By(func(value interface{}) error {
			rules, _ := value.([]rule.Rule)
			return rule.ValidateAll(rules)
		})),
	)
}

func (r RedisConfig) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Address, validation.Required, validation.By(validateHostPort)),
		validation.Field(&r.DB, validation.Min(0)),
		validation.Field(&r.Key, validation.Required),
	)
}

func (b BreakerConfig) Validate() error {
	return validation.ValidateStruct(&b,
		validation.Field(&b.LockTimeout, validation.Required, validation.Min(time.Millisecond)),
		validation.Field(&b.StaleAfter, validation.Min(time.Duration(0))),
	)
}

func (m MetricsConfig) Validate() error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.BufferSize, validation.Required, validation.Min(1)),
	)
}

func validateHostPort(value interface{}) error {
	addr, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return validation.NewError("validation_invalid_hostport", "must be in host:port format")
	}

	if port == "" {
		return validation.NewError("validation_invalid_port", "port cannot be empty")
	}

	if host != "" {
		if err := is.Host.Validate(host); err != nil {
			return validation.NewError("validation_invalid_host", "invalid host")
		}
	}

	return nil
}

func validatePath(value interface{}) error {
	path, _ := value.(string)
	if !strings.HasPrefix(path, "/") {
		return validation.NewError("validation_invalid_path", "must start with /")
	}
	return nil
}

func validateServerURL(value interface{}) error {
	serverURL, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}
	if serverURL == "" {
		return nil
	}

	parsedURL, err := url.Parse(serverURL)
	if err != nil {
		return validation.NewError("validation_invalid_url", "must be a valid URL")
	}

	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return validation.NewError("validation_invalid_scheme", "URL must use http or https scheme")
	}

	if parsedURL.Host == "" {
		return validation.NewError("validation_missing_host", "URL must have a host")
	}

	return nil
}
