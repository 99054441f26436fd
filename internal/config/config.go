// Package config loads the service configuration from an optional file and the environment.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. INTERVIEW_SERVER_PORT
const EnvPrefix = "INTERVIEW"

// Config is the full service configuration.
type Config struct {
	Server    ServerConfig          `mapstructure:"server"`
	Database  DatabaseConfig        `mapstructure:"database"`
	Redis     RedisConfig           `mapstructure:"redis"`
	AI        AIConfig              `mapstructure:"ai"`
	Voice     VoiceConfig           `mapstructure:"voice"`
	Interview InterviewConfig       `mapstructure:"interview"`
	RateLimit RateLimitConfig       `mapstructure:"ratelimit"`
	Plans     map[string]PlanConfig `mapstructure:"plans"`
	JWT       JWTConfig             `mapstructure:"jwt"`
	Log       LogConfig             `mapstructure:"log"`
}

// ServerConfig configures the HTTP listener
type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read-timeout"`
	WriteTimeout time.Duration `mapstructure:"write-timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle-timeout"`
}

// DatabaseConfig configures PostgreSQL. An empty URL selects the in-memory store.
type DatabaseConfig struct {
	URL     string `mapstructure:"url"`
	Migrate bool   `mapstructure:"migrate"`
}

// RedisConfig configures Redis. An empty URL keeps locks and counters in process.
type RedisConfig struct {
	URL     string        `mapstructure:"url"`
	LockTTL time.Duration `mapstructure:"lock-ttl"`
}

// AIConfig configures the Gemini client and its retry policy
type AIConfig struct {
	APIKey         string            `mapstructure:"api-key"`
	Models         map[string]string `mapstructure:"models"`
	Temperature    float32           `mapstructure:"temperature"`
	Timeout        time.Duration     `mapstructure:"timeout"`
	MaxRetries     int               `mapstructure:"max-retries"`
	InitialBackoff time.Duration     `mapstructure:"initial-backoff"`
	MaxBackoff     time.Duration     `mapstructure:"max-backoff"`
}

// VoiceConfig configures speech synthesis for live sessions
type VoiceConfig struct {
	TTSEnabled bool   `mapstructure:"tts-enabled"`
	TTSModel   string `mapstructure:"tts-model"`
	Voice      string `mapstructure:"voice"`
}

// InterviewConfig holds engine tunables
type InterviewConfig struct {
	FollowUpRate     float64 `mapstructure:"follow-up-rate"`
	DefaultQuestions int     `mapstructure:"default-questions"`
	// FollowUpSeed makes follow-up draws reproducible when non-zero
	FollowUpSeed uint64 `mapstructure:"follow-up-seed"`
}

// RateLimitConfig configures the HTTP rate limiter
type RateLimitConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	DefaultLimit  int           `mapstructure:"default-limit"`
	DefaultWindow time.Duration `mapstructure:"default-window"`
	Whitelist     []string      `mapstructure:"whitelist"`
	Blacklist     []string      `mapstructure:"blacklist"`
}

// PlanConfig is the quota and model tier of one subscription plan. A negative
// quota means unlimited.
type PlanConfig struct {
	MonthlySessions int    `mapstructure:"monthly-sessions"`
	Tier            string `mapstructure:"tier"`
}

// LogConfig selects the logger encoding and level
type LogConfig struct {
	JSON  bool `mapstructure:"json"`
	Debug bool `mapstructure:"debug"`
}

// conventional variables that do not carry the prefix
var envAliases = map[string]string{
	"database.url":         "DATABASE_URL",
	"redis.url":            "REDIS_URL",
	"ai.api-key":           "GEMINI_API_KEY",
	"jwt.secret":           "JWT_SECRET",
	"jwt.issuer":           "JWT_ISSUER",
	"jwt.expiration-hours": "JWT_EXPIRATION_HOURS",
}

// New returns a viper instance with defaults and environment bindings applied.
func New() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	for key, env := range envAliases {
		// prefixed variable first, conventional name second
		_ = v.BindEnv(key, EnvPrefix+"_"+strings.ToUpper(strings.NewReplacer(".", "_", "-", "_").Replace(key)), env)
	}
	return v
}

// Load reads path (optional, YAML or JSON) and the environment into a validated Config.
func Load(path string) (*Config, error) {
	v := New()
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}
	return FromViper(v)
}

// FromViper decodes and validates the configuration held by v.
func FromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read-timeout", 30*time.Second)
	v.SetDefault("server.write-timeout", 300*time.Second)
	v.SetDefault("server.idle-timeout", 60*time.Second)

	v.SetDefault("database.url", "")
	v.SetDefault("database.migrate", false)

	v.SetDefault("redis.url", "")
	v.SetDefault("redis.lock-ttl", 2*time.Minute)

	v.SetDefault("ai.api-key", "")
	v.SetDefault("ai.models", map[string]string{
		"lite":     "gemini-2.5-flash-lite",
		"standard": "gemini-2.5-flash",
		"advanced": "gemini-2.5-pro",
	})
	v.SetDefault("ai.temperature", 0.4)
	v.SetDefault("ai.timeout", 45*time.Second)
	v.SetDefault("ai.max-retries", 2)
	v.SetDefault("ai.initial-backoff", 500*time.Millisecond)
	v.SetDefault("ai.max-backoff", 5*time.Second)

	v.SetDefault("voice.tts-enabled", true)
	v.SetDefault("voice.tts-model", "gemini-2.5-flash-preview-tts")
	v.SetDefault("voice.voice", "Kore")

	v.SetDefault("interview.follow-up-rate", 0.30)
	v.SetDefault("interview.follow-up-seed", 0)
	v.SetDefault("interview.default-questions", 10)

	v.SetDefault("ratelimit.enabled", true)
	v.SetDefault("ratelimit.default-limit", 600)
	v.SetDefault("ratelimit.default-window", time.Minute)
	v.SetDefault("ratelimit.whitelist", []string{})
	v.SetDefault("ratelimit.blacklist", []string{})

	v.SetDefault("plans", map[string]any{
		"free":       map[string]any{"monthly-sessions": 5, "tier": "lite"},
		"basic":      map[string]any{"monthly-sessions": 30, "tier": "standard"},
		"pro":        map[string]any{"monthly-sessions": 200, "tier": "advanced"},
		"enterprise": map[string]any{"monthly-sessions": -1, "tier": "advanced"},
	})

	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.issuer", DefaultJWTIssuer)
	v.SetDefault("jwt.expiration-hours", 24)

	v.SetDefault("log.json", false)
	v.SetDefault("log.debug", false)
}

var validTiers = map[string]bool{"lite": true, "standard": true, "advanced": true}

// Validate checks that the configuration has valid values. Missing credentials
// are reported by the components that need them.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port))
	}
	if c.AI.Timeout <= 0 {
		errs = append(errs, errors.New("ai.timeout must be positive"))
	}
	if c.AI.MaxRetries < 0 {
		errs = append(errs, fmt.Errorf("ai.max-retries must be non-negative, got %d", c.AI.MaxRetries))
	}
	if c.AI.InitialBackoff <= 0 || c.AI.MaxBackoff < c.AI.InitialBackoff {
		errs = append(errs, errors.New("ai backoff bounds must satisfy 0 < initial-backoff <= max-backoff"))
	}
	if c.AI.Temperature < 0 || c.AI.Temperature > 2 {
		errs = append(errs, fmt.Errorf("ai.temperature must be between 0 and 2, got %v", c.AI.Temperature))
	}
	if c.Interview.FollowUpRate < 0 || c.Interview.FollowUpRate > 1 {
		errs = append(errs, fmt.Errorf("interview.follow-up-rate must be between 0 and 1, got %v", c.Interview.FollowUpRate))
	}
	if c.Interview.DefaultQuestions < 5 || c.Interview.DefaultQuestions > 15 {
		errs = append(errs, fmt.Errorf("interview.default-questions must be between 5 and 15, got %d", c.Interview.DefaultQuestions))
	}
	if c.RateLimit.Enabled && (c.RateLimit.DefaultLimit < 0 || c.RateLimit.DefaultWindow <= 0) {
		errs = append(errs, errors.New("ratelimit default-limit must be non-negative and default-window positive"))
	}
	if c.Redis.LockTTL <= 0 {
		errs = append(errs, errors.New("redis.lock-ttl must be positive"))
	}
	for name, p := range c.Plans {
		if !validTiers[strings.ToLower(p.Tier)] {
			errs = append(errs, fmt.Errorf("plans.%s.tier %q is not a model tier", name, p.Tier))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("config error: %w", errors.Join(errs...))
	}
	return nil
}

// PlanQuotas returns the monthly session quota per plan
func (c *Config) PlanQuotas() map[string]int {
	quotas := make(map[string]int, len(c.Plans))
	for name, p := range c.Plans {
		quotas[strings.ToLower(name)] = p.MonthlySessions
	}
	return quotas
}

// PlanTiers returns the model tier name per plan
func (c *Config) PlanTiers() map[string]string {
	tiers := make(map[string]string, len(c.Plans))
	for name, p := range c.Plans {
		tiers[strings.ToLower(name)] = strings.ToLower(p.Tier)
	}
	return tiers
}
