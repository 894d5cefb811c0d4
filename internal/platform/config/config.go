package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	pstrings "gonogo/pkg/platform/strings"
)

// Config is the complete runtime configuration. It is built once at startup
// and passed down to constructors; nothing else reads the environment.
type Config struct {
	Server    Server
	Postgres  PostgresConfig
	Redis     RedisConfig
	Kafka     KafkaConfig
	SAM       SAMConfig
	RateLimit RateLimitConfig
	Jobs      JobsConfig
	Webhook   WebhookConfig
	Decision  DecisionConfig
	LogLevel  string
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr       string
	APIKey     string
	AdminToken string
	// MockMode swaps the live SAM providers for simulated clean ones.
	MockMode bool
}

// PostgresConfig selects durable storage. An empty URL keeps every store in memory.
type PostgresConfig struct {
	URL            string
	MigrateOnStart bool
	MaxOpenConns   int
}

// RedisConfig configures the shared Redis client used for distributed rate
// limiting and the startup recovery lock.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig configures the audit stream. No brokers disables streaming.
type KafkaConfig struct {
	Brokers    []string
	AuditTopic string
}

// SAMConfig configures the live exclusion and entity registration providers.
type SAMConfig struct {
	EntityURL     string
	ExclusionsURL string
	APIKey        string
	Timeout       time.Duration
	MaxRetries    int
}

// RateLimitConfig configures per-caller admission control.
type RateLimitConfig struct {
	Requests int
	Window   time.Duration
	// Backend is "memory" or "redis".
	Backend string
}

// JobsConfig bounds bulk job execution.
type JobsConfig struct {
	Concurrency int
	ItemTimeout time.Duration
	MaxItems    int
}

// WebhookConfig configures job completion callbacks.
type WebhookConfig struct {
	SigningSecret string
	Timeout       time.Duration
}

// DecisionConfig holds evaluation policy.
type DecisionConfig struct {
	// UnknownSizePolicy is "allow" (unknown size passes) or "deny".
	UnknownSizePolicy string
	EvidenceTimeout   time.Duration
}

// Default values.
const (
	DefaultAddr              = ":8080"
	DefaultRateLimitRequests = 60
	DefaultRateLimitWindow   = time.Minute
	DefaultJobConcurrency    = 4
	DefaultJobItemTimeout    = 30 * time.Second
	DefaultJobMaxItems       = 1000
	DefaultSAMTimeout        = 10 * time.Second
	DefaultSAMRetries        = 2
	DefaultWebhookTimeout    = 10 * time.Second
	DefaultEvidenceTimeout   = 15 * time.Second
	DefaultAuditTopic        = "gonogo.audit.v1"

	DefaultSAMEntityURL     = "https://api.sam.gov/entity-information/v2/entities"
	DefaultSAMExclusionsURL = "https://api.sam.gov/exclusions/v2/exclusions"
)

// FromEnv builds a Config from environment variables so main stays lean.
//
// A value that is set but cannot be parsed is an error, never a silent default.
func FromEnv() (Config, error) {
	env := &envReader{}
	cfg := Config{
		Server: Server{
			Addr:       getenv("ELIG_ADDR", DefaultAddr),
			APIKey:     os.Getenv("ELIG_API_KEY"),
			AdminToken: os.Getenv("ELIG_ADMIN_KEY"),
			MockMode:   env.boolean("ELIG_API_MOCK", false),
		},
		Postgres: PostgresConfig{
			URL:            os.Getenv("ELIG_DB"),
			MigrateOnStart: env.boolean("ELIG_DB_MIGRATE", true),
			MaxOpenConns:   env.integer("ELIG_DB_MAX_OPEN_CONNS", 10),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     env.integer("REDIS_POOL_SIZE", 10),
			MinIdleConns: env.integer("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  env.duration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  env.duration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: env.duration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: KafkaConfig{
			Brokers:    getlist("KAFKA_BROKERS"),
			AuditTopic: getenv("KAFKA_AUDIT_TOPIC", DefaultAuditTopic),
		},
		SAM: SAMConfig{
			EntityURL:     getenv("SAM_ENTITY_API", DefaultSAMEntityURL),
			ExclusionsURL: getenv("SAM_EXCLUSIONS_API", DefaultSAMExclusionsURL),
			APIKey:        os.Getenv("SAM_API_KEY"),
			Timeout:       env.duration("SAM_TIMEOUT", DefaultSAMTimeout),
			MaxRetries:    env.integer("SAM_MAX_RETRIES", DefaultSAMRetries),
		},
		RateLimit: RateLimitConfig{
			Requests: env.integer("ELIG_RATE_LIMIT", DefaultRateLimitRequests),
			Window:   env.duration("ELIG_RATE_WINDOW", DefaultRateLimitWindow),
			Backend:  getenv("ELIG_RATE_BACKEND", "memory"),
		},
		Jobs: JobsConfig{
			Concurrency: env.integer("ELIG_JOB_CONCURRENCY", DefaultJobConcurrency),
			ItemTimeout: env.duration("ELIG_JOB_ITEM_TIMEOUT", DefaultJobItemTimeout),
			MaxItems:    env.integer("ELIG_JOB_MAX_ITEMS", DefaultJobMaxItems),
		},
		Webhook: WebhookConfig{
			SigningSecret: os.Getenv("ELIG_WEBHOOK_SIG"),
			Timeout:       env.duration("ELIG_WEBHOOK_TIMEOUT", DefaultWebhookTimeout),
		},
		Decision: DecisionConfig{
			UnknownSizePolicy: getenv("ELIG_UNKNOWN_SIZE_POLICY", "allow"),
			EvidenceTimeout:   env.duration("ELIG_EVIDENCE_TIMEOUT", DefaultEvidenceTimeout),
		},
		LogLevel: getenv("LOG_LEVEL", "info"),
	}
	if err := errors.Join(env.errs...); err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

// Validate rejects configurations the service cannot run with.
func (c Config) Validate() error {
	if c.RateLimit.Requests <= 0 {
		return fmt.Errorf("ELIG_RATE_LIMIT must be positive, got %d", c.RateLimit.Requests)
	}
	if c.RateLimit.Window <= 0 {
		return fmt.Errorf("ELIG_RATE_WINDOW must be positive")
	}
	switch c.RateLimit.Backend {
	case "memory":
	case "redis":
		if c.Redis.URL == "" {
			return fmt.Errorf("ELIG_RATE_BACKEND=redis requires REDIS_URL")
		}
	default:
		return fmt.Errorf("ELIG_RATE_BACKEND must be memory or redis, got %q", c.RateLimit.Backend)
	}
	if c.Jobs.Concurrency <= 0 {
		return fmt.Errorf("ELIG_JOB_CONCURRENCY must be positive, got %d", c.Jobs.Concurrency)
	}
	switch c.Decision.UnknownSizePolicy {
	case "allow", "deny":
	default:
		return fmt.Errorf("ELIG_UNKNOWN_SIZE_POLICY must be allow or deny, got %q", c.Decision.UnknownSizePolicy)
	}
	return nil
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// envReader parses typed variables and collects the ones that are malformed.
type envReader struct {
	errs []error
}

func (e *envReader) integer(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s must be an integer, got %q", key, v))
		return def
	}
	return n
}

func (e *envReader) boolean(key string, def bool) bool {
	v := os.Getenv(key)
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "":
		return def
	case "1", "true", "yes":
		return true
	case "0", "false", "no":
		return false
	}
	e.errs = append(e.errs, fmt.Errorf("%s must be a boolean, got %q", key, v))
	return def
}

func (e *envReader) duration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(strings.TrimSpace(v))
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s must be a duration such as 30s, got %q", key, v))
		return def
	}
	return d
}

func getlist(key string) []string {
	return pstrings.SplitList(os.Getenv(key))
}
