package config

import (
	"time"
)

type Config struct {
	Server         ServerConfig
	Database       DatabaseConfig
	Broker         BrokerConfig
	Logging        LoggingConfig
	Automation     AutomationConfig
	Email          EmailConfig
	Enrichment     EnrichmentConfig
	Deduplication  DeduplicationConfig
	Management     ManagementConfig
	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuit_breaker"`
	Tracing        TracingConfig
}

type ServerConfig struct {
	Port                int           `mapstructure:"port"`
	ReadTimeoutSeconds  time.Duration `mapstructure:"read_timeout_seconds"`
	WriteTimeoutSeconds time.Duration `mapstructure:"write_timeout_seconds"`
}

type DatabaseConfig struct {
	Postgres      PostgresConfig
	Redis         RedisConfig
	MongoDB       MongoDBConfig
	RunMigrations bool `mapstructure:"run_migrations"`
}

type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type MongoDBConfig struct {
	URI      string `mapstructure:"uri"`
	Database string `mapstructure:"database"`
}

type BrokerConfig struct {
	Type  string      `mapstructure:"type"`
	Kafka KafkaConfig `mapstructure:"kafka"`
}

type KafkaConfig struct {
	Brokers            []string    `mapstructure:"brokers"`
	GroupID            string      `mapstructure:"group_id"`
	LeadEventsTopic    string      `mapstructure:"lead_events_topic"`
	ConfigUpdateTopic  string      `mapstructure:"config_update_topic"`
	NotificationsTopic string      `mapstructure:"notifications_topic"`
	DLQTopic           string      `mapstructure:"dlq_topic"`
	Retry              RetryConfig `mapstructure:"retry"`
}

type RetryConfig struct {
	MaxAttempts     int           `mapstructure:"max_attempts"`
	InitialInterval time.Duration `mapstructure:"initial_interval"`
	MaxInterval     time.Duration `mapstructure:"max_interval"`
	Multiplier      float64       `mapstructure:"multiplier"`
	MaxElapsedTime  time.Duration `mapstructure:"max_elapsed_time"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type AutomationConfig struct {
	RuleCache RuleCacheConfig `mapstructure:"rule_cache"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Ingest    IngestConfig    `mapstructure:"ingest"`
}

type RuleCacheConfig struct {
	Enabled         bool `mapstructure:"enabled"`
	IntervalSeconds int  `mapstructure:"interval_seconds"`
}

type SchedulerConfig struct {
	Enabled         bool `mapstructure:"enabled"`
	IntervalSeconds int  `mapstructure:"interval_seconds"`
}

type IngestConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

type EmailConfig struct {
	Provider string     `mapstructure:"provider"` // "ses", "smtp", "log"
	Sender   string     `mapstructure:"sender"`
	SES      SESConfig  `mapstructure:"ses"`
	SMTP     SMTPConfig `mapstructure:"smtp"`
}

type SESConfig struct {
	Region          string `mapstructure:"region"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	Endpoint        string `mapstructure:"endpoint"`
}

type SMTPConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

type EnrichmentConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	URL             string        `mapstructure:"url"`
	APIKey          string        `mapstructure:"api_key"`
	Timeout         time.Duration `mapstructure:"timeout"`
	MaxRetries      int           `mapstructure:"max_retries"`
	RetryDelay      time.Duration `mapstructure:"retry_delay"`
	CacheTTLSeconds int           `mapstructure:"cache_ttl_seconds"`
}

type DeduplicationConfig struct {
	TTLSeconds   int    `mapstructure:"ttl_seconds"`
	OnRedisError string `mapstructure:"on_redis_error"` // "allow" or "reject"
}

type ManagementConfig struct {
	RateLimit        RateLimitConfig `mapstructure:"rate_limit"`
	TemplateCacheTTL time.Duration   `mapstructure:"template_cache_ttl"`
}

type RateLimitConfig struct {
	Enabled         bool    `mapstructure:"enabled"`
	Store           string  `mapstructure:"store"` // "memory" or "redis"
	RPS             float64 `mapstructure:"rps"`
	Burst           int     `mapstructure:"burst"`
	CleanupInterval int     `mapstructure:"cleanup_interval"`
	MaxAge          int     `mapstructure:"max_age"`
}

type CircuitBreakerConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	MaxRequests  uint32        `mapstructure:"max_requests"`
	Interval     time.Duration `mapstructure:"interval"`
	Timeout      time.Duration `mapstructure:"timeout"`
	FailureRatio float64       `mapstructure:"failure_ratio"`
	MinRequests  uint32        `mapstructure:"min_requests"`
}

type TracingConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	ServiceName string        `mapstructure:"service_name"`
	OTLP        OTLPConfig    `mapstructure:"otlp"`
	Sampler     SamplerConfig `mapstructure:"sampler"`
}

type OTLPConfig struct {
	Endpoint string `mapstructure:"endpoint"`
	Insecure bool   `mapstructure:"insecure"`
}

type SamplerConfig struct {
	Type  string  `mapstructure:"type"`
	Param float64 `mapstructure:"param"`
}

// SchedulerInterval returns the configured tick period, falling back to five minutes.
func (c AutomationConfig) SchedulerInterval() time.Duration {
	if c.Scheduler.IntervalSeconds <= 0 {
		return 300 * time.Second
	}
	return time.Duration(c.Scheduler.IntervalSeconds) * time.Second
}

func (c AutomationConfig) RuleReloadInterval() time.Duration {
	if c.RuleCache.IntervalSeconds <= 0 {
		return 60 * time.Second
	}
	return time.Duration(c.RuleCache.IntervalSeconds) * time.Second
}

func (c EnrichmentConfig) CacheTTL() time.Duration {
	if c.CacheTTLSeconds <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(c.CacheTTLSeconds) * time.Second
}

func Load(configFile string) (*Config, error) {
	return LoadConfig(configFile)
}
