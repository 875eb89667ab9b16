package constants

import "time"

const (
	ServiceName = "automation-service"
)

const (
	KafkaBatchTimeout = 10 * time.Millisecond
	KafkaWriteTimeout = 10 * time.Second
	KafkaReadTimeout  = 1 * time.Second
)

const (
	DefaultHTTPTimeout = 10 * time.Second
)

const (
	CacheKeyPrefixTemplate   = "template:"
	CacheKeyPrefixIngest     = "ingest:"
	CacheKeyPrefixEnrichment = "enrich:"
	CacheKeyPrefixRateLimit  = "ratelimit:"
)

const (
	DefaultLeadEventsTopic = "lead_events"
	DefaultMongoDBName     = "leadflow"
	LeadEventsCollection   = "lead_events"
)

const (
	// DefaultSchedulerInterval is the campaign scheduler tick period.
	DefaultSchedulerInterval   = 300 * time.Second
	DefaultRuleReloadInterval  = 60 * time.Second
	DefaultTemplateCacheTTL    = 10 * time.Minute
	DefaultIngestDedupTTL      = 24 * time.Hour
	DefaultEnrichmentCacheTTL  = 24 * time.Hour
	DefaultEnrichmentRetries   = 3
	DefaultEnrichmentRetryWait = 2 * time.Second
)

const (
	ShutdownTimeout = 5 * time.Second
)

const (
	DefaultLimit = 100
	MaxLimit     = 1000
)

const (
	HTTPStatusOKMin = 200
	HTTPStatusOKMax = 300
)

const (
	EmailProviderSES  = "ses"
	EmailProviderSMTP = "smtp"
	EmailProviderLog  = "log"
)

const (
	RateLimitStoreMemory = "memory"
	RateLimitStoreRedis  = "redis"
)
