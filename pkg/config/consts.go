package config

const EnvPrefix = "CARTSYNC"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "production"
)

// Environment variable names, mirrored for tests and tooling.
const (
	EnvAppEnv       = "CARTSYNC_APP_ENV"
	EnvLogLevel     = "CARTSYNC_LOG_LEVEL"
	EnvAPIBaseURL   = "CARTSYNC_API_BASE_URL"
	EnvAPITimeout   = "CARTSYNC_API_TIMEOUT"
	EnvRedisURL     = "CARTSYNC_REDIS_URL"
	EnvRedisAddr    = "CARTSYNC_REDIS_ADDR"
	EnvGuestTTL     = "CARTSYNC_CART_GUEST_BACKUP_TTL"
	EnvEnrichConc   = "CARTSYNC_CART_ENRICH_CONCURRENCY"
	EnvEnrichWindow = "CARTSYNC_CART_ENRICH_TIMEOUT"
)
