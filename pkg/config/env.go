package config

const EnvPrefix = "PACKFINDERZ"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv       = "PACKFINDERZ_APP_ENV"
	EnvPort         = "PACKFINDERZ_APP_PORT"
	EnvLogLevel     = "PACKFINDERZ_LOG_LEVEL"
	EnvLogWarnStack = "PACKFINDERZ_LOG_WARN_STACK"
	EnvLogFormat    = "PACKFINDERZ_LOG_FORMAT"
	EnvMetricsAddr  = "PACKFINDERZ_METRICS_ADDR"
	EnvServiceKind  = "PACKFINDERZ_SERVICE_KIND"

	EnvDBDSN      = "PACKFINDERZ_DB_DSN"
	EnvDBDriver   = "PACKFINDERZ_DB_DRIVER"
	EnvDBHost     = "PACKFINDERZ_DB_HOST"
	EnvDBPort     = "PACKFINDERZ_DB_PORT"
	EnvDBUser     = "PACKFINDERZ_DB_USER"
	EnvDBPassword = "PACKFINDERZ_DB_PASSWORD"
	EnvDBName     = "PACKFINDERZ_DB_NAME"
	EnvDBSSLMode  = "PACKFINDERZ_DB_SSLMODE"

	EnvRedisURL = "PACKFINDERZ_REDIS_URL"

	EnvJWTSecret  = "PACKFINDERZ_JWT_SECRET"
	EnvJWTIssuer  = "PACKFINDERZ_JWT_ISSUER"
	EnvJWTExpMins = "PACKFINDERZ_JWT_EXPIRATION_MINUTES"

	EnvEngineAPIKey    = "PACKFINDERZ_ENGINE_API_KEY"
	EnvEngineLockTTL   = "PACKFINDERZ_ENGINE_LOCK_TTL"
	EnvEngineTiersFile = "PACKFINDERZ_ENGINE_TIERS_FILE"

	EnvValidatingBaseURL     = "PACKFINDERZ_VALIDATING_BASE_URL"
	EnvValidatingAPIKey      = "PACKFINDERZ_VALIDATING_API_KEY"
	EnvValidatingBearerToken = "PACKFINDERZ_VALIDATING_BEARER_TOKEN"
	EnvValidatingTimeout     = "PACKFINDERZ_VALIDATING_TIMEOUT"

	EnvGCPProjectID = "PACKFINDERZ_GCP_PROJECT_ID"

	EnvPubSubInventoryTopic = "PACKFINDERZ_PUBSUB_INVENTORY_TOPIC"
	EnvPubSubTransfersTopic = "PACKFINDERZ_PUBSUB_TRANSFERS_TOPIC"

	EnvOutboxBatchSize     = "PACKFINDERZ_OUTBOX_PUBLISH_BATCH_SIZE"
	EnvOutboxRetentionDays = "PACKFINDERZ_OUTBOX_RETENTION_DAYS"

	EnvCronInterval         = "PACKFINDERZ_CRON_INTERVAL"
	EnvCronStaleTransferAge = "PACKFINDERZ_CRON_STALE_TRANSFER_AGE"

	EnvAutoMigrate = "PACKFINDERZ_AUTO_MIGRATE"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
