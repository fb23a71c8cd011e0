package config

const (
	EnvPrefix = "TOOLYARD"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv = "TOOLYARD_APP_ENV"
	EnvPort   = "TOOLYARD_APP_PORT"

	EnvDBDSN  = "TOOLYARD_DB_DSN"
	EnvDBHost = "TOOLYARD_DB_HOST"
	EnvDBUser = "TOOLYARD_DB_USER"
	EnvDBName = "TOOLYARD_DB_NAME"

	EnvRedisURL = "TOOLYARD_REDIS_URL"

	EnvJWTSecret  = "TOOLYARD_JWT_SECRET"
	EnvJWTIssuer  = "TOOLYARD_JWT_ISSUER"
	EnvJWTExpMins = "TOOLYARD_JWT_EXPIRATION_MINUTES"

	EnvGCPProjectID = "TOOLYARD_GCP_PROJECT_ID"

	EnvPubSubOrdersTopic    = "TOOLYARD_PUBSUB_ORDERS_TOPIC"
	EnvPubSubAnalyticsTopic = "TOOLYARD_PUBSUB_ANALYTICS_TOPIC"
	EnvPubSubAnalyticsSub   = "TOOLYARD_PUBSUB_ANALYTICS_SUBSCRIPTION"

	EnvStripeEnv       = "TOOLYARD_STRIPE_ENV"
	EnvCronInterval    = "TOOLYARD_CRON_INTERVAL"
	EnvCronLockTTL     = "TOOLYARD_CRON_LOCK_TTL"
	EnvReportsLocation = "TOOLYARD_REPORTS_LOCATION"
)
