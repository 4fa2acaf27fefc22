package config

const EnvPrefix = "LOUPES"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv    = "LOUPES_APP_ENV"
	EnvPort      = "LOUPES_APP_PORT"
	EnvPublicURL = "LOUPES_PUBLIC_URL"

	EnvDBDSN  = "LOUPES_DB_DSN"
	EnvDBHost = "LOUPES_DB_HOST"
	EnvDBUser = "LOUPES_DB_USER"
	EnvDBName = "LOUPES_DB_NAME"

	EnvRedisURL = "LOUPES_REDIS_URL"

	EnvCartStorage       = "LOUPES_CART_STORAGE"
	EnvCartTTL           = "LOUPES_CART_TTL"
	EnvCartRetentionDays = "LOUPES_CART_RETENTION_DAYS"

	EnvCatalogPath = "LOUPES_CATALOG_PATH"

	EnvStripeAPIKey = "LOUPES_STRIPE_API_KEY"
	EnvStripeSecret = "LOUPES_STRIPE_SECRET"
	EnvStripeEnv    = "LOUPES_STRIPE_ENV"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
