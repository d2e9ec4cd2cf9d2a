package config

// EnvPrefix namespaces every environment variable read by envconfig.
const EnvPrefix = "PHARMAKART"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv           = "PHARMAKART_APP_ENV"
	EnvPort             = "PHARMAKART_APP_PORT"
	EnvDBDSN            = "PHARMAKART_DB_DSN"
	EnvDBHost           = "PHARMAKART_DB_HOST"
	EnvDBUser           = "PHARMAKART_DB_USER"
	EnvDBName           = "PHARMAKART_DB_NAME"
	EnvRedisURL         = "PHARMAKART_REDIS_URL"
	EnvJWTSecret        = "PHARMAKART_JWT_SECRET"
	EnvJWTIssuer        = "PHARMAKART_JWT_ISSUER"
	EnvJWTExpMins       = "PHARMAKART_JWT_EXPIRATION_MINUTES"
	EnvGCPProjectID     = "PHARMAKART_GCP_PROJECT_ID"
	EnvRazorpayKeyID    = "PHARMAKART_RAZORPAY_KEY_ID"
	EnvRazorpaySecret   = "PHARMAKART_RAZORPAY_KEY_SECRET"
	EnvOrderEventsTopic = "PHARMAKART_PUBSUB_ORDER_EVENTS_TOPIC"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
