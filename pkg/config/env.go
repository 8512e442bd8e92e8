package config

// EnvPrefix is empty because every field carries its fully qualified variable name.
const EnvPrefix = ""

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv           = "WEDDONE_APP_ENV"
	EnvPort             = "WEDDONE_APP_PORT"
	EnvDBDSN            = "WEDDONE_DB_DSN"
	EnvDBHost           = "WEDDONE_DB_HOST"
	EnvDBUser           = "WEDDONE_DB_USER"
	EnvDBName           = "WEDDONE_DB_NAME"
	EnvDBPassword       = "WEDDONE_DB_PASSWORD"
	EnvRedisURL         = "WEDDONE_REDIS_URL"
	EnvJWTSecret        = "WEDDONE_JWT_SECRET"
	EnvJWTIssuer        = "WEDDONE_JWT_ISSUER"
	EnvGuestSessionTTL  = "WEDDONE_GUEST_SESSION_TTL"
	EnvGCPProjectID     = "WEDDONE_GCP_PROJECT_ID"
	EnvBookingTopic     = "WEDDONE_PUBSUB_BOOKING_TOPIC"
	EnvGuestCountTopic  = "WEDDONE_PUBSUB_GUEST_COUNT_TOPIC"
	EnvSquareLocationID = "WEDDONE_SQUARE_LOCATION_ID"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
