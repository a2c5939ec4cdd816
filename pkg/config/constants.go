package config

// EnvPrefix is the envconfig prefix shared by every binary.
const EnvPrefix = "userforge"

const (
	AppEnvDev  = "development"
	AppEnvProd = "production"
)

// Canonical environment variable names, kept in one place so tests and
// deployment manifests reference the same strings.
const (
	EnvAppEnv   = "USERFORGE_APP_ENV"
	EnvPort     = "USERFORGE_APP_PORT"
	EnvDBDSN    = "USERFORGE_DB_DSN"
	EnvDBHost   = "USERFORGE_DB_HOST"
	EnvDBUser   = "USERFORGE_DB_USER"
	EnvDBName   = "USERFORGE_DB_NAME"
	EnvRedisURL = "USERFORGE_REDIS_URL"

	EnvJWTSecret              = "USERFORGE_JWT_SECRET"
	EnvJWTIssuer              = "USERFORGE_JWT_ISSUER"
	EnvJWTExpMins             = "USERFORGE_JWT_EXPIRATION_MINUTES"
	EnvRefreshTokenTTLMinutes = "USERFORGE_REFRESH_TOKEN_TTL_MINUTES"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
