package config

// EnvPrefix namespaces every variable read by Load.
const EnvPrefix = "CELLAR"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "production"

	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	defaultSQLiteDSN = "file:cellar.db?_busy_timeout=5000"
)

const (
	EnvAppEnv    = "CELLAR_APP_ENV"
	EnvPort      = "CELLAR_APP_PORT"
	EnvLogLevel  = "CELLAR_LOG_LEVEL"
	EnvLogFormat = "CELLAR_LOG_FORMAT"

	EnvDBDSN    = "CELLAR_DB_DSN"
	EnvDBDriver = "CELLAR_DB_DRIVER"
	EnvDBHost   = "CELLAR_DB_HOST"
	EnvDBPort   = "CELLAR_DB_PORT"
	EnvDBUser   = "CELLAR_DB_USER"
	EnvDBPass   = "CELLAR_DB_PASSWORD"
	EnvDBName   = "CELLAR_DB_NAME"

	EnvRedisURL = "CELLAR_REDIS_URL"

	EnvJWTSecret              = "CELLAR_JWT_SECRET"
	EnvJWTIssuer              = "CELLAR_JWT_ISSUER"
	EnvJWTExpMins             = "CELLAR_JWT_EXPIRATION_MINUTES"
	EnvRefreshTokenTTLMinutes = "CELLAR_REFRESH_TOKEN_TTL_MINUTES"

	EnvUseSQLite         = "CELLAR_USE_SQLITE"
	EnvAutoMigrate       = "CELLAR_AUTO_MIGRATE"
	EnvLowStockThreshold = "CELLAR_LOW_STOCK_THRESHOLD"
	EnvCronInterval      = "CELLAR_CRON_INTERVAL"
)

var discreteDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
