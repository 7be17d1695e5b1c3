package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App           AppConfig
	Service       ServiceConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	Ledger        LedgerConfig
	Cron          CronConfig
	CORS          CORSConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if cfg.FeatureFlags.UseSQLite {
		cfg.DB.Driver = DriverSQLite
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"CELLAR_APP_ENV" required:"true"`
	Port         string `envconfig:"CELLAR_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"CELLAR_LOG_LEVEL" default:"info"`
	LogFormat    string `envconfig:"CELLAR_LOG_FORMAT" default:"json"`
	LogWarnStack bool   `envconfig:"CELLAR_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"CELLAR_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"CELLAR_DB_DSN"`
	Driver string `envconfig:"CELLAR_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"CELLAR_DB_HOST"`
	Port     int    `envconfig:"CELLAR_DB_PORT" default:"5432"`
	User     string `envconfig:"CELLAR_DB_USER"`
	Password string `envconfig:"CELLAR_DB_PASSWORD"`
	Name     string `envconfig:"CELLAR_DB_NAME"`
	SSLMode  string `envconfig:"CELLAR_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"CELLAR_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"CELLAR_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"CELLAR_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"CELLAR_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

// IsSQLite reports whether the configured driver is the embedded SQLite engine.
func (db DBConfig) IsSQLite() bool {
	return strings.EqualFold(strings.TrimSpace(db.Driver), DriverSQLite)
}

type RedisConfig struct {
	URL          string        `envconfig:"CELLAR_REDIS_URL" required:"true"`
	Address      string        `envconfig:"CELLAR_REDIS_ADDR"`
	Password     string        `envconfig:"CELLAR_REDIS_PASSWORD"`
	DB           int           `envconfig:"CELLAR_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"CELLAR_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"CELLAR_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"CELLAR_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"CELLAR_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"CELLAR_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"CELLAR_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"CELLAR_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"CELLAR_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenTTLMinutes int    `envconfig:"CELLAR_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"CELLAR_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"CELLAR_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"CELLAR_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"CELLAR_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"CELLAR_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow           time.Duration `envconfig:"CELLAR_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginUsernameLimit    int           `envconfig:"CELLAR_AUTH_RATE_LIMIT_LOGIN_USERNAME_LIMIT" default:"5"`
	LoginIPLimit          int           `envconfig:"CELLAR_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow        time.Duration `envconfig:"CELLAR_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterUsernameLimit int           `envconfig:"CELLAR_AUTH_RATE_LIMIT_REGISTER_USERNAME_LIMIT" default:"3"`
	RegisterIPLimit       int           `envconfig:"CELLAR_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"CELLAR_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"CELLAR_AUTO_MIGRATE" default:"false"`
}

type LedgerConfig struct {
	LowStockThreshold int `envconfig:"CELLAR_LOW_STOCK_THRESHOLD" default:"5"`
	ReportWindowDays  int `envconfig:"CELLAR_REPORT_WINDOW_DAYS" default:"30"`
}

type CronConfig struct {
	Interval time.Duration `envconfig:"CELLAR_CRON_INTERVAL" default:"1h"`
	LockTTL  time.Duration `envconfig:"CELLAR_CRON_LOCK_TTL" default:"55m"`
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"CELLAR_CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}
	if db.IsSQLite() {
		db.DSN = defaultSQLiteDSN
		return nil
	}

	missing := []string{}
	values := map[string]string{
		EnvDBHost: db.Host,
		EnvDBUser: db.User,
		EnvDBName: db.Name,
	}
	for _, env := range discreteDBEnvVars {
		if values[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.User)
	if db.Password != "" {
		userInfo = url.UserPassword(db.User, db.Password)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.Host, db.Port),
		Path:   db.Name,
	}

	if db.SSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.SSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
