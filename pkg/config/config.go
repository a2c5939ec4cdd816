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
	Lockout       LockoutConfig
	AuthRateLimit AuthRateLimitConfig
	Notifications NotificationsConfig
	Logs          LogsConfig
	Cron          CronConfig
	FeatureFlags  FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"USERFORGE_APP_ENV" required:"true"`
	Port         string `envconfig:"USERFORGE_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"USERFORGE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"USERFORGE_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"USERFORGE_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"USERFORGE_DB_DSN"`
	Driver string `envconfig:"USERFORGE_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"USERFORGE_DB_HOST"`
	LegacyPort     int    `envconfig:"USERFORGE_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"USERFORGE_DB_USER"`
	LegacyPassword string `envconfig:"USERFORGE_DB_PASSWORD"`
	LegacyName     string `envconfig:"USERFORGE_DB_NAME"`
	LegacySSLMode  string `envconfig:"USERFORGE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"USERFORGE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"USERFORGE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"USERFORGE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"USERFORGE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"USERFORGE_REDIS_URL" required:"true"`
	Address      string        `envconfig:"USERFORGE_REDIS_ADDR"`
	Password     string        `envconfig:"USERFORGE_REDIS_PASSWORD"`
	DB           int           `envconfig:"USERFORGE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"USERFORGE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"USERFORGE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"USERFORGE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"USERFORGE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"USERFORGE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"USERFORGE_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"USERFORGE_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"USERFORGE_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenTTLMinutes int    `envconfig:"USERFORGE_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
	ResetTokenTTLMinutes   int    `envconfig:"USERFORGE_RESET_TOKEN_TTL_MINUTES" default:"30"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

// ResetTokenTTL returns how long password reset tokens stay valid.
func (j JWTConfig) ResetTokenTTL() time.Duration {
	if j.ResetTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.ResetTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"USERFORGE_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"USERFORGE_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"USERFORGE_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"USERFORGE_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"USERFORGE_ARGON_KEY_LEN" default:"32"`
}

// LockoutConfig governs the failed-login counter and account lock window.
type LockoutConfig struct {
	MaxFailedAttempts int           `envconfig:"USERFORGE_LOCKOUT_MAX_FAILED_ATTEMPTS" default:"5"`
	LockDuration      time.Duration `envconfig:"USERFORGE_LOCKOUT_DURATION" default:"15m"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"USERFORGE_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"USERFORGE_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"USERFORGE_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"USERFORGE_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"USERFORGE_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"USERFORGE_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

// NotificationsConfig tunes the dispatch worker.
type NotificationsConfig struct {
	DispatchBatchSize int `envconfig:"USERFORGE_NOTIFICATIONS_DISPATCH_BATCH_SIZE" default:"50"`
	DefaultMaxRetries int `envconfig:"USERFORGE_NOTIFICATIONS_DEFAULT_MAX_RETRIES" default:"3"`
}

// LogsConfig controls audit log retention.
type LogsConfig struct {
	RetentionDays int `envconfig:"USERFORGE_LOG_RETENTION_DAYS" default:"90"`
}

type CronConfig struct {
	Interval time.Duration `envconfig:"USERFORGE_CRON_INTERVAL" default:"1m"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"USERFORGE_AUTO_MIGRATE" default:"false"`
	SeedRBAC    bool `envconfig:"USERFORGE_SEED_RBAC" default:"true"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
