package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Guest        GuestConfig
	FeatureFlags FeatureFlagsConfig
	Square       SquareConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
	Maintenance  MaintenanceConfig
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
	Env          string `envconfig:"WEDDONE_APP_ENV" required:"true"`
	Port         string `envconfig:"WEDDONE_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"WEDDONE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"WEDDONE_LOG_WARN_STACK" default:"false"`
	LogFormat    string `envconfig:"WEDDONE_LOG_FORMAT" default:"json"`

	// Comma separated; empty disables CORS handling.
	CORSOrigins []string `envconfig:"WEDDONE_CORS_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"WEDDONE_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"WEDDONE_DB_DSN"`
	Driver string `envconfig:"WEDDONE_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"WEDDONE_DB_HOST"`
	LegacyPort     int    `envconfig:"WEDDONE_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"WEDDONE_DB_USER"`
	LegacyPassword string `envconfig:"WEDDONE_DB_PASSWORD"`
	LegacyName     string `envconfig:"WEDDONE_DB_NAME"`
	LegacySSLMode  string `envconfig:"WEDDONE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"WEDDONE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"WEDDONE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"WEDDONE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"WEDDONE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"WEDDONE_REDIS_URL" required:"true"`
	Address      string        `envconfig:"WEDDONE_REDIS_ADDR"`
	Password     string        `envconfig:"WEDDONE_REDIS_PASSWORD"`
	DB           int           `envconfig:"WEDDONE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"WEDDONE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"WEDDONE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"WEDDONE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"WEDDONE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"WEDDONE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// JWTConfig verifies tokens minted by the identity provider; this service never issues them.
type JWTConfig struct {
	Secret   string        `envconfig:"WEDDONE_JWT_SECRET" required:"true"`
	Issuer   string        `envconfig:"WEDDONE_JWT_ISSUER" required:"true"`
	Leeway   time.Duration `envconfig:"WEDDONE_JWT_LEEWAY" default:"30s"`
	Audience string        `envconfig:"WEDDONE_JWT_AUDIENCE"`
}

// GuestConfig governs the transient storage used before sign-up.
type GuestConfig struct {
	SessionTTL     time.Duration `envconfig:"WEDDONE_GUEST_SESSION_TTL" default:"720h"`
	IdempotencyTTL time.Duration `envconfig:"WEDDONE_IDEMPOTENCY_TTL" default:"24h"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"WEDDONE_AUTO_MIGRATE" default:"false"`
	// LockOnCheckout latches the guest count when a qualifying module is paid.
	LockOnCheckout bool `envconfig:"WEDDONE_FEATURE_LOCK_ON_CHECKOUT" default:"true"`
}

type SquareConfig struct {
	AccessToken string `envconfig:"WEDDONE_SQUARE_ACCESS_TOKEN"`
	Env         string `envconfig:"WEDDONE_SQUARE_ENV" default:"sandbox"`
	LocationID  string `envconfig:"WEDDONE_SQUARE_LOCATION_ID"`
	Currency    string `envconfig:"WEDDONE_SQUARE_CURRENCY" default:"USD"`
}

// Environment returns the normalized Square environment (sandbox/production).
func (s SquareConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "sandbox"
	}
	return env
}

type GCPConfig struct {
	ProjectID       string `envconfig:"WEDDONE_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON string `envconfig:"WEDDONE_GCP_CREDENTIALS_JSON"`
}

type PubSubConfig struct {
	BookingTopic        string `envconfig:"WEDDONE_PUBSUB_BOOKING_TOPIC" required:"true"`
	BookingSubscription string `envconfig:"WEDDONE_PUBSUB_BOOKING_SUBSCRIPTION"`
	GuestCountTopic     string `envconfig:"WEDDONE_PUBSUB_GUEST_COUNT_TOPIC" required:"true"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"WEDDONE_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"WEDDONE_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"WEDDONE_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

// MaintenanceConfig drives cmd/cron-worker.
type MaintenanceConfig struct {
	Interval        time.Duration `envconfig:"WEDDONE_MAINTENANCE_INTERVAL" default:"24h"`
	OutboxRetention time.Duration `envconfig:"WEDDONE_OUTBOX_RETENTION" default:"720h"`
	DLQRetention    time.Duration `envconfig:"WEDDONE_DLQ_RETENTION" default:"2160h"`
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
