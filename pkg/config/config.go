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
	HTTP         HTTPConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	Inventory    InventoryConfig
	Currency     CurrencyConfig
	Delivery     DeliveryConfig
	Cron         CronConfig
	Idempotency  IdempotencyConfig
	RateLimit    RateLimitConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(cfg.FeatureFlags.UseSQLite); err != nil {
		return nil, err
	}
	if err := cfg.Inventory.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"STORE_APP_ENV" required:"true"`
	Port         string `envconfig:"STORE_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"STORE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"STORE_LOG_WARN_STACK" default:"false"`
	LogFormat    string `envconfig:"STORE_LOG_FORMAT" default:"json"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// HTTPConfig carries settings only the API process reads.
type HTTPConfig struct {
	// CORSOrigins is a comma separated allow list; empty falls back to the
	// local storefront origins.
	CORSOrigins     []string      `envconfig:"STORE_CORS_ORIGINS"`
	ShutdownTimeout time.Duration `envconfig:"STORE_HTTP_SHUTDOWN_TIMEOUT" default:"15s"`
}

type ServiceConfig struct {
	Kind string `envconfig:"STORE_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"STORE_DB_DSN"`
	Driver string `envconfig:"STORE_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"STORE_DB_HOST"`
	LegacyPort     int    `envconfig:"STORE_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"STORE_DB_USER"`
	LegacyPassword string `envconfig:"STORE_DB_PASSWORD"`
	LegacyName     string `envconfig:"STORE_DB_NAME"`
	LegacySSLMode  string `envconfig:"STORE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"STORE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"STORE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"STORE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"STORE_DB_CONN_MAX_IDLE_TIME" default:"10m"`

	SlowQueryThreshold time.Duration `envconfig:"STORE_DB_SLOW_QUERY_THRESHOLD" default:"500ms"`
	TxAttempts         int           `envconfig:"STORE_DB_TX_ATTEMPTS" default:"3"`
}

type RedisConfig struct {
	URL          string        `envconfig:"STORE_REDIS_URL"`
	Address      string        `envconfig:"STORE_REDIS_ADDR"`
	Password     string        `envconfig:"STORE_REDIS_PASSWORD"`
	DB           int           `envconfig:"STORE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"STORE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"STORE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"STORE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"STORE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"STORE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// Enabled reports whether a redis endpoint was configured.
func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.URL) != "" || strings.TrimSpace(r.Address) != ""
}

type JWTConfig struct {
	Secret            string `envconfig:"STORE_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"STORE_JWT_ISSUER" default:"store-backend"`
	ExpirationMinutes int    `envconfig:"STORE_JWT_EXPIRATION_MINUTES" default:"60"`
}

// Expiration returns the access token lifetime.
func (j JWTConfig) Expiration() time.Duration {
	if j.ExpirationMinutes <= 0 {
		return 0
	}
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"STORE_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"STORE_AUTO_MIGRATE" default:"false"`
}

type InventoryConfig struct {
	DefaultLowStockThreshold int    `envconfig:"STORE_INVENTORY_LOW_STOCK_THRESHOLD" default:"5"`
	DefaultLocation          string `envconfig:"STORE_INVENTORY_DEFAULT_LOCATION" default:"Main Warehouse"`
	BulkBatchSize            int    `envconfig:"STORE_INVENTORY_BULK_BATCH_SIZE" default:"100"`
}

func (i InventoryConfig) validate() error {
	if i.DefaultLowStockThreshold < 0 {
		return fmt.Errorf("%s must be >= 0", EnvInventoryLowStock)
	}
	if i.BulkBatchSize <= 0 {
		return fmt.Errorf("%s must be > 0", EnvInventoryBulkBatch)
	}
	return nil
}

type CurrencyConfig struct {
	Base string `envconfig:"STORE_CURRENCY_BASE" default:"USD"`
}

type DeliveryConfig struct {
	HTTPTimeout time.Duration `envconfig:"STORE_DELIVERY_HTTP_TIMEOUT" default:"15s"`
}

type CronConfig struct {
	Interval   time.Duration `envconfig:"STORE_CRON_INTERVAL" default:"15m"`
	JobTimeout time.Duration `envconfig:"STORE_CRON_JOB_TIMEOUT" default:"10m"`
	LockTTL    time.Duration `envconfig:"STORE_CRON_LOCK_TTL" default:"50m"`
	Jobs       []string      `envconfig:"STORE_CRON_JOBS"`
}

type IdempotencyConfig struct {
	TTL time.Duration `envconfig:"STORE_IDEMPOTENCY_TTL" default:"24h"`
}

// RateLimitConfig throttles order placement per client IP and per customer
// email. A zero limit disables that dimension.
type RateLimitConfig struct {
	CheckoutWindow     time.Duration `envconfig:"STORE_RATE_LIMIT_CHECKOUT_WINDOW" default:"1m"`
	CheckoutIPLimit    int           `envconfig:"STORE_RATE_LIMIT_CHECKOUT_IP" default:"20"`
	CheckoutEmailLimit int           `envconfig:"STORE_RATE_LIMIT_CHECKOUT_EMAIL" default:"5"`
}

func (db *DBConfig) ensureDSN(useSQLite bool) error {
	if db.DSN != "" {
		return nil
	}
	if useSQLite {
		db.DSN = DefaultSQLiteDSN
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
