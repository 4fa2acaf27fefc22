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
	DB           DBConfig
	Redis        RedisConfig
	FeatureFlags FeatureFlagsConfig
	Cart         CartConfig
	Catalog      CatalogConfig
	Checkout     CheckoutConfig
	Stripe       StripeConfig
	CORS         CORSConfig
	Cron         CronConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Cart.validate(); err != nil {
		return nil, err
	}
	if cfg.FeatureFlags.UseSQLite {
		return &cfg, nil
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"LOUPES_APP_ENV" required:"true"`
	Port         string `envconfig:"LOUPES_APP_PORT" required:"true"`
	PublicURL    string `envconfig:"LOUPES_PUBLIC_URL" default:"http://localhost:3000"`
	LogLevel     string `envconfig:"LOUPES_LOG_LEVEL" default:"info"`
	LogFormat    string `envconfig:"LOUPES_LOG_FORMAT" default:"json"`
	LogWarnStack bool   `envconfig:"LOUPES_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN        string `envconfig:"LOUPES_DB_DSN"`
	SQLitePath string `envconfig:"LOUPES_DB_SQLITE_PATH" default:"loupes.db"`

	LegacyHost     string `envconfig:"LOUPES_DB_HOST"`
	LegacyPort     int    `envconfig:"LOUPES_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"LOUPES_DB_USER"`
	LegacyPassword string `envconfig:"LOUPES_DB_PASSWORD"`
	LegacyName     string `envconfig:"LOUPES_DB_NAME"`
	LegacySSLMode  string `envconfig:"LOUPES_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"LOUPES_DB_MAX_OPEN_CONNS" default:"10"`
	MaxIdleConns    int           `envconfig:"LOUPES_DB_MAX_IDLE_CONNS" default:"5"`
	ConnMaxLifetime time.Duration `envconfig:"LOUPES_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"LOUPES_DB_CONN_MAX_IDLE_TIME" default:"10m"`
	// SlowQuery logs statements slower than this at warn level. Zero disables it.
	SlowQuery time.Duration `envconfig:"LOUPES_DB_SLOW_QUERY" default:"200ms"`
}

type RedisConfig struct {
	URL          string        `envconfig:"LOUPES_REDIS_URL" required:"true"`
	Address      string        `envconfig:"LOUPES_REDIS_ADDR"`
	Password     string        `envconfig:"LOUPES_REDIS_PASSWORD"`
	DB           int           `envconfig:"LOUPES_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"LOUPES_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"LOUPES_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"LOUPES_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"LOUPES_REDIS_READ_TIMEOUT" default:"3s"`
	WriteTimeout time.Duration `envconfig:"LOUPES_REDIS_WRITE_TIMEOUT" default:"3s"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"LOUPES_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"LOUPES_AUTO_MIGRATE" default:"false"`
	// CartEventsRelay fans cart change signals out over redis pub/sub so every API instance can notify its SSE clients.
	CartEventsRelay bool `envconfig:"LOUPES_CART_EVENTS_RELAY" default:"true"`
}

// Cart storage backends.
const (
	CartStorageRedis  = "redis"
	CartStorageDB     = "db"
	CartStorageMemory = "memory"
)

type CartConfig struct {
	Storage       string        `envconfig:"LOUPES_CART_STORAGE" default:"redis"`
	TTL           time.Duration `envconfig:"LOUPES_CART_TTL" default:"720h"`
	RetentionDays int           `envconfig:"LOUPES_CART_RETENTION_DAYS" default:"30"`
	CookieName    string        `envconfig:"LOUPES_CART_COOKIE_NAME" default:"ls_cart"`
	CookieSecure  bool          `envconfig:"LOUPES_CART_COOKIE_SECURE" default:"true"`
}

func (c CartConfig) validate() error {
	switch strings.ToLower(strings.TrimSpace(c.Storage)) {
	case CartStorageRedis, CartStorageDB, CartStorageMemory:
		return nil
	default:
		return fmt.Errorf("%s must be one of %s, %s, %s", EnvCartStorage, CartStorageRedis, CartStorageDB, CartStorageMemory)
	}
}

// Backend returns the normalized storage backend name.
func (c CartConfig) Backend() string {
	return strings.ToLower(strings.TrimSpace(c.Storage))
}

type CatalogConfig struct {
	// Path optionally points at a YAML file replacing the embedded catalog.
	Path string `envconfig:"LOUPES_CATALOG_PATH"`
}

type CheckoutConfig struct {
	FlagsTTL    time.Duration `envconfig:"LOUPES_CHECKOUT_FLAGS_TTL" default:"2h"`
	SuccessPath string        `envconfig:"LOUPES_CHECKOUT_SUCCESS_PATH" default:"/checkout/success?session_id={CHECKOUT_SESSION_ID}"`
	CancelPath  string        `envconfig:"LOUPES_CHECKOUT_CANCEL_PATH" default:"/cart"`
	Currency    string        `envconfig:"LOUPES_CHECKOUT_CURRENCY" default:"usd"`
}

// SuccessURL joins the public site URL with the configured success path.
func (c CheckoutConfig) SuccessURL(publicURL string) string {
	return joinURL(publicURL, c.SuccessPath)
}

// CancelURL joins the public site URL with the configured cancel path.
func (c CheckoutConfig) CancelURL(publicURL string) string {
	return joinURL(publicURL, c.CancelPath)
}

type StripeConfig struct {
	APIKey string `envconfig:"LOUPES_STRIPE_API_KEY"`
	Secret string `envconfig:"LOUPES_STRIPE_SECRET"`
	Env    string `envconfig:"LOUPES_STRIPE_ENV" default:"test"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"LOUPES_CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
}

type CronConfig struct {
	Interval time.Duration `envconfig:"LOUPES_CRON_INTERVAL" default:"24h"`
}

func joinURL(base, path string) string {
	base = strings.TrimRight(strings.TrimSpace(base), "/")
	path = strings.TrimSpace(path)
	if path == "" {
		return base
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return base + path
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
