package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"go.uber.org/multierr"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	Eventing     EventingConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	BigQuery     BigQueryConfig
	Stripe       StripeConfig
	Outbox       OutboxConfig
	Cron         CronConfig
	Reports      ReportsConfig
	HTTP         HTTPConfig
	RateLimit    RateLimitConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	dsn, err := cfg.DB.resolveDSN()
	if err != nil {
		return nil, err
	}
	cfg.DB.DSN = dsn
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"TOOLYARD_APP_ENV" required:"true"`
	Port         string `envconfig:"TOOLYARD_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"TOOLYARD_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"TOOLYARD_LOG_WARN_STACK" default:"false"`
	LogFormat    string `envconfig:"TOOLYARD_LOG_FORMAT" default:"json"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"TOOLYARD_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN string `envconfig:"TOOLYARD_DB_DSN"`

	// Discrete parts build the DSN when TOOLYARD_DB_DSN is unset.
	Host     string `envconfig:"TOOLYARD_DB_HOST"`
	Port     int    `envconfig:"TOOLYARD_DB_PORT" default:"5432"`
	User     string `envconfig:"TOOLYARD_DB_USER"`
	Password string `envconfig:"TOOLYARD_DB_PASSWORD"`
	Name     string `envconfig:"TOOLYARD_DB_NAME"`
	SSLMode  string `envconfig:"TOOLYARD_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"TOOLYARD_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"TOOLYARD_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"TOOLYARD_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"TOOLYARD_DB_CONN_MAX_IDLE_TIME" default:"10m"`
	// SlowQuery is the duration above which statements are logged at warn.
	SlowQuery time.Duration `envconfig:"TOOLYARD_DB_SLOW_QUERY" default:"500ms"`
}

type RedisConfig struct {
	URL          string        `envconfig:"TOOLYARD_REDIS_URL" required:"true"`
	Address      string        `envconfig:"TOOLYARD_REDIS_ADDR"`
	Password     string        `envconfig:"TOOLYARD_REDIS_PASSWORD"`
	DB           int           `envconfig:"TOOLYARD_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"TOOLYARD_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"TOOLYARD_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"TOOLYARD_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"TOOLYARD_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"TOOLYARD_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// JWTConfig describes how bearer tokens minted by the identity provider are verified.
type JWTConfig struct {
	Secret            string `envconfig:"TOOLYARD_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"TOOLYARD_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"TOOLYARD_JWT_EXPIRATION_MINUTES" default:"60"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"TOOLYARD_AUTO_MIGRATE" default:"false"`
	// StrictPaymentTransitions rejects status edits outside the transition table.
	StrictPaymentTransitions bool `envconfig:"TOOLYARD_STRICT_PAYMENT_TRANSITIONS" default:"true"`
	// ManualPaymentStatus exposes the stripe update-status fallback endpoint.
	ManualPaymentStatus bool `envconfig:"TOOLYARD_MANUAL_PAYMENT_STATUS" default:"true"`
}

type EventingConfig struct {
	OutboxIdempotencyTTL  time.Duration `envconfig:"TOOLYARD_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
	WebhookIdempotencyTTL time.Duration `envconfig:"TOOLYARD_WEBHOOK_IDEMPOTENCY_TTL" default:"72h"`
	NotificationDedupeTTL time.Duration `envconfig:"TOOLYARD_NOTIFICATION_DEDUPE_TTL" default:"168h"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"TOOLYARD_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"TOOLYARD_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"TOOLYARD_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	OrdersTopic           string `envconfig:"TOOLYARD_PUBSUB_ORDERS_TOPIC" default:"ty-order-events"`
	NotificationTopic     string `envconfig:"TOOLYARD_PUBSUB_NOTIFICATION_TOPIC" default:"ty-notification-events"`
	AnalyticsTopic        string `envconfig:"TOOLYARD_PUBSUB_ANALYTICS_TOPIC" default:"ty-analytics-events"`
	AnalyticsSubscription string `envconfig:"TOOLYARD_PUBSUB_ANALYTICS_SUBSCRIPTION" default:"ty-analytics-events-sub"`
}

type BigQueryConfig struct {
	Dataset         string `envconfig:"TOOLYARD_BIGQUERY_DATASET" default:"toolyard"`
	SalesEventTable string `envconfig:"TOOLYARD_BIGQUERY_SALES_TABLE" default:"sales_events"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"TOOLYARD_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"TOOLYARD_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"TOOLYARD_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

type CronConfig struct {
	Interval        time.Duration `envconfig:"TOOLYARD_CRON_INTERVAL" default:"15m"`
	LockKey         string        `envconfig:"TOOLYARD_CRON_LOCK_KEY" default:"ty:cron:lock"`
	LockTTL         time.Duration `envconfig:"TOOLYARD_CRON_LOCK_TTL" default:"14m"`
	JobTimeout      time.Duration `envconfig:"TOOLYARD_CRON_JOB_TIMEOUT" default:"10m"`
	PaymentSyncPage int           `envconfig:"TOOLYARD_CRON_PAYMENT_SYNC_PAGE" default:"200"`
}

type ReportsConfig struct {
	// Location is the IANA zone used to cut calendar buckets.
	Location string `envconfig:"TOOLYARD_REPORTS_LOCATION" default:"UTC"`
}

// HTTPConfig holds browser-facing API settings.
type HTTPConfig struct {
	AllowedOrigins []string      `envconfig:"TOOLYARD_CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
	CORSMaxAge     time.Duration `envconfig:"TOOLYARD_CORS_MAX_AGE" default:"5m"`
}

// RateLimitConfig throttles the write endpoints that move order and payment
// state. A zero limit disables the policy.
type RateLimitConfig struct {
	Window        time.Duration `envconfig:"TOOLYARD_RATE_LIMIT_WINDOW" default:"1m"`
	RespondLimit  int           `envconfig:"TOOLYARD_RATE_LIMIT_RESPOND" default:"30"`
	PaymentsLimit int           `envconfig:"TOOLYARD_RATE_LIMIT_PAYMENTS" default:"60"`
}

type StripeConfig struct {
	APIKey   string `envconfig:"TOOLYARD_STRIPE_API_KEY"`
	Secret   string `envconfig:"TOOLYARD_STRIPE_SECRET"`
	Env      string `envconfig:"TOOLYARD_STRIPE_ENV" default:"test"`
	Currency string `envconfig:"TOOLYARD_STRIPE_CURRENCY" default:"lkr"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

func (db DBConfig) resolveDSN() (string, error) {
	if db.DSN != "" {
		return db.DSN, nil
	}

	var missing []string
	for env, v := range map[string]string{EnvDBHost: db.Host, EnvDBUser: db.User, EnvDBName: db.Name} {
		if v == "" {
			missing = append(missing, env)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return "", fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   url.User(db.User),
		Host:   net.JoinHostPort(db.Host, strconv.Itoa(db.Port)),
		Path:   db.Name,
	}
	if db.Password != "" {
		u.User = url.UserPassword(db.User, db.Password)
	}
	if db.SSLMode != "" {
		u.RawQuery = url.Values{"sslmode": {db.SSLMode}}.Encode()
	}
	return u.String(), nil
}

// validate checks cross-field rules envconfig tags cannot express.
func (c *Config) validate() error {
	var err error
	if _, locErr := time.LoadLocation(c.Reports.Location); locErr != nil {
		err = multierr.Append(err, fmt.Errorf("TOOLYARD_REPORTS_LOCATION: %w", locErr))
	}
	if env := c.Stripe.Environment(); env != "test" && env != "live" {
		err = multierr.Append(err, fmt.Errorf("TOOLYARD_STRIPE_ENV must be test or live, got %q", env))
	}
	if c.JWT.ExpirationMinutes <= 0 {
		err = multierr.Append(err, errors.New("TOOLYARD_JWT_EXPIRATION_MINUTES must be positive"))
	}
	if c.Cron.LockTTL > c.Cron.Interval {
		err = multierr.Append(err, fmt.Errorf("TOOLYARD_CRON_LOCK_TTL %s exceeds TOOLYARD_CRON_INTERVAL %s", c.Cron.LockTTL, c.Cron.Interval))
	}
	if c.Outbox.MaxAttempts <= 0 {
		err = multierr.Append(err, errors.New("TOOLYARD_OUTBOX_MAX_ATTEMPTS must be positive"))
	}
	return err
}
