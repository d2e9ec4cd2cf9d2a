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
	Password     PasswordConfig
	FeatureFlags FeatureFlagsConfig
	Eventing     EventingConfig
	Razorpay     RazorpayConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
	Delivery     DeliveryConfig
	Stock        StockConfig
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
	Env          string `envconfig:"PHARMAKART_APP_ENV" required:"true"`
	Port         string `envconfig:"PHARMAKART_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"PHARMAKART_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"PHARMAKART_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"PHARMAKART_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"PHARMAKART_DB_DSN"`
	Driver string `envconfig:"PHARMAKART_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"PHARMAKART_DB_HOST"`
	LegacyPort     int    `envconfig:"PHARMAKART_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"PHARMAKART_DB_USER"`
	LegacyPassword string `envconfig:"PHARMAKART_DB_PASSWORD"`
	LegacyName     string `envconfig:"PHARMAKART_DB_NAME"`
	LegacySSLMode  string `envconfig:"PHARMAKART_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"PHARMAKART_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"PHARMAKART_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"PHARMAKART_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"PHARMAKART_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"PHARMAKART_REDIS_URL" required:"true"`
	Address      string        `envconfig:"PHARMAKART_REDIS_ADDR"`
	Password     string        `envconfig:"PHARMAKART_REDIS_PASSWORD"`
	DB           int           `envconfig:"PHARMAKART_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"PHARMAKART_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"PHARMAKART_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"PHARMAKART_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"PHARMAKART_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"PHARMAKART_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"PHARMAKART_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"PHARMAKART_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"PHARMAKART_JWT_EXPIRATION_MINUTES" required:"true"`
}

type PasswordConfig struct {
	ArgonMemoryKB    uint32 `envconfig:"PHARMAKART_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        uint32 `envconfig:"PHARMAKART_ARGON_TIME" default:"3"`
	ArgonParallelism int    `envconfig:"PHARMAKART_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     uint32 `envconfig:"PHARMAKART_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      uint32 `envconfig:"PHARMAKART_ARGON_KEY_LEN" default:"32"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"PHARMAKART_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"PHARMAKART_AUTO_MIGRATE" default:"false"`
}

type EventingConfig struct {
	OutboxIdempotencyTTL time.Duration `envconfig:"PHARMAKART_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
}

type RazorpayConfig struct {
	KeyID     string        `envconfig:"PHARMAKART_RAZORPAY_KEY_ID" required:"true"`
	KeySecret string        `envconfig:"PHARMAKART_RAZORPAY_KEY_SECRET" required:"true"`
	Timeout   time.Duration `envconfig:"PHARMAKART_RAZORPAY_TIMEOUT" default:"10s"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"PHARMAKART_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"PHARMAKART_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"PHARMAKART_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	OrderEventsTopic        string `envconfig:"PHARMAKART_PUBSUB_ORDER_EVENTS_TOPIC" default:"pk-order-events"`
	OrderEventsSubscription string `envconfig:"PHARMAKART_PUBSUB_ORDER_EVENTS_SUBSCRIPTION"`
	DeadLetterTopic         string `envconfig:"PHARMAKART_PUBSUB_DEAD_LETTER_TOPIC" default:"pk-order-events-dlq"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"PHARMAKART_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"PHARMAKART_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"PHARMAKART_OUTBOX_MAX_ATTEMPTS" default:"10"`
	RetentionDays  int `envconfig:"PHARMAKART_OUTBOX_RETENTION_DAYS" default:"30"`
}

type DeliveryConfig struct {
	OTPTTL time.Duration `envconfig:"PHARMAKART_DELIVERY_OTP_TTL" default:"10m"`
}

type StockConfig struct {
	LowStockThreshold int `envconfig:"PHARMAKART_STOCK_LOW_THRESHOLD" default:"20"`
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
