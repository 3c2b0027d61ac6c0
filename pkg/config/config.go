package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "BIZDIRECT"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "BIZDIRECT_DB_DSN"
	EnvDBHost = "BIZDIRECT_DB_HOST"
	EnvDBUser = "BIZDIRECT_DB_USER"
	EnvDBName = "BIZDIRECT_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App           AppConfig
	Service       ServiceConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	Invitations   InvitationsConfig
	Cron          CronConfig
	Eventing      EventingConfig
	GCP           GCPConfig
	PubSub        PubSubConfig
	Outbox        OutboxConfig
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
	Env          string `envconfig:"BIZDIRECT_APP_ENV" required:"true"`
	Port         string `envconfig:"BIZDIRECT_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"BIZDIRECT_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"BIZDIRECT_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"BIZDIRECT_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"BIZDIRECT_DB_DSN"`
	Driver string `envconfig:"BIZDIRECT_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"BIZDIRECT_DB_HOST"`
	LegacyPort     int    `envconfig:"BIZDIRECT_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"BIZDIRECT_DB_USER"`
	LegacyPassword string `envconfig:"BIZDIRECT_DB_PASSWORD"`
	LegacyName     string `envconfig:"BIZDIRECT_DB_NAME"`
	LegacySSLMode  string `envconfig:"BIZDIRECT_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"BIZDIRECT_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"BIZDIRECT_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"BIZDIRECT_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"BIZDIRECT_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"BIZDIRECT_REDIS_URL" required:"true"`
	Address      string        `envconfig:"BIZDIRECT_REDIS_ADDR"`
	Password     string        `envconfig:"BIZDIRECT_REDIS_PASSWORD"`
	DB           int           `envconfig:"BIZDIRECT_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"BIZDIRECT_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"BIZDIRECT_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"BIZDIRECT_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"BIZDIRECT_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"BIZDIRECT_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"BIZDIRECT_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"BIZDIRECT_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"BIZDIRECT_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenTTLMinutes int    `envconfig:"BIZDIRECT_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"BIZDIRECT_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"BIZDIRECT_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"BIZDIRECT_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"BIZDIRECT_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"BIZDIRECT_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow     time.Duration `envconfig:"BIZDIRECT_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit int           `envconfig:"BIZDIRECT_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit    int           `envconfig:"BIZDIRECT_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"BIZDIRECT_AUTO_MIGRATE" default:"false"`
}

// InvitationsConfig tunes the manager invitation lifecycle.
type InvitationsConfig struct {
	TTL        time.Duration `envconfig:"BIZDIRECT_INVITATION_TTL" default:"168h"`
	TokenBytes int           `envconfig:"BIZDIRECT_INVITATION_TOKEN_BYTES" default:"32"`
}

type CronConfig struct {
	Interval time.Duration `envconfig:"BIZDIRECT_CRON_INTERVAL" default:"1h"`
}

type EventingConfig struct {
	OutboxIdempotencyTTL time.Duration `envconfig:"BIZDIRECT_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"BIZDIRECT_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"BIZDIRECT_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"BIZDIRECT_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	DomainTopic        string `envconfig:"BIZDIRECT_PUBSUB_DOMAIN_TOPIC" default:"bd-domain-events"`
	DomainSubscription string `envconfig:"BIZDIRECT_PUBSUB_DOMAIN_SUBSCRIPTION" required:"true"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"BIZDIRECT_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"BIZDIRECT_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"BIZDIRECT_OUTBOX_MAX_ATTEMPTS" default:"10"`
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
