package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Ledger       LedgerConfig
	FeatureFlags FeatureFlagsConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	BigQuery     BigQueryConfig
	Outbox       OutboxConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Ledger.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"BIOVAULT_APP_ENV" required:"true"`
	Port         string `envconfig:"BIOVAULT_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"BIOVAULT_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"BIOVAULT_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"BIOVAULT_SERVICE_KIND" default:"ledger"`
}

type DBConfig struct {
	DSN    string `envconfig:"BIOVAULT_DB_DSN"`
	Driver string `envconfig:"BIOVAULT_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"BIOVAULT_DB_HOST"`
	Port     int    `envconfig:"BIOVAULT_DB_PORT" default:"5432"`
	User     string `envconfig:"BIOVAULT_DB_USER"`
	Password string `envconfig:"BIOVAULT_DB_PASSWORD"`
	Name     string `envconfig:"BIOVAULT_DB_NAME"`
	SSLMode  string `envconfig:"BIOVAULT_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"BIOVAULT_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"BIOVAULT_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"BIOVAULT_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"BIOVAULT_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

// LedgerConfig carries the economic parameters fixed at system construction.
// Commission is bounded to 30 percent and refunds to 100 percent; values
// outside those bounds are a boundary violation at startup.
type LedgerConfig struct {
	AdminID            string `envconfig:"BIOVAULT_LEDGER_ADMIN_ID" required:"true" validate:"required,uuid4_rfc4122|uuid_rfc4122"`
	CommissionRate     uint64 `envconfig:"BIOVAULT_LEDGER_COMMISSION_RATE" default:"5" validate:"lte=30"`
	RefundRate         uint64 `envconfig:"BIOVAULT_LEDGER_REFUND_RATE" default:"50" validate:"lte=100"`
	UnitPrice          uint64 `envconfig:"BIOVAULT_LEDGER_UNIT_PRICE" default:"100" validate:"gt=0"`
	GlobalCeiling      uint64 `envconfig:"BIOVAULT_LEDGER_GLOBAL_CEILING" default:"1000000" validate:"gt=0"`
	IndividualCapacity uint64 `envconfig:"BIOVAULT_LEDGER_INDIVIDUAL_CAPACITY" default:"5000" validate:"gt=0"`
}

var ledgerValidator = validator.New()

// Validate enforces the configured bounds before the ledger core is built.
func (l LedgerConfig) Validate() error {
	if err := ledgerValidator.Struct(l); err != nil {
		return fmt.Errorf("ledger config out of bounds: %w", err)
	}
	return nil
}

// Admin parses the configured administrator identity.
func (l LedgerConfig) Admin() (uuid.UUID, error) {
	id, err := uuid.Parse(l.AdminID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("parsing admin id: %w", err)
	}
	return id, nil
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"BIOVAULT_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"BIOVAULT_AUTO_MIGRATE" default:"false"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"BIOVAULT_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"BIOVAULT_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"BIOVAULT_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	LedgerTopic           string `envconfig:"BIOVAULT_PUBSUB_LEDGER_TOPIC" default:"bv-ledger-events"`
	LedgerSubscription    string `envconfig:"BIOVAULT_PUBSUB_LEDGER_SUBSCRIPTION"`
	AnalyticsTopic        string `envconfig:"BIOVAULT_PUBSUB_ANALYTICS_TOPIC" default:"bv-analytics-events"`
	AnalyticsSubscription string `envconfig:"BIOVAULT_PUBSUB_ANALYTICS_SUBSCRIPTION"`
}

type BigQueryConfig struct {
	Dataset            string `envconfig:"BIOVAULT_BIGQUERY_DATASET" default:"biovault"`
	DailyMetricsTable  string `envconfig:"BIOVAULT_BIGQUERY_DAILY_METRICS_TABLE" default:"daily_metrics"`
	MetricsEventsTable string `envconfig:"BIOVAULT_BIGQUERY_METRICS_EVENTS_TABLE" default:"metrics_events"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"BIOVAULT_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"BIOVAULT_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"BIOVAULT_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	values := map[string]string{
		EnvDBHost: db.Host,
		EnvDBUser: db.User,
		EnvDBName: db.Name,
	}
	for _, env := range requiredDBEnvVars {
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
