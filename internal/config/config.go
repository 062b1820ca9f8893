package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"go.uber.org/fx"
)

var Module = fx.Module("config",
	fx.Provide(Load),
)

var ErrInvalidConfig = errors.New("invalid_config")

type Config struct {
	AppName     string
	Environment string
	HTTPAddr    string
	StaticDir   string

	Database   DatabaseConfig
	Redis      RedisConfig
	Admin      AdminConfig
	Tapfiliate TapfiliateConfig
	Earnings   EarningsConfig
	Stripe     StripeConfig
	Mailing    MailingListConfig
	Tasks      TaskConfig
	Scheduler  SchedulerConfig

	WebhookRetentionDays int
	SnowflakeNode        int64
}

type DatabaseConfig struct {
	Driver string // "postgres" or "sqlite"
	DSN    string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type AdminConfig struct {
	// PasswordHash is a bcrypt hash. Password is only used when no hash is set.
	PasswordHash string
	Password     string

	SessionTTL       time.Duration
	LoginMaxAttempts int
	LoginWindow      time.Duration
}

type TapfiliateConfig struct {
	BaseURL   string
	APIKey    string
	ProgramID string
	PageSize  int
	MaxPages  int
	Timeout   time.Duration
}

// Configured reports whether the affiliate network can be called at all.
func (c TapfiliateConfig) Configured() bool {
	return strings.TrimSpace(c.APIKey) != "" && strings.TrimSpace(c.ProgramID) != ""
}

type EarningsConfig struct {
	CommissionRate float64
	FeePercent     float64
	FeeFixed       float64
	SourceTag      string
}

type StripeConfig struct {
	WebhookSecret    string
	WebhookTolerance time.Duration
}

type MailingListConfig struct {
	Endpoint string
	APIKey   string
	ListID   string
	Timeout  time.Duration
}

func (c MailingListConfig) Enabled() bool {
	return strings.TrimSpace(c.Endpoint) != "" && strings.TrimSpace(c.APIKey) != ""
}

type TaskConfig struct {
	Workers     int
	QueueSize   int
	MaxAttempts int
	Backoff     time.Duration
}

type SchedulerConfig struct {
	Enabled          bool
	EarningsInterval time.Duration
	CleanupInterval  time.Duration
}

// Load reads configuration from the environment, optionally seeded by a .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	setDefaults(v)

	cfg := Config{
		AppName:     v.GetString("APP_NAME"),
		Environment: v.GetString("APP_ENV"),
		HTTPAddr:    v.GetString("HTTP_ADDR"),
		StaticDir:   v.GetString("STATIC_DIR"),
		Database: DatabaseConfig{
			Driver:          strings.ToLower(v.GetString("DB_DRIVER")),
			DSN:             v.GetString("DATABASE_URL"),
			MaxOpenConns:    v.GetInt("DB_MAX_OPEN_CONNS"),
			MaxIdleConns:    v.GetInt("DB_MAX_IDLE_CONNS"),
			ConnMaxLifetime: v.GetDuration("DB_CONN_MAX_LIFETIME"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("REDIS_ADDR"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		Admin: AdminConfig{
			PasswordHash:     v.GetString("ADMIN_PASSWORD_HASH"),
			Password:         v.GetString("ADMIN_PASSWORD"),
			SessionTTL:       v.GetDuration("ADMIN_SESSION_TTL"),
			LoginMaxAttempts: v.GetInt("ADMIN_LOGIN_MAX_ATTEMPTS"),
			LoginWindow:      v.GetDuration("ADMIN_LOGIN_WINDOW"),
		},
		Tapfiliate: TapfiliateConfig{
			BaseURL:   strings.TrimRight(v.GetString("TAPFILIATE_BASE_URL"), "/"),
			APIKey:    v.GetString("TAPFILIATE_API_KEY"),
			ProgramID: v.GetString("TAPFILIATE_PROGRAM_ID"),
			PageSize:  v.GetInt("TAPFILIATE_PAGE_SIZE"),
			MaxPages:  v.GetInt("TAPFILIATE_MAX_PAGES"),
			Timeout:   v.GetDuration("TAPFILIATE_TIMEOUT"),
		},
		Earnings: EarningsConfig{
			CommissionRate: v.GetFloat64("COMMISSION_RATE"),
			FeePercent:     v.GetFloat64("PROCESSOR_FEE_PERCENT"),
			FeeFixed:       v.GetFloat64("PROCESSOR_FEE_FIXED"),
			SourceTag:      v.GetString("EARNINGS_SOURCE_TAG"),
		},
		Stripe: StripeConfig{
			WebhookSecret:    v.GetString("STRIPE_WEBHOOK_SECRET"),
			WebhookTolerance: v.GetDuration("STRIPE_WEBHOOK_TOLERANCE"),
		},
		Mailing: MailingListConfig{
			Endpoint: v.GetString("MAILING_LIST_ENDPOINT"),
			APIKey:   v.GetString("MAILING_LIST_API_KEY"),
			ListID:   v.GetString("MAILING_LIST_ID"),
			Timeout:  v.GetDuration("MAILING_LIST_TIMEOUT"),
		},
		Tasks: TaskConfig{
			Workers:     v.GetInt("TASK_WORKERS"),
			QueueSize:   v.GetInt("TASK_QUEUE_SIZE"),
			MaxAttempts: v.GetInt("TASK_MAX_ATTEMPTS"),
			Backoff:     v.GetDuration("TASK_BACKOFF"),
		},
		Scheduler: SchedulerConfig{
			Enabled:          v.GetBool("SCHEDULER_ENABLED"),
			EarningsInterval: v.GetDuration("SCHEDULER_EARNINGS_INTERVAL"),
			CleanupInterval:  v.GetDuration("SCHEDULER_CLEANUP_INTERVAL"),
		},
		WebhookRetentionDays: v.GetInt("WEBHOOK_RETENTION_DAYS"),
		SnowflakeNode:        v.GetInt64("SNOWFLAKE_NODE"),
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_NAME", "partnerops")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("HTTP_ADDR", ":8080")

	v.SetDefault("DB_DRIVER", "postgres")
	v.SetDefault("DATABASE_URL", "host=localhost user=postgres password=postgres dbname=partnerops port=5432 sslmode=disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 20)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_CONN_MAX_LIFETIME", 30*time.Minute)

	v.SetDefault("REDIS_ADDR", "localhost:6379")

	v.SetDefault("ADMIN_SESSION_TTL", 12*time.Hour)
	v.SetDefault("ADMIN_LOGIN_MAX_ATTEMPTS", 5)
	v.SetDefault("ADMIN_LOGIN_WINDOW", 15*time.Minute)

	v.SetDefault("TAPFILIATE_BASE_URL", "https://api.tapfiliate.com/1.6")
	v.SetDefault("TAPFILIATE_PAGE_SIZE", 25)
	v.SetDefault("TAPFILIATE_MAX_PAGES", 100)
	v.SetDefault("TAPFILIATE_TIMEOUT", 15*time.Second)

	v.SetDefault("COMMISSION_RATE", 0.35)
	v.SetDefault("PROCESSOR_FEE_PERCENT", 0.029)
	v.SetDefault("PROCESSOR_FEE_FIXED", 0.30)
	v.SetDefault("EARNINGS_SOURCE_TAG", "tapfiliate")

	v.SetDefault("STRIPE_WEBHOOK_TOLERANCE", 5*time.Minute)

	v.SetDefault("MAILING_LIST_TIMEOUT", 10*time.Second)

	v.SetDefault("TASK_WORKERS", 2)
	v.SetDefault("TASK_QUEUE_SIZE", 256)
	v.SetDefault("TASK_MAX_ATTEMPTS", 3)
	v.SetDefault("TASK_BACKOFF", 2*time.Second)

	v.SetDefault("SCHEDULER_ENABLED", true)
	v.SetDefault("SCHEDULER_EARNINGS_INTERVAL", 6*time.Hour)
	v.SetDefault("SCHEDULER_CLEANUP_INTERVAL", 24*time.Hour)

	v.SetDefault("WEBHOOK_RETENTION_DAYS", 90)
	v.SetDefault("SNOWFLAKE_NODE", 1)
}

func (c Config) Validate() error {
	if c.Earnings.CommissionRate < 0 || c.Earnings.CommissionRate > 1 {
		return errors.Join(ErrInvalidConfig, errors.New("COMMISSION_RATE must be within [0,1]"))
	}
	if c.Earnings.FeePercent < 0 || c.Earnings.FeePercent >= 1 {
		return errors.Join(ErrInvalidConfig, errors.New("PROCESSOR_FEE_PERCENT must be within [0,1)"))
	}
	if c.Earnings.FeeFixed < 0 {
		return errors.Join(ErrInvalidConfig, errors.New("PROCESSOR_FEE_FIXED must not be negative"))
	}
	if c.Tapfiliate.PageSize <= 0 || c.Tapfiliate.MaxPages <= 0 {
		return errors.Join(ErrInvalidConfig, errors.New("TAPFILIATE_PAGE_SIZE and TAPFILIATE_MAX_PAGES must be positive"))
	}
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return errors.Join(ErrInvalidConfig, errors.New("DB_DRIVER must be postgres or sqlite"))
	}
	return nil
}
