package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env  string
	Port int

	Database   DatabaseConfig
	Redis      RedisConfig
	Log        LogConfig
	Rating     RatingConfig
	Compliance ComplianceConfig
	Dashboard  DashboardConfig
	Scheduler  SchedulerConfig
	Mail       MailConfig
}

type DatabaseConfig struct {
	Host             string
	Port             int
	User             string
	Password         string
	Name             string
	SSLMode          string
	MaxOpenConns     int
	MaxIdleConns     int
	StatementTimeout time.Duration
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

type LogConfig struct {
	Level  string
	Format string
}

// RatingConfig holds the inclusive lower bounds of the rating description bands.
type RatingConfig struct {
	Excellent    float64
	Satisfactory float64
	BelowAverage float64
}

// ComplianceConfig governs deadline evaluation and attendance credit.
type ComplianceConfig struct {
	GracePeriod      time.Duration
	OnTimeAttendance float64
	LateAttendance   float64
}

// DashboardConfig governs dashboard read models and their cache.
type DashboardConfig struct {
	CacheTTL          time.Duration
	PerformanceTarget float64
}

// SchedulerConfig controls the batch runner cadence.
type SchedulerConfig struct {
	SyncInterval       time.Duration
	ComplianceInterval time.Duration
	Workers            int
	Retries            int
}

// MailConfig configures permission-window alert delivery.
type MailConfig struct {
	Enabled       bool
	Host          string
	Port          int
	User          string
	Password      string
	From          string
	SkipTLSVerify bool
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !isMissingFile(err) {
			return nil, err
		}
	}

	return fromViper(v), nil
}

func fromViper(v *viper.Viper) *Config {
	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")

	cfg.Database = DatabaseConfig{
		Host:             v.GetString("DB_HOST"),
		Port:             v.GetInt("DB_PORT"),
		User:             v.GetString("DB_USER"),
		Password:         v.GetString("DB_PASSWORD"),
		Name:             v.GetString("DB_NAME"),
		SSLMode:          v.GetString("DB_SSL_MODE"),
		MaxOpenConns:     v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns:     v.GetInt("DB_MAX_IDLE_CONNS"),
		StatementTimeout: parseDuration(v.GetString("DB_STATEMENT_TIMEOUT"), 5*time.Second),
	}

	cfg.Redis = RedisConfig{
		Enabled:  v.GetBool("ENABLE_REDIS"),
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Rating = RatingConfig{
		Excellent:    v.GetFloat64("RATING_BAND_EXCELLENT"),
		Satisfactory: v.GetFloat64("RATING_BAND_SATISFACTORY"),
		BelowAverage: v.GetFloat64("RATING_BAND_BELOW_AVERAGE"),
	}

	cfg.Compliance = ComplianceConfig{
		GracePeriod:      parseDuration(v.GetString("COMPLIANCE_GRACE_PERIOD"), 7*24*time.Hour),
		OnTimeAttendance: v.GetFloat64("ATTENDANCE_ON_TIME"),
		LateAttendance:   v.GetFloat64("ATTENDANCE_LATE"),
	}

	cfg.Dashboard = DashboardConfig{
		CacheTTL:          parseDuration(v.GetString("DASHBOARD_CACHE_TTL"), 5*time.Minute),
		PerformanceTarget: v.GetFloat64("PERFORMANCE_TARGET"),
	}

	cfg.Scheduler = SchedulerConfig{
		SyncInterval:       parseDuration(v.GetString("SYNC_INTERVAL"), 15*time.Minute),
		ComplianceInterval: parseDuration(v.GetString("COMPLIANCE_INTERVAL"), time.Hour),
		Workers:            v.GetInt("SCHEDULER_WORKERS"),
		Retries:            v.GetInt("SCHEDULER_RETRIES"),
	}

	cfg.Mail = MailConfig{
		Enabled:       v.GetBool("ENABLE_PERMISSION_ALERTS"),
		Host:          v.GetString("SMTP_HOST"),
		Port:          v.GetInt("SMTP_PORT"),
		User:          v.GetString("SMTP_USER"),
		Password:      v.GetString("SMTP_PASS"),
		From:          v.GetString("SMTP_FROM"),
		SkipTLSVerify: v.GetBool("SMTP_SKIP_TLS_VERIFY"),
	}

	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 9090)

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "csat_survey")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_STATEMENT_TIMEOUT", "5s")

	v.SetDefault("ENABLE_REDIS", false)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("RATING_BAND_EXCELLENT", 91.0)
	v.SetDefault("RATING_BAND_SATISFACTORY", 75.0)
	v.SetDefault("RATING_BAND_BELOW_AVERAGE", 70.0)

	v.SetDefault("COMPLIANCE_GRACE_PERIOD", "168h")
	v.SetDefault("ATTENDANCE_ON_TIME", 100.0)
	v.SetDefault("ATTENDANCE_LATE", 95.0)

	v.SetDefault("DASHBOARD_CACHE_TTL", "5m")
	v.SetDefault("PERFORMANCE_TARGET", 80.0)

	v.SetDefault("SYNC_INTERVAL", "15m")
	v.SetDefault("COMPLIANCE_INTERVAL", "1h")
	v.SetDefault("SCHEDULER_WORKERS", 1)
	v.SetDefault("SCHEDULER_RETRIES", 3)

	v.SetDefault("ENABLE_PERMISSION_ALERTS", false)
	v.SetDefault("SMTP_HOST", "")
	v.SetDefault("SMTP_PORT", 587)
	v.SetDefault("SMTP_USER", "")
	v.SetDefault("SMTP_PASS", "")
	v.SetDefault("SMTP_FROM", "")
	v.SetDefault("SMTP_SKIP_TLS_VERIFY", false)
}

func isMissingFile(err error) bool {
	return strings.Contains(err.Error(), "no such file or directory")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}
