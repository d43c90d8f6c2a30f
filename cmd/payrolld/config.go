package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/xraph/payroll"
	"github.com/xraph/payroll/notify"
)

// Config is the payrolld configuration file. Every key can be overridden
// by an environment variable: store.dsn becomes PAYROLL_STORE_DSN.
type Config struct {
	Listen  string `mapstructure:"listen"`
	Company string `mapstructure:"company"`

	Log struct {
		Level  string `mapstructure:"level"`
		Format string `mapstructure:"format"`
	} `mapstructure:"log"`

	Store struct {
		// Backend is one of memory, sqlite, postgres or mongo.
		Backend  string `mapstructure:"backend"`
		DSN      string `mapstructure:"dsn"`
		Database string `mapstructure:"database"`
	} `mapstructure:"store"`

	// Redis, when Addr is set, holds idempotency keys and cached results
	// instead of the main store.
	Redis struct {
		Addr     string `mapstructure:"addr"`
		Password string `mapstructure:"password"`
		DB       int    `mapstructure:"db"`
	} `mapstructure:"redis"`

	// Directory is a YAML file of users, employees and salaries. When
	// empty the postgres store serves the directory tables.
	Directory string `mapstructure:"directory"`

	// Audit writes an audit trail of runs and deliveries to the log.
	Audit bool `mapstructure:"audit"`

	SMTP notify.SMTPConfig `mapstructure:"smtp"`

	Payroll struct {
		Concurrency      int           `mapstructure:"concurrency"`
		SendTimeout      time.Duration `mapstructure:"send_timeout"`
		OperationTimeout time.Duration `mapstructure:"operation_timeout"`
		CacheTTL         time.Duration `mapstructure:"cache_ttl"`
		KeyRetention     time.Duration `mapstructure:"key_retention"`
		SendRate         float64       `mapstructure:"send_rate"`
		ReportRoles      []string      `mapstructure:"report_roles"`
		SlipSchedule     string        `mapstructure:"slip_schedule"`
		ReportSchedule   string        `mapstructure:"report_schedule"`
	} `mapstructure:"payroll"`
}

// setDefaults registers every key so AutomaticEnv can override it.
func setDefaults(v *viper.Viper) {
	d := payroll.DefaultConfig()

	v.SetDefault("listen", ":8080")
	v.SetDefault("company", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("store.backend", "sqlite")
	v.SetDefault("store.dsn", "payroll.db")
	v.SetDefault("store.database", "payroll")
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("directory", "")
	v.SetDefault("audit", true)
	v.SetDefault("smtp.host", "")
	v.SetDefault("smtp.port", 587)
	v.SetDefault("smtp.username", "")
	v.SetDefault("smtp.password", "")
	v.SetDefault("smtp.from", "")
	v.SetDefault("payroll.concurrency", d.Concurrency)
	v.SetDefault("payroll.send_timeout", d.SendTimeout)
	v.SetDefault("payroll.operation_timeout", d.OperationTimeout)
	v.SetDefault("payroll.cache_ttl", d.CacheTTL)
	v.SetDefault("payroll.key_retention", d.KeyRetention)
	v.SetDefault("payroll.send_rate", d.SendRate)
	v.SetDefault("payroll.report_roles", d.ReportRoles)
	v.SetDefault("payroll.slip_schedule", d.SlipSchedule)
	v.SetDefault("payroll.report_schedule", d.ReportSchedule)
}

// LoadConfig reads path, when given, and applies PAYROLL_* overrides.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("PAYROLL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return &cfg, nil
}

// PipelineConfig returns the pipeline settings.
func (c *Config) PipelineConfig() payroll.Config {
	p := c.Payroll
	return payroll.Config{
		Concurrency:      p.Concurrency,
		SendTimeout:      p.SendTimeout,
		OperationTimeout: p.OperationTimeout,
		CacheTTL:         p.CacheTTL,
		KeyRetention:     p.KeyRetention,
		SendRate:         p.SendRate,
		ReportRoles:      p.ReportRoles,
		SlipSchedule:     p.SlipSchedule,
		ReportSchedule:   p.ReportSchedule,
	}
}

// Logger builds the process logger.
func (c *Config) Logger() *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	var h slog.Handler
	if strings.EqualFold(c.Log.Format, "json") {
		h = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		h = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(h)
}
