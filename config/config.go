// Package config loads the engine configuration from a YAML file and
// FOLIO_-prefixed environment variables.
package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Log       LogConfig       `mapstructure:"log"`
	DB        DBConfig        `mapstructure:"db"`
	EODHD     EODHDConfig     `mapstructure:"eodhd"`
	Cron      CronConfig      `mapstructure:"cron"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Portfolio PortfolioConfig `mapstructure:"portfolio"`
	Factor    FactorConfig    `mapstructure:"factor"`
	Risk      RiskConfig      `mapstructure:"risk"`
}

type AppConfig struct {
	Env string `mapstructure:"env"`
}

type LogConfig struct {
	Level       string `mapstructure:"level"`
	Encoding    string `mapstructure:"encoding"`
	Development bool   `mapstructure:"development"`
}

type DBConfig struct {
	DSN          string        `mapstructure:"dsn"`
	MaxConns     int           `mapstructure:"max_conns"`
	ConnLifetime time.Duration `mapstructure:"conn_lifetime"`
}

type EODHDConfig struct {
	APIKey     string        `mapstructure:"api_key"`
	BaseURL    string        `mapstructure:"base_url"`
	Timeout    time.Duration `mapstructure:"timeout"`
	MinSpacing time.Duration `mapstructure:"min_spacing"`
}

type CronConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	FactorJob   string `mapstructure:"factor_job"`
	SnapshotJob string `mapstructure:"snapshot_job"`
}

type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

type PortfolioConfig struct {
	// LedgerFile is the JSONL transaction log of the portfolio.
	LedgerFile string `mapstructure:"ledger_file"`
}

type FactorConfig struct {
	LookbackDays    int `mapstructure:"lookback_days"`
	MinObservations int `mapstructure:"min_observations"`
}

type RiskConfig struct {
	Targets        map[string]float64 `mapstructure:"targets"`
	DriftThreshold float64            `mapstructure:"drift_threshold"`
	DefaultRegime  string             `mapstructure:"default_regime"`
}

// Load reads the config file at path, layering FOLIO_-prefixed environment
// variables on top. With envOnly set the file is not read at all.
func Load(path string, envOnly bool) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("FOLIO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.AutomaticEnv()

	v.SetDefault("app.env", "dev")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "console")
	v.SetDefault("log.development", true)
	v.SetDefault("db.dsn", "")
	v.SetDefault("db.max_conns", 10)
	v.SetDefault("db.conn_lifetime", "30m")
	v.SetDefault("eodhd.api_key", "")
	v.SetDefault("eodhd.base_url", "https://eodhd.com")
	v.SetDefault("eodhd.timeout", "30s")
	v.SetDefault("eodhd.min_spacing", "250ms")
	v.SetDefault("cron.enabled", true)
	v.SetDefault("cron.factor_job", "0 30 6 * * *")
	v.SetDefault("cron.snapshot_job", "0 0 7 * * *")
	v.SetDefault("metrics.addr", ":9090")
	v.SetDefault("portfolio.ledger_file", "ledger.jsonl")
	v.SetDefault("factor.lookback_days", 60)
	v.SetDefault("factor.min_observations", 10)
	v.SetDefault("risk.targets", map[string]float64{"market": 1.0, "size": 0.15, "value": 0.0})
	v.SetDefault("risk.drift_threshold", 0.1)
	v.SetDefault("risk.default_regime", "slowdown")

	if !envOnly {
		if err := v.ReadInConfig(); err != nil {
			return Config{}, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
