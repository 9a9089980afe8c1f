package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const envPrefix = "CAPM"

type Config struct {
	Log        LogConfig        `mapstructure:"log"`
	Server     ServerConfig     `mapstructure:"server"`
	MarketData MarketDataConfig `mapstructure:"market_data"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Analysis   AnalysisConfig   `mapstructure:"analysis"`
	SMS        SMSConfig        `mapstructure:"sms"`
	Sync       SyncConfig       `mapstructure:"sync"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

type ServerConfig struct {
	Addr           string        `mapstructure:"addr"`
	CORSOrigins    []string      `mapstructure:"cors_origins"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

type MarketDataConfig struct {
	Provider           string        `mapstructure:"provider"` // yahoo or alphavantage
	AlphaVantageAPIKey string        `mapstructure:"alphavantage_api_key"`
	Timeout            time.Duration `mapstructure:"timeout"`
}

type DatabaseConfig struct {
	URL string `mapstructure:"url"`
}

type StorageConfig struct {
	Bucket          string        `mapstructure:"bucket"`
	Region          string        `mapstructure:"region"`
	Endpoint        string        `mapstructure:"endpoint"`
	PublicBaseURL   string        `mapstructure:"public_base_url"`
	AccessKeyID     string        `mapstructure:"access_key_id"`
	SecretAccessKey string        `mapstructure:"secret_access_key"`
	PresignExpiry   time.Duration `mapstructure:"presign_expiry"` // used when public_base_url is empty
}

type AnalysisConfig struct {
	RollingWindows        []int  `mapstructure:"rolling_windows"`
	HorizonPeriodsPerYear int    `mapstructure:"horizon_periods_per_year"`
	RiskFreePolicy        string `mapstructure:"risk_free_policy"` // drop_row or require
	DailyHorizons         []int  `mapstructure:"daily_horizons"`
	MonthlyHorizons       []int  `mapstructure:"monthly_horizons"`
}

type SMSConfig struct {
	Trigger string `mapstructure:"trigger"`
}

type SyncConfig struct {
	Schedule string        `mapstructure:"schedule"` // cron spec, empty disables
	MaxAge   time.Duration `mapstructure:"max_age"`
}

// Load reads .env, an optional yaml file and CAPM_ prefixed environment variables, in that order of
// increasing precedence. An empty path searches ./config.yaml and ./config/config.yaml
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("error loading .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	overrideFromLegacyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("server.request_timeout", 60*time.Second)

	v.SetDefault("market_data.provider", "yahoo")
	v.SetDefault("market_data.alphavantage_api_key", "")
	v.SetDefault("market_data.timeout", 30*time.Second)

	v.SetDefault("database.url", "")

	v.SetDefault("storage.bucket", "")
	v.SetDefault("storage.region", "us-east-1")
	v.SetDefault("storage.endpoint", "")
	v.SetDefault("storage.public_base_url", "")
	v.SetDefault("storage.access_key_id", "")
	v.SetDefault("storage.secret_access_key", "")
	v.SetDefault("storage.presign_expiry", time.Hour)

	v.SetDefault("analysis.rolling_windows", []int{60, 24, 12, 6})
	v.SetDefault("analysis.horizon_periods_per_year", 12)
	v.SetDefault("analysis.risk_free_policy", "drop_row")
	v.SetDefault("analysis.daily_horizons", []int{1, 2, 3, 4, 5})
	v.SetDefault("analysis.monthly_horizons", []int{1, 5, 10, 20})

	v.SetDefault("sms.trigger", "run my code")

	v.SetDefault("sync.schedule", "")
	v.SetDefault("sync.max_age", 24*time.Hour)
}

// the service predates the CAPM_ prefix, these names still work when the prefixed ones are unset
func overrideFromLegacyEnv(cfg *Config) {
	if cfg.MarketData.AlphaVantageAPIKey == "" {
		cfg.MarketData.AlphaVantageAPIKey = os.Getenv("ALPHAVANTAGE_API_KEY")
	}
	if cfg.Database.URL == "" {
		cfg.Database.URL = os.Getenv("DATABASE_URL")
	}
}

func (cfg *Config) Validate() error {
	switch cfg.MarketData.Provider {
	case "yahoo":
	case "alphavantage":
		if cfg.MarketData.AlphaVantageAPIKey == "" {
			return fmt.Errorf("market_data.alphavantage_api_key is required for the alphavantage provider")
		}
	default:
		return fmt.Errorf("unknown market_data.provider %q, expected yahoo or alphavantage", cfg.MarketData.Provider)
	}

	switch cfg.Analysis.RiskFreePolicy {
	case "drop_row", "require":
	default:
		return fmt.Errorf("unknown analysis.risk_free_policy %q, expected drop_row or require", cfg.Analysis.RiskFreePolicy)
	}

	if cfg.Analysis.HorizonPeriodsPerYear <= 0 {
		return fmt.Errorf("analysis.horizon_periods_per_year must be positive, got %d", cfg.Analysis.HorizonPeriodsPerYear)
	}

	// windows key the rolling series, a repeat would overwrite its twin
	seen := make(map[int]bool, len(cfg.Analysis.RollingWindows))
	for _, w := range cfg.Analysis.RollingWindows {
		if w < 2 {
			return fmt.Errorf("analysis.rolling_windows entries must be at least 2, got %d", w)
		}
		if seen[w] {
			return fmt.Errorf("analysis.rolling_windows lists %d more than once", w)
		}
		seen[w] = true
	}

	if cfg.Storage.PresignExpiry < 0 {
		return fmt.Errorf("storage.presign_expiry cannot be negative, got %s", cfg.Storage.PresignExpiry)
	}

	if strings.TrimSpace(cfg.SMS.Trigger) == "" {
		return fmt.Errorf("sms.trigger cannot be empty")
	}

	return nil
}
