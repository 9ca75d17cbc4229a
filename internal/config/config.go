package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	StoreBolt   = "bolt"
	StoreMemory = "memory"
)

// Config holds configuration values loaded from flags, env, or config file.
type Config struct {
	Store       string
	DBPath      string
	Journal     string
	LogLevel    string
	HTTPAddr    string
	RateLimit   float64
	RateBurst   int
	SwapRateNum uint64
	SwapRateDen uint64
}

// Load merges .env, config file, environment variables, and flags into Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v, err := newViper(cfgFile, flags, func(v *viper.Viper) {
		v.SetDefault("store", StoreBolt)
		v.SetDefault("db-path", "./data/ledger.db")
		v.SetDefault("journal", "./data/events.jsonl")
		v.SetDefault("log-level", "info")
		v.SetDefault("http-addr", ":8080")
		v.SetDefault("rate-limit", 5.0)
		v.SetDefault("rate-burst", 10)
		v.SetDefault("swap-rate-num", uint64(1))
		v.SetDefault("swap-rate-den", uint64(1))
	})
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Store:       strings.ToLower(v.GetString("store")),
		DBPath:      v.GetString("db-path"),
		Journal:     v.GetString("journal"),
		LogLevel:    v.GetString("log-level"),
		HTTPAddr:    v.GetString("http-addr"),
		RateLimit:   v.GetFloat64("rate-limit"),
		RateBurst:   v.GetInt("rate-burst"),
		SwapRateNum: v.GetUint64("swap-rate-num"),
		SwapRateDen: v.GetUint64("swap-rate-den"),
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch c.Store {
	case StoreBolt:
		if c.DBPath == "" {
			return errors.New("db-path is required for the bolt store")
		}
	case StoreMemory:
	default:
		return fmt.Errorf("unknown store %q (want %s or %s)", c.Store, StoreBolt, StoreMemory)
	}
	if c.SwapRateNum == 0 || c.SwapRateDen == 0 {
		return errors.New("swap-rate-num and swap-rate-den must be positive")
	}
	if c.RateLimit <= 0 || c.RateBurst <= 0 {
		return errors.New("rate-limit and rate-burst must be positive")
	}
	return nil
}

// ExportConfig holds configuration for the Postgres snapshot exporter.
type ExportConfig struct {
	PGDSN        string
	Interval     time.Duration
	BatchSize    int
	MaxRetries   int
	RetryBackoff time.Duration
	MaxBackoff   time.Duration
	LogLevel     string
}

// LoadExport merges .env, config file, environment variables, and flags into ExportConfig.
func LoadExport(cfgFile string, flags *pflag.FlagSet) (ExportConfig, error) {
	v, err := newViper(cfgFile, flags, func(v *viper.Viper) {
		v.SetDefault("export-interval", time.Minute)
		v.SetDefault("batch-size", 500)
		v.SetDefault("max-retries", 5)
		v.SetDefault("retry-backoff", 500*time.Millisecond)
		v.SetDefault("max-backoff", 30*time.Second)
		v.SetDefault("log-level", "info")
	})
	if err != nil {
		return ExportConfig{}, err
	}

	cfg := ExportConfig{
		PGDSN:        v.GetString("pg-dsn"),
		Interval:     v.GetDuration("export-interval"),
		BatchSize:    v.GetInt("batch-size"),
		MaxRetries:   v.GetInt("max-retries"),
		RetryBackoff: v.GetDuration("retry-backoff"),
		MaxBackoff:   v.GetDuration("max-backoff"),
		LogLevel:     v.GetString("log-level"),
	}
	if cfg.BatchSize <= 0 {
		return ExportConfig{}, fmt.Errorf("batch-size must be positive, got %d", cfg.BatchSize)
	}
	if cfg.MaxBackoff < cfg.RetryBackoff {
		return ExportConfig{}, fmt.Errorf("max-backoff %s is below retry-backoff %s", cfg.MaxBackoff, cfg.RetryBackoff)
	}
	return cfg, nil
}

func newViper(cfgFile string, flags *pflag.FlagSet, defaults func(*viper.Viper)) (*viper.Viper, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix("EARN")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	defaults(v)

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}
	return v, nil
}
