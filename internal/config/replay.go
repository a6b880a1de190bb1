package config

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// ReplayConfig holds configuration for the replay command.
type ReplayConfig struct {
	In           string
	Errors       string
	SidecarURL   string
	Decimals     int
	Sink         SinkConfig
	MaxRetries   int
	RetryBackoff time.Duration
	HTTPTimeout  time.Duration
	EventFields  map[string]string
	LogLevel     string
}

// LoadReplay merges config file, environment variables, and flags into ReplayConfig.
func LoadReplay(cfgFile string, flags *pflag.FlagSet) (ReplayConfig, error) {
	v := viper.New()
	setCommonDefaults(v)
	v.SetDefault("sinks", SinkJSONL)
	v.SetDefault("errors", "./data/replay_errors.jsonl")

	if err := readConfig(v, cfgFile, flags); err != nil {
		return ReplayConfig{}, err
	}

	cfg := ReplayConfig{
		In:           v.GetString("in"),
		Errors:       v.GetString("errors"),
		SidecarURL:   v.GetString("sidecar-url"),
		Decimals:     v.GetInt("decimals"),
		Sink:         loadSinkConfig(v),
		MaxRetries:   v.GetInt("max-retries"),
		RetryBackoff: v.GetDuration("retry-backoff"),
		HTTPTimeout:  v.GetDuration("http-timeout"),
		EventFields:  getStringMap(v, "event-fields"),
		LogLevel:     v.GetString("log-level"),
	}

	return cfg, nil
}

// Validate checks the settings replay cannot start without.
func (c ReplayConfig) Validate() error {
	if c.In == "" {
		return fmt.Errorf("in is required")
	}
	if c.Decimals < 0 {
		return fmt.Errorf("decimals must not be negative, got %d", c.Decimals)
	}
	return c.Sink.Validate()
}
