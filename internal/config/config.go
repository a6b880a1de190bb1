package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Sink names accepted in the sinks list.
const (
	SinkMixpanel = "mixpanel"
	SinkPostgres = "postgres"
	SinkJSONL    = "jsonl"
	SinkNATS     = "nats"
)

// SinkConfig selects and configures the analytics sinks.
type SinkConfig struct {
	Sinks          []string
	MixpanelToken  string
	MixpanelAPIURL string
	PGDSN          string
	NATSURL        string
	NATSStream     string
	NATSSubject    string
	Out            string
}

// Config holds configuration for the run command.
type Config struct {
	NodeURL        string
	SidecarURL     string
	Decimals       int
	Sink           SinkConfig
	MetricsAddr    string
	MaxRetries     int
	RetryBackoff   time.Duration
	HTTPTimeout    time.Duration
	MaxGap         uint64
	ReconnectDelay time.Duration
	MaxReconnects  int
	EventFields    map[string]string
	LogLevel       string
}

// Load merges config file, environment variables, and flags into Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	setCommonDefaults(v)
	v.SetDefault("max-gap", uint64(256))
	v.SetDefault("reconnect-delay", 2*time.Second)
	v.SetDefault("max-reconnects", 10)

	if err := readConfig(v, cfgFile, flags); err != nil {
		return Config{}, err
	}

	cfg := Config{
		NodeURL:        v.GetString("node-url"),
		SidecarURL:     v.GetString("sidecar-url"),
		Decimals:       v.GetInt("decimals"),
		Sink:           loadSinkConfig(v),
		MetricsAddr:    v.GetString("metrics-addr"),
		MaxRetries:     v.GetInt("max-retries"),
		RetryBackoff:   v.GetDuration("retry-backoff"),
		HTTPTimeout:    v.GetDuration("http-timeout"),
		MaxGap:         v.GetUint64("max-gap"),
		ReconnectDelay: v.GetDuration("reconnect-delay"),
		MaxReconnects:  v.GetInt("max-reconnects"),
		EventFields:    getStringMap(v, "event-fields"),
		LogLevel:       v.GetString("log-level"),
	}

	return cfg, nil
}

// Validate checks the settings the run command cannot start without.
func (c Config) Validate() error {
	if c.NodeURL == "" {
		return fmt.Errorf("node-url is required")
	}
	if c.SidecarURL == "" {
		return fmt.Errorf("sidecar-url is required")
	}
	if c.Decimals < 0 {
		return fmt.Errorf("decimals must not be negative, got %d", c.Decimals)
	}
	return c.Sink.Validate()
}

// Validate checks that every selected sink is known and configured.
func (c SinkConfig) Validate() error {
	if len(c.Sinks) == 0 {
		return fmt.Errorf("at least one sink is required")
	}
	for _, name := range c.Sinks {
		switch name {
		case SinkMixpanel:
			if c.MixpanelToken == "" {
				return fmt.Errorf("mixpanel sink requires mixpanel-token")
			}
		case SinkPostgres:
			if c.PGDSN == "" {
				return fmt.Errorf("postgres sink requires pg-dsn")
			}
		case SinkJSONL:
			if c.Out == "" {
				return fmt.Errorf("jsonl sink requires out")
			}
		case SinkNATS:
			if c.NATSStream == "" {
				return fmt.Errorf("nats sink requires nats-stream")
			}
		default:
			return fmt.Errorf("unknown sink %q", name)
		}
	}
	return nil
}

func setCommonDefaults(v *viper.Viper) {
	v.SetEnvPrefix("TRACKER")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("mixpanel-token", "TRACKER_MIXPANEL_TOKEN", "MIX_PANEL_PROJECT_TOKEN")

	v.SetDefault("decimals", 12)
	v.SetDefault("sinks", SinkMixpanel)
	v.SetDefault("mixpanel-api-url", "https://api.mixpanel.com")
	v.SetDefault("nats-stream", "TRACKER")
	v.SetDefault("nats-subject", "tracker.analytics")
	v.SetDefault("out", "./data/analytics.jsonl")
	v.SetDefault("max-retries", 5)
	v.SetDefault("retry-backoff", 500*time.Millisecond)
	v.SetDefault("http-timeout", 10*time.Second)
	v.SetDefault("log-level", "info")
}

func readConfig(v *viper.Viper, cfgFile string, flags *pflag.FlagSet) error {
	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config: %w", err)
		}
		return nil
	}

	v.SetConfigName("config")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("read config: %w", err)
		}
	}
	return nil
}

func loadSinkConfig(v *viper.Viper) SinkConfig {
	return SinkConfig{
		Sinks:          getStringSlice(v, "sinks"),
		MixpanelToken:  v.GetString("mixpanel-token"),
		MixpanelAPIURL: v.GetString("mixpanel-api-url"),
		PGDSN:          v.GetString("pg-dsn"),
		NATSURL:        v.GetString("nats-url"),
		NATSStream:     v.GetString("nats-stream"),
		NATSSubject:    v.GetString("nats-subject"),
		Out:            v.GetString("out"),
	}
}

func getStringSlice(v *viper.Viper, key string) []string {
	if !v.IsSet(key) {
		return nil
	}

	val := v.Get(key)
	switch typed := val.(type) {
	case []string:
		return cleanStrings(typed)
	case string:
		return splitAndClean(typed)
	case []interface{}:
		items := make([]string, 0, len(typed))
		for _, item := range typed {
			items = append(items, fmt.Sprintf("%v", item))
		}
		return cleanStrings(items)
	default:
		return nil
	}
}

// getStringMap reads a map from a config file table or from a
// "key=value;key=value" string. List values are joined with commas.
func getStringMap(v *viper.Viper, key string) map[string]string {
	if !v.IsSet(key) {
		return map[string]string{}
	}

	val := v.Get(key)
	switch typed := val.(type) {
	case map[string]string:
		return typed
	case map[string]interface{}:
		out := make(map[string]string, len(typed))
		for k, item := range typed {
			if list, ok := item.([]interface{}); ok {
				parts := make([]string, 0, len(list))
				for _, p := range list {
					parts = append(parts, fmt.Sprintf("%v", p))
				}
				out[k] = strings.Join(parts, ",")
				continue
			}
			out[k] = fmt.Sprintf("%v", item)
		}
		return out
	case string:
		return parseStringMap(typed)
	default:
		return map[string]string{}
	}
}

func parseStringMap(input string) map[string]string {
	out := make(map[string]string)
	if strings.TrimSpace(input) == "" {
		return out
	}
	pairs := strings.Split(input, ";")
	for _, pair := range pairs {
		parts := strings.SplitN(pair, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		if key == "" || value == "" {
			continue
		}
		out[key] = value
	}
	return out
}

func splitAndClean(input string) []string {
	if input == "" {
		return nil
	}
	parts := strings.Split(input, ",")
	return cleanStrings(parts)
}

func cleanStrings(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}
