package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/spf13/pflag"
)

func TestLoadDefaultsAndEnv(t *testing.T) {
	t.Setenv("TRACKER_NODE_URL", "ws://node:9944")
	t.Setenv("TRACKER_SINKS", "mixpanel, jsonl")
	t.Setenv("MIX_PANEL_PROJECT_TOKEN", "token-123")

	cfg, err := Load("", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.NodeURL != "ws://node:9944" || cfg.Decimals != 12 || cfg.MaxGap != 256 {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if !reflect.DeepEqual(cfg.Sink.Sinks, []string{"mixpanel", "jsonl"}) {
		t.Fatalf("unexpected sinks %v", cfg.Sink.Sinks)
	}
	if cfg.Sink.MixpanelToken != "token-123" {
		t.Fatalf("legacy token variable not honoured, got %q", cfg.Sink.MixpanelToken)
	}
	if cfg.RetryBackoff != 500*time.Millisecond {
		t.Fatalf("unexpected backoff %v", cfg.RetryBackoff)
	}
}

func TestLoadFlagsAndFieldOverrides(t *testing.T) {
	flags := pflag.NewFlagSet("run", pflag.ContinueOnError)
	flags.String("sidecar-url", "", "")
	flags.String("event-fields", "", "")
	flags.Int("decimals", 12, "")
	if err := flags.Parse([]string{
		"--sidecar-url=http://sidecar:8080",
		"--event-fields=balances.Transfer=sender,receiver,value;system.ExtrinsicFailed=dispatchError",
		"--decimals=18",
	}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}

	cfg, err := Load("", flags)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.SidecarURL != "http://sidecar:8080" || cfg.Decimals != 18 {
		t.Fatalf("flags not applied: %+v", cfg)
	}
	want := map[string]string{
		"balances.Transfer":      "sender,receiver,value",
		"system.ExtrinsicFailed": "dispatchError",
	}
	if !reflect.DeepEqual(cfg.EventFields, want) {
		t.Fatalf("unexpected event fields %v", cfg.EventFields)
	}
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tracker.yaml")
	content := `
node-url: ws://file:9944
sinks: [postgres]
pg-dsn: postgres://localhost/tracker
event-fields:
  balances.Transfer: [a, b, c]
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.NodeURL != "ws://file:9944" || cfg.Sink.PGDSN != "postgres://localhost/tracker" {
		t.Fatalf("file not applied: %+v", cfg)
	}
	if cfg.EventFields["balances.transfer"] != "a,b,c" && cfg.EventFields["balances.Transfer"] != "a,b,c" {
		t.Fatalf("unexpected event fields %v", cfg.EventFields)
	}
}

func TestValidate(t *testing.T) {
	cfg := Config{
		NodeURL:    "ws://node",
		SidecarURL: "http://sidecar",
		Sink:       SinkConfig{Sinks: []string{SinkMixpanel}},
	}
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected error for missing mixpanel token")
	}
	cfg.Sink.MixpanelToken = "token"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cfg.Sink.Sinks = append(cfg.Sink.Sinks, "kafka")
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected error for unknown sink")
	}

	if err := (ReplayConfig{Sink: SinkConfig{Sinks: []string{SinkJSONL}, Out: "x"}}).Validate(); err == nil {
		t.Fatalf("expected error for missing input")
	}
}

func TestValidateDecimals(t *testing.T) {
	cfg := Config{
		NodeURL:    "ws://node",
		SidecarURL: "http://sidecar",
		Sink:       SinkConfig{Sinks: []string{SinkJSONL}, Out: "x"},
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("zero decimals should be accepted: %v", err)
	}
	cfg.Decimals = -1
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected error for negative decimals")
	}

	replay := ReplayConfig{In: "blocks.jsonl", Decimals: -3, Sink: cfg.Sink}
	if err := replay.Validate(); err == nil {
		t.Fatalf("expected error for negative replay decimals")
	}
}

func TestLoadReplayDefaultsToJSONL(t *testing.T) {
	cfg, err := LoadReplay("", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(cfg.Sink.Sinks, []string{SinkJSONL}) || cfg.Errors == "" {
		t.Fatalf("unexpected replay config %+v", cfg)
	}
}
