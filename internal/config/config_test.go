package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoad_ReadsYAMLAndAppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
exchange:
  api_key: key-from-file
  api_secret: secret-from-file
limits:
  max_chunks: 20
database:
  in_memory: true
  conn_max_lifetime: 30m
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Exchange.APIKey != "key-from-file" || cfg.Exchange.APISecret != "secret-from-file" {
		t.Errorf("unexpected credentials: %+v", cfg.Exchange)
	}
	if !cfg.Exchange.Testnet {
		t.Errorf("expected testnet default true")
	}
	if cfg.Exchange.BaseURL != "https://testnet.binancefuture.com" {
		t.Errorf("unexpected base url %q", cfg.Exchange.BaseURL)
	}
	if cfg.Limits.MaxChunks != 20 {
		t.Errorf("expected max_chunks=20, got %d", cfg.Limits.MaxChunks)
	}
	if cfg.Limits.MaxIntervalSeconds != 300 {
		t.Errorf("expected default max_interval_seconds=300, got %d", cfg.Limits.MaxIntervalSeconds)
	}
	if cfg.Limits.MinQuantity != 0.001 || cfg.Limits.MaxQuantity != 1000 {
		t.Errorf("unexpected quantity bounds: %+v", cfg.Limits)
	}
	if cfg.Database.ConnMaxLifetime != 30*time.Minute {
		t.Errorf("expected conn_max_lifetime=30m, got %s", cfg.Database.ConnMaxLifetime)
	}
}

func TestLoad_LegacyCredentialEnv(t *testing.T) {
	t.Setenv("BINANCE_API_KEY", "env-key")
	t.Setenv("BINANCE_API_SECRET", "env-secret")

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("app:\n  environment: test\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !cfg.Exchange.HasCredentials() {
		t.Fatalf("expected credentials from env, got %+v", cfg.Exchange)
	}
	if cfg.Exchange.APIKey != "env-key" {
		t.Errorf("expected env-key, got %q", cfg.Exchange.APIKey)
	}
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err == nil {
		t.Fatalf("expected error for missing explicit config file")
	}
}

func TestValidate_AggregatesProblems(t *testing.T) {
	cfg := Config{
		Exchange: ExchangeConfig{Name: "binanceusdm", BaseURL: "ftp://nope"},
		Limits: LimitsConfig{
			MinQuantity: 5,
			MaxQuantity: 1,
			PriceScale:  8,
		},
		Logging: LoggingConfig{
			Level:            "info",
			Encoding:         "console",
			OutputPaths:      []string{"stderr"},
			ErrorOutputPaths: []string{"stderr"},
		},
	}

	err := cfg.Validate()
	if err == nil {
		t.Fatalf("expected validation error")
	}

	for _, want := range []string{
		"app.environment",
		"exchange.base_url",
		"min_quantity 不能大于",
		"limits.max_chunks",
		"limits.max_interval_seconds",
	} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("expected error to mention %q, got %v", want, err)
		}
	}
}
