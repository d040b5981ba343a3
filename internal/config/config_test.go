package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(EnvMap{})
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.RPCURL != PlaceholderRPCURL {
		t.Errorf("expected placeholder RPC URL, got %q", cfg.RPCURL)
	}
	if cfg.RPCURL2 != "" {
		t.Errorf("expected empty secondary URL, got %q", cfg.RPCURL2)
	}
	if cfg.RetryAttempts != 3 {
		t.Errorf("expected 3 retry attempts, got %d", cfg.RetryAttempts)
	}
	if cfg.RetryDelay != time.Second {
		t.Errorf("expected 1s retry delay, got %v", cfg.RetryDelay)
	}
	if cfg.RequestTimeout != 30*time.Second {
		t.Errorf("expected 30s request timeout, got %v", cfg.RequestTimeout)
	}
	if cfg.MaxTransactions != 0 {
		t.Errorf("expected unlimited batch, got %d", cfg.MaxTransactions)
	}
	if cfg.Workers != 1 {
		t.Errorf("expected 1 worker, got %d", cfg.Workers)
	}
	if cfg.DBPath != "" || cfg.DBDSN != "" {
		t.Errorf("expected journal off by default, got path %q dsn %q", cfg.DBPath, cfg.DBDSN)
	}
	if cfg.RedisAddr != "" {
		t.Errorf("expected cache off by default, got %q", cfg.RedisAddr)
	}
	if cfg.KafkaBrokers != nil {
		t.Errorf("expected alerts off by default, got %v", cfg.KafkaBrokers)
	}
	if cfg.KafkaTopicPrefix != "txaudit-alerts" {
		t.Errorf("unexpected topic prefix %q", cfg.KafkaTopicPrefix)
	}
	if cfg.HTTPAddr != ":8080" {
		t.Errorf("unexpected http addr %q", cfg.HTTPAddr)
	}
	if cfg.LogMaxSizeMB != 100 || cfg.LogMaxBackups != 3 {
		t.Errorf("unexpected log rotation defaults: %d MB, %d backups", cfg.LogMaxSizeMB, cfg.LogMaxBackups)
	}
}

func TestLoad_Overrides(t *testing.T) {
	cfg, err := Load(EnvMap{
		"RPC_URL":         "https://rpc.example.com",
		"RPC_URL_2":       "https://rpc2.example.com",
		"RETRY_ATTEMPTS":  "5",
		"RETRY_DELAY":     "250ms",
		"REQUEST_TIMEOUT": "10s",
		"MAX_TXS":         "20",
		"WORKERS":         "4",
		"DB_PATH":         "audits.db",
		"REDIS_ADDR":      "127.0.0.1:6379",
		"KAFKA_BROKERS":   "k1:9092, k2:9092",
	})
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.RPCURL != "https://rpc.example.com" {
		t.Errorf("unexpected RPC URL %q", cfg.RPCURL)
	}
	if cfg.RPCURL2 != "https://rpc2.example.com" {
		t.Errorf("unexpected secondary URL %q", cfg.RPCURL2)
	}
	if cfg.RetryAttempts != 5 {
		t.Errorf("expected 5 attempts, got %d", cfg.RetryAttempts)
	}
	if cfg.RetryDelay != 250*time.Millisecond {
		t.Errorf("expected 250ms delay, got %v", cfg.RetryDelay)
	}
	if cfg.RequestTimeout != 10*time.Second {
		t.Errorf("expected 10s timeout, got %v", cfg.RequestTimeout)
	}
	if cfg.MaxTransactions != 20 {
		t.Errorf("expected cap 20, got %d", cfg.MaxTransactions)
	}
	if cfg.Workers != 4 {
		t.Errorf("expected 4 workers, got %d", cfg.Workers)
	}
	if cfg.DBPath != "audits.db" {
		t.Errorf("unexpected db path %q", cfg.DBPath)
	}
	if len(cfg.KafkaBrokers) != 2 || cfg.KafkaBrokers[0] != "k1:9092" || cfg.KafkaBrokers[1] != "k2:9092" {
		t.Errorf("unexpected brokers %v", cfg.KafkaBrokers)
	}
}

func TestLoad_Invalid(t *testing.T) {
	cases := map[string]EnvMap{
		"bad attempts":     {"RETRY_ATTEMPTS": "abc"},
		"zero attempts":    {"RETRY_ATTEMPTS": "0"},
		"bad delay":        {"RETRY_DELAY": "soon"},
		"negative delay":   {"RETRY_DELAY": "-1s"},
		"negative max":     {"MAX_TXS": "-1"},
		"zero workers":     {"WORKERS": "0"},
		"bad log max size": {"LOG_MAX_SIZE_MB": "big"},
	}
	for name, env := range cases {
		if _, err := Load(env); err == nil {
			t.Errorf("%s: expected error, got none", name)
		}
	}
}

func TestLoadFromEnv_DotEnv(t *testing.T) {
	dir := t.TempDir()
	env := "RPC_URL=https://file.example/rpc\nWORKERS=4\n"
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte(env), 0o600); err != nil {
		t.Fatalf("write .env: %v", err)
	}
	t.Chdir(dir)

	t.Setenv("RPC_URL", "")
	os.Unsetenv("RPC_URL")
	t.Setenv("WORKERS", "2")

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.RPCURL != "https://file.example/rpc" {
		t.Errorf("expected the .env RPC URL, got %q", cfg.RPCURL)
	}
	if cfg.Workers != 2 {
		t.Errorf("expected exported WORKERS to win over .env, got %d", cfg.Workers)
	}
}

func TestLoadFromEnv_NoDotEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("RPC_URL", "https://rpc.example.com")

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.RPCURL != "https://rpc.example.com" {
		t.Errorf("unexpected RPC URL %q", cfg.RPCURL)
	}
}

func TestConfig_Warnings(t *testing.T) {
	cfg := Config{RPCURL: PlaceholderRPCURL}
	warnings := cfg.Warnings()
	if len(warnings) != 1 {
		t.Fatalf("expected 1 warning, got %d: %v", len(warnings), warnings)
	}

	cfg = Config{RPCURL: "https://rpc.example.com", RPCURL2: "https://rpc.example.com"}
	warnings = cfg.Warnings()
	if len(warnings) != 1 {
		t.Fatalf("expected duplicate-provider warning, got %v", warnings)
	}

	cfg = Config{RPCURL: "https://rpc.example.com", RPCURL2: "https://rpc2.example.com"}
	if warnings := cfg.Warnings(); len(warnings) != 0 {
		t.Errorf("expected no warnings, got %v", warnings)
	}
}
