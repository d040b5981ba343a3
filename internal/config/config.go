package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// PlaceholderRPCURL is the endpoint shipped in examples. Audits run
// against it will be rejected by the provider, so Warnings flags it.
const PlaceholderRPCURL = "https://mainnet.infura.io/v3/your_api_key"

type Config struct {
	RPCURL           string
	RPCURL2          string
	RetryAttempts    int
	RetryDelay       time.Duration
	RequestTimeout   time.Duration
	MaxTransactions  int
	Workers          int
	DBPath           string
	DBDSN            string
	RedisAddr        string
	KafkaBrokers     []string
	KafkaTopicPrefix string
	HTTPAddr         string
	OtelEndpoint     string
	LogLevel         string
	LogFile          string
	LogMaxSizeMB     int
	LogMaxBackups    int
}

type EnvSource interface {
	Lookup(key string) (string, bool)
}

type EnvMap map[string]string

func (e EnvMap) Lookup(key string) (string, bool) {
	value, ok := e[key]
	return value, ok
}

func FromEnviron() EnvSource {
	env := make(EnvMap)
	for _, entry := range os.Environ() {
		if entry == "" {
			continue
		}
		parts := strings.SplitN(entry, "=", 2)
		if len(parts) != 2 {
			continue
		}
		env[parts[0]] = parts[1]
	}
	return env
}

// LoadFromEnv loads the configuration from the process environment. A
// .env file in the working directory is read in first when one exists;
// values already exported in the environment win over file entries.
func LoadFromEnv() (Config, error) {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			return Config{}, fmt.Errorf("load .env: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("read .env: %w", err)
	}
	return Load(FromEnviron())
}

func Load(source EnvSource) (Config, error) {
	if source == nil {
		return Config{}, errors.New("env source is required")
	}

	rpcURL := PlaceholderRPCURL
	if raw, ok := source.Lookup("RPC_URL"); ok && strings.TrimSpace(raw) != "" {
		rpcURL = strings.TrimSpace(raw)
	}
	rpcURL2, _ := source.Lookup("RPC_URL_2")
	rpcURL2 = strings.TrimSpace(rpcURL2)

	retryAttempts, err := parseIntEnv(source, "RETRY_ATTEMPTS", 3)
	if err != nil {
		return Config{}, err
	}
	if retryAttempts < 1 {
		return Config{}, errors.New("RETRY_ATTEMPTS must be at least 1")
	}
	retryDelay, err := parseDurationEnv(source, "RETRY_DELAY", time.Second)
	if err != nil {
		return Config{}, err
	}
	requestTimeout, err := parseDurationEnv(source, "REQUEST_TIMEOUT", 30*time.Second)
	if err != nil {
		return Config{}, err
	}

	maxTransactions, err := parseIntEnv(source, "MAX_TXS", 0)
	if err != nil {
		return Config{}, err
	}
	if maxTransactions < 0 {
		return Config{}, errors.New("MAX_TXS must not be negative")
	}
	workers, err := parseIntEnv(source, "WORKERS", 1)
	if err != nil {
		return Config{}, err
	}
	if workers < 1 {
		return Config{}, errors.New("WORKERS must be at least 1")
	}

	dbPath, _ := source.Lookup("DB_PATH")
	dbPath = strings.TrimSpace(dbPath)
	dbDSN, _ := source.Lookup("DB_DSN")
	dbDSN = strings.TrimSpace(dbDSN)

	redisAddr, _ := source.Lookup("REDIS_ADDR")
	redisAddr = strings.TrimSpace(redisAddr)

	kafkaBrokers := parseList(source, "KAFKA_BROKERS")
	kafkaTopicPrefix, ok := source.Lookup("KAFKA_TOPIC_PREFIX")
	if !ok || kafkaTopicPrefix == "" {
		kafkaTopicPrefix = "txaudit-alerts"
	}

	httpAddr := ":8080"
	if raw, ok := source.Lookup("HTTP_ADDR"); ok && raw != "" {
		httpAddr = raw
	}

	otelEndpoint, _ := source.Lookup("OTEL_EXPORTER_OTLP_ENDPOINT")
	otelEndpoint = strings.TrimSpace(otelEndpoint)

	logLevel, _ := source.Lookup("LOG_LEVEL")
	logFile, _ := source.Lookup("LOG_FILE")
	logMaxSizeMB, err := parseIntEnv(source, "LOG_MAX_SIZE_MB", 100)
	if err != nil {
		return Config{}, err
	}
	logMaxBackups, err := parseIntEnv(source, "LOG_MAX_BACKUPS", 3)
	if err != nil {
		return Config{}, err
	}

	return Config{
		RPCURL:           rpcURL,
		RPCURL2:          rpcURL2,
		RetryAttempts:    retryAttempts,
		RetryDelay:       retryDelay,
		RequestTimeout:   requestTimeout,
		MaxTransactions:  maxTransactions,
		Workers:          workers,
		DBPath:           dbPath,
		DBDSN:            dbDSN,
		RedisAddr:        redisAddr,
		KafkaBrokers:     kafkaBrokers,
		KafkaTopicPrefix: kafkaTopicPrefix,
		HTTPAddr:         httpAddr,
		OtelEndpoint:     otelEndpoint,
		LogLevel:         logLevel,
		LogFile:          logFile,
		LogMaxSizeMB:     logMaxSizeMB,
		LogMaxBackups:    logMaxBackups,
	}, nil
}

// Warnings reports configuration that loads fine but will not produce
// useful audits, such as the placeholder endpoint or a secondary URL
// that duplicates the primary.
func (c Config) Warnings() []string {
	var warnings []string
	if strings.Contains(c.RPCURL, "your_api_key") {
		warnings = append(warnings, "RPC_URL still points at the placeholder endpoint; set a real provider URL")
	}
	if c.RPCURL2 != "" && strings.Contains(c.RPCURL2, "your_api_key") {
		warnings = append(warnings, "RPC_URL_2 still points at the placeholder endpoint; set a real provider URL")
	}
	if c.RPCURL2 != "" && c.RPCURL2 == c.RPCURL {
		warnings = append(warnings, "RPC_URL_2 matches RPC_URL; cross-checking against the same provider proves nothing")
	}
	return warnings
}

func parseIntEnv(source EnvSource, key string, defaultValue int) (int, error) {
	raw, ok := source.Lookup(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return defaultValue, nil
	}
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return value, nil
}

func parseDurationEnv(source EnvSource, key string, defaultValue time.Duration) (time.Duration, error) {
	raw, ok := source.Lookup(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return defaultValue, nil
	}
	value, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if value < 0 {
		return 0, fmt.Errorf("invalid %s: must not be negative", key)
	}
	return value, nil
}

func parseList(source EnvSource, key string) []string {
	raw, ok := source.Lookup(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return nil
	}
	items := strings.Split(raw, ",")
	var values []string
	for _, item := range items {
		value := strings.TrimSpace(item)
		if value == "" {
			continue
		}
		values = append(values, value)
	}
	return values
}
