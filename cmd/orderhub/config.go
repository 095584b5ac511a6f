package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/vladislavdragonenkov/orderhub/internal/app"
)

const (
	envHTTPAddr            = "ORDERHUB_HTTP_ADDR"
	envGRPCAddr            = "ORDERHUB_GRPC_ADDR"
	envMetricsAddr         = "ORDERHUB_METRICS_ADDR"
	envStorageDriver       = "ORDERHUB_STORAGE_DRIVER"
	envSQLitePath          = "ORDERHUB_SQLITE_PATH"
	envPostgresDSN         = "ORDERHUB_POSTGRES_DSN"
	envPostgresAutoMigrate = "ORDERHUB_POSTGRES_AUTO_MIGRATE"
	envRedisAddr           = "ORDERHUB_REDIS_ADDR"
	envRedisPassword       = "ORDERHUB_REDIS_PASSWORD"
	envRedisDB             = "ORDERHUB_REDIS_DB"
	envS3Bucket            = "ORDERHUB_S3_BUCKET"
	envS3Region            = "ORDERHUB_S3_REGION"
	envS3Endpoint          = "ORDERHUB_S3_ENDPOINT"
	envS3PathStyle         = "ORDERHUB_S3_PATH_STYLE"
	envMongoURI            = "ORDERHUB_MONGO_URI"
	envMongoDatabase       = "ORDERHUB_MONGO_DATABASE"
	envMongoCollection     = "ORDERHUB_MONGO_COLLECTION"
	envKeyPrefix           = "ORDERHUB_KEY_PREFIX"
	envLocale              = "ORDERHUB_LOCALE"
	envNotifyRetryDelay    = "ORDERHUB_NOTIFY_RETRY_DELAY"
	envToastTTL            = "ORDERHUB_TOAST_TTL"
	envKafkaBrokers        = "KAFKA_BROKERS"
	envKafkaTopic          = "ORDERHUB_KAFKA_TOPIC"
	envOutboxPollInterval  = "ORDERHUB_OUTBOX_POLL_INTERVAL"
	envOutboxBatchSize     = "ORDERHUB_OUTBOX_BATCH_SIZE"
	envOutboxMaxAttempts   = "ORDERHUB_OUTBOX_MAX_ATTEMPTS"
	envOutboxRetryDelay    = "ORDERHUB_OUTBOX_RETRY_DELAY"
	envOTLPEndpoint        = "ORDERHUB_OTLP_ENDPOINT"
	envTraceSampleRatio    = "ORDERHUB_TRACE_SAMPLE_RATIO"
)

type envLookup func(key string) (string, bool)

func readConfig() (app.Config, []string) {
	return readConfigFromEnv(os.LookupEnv)
}

// readConfigFromEnv накладывает переменные окружения на app.DefaultConfig.
// Некорректное значение оставляет default и добавляет предупреждение.
func readConfigFromEnv(lookup envLookup) (app.Config, []string) {
	cfg := app.DefaultConfig()
	var warnings []string

	warn := func(key, raw string, err error) {
		warnings = append(warnings, fmt.Sprintf("%s=%q ignored: %v", key, raw, err))
	}

	str := func(key string, dst *string) {
		if v, ok := lookupTrimmed(lookup, key); ok {
			*dst = v
		}
	}
	boolean := func(key string, dst *bool) {
		raw, ok := lookupTrimmed(lookup, key)
		if !ok {
			return
		}
		v, err := parseBool(raw)
		if err != nil {
			warn(key, raw, err)
			return
		}
		*dst = v
	}
	integer := func(key string, dst *int, valid func(int) bool, rule string) {
		raw, ok := lookupTrimmed(lookup, key)
		if !ok {
			return
		}
		v, err := parseInt(raw, valid, rule)
		if err != nil {
			warn(key, raw, err)
			return
		}
		*dst = v
	}
	duration := func(key string, dst *time.Duration, valid func(time.Duration) bool, rule string) {
		raw, ok := lookupTrimmed(lookup, key)
		if !ok {
			return
		}
		v, err := parseDuration(raw, valid, rule)
		if err != nil {
			warn(key, raw, err)
			return
		}
		*dst = v
	}

	positive := func(v int) bool { return v > 0 }
	nonNegative := func(v int) bool { return v >= 0 }
	positiveDuration := func(v time.Duration) bool { return v > 0 }
	nonNegativeDuration := func(v time.Duration) bool { return v >= 0 }

	str(envHTTPAddr, &cfg.HTTPAddr)
	str(envGRPCAddr, &cfg.GRPCAddr)
	str(envMetricsAddr, &cfg.MetricsAddr)

	if v, ok := lookupTrimmed(lookup, envStorageDriver); ok {
		cfg.StorageDriver = strings.ToLower(v)
	}
	str(envSQLitePath, &cfg.SQLitePath)
	str(envPostgresDSN, &cfg.PostgresDSN)
	boolean(envPostgresAutoMigrate, &cfg.PostgresAutoMigrate)
	str(envRedisAddr, &cfg.RedisAddr)
	str(envRedisPassword, &cfg.RedisPassword)
	integer(envRedisDB, &cfg.RedisDB, nonNegative, "must be >= 0")
	str(envS3Bucket, &cfg.S3Bucket)
	str(envS3Region, &cfg.S3Region)
	str(envS3Endpoint, &cfg.S3Endpoint)
	boolean(envS3PathStyle, &cfg.S3PathStyle)
	str(envMongoURI, &cfg.MongoURI)
	str(envMongoDatabase, &cfg.MongoDatabase)
	str(envMongoCollection, &cfg.MongoCollection)
	str(envKeyPrefix, &cfg.KeyPrefix)

	str(envLocale, &cfg.Locale)
	duration(envNotifyRetryDelay, &cfg.NotifyRetryDelay, nonNegativeDuration, "must be >= 0")
	duration(envToastTTL, &cfg.ToastTTL, positiveDuration, "must be > 0")

	str(envKafkaBrokers, &cfg.KafkaBrokers)
	str(envKafkaTopic, &cfg.KafkaTopic)
	duration(envOutboxPollInterval, &cfg.OutboxPollInterval, positiveDuration, "must be > 0")
	integer(envOutboxBatchSize, &cfg.OutboxBatchSize, positive, "must be > 0")
	integer(envOutboxMaxAttempts, &cfg.OutboxMaxAttempts, positive, "must be > 0")
	duration(envOutboxRetryDelay, &cfg.OutboxRetryDelay, nonNegativeDuration, "must be >= 0")

	str(envOTLPEndpoint, &cfg.OTLPEndpoint)
	if raw, ok := lookupTrimmed(lookup, envTraceSampleRatio); ok {
		ratio, err := parseRatio(raw)
		if err != nil {
			warn(envTraceSampleRatio, raw, err)
		} else {
			cfg.TraceSampleRatio = ratio
		}
	}

	return cfg, warnings
}

// lookupTrimmed возвращает значение без пробелов; пустое значение считается незаданным.
func lookupTrimmed(lookup envLookup, key string) (string, bool) {
	raw, ok := lookup(key)
	if !ok {
		return "", false
	}
	value := strings.TrimSpace(raw)
	if value == "" {
		return "", false
	}
	return value, true
}

func parseBool(raw string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "t", "true", "y", "yes", "on":
		return true, nil
	case "0", "f", "false", "n", "no", "off":
		return false, nil
	default:
		return false, fmt.Errorf("invalid bool value %q", raw)
	}
}

func parseInt(raw string, valid func(int) bool, rule string) (int, error) {
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("invalid int value %q: %w", raw, err)
	}
	if valid != nil && !valid(value) {
		return 0, fmt.Errorf("value %d %s", value, rule)
	}
	return value, nil
}

func parseDuration(raw string, valid func(time.Duration) bool, rule string) (time.Duration, error) {
	value, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	if valid != nil && !valid(value) {
		return 0, fmt.Errorf("duration %s %s", value, rule)
	}
	return value, nil
}

func parseRatio(raw string) (float64, error) {
	value, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid ratio %q: %w", raw, err)
	}
	if value < 0 || value > 1 {
		return 0, fmt.Errorf("ratio %v must be within [0, 1]", value)
	}
	return value, nil
}
