package app

import (
	"time"

	"github.com/vladislavdragonenkov/orderhub/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/orderhub/internal/notify"
)

// Поддерживаемые драйверы хранилища.
const (
	StorageDriverMemory   = "memory"
	StorageDriverSQLite   = "sqlite"
	StorageDriverPostgres = "postgres"
	StorageDriverRedis    = "redis"
	StorageDriverS3       = "s3"
	StorageDriverMongo    = "mongo"
)

// Config описывает настройки запуска приложения.
type Config struct {
	HTTPAddr    string
	GRPCAddr    string
	MetricsAddr string

	StorageDriver       string
	SQLitePath          string
	PostgresDSN         string
	PostgresAutoMigrate bool
	RedisAddr           string
	RedisPassword       string
	RedisDB             int
	S3Bucket            string
	S3Region            string
	S3Endpoint          string
	S3PathStyle         bool
	MongoURI            string
	MongoDatabase       string
	MongoCollection     string
	KeyPrefix           string

	Locale           string
	NotifyRetryDelay time.Duration
	ToastTTL         time.Duration

	KafkaBrokers       string
	KafkaTopic         string
	OutboxPollInterval time.Duration
	OutboxBatchSize    int
	OutboxMaxAttempts  int
	OutboxRetryDelay   time.Duration

	OTLPEndpoint     string
	TraceSampleRatio float64
}

// DefaultConfig возвращает настройки для локального запуска в памяти.
func DefaultConfig() Config {
	return Config{
		HTTPAddr:    ":8080",
		GRPCAddr:    ":50051",
		MetricsAddr: ":9090",

		StorageDriver:       StorageDriverMemory,
		SQLitePath:          "orderhub.db",
		PostgresAutoMigrate: true,
		S3Region:            "us-east-1",
		MongoDatabase:       "orderhub",
		MongoCollection:     "kv",
		KeyPrefix:           "orderhub:",

		Locale:           "fr",
		NotifyRetryDelay: notify.DefaultRetryDelay,
		ToastTTL:         notify.DefaultToastTTL,

		KafkaTopic:         kafka.TopicOrderEvents,
		OutboxPollInterval: time.Second,
		OutboxBatchSize:    100,
		OutboxMaxAttempts:  3,
		OutboxRetryDelay:   50 * time.Millisecond,

		TraceSampleRatio: 1.0,
	}
}
