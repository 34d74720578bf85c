package config

import (
	"os"
	"strings"
)

type Config struct {
	RedisAddr      string
	NatsUrl        string
	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioUseSSL    bool
	StorageBucket  string
	SessionToken   string // JWT d'accès détenu par le client
	SessionSecret  string
	OtelEndpoint   string
	Env            string // "local" ou "prod"
}

func Load() Config {
	return Config{
		RedisAddr:      getEnv("REDIS_ADDR", "redis:6379"),
		NatsUrl:        getEnv("NATS_URL", "nats://nats:4222"),
		MinioEndpoint:  getEnv("MINIO_ENDPOINT", "minio:9000"),
		MinioAccessKey: getEnv("MINIO_ACCESS_KEY", "minioadmin"),
		MinioSecretKey: getEnv("MINIO_SECRET_KEY", "minioadmin"),
		MinioUseSSL:    getEnv("MINIO_USE_SSL", "false") == "true",
		StorageBucket:  getEnv("STORAGE_BUCKET", "pilkada-jateng"),
		SessionToken:   getEnv("SESSION_TOKEN", ""),
		SessionSecret:  getEnv("SESSION_SECRET", "dev-secret"),
		OtelEndpoint:   getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "jaeger:4317"),
		Env:            getEnv("APP_ENV", "local"),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return strings.TrimSpace(v)
	}
	return fallback
}
