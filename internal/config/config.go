package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	HTTPAddr       string
	GRPCAddr       string
	MySQLDSN       string
	RedisAddr      string
	WorkerCount    int
	QueueSize      int
	IdempotencyTTL time.Duration
	LogLevel       string
	EconomyFile    string
}

func LoadConfig() (*Config, error) {
	cfg := &Config{
		HTTPAddr:    getEnv("HTTP_ADDR", ":8080"),
		GRPCAddr:    getEnv("GRPC_ADDR", ":50051"),
		MySQLDSN:    getEnv("MYSQL_DSN", "root:root@tcp(localhost:3306)/economy?parseTime=true"),
		RedisAddr:   getEnv("REDIS_ADDR", "localhost:6379"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		EconomyFile: getEnv("ECONOMY_FILE", "configs/economy.yaml"),
	}

	var err error
	if cfg.WorkerCount, err = getEnvInt("WORKER_COUNT", 4); err != nil {
		return nil, err
	}
	if cfg.QueueSize, err = getEnvInt("QUEUE_SIZE", 1000); err != nil {
		return nil, err
	}
	if cfg.WorkerCount <= 0 || cfg.QueueSize <= 0 {
		return nil, fmt.Errorf("WORKER_COUNT and QUEUE_SIZE must be positive")
	}

	ttl := getEnv("IDEMPOTENCY_TTL", "24h")
	if cfg.IdempotencyTTL, err = time.ParseDuration(ttl); err != nil {
		return nil, fmt.Errorf("parse IDEMPOTENCY_TTL: %w", err)
	}

	return cfg, nil
}

func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) (int, error) {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return n, nil
}
