package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Observ   ObservabilityConfig
	Business BusinessConfig
}

type ServerConfig struct {
	Port string
	Env  string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type KafkaConfig struct {
	Brokers       []string
	TopicDocument string
	ConsumerGroup string
}

type ObservabilityConfig struct {
	JaegerEndpoint string
	PrometheusPort string
}

type BusinessConfig struct {
	// ScanDelayMs is the simulated scanner latency applied before a lot
	// scan mutates the task.
	ScanDelayMs int
	// TwoLotProbability is the chance a product's lot plan is split
	// across two lots instead of one.
	TwoLotProbability float64
	// ScanLockTTLSeconds bounds how long a scan session may hold the
	// per-task lock in Redis.
	ScanLockTTLSeconds int
}

func Load() *Config {
	_ = godotenv.Load()

	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	scanDelay, _ := strconv.Atoi(getEnv("SCAN_DELAY_MS", "600"))
	twoLotProb, _ := strconv.ParseFloat(getEnv("TWO_LOT_PROBABILITY", "0.4"), 64)
	lockTTL, _ := strconv.Atoi(getEnv("SCAN_LOCK_TTL_SECONDS", "30"))

	cfg := &Config{
		Server: ServerConfig{
			Port: getEnv("PORT", "8080"),
			Env:  getEnv("ENV", "development"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		Kafka: KafkaConfig{
			Brokers:       strings.Split(getEnv("KAFKA_BROKERS", "localhost:9092"), ","),
			TopicDocument: getEnv("KAFKA_TOPIC_DOCUMENT_EVENTS", "document-events"),
			ConsumerGroup: getEnv("KAFKA_CONSUMER_GROUP", "logistique-service-group"),
		},
		Observ: ObservabilityConfig{
			JaegerEndpoint: getEnv("JAEGER_ENDPOINT", "http://localhost:14268/api/traces"),
			PrometheusPort: getEnv("PROMETHEUS_PORT", "9090"),
		},
		Business: BusinessConfig{
			ScanDelayMs:        scanDelay,
			TwoLotProbability:  twoLotProb,
			ScanLockTTLSeconds: lockTTL,
		},
	}

	log.Printf("Config loaded: env=%s, port=%s", cfg.Server.Env, cfg.Server.Port)
	return cfg
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
