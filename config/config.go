package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Redis    RedisConfig
	Database DatabaseConfig
	Kafka    KafkaConfig
	Identity IdentityConfig
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

type DatabaseConfig struct {
	// URL enables the delivered-record archive when set.
	URL string
}

type KafkaConfig struct {
	Brokers       []string
	TopicListings string
	ConsumerGroup string
}

type IdentityConfig struct {
	URL         string
	APIKey      string
	AccessToken string
}

type ObservabilityConfig struct {
	JaegerEndpoint string
}

type BusinessConfig struct {
	ReservationWindow time.Duration
	SweepInterval     time.Duration
}

func Load() *Config {
	_ = godotenv.Load()

	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	windowMinutes, _ := strconv.Atoi(getEnv("RESERVATION_WINDOW_MINUTES", "30"))
	sweepSeconds, _ := strconv.Atoi(getEnv("SWEEP_INTERVAL_SECONDS", "60"))

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
		Database: DatabaseConfig{
			URL: getEnv("DATABASE_URL", ""),
		},
		Kafka: KafkaConfig{
			Brokers:       strings.Split(getEnv("KAFKA_BROKERS", "localhost:9092"), ","),
			TopicListings: getEnv("KAFKA_TOPIC_LISTING_EVENTS", "listing-events"),
			ConsumerGroup: getEnv("KAFKA_CONSUMER_GROUP", "portmarket-archive-group"),
		},
		Identity: IdentityConfig{
			URL:         getEnv("IDENTITY_URL", ""),
			APIKey:      getEnv("IDENTITY_ANON_KEY", ""),
			AccessToken: getEnv("IDENTITY_ACCESS_TOKEN", ""),
		},
		Observ: ObservabilityConfig{
			JaegerEndpoint: getEnv("JAEGER_ENDPOINT", "http://localhost:14268/api/traces"),
		},
		Business: BusinessConfig{
			ReservationWindow: time.Duration(windowMinutes) * time.Minute,
			SweepInterval:     time.Duration(sweepSeconds) * time.Second,
		},
	}

	log.Printf("Config loaded: env=%s, port=%s, reservation_window=%s",
		cfg.Server.Env, cfg.Server.Port, cfg.Business.ReservationWindow)
	return cfg
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
