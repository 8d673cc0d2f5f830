package global

import "os"

// FeedKind selects which change-feed transport the client attaches to.
type FeedKind string

const (
	FeedNats  FeedKind = "nats"
	FeedKafka FeedKind = "kafka"
	FeedWS    FeedKind = "ws"
)

type MongoConfig struct {
	Uri      string
	Database string
	MaxRetry int
}

type NatsConfig struct {
	URL string
}

type KafkaConfig struct {
	Brokers []string
	GroupID string
}

type WSConfig struct {
	Endpoint string // change-feed websocket endpoint of the hosted backend
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type AppConfig struct {
	Feed  FeedKind
	Mongo MongoConfig
	Nats  NatsConfig
	Kafka KafkaConfig
	WS    WSConfig
	Redis RedisConfig
}

// LoadConfig reads the client configuration from the environment,
// falling back to local defaults.
func LoadConfig() *AppConfig {
	cfg := &AppConfig{
		Feed: FeedNats,
		Mongo: MongoConfig{
			Uri:      envOr("CB_MONGO_URI", "mongodb://localhost:27017"),
			Database: envOr("CB_MONGO_DB", "collectbox"),
			MaxRetry: 3,
		},
		Nats:  NatsConfig{URL: envOr("CB_NATS_URL", "nats://localhost:4222")},
		Kafka: KafkaConfig{Brokers: []string{envOr("CB_KAFKA_BROKER", "localhost:9092")}},
		WS:    WSConfig{Endpoint: envOr("CB_WS_ENDPOINT", "")},
		Redis: RedisConfig{Addr: envOr("CB_REDIS_ADDR", "localhost:6379")},
	}
	if k := os.Getenv("CB_FEED"); k != "" {
		cfg.Feed = FeedKind(k)
	}
	return cfg
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
