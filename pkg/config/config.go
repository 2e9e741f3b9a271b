package config

import (
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/meridian-exchange/matching-engine/pkg/redis"
)

// MustLoad loads the configuration from environment variables and .env file.
func MustLoad[T any](cfg T) {
	_ = godotenv.Load() // Load environment variables from .env file

	env.Must(cfg, env.Parse(cfg))
}

// Load loads the configuration from environment variables and .env file.
func Load[T any](cfg T) error {
	_ = godotenv.Load() // .env file is optional

	if err := env.Parse(cfg); err != nil {
		return err // Return error if environment variable parsing fails
	}

	return nil
}

// Config holds the configuration for the matching engine service.
type Config struct {
	// Instruments is the number of order books provisioned at construction.
	// Instrument ids 0..Instruments-1 are valid, everything else is fatal.
	Instruments int `env:"INSTRUMENTS" envDefault:"8"`

	// PinThread locks the engine worker goroutine to its OS thread.
	PinThread bool `env:"PIN_THREAD" envDefault:"false"`

	Book  BookConfig  `envPrefix:"BOOK_"`
	Queue QueueConfig `envPrefix:"QUEUE_"`

	OrderReader       KafkaConfig `envPrefix:"KAFKA_ORDERS_"`
	ResponsePublisher KafkaConfig `envPrefix:"KAFKA_RESPONSES_"`
	MarketPublisher   KafkaConfig `envPrefix:"KAFKA_MARKET_"`

	Redis    redis.Config   `envPrefix:"REDIS_"`
	Snapshot SnapshotConfig `envPrefix:"SNAPSHOT_"`
}

// BookConfig sizes the per-instrument order book. Pools and lookup tables
// are provisioned up front; running past these limits aborts the process.
type BookConfig struct {
	MaxOrders      int `env:"MAX_ORDERS" envDefault:"65536"`
	MaxPriceLevels int `env:"MAX_PRICE_LEVELS" envDefault:"256"`
	MaxClients     int `env:"MAX_CLIENTS" envDefault:"256"`
	MaxOrderIDs    int `env:"MAX_ORDER_IDS" envDefault:"65536"`
}

// QueueConfig sizes the SPSC queues connecting the engine to its collaborators.
type QueueConfig struct {
	RequestCapacity      int `env:"REQUEST_CAPACITY" envDefault:"262144"`
	ResponseCapacity     int `env:"RESPONSE_CAPACITY" envDefault:"262144"`
	MarketUpdateCapacity int `env:"MARKET_UPDATE_CAPACITY" envDefault:"262144"`
}

// KafkaConfig holds the configuration for a Kafka consumer or producer.
type KafkaConfig struct {
	Topic   string   `env:"TOPIC,required"`
	GroupID string   `env:"GROUP_ID" envDefault:"default_group"`
	Brokers []string `env:"BROKER,required"`
}

// SnapshotConfig controls the market-data snapshot synthesizer.
type SnapshotConfig struct {
	Interval  time.Duration `env:"INTERVAL" envDefault:"30s"`
	KeyPrefix string        `env:"KEY_PREFIX" envDefault:"marketdata:book:"`
}
