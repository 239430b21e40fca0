package kafka

import (
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	EnvBrokers = "KAFKA_BROKERS"

	EnvProducerMaxAttempts  = "KAFKA_PRODUCER_MAX_ATTEMPTS"
	EnvProducerBatchTimeout = "KAFKA_PRODUCER_BATCH_TIMEOUT"

	EnvConsumerMinBytes       = "KAFKA_CONSUMER_MIN_BYTES"
	EnvConsumerMaxBytes       = "KAFKA_CONSUMER_MAX_BYTES"
	EnvConsumerMaxWait        = "KAFKA_CONSUMER_MAX_WAIT"
	EnvConsumerCommitInterval = "KAFKA_CONSUMER_COMMIT_INTERVAL"
)

const (
	DefaultProducerMaxAttempts  = 3
	DefaultProducerBatchTimeout = 10 * time.Millisecond

	DefaultConsumerMinBytes       = 1
	DefaultConsumerMaxBytes       = 10 * 1024 * 1024
	DefaultConsumerMaxWait        = 500 * time.Millisecond
	DefaultConsumerCommitInterval = 1 * time.Second
)

type Config struct {
	Brokers []string

	ProducerMaxAttempts  int
	ProducerBatchTimeout time.Duration

	ConsumerMinBytes       int
	ConsumerMaxBytes       int
	ConsumerMaxWait        time.Duration
	ConsumerCommitInterval time.Duration
}

// Load reads Kafka settings from the environment. An empty KAFKA_BROKERS
// means Kafka is not configured; the server then runs with a no-op
// event publisher.
func Load() *Config {
	brokersStr := os.Getenv(EnvBrokers)
	if brokersStr == "" {
		return &Config{}
	}

	brokers := strings.Split(brokersStr, ",")
	for i := range brokers {
		brokers[i] = strings.TrimSpace(brokers[i])
	}

	return &Config{
		Brokers: brokers,

		ProducerMaxAttempts:  getEnvInt(EnvProducerMaxAttempts, DefaultProducerMaxAttempts),
		ProducerBatchTimeout: getEnvDuration(EnvProducerBatchTimeout, DefaultProducerBatchTimeout),

		ConsumerMinBytes:       getEnvInt(EnvConsumerMinBytes, DefaultConsumerMinBytes),
		ConsumerMaxBytes:       getEnvInt(EnvConsumerMaxBytes, DefaultConsumerMaxBytes),
		ConsumerMaxWait:        getEnvDuration(EnvConsumerMaxWait, DefaultConsumerMaxWait),
		ConsumerCommitInterval: getEnvDuration(EnvConsumerCommitInterval, DefaultConsumerCommitInterval),
	}
}

func (cfg *Config) Enabled() bool {
	return len(cfg.Brokers) > 0
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}
