// Package config loads service configuration from the environment so main
// stays lean.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config captures everything the service needs at start-up.
type Config struct {
	HTTPAddr         string        `env:"VIGIL_HTTP_ADDR" envDefault:":8080"`
	HTTPReadTimeout  time.Duration `env:"VIGIL_HTTP_READ_TIMEOUT" envDefault:"5s"`
	HTTPWriteTimeout time.Duration `env:"VIGIL_HTTP_WRITE_TIMEOUT" envDefault:"10s"`
	LogLevel         string        `env:"VIGIL_LOG_LEVEL" envDefault:"info"`
	ComponentID      string        `env:"VIGIL_COMPONENT_ID" envDefault:"vigil"`

	Kafka     Kafka     `envPrefix:"VIGIL_KAFKA_"`
	Redis     Redis     `envPrefix:"VIGIL_REDIS_"`
	Processor Processor `envPrefix:"VIGIL_PROCESSOR_"`
}

type Kafka struct {
	Brokers       []string `env:"BROKERS" envDefault:"localhost:9092"`
	Group         string   `env:"GROUP" envDefault:"vigil"`
	IngressTopic  string   `env:"INGRESS_TOPIC" envDefault:"account-interventions"`
	EgressTopic   string   `env:"EGRESS_TOPIC" envDefault:"account-intervention-audit"`
	DeletionTopic string   `env:"DELETION_TOPIC" envDefault:"account-deletions"`
	MaxAttempts   int      `env:"MAX_ATTEMPTS" envDefault:"5"`
}

type Redis struct {
	URL          string        `env:"URL" envDefault:"redis://localhost:6379"`
	PoolSize     int           `env:"POOL_SIZE" envDefault:"10"`
	MinIdleConns int           `env:"MIN_IDLE_CONNS" envDefault:"2"`
	DialTimeout  time.Duration `env:"DIAL_TIMEOUT" envDefault:"5s"`
	ReadTimeout  time.Duration `env:"READ_TIMEOUT" envDefault:"3s"`
	WriteTimeout time.Duration `env:"WRITE_TIMEOUT" envDefault:"3s"`
}

type Processor struct {
	Concurrency       int           `env:"CONCURRENCY" envDefault:"16"`
	DeletionRetention time.Duration `env:"DELETION_RETENTION" envDefault:"720h"`
}

// Load parses configuration from environment variables.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}
