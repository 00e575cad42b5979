// Package puzzle parses puzzle command flags and launches the puzzle runtime.
package puzzle

import (
	"context"
	"flag"
	"strings"
	"time"

	entrypoint "github.com/dailystump/stumpd/internal/platform/cmd"
	puzzleserver "github.com/dailystump/stumpd/internal/services/puzzle/app"
)

// Config holds puzzle command configuration.
type Config struct {
	Port         int           `env:"STUMPD_PUZZLE_PORT" envDefault:"8095"`
	DBPath       string        `env:"STUMPD_PUZZLE_DB_PATH" envDefault:"data/puzzle.db"`
	RosterPath   string        `env:"STUMPD_PUZZLE_ROSTER_PATH" envDefault:"config/roster.yaml"`
	TickInterval time.Duration `env:"STUMPD_PUZZLE_TICK_INTERVAL" envDefault:"1m"`
	KafkaBrokers string        `env:"STUMPD_PUZZLE_KAFKA_BROKERS"`
	KafkaTopic   string        `env:"STUMPD_PUZZLE_KAFKA_TOPIC" envDefault:"puzzle.lifecycle"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.IntVar(&cfg.Port, "port", cfg.Port, "The puzzle health gRPC server port")
	fs.StringVar(&cfg.DBPath, "db-path", cfg.DBPath, "The puzzle SQLite database path")
	fs.StringVar(&cfg.RosterPath, "roster-path", cfg.RosterPath, "The generator-model roster manifest path")
	fs.DurationVar(&cfg.TickInterval, "tick-interval", cfg.TickInterval, "Scheduler tick interval")
	fs.StringVar(&cfg.KafkaBrokers, "kafka-brokers", cfg.KafkaBrokers, "Comma-separated Kafka broker addresses (empty disables events)")
	fs.StringVar(&cfg.KafkaTopic, "kafka-topic", cfg.KafkaTopic, "Kafka topic for lifecycle events")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the puzzle runtime.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServicePuzzle, func(context.Context) error {
		return puzzleserver.Run(ctx, puzzleserver.RuntimeConfig{
			Port:         cfg.Port,
			DBPath:       cfg.DBPath,
			RosterPath:   cfg.RosterPath,
			TickInterval: cfg.TickInterval,
			KafkaBrokers: splitBrokers(cfg.KafkaBrokers),
			KafkaTopic:   cfg.KafkaTopic,
		})
	})
}

func splitBrokers(value string) []string {
	var brokers []string
	for _, broker := range strings.Split(value, ",") {
		if broker = strings.TrimSpace(broker); broker != "" {
			brokers = append(brokers, broker)
		}
	}
	return brokers
}
