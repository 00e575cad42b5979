package app

import (
	"context"
	"fmt"
	"log"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/dailystump/stumpd/internal/services/puzzle/ai"
	"github.com/dailystump/stumpd/internal/services/puzzle/ai/httpmodel"
	"github.com/dailystump/stumpd/internal/services/puzzle/domain"
	"github.com/dailystump/stumpd/internal/services/puzzle/events"
	"github.com/dailystump/stumpd/internal/services/puzzle/roster"
	"github.com/dailystump/stumpd/internal/services/puzzle/storage/sqlite"
)

// ModelResolver turns a roster entry into a callable model client.
type ModelResolver func(entry roster.Entry) (ai.Model, error)

// RuntimeConfig controls puzzle service startup and dependencies.
type RuntimeConfig struct {
	Port         int
	DBPath       string
	RosterPath   string
	TickInterval time.Duration
	KafkaBrokers []string
	KafkaTopic   string

	// ResolveModel overrides the default HTTP bridge resolver, mainly for
	// tests. Nil uses each roster entry's endpoint.
	ResolveModel ModelResolver

	// Outcomes supplies community attempt aggregates at window close. Nil
	// falls back to a source that reports zero attempts for every puzzle.
	Outcomes PlayerOutcomeSource
}

const (
	defaultPuzzlePort = 8095
	defaultPuzzleDB   = "data/puzzle.db"
)

// Run starts the puzzle runtime: storage, the model roster, the event
// publisher, a health gRPC server, and the daily scheduler loop.
func Run(ctx context.Context, cfg RuntimeConfig) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if cfg.Port <= 0 {
		cfg.Port = defaultPuzzlePort
	}
	if strings.TrimSpace(cfg.DBPath) == "" {
		cfg.DBPath = defaultPuzzleDB
	}
	if strings.TrimSpace(cfg.RosterPath) == "" {
		return fmt.Errorf("roster manifest path is required")
	}

	if dir := filepath.Dir(cfg.DBPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create puzzle storage dir: %w", err)
		}
	}

	store, err := sqlite.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open puzzle sqlite store: %w", err)
	}
	defer func() {
		if closeErr := store.Close(); closeErr != nil {
			log.Printf("close puzzle sqlite store: %v", closeErr)
		}
	}()

	modelRoster, err := BuildRoster(cfg.RosterPath, cfg.ResolveModel)
	if err != nil {
		return err
	}

	var publisher events.Publisher = events.Nop{}
	if len(cfg.KafkaBrokers) > 0 {
		kafkaPublisher, err := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		if err != nil {
			return fmt.Errorf("build kafka publisher: %w", err)
		}
		publisher = kafkaPublisher
	}
	defer func() {
		if closeErr := publisher.Close(); closeErr != nil {
			log.Printf("close event publisher: %v", closeErr)
		}
	}()

	orchestrator, err := NewOrchestrator(store, modelRoster, publisher, nil)
	if err != nil {
		return fmt.Errorf("build orchestrator: %w", err)
	}
	outcomes := cfg.Outcomes
	if outcomes == nil {
		outcomes = zeroOutcomes{}
	}
	evaluator, err := NewEvaluator(store, outcomes, publisher, nil)
	if err != nil {
		return fmt.Errorf("build evaluator: %w", err)
	}
	scheduler := NewScheduler(orchestrator, evaluator, cfg.TickInterval, nil)

	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.Port))
	if err != nil {
		return fmt.Errorf("listen on puzzle port %d: %w", cfg.Port, err)
	}
	defer listener.Close()

	grpcServer := grpc.NewServer(grpc.StatsHandler(otelgrpc.NewServerHandler()))
	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus("puzzle.runtime", grpc_health_v1.HealthCheckResponse_SERVING)

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- grpcServer.Serve(listener)
	}()
	defer func() {
		healthServer.Shutdown()
		grpcServer.GracefulStop()
		<-serveErr
		orchestrator.WaitCrossValidation()
	}()

	log.Printf("puzzle server listening at %v", listener.Addr())
	return scheduler.Run(ctx)
}

// BuildRoster loads the manifest and resolves each entry into a
// timeout-bounded model client in manifest order.
func BuildRoster(path string, resolve ModelResolver) (ai.Roster, error) {
	manifest, err := roster.Load(path)
	if err != nil {
		return ai.Roster{}, fmt.Errorf("load roster manifest: %w", err)
	}
	if resolve == nil {
		resolve = func(entry roster.Entry) (ai.Model, error) {
			return httpmodel.New(entry.ID, entry.Endpoint, nil)
		}
	}

	models := make([]ai.Model, 0, len(manifest.Models))
	for _, entry := range manifest.Models {
		model, err := resolve(entry)
		if err != nil {
			return ai.Roster{}, fmt.Errorf("resolve roster model %q: %w", entry.ID, err)
		}
		models = append(models, ai.WithTimeouts(model, entry.GenerateTimeout, entry.SolveTimeout))
	}
	return ai.NewRoster(models...)
}

// zeroOutcomes reports an empty window for every puzzle. Used when no
// attempt pipeline is wired; an empty window evaluates as a stump.
type zeroOutcomes struct{}

func (zeroOutcomes) GetAttemptAggregate(context.Context, time.Time, domain.Category) (domain.AttemptAggregate, error) {
	return domain.AttemptAggregate{}, nil
}
