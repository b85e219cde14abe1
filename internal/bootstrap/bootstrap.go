package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kirillkom/fleet-claims/internal/config"
	"github.com/kirillkom/fleet-claims/internal/core/ports"
	"github.com/kirillkom/fleet-claims/internal/core/usecase"
	"github.com/kirillkom/fleet-claims/internal/infrastructure/export/xlsx"
	"github.com/kirillkom/fleet-claims/internal/infrastructure/queue/nats"
	"github.com/kirillkom/fleet-claims/internal/infrastructure/repository/memory"
	"github.com/kirillkom/fleet-claims/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/fleet-claims/internal/infrastructure/resilience"
	"github.com/kirillkom/fleet-claims/internal/infrastructure/roster"
	"github.com/kirillkom/fleet-claims/internal/infrastructure/scheduler"
	"github.com/kirillkom/fleet-claims/internal/infrastructure/seed"
	"github.com/kirillkom/fleet-claims/internal/observability/metrics"
)

// Role selects which side of the step dispatch a process plays.
type Role string

const (
	// RoleAPI serves requests and dispatches steps locally or over NATS.
	RoleAPI Role = "api"
	// RoleWorker consumes NATS step commands into a local scheduler.
	RoleWorker Role = "worker"
	// RoleMCP serves agent tools and dispatches like the api.
	RoleMCP Role = "mcp"
)

type App struct {
	Config config.Config
	Role   Role

	Repo      ports.ClaimRepository
	Intake    *usecase.IntakeUseCase
	Query     *usecase.QueryUseCase
	Editor    *usecase.EditUseCase
	Pipeline  *usecase.PipelineUseCase
	Assistant *usecase.AssistantUseCase

	// Scheduler runs steps in this process. Nil for an api that dispatches over NATS.
	Scheduler *scheduler.Scheduler
	// Dispatcher is the NATS link. Nil with local dispatch.
	Dispatcher *nats.Dispatcher

	Registry        *prometheus.Registry
	PipelineMetrics *metrics.PipelineMetrics

	closers []func()
}

// New wires the application for role. registry receives pipeline metrics; a
// fresh one is created when nil.
func New(ctx context.Context, cfg config.Config, role Role, registry *prometheus.Registry) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if role == RoleWorker && cfg.StepDispatch != config.DispatchNATS {
		return nil, fmt.Errorf("worker requires STEP_DISPATCH=%s", config.DispatchNATS)
	}
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	app := &App{
		Config:   cfg,
		Role:     role,
		Registry: registry,
	}
	app.PipelineMetrics = metrics.NewPipelineMetrics(string(role), registry)

	executor := resilience.NewExecutor(cfg.Resilience())
	executor.OnRetry(app.PipelineMetrics.RecordRetry)

	repo, err := app.openRepository(ctx, executor)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.Repo = repo

	adjusters, err := roster.Load(cfg.AdjusterRosterPath)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("load adjuster roster: %w", err)
	}

	app.Pipeline = usecase.NewPipelineUseCase(repo, app.PipelineMetrics)
	dispatcher, err := app.openDispatcher(executor)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.Pipeline.AttachDispatcher(dispatcher)

	app.Intake = usecase.NewIntakeUseCase(repo, adjusters, dispatcher, usecase.NewIDGenerator(nil), app.PipelineMetrics)
	app.Query = usecase.NewQueryUseCase(repo, xlsx.NewExporter())
	app.Editor = usecase.NewEditUseCase(repo, app.Pipeline.Locks())
	app.Assistant = usecase.NewAssistantUseCase()

	if cfg.SeedDemoClaims && role != RoleWorker {
		if err := app.seedDemoClaims(ctx, adjusters); err != nil {
			app.Close()
			return nil, err
		}
	}
	return app, nil
}

func (a *App) openRepository(ctx context.Context, executor *resilience.Executor) (ports.ClaimRepository, error) {
	if a.Config.ClaimsStore != config.StorePostgres {
		return memory.NewClaimRepository(nil), nil
	}

	db, err := postgres.OpenDB(a.Config.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	a.closers = append(a.closers, func() { closeDB(db) })

	repo := postgres.NewClaimRepository(db, executor, nil)
	if err := repo.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return repo, nil
}

// openDispatcher returns what intake starts claims on. A worker gets its
// local scheduler here and keeps the NATS link for Serve.
func (a *App) openDispatcher(executor *resilience.Executor) (ports.StepDispatcher, error) {
	useNATS := a.Config.StepDispatch == config.DispatchNATS
	useLocal := !useNATS || a.Role == RoleWorker

	if useNATS {
		d, err := nats.Connect(a.Config.NATSURL, nats.Options{
			StepSubject:        a.Config.NATSStepSubject,
			CancelSubject:      a.Config.NATSCancelSubject,
			ResilienceExecutor: executor,
		})
		if err != nil {
			return nil, fmt.Errorf("init step dispatcher: %w", err)
		}
		a.Dispatcher = d
		a.closers = append(a.closers, d.Close)
	}
	if useLocal {
		minDelay, maxDelay := a.Config.StepDelays()
		a.Scheduler = scheduler.New(a.Pipeline, scheduler.Options{MinDelay: minDelay, MaxDelay: maxDelay})
		a.closers = append(a.closers, a.Scheduler.Close)
		return a.Scheduler, nil
	}
	return a.Dispatcher, nil
}

func (a *App) seedDemoClaims(ctx context.Context, adjusters ports.AdjusterAssigner) error {
	claims, err := seed.DemoClaims()
	if err != nil {
		return err
	}
	inserted, err := usecase.NewSeedUseCase(a.Repo, adjusters, a.Pipeline, nil).Seed(ctx, claims)
	if err != nil {
		return fmt.Errorf("seed demo claims: %w", err)
	}
	slog.Info("demo_claims_seeded", "inserted", inserted, "total", len(claims))
	return nil
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func closeDB(db *sql.DB) {
	if err := db.Close(); err != nil {
		slog.Warn("postgres_close_failed", "error", err)
	}
}
