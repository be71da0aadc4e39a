package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	"github.com/meridian-hr/meridian-hr/internal/app"
	"github.com/meridian-hr/meridian-hr/internal/contracts"
	"github.com/meridian-hr/meridian-hr/internal/departments"
	"github.com/meridian-hr/meridian-hr/internal/employees"
	"github.com/meridian-hr/meridian-hr/internal/notify"
	"github.com/meridian-hr/meridian-hr/internal/observability"
	"github.com/meridian-hr/meridian-hr/internal/performance"
	"github.com/meridian-hr/meridian-hr/internal/platform/cache"
	"github.com/meridian-hr/meridian-hr/internal/platform/db"
	"github.com/meridian-hr/meridian-hr/internal/roles"
	"github.com/meridian-hr/meridian-hr/internal/separation"
	"github.com/meridian-hr/meridian-hr/internal/shared"
	"github.com/meridian-hr/meridian-hr/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis connect", slog.Any("error", err))
	}
	defer func() {
		if redisClient != nil {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}
	}()

	jobClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("init job client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()
	auditLogger := shared.NewAuditLogger(pool)

	notifyRepo := notify.NewRepository(pool)
	dispatcher := notify.NewDispatcher(notifyRepo, jobClient, logger)

	employeeRepo := employees.NewRepository(pool)
	employeeService := employees.NewService(employeeRepo)
	employeeHandler := employees.NewHandler(logger, employeeService)

	contractStore := contracts.NewRepository(pool)
	contractHandler := contracts.NewHandler(logger, contractStore)
	roleStore := roles.NewRepository(pool)
	reviewSource := performance.NewRepository(pool)

	headCache := cache.NewJSONCache(redisClient, cfg.DeptHeadCacheTTL)
	departmentRepo := departments.NewRepository(pool)
	departmentService := departments.NewService(departmentRepo, headCache)
	departmentHandler := departments.NewHandler(logger, departmentService)

	separationRepo := separation.NewRepository(pool)
	separationService := separation.NewService(separationRepo, employeeService, contractStore, reviewSource, dispatcher, metrics, logger)
	aggregator := separation.NewAggregator(separationRepo, departmentService, dispatcher, metrics, logger)
	gate := separation.NewGate(separationRepo, employeeService, roleStore, auditLogger, dispatcher, metrics, logger,
		parseRecipients(logger, cfg.SecurityRecipients))
	separationHandler := separation.NewHandler(logger, separationService, aggregator, gate)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		EmployeesHandler:   employeeHandler,
		ContractsHandler:   contractHandler,
		DepartmentsHandler: departmentHandler,
		SeparationHandler:  separationHandler,
		JobHandler:         jobHandler,
		Metrics:            metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		logger.Error("server exit", slog.Any("error", err))
		os.Exit(1)
	}
}

func parseRecipients(logger *slog.Logger, raw []string) []uuid.UUID {
	var ids []uuid.UUID
	for _, entry := range raw {
		id, err := uuid.Parse(entry)
		if err != nil {
			logger.Warn("skipping invalid security recipient", slog.String("value", entry))
			continue
		}
		ids = append(ids, id)
	}
	return ids
}
