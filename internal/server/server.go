package server

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"github.com/Nzyazin/cashdesk/internal/core/audit"
	"github.com/Nzyazin/cashdesk/internal/core/handler"
	"github.com/Nzyazin/cashdesk/internal/core/lock"
	"github.com/Nzyazin/cashdesk/internal/core/logger"
	"github.com/Nzyazin/cashdesk/internal/core/metrics"
	middlWre "github.com/Nzyazin/cashdesk/internal/core/middleware"
	"github.com/Nzyazin/cashdesk/internal/core/repository/memory"
	"github.com/Nzyazin/cashdesk/internal/core/usecase"
	"github.com/Nzyazin/cashdesk/internal/scheduler"
	"github.com/Nzyazin/cashdesk/pkg/config"
	"github.com/Nzyazin/cashdesk/pkg/postgresdb"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpmetrics "github.com/slok/go-http-metrics/metrics/prometheus"
	"github.com/slok/go-http-metrics/middleware"
	"github.com/slok/go-http-metrics/middleware/std"
)

type Server struct {
	cfg        *config.Config
	router     *mux.Router
	log        logger.Logger
	httpServer *http.Server

	registry  *prometheus.Registry
	audit     *audit.BatchLogger
	scheduler *scheduler.Scheduler
	db        *postgresdb.Database

	cashDeskHandler    *handler.CashDeskHandler
	cashBalanceHandler *handler.CashBalanceHandler
}

func NewServer(cfg *config.Config, log logger.Logger) (*Server, error) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(registry)

	server := &Server{
		cfg:      cfg,
		log:      log,
		router:   mux.NewRouter(),
		registry: registry,
	}

	transactionSink, balanceSink, err := server.openSinks()
	if err != nil {
		return nil, err
	}

	server.audit = audit.NewBatchLogger(auditConfig(cfg.Audit), transactionSink, balanceSink, m, log,
		audit.WithFailureHandler(func(err error) {
			log.Error("Audit trail incomplete", logger.ErrorField("error", fmt.Errorf("%w: %v", usecase.ErrAuditLogFailure, err)))
		}))

	cashierRepository, err := memory.NewCashierRepository(memory.DefaultSeed(), log)
	if err != nil {
		server.closeResources(context.Background())
		return nil, err
	}
	locks := lock.NewManager()

	cashDeskUsecase := usecase.NewCashDeskUsecase(cashierRepository, locks, server.audit, m, log, cfg.LockTimeout)
	cashBalanceUsecase := usecase.NewCashBalanceUsecase(cashierRepository, locks, log, cfg.LockTimeout)

	server.scheduler = scheduler.New(log)
	snapshotJob := scheduler.NewBalanceSnapshotJob(cashBalanceUsecase, server.audit, cfg.Audit.WriteTimeout)
	if err := server.scheduler.AddJob(cfg.Audit.Schedule, snapshotJob); err != nil {
		server.closeResources(context.Background())
		return nil, err
	}

	server.cashDeskHandler = handler.NewCashDeskHandler(cashDeskUsecase, log)
	server.cashBalanceHandler = handler.NewCashBalanceHandler(cashBalanceUsecase, log)

	server.router.Use(loggingMiddleware(server.log))

	mw := middleware.New(middleware.Config{
		Recorder: httpmetrics.NewRecorder(httpmetrics.Config{Registry: registry}),
	})

	server.router.Use(func(next http.Handler) http.Handler {
		return std.Handler("", mw, next)
	})

	server.RegisterRoutes()

	return server, nil
}

func (s *Server) openSinks() (audit.Sink, audit.Sink, error) {
	if s.cfg.Audit.Sink == config.AuditSinkPostgres {
		cfgDB, err := config.LoadConfigDB()
		if err != nil {
			return nil, nil, err
		}

		db, err := postgresdb.NewPostgresDB(context.Background(), *cfgDB, s.log)
		if err != nil {
			return nil, nil, err
		}
		if err := audit.EnsureSchema(context.Background(), db.DB); err != nil {
			db.Close()
			return nil, nil, err
		}
		s.db = db
		return audit.NewPostgresSink(db.DB, audit.StreamTransaction), audit.NewPostgresSink(db.DB, audit.StreamBalance), nil
	}

	transactionSink, err := audit.NewFileSink(filepath.Join(s.cfg.Audit.Dir, "transactions.txt"))
	if err != nil {
		return nil, nil, err
	}
	balanceSink, err := audit.NewFileSink(filepath.Join(s.cfg.Audit.Dir, "balances.txt"))
	if err != nil {
		transactionSink.Close()
		return nil, nil, err
	}
	return transactionSink, balanceSink, nil
}

func auditConfig(cfg config.AuditConfig) audit.Config {
	return audit.Config{
		Transactions: audit.QueueConfig{
			Capacity:  cfg.TransactionCapacity,
			BatchSize: cfg.TransactionBatchSize,
			Interval:  cfg.TransactionInterval,
		},
		Balances: audit.QueueConfig{
			Capacity:  cfg.BalanceCapacity,
			BatchSize: cfg.BalanceBatchSize,
			Interval:  cfg.BalanceInterval,
		},
		WriteTimeout: cfg.WriteTimeout,
	}
}

func (s *Server) RegisterRoutes() {
	s.router.Use(
		middlWre.WithErrorHandler(s.log),
		middlWre.Recovery(s.log),
	)

	api := s.router.PathPrefix("/api/v1").Subrouter()
	api.Use(middlWre.APIKey(s.cfg.APIKey, s.log))
	s.cashDeskHandler.RegisterRoutes(api)
	s.cashBalanceHandler.RegisterRoutes(api)

	s.router.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)
}

func (s *Server) Run(addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadTimeout:       9 * time.Second,
		WriteTimeout:      12 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 60 * time.Second,
	}

	s.httpServer = srv
	s.scheduler.Start()

	return srv.ListenAndServe()
}

func (s *Server) RunTLS(addr, certFile, keyFile string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadTimeout:       9 * time.Second,
		WriteTimeout:      9 * time.Second,
		IdleTimeout:       120 * time.Second,
		ReadHeaderTimeout: 6 * time.Second,
		TLSConfig:         &tls.Config{MinVersion: tls.VersionTLS12},
	}

	s.httpServer = srv
	s.scheduler.Start()

	return srv.ListenAndServeTLS(certFile, keyFile)
}

// Shutdown stops intake first so the audit drain sees every committed
// operation: HTTP server, then scheduler, then audit logger, then database.
func (s *Server) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	var shutdownErr error

	go func() {
		defer close(done)

		if s.httpServer != nil {
			if err := s.httpServer.Shutdown(ctx); err != nil {
				s.log.Error("failed to shutdown HTTP server", logger.ErrorField("error", err))
				shutdownErr = errors.Join(shutdownErr, fmt.Errorf("HTTP server shutdown error: %w", err))
			}
		}

		if err := s.closeResources(ctx); err != nil {
			shutdownErr = errors.Join(shutdownErr, err)
		}
	}()

	select {
	case <-done:
		return shutdownErr
	case <-ctx.Done():
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

func (s *Server) closeResources(ctx context.Context) error {
	var errs []error

	if s.scheduler != nil {
		s.scheduler.Stop()
	}

	if s.audit != nil {
		drainCtx, cancel := ctx, context.CancelFunc(func() {})
		if s.cfg.Audit.ShutdownTimeout > 0 {
			drainCtx, cancel = context.WithTimeout(ctx, s.cfg.Audit.ShutdownTimeout)
		}
		err := s.audit.Close(drainCtx)
		cancel()
		if err != nil {
			s.log.Error("failed to drain audit log", logger.ErrorField("error", err))
			errs = append(errs, fmt.Errorf("audit shutdown error: %w", err))
		}
	}

	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.log.Error("failed to close database connection", logger.ErrorField("error", err))
			errs = append(errs, fmt.Errorf("database shutdown error: %w", err))
		}
	}
	return errors.Join(errs...)
}

func loggingMiddleware(log logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			log.Info("HTTP request",
				logger.StringField("method", r.Method),
				logger.StringField("path", r.URL.Path),
				logger.StringField("remote_addr", r.RemoteAddr),
				logger.StringField("user_agent", r.UserAgent()),
			)
			next.ServeHTTP(w, r)
		})
	}
}
