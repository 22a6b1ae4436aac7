// Package server is the composition root: it wires the store, identity
// client, queue, services, and handlers into a chi router and runs the HTTP
// server with graceful shutdown.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/mwalsh/jamreg/internal/auth"
	"github.com/mwalsh/jamreg/internal/config"
	"github.com/mwalsh/jamreg/internal/handler"
	"github.com/mwalsh/jamreg/internal/identity"
	"github.com/mwalsh/jamreg/internal/middleware"
	"github.com/mwalsh/jamreg/internal/notify"
	"github.com/mwalsh/jamreg/internal/queue"
	sqliteRepo "github.com/mwalsh/jamreg/internal/repository/sqlite"
	"github.com/mwalsh/jamreg/internal/service"
)

// Server owns the long-lived resources: the database, the task queue, and
// the router. Close order on shutdown is HTTP first, then queue, then DB.
type Server struct {
	router *chi.Mux
	cfg    *config.Config
	logger *slog.Logger
	db     *sqliteRepo.DB

	memQueue  *queue.Memory    // set when running without a broker
	amqpQueue *queue.AMQPQueue // set when AMQP_URL is configured
}

func New(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	tokens, err := auth.NewTokenService(cfg.JWTSecret)
	if err != nil {
		db.Close()
		return nil, err
	}

	github := identity.NewClient(identity.Config{
		ClientID:     cfg.GitHubClientID,
		ClientSecret: cfg.GitHubClientSecret,
		CallbackURL:  cfg.GitHubCallbackURL,
		APIToken:     cfg.GitHubToken,
		Owner:        cfg.GitHubOwner,
	})

	s := &Server{
		router: chi.NewRouter(),
		cfg:    cfg,
		logger: logger,
		db:     db,
	}

	dispatcher := queue.NewDispatcher(
		notify.NewConsoleNotifier(logger),
		notify.NewConsoleEntryRemover(logger),
		logger,
	)

	var tasks queue.Queue
	if cfg.AMQPURL != "" {
		amqpQueue, err := queue.NewAMQPQueue(cfg.AMQPURL, cfg.TaskExchange)
		if err != nil {
			db.Close()
			return nil, err
		}
		s.amqpQueue = amqpQueue
		tasks = amqpQueue
	} else {
		logger.Warn("no AMQP_URL configured, using the in-process queue")
		s.memQueue = queue.NewMemory(dispatcher, logger)
		s.memQueue.Start(2)
		tasks = s.memQueue
	}

	intake := service.NewIntakeService(db, github,
		cfg.ParticipantRegistrationOpen, cfg.JudgeRegistrationOpen, logger)
	review := service.NewReviewService(db, db, db, tasks, logger)
	ledger := service.NewLedgerService(db, logger)

	s.setupRoutes(
		handler.NewAuthHandler(github, tokens, cfg.IsStaff, logger),
		handler.NewApplicationHandler(intake, logger),
		handler.NewReviewHandler(review, logger),
		handler.NewLedgerHandler(ledger, logger),
		tokens,
	)

	return s, nil
}

func (s *Server) setupRoutes(
	authHandler *handler.AuthHandler,
	appHandler *handler.ApplicationHandler,
	reviewHandler *handler.ReviewHandler,
	ledgerHandler *handler.LedgerHandler,
	tokens *auth.TokenService,
) {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))

	s.router.Get("/auth/github/login", authHandler.HandleGitHubLogin)
	s.router.Get("/auth/github/callback", authHandler.HandleGitHubCallback)
	s.router.Post("/auth/logout", authHandler.HandleLogout)

	s.router.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth(tokens))
			r.Get("/me", authHandler.HandleMe)
			r.Post("/applications/participant", appHandler.HandleSubmitParticipant)
			r.Post("/applications/judge", appHandler.HandleSubmitJudge)
		})

		r.Route("/staff", func(r chi.Router) {
			r.Use(auth.RequireStaff(tokens))
			r.Get("/applications", reviewHandler.HandleList)
			r.Get("/applications/{id}", reviewHandler.HandleGet)
			r.Post("/applications/{id}/accept", reviewHandler.HandleAccept)
			r.Post("/applications/{id}/decline", reviewHandler.HandleDecline)
			r.Post("/applications/{id}/remove-entry", reviewHandler.HandleRemoveEntry)
			r.Put("/applications/{id}/tiers", reviewHandler.HandleMarkTiers)
			r.Post("/applications/{id}/commits", reviewHandler.HandleRecordCommit)
			r.Get("/repo-actions/{action}", ledgerHandler.HandleReposWithAction)
			r.Post("/repo-actions/{action}", ledgerHandler.HandleMarkComplete)
		})
	})
}

// Start runs the server until SIGINT/SIGTERM, then drains in-flight requests
// and closes the queue and database.
func (s *Server) Start() error {
	defer s.db.Close()
	defer s.stopQueue()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.cfg.Port),
			slog.String("database", s.cfg.DBPath),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}

func (s *Server) stopQueue() {
	if s.memQueue != nil {
		s.memQueue.Stop()
	}
	if s.amqpQueue != nil {
		if err := s.amqpQueue.Close(); err != nil {
			s.logger.Error("closing queue", slog.String("error", err.Error()))
		}
	}
}
