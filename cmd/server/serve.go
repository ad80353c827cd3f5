package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/pesio-ai/be-catering-requests/internal/auth"
	"github.com/pesio-ai/be-catering-requests/internal/client"
	"github.com/pesio-ai/be-catering-requests/internal/config"
	"github.com/pesio-ai/be-catering-requests/internal/database"
	"github.com/pesio-ai/be-catering-requests/internal/domain"
	"github.com/pesio-ai/be-catering-requests/internal/handler"
	"github.com/pesio-ai/be-catering-requests/internal/logger"
	"github.com/pesio-ai/be-catering-requests/internal/repository"
	"github.com/pesio-ai/be-catering-requests/internal/service"
	"github.com/pesio-ai/be-catering-requests/internal/storage"
)

const healthInterval = 15 * time.Second

func newServeCmd() *cobra.Command {
	var migrateOnStart bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP and gRPC servers",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg, migrateOnStart)
		},
	}
	cmd.Flags().BoolVar(&migrateOnStart, "migrate", false, "apply pending migrations before serving")
	return cmd
}

func serve(parent context.Context, cfg *config.Config, migrateOnStart bool) error {
	log := newLogger(cfg)
	log.Info().
		Str("service", cfg.Service.Name).
		Str("version", cfg.Service.Version).
		Str("environment", cfg.Service.Environment).
		Str("store", cfg.Store.Driver).
		Msg("Starting catering requests service")

	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(ctx, cfg, migrateOnStart, log)
	if err != nil {
		return err
	}
	defer closeStore()

	var publisher service.EventPublisher
	if cfg.NATS.URL != "" {
		nc, err := client.ConnectNATS(cfg.NATS.URL, cfg.Service.Name, log.Logger)
		if err != nil {
			return err
		}
		defer nc.Drain()
		publisher = client.NewNotificationPublisher(nc, cfg.NATS.SubjectPrefix, log.Logger)
		log.Info().Str("url", cfg.NATS.URL).Msg("Publishing notification events to NATS")
	}

	policy := domain.Policy{AllowSelfApproval: cfg.Workflow.AllowSelfApproval}
	emitter := service.NewEmitter(store, publisher, log.Component("notifications"))
	blobs := storage.NewOSFileStore(cfg.Storage.BaseDir, cfg.Storage.PublicBaseURL)

	services := handler.Services{
		Users: service.NewUserService(store, service.RoleRules{
			AdminEmails:          cfg.Auth.AdminEmails,
			FinanceOfficerEmails: cfg.Auth.FinanceOfficerEmails,
		}, log.Component("users")),
		Requests: service.NewRequestService(store, policy, emitter, log.Component("requests")),
		Invoices: service.NewInvoiceService(store, emitter, log.Component("invoices")),
		Payments: service.NewPaymentService(store, emitter, log.Component("payments")),
		Attachments: service.NewAttachmentService(store, blobs, service.AttachmentPolicy{
			MaxBytes:     cfg.Storage.MaxAttachmentBytes,
			AllowedTypes: cfg.Storage.AllowedMIMETypes,
		}, policy, log.Component("attachments")),
		Notifications: service.NewNotificationService(store, log.Component("notifications")),
		Reports:       service.NewReportService(store, log.Component("reports")),
	}

	httpHandler := handler.NewHTTPHandler(services, auth.NewVerifier(cfg.Auth.JWTSecret, cfg.Auth.Issuer), store, handler.Options{
		CORSOrigins:    cfg.Server.CORSOrigins,
		MaxUploadBytes: cfg.Storage.MaxAttachmentBytes,
		RequestTimeout: cfg.Server.RequestTimeout,
		Files:          blobs.Handler(),
		FilesPath:      cfg.Storage.PublicBaseURL,
	}, log.Component("http"))

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      httpHandler.Routes(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	grpcHandler := handler.NewGRPCHandler(store, cfg.Service.Name, log)
	grpcServer := grpcHandler.NewServer()
	grpcListener, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.Server.GRPCPort))
	if err != nil {
		return fmt.Errorf("listen on grpc port %d: %w", cfg.Server.GRPCPort, err)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().Int("port", cfg.Server.Port).Msg("Starting HTTP server")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		log.Info().Int("port", cfg.Server.GRPCPort).Msg("Starting gRPC server")
		if err := grpcServer.Serve(grpcListener); err != nil {
			return fmt.Errorf("grpc server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		grpcHandler.WatchStore(gctx, healthInterval)
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		grpcHandler.Shutdown()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("HTTP server shutdown failed")
		}
		grpcServer.GracefulStop()
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info().Msg("Server stopped")
	return nil
}

// openStore returns the configured store and a function releasing it.
func openStore(ctx context.Context, cfg *config.Config, migrateOnStart bool, log *logger.Logger) (repository.Store, func(), error) {
	if cfg.Store.Driver == "memory" {
		log.Warn().Msg("Using the in-memory store; data is lost on restart")
		return repository.NewMemoryStore(), func() {}, nil
	}

	if migrateOnStart {
		if err := database.MigrateUp(cfg.Database.URL); err != nil {
			return nil, nil, err
		}
		log.Info().Msg("Database migrations applied")
	}

	db, err := database.New(ctx, database.Config{
		URL:               cfg.Database.URL,
		MaxConns:          cfg.Database.MaxConns,
		MinConns:          cfg.Database.MinConns,
		MaxConnLifetime:   cfg.Database.MaxConnLifetime,
		MaxConnIdleTime:   cfg.Database.MaxConnIdleTime,
		HealthCheckPeriod: cfg.Database.HealthCheckPeriod,
	})
	if err != nil {
		return nil, nil, err
	}
	log.Info().Msg("Database connection established")
	return repository.NewPostgresStore(db), db.Close, nil
}
