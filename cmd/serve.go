package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/Dosada05/alumni-network/config"
	"github.com/Dosada05/alumni-network/handlers"
	"github.com/Dosada05/alumni-network/middleware"
	"github.com/Dosada05/alumni-network/notify"
	"github.com/Dosada05/alumni-network/repositories"
	"github.com/Dosada05/alumni-network/routes"
	"github.com/Dosada05/alumni-network/services"
	"github.com/Dosada05/alumni-network/storage"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const shutdownTimeout = 15 * time.Second

func serveRun(parent context.Context, cfg *config.Config) error {
	logger := setupLogger(cfg)
	logger.Info("configuration loaded", slog.Int("port", cfg.ServerPort))

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dbConn, err := openDatabase(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeDatabase(dbConn, logger)

	// Cloudflare R2 опционален: без него загрузка фото вернёт ошибку
	var uploader storage.FileUploader
	if cfg.R2Enabled() {
		uploader, err = storage.NewCloudflareR2Uploader(ctx, storage.CloudflareR2UploaderConfig{
			AccountID:       cfg.R2AccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			SecretAccessKey: cfg.R2SecretAccessKey,
			BucketName:      cfg.R2BucketName,
			PublicBaseURL:   cfg.R2PublicBaseURL,
		})
		if err != nil {
			return fmt.Errorf("failed to initialize Cloudflare R2 uploader: %w", err)
		}
		logger.Info("Cloudflare R2 uploader initialized")
	} else {
		logger.Warn("R2 is not configured, photo uploads are disabled")
	}

	var mailer services.Mailer
	if cfg.SMTPEnabled() {
		emailService, err := services.NewEmailService(cfg)
		if err != nil {
			return err
		}
		mailer = emailService
		logger.Info("SMTP notifications enabled", slog.String("host", cfg.SMTPHost))
	}

	var google services.GoogleIdentityProvider
	if cfg.GoogleEnabled() {
		google = services.NewGoogleOAuthProvider(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRedirectURL)
	}

	hub := notify.NewHub(logger)
	hubDone := make(chan struct{})
	go func() {
		defer close(hubDone)
		hub.Run(ctx)
	}()
	logger.Info("WebSocket hub started")

	// Репозитории
	dialect := repositories.Dialect(cfg.DatabaseDriver)
	userRepo := repositories.NewSQLUserRepository(dbConn, dialect)
	submissionRepo := repositories.NewSQLSubmissionRepository(dbConn, dialect)
	alumniRepo := repositories.NewSQLAlumniRepository(dbConn, dialect)
	fieldAdminRepo := repositories.NewSQLFieldAdminRepository(dbConn, dialect)
	eventRepo := repositories.NewSQLEventRepository(dbConn, dialect)
	registrationRepo := repositories.NewSQLRegistrationRepository(dbConn, dialect)
	notificationRepo := repositories.NewSQLNotificationRepository(dbConn, dialect)

	// Сервисы
	notifier := services.NewNotifier(notificationRepo, userRepo, hub, mailer, logger)
	authService := services.NewAuthService(userRepo, submissionRepo, alumniRepo, google, logger)
	submissionService := services.NewSubmissionService(dbConn, submissionRepo, userRepo, alumniRepo, fieldAdminRepo, notifier, uploader, logger)
	fieldAdminService := services.NewFieldAdminService(dbConn, userRepo, fieldAdminRepo, notifier, logger)
	directoryService := services.NewDirectoryService(alumniRepo)
	reportService := services.NewReportService(alumniRepo)
	profileService := services.NewProfileService(alumniRepo, uploader, logger)
	eventService := services.NewEventService(dbConn, eventRepo, registrationRepo, logger)
	notificationService := services.NewNotificationService(notificationRepo)
	dashboardService := services.NewDashboardService(submissionRepo, alumniRepo, eventRepo, fieldAdminRepo)

	tokens := middleware.NewTokenManager(cfg.JWTSecretKey, cfg.TokenTTL)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	router := chi.NewRouter()
	routes.SetupRoutes(router, routes.Handlers{
		Auth:         handlers.NewAuthHandler(authService, tokens),
		Submission:   handlers.NewSubmissionHandler(submissionService),
		FieldAdmin:   handlers.NewFieldAdminHandler(fieldAdminService),
		Directory:    handlers.NewDirectoryHandler(directoryService, reportService),
		Event:        handlers.NewEventHandler(eventService),
		Profile:      handlers.NewProfileHandler(profileService),
		Notification: handlers.NewNotificationHandler(notificationService),
		WebSocket:    handlers.NewWebSocketHandler(hub, cfg.CORSAllowedOrigins, logger),
		Dashboard:    handlers.NewDashboardHandler(dashboardService),
	}, routes.Options{
		Tokens:         tokens,
		Users:          userRepo,
		AllowedOrigins: cfg.CORSAllowedOrigins,
		Registry:       registry,
		Logger:         logger,
	})
	logger.Info("routes configured")

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("address", server.Addr))
		serverErrors <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		stop()
		<-hubDone
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	logger.Info("shutting down server", slog.Duration("timeout", shutdownTimeout))
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", slog.Any("error", err))
		if closeErr := server.Close(); closeErr != nil {
			logger.Error("failed to force close server", slog.Any("error", closeErr))
		}
		return err
	}
	<-hubDone
	logger.Info("server shutdown complete")
	return nil
}
