// Package main initializes and starts the course vault server,
// setting up configuration, logging, the database, repositories,
// services and HTTP handlers.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	nethttp "net/http"

	"go.uber.org/zap"

	"coursevault/internal/analyzer"
	"coursevault/internal/config"
	"coursevault/internal/db"
	"coursevault/internal/downloader"
	"coursevault/internal/logger"
	"coursevault/internal/repository"
	"coursevault/internal/server/handler/http"
	"coursevault/internal/service"
	"coursevault/internal/vault"
)

var (
	// version holds the build version set via ldflags.
	version string
	// buildDate holds the build timestamp set via ldflags.
	buildDate string
)

func main() {
	// Parse command-line and environment configuration.
	options := config.Parse()

	// Print build metadata (or "N/A" if unset).
	buildVersion := version
	if buildVersion == "" {
		buildVersion = "N/A"
	}
	buildDateStr := buildDate
	if buildDateStr == "" {
		buildDateStr = "N/A"
	}
	fmt.Printf("Build version: %s\n", buildVersion)
	fmt.Printf("Build date: %s\n", buildDateStr)

	// Initialize structured logging.
	log := logger.New()
	defer func() { _ = log.Log.Sync() }()
	if err := log.Init("Info"); err != nil {
		log.Log.Fatal("failed to init logger", zap.Error(err))
	}
	zapLogger := log.Log

	if options.JWTSecret == "" {
		zapLogger.Fatal("JWT_SECRET is required")
	}

	// The vault key is mandatory; nothing can be stored without it.
	v, err := vault.New(options.VaultKey)
	if err != nil {
		zapLogger.Fatal("cannot init vault", zap.Error(err))
	}

	// Initialize PostgreSQL connection.
	postgresDB, err := db.InitPostgres(options.DatabaseDSN)
	if err != nil {
		zapLogger.Fatal("cannot init database", zap.Error(err))
	}

	// Fail analyses whose pipeline died without writing a terminal state.
	db.StartStaleAnalysisSweeper(context.Background(), postgresDB,
		10*time.Minute, // interval
		time.Hour,      // max age of a processing row
		zapLogger,
	)

	// Initialize repositories.
	userRepo := repository.NewPostgresUserRepository(postgresDB)
	courseRepo := repository.NewPostgresCourseRepository(postgresDB)
	analysisRepo := repository.NewPostgresAnalysisRepository(postgresDB)

	// Initialize business-logic services.
	authService := service.NewAuthService(userRepo, options.JWTSecret)
	courseService := service.NewCourseService(courseRepo, v)
	analysisService := service.NewAnalysisService(
		analysisRepo,
		downloader.NewYtDlp(options.YtDlpPath, options.TempDir, zapLogger),
		analyzer.New(analyzer.Config{
			BaseURL:         options.ProviderBaseURL,
			AppKey:          options.ProviderAppKey,
			AccessKeyID:     options.ProviderAccessKeyID,
			AccessKeySecret: options.ProviderAccessKeySecret,
			Fallback:        options.ProviderFallback,
		}, zapLogger),
		zapLogger,
	)

	// Create HTTP handlers.
	authHandler := &http.AuthHandler{AuthService: authService}
	courseHandler := &http.CourseHandler{CourseService: courseService, Users: authService}
	analysisHandler := &http.AnalysisHandler{AnalysisService: analysisService, Users: authService}
	proxyHandler := &http.ProxyHandler{CourseService: courseService, Users: authService}

	// Build the router with middleware and routes.
	router := http.NewRouter(authHandler, courseHandler, analysisHandler, proxyHandler, options.JWTSecret, zapLogger)

	server := &nethttp.Server{
		Addr:    options.Addr,
		Handler: router,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		zapLogger.Info("starting HTTP server", zap.String("addr", options.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
			zapLogger.Fatal("failed to start HTTP server", zap.Error(err))
		}
	}()

	<-ctx.Done()

	// Let in-flight requests and analysis pipelines finish.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("server shutdown", zap.Error(err))
	}
	analysisService.Wait()
	zapLogger.Info("server stopped")
}
