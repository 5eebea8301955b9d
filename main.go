package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/settlelinecompany-commits/contract-intelligence-agent/config"
	"github.com/settlelinecompany-commits/contract-intelligence-agent/handler"
	"github.com/settlelinecompany-commits/contract-intelligence-agent/middleware"
	"github.com/settlelinecompany-commits/contract-intelligence-agent/pkg/logger"
	"github.com/settlelinecompany-commits/contract-intelligence-agent/service"
)

func main() {
	cfg, err := config.Load("config.yaml")
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger.Init(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})

	slog.Info("configuration loaded",
		"ocr_backends", len(cfg.OCR.Backends),
		"pipeline_deadline_s", cfg.Pipeline.DeadlineSeconds,
	)

	// PDF archive is optional: without MinIO the pipeline still runs,
	// the original uploads just aren't retrievable afterwards.
	var archive handler.Archiver
	if cfg.Minio.Endpoint != "" {
		archiveSvc, err := service.NewArchiveService(&cfg.Minio)
		if err != nil {
			slog.Error("failed to initialize archive service", "error", err)
			os.Exit(1)
		}
		if err := archiveSvc.EnsureBucket(context.Background()); err != nil {
			slog.Error("failed to ensure archive bucket", "error", err)
			os.Exit(1)
		}
		archive = archiveSvc
	} else {
		slog.Warn("minio not configured, uploaded PDFs will not be archived")
	}

	registry := service.NewHealthRegistry(
		cfg.OCR.CircuitBreaker.FailureThreshold,
		cfg.OCR.CircuitBreaker.Cooldown(),
	)
	selector := service.NewOCRSelector(cfg.OCR.Backends, registry, service.NewHTTPOCRClient())
	extractor := service.NewOpenAIExtractor(&cfg.Extractor)
	pipeline := service.NewPipeline(selector, extractor, cfg.Derive, cfg.Pipeline.Deadline())
	store := service.NewAnalysisStore(&cfg.Store)

	authHandler := handler.NewAuthHandler(cfg)
	analyzeHandler := handler.NewAnalyzeHandler(pipeline, archive, store)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	router.Use(middleware.RequestID())
	router.Use(middleware.Recovery())
	router.Use(middleware.RequestLogger())
	router.Use(corsMiddleware())
	router.Use(middleware.RateLimit(100, time.Minute))

	// Health check reports per-backend circuit state so operators can
	// see which OCR backends are being skipped.
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"backends":  registry.Snapshot(),
			"timestamp": time.Now().Format(time.RFC3339),
		})
	})

	api := router.Group("/api")
	{
		api.POST("/auth/login", authHandler.Login)
	}

	protected := api.Group("/")
	protected.Use(middleware.AuthMiddleware(&cfg.Auth))
	{
		protected.GET("/auth/me", authHandler.GetCurrentUser)
		protected.POST("/contracts/analyze", analyzeHandler.Analyze)
		protected.GET("/contracts", analyzeHandler.List)
		protected.GET("/contracts/:id", analyzeHandler.Get)
		protected.DELETE("/contracts/:id", analyzeHandler.Delete)
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
		// Analyze is synchronous; the write timeout must outlast the
		// pipeline deadline.
		ReadTimeout:  60 * time.Second,
		WriteTimeout: cfg.Pipeline.Deadline() + 30*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		slog.Info("server starting", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("failed to start server", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("server exited gracefully")
}

// corsMiddleware handles CORS headers
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With, X-Request-ID")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "X-Request-ID")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
