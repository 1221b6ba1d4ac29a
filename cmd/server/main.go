package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"soracom-harvest/internal/config"
	"soracom-harvest/internal/handlers"
	"soracom-harvest/internal/logging"
	"soracom-harvest/internal/middleware"
	"soracom-harvest/internal/models"
	"soracom-harvest/internal/services"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		logrus.Warn("No .env file found")
	}

	cfg := config.Load()

	logger, err := logging.New(cfg.Log, os.Stderr)
	if err != nil {
		logrus.Fatal("Invalid logging configuration: ", err)
	}

	router, err := newRouter(cfg, logger)
	if err != nil {
		logger.Fatal("Invalid server configuration: ", err)
	}

	srv := &http.Server{
		Addr:    cfg.Server.Host + ":" + cfg.Server.Port,
		Handler: router,
	}

	// Graceful shutdown
	go func() {
		logger.Infof("Starting server on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	// Give outstanding requests a deadline for completion
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown:", err)
	}

	logger.Info("Server exited")
}

func newRouter(cfg *config.Config, logger *logrus.Logger) (*gin.Engine, error) {
	if cfg.JWT.Secret == "" {
		return nil, errors.New("JWT_SECRET must be set")
	}

	soracomService := services.NewSoracomService(cfg.Soracom, logger)
	harvestService := services.NewHarvestService(soracomService, logger)

	harvestHandler := handlers.NewHarvestHandler(harvestService, models.Credentials{
		AuthKeyID: cfg.Soracom.AuthKeyID,
		AuthKey:   cfg.Soracom.AuthKey,
	}, logger)

	router := gin.New()

	router.Use(cors.New(cors.Config{
		AllowOrigins:  []string{"*"},
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders: []string{"Content-Length", middleware.RequestIDHeader},
	}))

	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(logger.WithField("context", "http")))
	router.Use(middleware.Recovery())

	api := router.Group("/api/v1")
	api.Use(middleware.AuthMiddleware(cfg.JWT.Secret))
	{
		api.POST("/harvest", harvestHandler.Harvest)
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	return router, nil
}
