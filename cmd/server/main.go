package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gocab/internal/config"
	"gocab/internal/events"
	handlers "gocab/internal/handlers/shared"
	"gocab/internal/middleware"
	"gocab/internal/realtime"
	"gocab/internal/repositories/mongodb"
	"gocab/internal/services"
	"gocab/pkg/cache"
	"gocab/pkg/database"
	"gocab/pkg/logger"
	"gocab/routes"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	// Missing .env is fine; the environment may be set by the deployment.
	godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.NewLogger(&logger.Config{
		Level:  logger.LogLevel(cfg.App.LogLevel),
		Format: cfg.App.LogFormat,
		Output: "stdout",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	db, err := database.NewMongoDB(&database.DatabaseConfig{
		URI:            cfg.Database.URI,
		Database:       cfg.Database.Database,
		MaxPoolSize:    cfg.Database.MaxPoolSize,
		MinPoolSize:    cfg.Database.MinPoolSize,
		ConnectTimeout: cfg.Database.ConnectTimeout,
		SocketTimeout:  cfg.Database.SocketTimeout,
	})
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to MongoDB")
	}
	defer db.Close()

	indexCtx, cancelIndex := context.WithTimeout(context.Background(), 30*time.Second)
	if err := db.EnsureIndexes(indexCtx); err != nil {
		cancelIndex()
		log.WithError(err).Fatal("Failed to create indexes")
	}
	cancelIndex()

	redisCache, err := cache.NewRedisCache(&cache.RedisConfig{
		Host:         cfg.Redis.Host,
		Port:         cfg.Redis.Port,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
		DialTimeout:  cfg.Redis.DialTimeout,
		ReadTimeout:  cfg.Redis.ReadTimeout,
		WriteTimeout: cfg.Redis.WriteTimeout,
	})
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to Redis")
	}
	defer redisCache.Close()

	var publisher *events.Publisher
	if cfg.Kafka.Enabled {
		publisher = events.NewPublisher(cfg.Kafka.Brokers, cfg.Kafka.RideEventsTopic)
		defer publisher.Close()
	}

	// Repositories
	rideRepo := mongodb.NewRideRepository(db.Database)
	driverRepo := mongodb.NewDriverRepository(db.Database, redisCache)
	userRepo := mongodb.NewUserRepository(db.Database, redisCache)
	messageRepo := mongodb.NewMessageRepository(db.Database)

	// Services
	fareService := services.NewFareService(rideRepo, driverRepo, cfg.Pricing, log)
	dispatchService := services.NewDispatchService(
		rideRepo,
		driverRepo,
		userRepo,
		fareService,
		publisher,
		cfg.Pricing,
		cfg.Database.OperationTimeout,
		log,
	)
	messageService := services.NewMessageService(messageRepo, redisCache)

	// Realtime gateway
	registry := realtime.NewRegistry()
	hub := realtime.NewHub()
	gateway := realtime.NewGateway(registry, hub, driverRepo, messageService, log)
	wsHandler := realtime.NewHandler(gateway, cfg.WebSocket, cfg.Security, log)

	// HTTP handlers
	rideHandler := handlers.NewRideHandler(dispatchService, fareService)
	messageHandler := handlers.NewMessageHandler(messageService)

	if config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORSMiddleware())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.RequestLogger(log))

	v1 := router.Group("/api/v1")
	routes.SetupRideRoutes(v1, cfg.Security.JWTSecret, rideHandler, messageHandler)
	routes.SetupRealtimeRoutes(router, cfg.WebSocket.Path, wsHandler)

	router.GET("/health", func(c *gin.Context) {
		status := "healthy"
		code := http.StatusOK
		if err := db.Ping(); err != nil {
			status = "degraded"
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, gin.H{
			"status":  status,
			"version": cfg.App.Version,
		})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.App.Host, cfg.App.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.WithField("addr", server.Addr).Info("Starting server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("Server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Forced shutdown")
	}
}
