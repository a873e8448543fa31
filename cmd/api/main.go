package main

import (
	"fmt"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/j-soro/housing-ml-pipeline/config"
	"github.com/j-soro/housing-ml-pipeline/engine"
	"github.com/j-soro/housing-ml-pipeline/handlers"
	"github.com/j-soro/housing-ml-pipeline/middleware"
	"github.com/j-soro/housing-ml-pipeline/services"
	"github.com/j-soro/housing-ml-pipeline/storage"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	db, err := gorm.Open(postgres.Open(cfg.Database.GetDSN()), &gorm.Config{})
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		log.Fatalf("failed to get database handle: %v", err)
	}
	if err := sqlDB.Ping(); err != nil {
		log.Fatalf("failed to ping database: %v", err)
	}

	gateway := storage.NewGateway(db)
	if err := gateway.AutoMigrate(); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	cache, err := services.NewCacheService(cfg.Redis)
	if err != nil {
		log.Printf("redis unavailable, caching and live updates disabled: %v", err)
	}
	defer cache.Close()

	authService := services.NewAuthService(cfg.JWT)
	engineClient := engine.NewClient(cfg.Engine.URL, cfg.Database.GetDSN(), cfg.Model.Path)
	predictionService := services.NewPredictionService(engineClient, gateway)

	predictionHandler := handlers.NewPredictionHandler(predictionService, cache)
	runHandler := handlers.NewRunHandler(engineClient)
	recordHandler := handlers.NewRecordHandler(gateway)
	authHandler := handlers.NewAuthHandler(db, authService)

	router := gin.Default()
	router.Use(middleware.SetupCORS(cfg.CORS))
	router.Use(middleware.Metrics())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "UP",
			"message": "housing prediction API is running",
			"cache":   cache.Available(),
		})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api/v1")
	{
		api.POST("/predictions", predictionHandler.SubmitPrediction)
		api.GET("/predictions/:run_id", predictionHandler.GetPrediction)
		api.GET("/runs/:run_id", runHandler.GetRun)
		api.GET("/records/:id", recordHandler.GetRecord)
	}

	auth := router.Group("/auth")
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
	}

	router.GET("/ws/runs", handlers.LiveRuns(cache, authService))

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	log.Printf("starting API server on %s (engine %s)", addr, cfg.Engine.URL)
	if err := router.Run(addr); err != nil {
		log.Fatalf("server stopped: %v", err)
	}
}
