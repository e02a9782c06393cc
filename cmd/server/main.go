package main

import (
	"fmt"
	"log"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"bank-reconciliation-engine/internal/config"
	"bank-reconciliation-engine/internal/logger"
	"bank-reconciliation-engine/internal/repository"
	"bank-reconciliation-engine/internal/routes"
)

func main() {
	// Load .env
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on system env")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	slogger := logger.New(cfg)

	db, err := repository.InitDB(cfg)
	if err != nil {
		slogger.Error("database init failed", "error", err)
		log.Fatal(err)
	}

	if cfg.Application.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.Default()
	// CORS config
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE"},
		AllowHeaders:     []string{"Origin", "Content-Type", "X-Operator"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	routes.RegisterRoutes(r, db, cfg, slogger)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	slogger.Info("server starting", "addr", addr)
	if err := r.Run(addr); err != nil {
		slogger.Error("server stopped", "error", err)
		log.Fatal(err)
	}
}
