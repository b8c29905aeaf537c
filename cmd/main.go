package main

import (
	"anonchat/backend/internal/api/handler"
	"anonchat/backend/internal/chathub"
	"anonchat/backend/internal/config"
	"anonchat/backend/internal/models"
	"anonchat/backend/internal/ratelimit"
	"anonchat/backend/internal/storage"
	"context"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func setupDependencies() (*gorm.DB, *redis.Client) {
	dsn := getenv("DATABASE_DSN", "host=localhost user=user password=password dbname=anonchatdb port=5432 sslmode=disable")

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("Failed to connect PostgreSQL: %v", err)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     getenv("REDIS_ADDR", "localhost:6379"),
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       0,
	})

	ctx := context.Background()
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		log.Fatalf("Failed to connect Redis: %v", err)
	}

	err = db.AutoMigrate(
		&models.Session{},
		&models.Message{},
	)
	if err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	log.Println("Database and Redis connections established, migrations complete.")
	return db, rdb
}

func main() {
	log.Println("Starting AnonChat Backend...")

	if err := godotenv.Load(); err != nil {
		log.Println("Warning: Error loading .env file")
	}

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		log.Fatal("JWT_SECRET is not set!")
	}

	// 1. Dependencies
	db, rdb := setupDependencies()
	s := storage.NewStorageService(db, rdb)

	clk := clock.New()

	// 2. Rate limiters: fine-grained per participant, coarse per client IP.
	governor := ratelimit.New(ratelimit.Config{
		Window:      config.MessageRateWindow,
		MaxEvents:   config.MaxMessagesPerWindow,
		MinInterval: config.MinMessageInterval,
		BlockFor:    config.MessageBlockDuration,
	}, clk)
	requestLimiter := ratelimit.New(ratelimit.Config{
		Window:    config.RequestRateWindow,
		MaxEvents: config.MaxRequestsPerWindow,
		BlockFor:  config.RequestBlockDuration,
	}, clk)

	// 3. Hub, matcher and reaper
	hub := chathub.NewManagerService(s, governor, clk)
	matcher := chathub.NewMatcherService(hub, s, clk)
	hub.SetMatcher(matcher)
	reaper := chathub.NewReaperService(hub, s, clk)

	stop := make(chan struct{})
	go hub.Run()
	go matcher.Run()
	go reaper.Run()
	go governor.RunJanitor(config.RateStoreCleanupInterval, stop)
	go requestLimiter.RunJanitor(config.RateStoreCleanupInterval, stop)
	hub.StartPubSubListener(s.SubscribeEvents())

	// 4. Gin routing
	r := gin.Default()
	h := handler.NewHandler(hub, s, requestLimiter, []byte(jwtSecret))

	r.GET("/anonid", handler.RateLimit(requestLimiter), h.GetAnonID)
	r.GET("/ws", h.ServeWebSocket)

	api := r.Group("/api", handler.RateLimit(requestLimiter))
	api.GET("/status", h.Status)
	api.GET("/stats", h.Stats)
	api.GET("/messages/:session_id", h.Messages)

	server := &http.Server{
		Addr:           ":" + getenv("SERVER_PORT", "8080"),
		Handler:        r,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	log.Fatal(server.ListenAndServe())
}
