package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"textile-backend/internal/backup"
	"textile-backend/internal/cache"
	"textile-backend/internal/config"
	"textile-backend/internal/database"
	"textile-backend/internal/db"
	h "textile-backend/internal/http"
	"textile-backend/internal/handlers"
	"textile-backend/internal/health"
	"textile-backend/internal/middleware"
	"textile-backend/internal/repositories"
	"textile-backend/internal/services"
	"textile-backend/internal/websocket"
	"textile-backend/migrations"
)

func main() {
	port := flag.Int("port", 0, "Server port (overrides config)")
	configPath := flag.String("config", "configs/config.yaml", "Path to config file")
	flag.Parse()

	cfg, err := config.LoadFrom(*configPath)
	if err != nil {
		log.Fatalf("config unmarshal error: %v", err)
	}
	if *port > 0 {
		cfg.Server.Port = *port
	}

	pool := db.Connect(cfg)
	defer pool.Close()
	log.Printf("Connected to database: %s:%d/%s", cfg.Database.Host, cfg.Database.Port, cfg.Database.Name)

	// Initialize Redis cache (optional - graceful fallback if unavailable)
	var redisPing func(ctx context.Context) error
	if err := cache.Init(cfg.RedisAddr(), cfg.Redis.Password, cfg.Redis.DB); err != nil {
		log.Printf("[Redis] Cache unavailable: %v (reports will be built on every request)", err)
	} else {
		log.Println("[Redis] Cache connected successfully")
		redisPing = cache.Ping
	}

	// Run database migrations
	log.Println("Running database migrations...")
	migrator := database.NewMigratorWithFS(pool, migrations.FS, ".")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := migrator.RunMigrations(ctx); err != nil {
		cancel()
		log.Fatalf("Failed to run migrations: %v", err)
	}
	cancel()

	// Live lot events
	hub := websocket.NewHub()
	go hub.Run()

	// Repositories
	lotRepo := repositories.NewLotRepository(pool)
	dispatchRepo := repositories.NewDispatchRepository(pool)

	// Services
	lotService := services.NewLotService(lotRepo, hub)
	dispatchService := services.NewDispatchService(dispatchRepo, lotRepo)
	cacheTTL := time.Duration(cfg.Reports.CacheTTLSeconds) * time.Second
	reportService := services.NewReportService(lotRepo, dispatchRepo, cacheTTL)
	reportService.RegisterPreWarm()

	// Snapshot backups
	var scheduler *backup.Scheduler
	if cfg.Backup.Enabled {
		client, err := backup.NewS3Client(context.Background(), cfg)
		if err != nil {
			log.Printf("[Backup] Disabled: %v", err)
		} else {
			interval := time.Duration(cfg.Backup.IntervalMinutes) * time.Minute
			scheduler = backup.NewScheduler(lotRepo, dispatchRepo, client, cfg.Backup.Bucket, cfg.Backup.Prefix, interval)
			scheduler.Start()
		}
	}

	healthChecker := health.NewHealthChecker(pool, redisPing)

	router := h.NewRouter(
		handlers.NewLotHandler(lotService),
		handlers.NewDispatchHandler(dispatchService),
		handlers.NewReportHandler(reportService),
		handlers.NewHealthHandler(healthChecker),
		hub.ServeWs,
	)

	// Wrap with panic recovery and CORS
	corsMiddleware := middleware.NewCORS(cfg)
	handler := middleware.PanicRecovery(corsMiddleware(router))

	// Pre-warm cache in background (non-blocking)
	go cache.PreWarmCache(reportService.CacheTTL)
	log.Println("[Redis] Pre-warming report cache in background...")

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("Server running on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Println("Shutting down...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Graceful shutdown failed: %v", err)
	}
	if scheduler != nil {
		scheduler.Stop()
	}
	hub.Stop()
}
