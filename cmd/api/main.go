package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"guardian-inventory/internal/app"
	"guardian-inventory/internal/config"
	"guardian-inventory/internal/handler"
	"guardian-inventory/internal/middleware"
	"guardian-inventory/internal/router"
	"guardian-inventory/internal/service"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("Starting Guardian Inventory engine...")

	// Load configuration
	cfg := config.MustLoad()
	log.Printf("Environment: %s", cfg.App.Environment)

	engine, err := app.New(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize engine: %v", err)
	}
	defer engine.Close()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Remote.Timeout)
	engine.Start(ctx, cfg.Catalog.PreloadTables())
	cancel()

	// Periodic account refresh
	var scheduler *service.RefreshScheduler
	if cfg.Engine.RefreshInterval > 0 {
		scheduler = service.NewRefreshScheduler(engine.Syncer, service.RefreshConfig{
			Interval: cfg.Engine.RefreshInterval,
			Timeout:  cfg.Remote.Timeout,
		})
		scheduler.Start()
	} else {
		log.Println("Periodic refresh disabled")
	}

	// Initialize handlers
	svc := engine.Service
	origins := cfg.App.AllowedOrigins()
	r := router.New(router.Config{
		Handler:            handler.New(cfg.App.Name, cfg.App.Version, svc),
		InventoryHandler:   handler.NewInventoryHandler(svc),
		StreamHandler:      handler.NewStreamHandler(svc, originAllowed(origins)),
		TransferLogHandler: handler.NewTransferLogHandler(svc),
		AdminHandler:       handler.NewAdminHandler(svc, engine.StatsReporter(), engine.StoreType),
		AuthMiddleware: middleware.NewAuthMiddleware(middleware.AuthConfig{
			APIKeys:     middleware.ParseAPIKeys(cfg.App.APIKey),
			PublicPaths: []string{"/api/v1/health", "/api/v1/ready"},
		}),
		AllowedOrigins: origins,
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Printf("Server listening on %s", cfg.Server.Address())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	if scheduler != nil {
		scheduler.Stop()
	}

	ctx, cancel = context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	log.Println("Server stopped")
	fmt.Println("Goodbye!")
}

// originAllowed returns nil (same-host only) unless origins are configured.
func originAllowed(origins []string) func(string) bool {
	if len(origins) == 0 {
		return nil
	}
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		if o == "*" {
			return func(string) bool { return true }
		}
		allowed[o] = true
	}
	return func(origin string) bool { return allowed[origin] }
}
