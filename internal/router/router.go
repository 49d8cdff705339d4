package router

import (
	"net/http"

	"guardian-inventory/internal/handler"
	"guardian-inventory/internal/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
)

// Config holds the configuration for creating a router.
type Config struct {
	Handler            *handler.Handler
	InventoryHandler   *handler.InventoryHandler
	StreamHandler      *handler.StreamHandler
	TransferLogHandler *handler.TransferLogHandler
	AdminHandler       *handler.AdminHandler
	AuthMiddleware     func(http.Handler) http.Handler
	AllowedOrigins     []string
}

// New creates and configures the HTTP router.
func New(cfg Config) *chi.Mux {
	r := chi.NewRouter()

	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	// Global middleware stack (applies to ALL routes)
	r.Use(middleware.Recovery)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logging)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID", "X-API-Key"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// PUBLIC routes (no auth required)
	if cfg.Handler != nil {
		r.Get("/api/status", cfg.Handler.Status)
	}

	// AUTHENTICATED routes (use Group to apply auth middleware only to these)
	r.Group(func(r chi.Router) {
		if cfg.AuthMiddleware != nil {
			r.Use(cfg.AuthMiddleware)
		}

		r.Route("/api/v1", func(r chi.Router) {
			// Health check endpoints
			if cfg.Handler != nil {
				r.Get("/health", cfg.Handler.Health)
				r.Get("/ready", cfg.Handler.Ready)
			}

			// Inventory endpoints
			if cfg.InventoryHandler != nil {
				r.Route("/inventory", func(r chi.Router) {
					r.Get("/", cfg.InventoryHandler.GetInventory)
					r.Post("/refresh", cfg.InventoryHandler.Refresh)
					if cfg.StreamHandler != nil {
						r.Get("/stream", cfg.StreamHandler.Stream)
					}
					r.Route("/{instance_id}", func(r chi.Router) {
						r.Post("/move", cfg.InventoryHandler.Move)
						r.Put("/annotations", cfg.InventoryHandler.SetAnnotation)
					})
				})
				r.Get("/power/{class}", cfg.InventoryHandler.GetPower)
				r.Get("/catalog/{table}", cfg.InventoryHandler.GetDefinitions)
			}

			// Transfer journal
			if cfg.TransferLogHandler != nil {
				r.Get("/transfers", cfg.TransferLogHandler.GetTransferLogs)
			}

			// Admin endpoints
			if cfg.AdminHandler != nil {
				r.Route("/admin", func(r chi.Router) {
					r.Get("/stats", cfg.AdminHandler.GetStats)
					r.Post("/catalog/purge", cfg.AdminHandler.PurgeCatalog)
				})
			}
		})
	})

	return r
}
