package handler

import (
	"net/http"
	"runtime"
	"time"

	"guardian-inventory/internal/cache"
	"guardian-inventory/internal/service"
	"guardian-inventory/pkg/response"
)

// AdminHandler handles admin-related HTTP requests.
type AdminHandler struct {
	inventoryService *service.InventoryService
	catalogStore     cache.StatsReporter // durable catalog tier, nil if it cannot report
	storeType        string              // sqlite, redis, or memory
	startTime        time.Time
}

// NewAdminHandler creates a new admin handler.
func NewAdminHandler(
	inventoryService *service.InventoryService,
	catalogStore cache.StatsReporter,
	storeType string,
) *AdminHandler {
	return &AdminHandler{
		inventoryService: inventoryService,
		catalogStore:     catalogStore,
		storeType:        storeType,
		startTime:        time.Now(),
	}
}

// GetStats handles GET /api/v1/admin/stats
func (h *AdminHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	stats := make(map[string]interface{})

	// System info
	stats["uptime_seconds"] = int64(time.Since(h.startTime).Seconds())
	stats["uptime_human"] = time.Since(h.startTime).Round(time.Second).String()
	stats["server_time"] = time.Now().Format(time.RFC3339)
	stats["catalog_store"] = h.storeType

	// Memory stats
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)
	stats["memory"] = map[string]interface{}{
		"alloc_mb":       float64(memStats.Alloc) / 1024 / 1024,
		"total_alloc_mb": float64(memStats.TotalAlloc) / 1024 / 1024,
		"sys_mb":         float64(memStats.Sys) / 1024 / 1024,
		"heap_alloc_mb":  float64(memStats.HeapAlloc) / 1024 / 1024,
		"heap_inuse_mb":  float64(memStats.HeapInuse) / 1024 / 1024,
		"num_gc":         memStats.NumGC,
		"goroutines":     runtime.NumGoroutine(),
	}

	stats["engine"] = h.inventoryService.Stats()

	// Durable catalog tier
	if h.catalogStore != nil {
		storeStats, err := h.catalogStore.GetStats(ctx)
		if err == nil {
			storeStats["status"] = "connected"
			stats["catalog_durable"] = storeStats
		} else {
			stats["catalog_durable"] = map[string]interface{}{
				"status": "error",
				"error":  err.Error(),
			}
		}
	} else {
		stats["catalog_durable"] = map[string]interface{}{
			"status": "not_configured",
		}
	}

	// Runtime info
	stats["runtime"] = map[string]interface{}{
		"go_version": runtime.Version(),
		"os":         runtime.GOOS,
		"arch":       runtime.GOARCH,
		"cpus":       runtime.NumCPU(),
	}

	response.OK(w, stats)
}

// PurgeCatalog handles POST /api/v1/admin/catalog/purge
func (h *AdminHandler) PurgeCatalog(w http.ResponseWriter, r *http.Request) {
	purged, err := h.inventoryService.PurgeCatalog(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	response.OK(w, map[string]interface{}{
		"purged_tables": purged,
	})
}
