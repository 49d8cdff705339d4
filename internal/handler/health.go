package handler

import (
	"math"
	"net/http"
	"runtime"
	"time"

	"guardian-inventory/internal/service"
	"guardian-inventory/pkg/response"
)

// StartTime tracks when the server started for uptime calculation
var StartTime = time.Now()

// Handler contains shared HTTP handlers and their dependencies.
type Handler struct {
	name             string
	version          string
	inventoryService *service.InventoryService
}

// New creates a new handler.
func New(name, version string, inventoryService *service.InventoryService) *Handler {
	return &Handler{name: name, version: version, inventoryService: inventoryService}
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version"`
}

// Health handles GET /api/v1/health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
		Version:   h.version,
	}
	response.OK(w, resp)
}

// ReadyResponse represents the readiness check response.
type ReadyResponse struct {
	Ready     bool      `json:"ready"`
	Timestamp time.Time `json:"timestamp"`
	Checks    []Check   `json:"checks"`
}

// Check represents an individual readiness check.
type Check struct {
	Name   string `json:"name"`
	Status string `json:"status"`
}

// Ready handles GET /api/v1/ready. The engine is ready once the account has
// been loaded and the catalog version is known.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	checks := []Check{
		{Name: "api", Status: "ok"},
	}
	if h.inventoryService != nil {
		stats := h.inventoryService.Stats()
		checks = append(checks, Check{Name: "account", Status: okIf(stats.Loaded, "not_loaded")})
		checks = append(checks, Check{Name: "catalog", Status: okIf(stats.Catalog.Version != "", "unknown_version")})
	}

	allReady := true
	for _, check := range checks {
		if check.Status != "ok" {
			allReady = false
			break
		}
	}

	resp := ReadyResponse{
		Ready:     allReady,
		Timestamp: time.Now().UTC(),
		Checks:    checks,
	}

	if !allReady {
		response.JSON(w, http.StatusServiceUnavailable, resp)
		return
	}
	response.OK(w, resp)
}

func okIf(ok bool, failure string) string {
	if ok {
		return "ok"
	}
	return failure
}

// StatusChecks is the engine section of the status response.
type StatusChecks struct {
	Account        string     `json:"account"`
	Generation     uint64     `json:"generation"`
	InFlight       int        `json:"in_flight"`
	CatalogVersion string     `json:"catalog_version,omitempty"`
	LastRefresh    *time.Time `json:"last_refresh,omitempty"`
	RefreshError   string     `json:"refresh_error,omitempty"`
	MemoryMB       float64    `json:"memory_mb"`
}

// StatusResponse is the monitoring view of the engine. Status is "degraded"
// while the latest account refresh failed.
type StatusResponse struct {
	Service       string       `json:"service"`
	Version       string       `json:"version"`
	Status        string       `json:"status"`
	Timestamp     string       `json:"timestamp"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	Checks        StatusChecks `json:"checks"`
}

// Status handles GET /api/status
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	resp := StatusResponse{
		Service:       h.name,
		Version:       h.version,
		Status:        "ok",
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		UptimeSeconds: int64(time.Since(StartTime).Seconds()),
		Checks: StatusChecks{
			Account:  "not_loaded",
			MemoryMB: math.Round(float64(memStats.Alloc)/1024/1024*100) / 100,
		},
	}
	if h.inventoryService != nil {
		stats := h.inventoryService.Stats()
		resp.Checks.Generation = stats.Generation
		resp.Checks.InFlight = len(stats.InFlight)
		resp.Checks.CatalogVersion = stats.Catalog.Version
		resp.Checks.LastRefresh = stats.LastRefresh
		resp.Checks.RefreshError = stats.LastError
		if stats.Loaded {
			resp.Checks.Account = "ok"
		}
		if stats.LastError != "" {
			resp.Status = "degraded"
		}
	}

	w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate")
	response.OK(w, resp)
}
