package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"guardian-inventory/internal/model"
	"guardian-inventory/internal/service"
	"guardian-inventory/pkg/apierror"
	"guardian-inventory/pkg/response"

	"github.com/go-chi/chi/v5"
)

// maxBodyBytes bounds request bodies of the write endpoints.
const maxBodyBytes = 64 << 10

// InventoryHandler handles inventory-related HTTP requests.
type InventoryHandler struct {
	inventoryService *service.InventoryService
}

// NewInventoryHandler creates a new inventory handler.
func NewInventoryHandler(inventoryService *service.InventoryService) *InventoryHandler {
	return &InventoryHandler{
		inventoryService: inventoryService,
	}
}

// GetInventory handles GET /api/v1/inventory
func (h *InventoryHandler) GetInventory(w http.ResponseWriter, r *http.Request) {
	dupes, _ := strconv.ParseBool(r.URL.Query().Get("dupes"))
	response.OK(w, h.inventoryService.Inventory(dupes))
}

// Refresh handles POST /api/v1/inventory/refresh
func (h *InventoryHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	view, err := h.inventoryService.Refresh(r.Context())
	if err != nil {
		writeUpstreamError(w, err)
		return
	}
	response.OK(w, view)
}

// MoveRequest is the body of a move request.
type MoveRequest struct {
	ItemHash uint32          `json:"itemHash"`
	Target   *model.Location `json:"target"`
}

// Move handles POST /api/v1/inventory/{instance_id}/move
func (h *InventoryHandler) Move(w http.ResponseWriter, r *http.Request) {
	instanceID := chi.URLParam(r, "instance_id")
	if instanceID == "" {
		response.Error(w, apierror.BadRequest("instance_id is required"))
		return
	}

	var req MoveRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		response.Error(w, apierror.BadRequest("invalid JSON"))
		return
	}
	if req.Target == nil {
		response.Error(w, apierror.ValidationError("invalid move request",
			apierror.FieldError{Field: "target", Message: "target is required"}))
		return
	}

	if err := h.inventoryService.Move(r.Context(), instanceID, req.ItemHash, *req.Target); err != nil {
		writeError(w, err)
		return
	}

	response.OK(w, map[string]interface{}{
		"status":         model.TransferCommitted,
		"itemInstanceId": instanceID,
		"target":         req.Target,
	})
}

// AnnotationRequest is the body of an annotation update. A null or missing
// value clears the annotation.
type AnnotationRequest struct {
	Kind  string  `json:"kind"`
	Value *string `json:"value"`
}

// SetAnnotation handles PUT /api/v1/inventory/{instance_id}/annotations
func (h *InventoryHandler) SetAnnotation(w http.ResponseWriter, r *http.Request) {
	instanceID := chi.URLParam(r, "instance_id")
	if instanceID == "" {
		response.Error(w, apierror.BadRequest("instance_id is required"))
		return
	}

	var req AnnotationRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		response.Error(w, apierror.BadRequest("invalid JSON"))
		return
	}
	kind, err := model.ParseAnnotationKind(req.Kind)
	if err != nil {
		response.Error(w, apierror.ValidationError("invalid annotation",
			apierror.FieldError{Field: "kind", Message: err.Error()}))
		return
	}

	if err := h.inventoryService.SetAnnotation(r.Context(), instanceID, kind, req.Value); err != nil {
		writeError(w, err)
		return
	}

	response.OK(w, map[string]interface{}{
		"itemInstanceId": instanceID,
		"kind":           req.Kind,
		"value":          req.Value,
	})
}

// GetPower handles GET /api/v1/power/{class}
func (h *InventoryHandler) GetPower(w http.ResponseWriter, r *http.Request) {
	class, err := model.ParseClass(chi.URLParam(r, "class"))
	if err != nil {
		response.Error(w, apierror.BadRequest(err.Error()))
		return
	}

	result, err := h.inventoryService.MaxPower(r.Context(), class)
	if err != nil {
		writeError(w, err)
		return
	}
	response.OK(w, result)
}

// GetDefinitions handles GET /api/v1/catalog/{table}?hash=1&hash=2
func (h *InventoryHandler) GetDefinitions(w http.ResponseWriter, r *http.Request) {
	table := chi.URLParam(r, "table")
	raw := r.URL.Query()["hash"]
	if len(raw) == 0 {
		response.Error(w, apierror.BadRequest("at least one hash is required"))
		return
	}

	hashes := make([]uint32, 0, len(raw))
	for _, s := range raw {
		hash, err := model.ParseHash(s)
		if err != nil {
			response.Error(w, apierror.ValidationError("invalid hash",
				apierror.FieldError{Field: "hash", Message: err.Error()}))
			return
		}
		hashes = append(hashes, hash)
	}

	defs, err := h.inventoryService.Definitions(r.Context(), table, hashes)
	if err != nil {
		writeError(w, err)
		return
	}

	out := make(map[string]model.Definition, len(defs))
	for hash, def := range defs {
		out[strconv.FormatUint(uint64(hash), 10)] = def
	}
	response.OK(w, map[string]interface{}{
		"table":       table,
		"definitions": out,
	})
}
