package handler

import (
	"net/http"
	"strconv"

	"guardian-inventory/internal/service"
	"guardian-inventory/pkg/response"
)

// TransferLogHandler serves the transfer journal.
type TransferLogHandler struct {
	inventoryService *service.InventoryService
}

func NewTransferLogHandler(inventoryService *service.InventoryService) *TransferLogHandler {
	return &TransferLogHandler{inventoryService: inventoryService}
}

// GetTransferLogs returns paginated transfer journal entries
func (h *TransferLogHandler) GetTransferLogs(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit < 1 || limit > 100 {
		limit = 20
	}

	logs, total, err := h.inventoryService.TransferLogs(r.Context(), page, limit)
	if err != nil {
		writeError(w, err)
		return
	}

	response.JSONWithMeta(w, http.StatusOK, logs, page, limit, total)
}
