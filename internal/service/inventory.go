package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"guardian-inventory/internal/catalog"
	"guardian-inventory/internal/inventory"
	"guardian-inventory/internal/middleware"
	"guardian-inventory/internal/model"
	"guardian-inventory/internal/power"
	"guardian-inventory/internal/repository"
	"guardian-inventory/pkg/uid"
)

// journalTimeout bounds a journal write after the transfer has finished.
const journalTimeout = 5 * time.Second

// InventoryService handles inventory business logic on top of the engine.
type InventoryService struct {
	state       *inventory.State
	syncer      *inventory.Syncer
	transferer  *inventory.Transferer
	annotations *inventory.AnnotationSync
	catalog     *catalog.Store
	journal     repository.TransferLogRepository
}

// InventoryServiceDeps groups the engine components the service composes.
// Journal is optional.
type InventoryServiceDeps struct {
	State       *inventory.State
	Syncer      *inventory.Syncer
	Transferer  *inventory.Transferer
	Annotations *inventory.AnnotationSync
	Catalog     *catalog.Store
	Journal     repository.TransferLogRepository
}

// InventoryView is the hydrated inventory at one generation.
type InventoryView struct {
	Generation uint64                `json:"generation"`
	Loaded     bool                  `json:"loaded"`
	Items      []model.InventoryItem `json:"items"`
	Duplicates []string              `json:"duplicates,omitempty"`
}

// EngineStats summarizes the engine for status endpoints.
type EngineStats struct {
	Generation  uint64                  `json:"generation"`
	Loaded      bool                    `json:"loaded"`
	Items       int                     `json:"items"`
	Characters  int                     `json:"characters"`
	InFlight    []model.TransferRequest `json:"in_flight"`
	Refreshing  bool                    `json:"refreshing"`
	LastRefresh *time.Time              `json:"last_refresh,omitempty"`
	LastError   string                  `json:"last_error,omitempty"`
	Catalog     catalog.Stats           `json:"catalog"`
}

// NewInventoryService creates a new inventory service.
// Returns nil if a required engine component is missing.
func NewInventoryService(deps InventoryServiceDeps) *InventoryService {
	if deps.State == nil || deps.Syncer == nil || deps.Transferer == nil || deps.Annotations == nil || deps.Catalog == nil {
		return nil
	}
	return &InventoryService{
		state:       deps.State,
		syncer:      deps.Syncer,
		transferer:  deps.Transferer,
		annotations: deps.Annotations,
		catalog:     deps.Catalog,
		journal:     deps.Journal,
	}
}

// Inventory returns the current hydrated items. withDupes adds the instance
// ids whose item kind appears more than once.
func (s *InventoryService) Inventory(withDupes bool) InventoryView {
	view := s.state.View()
	out := InventoryView{
		Generation: view.Generation,
		Loaded:     view.Loaded(),
		Items:      view.Items,
	}
	if out.Items == nil {
		out.Items = []model.InventoryItem{}
	}
	if withDupes {
		dupes := inventory.Duplicates(view.Items)
		for _, item := range view.Items {
			if id := item.InstanceID(); id != "" && dupes[id] {
				out.Duplicates = append(out.Duplicates, id)
			}
		}
	}
	return out
}

// Subscribe streams every published view until cancel is called.
func (s *InventoryService) Subscribe() (<-chan inventory.View, func()) {
	return s.state.Subscribe()
}

// Refresh re-fetches the account state and returns the new view.
func (s *InventoryService) Refresh(ctx context.Context) (InventoryView, error) {
	if err := s.syncer.Refresh(ctx); err != nil {
		return InventoryView{}, err
	}
	return s.Inventory(false), nil
}

// Move transfers an item to target and records the outcome in the journal.
func (s *InventoryService) Move(ctx context.Context, instanceID string, itemHash uint32, target model.Location) error {
	req, err := s.transferer.Resolve(instanceID, itemHash, target)
	if err != nil {
		return err
	}

	start := time.Now()
	err = s.transferer.Transfer(ctx, req)
	if req.Source != req.Target && !errors.Is(err, inventory.ErrTransferInProgress) {
		s.record(ctx, req, start, err)
	}
	return err
}

// SetAnnotation sets or clears (value nil) a tag or note.
func (s *InventoryService) SetAnnotation(ctx context.Context, instanceID string, kind model.AnnotationKind, value *string) error {
	if s.state.Snapshot() == nil {
		return inventory.ErrNoSnapshot
	}
	return s.annotations.SetAnnotation(ctx, instanceID, kind, value)
}

// MaxPower computes the best loadout power for class over every item on the
// account, plus the seasonal artifact bonus.
func (s *InventoryService) MaxPower(ctx context.Context, class model.ClassType) (power.Result, error) {
	view := s.state.View()
	if view.Snapshot == nil {
		return power.Result{}, inventory.ErrNoSnapshot
	}
	if _, err := s.catalog.EnsureTable(ctx, model.TableInventoryItem); err != nil {
		return power.Result{}, err
	}
	return power.Report(view.Items, s.catalog, class, view.Snapshot.ArtifactPower)
}

// Definitions returns the named table's records for hashes. Unknown hashes
// are omitted.
func (s *InventoryService) Definitions(ctx context.Context, table string, hashes []uint32) (map[uint32]model.Definition, error) {
	return s.catalog.Lookup(ctx, table, hashes)
}

// PurgeCatalog drops every cached catalog table.
func (s *InventoryService) PurgeCatalog(ctx context.Context) (int, error) {
	return s.catalog.Purge(ctx)
}

// TransferLogs returns one page of the transfer journal.
func (s *InventoryService) TransferLogs(ctx context.Context, page, limit int) ([]model.TransferLog, int64, error) {
	if s.journal == nil {
		return []model.TransferLog{}, 0, nil
	}
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	logs, total, err := s.journal.GetTransferLogs(ctx, limit, (page-1)*limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read transfer journal: %w", err)
	}
	return logs, total, nil
}

// Stats returns engine and catalog statistics.
func (s *InventoryService) Stats() EngineStats {
	view := s.state.View()
	stats := EngineStats{
		Generation: view.Generation,
		Loaded:     view.Loaded(),
		Items:      len(view.Items),
		InFlight:   s.transferer.InFlight(),
		Refreshing: s.syncer.Refreshing(),
		Catalog:    s.catalog.Stats(),
	}
	if view.Snapshot != nil {
		stats.Characters = len(view.Snapshot.Characters)
	}
	if at, err := s.syncer.LastRefresh(); !at.IsZero() {
		stats.LastRefresh = &at
		if err != nil {
			stats.LastError = err.Error()
		}
	}
	return stats
}

func (s *InventoryService) record(ctx context.Context, req model.TransferRequest, start time.Time, err error) {
	if s.journal == nil {
		return
	}

	requestID := middleware.GetRequestID(ctx)
	if requestID == "" {
		requestID = uid.New()
	}
	entry := &model.TransferLog{
		RequestID:       requestID,
		InstanceID:      req.InstanceID,
		ItemHash:        req.ItemHash,
		Source:          req.Source.String(),
		Target:          req.Target.String(),
		Status:          model.TransferCommitted,
		ExecutionTimeMs: time.Since(start).Milliseconds(),
	}
	if err != nil {
		entry.Status = model.TransferRolledBack
		entry.ErrorMessage = err.Error()
	}

	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), journalTimeout)
	defer cancel()
	if err := s.journal.InsertTransferLog(writeCtx, entry); err != nil {
		log.Printf("[InventoryService] Failed to journal transfer of %s: %v", req.InstanceID, err)
	}
}
