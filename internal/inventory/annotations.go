package inventory

import (
	"context"
	"fmt"
	"log"
	"sync"

	"guardian-inventory/internal/model"
)

// AnnotationSource reads and writes the account's annotation record as a
// whole.
type AnnotationSource interface {
	FetchAnnotations(ctx context.Context) (model.AnnotationRecord, error)
	StoreAnnotations(ctx context.Context, record model.AnnotationRecord) error
}

// AnnotationSyncError reports that a remote annotation write failed after
// the local record was already updated.
type AnnotationSyncError struct {
	InstanceID string
	Kind       model.AnnotationKind
	Err        error
}

func (e *AnnotationSyncError) Error() string {
	return fmt.Sprintf("failed to sync %s for %s: %v", e.Kind, e.InstanceID, e.Err)
}

func (e *AnnotationSyncError) Unwrap() error {
	return e.Err
}

// AnnotationSync applies tag and note changes locally first and then
// merges them into the remote record.
type AnnotationSync struct {
	state     *State
	source    AnnotationSource
	refresher Refresher

	// mu serializes remote read-modify-write cycles.
	mu sync.Mutex
}

// NewAnnotationSync creates an annotation writer. refresher may be nil.
func NewAnnotationSync(state *State, source AnnotationSource, refresher Refresher) *AnnotationSync {
	return &AnnotationSync{state: state, source: source, refresher: refresher}
}

// SetAnnotation sets or, when value is nil or empty, clears one annotation.
// On a remote failure the whole account is re-fetched and an
// *AnnotationSyncError is returned.
func (a *AnnotationSync) SetAnnotation(ctx context.Context, instanceID string, kind model.AnnotationKind, value *string) error {
	if instanceID == "" {
		return fmt.Errorf("instance id must not be empty")
	}

	a.state.Update(func(cur View) (*model.Snapshot, model.AnnotationRecord, bool) {
		return cur.Snapshot, cur.Annotations.With(instanceID, kind, value), true
	})

	remote := context.WithoutCancel(ctx)
	if err := a.merge(remote, instanceID, kind, value); err != nil {
		syncErr := &AnnotationSyncError{InstanceID: instanceID, Kind: kind, Err: err}
		log.Printf("[AnnotationSync] %v", syncErr)
		if a.refresher != nil {
			if rerr := a.refresher.Refresh(remote); rerr != nil {
				log.Printf("[AnnotationSync] Resync after failed write also failed: %v", rerr)
			}
		}
		return syncErr
	}
	return nil
}

func (a *AnnotationSync) merge(ctx context.Context, instanceID string, kind model.AnnotationKind, value *string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	current, err := a.source.FetchAnnotations(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch annotations: %w", err)
	}
	if err := a.source.StoreAnnotations(ctx, current.With(instanceID, kind, value)); err != nil {
		return fmt.Errorf("failed to store annotations: %w", err)
	}
	return nil
}
