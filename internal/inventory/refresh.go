package inventory

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"guardian-inventory/internal/model"
)

// ProfileSource fetches the authoritative account snapshot.
type ProfileSource interface {
	Profile(ctx context.Context) (*model.Snapshot, error)
}

// Syncer replaces the state with a freshly fetched profile and annotation
// record.
type Syncer struct {
	state       *State
	profiles    ProfileSource
	annotations AnnotationSource

	mu         sync.Mutex
	refreshing atomic.Bool

	statusMu    sync.Mutex
	lastRefresh time.Time
	lastErr     error
}

// NewSyncer creates a syncer. annotations may be nil, in which case the
// current annotation record is kept.
func NewSyncer(state *State, profiles ProfileSource, annotations AnnotationSource) *Syncer {
	return &Syncer{state: state, profiles: profiles, annotations: annotations}
}

// Refresh fetches the profile and the annotation record in parallel and
// publishes them. A failed annotation fetch keeps the previous record; a
// failed profile fetch leaves the state untouched.
func (s *Syncer) Refresh(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshing.Store(true)
	defer s.refreshing.Store(false)

	var (
		snap    *model.Snapshot
		ann     model.AnnotationRecord
		haveAnn bool
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		p, err := s.profiles.Profile(gctx)
		if err != nil {
			return fmt.Errorf("failed to fetch profile: %w", err)
		}
		snap = p
		return nil
	})
	if s.annotations != nil {
		g.Go(func() error {
			rec, err := s.annotations.FetchAnnotations(gctx)
			if err != nil {
				log.Printf("[Syncer] Keeping previous annotations: %v", err)
				return nil
			}
			ann, haveAnn = rec, true
			return nil
		})
	}

	err := g.Wait()
	s.statusMu.Lock()
	s.lastRefresh = time.Now()
	s.lastErr = err
	s.statusMu.Unlock()
	if err != nil {
		return err
	}

	view, _ := s.state.Update(func(cur View) (*model.Snapshot, model.AnnotationRecord, bool) {
		if !haveAnn {
			ann = cur.Annotations
		}
		return snap, ann, true
	})
	log.Printf("[Syncer] Refreshed account: %d items, generation %d", len(view.Items), view.Generation)
	return nil
}

// Refreshing reports whether a refresh is running.
func (s *Syncer) Refreshing() bool {
	return s.refreshing.Load()
}

// LastRefresh returns the time and outcome of the last completed refresh.
func (s *Syncer) LastRefresh() (time.Time, error) {
	s.statusMu.Lock()
	defer s.statusMu.Unlock()
	return s.lastRefresh, s.lastErr
}
