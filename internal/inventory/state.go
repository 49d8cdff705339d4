package inventory

import (
	"sync"

	"guardian-inventory/internal/model"
)

// View is one published state of the account: the snapshot, the annotation
// record and the items hydrated from them. Views are never modified after
// publication.
type View struct {
	Generation  uint64                 `json:"generation"`
	Snapshot    *model.Snapshot        `json:"-"`
	Annotations model.AnnotationRecord `json:"-"`
	Items       []model.InventoryItem  `json:"items"`
}

// Loaded reports whether an account snapshot has been published.
func (v View) Loaded() bool {
	return v.Snapshot != nil
}

// State is the single owner of the current committed-plus-optimistic
// account snapshot and annotation record. Every write goes through Update
// or Replace, which publish a new View to subscribers.
type State struct {
	defs DefinitionSource

	mu      sync.RWMutex
	view    View
	subs    map[int]chan View
	nextSub int
}

// NewState creates an empty state. defs may be nil.
func NewState(defs DefinitionSource) *State {
	return &State{
		defs: defs,
		view: View{Annotations: model.NewAnnotationRecord(), Items: []model.InventoryItem{}},
		subs: make(map[int]chan View),
	}
}

// View returns the current view.
func (s *State) View() View {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.view
}

// Snapshot returns the current snapshot, or nil before the first refresh.
func (s *State) Snapshot() *model.Snapshot {
	return s.View().Snapshot
}

// Annotations returns the current annotation record.
func (s *State) Annotations() model.AnnotationRecord {
	return s.View().Annotations
}

// Items returns the current hydrated items.
func (s *State) Items() []model.InventoryItem {
	return s.View().Items
}

// Generation returns the number of views published so far.
func (s *State) Generation() uint64 {
	return s.View().Generation
}

// Replace publishes an authoritative snapshot and annotation record.
func (s *State) Replace(snap *model.Snapshot, ann model.AnnotationRecord) View {
	v, _ := s.Update(func(View) (*model.Snapshot, model.AnnotationRecord, bool) {
		return snap, ann, true
	})
	return v
}

// Rehydrate republishes the current snapshot, picking up catalog data that
// was not resident when it was first hydrated.
func (s *State) Rehydrate() View {
	v, _ := s.Update(func(cur View) (*model.Snapshot, model.AnnotationRecord, bool) {
		return cur.Snapshot, cur.Annotations, true
	})
	return v
}

// Update atomically derives a new snapshot and annotation record from the
// current view. When fn reports no change nothing is published and the
// current view is returned with false.
func (s *State) Update(fn func(cur View) (*model.Snapshot, model.AnnotationRecord, bool)) (View, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, ann, changed := fn(s.view)
	if !changed {
		return s.view, false
	}
	if ann.Tags == nil {
		ann.Tags = map[string]string{}
	}
	if ann.Notes == nil {
		ann.Notes = map[string]string{}
	}
	s.view = View{
		Generation:  s.view.Generation + 1,
		Snapshot:    snap,
		Annotations: ann,
		Items:       Hydrate(snap, ann, s.defs),
	}
	for _, ch := range s.subs {
		offer(ch, s.view)
	}
	return s.view, true
}

// Subscribe returns a channel receiving every published view. Delivery is
// latest-wins: a slow reader only ever sees the most recent view. The
// returned function stops delivery and closes the channel.
func (s *State) Subscribe() (<-chan View, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSub
	s.nextSub++
	ch := make(chan View, 1)
	s.subs[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			delete(s.subs, id)
			close(ch)
		})
	}
	return ch, cancel
}

// offer replaces any undelivered view in ch with v. Only the publisher
// sends, under s.mu, so the second send cannot block.
func offer(ch chan View, v View) {
	select {
	case ch <- v:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- v:
	default:
	}
}
