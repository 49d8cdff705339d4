package inventory

import (
	"context"
	"errors"
	"sync"

	"guardian-inventory/internal/model"
)

const (
	titanID  = "2305843009301000001"
	hunterID = "2305843009301000002"
)

func testSnapshot() *model.Snapshot {
	return &model.Snapshot{
		MembershipType: 3,
		MembershipID:   "4611686018400000000",
		Characters: []model.Character{
			{CharacterID: titanID, ClassType: model.ClassTitan, Light: 1810},
			{CharacterID: hunterID, ClassType: model.ClassHunter, Light: 1805},
		},
		Vault: []model.RawItem{
			{ItemHash: 100, ItemInstanceID: "i-vault", Quantity: 1, BucketHash: model.BucketKinetic},
			{ItemHash: 500, Quantity: 20, BucketHash: 138197802},
		},
		Inventories: map[string][]model.RawItem{
			titanID:  {{ItemHash: 200, ItemInstanceID: "i-titan", Quantity: 1, BucketHash: model.BucketEnergy}},
			hunterID: {{ItemHash: 300, ItemInstanceID: "i-hunter", Quantity: 1, BucketHash: model.BucketPower}},
		},
		Equipment: map[string][]model.RawItem{
			titanID: {{ItemHash: 400, ItemInstanceID: "i-equipped", Quantity: 1, BucketHash: model.BucketHelmet}},
		},
		Instances: map[string]model.InstanceComponent{
			"i-vault":    {Power: 1800, DamageType: 1, CanEquip: true},
			"i-titan":    {Power: 1790, DamageType: 2, CanEquip: true, Locked: true},
			"i-equipped": {Power: 1805, CanEquip: true},
		},
		Stats: map[string]map[uint32]int{
			"i-titan": {4284893193: 540},
		},
		Sockets: map[string][]model.SocketState{
			"i-titan": {{PlugHash: 77, IsEnabled: true, IsVisible: true}},
		},
	}
}

type fakeDefs map[uint32]model.ItemDefinition

func (f fakeDefs) ItemDefinition(hash uint32) (model.ItemDefinition, bool) {
	d, ok := f[hash]
	return d, ok
}

type fakeMover struct {
	mu      sync.Mutex
	calls   []model.MoveCall
	failAt  map[int]error
	onCall  func(call model.MoveCall)
	entered chan struct{}
	gate    chan struct{}
}

func (m *fakeMover) TransferItem(ctx context.Context, call model.MoveCall) error {
	m.mu.Lock()
	hop := len(m.calls)
	m.calls = append(m.calls, call)
	err := m.failAt[hop]
	onCall, entered, gate := m.onCall, m.entered, m.gate
	m.mu.Unlock()

	if onCall != nil {
		onCall(call)
	}
	if entered != nil {
		entered <- struct{}{}
	}
	if gate != nil {
		<-gate
	}
	return err
}

func (m *fakeMover) recorded() []model.MoveCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.MoveCall(nil), m.calls...)
}

type fakeRefresher struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (r *fakeRefresher) Refresh(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	return r.err
}

func (r *fakeRefresher) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

type fakeAnnotations struct {
	mu       sync.Mutex
	record   model.AnnotationRecord
	fetchErr error
	storeErr error
	stores   int
}

func (f *fakeAnnotations) FetchAnnotations(ctx context.Context) (model.AnnotationRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fetchErr != nil {
		return model.AnnotationRecord{}, f.fetchErr
	}
	return f.record, nil
}

func (f *fakeAnnotations) StoreAnnotations(ctx context.Context, record model.AnnotationRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stores++
	if f.storeErr != nil {
		return f.storeErr
	}
	f.record = record
	return nil
}

type fakeProfiles struct {
	snap *model.Snapshot
	err  error
}

func (f *fakeProfiles) Profile(ctx context.Context) (*model.Snapshot, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.snap, nil
}

var errRemote = errors.New("remote rejected the request")

func strPtr(s string) *string {
	return &s
}

func loadedState(snap *model.Snapshot) *State {
	st := NewState(nil)
	st.Replace(snap, model.NewAnnotationRecord())
	return st
}
