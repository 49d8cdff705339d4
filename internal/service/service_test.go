package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"guardian-inventory/internal/cache"
	"guardian-inventory/internal/catalog"
	"guardian-inventory/internal/inventory"
	"guardian-inventory/internal/model"
	"guardian-inventory/internal/power"
	"guardian-inventory/internal/repository"
)

const titanID = "2305843009301000001"

type itemKind struct {
	hash   uint32
	bucket uint32
	tier   model.TierType
}

var kinds = []itemKind{
	{1001, model.BucketKinetic, model.TierLegendary},
	{1002, model.BucketEnergy, model.TierLegendary},
	{1003, model.BucketPower, model.TierExotic},
	{1004, model.BucketPower, model.TierLegendary},
	{2001, model.BucketHelmet, model.TierLegendary},
	{2002, model.BucketGauntlets, model.TierLegendary},
	{2003, model.BucketChest, model.TierLegendary},
	{2004, model.BucketLegs, model.TierLegendary},
	{2005, model.BucketClassItem, model.TierLegendary},
}

func itemTable() []byte {
	table := map[string]any{}
	for _, k := range kinds {
		table[fmt.Sprint(k.hash)] = map[string]any{
			"displayProperties": map[string]any{"name": fmt.Sprintf("Item %d", k.hash)},
			"classType":         int(model.ClassAny),
			"equippable":        true,
			"inventory":         map[string]any{"tierType": int(k.tier), "bucketTypeHash": k.bucket},
		}
	}
	data, _ := json.Marshal(table)
	return data
}

func accountSnapshot() *model.Snapshot {
	raw := func(hash uint32, id string, bucket uint32) model.RawItem {
		return model.RawItem{ItemHash: hash, ItemInstanceID: id, Quantity: 1, BucketHash: bucket}
	}
	return &model.Snapshot{
		MembershipType: 3,
		MembershipID:   "4611686018400000000",
		Characters:     []model.Character{{CharacterID: titanID, ClassType: model.ClassTitan, Light: 1800}},
		Vault: []model.RawItem{
			raw(1002, "i-energy", model.BucketEnergy),
			raw(1003, "i-exotic", model.BucketPower),
			raw(1004, "i-heavy", model.BucketPower),
			raw(1004, "i-heavy-2", model.BucketPower),
			raw(2002, "i-arms", model.BucketGauntlets),
			raw(2003, "i-chest", model.BucketChest),
			raw(2004, "i-legs", model.BucketLegs),
			raw(2005, "i-class", model.BucketClassItem),
		},
		Inventories: map[string][]model.RawItem{titanID: {}},
		Equipment: map[string][]model.RawItem{titanID: {
			raw(1001, "i-kinetic", model.BucketKinetic),
			raw(2001, "i-helmet", model.BucketHelmet),
		}},
		Instances: map[string]model.InstanceComponent{
			"i-kinetic": {Power: 1800},
			"i-energy":  {Power: 1790},
			"i-exotic":  {Power: 1810},
			"i-heavy":   {Power: 1795},
			"i-heavy-2": {Power: 1700},
			"i-helmet":  {Power: 1780},
			"i-arms":    {Power: 1781},
			"i-chest":   {Power: 1782},
			"i-legs":    {Power: 1783},
			"i-class":   {Power: 1784},
		},
		ArtifactPower: 12,
	}
}

// fakeRemote serves every remote interface of the engine.
type fakeRemote struct {
	mu          sync.Mutex
	calls       []model.MoveCall
	moveErr     error
	annotations model.AnnotationRecord
}

func (f *fakeRemote) Profile(ctx context.Context) (*model.Snapshot, error) {
	return accountSnapshot(), nil
}

func (f *fakeRemote) CatalogVersion(ctx context.Context) (string, error) {
	return "v1", nil
}

func (f *fakeRemote) CatalogTable(ctx context.Context, table string) ([]byte, error) {
	if table != model.TableInventoryItem {
		return []byte(`{}`), nil
	}
	return itemTable(), nil
}

func (f *fakeRemote) TransferItem(ctx context.Context, call model.MoveCall) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
	return f.moveErr
}

func (f *fakeRemote) FetchAnnotations(ctx context.Context) (model.AnnotationRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.annotations.Tags == nil {
		return model.NewAnnotationRecord(), nil
	}
	return f.annotations, nil
}

func (f *fakeRemote) StoreAnnotations(ctx context.Context, record model.AnnotationRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.annotations = record
	return nil
}

func newTestService(t *testing.T, journal repository.TransferLogRepository) (*InventoryService, *fakeRemote) {
	t.Helper()
	remote := &fakeRemote{}

	store := catalog.NewStore(remote, cache.NewMemoryCache())
	require.NoError(t, store.Initialize(context.Background()))

	state := inventory.NewState(store)
	syncer := inventory.NewSyncer(state, remote, remote)
	svc := NewInventoryService(InventoryServiceDeps{
		State:       state,
		Syncer:      syncer,
		Transferer:  inventory.NewTransferer(state, remote),
		Annotations: inventory.NewAnnotationSync(state, remote, syncer),
		Catalog:     store,
		Journal:     journal,
	})
	require.NotNil(t, svc)
	return svc, remote
}

func newJournal(t *testing.T) *repository.SQLiteTransferLogRepository {
	t.Helper()
	journal, err := repository.NewSQLiteTransferLogRepository(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { journal.Close() })
	return journal
}

func TestNewInventoryServiceRequiresEngine(t *testing.T) {
	assert.Nil(t, NewInventoryService(InventoryServiceDeps{}))
}

func TestInventoryBeforeAndAfterRefresh(t *testing.T) {
	svc, _ := newTestService(t, nil)

	view := svc.Inventory(false)
	assert.False(t, view.Loaded)
	assert.NotNil(t, view.Items)
	assert.Empty(t, view.Items)

	refreshed, err := svc.Refresh(context.Background())
	require.NoError(t, err)
	assert.True(t, refreshed.Loaded)
	assert.Len(t, refreshed.Items, 10)
	assert.Nil(t, refreshed.Duplicates)

	withDupes := svc.Inventory(true)
	assert.ElementsMatch(t, []string{"i-heavy", "i-heavy-2"}, withDupes.Duplicates)
}

func TestMoveRecordsCommittedTransfer(t *testing.T) {
	journal := newJournal(t)
	svc, remote := newTestService(t, journal)
	ctx := context.Background()
	_, err := svc.Refresh(ctx)
	require.NoError(t, err)

	require.NoError(t, svc.Move(ctx, "i-energy", 1002, model.OnCharacter(titanID)))
	require.Len(t, remote.calls, 1)
	assert.False(t, remote.calls[0].ToVault)

	var owner model.Location
	for _, item := range svc.Inventory(false).Items {
		if item.InstanceID() == "i-energy" {
			owner = item.Owner
		}
	}
	assert.Equal(t, model.OnCharacter(titanID), owner)

	logs, total, err := svc.TransferLogs(ctx, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, logs, 1)
	assert.Equal(t, model.TransferCommitted, logs[0].Status)
	assert.Equal(t, "vault", logs[0].Source)
	assert.Equal(t, titanID, logs[0].Target)
	assert.NotEmpty(t, logs[0].RequestID)
}

func TestMoveRecordsRollback(t *testing.T) {
	journal := newJournal(t)
	svc, remote := newTestService(t, journal)
	ctx := context.Background()
	_, err := svc.Refresh(ctx)
	require.NoError(t, err)
	before := svc.Inventory(false).Items

	remote.moveErr = errors.New("remote refused")
	err = svc.Move(ctx, "i-energy", 1002, model.OnCharacter(titanID))
	var transferErr *inventory.TransferError
	require.ErrorAs(t, err, &transferErr)
	assert.Equal(t, before, svc.Inventory(false).Items)

	logs, _, err := svc.TransferLogs(ctx, 1, 10)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, model.TransferRolledBack, logs[0].Status)
	assert.Contains(t, logs[0].ErrorMessage, "remote refused")
}

func TestMoveToCurrentOwnerIsNotJournaled(t *testing.T) {
	journal := newJournal(t)
	svc, remote := newTestService(t, journal)
	ctx := context.Background()
	_, err := svc.Refresh(ctx)
	require.NoError(t, err)

	require.NoError(t, svc.Move(ctx, "i-energy", 1002, model.Vault()))
	assert.Empty(t, remote.calls)

	_, total, err := svc.TransferLogs(ctx, 1, 10)
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestMoveErrors(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()

	assert.ErrorIs(t, svc.Move(ctx, "i-energy", 1002, model.Vault()), inventory.ErrNoSnapshot)

	_, err := svc.Refresh(ctx)
	require.NoError(t, err)
	assert.ErrorIs(t, svc.Move(ctx, "missing", 1, model.Vault()), inventory.ErrItemNotFound)
}

func TestMaxPower(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()

	_, err := svc.MaxPower(ctx, model.ClassTitan)
	assert.ErrorIs(t, err, inventory.ErrNoSnapshot)

	_, err = svc.Refresh(ctx)
	require.NoError(t, err)

	result, err := svc.MaxPower(ctx, model.ClassTitan)
	require.NoError(t, err)
	assert.Equal(t, 1800+1790+1810, result.Weapons)
	assert.Equal(t, 1780+1781+1782+1783+1784, result.Armor)
	assert.InDelta(t, 1788.75, result.Base, 1e-9)
	assert.Equal(t, 12, result.ArtifactBonus)
	assert.InDelta(t, 1800.75, result.Total, 1e-9)
}

func TestMaxPowerIncompleteLoadout(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()
	_, err := svc.Refresh(ctx)
	require.NoError(t, err)

	svc.state.Update(func(cur inventory.View) (*model.Snapshot, model.AnnotationRecord, bool) {
		next := *cur.Snapshot
		next.Instances = map[string]model.InstanceComponent{"i-kinetic": {Power: 1800}}
		return &next, cur.Annotations, true
	})

	_, err = svc.MaxPower(ctx, model.ClassTitan)
	assert.ErrorIs(t, err, power.ErrIncompleteLoadout)
}

func TestSetAnnotation(t *testing.T) {
	svc, remote := newTestService(t, nil)
	ctx := context.Background()
	tag := "favorite"

	assert.ErrorIs(t, svc.SetAnnotation(ctx, "i-exotic", model.AnnotationTag, &tag), inventory.ErrNoSnapshot)

	_, err := svc.Refresh(ctx)
	require.NoError(t, err)
	require.NoError(t, svc.SetAnnotation(ctx, "i-exotic", model.AnnotationTag, &tag))

	assert.Equal(t, "favorite", remote.annotations.Tags["i-exotic"])
	for _, item := range svc.Inventory(false).Items {
		if item.InstanceID() == "i-exotic" {
			require.NotNil(t, item.Instance.Tag)
			assert.Equal(t, "favorite", *item.Instance.Tag)
		}
	}
}

func TestDefinitionsAndStats(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()

	defs, err := svc.Definitions(ctx, model.TableInventoryItem, []uint32{1003, 9999})
	require.NoError(t, err)
	require.Len(t, defs, 1)
	assert.True(t, defs[1003].(model.ItemDefinition).IsExotic())

	_, err = svc.Refresh(ctx)
	require.NoError(t, err)

	stats := svc.Stats()
	assert.True(t, stats.Loaded)
	assert.Equal(t, 1, stats.Characters)
	assert.Equal(t, 10, stats.Items)
	assert.NotNil(t, stats.LastRefresh)
	assert.Empty(t, stats.LastError)
	assert.Equal(t, "v1#"+catalog.CacheGeneration, stats.Catalog.Version)
	assert.Empty(t, stats.InFlight)

	purged, err := svc.PurgeCatalog(ctx)
	require.NoError(t, err)
	assert.Positive(t, purged)
}

func TestTransferLogsWithoutJournal(t *testing.T) {
	svc, _ := newTestService(t, nil)
	logs, total, err := svc.TransferLogs(context.Background(), 0, 0)
	require.NoError(t, err)
	assert.Empty(t, logs)
	assert.Zero(t, total)
}

type countingRefresher struct {
	calls      atomic.Int32
	refreshing atomic.Bool
	err        error
}

func (r *countingRefresher) Refresh(ctx context.Context) error {
	r.calls.Add(1)
	return r.err
}

func (r *countingRefresher) Refreshing() bool {
	return r.refreshing.Load()
}

func TestRefreshSchedulerRunsImmediatelyAndOnTicks(t *testing.T) {
	r := &countingRefresher{}
	s := NewRefreshScheduler(r, RefreshConfig{Interval: 10 * time.Millisecond})
	s.Start()
	s.Start()

	assert.Eventually(t, func() bool { return r.calls.Load() >= 3 }, time.Second, 5*time.Millisecond)
	s.Stop()
	s.Stop()

	stopped := r.calls.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, stopped, r.calls.Load())
}

func TestRefreshSchedulerSkipsWhileRefreshing(t *testing.T) {
	r := &countingRefresher{}
	r.refreshing.Store(true)
	s := NewRefreshScheduler(r, RefreshConfig{})

	s.tick()
	assert.Zero(t, r.calls.Load())

	r.refreshing.Store(false)
	s.tick()
	assert.Equal(t, int32(1), r.calls.Load())
}

func TestRefreshSchedulerRunNowReturnsError(t *testing.T) {
	r := &countingRefresher{err: errors.New("offline")}
	s := NewRefreshScheduler(r, DefaultRefreshConfig())
	assert.EqualError(t, s.RunNow(), "offline")
	s.Stop()
}
