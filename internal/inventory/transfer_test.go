package inventory

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"guardian-inventory/internal/model"
)

func assertSingleOwner(t *testing.T, snap *model.Snapshot, instanceID string, want model.Location) {
	t.Helper()
	owners := snap.Owners(instanceID)
	require.Len(t, owners, 1, "instance %s must have exactly one owner", instanceID)
	assert.Equal(t, want, owners[0])
}

func TestMoveToCurrentOwnerIsNoop(t *testing.T) {
	st := loadedState(testSnapshot())
	mover := &fakeMover{}
	tr := NewTransferer(st, mover)
	gen := st.Generation()

	require.NoError(t, tr.RequestMove(context.Background(), "i-titan", 200, model.OnCharacter(titanID)))

	assert.Empty(t, mover.recorded())
	assert.Equal(t, gen, st.Generation())
}

func TestMoveFromVault(t *testing.T) {
	st := loadedState(testSnapshot())
	mover := &fakeMover{}
	tr := NewTransferer(st, mover)

	require.NoError(t, tr.RequestMove(context.Background(), "i-vault", 100, model.OnCharacter(hunterID)))

	calls := mover.recorded()
	require.Len(t, calls, 1)
	assert.Equal(t, model.MoveCall{
		ItemHash:       100,
		StackSize:      1,
		ToVault:        false,
		InstanceID:     "i-vault",
		CharacterID:    hunterID,
		MembershipType: 3,
	}, calls[0])

	snap := st.Snapshot()
	assertSingleOwner(t, snap, "i-vault", model.OnCharacter(hunterID))
	inv := snap.Inventories[hunterID]
	assert.Equal(t, "i-vault", inv[len(inv)-1].ItemInstanceID)
	assert.Len(t, snap.Vault, 1)
}

func TestMoveEquippedItemToVaultClearsEquipped(t *testing.T) {
	st := loadedState(testSnapshot())
	tr := NewTransferer(st, &fakeMover{})

	require.NoError(t, tr.RequestMove(context.Background(), "i-equipped", 400, model.Vault()))

	snap := st.Snapshot()
	assertSingleOwner(t, snap, "i-equipped", model.Vault())
	assert.Empty(t, snap.Equipment[titanID])

	placed, ok := snap.Locate("i-equipped")
	require.True(t, ok)
	assert.False(t, placed.Equipped)
}

func TestCharacterToCharacterGoesThroughVault(t *testing.T) {
	st := loadedState(testSnapshot())
	mover := &fakeMover{}
	var seen []model.Location
	mover.onCall = func(model.MoveCall) {
		placed, ok := st.Snapshot().Locate("i-titan")
		if ok {
			seen = append(seen, placed.Owner)
		}
	}
	tr := NewTransferer(st, mover)

	require.NoError(t, tr.RequestMove(context.Background(), "i-titan", 200, model.OnCharacter(hunterID)))

	calls := mover.recorded()
	require.Len(t, calls, 2)
	assert.True(t, calls[0].ToVault)
	assert.Equal(t, titanID, calls[0].CharacterID)
	assert.False(t, calls[1].ToVault)
	assert.Equal(t, hunterID, calls[1].CharacterID)

	// The optimistic snapshot shows the final target during both hops.
	assert.Equal(t, []model.Location{model.OnCharacter(hunterID), model.OnCharacter(hunterID)}, seen)
	assertSingleOwner(t, st.Snapshot(), "i-titan", model.OnCharacter(hunterID))
}

func TestFailedTransferRestoresPreviousSnapshot(t *testing.T) {
	st := loadedState(testSnapshot())
	before := st.Snapshot()
	mover := &fakeMover{failAt: map[int]error{0: errRemote}}
	tr := NewTransferer(st, mover)

	err := tr.RequestMove(context.Background(), "i-vault", 100, model.OnCharacter(titanID))

	var transferErr *TransferError
	require.ErrorAs(t, err, &transferErr)
	assert.ErrorIs(t, err, errRemote)
	assert.Equal(t, 0, transferErr.Hop)
	assert.Equal(t, before, st.Snapshot())
	assertSingleOwner(t, st.Snapshot(), "i-vault", model.Vault())
}

func TestFailedSecondHopRollsBackWholeMove(t *testing.T) {
	st := loadedState(testSnapshot())
	before := st.Snapshot()
	mover := &fakeMover{failAt: map[int]error{1: errRemote}}
	tr := NewTransferer(st, mover)

	err := tr.RequestMove(context.Background(), "i-titan", 200, model.OnCharacter(hunterID))

	var transferErr *TransferError
	require.ErrorAs(t, err, &transferErr)
	assert.Equal(t, 1, transferErr.Hop)
	assert.False(t, transferErr.Call.ToVault)
	assert.Len(t, mover.recorded(), 2)
	assert.Equal(t, before, st.Snapshot())
}

func TestRollbackKeepsConcurrentPublications(t *testing.T) {
	st := loadedState(testSnapshot())
	mover := &fakeMover{failAt: map[int]error{0: errRemote}}
	mover.onCall = func(model.MoveCall) {
		st.Update(func(cur View) (*model.Snapshot, model.AnnotationRecord, bool) {
			return cur.Snapshot, cur.Annotations.With("i-hunter", model.AnnotationTag, strPtr("junk")), true
		})
	}
	tr := NewTransferer(st, mover)

	err := tr.RequestMove(context.Background(), "i-equipped", 400, model.Vault())
	require.Error(t, err)

	snap := st.Snapshot()
	assertSingleOwner(t, snap, "i-equipped", model.OnCharacter(titanID))
	placed, ok := snap.Locate("i-equipped")
	require.True(t, ok)
	assert.True(t, placed.Equipped)
	assert.Equal(t, testSnapshot().Vault, snap.Vault)

	require.NotNil(t, st.Annotations().Tag("i-hunter"))
	assert.Equal(t, "junk", *st.Annotations().Tag("i-hunter"))
}

func TestSecondConcurrentMoveIsRejected(t *testing.T) {
	st := loadedState(testSnapshot())
	mover := &fakeMover{entered: make(chan struct{}, 1), gate: make(chan struct{})}

	var (
		mu      sync.Mutex
		pending int
	)
	tr := NewTransferer(st, mover, WithObserver(func(_ model.TransferRequest, state model.TransferState) {
		if state == model.TransferPending {
			mu.Lock()
			pending++
			mu.Unlock()
		}
	}))

	done := make(chan error, 1)
	go func() {
		done <- tr.RequestMove(context.Background(), "i-vault", 100, model.OnCharacter(titanID))
	}()
	<-mover.entered

	require.Len(t, tr.InFlight(), 1)
	err := tr.Transfer(context.Background(), model.TransferRequest{
		InstanceID: "i-vault",
		ItemHash:   100,
		Source:     model.OnCharacter(titanID),
		Target:     model.OnCharacter(hunterID),
	})
	assert.ErrorIs(t, err, ErrTransferInProgress)

	close(mover.gate)
	require.NoError(t, <-done)

	mu.Lock()
	assert.Equal(t, 1, pending)
	mu.Unlock()
	assert.Len(t, mover.recorded(), 1)
	assert.Empty(t, tr.InFlight())
}

func TestStaleSourceStillCallsRemote(t *testing.T) {
	st := loadedState(testSnapshot())
	before := st.Snapshot()
	gen := st.Generation()
	mover := &fakeMover{}
	tr := NewTransferer(st, mover)

	// The item is believed to be on the hunter but actually sits in the vault.
	err := tr.Transfer(context.Background(), model.TransferRequest{
		InstanceID: "i-vault",
		ItemHash:   100,
		Source:     model.OnCharacter(hunterID),
		Target:     model.Vault(),
	})
	require.NoError(t, err)

	require.Len(t, mover.recorded(), 1)
	assert.True(t, mover.recorded()[0].ToVault)
	assert.Equal(t, gen, st.Generation())
	assert.Equal(t, before, st.Snapshot())
	assertSingleOwner(t, st.Snapshot(), "i-vault", model.Vault())
}

func TestStaleSourceFailureLeavesSnapshotIntact(t *testing.T) {
	st := loadedState(testSnapshot())
	before := st.Snapshot()
	tr := NewTransferer(st, &fakeMover{failAt: map[int]error{0: errRemote}})

	err := tr.Transfer(context.Background(), model.TransferRequest{
		InstanceID: "i-vault",
		ItemHash:   100,
		Source:     model.OnCharacter(titanID),
		Target:     model.OnCharacter(hunterID),
	})
	require.Error(t, err)
	assert.Equal(t, before, st.Snapshot())
}

func TestCommittedTransferResyncs(t *testing.T) {
	st := loadedState(testSnapshot())
	refresher := &fakeRefresher{}
	var states []model.TransferState
	tr := NewTransferer(st, &fakeMover{},
		WithResync(refresher),
		WithObserver(func(_ model.TransferRequest, s model.TransferState) { states = append(states, s) }))

	require.NoError(t, tr.RequestMove(context.Background(), "i-hunter", 300, model.Vault()))

	assert.Equal(t, 1, refresher.count())
	assert.Equal(t, []model.TransferState{model.TransferPending, model.TransferCommitted}, states)
}

func TestRequestMoveErrors(t *testing.T) {
	tr := NewTransferer(NewState(nil), &fakeMover{})
	assert.ErrorIs(t, tr.RequestMove(context.Background(), "i-vault", 100, model.Vault()), ErrNoSnapshot)

	tr = NewTransferer(loadedState(testSnapshot()), &fakeMover{})
	assert.ErrorIs(t, tr.RequestMove(context.Background(), "missing", 1, model.Vault()), ErrItemNotFound)
}

func TestMoveToUnknownCharacterIsRejected(t *testing.T) {
	st := loadedState(testSnapshot())
	mover := &fakeMover{}
	tr := NewTransferer(st, mover)
	before := st.Snapshot()
	gen := st.Generation()

	err := tr.RequestMove(context.Background(), "i-vault", 100, model.OnCharacter("2305843009301000009"))
	assert.ErrorIs(t, err, ErrUnknownLocation)

	err = tr.Transfer(context.Background(), model.TransferRequest{
		InstanceID: "i-vault",
		ItemHash:   100,
		Source:     model.Vault(),
		Target:     model.OnCharacter("2305843009301000009"),
	})
	assert.ErrorIs(t, err, ErrUnknownLocation)

	assert.Empty(t, mover.recorded())
	assert.Empty(t, tr.InFlight())
	assert.Equal(t, gen, st.Generation())
	assert.Same(t, before, st.Snapshot())
	assertSingleOwner(t, st.Snapshot(), "i-vault", model.Vault())

	// The item is not left locked by the rejected request.
	require.NoError(t, tr.RequestMove(context.Background(), "i-vault", 100, model.OnCharacter(hunterID)))
	assertSingleOwner(t, st.Snapshot(), "i-vault", model.OnCharacter(hunterID))
}

func TestMovePath(t *testing.T) {
	req := model.TransferRequest{InstanceID: "x", ItemHash: 9, Source: model.Vault(), Target: model.OnCharacter("a")}
	path := MovePath(req, 2)
	require.Len(t, path, 1)
	assert.False(t, path[0].ToVault)
	assert.Equal(t, "a", path[0].CharacterID)
	assert.Equal(t, 2, path[0].MembershipType)

	req.Source, req.Target = model.OnCharacter("a"), model.Vault()
	path = MovePath(req, 2)
	require.Len(t, path, 1)
	assert.True(t, path[0].ToVault)
	assert.Equal(t, "a", path[0].CharacterID)
}
