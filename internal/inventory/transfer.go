package inventory

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"

	"guardian-inventory/internal/model"
)

var (
	// ErrTransferInProgress is returned when the item already has a transfer in flight.
	ErrTransferInProgress = errors.New("transfer already in progress for item")
	// ErrItemNotFound is returned when the item is not in the current snapshot.
	ErrItemNotFound = errors.New("item not found in current snapshot")
	// ErrNoSnapshot is returned before the first account refresh.
	ErrNoSnapshot = errors.New("no account snapshot loaded")
	// ErrUnknownLocation is returned when the target is not the vault or a
	// character of the loaded account.
	ErrUnknownLocation = errors.New("unknown target location")
)

// ItemMover performs one remote relocation primitive.
type ItemMover interface {
	TransferItem(ctx context.Context, call model.MoveCall) error
}

// Refresher re-fetches the authoritative account state.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// TransferError reports a failed remote hop. The local snapshot has been
// rolled back when it is returned; the remote account may still be in the
// state reached by earlier hops.
type TransferError struct {
	Request model.TransferRequest
	Hop     int
	Call    model.MoveCall
	Err     error
}

func (e *TransferError) Error() string {
	return fmt.Sprintf("transfer of %s from %s to %s failed at hop %d: %v",
		e.Request.InstanceID, e.Request.Source, e.Request.Target, e.Hop+1, e.Err)
}

func (e *TransferError) Unwrap() error {
	return e.Err
}

// TransferObserver is notified of every state transition of a transfer.
type TransferObserver func(req model.TransferRequest, state model.TransferState)

// TransfererOption configures a Transferer.
type TransfererOption func(*Transferer)

// WithResync re-fetches the account after every committed transfer.
func WithResync(r Refresher) TransfererOption {
	return func(t *Transferer) {
		t.resync = r
	}
}

// WithObserver registers a transition observer.
func WithObserver(o TransferObserver) TransfererOption {
	return func(t *Transferer) {
		t.observer = o
	}
}

// Transferer moves instanced items between the vault and characters with an
// optimistic local update and rollback on remote failure. At most one
// transfer per instance id is in flight; transfers of different items run
// concurrently.
type Transferer struct {
	state    *State
	mover    ItemMover
	resync   Refresher
	observer TransferObserver

	mu       sync.Mutex
	inFlight map[string]model.TransferRequest
}

// NewTransferer creates a transfer engine over state.
func NewTransferer(state *State, mover ItemMover, opts ...TransfererOption) *Transferer {
	t := &Transferer{
		state:    state,
		mover:    mover,
		inFlight: make(map[string]model.TransferRequest),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// RequestMove moves the item to target from wherever the current snapshot
// places it.
func (t *Transferer) RequestMove(ctx context.Context, instanceID string, itemHash uint32, target model.Location) error {
	req, err := t.Resolve(instanceID, itemHash, target)
	if err != nil {
		return err
	}
	return t.Transfer(ctx, req)
}

// Resolve builds the request that moves the item to target from its current
// owner.
func (t *Transferer) Resolve(instanceID string, itemHash uint32, target model.Location) (model.TransferRequest, error) {
	snap := t.state.Snapshot()
	if snap == nil {
		return model.TransferRequest{}, ErrNoSnapshot
	}
	if !snap.Holds(target) {
		return model.TransferRequest{}, fmt.Errorf("%w: %s", ErrUnknownLocation, target)
	}
	placed, ok := snap.Locate(instanceID)
	if !ok {
		return model.TransferRequest{}, fmt.Errorf("%w: %s", ErrItemNotFound, instanceID)
	}
	return model.TransferRequest{
		InstanceID: instanceID,
		ItemHash:   itemHash,
		Source:     placed.Owner,
		Target:     target,
	}, nil
}

// Transfer runs one transfer to completion. A request whose target equals
// its source returns nil without touching any state.
func (t *Transferer) Transfer(ctx context.Context, req model.TransferRequest) error {
	if snap := t.state.Snapshot(); snap != nil && !snap.Holds(req.Target) {
		return fmt.Errorf("%w: %s", ErrUnknownLocation, req.Target)
	}
	if err := t.acquire(req); err != nil {
		return err
	}
	if req.Source == req.Target {
		t.release(req.InstanceID)
		return nil
	}
	defer t.release(req.InstanceID)

	t.notify(req, model.TransferPending)

	var (
		before  *model.Snapshot
		placed  model.Placement
		moved   bool
		noSnap  bool
		applied View
	)
	applied, _ = t.state.Update(func(cur View) (*model.Snapshot, model.AnnotationRecord, bool) {
		if cur.Snapshot == nil {
			noSnap = true
			return nil, cur.Annotations, false
		}
		before = cur.Snapshot
		var next *model.Snapshot
		next, placed, moved = cur.Snapshot.Relocate(req.InstanceID, req.Source, req.Target)
		return next, cur.Annotations, moved
	})
	if noSnap {
		t.notify(req, model.TransferRolledBack)
		return ErrNoSnapshot
	}
	if !moved {
		log.Printf("[TransferEngine] %s not found at %s, sending remote move anyway", req.InstanceID, req.Source)
	}

	// Remote calls run to completion even if the caller stops waiting.
	remote := context.WithoutCancel(ctx)
	for hop, call := range MovePath(req, before.MembershipType) {
		if err := t.mover.TransferItem(remote, call); err != nil {
			if moved {
				t.rollback(req, before, applied.Generation, placed)
			}
			t.notify(req, model.TransferRolledBack)
			return &TransferError{Request: req, Hop: hop, Call: call, Err: err}
		}
	}

	t.notify(req, model.TransferCommitted)

	if t.resync != nil {
		if err := t.resync.Refresh(remote); err != nil {
			log.Printf("[TransferEngine] Resync after %s failed: %v", req.InstanceID, err)
		}
	}
	return nil
}

// InFlight returns the transfers currently pending, ordered by instance id.
func (t *Transferer) InFlight() []model.TransferRequest {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]model.TransferRequest, 0, len(t.inFlight))
	for _, req := range t.inFlight {
		out = append(out, req)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].InstanceID < out[j].InstanceID })
	return out
}

// MovePath returns the remote calls needed for req. Character to character
// moves go through the vault.
func MovePath(req model.TransferRequest, membershipType int) []model.MoveCall {
	call := func(toVault bool, characterID string) model.MoveCall {
		return model.MoveCall{
			ItemHash:       req.ItemHash,
			StackSize:      1,
			ToVault:        toVault,
			InstanceID:     req.InstanceID,
			CharacterID:    characterID,
			MembershipType: membershipType,
		}
	}

	switch {
	case req.Source.IsVault():
		return []model.MoveCall{call(false, req.Target.CharacterID)}
	case req.Target.IsVault():
		return []model.MoveCall{call(true, req.Source.CharacterID)}
	default:
		return []model.MoveCall{
			call(true, req.Source.CharacterID),
			call(false, req.Target.CharacterID),
		}
	}
}

// rollback restores the pre-request snapshot when nothing was published
// since the optimistic step; otherwise it only moves this item back.
func (t *Transferer) rollback(req model.TransferRequest, before *model.Snapshot, appliedGen uint64, placed model.Placement) {
	_, restored := t.state.Update(func(cur View) (*model.Snapshot, model.AnnotationRecord, bool) {
		if cur.Generation == appliedGen {
			return before, cur.Annotations, true
		}
		if cur.Snapshot == nil {
			return nil, cur.Annotations, false
		}
		next, ok := cur.Snapshot.Restore(req.InstanceID, req.Target, placed)
		return next, cur.Annotations, ok
	})
	if !restored {
		log.Printf("[TransferEngine] %s no longer at %s, leaving newer snapshot in place", req.InstanceID, req.Target)
	}
}

func (t *Transferer) acquire(req model.TransferRequest) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, busy := t.inFlight[req.InstanceID]; busy {
		return fmt.Errorf("%w: %s", ErrTransferInProgress, req.InstanceID)
	}
	t.inFlight[req.InstanceID] = req
	return nil
}

func (t *Transferer) release(instanceID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.inFlight, instanceID)
}

func (t *Transferer) notify(req model.TransferRequest, state model.TransferState) {
	log.Printf("[TransferEngine] %s (%s -> %s): %s", req.InstanceID, req.Source, req.Target, state)
	if t.observer != nil {
		t.observer(req, state)
	}
}
