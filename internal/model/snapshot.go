package model

import "sort"

// RawItem is one item entry as the remote profile reports it.
type RawItem struct {
	ItemHash       uint32 `json:"itemHash"`
	ItemInstanceID string `json:"itemInstanceId,omitempty"`
	Quantity       int    `json:"quantity"`
	BucketHash     uint32 `json:"bucketHash"`
	State          int    `json:"state"`
	Lockable       bool   `json:"lockable"`
	TransferStatus int    `json:"transferStatus"`
}

// Character is the summary of one character on the account.
type Character struct {
	CharacterID    string    `json:"characterId"`
	ClassType      ClassType `json:"classType"`
	Light          int       `json:"light"`
	EmblemPath     string    `json:"emblemPath,omitempty"`
	DateLastPlayed string    `json:"dateLastPlayed,omitempty"`
}

// InstanceComponent is the per-instance summary component.
type InstanceComponent struct {
	Power              int    `json:"power"`
	DamageType         int    `json:"damageType"`
	DamageTypeHash     uint32 `json:"damageTypeHash,omitempty"`
	ItemLevel          int    `json:"itemLevel"`
	Quality            int    `json:"quality"`
	CanEquip           bool   `json:"canEquip"`
	EquipRequiredLevel int    `json:"equipRequiredLevel"`
	Locked             bool   `json:"locked"`
}

// SocketState is the live plug state of one socket.
type SocketState struct {
	PlugHash  uint32 `json:"plugHash,omitempty"`
	IsEnabled bool   `json:"isEnabled"`
	IsVisible bool   `json:"isVisible"`
}

// Objective is the progress of one objective on an instanced item.
type Objective struct {
	ObjectiveHash   uint32 `json:"objectiveHash"`
	Progress        int    `json:"progress"`
	CompletionValue int    `json:"completionValue"`
	Complete        bool   `json:"complete"`
}

// Snapshot is one raw account profile. A published snapshot is never
// mutated; writers derive a new one with Relocate, which copies only the
// collections it touches, so older snapshots stay valid for rollback.
type Snapshot struct {
	MembershipType int
	MembershipID   string
	Characters     []Character
	Vault          []RawItem
	Inventories    map[string][]RawItem
	Equipment      map[string][]RawItem
	Instances      map[string]InstanceComponent
	Stats          map[string]map[uint32]int
	Sockets        map[string][]SocketState
	Objectives     map[string][]Objective
	ArtifactPower  int
}

// Placement records where an instanced item sits inside a snapshot.
type Placement struct {
	Owner    Location
	Equipped bool
	Index    int
}

// Character returns the character with the given id.
func (s *Snapshot) Character(characterID string) (Character, bool) {
	for _, c := range s.Characters {
		if c.CharacterID == characterID {
			return c, true
		}
	}
	return Character{}, false
}

// CharacterIDs returns the id of every character that owns a collection:
// the characters in snapshot order, then any id that only appears as an
// inventory or equipment key, sorted.
func (s *Snapshot) CharacterIDs() []string {
	ids := make([]string, 0, len(s.Characters))
	seen := make(map[string]bool, len(s.Characters))
	for _, c := range s.Characters {
		if !seen[c.CharacterID] {
			seen[c.CharacterID] = true
			ids = append(ids, c.CharacterID)
		}
	}
	var orphans []string
	for _, m := range []map[string][]RawItem{s.Inventories, s.Equipment} {
		for id := range m {
			if !seen[id] {
				seen[id] = true
				orphans = append(orphans, id)
			}
		}
	}
	sort.Strings(orphans)
	return append(ids, orphans...)
}

// Holds reports whether loc names the vault or a character of this account.
func (s *Snapshot) Holds(loc Location) bool {
	if loc.IsVault() {
		return true
	}
	if loc.CharacterID == "" {
		return false
	}
	for _, id := range s.CharacterIDs() {
		if id == loc.CharacterID {
			return true
		}
	}
	return false
}

// Locate finds the single placement of an instanced item.
func (s *Snapshot) Locate(instanceID string) (Placement, bool) {
	if p, ok := s.locateIn(Vault(), instanceID); ok {
		return p, true
	}
	for _, id := range s.CharacterIDs() {
		if p, ok := s.locateIn(OnCharacter(id), instanceID); ok {
			return p, true
		}
	}
	return Placement{}, false
}

// Owners returns every location holding instanceID. Used to check the
// single-owner invariant; a healthy snapshot yields at most one entry.
func (s *Snapshot) Owners(instanceID string) []Location {
	var owners []Location
	count := func(loc Location, items []RawItem) {
		for _, it := range items {
			if it.ItemInstanceID == instanceID {
				owners = append(owners, loc)
			}
		}
	}
	count(Vault(), s.Vault)
	for _, id := range s.CharacterIDs() {
		loc := OnCharacter(id)
		count(loc, s.Inventories[id])
		count(loc, s.Equipment[id])
	}
	return owners
}

// Relocate derives a snapshot where instanceID has been removed from its
// collection at from and appended, unequipped, to the inventory of to.
// When the item is not at from the receiver is returned unchanged with
// moved == false.
func (s *Snapshot) Relocate(instanceID string, from, to Location) (next *Snapshot, placed Placement, moved bool) {
	placed, ok := s.locateIn(from, instanceID)
	if !ok {
		return s, Placement{}, false
	}

	src := s.collection(placed.Owner, placed.Equipped)
	item := src[placed.Index]

	next = s.derive()
	next.setCollection(placed.Owner, placed.Equipped, removeAt(src, placed.Index))
	dst := next.collection(to, false)
	next.setCollection(to, false, insertAt(dst, len(dst), item))
	return next, placed, true
}

// Restore derives a snapshot where instanceID, currently in the inventory of
// at, is put back at its original placement. It reports false when the item
// is no longer at at.
func (s *Snapshot) Restore(instanceID string, at Location, original Placement) (*Snapshot, bool) {
	current, ok := s.locateIn(at, instanceID)
	if !ok || current.Equipped {
		return s, false
	}

	src := s.collection(at, false)
	item := src[current.Index]

	next := s.derive()
	next.setCollection(at, false, removeAt(src, current.Index))
	dst := next.collection(original.Owner, original.Equipped)
	next.setCollection(original.Owner, original.Equipped, insertAt(dst, original.Index, item))
	return next, true
}

func (s *Snapshot) locateIn(loc Location, instanceID string) (Placement, bool) {
	if instanceID == "" {
		return Placement{}, false
	}
	find := func(items []RawItem, equipped bool) (Placement, bool) {
		for i, it := range items {
			if it.ItemInstanceID == instanceID {
				return Placement{Owner: loc, Equipped: equipped, Index: i}, true
			}
		}
		return Placement{}, false
	}
	if loc.IsVault() {
		return find(s.Vault, false)
	}
	if p, ok := find(s.Inventories[loc.CharacterID], false); ok {
		return p, true
	}
	return find(s.Equipment[loc.CharacterID], true)
}

func (s *Snapshot) collection(loc Location, equipped bool) []RawItem {
	switch {
	case loc.IsVault():
		return s.Vault
	case equipped:
		return s.Equipment[loc.CharacterID]
	default:
		return s.Inventories[loc.CharacterID]
	}
}

// derive returns a shallow copy; callers must replace, never edit, any
// collection they change on it.
func (s *Snapshot) derive() *Snapshot {
	next := *s
	return &next
}

func (s *Snapshot) setCollection(loc Location, equipped bool, items []RawItem) {
	switch {
	case loc.IsVault():
		s.Vault = items
	case equipped:
		s.Equipment = withEntry(s.Equipment, loc.CharacterID, items)
	default:
		s.Inventories = withEntry(s.Inventories, loc.CharacterID, items)
	}
}

func withEntry(m map[string][]RawItem, key string, items []RawItem) map[string][]RawItem {
	out := make(map[string][]RawItem, len(m)+1)
	for k, v := range m {
		out[k] = v
	}
	out[key] = items
	return out
}

func removeAt(items []RawItem, i int) []RawItem {
	out := make([]RawItem, 0, len(items)-1)
	out = append(out, items[:i]...)
	return append(out, items[i+1:]...)
}

func insertAt(items []RawItem, i int, item RawItem) []RawItem {
	if i < 0 {
		i = 0
	}
	if i > len(items) {
		i = len(items)
	}
	out := make([]RawItem, 0, len(items)+1)
	out = append(out, items[:i]...)
	out = append(out, item)
	return append(out, items[i:]...)
}
