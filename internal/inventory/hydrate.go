package inventory

import (
	"guardian-inventory/internal/model"
)

// DefinitionSource supplies item definitions that are already in memory.
// Implementations must not block; catalog.Store.ItemDefinition is one.
type DefinitionSource interface {
	ItemDefinition(hash uint32) (model.ItemDefinition, bool)
}

// Hydrate merges a raw snapshot, its instance components and the annotation
// record into display-ready items. Items come out in traversal order: vault,
// then every character inventory, then every character equipment set, with
// characters in snapshot order followed by collections whose owner is missing
// from the character list. defs may be nil; it is only used for the
// static stat fallback.
func Hydrate(snap *model.Snapshot, ann model.AnnotationRecord, defs DefinitionSource) []model.InventoryItem {
	if snap == nil {
		return []model.InventoryItem{}
	}

	ids := snap.CharacterIDs()
	total := len(snap.Vault)
	for _, id := range ids {
		total += len(snap.Inventories[id]) + len(snap.Equipment[id])
	}
	items := make([]model.InventoryItem, 0, total)

	for _, raw := range snap.Vault {
		items = append(items, hydrateItem(snap, raw, model.Vault(), false, ann, defs))
	}
	for _, id := range ids {
		owner := model.OnCharacter(id)
		for _, raw := range snap.Inventories[id] {
			items = append(items, hydrateItem(snap, raw, owner, false, ann, defs))
		}
	}
	for _, id := range ids {
		owner := model.OnCharacter(id)
		for _, raw := range snap.Equipment[id] {
			items = append(items, hydrateItem(snap, raw, owner, true, ann, defs))
		}
	}
	return items
}

func hydrateItem(snap *model.Snapshot, raw model.RawItem, owner model.Location, equipped bool, ann model.AnnotationRecord, defs DefinitionSource) model.InventoryItem {
	item := model.InventoryItem{
		ItemHash:   raw.ItemHash,
		Quantity:   raw.Quantity,
		BucketHash: raw.BucketHash,
		Owner:      owner,
		Equipped:   equipped,
	}
	id := raw.ItemInstanceID
	if id == "" {
		return item
	}

	inst := &model.ItemInstance{
		ID:   id,
		Tag:  ann.Tag(id),
		Note: ann.Note(id),
	}
	if c, ok := snap.Instances[id]; ok {
		inst.Power = c.Power
		inst.DamageType = c.DamageType
		inst.DamageTypeHash = c.DamageTypeHash
		inst.CanEquip = c.CanEquip
		inst.Locked = c.Locked
	}
	inst.Stats = instanceStats(snap.Stats[id], raw.ItemHash, defs)
	if sockets := snap.Sockets[id]; len(sockets) > 0 {
		inst.Sockets = append([]model.SocketState(nil), sockets...)
	}
	if objectives := snap.Objectives[id]; len(objectives) > 0 {
		inst.Objectives = append([]model.Objective(nil), objectives...)
	}
	item.Instance = inst
	return item
}

// instanceStats prefers live stat values and falls back to the item kind's
// investment stats.
func instanceStats(live map[uint32]int, itemHash uint32, defs DefinitionSource) map[uint32]int {
	if len(live) > 0 {
		out := make(map[uint32]int, len(live))
		for k, v := range live {
			out[k] = v
		}
		return out
	}
	if defs == nil {
		return nil
	}
	def, ok := defs.ItemDefinition(itemHash)
	if !ok || len(def.InvestmentStats) == 0 {
		return nil
	}
	out := make(map[uint32]int, len(def.InvestmentStats))
	for _, s := range def.InvestmentStats {
		out[s.StatHash] = s.Value
	}
	return out
}

// Duplicates returns the instance ids of items whose item hash is held by
// more than one instance.
func Duplicates(items []model.InventoryItem) map[string]bool {
	byHash := make(map[uint32][]string)
	for _, it := range items {
		if id := it.InstanceID(); id != "" {
			byHash[it.ItemHash] = append(byHash[it.ItemHash], id)
		}
	}
	dupes := make(map[string]bool)
	for _, ids := range byHash {
		if len(ids) < 2 {
			continue
		}
		for _, id := range ids {
			dupes[id] = true
		}
	}
	return dupes
}
