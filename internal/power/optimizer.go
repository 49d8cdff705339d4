// Package power computes the highest average power a character can reach
// from the items on the account.
package power

import (
	"errors"
	"fmt"

	"guardian-inventory/internal/model"
)

// SlotCount is the number of equipment slots averaged into the power level.
const SlotCount = 8

// ErrIncompleteLoadout is returned when a slot has no eligible item.
var ErrIncompleteLoadout = errors.New("no eligible item for equipment slot")

// DefinitionSource supplies item definitions from memory.
type DefinitionSource interface {
	ItemDefinition(hash uint32) (model.ItemDefinition, bool)
}

// Result is a power report for one class.
type Result struct {
	Class         model.ClassType `json:"classType"`
	Weapons       int             `json:"weapons"`
	Armor         int             `json:"armor"`
	Base          float64         `json:"base"`
	ArtifactBonus int             `json:"artifactBonus"`
	Total         float64         `json:"total"`
}

type candidate struct {
	power  int
	exotic bool
}

// best tracks the top overall and top non-exotic power of one bucket.
type best struct {
	any, nonExotic       int
	hasAny, hasNonExotic bool
}

// MaxPower returns the best average power over the eight slots, counting at
// most one exotic per weapon group and one per armor group.
func MaxPower(items []model.InventoryItem, defs DefinitionSource, class model.ClassType) (float64, error) {
	weapons, armor, err := groupTotals(items, defs, class)
	if err != nil {
		return 0, err
	}
	return float64(weapons+armor) / SlotCount, nil
}

// Report is MaxPower with the parts broken out and the artifact bonus added.
func Report(items []model.InventoryItem, defs DefinitionSource, class model.ClassType, artifactBonus int) (Result, error) {
	weapons, armor, err := groupTotals(items, defs, class)
	if err != nil {
		return Result{}, err
	}
	base := float64(weapons+armor) / SlotCount
	return Result{
		Class:         class,
		Weapons:       weapons,
		Armor:         armor,
		Base:          base,
		ArtifactBonus: artifactBonus,
		Total:         base + float64(artifactBonus),
	}, nil
}

func groupTotals(items []model.InventoryItem, defs DefinitionSource, class model.ClassType) (int, int, error) {
	buckets := collect(items, defs, class)

	weapons, err := groupOptimum(model.WeaponBuckets, buckets)
	if err != nil {
		return 0, 0, err
	}
	armor, err := groupOptimum(model.ArmorBuckets, buckets)
	if err != nil {
		return 0, 0, err
	}
	return weapons, armor, nil
}

// collect picks the eligible candidates per bucket.
func collect(items []model.InventoryItem, defs DefinitionSource, class model.ClassType) map[uint32]best {
	slots := make(map[uint32]bool, SlotCount)
	for _, b := range model.WeaponBuckets {
		slots[b] = true
	}
	for _, b := range model.ArmorBuckets {
		slots[b] = true
	}

	buckets := make(map[uint32]best, SlotCount)
	if defs == nil {
		return buckets
	}
	for _, it := range items {
		p, ok := it.Power()
		if !ok {
			continue
		}
		def, ok := defs.ItemDefinition(it.ItemHash)
		if !ok || !def.UsableBy(class) {
			continue
		}
		bucket := def.BucketHash
		if bucket == 0 {
			bucket = it.BucketHash
		}
		if !slots[bucket] {
			continue
		}
		buckets[bucket] = buckets[bucket].add(candidate{power: p, exotic: def.IsExotic()})
	}
	return buckets
}

func (b best) add(c candidate) best {
	if !b.hasAny || c.power > b.any {
		b.any, b.hasAny = c.power, true
	}
	if !c.exotic && (!b.hasNonExotic || c.power > b.nonExotic) {
		b.nonExotic, b.hasNonExotic = c.power, true
	}
	return b
}

// groupOptimum tries the all-non-exotic baseline and, for each bucket, the
// combination where that bucket alone may hold an exotic.
func groupOptimum(group []uint32, buckets map[uint32]best) (int, error) {
	for _, b := range group {
		if !buckets[b].hasAny {
			return 0, fmt.Errorf("%w: bucket %d", ErrIncompleteLoadout, b)
		}
	}

	optimum, found := 0, false
	consider := func(sum int) {
		if !found || sum > optimum {
			optimum, found = sum, true
		}
	}

	if sum, ok := combination(group, buckets, -1); ok {
		consider(sum)
	}
	for i := range group {
		if sum, ok := combination(group, buckets, i); ok {
			consider(sum)
		}
	}

	if !found {
		return 0, fmt.Errorf("%w: every combination needs a second exotic", ErrIncompleteLoadout)
	}
	return optimum, nil
}

// combination sums the group with bucket exoticAt allowed to use its best
// item overall and every other bucket limited to non-exotics. exoticAt -1
// is the all-non-exotic baseline.
func combination(group []uint32, buckets map[uint32]best, exoticAt int) (int, bool) {
	sum := 0
	for i, b := range group {
		slot := buckets[b]
		if i == exoticAt {
			sum += slot.any
			continue
		}
		if !slot.hasNonExotic {
			return 0, false
		}
		sum += slot.nonExotic
	}
	return sum, true
}
