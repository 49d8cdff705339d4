package model

import (
	"fmt"
	"strconv"
	"strings"
)

// Catalog table names used by the engine.
const (
	TableInventoryItem = "DestinyInventoryItemDefinition"
	TableStat          = "DestinyStatDefinition"
	TableBucket        = "DestinyInventoryBucketDefinition"
	TableDamageType    = "DestinyDamageTypeDefinition"
)

// ClassType is the character class an item is restricted to.
type ClassType int

const (
	ClassTitan   ClassType = 0
	ClassHunter  ClassType = 1
	ClassWarlock ClassType = 2
	ClassAny     ClassType = 3
)

var classNames = map[ClassType]string{
	ClassTitan:   "titan",
	ClassHunter:  "hunter",
	ClassWarlock: "warlock",
	ClassAny:     "any",
}

func (c ClassType) String() string {
	if name, ok := classNames[c]; ok {
		return name
	}
	return fmt.Sprintf("class(%d)", int(c))
}

// ParseClass accepts a class name (titan, hunter, warlock) or its number.
func ParseClass(s string) (ClassType, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for c, name := range classNames {
		if c != ClassAny && name == s {
			return c, nil
		}
	}
	if n, err := strconv.Atoi(s); err == nil && n >= int(ClassTitan) && n <= int(ClassWarlock) {
		return ClassType(n), nil
	}
	return 0, fmt.Errorf("unknown class %q", s)
}

// TierType is the rarity tier of an item kind.
type TierType int

const (
	TierBasic     TierType = 3
	TierRare      TierType = 4
	TierLegendary TierType = 5
	TierExotic    TierType = 6
)

// Equip-slot bucket hashes.
const (
	BucketKinetic   uint32 = 1498876634
	BucketEnergy    uint32 = 2465295065
	BucketPower     uint32 = 953998645
	BucketHelmet    uint32 = 3448274439
	BucketGauntlets uint32 = 3551918588
	BucketChest     uint32 = 14239492
	BucketLegs      uint32 = 20886954
	BucketClassItem uint32 = 1585787867
)

// WeaponBuckets and ArmorBuckets are the two equipment groups, in slot order.
var (
	WeaponBuckets = []uint32{BucketKinetic, BucketEnergy, BucketPower}
	ArmorBuckets  = []uint32{BucketHelmet, BucketGauntlets, BucketChest, BucketLegs, BucketClassItem}
)

// DisplayProperties is the presentation block shared by every definition.
type DisplayProperties struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Icon        string `json:"icon,omitempty"`
	HasIcon     bool   `json:"hasIcon,omitempty"`
}

// Definition is one immutable catalog record. The set of implementations is
// closed: ItemDefinition, StatDefinition, BucketDefinition,
// DamageTypeDefinition and GenericDefinition.
type Definition interface {
	DefinitionHash() uint32
	Display() DisplayProperties
	definition()
}

// InvestmentStat is a static stat contribution of an item kind.
type InvestmentStat struct {
	StatHash uint32 `json:"statTypeHash"`
	Value    int    `json:"value"`
}

// SocketEntry is one socket of an item kind's socket topology.
type SocketEntry struct {
	SocketTypeHash        uint32 `json:"socketTypeHash"`
	SingleInitialItemHash uint32 `json:"singleInitialItemHash"`
}

// ItemDefinition describes one kind of inventory item.
type ItemDefinition struct {
	Hash              uint32            `json:"hash"`
	Properties        DisplayProperties `json:"displayProperties"`
	ItemType          int               `json:"itemType"`
	TierType          TierType          `json:"tierType"`
	BucketHash        uint32            `json:"bucketTypeHash"`
	ClassType         ClassType         `json:"classType"`
	Equippable        bool              `json:"equippable"`
	DefaultDamageType int               `json:"defaultDamageType,omitempty"`
	InvestmentStats   []InvestmentStat  `json:"investmentStats,omitempty"`
	Sockets           []SocketEntry     `json:"sockets,omitempty"`
}

func (d ItemDefinition) DefinitionHash() uint32     { return d.Hash }
func (d ItemDefinition) Display() DisplayProperties { return d.Properties }
func (ItemDefinition) definition()                  {}

// IsExotic reports whether the item kind is of the exotic tier.
func (d ItemDefinition) IsExotic() bool {
	return d.TierType == TierExotic
}

// UsableBy reports whether a character of class can equip the item kind.
func (d ItemDefinition) UsableBy(class ClassType) bool {
	return d.ClassType == ClassAny || d.ClassType == class
}

// StatDefinition describes a stat.
type StatDefinition struct {
	Hash       uint32            `json:"hash"`
	Properties DisplayProperties `json:"displayProperties"`
	Category   int               `json:"statCategory"`
}

func (d StatDefinition) DefinitionHash() uint32     { return d.Hash }
func (d StatDefinition) Display() DisplayProperties { return d.Properties }
func (StatDefinition) definition()                  {}

// BucketDefinition describes an inventory bucket.
type BucketDefinition struct {
	Hash                   uint32            `json:"hash"`
	Properties             DisplayProperties `json:"displayProperties"`
	Category               int               `json:"category"`
	ItemCount              int               `json:"itemCount"`
	Location               int               `json:"location"`
	HasTransferDestination bool              `json:"hasTransferDestination"`
}

func (d BucketDefinition) DefinitionHash() uint32     { return d.Hash }
func (d BucketDefinition) Display() DisplayProperties { return d.Properties }
func (BucketDefinition) definition()                  {}

// DamageTypeDefinition describes a damage type.
type DamageTypeDefinition struct {
	Hash       uint32            `json:"hash"`
	Properties DisplayProperties `json:"displayProperties"`
	EnumValue  int               `json:"enumValue"`
}

func (d DamageTypeDefinition) DefinitionHash() uint32     { return d.Hash }
func (d DamageTypeDefinition) Display() DisplayProperties { return d.Properties }
func (DamageTypeDefinition) definition()                  {}

// GenericDefinition holds a record from a table without a typed decoder.
type GenericDefinition struct {
	Hash       uint32            `json:"hash"`
	Properties DisplayProperties `json:"displayProperties"`
	Raw        []byte            `json:"-"`
}

func (d GenericDefinition) DefinitionHash() uint32     { return d.Hash }
func (d GenericDefinition) Display() DisplayProperties { return d.Properties }
func (GenericDefinition) definition()                  {}

// ParseHash accepts the unsigned and the signed spelling of a hash.
func ParseHash(s string) (uint32, error) {
	if u, err := strconv.ParseUint(s, 10, 32); err == nil {
		return uint32(u), nil
	}
	i, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid hash %q", s)
	}
	return uint32(int32(i)), nil
}
