package catalog

import (
	"encoding/json"
	"fmt"
	"strconv"

	"guardian-inventory/internal/model"
)

// Table is one fully loaded catalog table. Tables are immutable once built.
type Table struct {
	Name    string
	Entries map[uint32]model.Definition
}

// Get returns the definition with the given hash.
func (t *Table) Get(hash uint32) (model.Definition, bool) {
	d, ok := t.Entries[hash]
	return d, ok
}

// Len returns the number of definitions in the table.
func (t *Table) Len() int {
	return len(t.Entries)
}

type decodeFunc func(hash uint32, raw json.RawMessage) (model.Definition, error)

var decoders = map[string]decodeFunc{
	model.TableInventoryItem: decodeItem,
	model.TableStat:          decodeStat,
	model.TableBucket:        decodeBucket,
	model.TableDamageType:    decodeDamageType,
}

// decodeTable parses a table payload of the form {"<hash>": {...}}.
func decodeTable(name string, data []byte) (*Table, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse table %s: %w", name, err)
	}

	decode, ok := decoders[name]
	if !ok {
		decode = decodeGeneric
	}

	entries := make(map[uint32]model.Definition, len(raw))
	for key, body := range raw {
		hash, err := parseHash(key)
		if err != nil {
			return nil, fmt.Errorf("table %s: %w", name, err)
		}
		def, err := decode(hash, body)
		if err != nil {
			return nil, fmt.Errorf("table %s, hash %d: %w", name, hash, err)
		}
		entries[hash] = def
	}
	return &Table{Name: name, Entries: entries}, nil
}

// parseHash accepts both the unsigned and the signed 32-bit spelling the
// catalog uses for the same hash.
func parseHash(key string) (uint32, error) {
	if u, err := strconv.ParseUint(key, 10, 32); err == nil {
		return uint32(u), nil
	}
	i, err := strconv.ParseInt(key, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid hash key %q", key)
	}
	return uint32(int32(i)), nil
}

type itemWire struct {
	DisplayProperties model.DisplayProperties `json:"displayProperties"`
	ItemType          int                     `json:"itemType"`
	ClassType         model.ClassType         `json:"classType"`
	Equippable        bool                    `json:"equippable"`
	DefaultDamageType int                     `json:"defaultDamageType"`
	Inventory         struct {
		TierType       model.TierType `json:"tierType"`
		BucketTypeHash uint32         `json:"bucketTypeHash"`
	} `json:"inventory"`
	InvestmentStats []model.InvestmentStat `json:"investmentStats"`
	Sockets         *struct {
		SocketEntries []model.SocketEntry `json:"socketEntries"`
	} `json:"sockets"`
}

func decodeItem(hash uint32, raw json.RawMessage) (model.Definition, error) {
	var w itemWire
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, err
	}
	def := model.ItemDefinition{
		Hash:              hash,
		Properties:        w.DisplayProperties,
		ItemType:          w.ItemType,
		TierType:          w.Inventory.TierType,
		BucketHash:        w.Inventory.BucketTypeHash,
		ClassType:         w.ClassType,
		Equippable:        w.Equippable,
		DefaultDamageType: w.DefaultDamageType,
		InvestmentStats:   w.InvestmentStats,
	}
	if w.Sockets != nil {
		def.Sockets = w.Sockets.SocketEntries
	}
	return def, nil
}

func decodeStat(hash uint32, raw json.RawMessage) (model.Definition, error) {
	var def model.StatDefinition
	if err := json.Unmarshal(raw, &def); err != nil {
		return nil, err
	}
	def.Hash = hash
	return def, nil
}

func decodeBucket(hash uint32, raw json.RawMessage) (model.Definition, error) {
	var def model.BucketDefinition
	if err := json.Unmarshal(raw, &def); err != nil {
		return nil, err
	}
	def.Hash = hash
	return def, nil
}

func decodeDamageType(hash uint32, raw json.RawMessage) (model.Definition, error) {
	var def model.DamageTypeDefinition
	if err := json.Unmarshal(raw, &def); err != nil {
		return nil, err
	}
	def.Hash = hash
	return def, nil
}

func decodeGeneric(hash uint32, raw json.RawMessage) (model.Definition, error) {
	var w struct {
		DisplayProperties model.DisplayProperties `json:"displayProperties"`
	}
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, err
	}
	body := make([]byte, len(raw))
	copy(body, raw)
	return model.GenericDefinition{Hash: hash, Properties: w.DisplayProperties, Raw: body}, nil
}
