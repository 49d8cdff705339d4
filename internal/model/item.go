package model

// InventoryItem is the hydrated, display-ready item. Instance is nil for
// stackable items that carry no individual state.
type InventoryItem struct {
	ItemHash   uint32        `json:"itemHash"`
	Quantity   int           `json:"quantity"`
	BucketHash uint32        `json:"bucketHash"`
	Owner      Location      `json:"owner"`
	Equipped   bool          `json:"isEquipped"`
	Instance   *ItemInstance `json:"instance,omitempty"`
}

// InstanceID returns the instance id, or "" for non-instanced items.
func (i InventoryItem) InstanceID() string {
	if i.Instance == nil {
		return ""
	}
	return i.Instance.ID
}

// Power returns the instanced power value and whether one is known.
func (i InventoryItem) Power() (int, bool) {
	if i.Instance == nil || i.Instance.Power <= 0 {
		return 0, false
	}
	return i.Instance.Power, true
}

// ItemInstance is the per-instance state of an instanced item.
type ItemInstance struct {
	ID             string         `json:"itemInstanceId"`
	Power          int            `json:"power,omitempty"`
	DamageType     int            `json:"damageType,omitempty"`
	DamageTypeHash uint32         `json:"damageTypeHash,omitempty"`
	CanEquip       bool           `json:"canEquip"`
	Locked         bool           `json:"locked"`
	Stats          map[uint32]int `json:"stats,omitempty"`
	Sockets        []SocketState  `json:"sockets,omitempty"`
	Objectives     []Objective    `json:"objectives,omitempty"`
	Tag            *string        `json:"userTag"`
	Note           *string        `json:"userNote"`
}
