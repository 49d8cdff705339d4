package bungie

import (
	"sort"
	"strconv"

	"guardian-inventory/internal/model"
)

// component wraps every profile component: {"data": ...}.
type component[T any] struct {
	Data T `json:"data"`
}

type itemList struct {
	Items []model.RawItem `json:"items"`
}

type statValue struct {
	StatHash uint32 `json:"statHash"`
	Value    int    `json:"value"`
}

type instanceStats struct {
	Stats map[string]statValue `json:"stats"`
}

type instanceSockets struct {
	Sockets []model.SocketState `json:"sockets"`
}

type instanceObjectives struct {
	Objectives []model.Objective `json:"objectives"`
}

type primaryStat struct {
	Value int `json:"value"`
}

type instanceWire struct {
	model.InstanceComponent
	PrimaryStat *primaryStat `json:"primaryStat"`
}

type profileWire struct {
	Profile component[struct {
		UserInfo struct {
			MembershipType int    `json:"membershipType"`
			MembershipID   string `json:"membershipId"`
		} `json:"userInfo"`
	}] `json:"profile"`
	ProfileInventory     component[itemList]                   `json:"profileInventory"`
	Characters           component[map[string]model.Character] `json:"characters"`
	CharacterInventories component[map[string]itemList]        `json:"characterInventories"`
	CharacterEquipment   component[map[string]itemList]        `json:"characterEquipment"`
	ProfileProgression   component[struct {
		SeasonalArtifact struct {
			PowerBonus int `json:"powerBonus"`
		} `json:"seasonalArtifact"`
	}] `json:"profileProgression"`
	ItemComponents struct {
		Instances  component[map[string]instanceWire]       `json:"instances"`
		Stats      component[map[string]instanceStats]      `json:"stats"`
		Sockets    component[map[string]instanceSockets]    `json:"sockets"`
		Objectives component[map[string]instanceObjectives] `json:"objectives"`
	} `json:"itemComponents"`
}

// snapshot converts the wire profile. Characters are sorted by id so that
// hydration order does not depend on JSON object order.
func (p *profileWire) snapshot() *model.Snapshot {
	snap := &model.Snapshot{
		MembershipType: p.Profile.Data.UserInfo.MembershipType,
		MembershipID:   p.Profile.Data.UserInfo.MembershipID,
		Vault:          p.ProfileInventory.Data.Items,
		Inventories:    make(map[string][]model.RawItem, len(p.CharacterInventories.Data)),
		Equipment:      make(map[string][]model.RawItem, len(p.CharacterEquipment.Data)),
		Instances:      make(map[string]model.InstanceComponent, len(p.ItemComponents.Instances.Data)),
		Stats:          make(map[string]map[uint32]int, len(p.ItemComponents.Stats.Data)),
		Sockets:        make(map[string][]model.SocketState, len(p.ItemComponents.Sockets.Data)),
		Objectives:     make(map[string][]model.Objective, len(p.ItemComponents.Objectives.Data)),
		ArtifactPower:  p.ProfileProgression.Data.SeasonalArtifact.PowerBonus,
	}

	for id, c := range p.Characters.Data {
		if c.CharacterID == "" {
			c.CharacterID = id
		}
		snap.Characters = append(snap.Characters, c)
	}
	sort.Slice(snap.Characters, func(i, j int) bool {
		return characterLess(snap.Characters[i].CharacterID, snap.Characters[j].CharacterID)
	})

	for id, list := range p.CharacterInventories.Data {
		snap.Inventories[id] = list.Items
	}
	for id, list := range p.CharacterEquipment.Data {
		snap.Equipment[id] = list.Items
	}
	for id, inst := range p.ItemComponents.Instances.Data {
		c := inst.InstanceComponent
		if c.Power == 0 && inst.PrimaryStat != nil {
			c.Power = inst.PrimaryStat.Value
		}
		snap.Instances[id] = c
	}
	for id, s := range p.ItemComponents.Stats.Data {
		stats := make(map[uint32]int, len(s.Stats))
		for _, v := range s.Stats {
			stats[v.StatHash] = v.Value
		}
		snap.Stats[id] = stats
	}
	for id, s := range p.ItemComponents.Sockets.Data {
		snap.Sockets[id] = s.Sockets
	}
	for id, o := range p.ItemComponents.Objectives.Data {
		snap.Objectives[id] = o.Objectives
	}
	return snap
}

// characterLess orders numeric ids numerically and falls back to string
// order.
func characterLess(a, b string) bool {
	ai, aerr := strconv.ParseUint(a, 10, 64)
	bi, berr := strconv.ParseUint(b, 10, 64)
	if aerr == nil && berr == nil {
		return ai < bi
	}
	return a < b
}

type versionWire struct {
	Version string `json:"version"`
}

// platformWire is the status envelope the platform returns for actions.
type platformWire struct {
	ErrorCode   int    `json:"ErrorCode"`
	ErrorStatus string `json:"ErrorStatus"`
	Message     string `json:"Message"`
}
