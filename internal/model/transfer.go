package model

// TransferRequest asks to move one instanced item between locations.
type TransferRequest struct {
	InstanceID string   `json:"itemInstanceId"`
	ItemHash   uint32   `json:"itemHash"`
	Source     Location `json:"source"`
	Target     Location `json:"target"`
}

// TransferState is the lifecycle state of one transfer.
type TransferState string

const (
	TransferIdle       TransferState = "idle"
	TransferPending    TransferState = "pending"
	TransferCommitted  TransferState = "committed"
	TransferRolledBack TransferState = "rolled_back"
)

// MoveCall is one remote relocation primitive. The remote service only
// knows vault-to-character and character-to-vault moves; CharacterID is the
// source when ToVault is set and the receiver otherwise.
type MoveCall struct {
	ItemHash       uint32 `json:"itemReferenceHash"`
	StackSize      int    `json:"stackSize"`
	ToVault        bool   `json:"transferToVault"`
	InstanceID     string `json:"itemId"`
	CharacterID    string `json:"characterId"`
	MembershipType int    `json:"membershipType"`
}
