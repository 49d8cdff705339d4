package model

import (
	"encoding/json"
	"fmt"
	"strings"
)

// LocationKind discriminates the two places an item can live.
type LocationKind int

const (
	LocationVault LocationKind = iota
	LocationCharacter
)

// vaultID is the wire/string form of the vault location.
const vaultID = "vault"

// Location is either the account-wide vault or one character.
type Location struct {
	Kind        LocationKind
	CharacterID string
}

// Vault returns the vault location.
func Vault() Location {
	return Location{Kind: LocationVault}
}

// OnCharacter returns the location of the given character.
func OnCharacter(characterID string) Location {
	return Location{Kind: LocationCharacter, CharacterID: characterID}
}

// IsVault reports whether l is the vault.
func (l Location) IsVault() bool {
	return l.Kind == LocationVault
}

// String returns "vault" or the character id.
func (l Location) String() string {
	if l.IsVault() {
		return vaultID
	}
	return l.CharacterID
}

// ParseLocation parses "vault" or a character id.
func ParseLocation(s string) (Location, error) {
	s = strings.TrimSpace(s)
	switch {
	case s == "":
		return Location{}, fmt.Errorf("location must not be empty")
	case strings.EqualFold(s, vaultID):
		return Vault(), nil
	default:
		return OnCharacter(s), nil
	}
}

// MarshalJSON encodes the location as its string form.
func (l Location) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.String())
}

// UnmarshalJSON decodes "vault" or a character id.
func (l *Location) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseLocation(s)
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}
