package secrets

import (
	"fmt"
	"strings"
)

// ID identifies one secret slot. The set is fixed at compile time.
type ID uint32

const (
	// TOTPMasterKey encrypts per-account TOTP seeds.
	TOTPMasterKey ID = iota

	// only add new identifiers right above this line
	NumSecrets
)

// Role names the server process that owns a secret. Only the owner may
// transition dependent data when the secret's value changes; other
// processes must see the value the owner recorded.
type Role string

const (
	RoleAuth  Role = "auth"
	RoleWorld Role = "world"
)

// Info is the static description of an ID.
type Info struct {
	// Name is the configuration key of the current value.
	Name string
	// OldName is the configuration key of the previous value during rotation.
	OldName string
	// Bits bounds the width of the secret.
	Bits int
	// Owner is the process role allowed to transition the secret.
	Owner Role
}

var infos = [NumSecrets]Info{
	TOTPMasterKey: {
		Name:    "totp_master_key",
		OldName: "totp_old_master_key",
		Bits:    128,
		Owner:   RoleAuth,
	},
}

// Valid reports whether id is one of the compiled-in identifiers.
func (id ID) Valid() bool {
	return id < NumSecrets
}

// Info returns the static description of id.
func (id ID) Info() (Info, bool) {
	if !id.Valid() {
		return Info{}, false
	}
	return infos[id], true
}

func (id ID) String() string {
	if !id.Valid() {
		return fmt.Sprintf("secret(%d)", uint32(id))
	}
	return infos[id].Name
}

// IDs lists every identifier in enumeration order.
func IDs() []ID {
	ids := make([]ID, 0, NumSecrets)
	for id := ID(0); id < NumSecrets; id++ {
		ids = append(ids, id)
	}
	return ids
}

// ParseID maps a configuration key back to its ID.
func ParseID(name string) (ID, error) {
	name = strings.TrimSpace(strings.ToLower(name))
	for id := ID(0); id < NumSecrets; id++ {
		if infos[id].Name == name {
			return id, nil
		}
	}
	return 0, fmt.Errorf("unknown secret %q", name)
}
