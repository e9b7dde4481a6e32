package sources

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/systmms/secretmgr/pkg/secrets"
)

// ParseMaterial parses hex secret material for id. An optional 0x prefix
// and surrounding whitespace are accepted.
func ParseMaterial(id secrets.ID, raw string) (*big.Int, error) {
	info, ok := id.Info()
	if !ok {
		return nil, fmt.Errorf("unknown secret %s", id)
	}

	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if s == "" {
		return nil, fmt.Errorf("value of %s is empty", info.Name)
	}
	v, ok := new(big.Int).SetString(s, 16)
	if !ok || v.Sign() < 0 {
		return nil, fmt.Errorf("value of %s is not a hexadecimal number", info.Name)
	}
	if v.Sign() == 0 {
		return nil, fmt.Errorf("value of %s is zero", info.Name)
	}
	if v.BitLen() > info.Bits {
		return nil, fmt.Errorf("value of %s is %d bits wide, at most %d allowed", info.Name, v.BitLen(), info.Bits)
	}
	return v, nil
}
