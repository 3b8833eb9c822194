package wallet

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// IsValidAddress reports whether s is a 0x-prefixed, 40-hex-digit
// account address. Addresses are treated as opaque validated strings
// and never decoded.
func IsValidAddress(s string) bool {
	return strings.HasPrefix(s, "0x") && common.IsHexAddress(s)
}

// IsValidAmount reports whether s is a base-10 unsigned integer string:
// a smallest-unit amount. No sign, no decimal point, no empty string.
func IsValidAmount(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
