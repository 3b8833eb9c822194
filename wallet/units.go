package wallet

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// DefaultDecimals is the native-currency precision (wei per ether).
const DefaultDecimals = 18

// WeiToDisplay converts a smallest-unit amount string into its
// display-unit form. Arbitrary-precision arithmetic, so no value is
// lost at any supported precision.
func WeiToDisplay(amountWei string, decimals int32) (string, error) {
	if !IsValidAmount(amountWei) {
		return "", fmt.Errorf("invalid smallest-unit amount %q", amountWei)
	}

	d, err := decimal.NewFromString(amountWei)
	if err != nil {
		return "", fmt.Errorf("invalid smallest-unit amount %q: %w", amountWei, err)
	}

	return d.Shift(-decimals).String(), nil
}

// DisplayToWei converts a display-unit amount into its smallest-unit
// integer string. Digits beyond the given precision are truncated.
func DisplayToWei(amount string, decimals int32) (string, error) {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return "", fmt.Errorf("invalid display amount %q: %w", amount, err)
	}
	if d.IsNegative() {
		return "", fmt.Errorf("negative amount %q", amount)
	}

	return d.Shift(decimals).Truncate(0).String(), nil
}

// ShortenAddress renders an address as "0x1234...cdef" for display.
// Invalid addresses come back unchanged.
func ShortenAddress(address string) string {
	if !IsValidAddress(address) {
		return address
	}
	return address[:6] + "..." + address[len(address)-4:]
}
