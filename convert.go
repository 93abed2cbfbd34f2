package x402mint

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ComputeAssetAmount converts a USD amount into an integer token quantity in
// the token's smallest unit. Rounding is always down: the buyer never
// receives more token than the dollars cover. A result that floors to zero
// is a dust payment and is rejected, not silently dropped.
func ComputeAssetAmount(usd, usdPerToken decimal.Decimal, decimals uint8) (uint64, error) {
	if usd.Sign() <= 0 {
		return 0, fmt.Errorf("%w: usd %s", ErrInvalidAmount, usd)
	}
	if usdPerToken.Sign() <= 0 {
		return 0, fmt.Errorf("%w: price %s", ErrInvalidAmount, usdPerToken)
	}

	units := usd.Shift(int32(decimals)).Div(usdPerToken).Floor()
	if units.Sign() == 0 {
		return 0, fmt.Errorf("%w: %s USD at %s USD/token", ErrZeroQuantity, usd, usdPerToken)
	}
	big := units.BigInt()
	if !big.IsUint64() {
		return 0, fmt.Errorf("%w: %s units overflows uint64", ErrInvalidAmount, units)
	}
	return big.Uint64(), nil
}

// FmtAmount renders a smallest-unit quantity as a whole-token string.
func FmtAmount(amount uint64, decimals uint8) string {
	return decimal.NewFromUint64(amount).Shift(-int32(decimals)).String()
}

// ParseAmount parses a whole-token string into smallest units, truncating
// extra fractional digits.
func ParseAmount(s string, decimals uint8) (uint64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	if d.Sign() < 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	units := d.Shift(int32(decimals)).Floor()
	big := units.BigInt()
	if !big.IsUint64() {
		return 0, fmt.Errorf("%w: %q overflows uint64", ErrInvalidAmount, s)
	}
	return big.Uint64(), nil
}
