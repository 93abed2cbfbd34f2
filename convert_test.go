package x402mint

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestComputeAssetAmountExact(t *testing.T) {
	// $1.00 at $0.0001/token with 9 decimals: 10000 whole tokens exactly
	got, err := ComputeAssetAmount(d("1.00"), d("0.0001"), 9)
	require.NoError(t, err)
	require.Equal(t, uint64(10_000_000_000_000), got)

	// $10 at $1/token, 6 decimals
	got, err = ComputeAssetAmount(d("10"), d("1"), 6)
	require.NoError(t, err)
	require.Equal(t, uint64(10_000_000), got)
}

func TestComputeAssetAmountFloors(t *testing.T) {
	// $1 at $3/token with 9 decimals: 0.333... tokens, floored
	got, err := ComputeAssetAmount(d("1"), d("3"), 9)
	require.NoError(t, err)
	require.Equal(t, uint64(333_333_333), got)

	// never rounds up
	got, err = ComputeAssetAmount(d("0.9999999"), d("1"), 6)
	require.NoError(t, err)
	require.Equal(t, uint64(999_999), got)
}

func TestComputeAssetAmountRejectsDust(t *testing.T) {
	_, err := ComputeAssetAmount(d("0.000001"), d("1"), 3)
	require.ErrorIs(t, err, ErrZeroQuantity)

	_, err = ComputeAssetAmount(d("0.01"), d("65000"), 2)
	require.ErrorIs(t, err, ErrZeroQuantity)
}

func TestComputeAssetAmountRejectsInvalidInputs(t *testing.T) {
	for _, tc := range []struct{ usd, price string }{
		{"0", "1"},
		{"-5", "1"},
		{"10", "0"},
		{"10", "-0.5"},
	} {
		_, err := ComputeAssetAmount(d(tc.usd), d(tc.price), 6)
		require.ErrorIs(t, err, ErrInvalidAmount, "usd=%s price=%s", tc.usd, tc.price)
	}
}

func TestComputeAssetAmountOverflow(t *testing.T) {
	_, err := ComputeAssetAmount(d("100000000000000000000"), d("0.000000001"), 9)
	require.ErrorIs(t, err, ErrInvalidAmount)
}

func TestComputeAssetAmountMonotonic(t *testing.T) {
	price := d("0.37")
	var prev uint64
	for _, usd := range []string{"0.01", "0.5", "1", "2.75", "100", "9999.99"} {
		got, err := ComputeAssetAmount(d(usd), price, 6)
		require.NoError(t, err)
		require.GreaterOrEqual(t, got, prev, "non-decreasing in usd")
		prev = got
	}

	usd := d("250")
	prev = 0
	for i, p := range []string{"1250", "100", "3.5", "0.02", "0.0001"} {
		got, err := ComputeAssetAmount(usd, d(p), 6)
		require.NoError(t, err)
		if i > 0 {
			require.GreaterOrEqual(t, got, prev, "non-increasing in price")
		}
		prev = got
	}
}

func TestFmtAmount(t *testing.T) {
	require.Equal(t, "1.5", FmtAmount(1_500_000, 6))
	require.Equal(t, "0.000001", FmtAmount(1, 6))
	require.Equal(t, "42", FmtAmount(42_000_000_000, 9))
}

func TestParseAmount(t *testing.T) {
	got, err := ParseAmount("1.5", 6)
	require.NoError(t, err)
	require.Equal(t, uint64(1_500_000), got)

	// extra fractional digits truncate, matching the conversion policy
	got, err = ParseAmount("0.1234567899", 6)
	require.NoError(t, err)
	require.Equal(t, uint64(123_456), got)

	_, err = ParseAmount("-1", 6)
	require.ErrorIs(t, err, ErrInvalidAmount)

	_, err = ParseAmount("nope", 6)
	require.ErrorIs(t, err, ErrInvalidAmount)
}
