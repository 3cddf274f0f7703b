package units

import (
	"math/big"
	"testing"
	"time"

	"github.com/nando-os/ghost-wallet/errno"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToBaseUnits(t *testing.T) {
	tests := []struct {
		amount   string
		decimals uint8
		want     string
	}{
		{"1", 18, "1000000000000000000"},
		{"0.001", 18, "1000000000000000"},
		{"0.1", 18, "100000000000000000"},
		{"123.456789", 6, "123456789"},
		{"0.00000001", 8, "1"},
		{"42", 0, "42"},
		{"1.50", 1, "15"},
		{"0", 18, "0"},
	}
	for _, tt := range tests {
		t.Run(tt.amount, func(t *testing.T) {
			got, err := ToBaseUnits(decimal.RequireFromString(tt.amount), tt.decimals)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestToBaseUnits_Invalid(t *testing.T) {
	_, err := ToBaseUnits(decimal.RequireFromString("-1"), 18)
	assert.ErrorIs(t, err, errno.ErrInvalidAmount)

	// one digit more than the token can hold
	_, err = ToBaseUnits(decimal.RequireFromString("0.1234567"), 6)
	assert.ErrorIs(t, err, errno.ErrInvalidAmount)

	_, err = ToBaseUnits(decimal.RequireFromString("0.5"), 0)
	assert.ErrorIs(t, err, errno.ErrInvalidAmount)

	huge := decimal.NewFromBigInt(new(big.Int).Lsh(big.NewInt(1), 256), 0)
	_, err = ToBaseUnits(huge, 0)
	assert.ErrorIs(t, err, errno.ErrInvalidAmount)

	// rejected from the exponent alone, without building the integer
	for _, s := range []string{"1e100000000", "1e-100000000", "1e60", "1e-19"} {
		done := make(chan error, 1)
		go func() {
			_, err := ToWei(decimal.RequireFromString(s))
			done <- err
		}()
		select {
		case err := <-done:
			assert.ErrorIs(t, err, errno.ErrInvalidAmount, s)
		case <-time.After(2 * time.Second):
			t.Fatalf("ToWei(%s) did not return", s)
		}
	}
}

func TestToBaseUnits_Bounds(t *testing.T) {
	max := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))
	got, err := ToBaseUnits(decimal.NewFromBigInt(max, 0), 0)
	require.NoError(t, err)
	assert.Equal(t, max, got)

	// 78 digits but above 2^256-1
	_, err = ToBaseUnits(decimal.RequireFromString("2e77"), 0)
	assert.ErrorIs(t, err, errno.ErrInvalidAmount)

	// trailing zeros in the mantissa still count as an exact amount
	got, err = ToBaseUnits(decimal.New(1000, -20), 18)
	require.NoError(t, err)
	assert.Equal(t, "10", got.String())

	got, err = ToBaseUnits(decimal.New(0, -1000000000), 18)
	require.NoError(t, err)
	assert.Equal(t, "0", got.String())
}

func TestRoundTrip(t *testing.T) {
	amounts := []string{"0", "1", "0.5", "0.000001", "999999.123456", "12345678.9", "0.00000001"}
	for _, d := range []uint8{0, 6, 8, 18} {
		for _, s := range amounts {
			x := decimal.RequireFromString(s)
			if x.Exponent() < -int32(d) {
				// not representable at this scale
				continue
			}
			raw, err := ToBaseUnits(x, d)
			require.NoError(t, err, "amount %s decimals %d", s, d)
			back := FromBaseUnits(raw, d)
			assert.True(t, back.Equal(x), "round trip %s at %d decimals gave %s", s, d, back)
		}
	}
}

func TestHighDecimalPrecision(t *testing.T) {
	// 0.1 + 0.2 style drift must not appear at 18 decimals.
	raw, err := ToWei(decimal.RequireFromString("0.3"))
	require.NoError(t, err)
	assert.Equal(t, "300000000000000000", raw.String())

	raw, err = ToWei(decimal.RequireFromString("1.000000000000000001"))
	require.NoError(t, err)
	assert.Equal(t, "1000000000000000001", raw.String())
	assert.Equal(t, "1.000000000000000001", FromWei(raw).String())
}

func TestParseAmount(t *testing.T) {
	d, err := ParseAmount(" 0.25 ")
	require.NoError(t, err)
	assert.Equal(t, "0.25", d.String())

	zero, err := ParseAmount("0e-1000000000")
	require.NoError(t, err)
	assert.True(t, zero.IsZero())

	for _, bad := range []string{"", "abc", "-0.1", "1,5", "1e100000000", "1e-100000000"} {
		_, err := ParseAmount(bad)
		assert.ErrorIs(t, err, errno.ErrInvalidAmount, bad)
	}
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "1.5", Format(big.NewInt(1500000), 6))
	assert.Equal(t, "0", Format(nil, 18))
}
