package units

import (
	"math/big"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToTokenDecimals(t *testing.T) {
	tests := []struct {
		amount   string
		decimals int
		want     string
		wantErr  bool
	}{
		{"1", 18, "1000000000000000000", false},
		{"0.5", 2, "50", false},
		{"1.23456", 2, "123", false},
		{"42", 0, "42", false},
		{" 3.1 ", 1, "31", false},
		{"", 18, "", true},
		{"abc", 18, "", true},
		{"-1", 18, "", true},
		{".5", 1, "5", false},
		{"1e5", 18, "", true},
		{"2.5e1", 0, "", true},
		{"1e20000000", 18, "", true},
		{"+1", 18, "", true},
		{"1.2.3", 18, "", true},
		{".", 18, "", true},
		{strings.Repeat("9", MaxAmountDigits), 0, strings.Repeat("9", MaxAmountDigits), false},
		{strings.Repeat("9", MaxAmountDigits+1), 0, "", true},
	}

	for _, tt := range tests {
		got, err := ToTokenDecimals(tt.amount, tt.decimals)
		if tt.wantErr {
			assert.Error(t, err, "amount %q", tt.amount)
			continue
		}
		require.NoError(t, err, "amount %q", tt.amount)
		assert.Equal(t, tt.want, got.String(), "amount %q", tt.amount)
	}
}

func TestToTokenDecimals_Errors(t *testing.T) {
	_, err := ToTokenDecimals("-1", 18)
	assert.ErrorIs(t, err, ErrNegativeAmount)
	_, err = ToTokenDecimals("1e5", 18)
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestFromTokenDecimals(t *testing.T) {
	v, _ := new(big.Int).SetString("50000000000000000", 10)
	assert.Equal(t, "0.050000000000000000", FromTokenDecimals(v, 18))
	assert.Equal(t, "0.05", RemoveExtraZeros(FromTokenDecimals(v, 18)))
	assert.Equal(t, "7", FromTokenDecimals(big.NewInt(7), 0))
}

func TestRemoveExtraZeros(t *testing.T) {
	tests := map[string]string{
		"1.500": "1.5",
		"2.000": "2",
		"100":   "100",
		"0.010": "0.01",
		"":      "",
	}
	for in, want := range tests {
		if got := RemoveExtraZeros(in); got != want {
			t.Errorf("RemoveExtraZeros(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestFixDecimals(t *testing.T) {
	tests := []struct {
		in       string
		decimals int
		want     string
	}{
		{"1.23456", 2, "1.23"},
		{"1.2", 2, "1.2"},
		{"1.99", 0, "1"},
		{"15", 4, "15"},
		{"0.", 3, "0."},
		{"2.5e1", 0, "2.5e1"},
		{"2.5e1", 2, "2.5e1"},
	}
	for _, tt := range tests {
		if got := FixDecimals(tt.in, tt.decimals); got != tt.want {
			t.Errorf("FixDecimals(%q, %d) = %q, want %q", tt.in, tt.decimals, got, tt.want)
		}
	}
}

func TestWei(t *testing.T) {
	assert.Equal(t, "20000000000", ToWei(20, GWei).String())
	assert.Equal(t, "1500000000000000000", ToWei(1.5, Ether).String())

	gas := big.NewInt(21_000_000_000_000)
	assert.Equal(t, "0.000021", FromWei(gas, Ether))
	assert.Equal(t, "0.0000", FromWeiFixed(gas, Ether, 4))
	assert.Equal(t, "21000", FromWei(gas, GWei))
}

func TestPercentage(t *testing.T) {
	assert.Equal(t, "1005", Percentage(1.005, big.NewInt(1000)).String())
	assert.Equal(t, "2", Percentage(0.5, big.NewInt(5)).String())
}
