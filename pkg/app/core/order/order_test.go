package order

import (
	"errors"
	"math/big"
	"testing"
)

func TestRemainingVolume(t *testing.T) {
	tests := []struct {
		name      string
		volume    int64
		volumeEth int64
		filled    int64
		wantVol   int64
		wantEth   int64
	}{
		{"unfilled", 100, 10, 0, 100, 10},
		{"half filled", 100, 10, 50, 50, 5},
		{"floors eth", 3, 10, 1, 2, 6},
		{"fully filled", 100, 10, 100, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := New("o1", false, big.NewInt(tt.volume), big.NewInt(tt.volumeEth), "").
				WithFilled(big.NewInt(tt.filled))

			if got := RemainingVolume(o); got.Int64() != tt.wantVol {
				t.Errorf("RemainingVolume() = %s, want %d", got, tt.wantVol)
			}
			if got := RemainingVolumeEth(o); got.Int64() != tt.wantEth {
				t.Errorf("RemainingVolumeEth() = %s, want %d", got, tt.wantEth)
			}
		})
	}
}

func TestRemainingVolume_NilFilled(t *testing.T) {
	o := &Order{ID: "o1", Volume: big.NewInt(7), VolumeEth: big.NewInt(3)}
	if got := RemainingVolume(o); got.Int64() != 7 {
		t.Errorf("RemainingVolume() = %s, want 7", got)
	}
}

func TestRemainingVolume_PanicsWhenOverfilled(t *testing.T) {
	o := New("bad", true, big.NewInt(10), big.NewInt(1), "").WithFilled(big.NewInt(11))

	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("expected panic for overfilled order")
		}
		err, ok := r.(error)
		if !ok || !errors.Is(err, ErrNegativeRemaining) {
			t.Errorf("panic value = %v, want ErrNegativeRemaining", r)
		}
	}()
	RemainingVolume(o)
}

func TestWithFilled_DoesNotMutate(t *testing.T) {
	o := New("o1", false, big.NewInt(100), big.NewInt(10), "0xab")
	filled := o.WithFilled(big.NewInt(40))

	if o.FilledVolume.Sign() != 0 {
		t.Errorf("original filled = %s, want 0", o.FilledVolume)
	}
	if filled.ID != o.ID || filled.OrdersData != o.OrdersData {
		t.Errorf("copy lost identity: %+v", filled)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		order   *Order
		wantErr bool
	}{
		{"valid", New("a", true, big.NewInt(10), big.NewInt(1), ""), false},
		{"missing id", New("", true, big.NewInt(10), big.NewInt(1), ""), true},
		{"missing volume", &Order{ID: "a", VolumeEth: big.NewInt(1)}, true},
		{"negative volume", New("a", true, big.NewInt(-1), big.NewInt(1), ""), true},
		{"overfilled", New("a", true, big.NewInt(10), big.NewInt(1), "").WithFilled(big.NewInt(11)), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.order.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
