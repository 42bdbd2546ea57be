package obmath

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/uhyunpark/daidex/pkg/app/core/order"
)

var (
	// ErrInsufficientLiquidity means the side cannot service the requested volume at all.
	ErrInsufficientLiquidity = errors.New("insufficient liquidity")
	// ErrInvalidVolume means a volume lies outside the slack band of a transaction.
	ErrInvalidVolume = errors.New("invalid volume for transaction")
)

const (
	// GasPerOrder is the fixed gas estimate charged for every order a trade touches.
	GasPerOrder = 500000

	upperBoundNum = 105
	upperBoundDen = 100
)

// TransactionInfo is one candidate trade built from a selected list of orders.
//
// It is a value: ChangeVolume returns a new TransactionInfo and leaves the
// receiver untouched, so a state snapshot holding it can be shared freely.
type TransactionInfo struct {
	// RequiredVolume is the minimum volume for the trade with the selected orders
	RequiredVolume *big.Int
	// RequiredVolumeEth is the counter-value of RequiredVolume
	RequiredVolumeEth *big.Int

	// ExtraVolume is the volume left on the last selected order (the slack band)
	ExtraVolume    *big.Int
	ExtraVolumeEth *big.Int

	// UsedExtraVolume is the slack already dialed in, in [0, ExtraVolume]
	UsedExtraVolume *big.Int

	// Orders are the selected orders, in selection order
	Orders []*order.Order
}

func newTransactionInfo(reqVol, reqEth, extraVol, extraEth *big.Int, orders []*order.Order) *TransactionInfo {
	return &TransactionInfo{
		RequiredVolume:    reqVol,
		RequiredVolumeEth: reqEth,
		ExtraVolume:       extraVol,
		ExtraVolumeEth:    extraEth,
		UsedExtraVolume:   new(big.Int),
		Orders:            orders,
	}
}

// RequiredGas is GasPerOrder for every selected order.
func (t *TransactionInfo) RequiredGas() *big.Int {
	return new(big.Int).Mul(big.NewInt(GasPerOrder), big.NewInt(int64(len(t.Orders))))
}

// CurrentVolume is RequiredVolume + UsedExtraVolume.
func (t *TransactionInfo) CurrentVolume() *big.Int {
	return new(big.Int).Add(t.RequiredVolume, t.UsedExtraVolume)
}

// CurrentVolumeEth interpolates linearly inside the slack band.
func (t *TransactionInfo) CurrentVolumeEth() *big.Int {
	if t.ExtraVolume.Sign() == 0 {
		return new(big.Int).Set(t.RequiredVolumeEth)
	}
	extra := new(big.Int).Mul(t.ExtraVolumeEth, t.UsedExtraVolume)
	extra.Quo(extra, t.ExtraVolume)
	return extra.Add(extra, t.RequiredVolumeEth)
}

// CurrentVolumeEthUpperBound is CurrentVolumeEth plus the 5% slippage buffer sent on-chain.
func (t *TransactionInfo) CurrentVolumeEthUpperBound() *big.Int {
	v := t.CurrentVolumeEth()
	v.Mul(v, big.NewInt(upperBoundNum))
	return v.Quo(v, big.NewInt(upperBoundDen))
}

func (t *TransactionInfo) MaxAvailableVolume() *big.Int {
	return new(big.Int).Add(t.RequiredVolume, t.ExtraVolume)
}

func (t *TransactionInfo) MaxAvailableVolumeEth() *big.Int {
	return new(big.Int).Add(t.RequiredVolumeEth, t.ExtraVolumeEth)
}

// CanHandle reports whether volume is serviceable by the selected orders,
// i.e. RequiredVolume <= volume <= RequiredVolume + ExtraVolume.
// The upper bound is in token units: ExtraVolume, not the counter-value
// ExtraVolumeEth, so the band is exactly the one ChangeVolume can reach.
func (t *TransactionInfo) CanHandle(volume *big.Int) bool {
	if volume == nil {
		return false
	}
	return volume.Cmp(t.RequiredVolume) >= 0 && volume.Cmp(t.MaxAvailableVolume()) <= 0
}

// ChangeVolume returns a copy of t with UsedExtraVolume set so that
// CurrentVolume equals newVolume. The selected orders are shared, not copied.
func (t *TransactionInfo) ChangeVolume(newVolume *big.Int) (*TransactionInfo, error) {
	if !t.CanHandle(newVolume) {
		return nil, fmt.Errorf("%w: %s not in [%s, %s]", ErrInvalidVolume,
			newVolume, t.RequiredVolume, t.MaxAvailableVolume())
	}
	cp := *t
	cp.UsedExtraVolume = new(big.Int).Sub(newVolume, t.RequiredVolume)
	return &cp, nil
}

// OrderParameters concatenates the settlement payload of every selected order,
// in selection order and without separators.
func (t *TransactionInfo) OrderParameters() string {
	var b strings.Builder
	for _, o := range t.Orders {
		b.WriteString(o.OrdersData)
	}
	return b.String()
}

// OrderIDs lists the ids of the selected orders.
func (t *TransactionInfo) OrderIDs() []string {
	ids := make([]string, len(t.Orders))
	for i, o := range t.Orders {
		ids[i] = o.ID
	}
	return ids
}
