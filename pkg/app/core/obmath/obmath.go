package obmath

import (
	"fmt"
	"math/big"
	"sort"

	"github.com/uhyunpark/daidex/pkg/app/core/order"
)

// minVolumeScale keeps precision in GetMinVolume's intermediate product.
var minVolumeScale = new(big.Int).Exp(big.NewInt(10), big.NewInt(20), nil)

type appliedOrder struct {
	volume, volumeEth           *big.Int
	extraVolume, extraVolumeEth *big.Int
}

// findMinVolumeIdx returns the index of the order with the smallest remaining
// volume. Ties keep the first one found.
func findMinVolumeIdx(orders []*order.Order) int {
	lowest := order.RemainingVolume(orders[0])
	lowestIdx := 0
	for i := 1; i < len(orders); i++ {
		rem := order.RemainingVolume(orders[i])
		if lowest.Cmp(rem) > 0 {
			lowest = rem
			lowestIdx = i
		}
	}
	return lowestIdx
}

// applyOrder takes from o as much as needed to cover requiredVolume.
// Whatever is left of o becomes the extra (slack) volume.
func applyOrder(o *order.Order, requiredVolume *big.Int) appliedOrder {
	volume := order.RemainingVolume(o)
	volumeEth := order.RemainingVolumeEth(o)

	if requiredVolume.Cmp(volume) >= 0 {
		return appliedOrder{
			volume:         volume,
			volumeEth:      volumeEth,
			extraVolume:    new(big.Int),
			extraVolumeEth: new(big.Int),
		}
	}

	proportionalEth := new(big.Int).Mul(volumeEth, requiredVolume)
	proportionalEth.Quo(proportionalEth, volume)
	return appliedOrder{
		volume:         new(big.Int).Set(requiredVolume),
		volumeEth:      proportionalEth,
		extraVolume:    new(big.Int).Sub(volume, requiredVolume),
		extraVolumeEth: new(big.Int).Sub(volumeEth, proportionalEth),
	}
}

// GetTransactionFor selects orders, in priority order, until totalVolume is
// covered, touching at most maxOrders of them. When the cap is reached the
// selected order with the smallest remaining volume is evicted before the next
// one is considered. This is a greedy walk, not a global optimum.
//
// An empty side yields an empty transaction. A side that runs out of orders
// before totalVolume is reached yields ErrInsufficientLiquidity.
func GetTransactionFor(orders []*order.Order, maxOrders int, totalVolume *big.Int) (*TransactionInfo, error) {
	if len(orders) == 0 {
		return newTransactionInfo(new(big.Int), new(big.Int), new(big.Int), new(big.Int), nil), nil
	}
	if maxOrders < 1 {
		return nil, fmt.Errorf("obmath: max orders must be positive, got %d", maxOrders)
	}

	accVolume := new(big.Int)
	accVolumeEth := new(big.Int)
	selected := make([]*order.Order, 0, maxOrders)

	for _, o := range orders {
		if len(selected) >= maxOrders {
			idx := findMinVolumeIdx(selected)
			evicted := selected[idx]
			selected = append(selected[:idx], selected[idx+1:]...)
			accVolume.Sub(accVolume, order.RemainingVolume(evicted))
			accVolumeEth.Sub(accVolumeEth, order.RemainingVolumeEth(evicted))
		}

		gap := new(big.Int).Sub(totalVolume, accVolume)
		applied := applyOrder(o, gap)

		selected = append(selected, o)
		accVolume.Add(accVolume, applied.volume)
		accVolumeEth.Add(accVolumeEth, applied.volumeEth)

		if accVolume.Cmp(totalVolume) >= 0 {
			return newTransactionInfo(accVolume, accVolumeEth, applied.extraVolume, applied.extraVolumeEth, selected), nil
		}
	}

	return nil, fmt.Errorf("%w: cannot operate %s with %d orders (cap %d)",
		ErrInsufficientLiquidity, totalVolume, len(orders), maxOrders)
}

// GetMinVolume returns the token volume that, at the best order's price, is
// worth minVolumeEth: minVolumeEth * volume * 1e20 / volumeEth / 1e20, floored
// at each division. An empty side yields zero.
func GetMinVolume(orders []*order.Order, minVolumeEth *big.Int) *big.Int {
	if len(orders) == 0 {
		return new(big.Int)
	}
	best := orders[0]
	if best.VolumeEth.Sign() == 0 {
		return new(big.Int)
	}
	v := new(big.Int).Mul(minVolumeEth, best.Volume)
	v.Mul(v, minVolumeScale)
	v.Quo(v, best.VolumeEth)
	return v.Quo(v, minVolumeScale)
}

// GetMaxVolume sums the remaining volume of the maxOrders largest orders.
// Equal volumes keep their book order (stable sort), so the best-priced of
// them counts first.
func GetMaxVolume(orders []*order.Order, maxOrders int) *big.Int {
	remaining := make([]*big.Int, len(orders))
	for i, o := range orders {
		remaining[i] = order.RemainingVolume(o)
	}
	sort.SliceStable(remaining, func(i, j int) bool {
		return remaining[i].Cmp(remaining[j]) > 0
	})
	if maxOrders < len(remaining) {
		remaining = remaining[:max(maxOrders, 0)]
	}

	total := new(big.Int)
	for _, v := range remaining {
		total.Add(total, v)
	}
	return total
}
