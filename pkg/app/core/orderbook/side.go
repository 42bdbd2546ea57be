package orderbook

import (
	"math/big"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/crypto/sha3"

	"github.com/uhyunpark/daidex/pkg/app/core/obmath"
	"github.com/uhyunpark/daidex/pkg/app/core/order"
)

// sideSeq hands out side versions. Versions are unique per process, so two
// sides compare equal by version only if they are the same value.
var sideSeq atomic.Uint64

// Side is one immutable side of the book: orders in priority order (best price
// first, as the feed sends them) plus the bounds derived from them.
type Side struct {
	orders    []*order.Order
	maxOrders int
	minVolume *big.Int
	maxVolume *big.Int
	version   uint64
}

// NewSide builds a side and computes its bounds from scratch.
// The slice is copied; the orders themselves are shared.
func NewSide(cfg Config, orders []*order.Order) *Side {
	cp := make([]*order.Order, len(orders))
	copy(cp, orders)
	return &Side{
		orders:    cp,
		maxOrders: cfg.MaxTransactionOrders,
		minVolume: obmath.GetMinVolume(cp, cfg.MinVolumeEth),
		maxVolume: obmath.GetMaxVolume(cp, cfg.MaxTransactionOrders),
		version:   sideSeq.Add(1),
	}
}

// Orders returns the side's orders. Callers must not modify the slice.
func (s *Side) Orders() []*order.Order { return s.orders }

func (s *Side) Len() int { return len(s.orders) }

func (s *Side) MinVolume() *big.Int { return new(big.Int).Set(s.minVolume) }

func (s *Side) MaxVolume() *big.Int { return new(big.Int).Set(s.maxVolume) }

// Version changes every time a side is rebuilt. A nil side has version 0.
func (s *Side) Version() uint64 {
	if s == nil {
		return 0
	}
	return s.version
}

// Digest hashes the side's content. Two sides built from the same orders
// share a digest even though their versions differ.
func (s *Side) Digest() common.Hash {
	if s == nil {
		return DigestOf(nil)
	}
	return DigestOf(s.orders)
}

// DigestOf is the Keccak-256 of orders in sequence. Token is not hashed.
func DigestOf(orders []*order.Order) common.Hash {
	h := sha3.NewLegacyKeccak256()
	for _, o := range orders {
		h.Write([]byte(o.ID))
		h.Write([]byte{0})
		h.Write(o.Volume.Bytes())
		h.Write([]byte{0})
		h.Write(o.VolumeEth.Bytes())
		h.Write([]byte{0})
		if o.FilledVolume != nil {
			h.Write(o.FilledVolume.Bytes())
		}
		h.Write([]byte{0})
		h.Write([]byte(o.OrdersData))
		h.Write([]byte{1})
	}
	var out common.Hash
	h.Sum(out[:0])
	return out
}

// IsValidVolume reports whether minVolume <= volume <= maxVolume.
func (s *Side) IsValidVolume(volume *big.Int) bool {
	return volume.Cmp(s.minVolume) >= 0 && volume.Cmp(s.maxVolume) <= 0
}

// ComputeTransaction runs the sizing algorithm on this side.
func (s *Side) ComputeTransaction(volume *big.Int) (*obmath.TransactionInfo, error) {
	return obmath.GetTransactionFor(s.orders, s.maxOrders, volume)
}

func (s *Side) indexOf(id string) int {
	for i, o := range s.orders {
		if o.ID == id {
			return i
		}
	}
	return -1
}
