// Package feed delivers order-book events for one token at a time.
package feed

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/uhyunpark/daidex/pkg/app/core/order"
	"github.com/uhyunpark/daidex/pkg/app/core/orderbook"
)

// Emit receives events in order. It must not block for long.
type Emit func(orderbook.Event)

// Feed streams token's book. The first event is always a Snapshot; every
// event carries token. Subscribe blocks until ctx ends or the feed fails.
type Feed interface {
	Subscribe(ctx context.Context, token common.Address, emit Emit) error
}

// Diff turns two consecutive snapshots of a token into incremental events.
// When the new list cannot be reached by deletes, in-place updates and
// appends (an order was inserted mid-book or reordered), it returns a single
// Snapshot instead, since Add always appends.
func Diff(token common.Address, prevBuys, prevSells, buys, sells []*order.Order) []orderbook.Event {
	buyEvents, okB := diffSide(token, false, prevBuys, buys)
	sellEvents, okS := diffSide(token, true, prevSells, sells)
	if !okB || !okS {
		return []orderbook.Event{orderbook.SnapshotEvent(token, buys, sells)}
	}
	return append(buyEvents, sellEvents...)
}

func diffSide(token common.Address, isSell bool, prev, next []*order.Order) ([]orderbook.Event, bool) {
	nextByID := make(map[string]*order.Order, len(next))
	for _, o := range next {
		nextByID[o.ID] = o
	}

	var events []orderbook.Event
	kept := make([]string, 0, len(prev))
	prevIDs := make(map[string]struct{}, len(prev))
	for _, o := range prev {
		prevIDs[o.ID] = struct{}{}
		n, ok := nextByID[o.ID]
		if !ok {
			events = append(events, orderbook.DeleteEvent(token, isSell, o.ID))
			continue
		}
		kept = append(kept, o.ID)
		if !sameOrder(o, n) {
			events = append(events, orderbook.UpdateEvent(token, n))
		}
	}

	// survivors must lead next in their old order, new orders trail
	if len(next) < len(kept) {
		return nil, false
	}
	for i, id := range kept {
		if next[i].ID != id {
			return nil, false
		}
	}
	for _, o := range next[len(kept):] {
		if _, seen := prevIDs[o.ID]; seen {
			return nil, false
		}
		events = append(events, orderbook.AddEvent(token, o))
	}
	return events, true
}

func sameOrder(a, b *order.Order) bool {
	return a.IsSell == b.IsSell &&
		a.OrdersData == b.OrdersData &&
		cmpBig(a.Volume, b.Volume) &&
		cmpBig(a.VolumeEth, b.VolumeEth) &&
		cmpBig(a.FilledVolume, b.FilledVolume)
}

// cmpBig treats nil as zero.
func cmpBig(a, b *big.Int) bool {
	if a == nil {
		a = new(big.Int)
	}
	if b == nil {
		b = new(big.Int)
	}
	return a.Cmp(b) == 0
}
