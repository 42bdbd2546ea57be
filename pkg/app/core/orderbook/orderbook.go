package orderbook

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/params"

	"github.com/uhyunpark/daidex/pkg/app/core/obmath"
	"github.com/uhyunpark/daidex/pkg/app/core/order"
)

// ErrStaleEvent is returned for events addressed to another token's book.
var ErrStaleEvent = errors.New("orderbook: event for another token")

// ErrSideMismatch is returned for an order listed on the wrong side.
var ErrSideMismatch = errors.New("orderbook: order on wrong side")

// Config bounds what a single transaction may do.
type Config struct {
	// MinVolumeEth is the smallest trade, in wei
	MinVolumeEth *big.Int
	// MaxTransactionOrders caps how many orders one trade may touch
	MaxTransactionOrders int
}

// DefaultConfig is 0.001 ether minimum and two orders per trade.
func DefaultConfig() Config {
	return Config{
		MinVolumeEth:         big.NewInt(params.Ether / 1000),
		MaxTransactionOrders: 2,
	}
}

// Operation is what the user wants to do with the token.
type Operation uint8

const (
	Buy Operation = iota + 1
	Sell
)

func (op Operation) String() string {
	switch op {
	case Buy:
		return "buy"
	case Sell:
		return "sell"
	default:
		return "none"
	}
}

func ParseOperation(s string) (Operation, error) {
	switch s {
	case "buy":
		return Buy, nil
	case "sell":
		return Sell, nil
	}
	return 0, fmt.Errorf("unknown operation %q", s)
}

// OrderBook is an immutable pair of sides for one token. Apply never modifies
// the receiver; earlier books stay valid snapshots.
type OrderBook struct {
	cfg   Config
	Token common.Address
	Buys  *Side
	Sells *Side
}

// New returns an empty book for token.
func New(cfg Config, token common.Address) *OrderBook {
	return &OrderBook{
		cfg:   cfg,
		Token: token,
		Buys:  NewSide(cfg, nil),
		Sells: NewSide(cfg, nil),
	}
}

func (ob *OrderBook) Config() Config { return ob.cfg }

// Side returns the side an operation trades against: buying consumes sells.
func (ob *OrderBook) Side(op Operation) *Side {
	if ob == nil {
		return nil
	}
	switch op {
	case Buy:
		return ob.Sells
	case Sell:
		return ob.Buys
	}
	return nil
}

// Apply returns the book with ev applied. Only the affected side is rebuilt.
// Update and Delete of an unknown id return the receiver unchanged.
func (ob *OrderBook) Apply(ev Event) (*OrderBook, error) {
	if ev.Token != ob.Token {
		return nil, fmt.Errorf("%w: book %s, event %s", ErrStaleEvent, ob.Token.Hex(), ev.Token.Hex())
	}
	if err := ev.Validate(); err != nil {
		return nil, err
	}

	if ev.Kind == Snapshot {
		return &OrderBook{
			cfg:   ob.cfg,
			Token: ob.Token,
			Buys:  NewSide(ob.cfg, ev.Buys),
			Sells: NewSide(ob.cfg, ev.Sells),
		}, nil
	}

	side := ob.Buys
	if ev.IsSell {
		side = ob.Sells
	}

	var next *Side
	switch ev.Kind {
	case Add:
		if i := side.indexOf(ev.Order.ID); i >= 0 {
			next = NewSide(ob.cfg, replaceAt(side.orders, i, ev.Order))
		} else {
			orders := make([]*order.Order, 0, len(side.orders)+1)
			orders = append(orders, side.orders...)
			next = NewSide(ob.cfg, append(orders, ev.Order))
		}
	case Update:
		i := side.indexOf(ev.Order.ID)
		if i < 0 {
			return ob, nil
		}
		next = NewSide(ob.cfg, replaceAt(side.orders, i, ev.Order))
	case Delete:
		i := side.indexOf(ev.OrderID)
		if i < 0 {
			return ob, nil
		}
		orders := make([]*order.Order, 0, len(side.orders)-1)
		orders = append(orders, side.orders[:i]...)
		next = NewSide(ob.cfg, append(orders, side.orders[i+1:]...))
	}

	cp := *ob
	if ev.IsSell {
		cp.Sells = next
	} else {
		cp.Buys = next
	}
	return &cp, nil
}

// IsValidVolume checks volume against the side op trades against.
func (ob *OrderBook) IsValidVolume(op Operation, volume *big.Int) bool {
	side := ob.Side(op)
	return side != nil && side.IsValidVolume(volume)
}

// ComputeTransaction sizes a trade of volume for op.
func (ob *OrderBook) ComputeTransaction(op Operation, volume *big.Int) (*obmath.TransactionInfo, error) {
	side := ob.Side(op)
	if side == nil {
		return nil, fmt.Errorf("orderbook: no side for operation %s", op)
	}
	return side.ComputeTransaction(volume)
}

func replaceAt(orders []*order.Order, i int, o *order.Order) []*order.Order {
	cp := make([]*order.Order, len(orders))
	copy(cp, orders)
	cp[i] = o
	return cp
}
