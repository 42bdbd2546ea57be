package orderbook

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/uhyunpark/daidex/pkg/app/core/order"
)

type EventKind uint8

const (
	Snapshot EventKind = iota + 1
	Add
	Update
	Delete
)

func (k EventKind) String() string {
	switch k {
	case Snapshot:
		return "snapshot"
	case Add:
		return "add"
	case Update:
		return "update"
	case Delete:
		return "delete"
	default:
		return fmt.Sprintf("EventKind(%d)", uint8(k))
	}
}

func (k EventKind) MarshalText() ([]byte, error) {
	if k < Snapshot || k > Delete {
		return nil, fmt.Errorf("orderbook: unknown event kind %d", uint8(k))
	}
	return []byte(k.String()), nil
}

func (k *EventKind) UnmarshalText(b []byte) error {
	switch string(b) {
	case "snapshot":
		*k = Snapshot
	case "add":
		*k = Add
	case "update":
		*k = Update
	case "delete":
		*k = Delete
	default:
		return fmt.Errorf("orderbook: unknown event kind %q", b)
	}
	return nil
}

// Event is one change to a token's book as delivered by the feed.
// Add and Update carry Order; Delete carries OrderID; Snapshot carries both lists.
type Event struct {
	Kind  EventKind      `json:"kind"`
	Token common.Address `json:"token"`

	IsSell  bool         `json:"isSell,omitempty"`
	Order   *order.Order `json:"order,omitempty"`
	OrderID string       `json:"orderId,omitempty"`

	Buys  []*order.Order `json:"buys,omitempty"`
	Sells []*order.Order `json:"sells,omitempty"`
}

func SnapshotEvent(token common.Address, buys, sells []*order.Order) Event {
	return Event{Kind: Snapshot, Token: token, Buys: buys, Sells: sells}
}

func AddEvent(token common.Address, o *order.Order) Event {
	return Event{Kind: Add, Token: token, IsSell: o.IsSell, Order: o}
}

func UpdateEvent(token common.Address, o *order.Order) Event {
	return Event{Kind: Update, Token: token, IsSell: o.IsSell, Order: o}
}

func DeleteEvent(token common.Address, isSell bool, id string) Event {
	return Event{Kind: Delete, Token: token, IsSell: isSell, OrderID: id}
}

// Validate checks the event is self-consistent before it touches a book.
func (e Event) Validate() error {
	switch e.Kind {
	case Snapshot:
		if err := validateSide(e.Buys, false); err != nil {
			return err
		}
		if err := validateSide(e.Sells, true); err != nil {
			return err
		}
	case Add, Update:
		if e.Order == nil {
			return fmt.Errorf("orderbook: %s event without order", e.Kind)
		}
		if e.Order.IsSell != e.IsSell {
			return fmt.Errorf("%w: %s event for order %s", ErrSideMismatch, e.Kind, e.Order.ID)
		}
		return e.Order.Validate()
	case Delete:
		if e.OrderID == "" {
			return fmt.Errorf("orderbook: delete event without order id")
		}
	default:
		return fmt.Errorf("orderbook: unknown event kind %d", uint8(e.Kind))
	}
	return nil
}

func validateSide(orders []*order.Order, isSell bool) error {
	for _, o := range orders {
		if o == nil {
			return fmt.Errorf("orderbook: nil order in snapshot")
		}
		if o.IsSell != isSell {
			return fmt.Errorf("%w: snapshot order %s", ErrSideMismatch, o.ID)
		}
		if err := o.Validate(); err != nil {
			return err
		}
	}
	return nil
}
