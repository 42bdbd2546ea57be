// Package storage persists the server's resting orders.
package storage

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/uhyunpark/daidex/pkg/app/core/order"
)

// BookStore holds resting orders per token. Load returns orders in no
// particular priority; callers sort them.
type BookStore interface {
	SaveOrder(token common.Address, o *order.Order) error
	DeleteOrder(token common.Address, isSell bool, orderID string) error
	ReplaceBook(token common.Address, buys, sells []*order.Order) error
	LoadBook(token common.Address) (buys, sells []*order.Order, err error)
	Tokens() ([]common.Address, error)
	Close() error
}
