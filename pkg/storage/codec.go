package storage

import (
	"encoding/json"
	"fmt"

	"github.com/uhyunpark/daidex/pkg/app/core/order"
)

func encodeOrder(o *order.Order) ([]byte, error) {
	b, err := json.Marshal(o)
	if err != nil {
		return nil, fmt.Errorf("encode order %s: %w", o.ID, err)
	}
	return b, nil
}

func decodeOrder(b []byte) (*order.Order, error) {
	var o order.Order
	if err := json.Unmarshal(b, &o); err != nil {
		return nil, fmt.Errorf("decode order: %w", err)
	}
	return &o, nil
}

// split partitions orders by side, keeping their relative order.
func split(orders []*order.Order) (buys, sells []*order.Order) {
	for _, o := range orders {
		if o.IsSell {
			sells = append(sells, o)
		} else {
			buys = append(buys, o)
		}
	}
	return buys, sells
}
