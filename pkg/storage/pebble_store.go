package storage

import (
	"errors"
	"fmt"

	"github.com/cockroachdb/pebble"
	"github.com/ethereum/go-ethereum/common"

	"github.com/uhyunpark/daidex/pkg/app/core/order"
)

type PebbleStore struct {
	db *pebble.DB
}

func NewPebbleStore(path string) (*PebbleStore, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, err
	}
	return &PebbleStore{db: db}, nil
}

func (s *PebbleStore) Close() error { return s.db.Close() }

// SaveOrder persists an order, replacing any previous version
func (s *PebbleStore) SaveOrder(token common.Address, o *order.Order) error {
	data, err := encodeOrder(o)
	if err != nil {
		return err
	}
	b := s.db.NewBatch()
	defer b.Close()
	if err := b.Set(tokenKey(token), nil, nil); err != nil {
		return err
	}
	if err := b.Set(orderKey(token, o.IsSell, o.ID), data, nil); err != nil {
		return err
	}
	if err := b.Commit(pebble.Sync); err != nil {
		return fmt.Errorf("failed to save order: %w", err)
	}
	return nil
}

// DeleteOrder removes an order; deleting a missing order is not an error
func (s *PebbleStore) DeleteOrder(token common.Address, isSell bool, orderID string) error {
	if err := s.db.Delete(orderKey(token, isSell, orderID), pebble.Sync); err != nil {
		return fmt.Errorf("failed to delete order: %w", err)
	}
	return nil
}

// ReplaceBook drops every order of token and writes the given ones atomically
func (s *PebbleStore) ReplaceBook(token common.Address, buys, sells []*order.Order) error {
	prefix := bookPrefix(token)
	b := s.db.NewBatch()
	defer b.Close()
	if err := b.DeleteRange(prefix, keyUpperBound(prefix), nil); err != nil {
		return err
	}
	if err := b.Set(tokenKey(token), nil, nil); err != nil {
		return err
	}
	for _, list := range [][]*order.Order{buys, sells} {
		for _, o := range list {
			data, err := encodeOrder(o)
			if err != nil {
				return err
			}
			if err := b.Set(orderKey(token, o.IsSell, o.ID), data, nil); err != nil {
				return err
			}
		}
	}
	if err := b.Commit(pebble.Sync); err != nil {
		return fmt.Errorf("failed to replace book: %w", err)
	}
	return nil
}

// LoadBook loads all resting orders of token
func (s *PebbleStore) LoadBook(token common.Address) ([]*order.Order, []*order.Order, error) {
	prefix := bookPrefix(token)
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: keyUpperBound(prefix),
	})
	if err != nil {
		return nil, nil, err
	}
	defer iter.Close()

	var orders []*order.Order
	for iter.First(); iter.Valid(); iter.Next() {
		o, err := decodeOrder(iter.Value())
		if err != nil {
			return nil, nil, fmt.Errorf("key %s: %w", iter.Key(), err)
		}
		orders = append(orders, o)
	}
	buys, sells := split(orders)
	return buys, sells, iter.Error()
}

// Tokens lists every token that ever had a book
func (s *PebbleStore) Tokens() ([]common.Address, error) {
	prefix := []byte(prefixToken)
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: keyUpperBound(prefix),
	})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var out []common.Address
	for iter.First(); iter.Valid(); iter.Next() {
		hex := string(iter.Key()[len(prefix):])
		if !common.IsHexAddress(hex) {
			return nil, errors.New("storage: malformed token key " + hex)
		}
		out = append(out, common.HexToAddress(hex))
	}
	return out, iter.Error()
}

var _ BookStore = (*PebbleStore)(nil)
