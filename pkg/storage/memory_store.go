package storage

import (
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/uhyunpark/daidex/pkg/app/core/order"
)

// InMemoryStore is a BookStore for tests and for running without a data dir.
type InMemoryStore struct {
	mu     sync.Mutex
	orders map[common.Address]map[string]*order.Order
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{orders: make(map[common.Address]map[string]*order.Order)}
}

func (s *InMemoryStore) book(token common.Address) map[string]*order.Order {
	b, ok := s.orders[token]
	if !ok {
		b = make(map[string]*order.Order)
		s.orders[token] = b
	}
	return b
}

func (s *InMemoryStore) SaveOrder(token common.Address, o *order.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.book(token)[string(orderKey(token, o.IsSell, o.ID))] = o
	return nil
}

func (s *InMemoryStore) DeleteOrder(token common.Address, isSell bool, orderID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.book(token), string(orderKey(token, isSell, orderID)))
	return nil
}

func (s *InMemoryStore) ReplaceBook(token common.Address, buys, sells []*order.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b := make(map[string]*order.Order, len(buys)+len(sells))
	for _, list := range [][]*order.Order{buys, sells} {
		for _, o := range list {
			b[string(orderKey(token, o.IsSell, o.ID))] = o
		}
	}
	s.orders[token] = b
	return nil
}

func (s *InMemoryStore) LoadBook(token common.Address) ([]*order.Order, []*order.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b := s.orders[token]
	keys := make([]string, 0, len(b))
	for k := range b {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	orders := make([]*order.Order, len(keys))
	for i, k := range keys {
		orders[i] = b[k]
	}
	buys, sells := split(orders)
	return buys, sells, nil
}

func (s *InMemoryStore) Tokens() ([]common.Address, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]common.Address, 0, len(s.orders))
	for t := range s.orders {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return tokenHex(out[i]) < tokenHex(out[j]) })
	return out, nil
}

func (s *InMemoryStore) Close() error { return nil }

var _ BookStore = (*InMemoryStore)(nil)
