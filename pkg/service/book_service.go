// Package service keeps the server's resting order books.
package service

import (
	"fmt"
	"math/big"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/uhyunpark/daidex/pkg/api"
	"github.com/uhyunpark/daidex/pkg/app/core/order"
	"github.com/uhyunpark/daidex/pkg/app/core/orderbook"
	"github.com/uhyunpark/daidex/pkg/feed"
	"github.com/uhyunpark/daidex/pkg/storage"
)

// ErrSideMismatch rejects an order listed on the wrong side of a snapshot.
var ErrSideMismatch = orderbook.ErrSideMismatch

// Publisher fans book events out to streaming clients.
type Publisher interface {
	BroadcastToChannel(channel string, data interface{})
}

type book struct {
	buys, sells []*order.Order
}

// BookService holds one book per token, best price first: sells by ascending
// price, buys by descending price, earlier orders first at equal price.
type BookService struct {
	mu    sync.RWMutex
	books map[common.Address]*book

	store storage.BookStore
	wal   storage.EventLog
	pub   Publisher
	log   *zap.SugaredLogger
}

func NewBookService(store storage.BookStore, wal storage.EventLog, pub Publisher, log *zap.SugaredLogger) *BookService {
	if wal == nil {
		wal = storage.NewNopWAL()
	}
	return &BookService{
		books: make(map[common.Address]*book),
		store: store,
		wal:   wal,
		pub:   pub,
		log:   log,
	}
}

// Load restores every persisted book.
func (s *BookService) Load() error {
	tokens, err := s.store.Tokens()
	if err != nil {
		return fmt.Errorf("list tokens: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, token := range tokens {
		buys, sells, err := s.store.LoadBook(token)
		if err != nil {
			return fmt.Errorf("load book %s: %w", token.Hex(), err)
		}
		s.books[token] = &book{buys: sortSide(buys), sells: sortSide(sells)}
		s.log.Infow("book_loaded", "token", token.Hex(), "buys", len(buys), "sells", len(sells))
	}
	return nil
}

// Book returns copies of token's order lists. ok is false for a token that
// never had a book.
func (s *BookService) Book(token common.Address) (buys, sells []*order.Order, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.books[token]
	if !ok {
		return []*order.Order{}, []*order.Order{}, false
	}
	return append([]*order.Order{}, b.buys...), append([]*order.Order{}, b.sells...), true
}

// Snapshot is the event a new subscriber starts from.
func (s *BookService) Snapshot(token common.Address) orderbook.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked(token)
}

func (s *BookService) snapshotLocked(token common.Address) orderbook.Event {
	b, ok := s.books[token]
	if !ok {
		return orderbook.SnapshotEvent(token, []*order.Order{}, []*order.Order{})
	}
	return orderbook.SnapshotEvent(token, append([]*order.Order{}, b.buys...), append([]*order.Order{}, b.sells...))
}

// OnSubscribe is the hub hook for order-book channels: the subscriber gets a
// snapshot, and no event applied concurrently is either lost or duplicated.
func (s *BookService) OnSubscribe(channel string, subscribe func(first interface{})) {
	token, ok := api.TokenFromChannel(channel)
	if !ok {
		subscribe(nil)
		return
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := s.snapshotLocked(token)
	subscribe(api.WSMessage{Type: api.WSTypeOrderbook, Channel: channel, Data: snap,
		Digest: api.DigestBook(snap.Buys, snap.Sells)})
}

func (s *BookService) Tokens() []common.Address {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]common.Address, 0, len(s.books))
	for t := range s.books {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Cmp(out[j]) < 0 })
	return out
}

// Apply changes a book and reports whether anything changed. Update and
// Delete of unknown orders are ignored; Add of a known order replaces it.
func (s *BookService) Apply(ev orderbook.Event) (bool, error) {
	if err := ev.Validate(); err != nil {
		return false, err
	}
	token := ev.Token

	s.mu.Lock()
	defer s.mu.Unlock()

	prev, ok := s.books[token]
	if !ok {
		prev = &book{}
	}
	next, changed, err := s.next(prev, ev)
	if err != nil || !changed {
		return false, err
	}

	if err := s.persist(token, ev, next); err != nil {
		return false, err
	}
	s.books[token] = next
	if err := s.wal.Append(ev); err != nil {
		s.log.Warnw("event_log_failed", "token", token.Hex(), "err", err)
	}
	s.publish(token, prev, next)

	s.log.Infow("book_event_applied", "token", token.Hex(), "kind", ev.Kind.String(),
		"buys", len(next.buys), "sells", len(next.sells))
	return true, nil
}

func (s *BookService) next(prev *book, ev orderbook.Event) (*book, bool, error) {
	token := ev.Token
	switch ev.Kind {
	case orderbook.Snapshot:
		buys, err := normalize(token, ev.Buys, false)
		if err != nil {
			return nil, false, err
		}
		sells, err := normalize(token, ev.Sells, true)
		if err != nil {
			return nil, false, err
		}
		return &book{buys: sortSide(buys), sells: sortSide(sells)}, true, nil

	case orderbook.Add, orderbook.Update:
		o := *ev.Order
		o.Token = token
		side := prev.side(o.IsSell)
		idx := indexOf(side, o.ID)
		if idx < 0 && ev.Kind == orderbook.Update {
			return prev, false, nil
		}
		if idx >= 0 {
			side = removeAt(side, idx)
		}
		return prev.with(o.IsSell, insertSorted(side, &o)), true, nil

	case orderbook.Delete:
		side := prev.side(ev.IsSell)
		idx := indexOf(side, ev.OrderID)
		if idx < 0 {
			return prev, false, nil
		}
		return prev.with(ev.IsSell, removeAt(side, idx)), true, nil
	}
	return nil, false, fmt.Errorf("service: unknown event kind %d", ev.Kind)
}

func (s *BookService) persist(token common.Address, ev orderbook.Event, next *book) error {
	var err error
	switch ev.Kind {
	case orderbook.Snapshot:
		err = s.store.ReplaceBook(token, next.buys, next.sells)
	case orderbook.Add, orderbook.Update:
		o := *ev.Order
		o.Token = token
		err = s.store.SaveOrder(token, &o)
	case orderbook.Delete:
		err = s.store.DeleteOrder(token, ev.IsSell, ev.OrderID)
	}
	if err != nil {
		return fmt.Errorf("persist %s event: %w", ev.Kind, err)
	}
	return nil
}

// publish sends what a client applying events in order needs to reach next.
func (s *BookService) publish(token common.Address, prev, next *book) {
	if s.pub == nil {
		return
	}
	channel := api.OrderBookChannel(token)
	evs := feed.Diff(token, prev.buys, prev.sells, next.buys, next.sells)
	for i, ev := range evs {
		msg := api.WSMessage{Type: api.WSTypeOrderbook, Channel: channel, Data: ev}
		if i == len(evs)-1 {
			msg.Digest = api.DigestBook(next.buys, next.sells)
		}
		s.pub.BroadcastToChannel(channel, msg)
	}
}

func (b *book) side(isSell bool) []*order.Order {
	if isSell {
		return b.sells
	}
	return b.buys
}

func (b *book) with(isSell bool, orders []*order.Order) *book {
	if isSell {
		return &book{buys: b.buys, sells: orders}
	}
	return &book{buys: orders, sells: b.sells}
}

func normalize(token common.Address, orders []*order.Order, isSell bool) ([]*order.Order, error) {
	out := make([]*order.Order, len(orders))
	for i, o := range orders {
		if o.IsSell != isSell {
			return nil, fmt.Errorf("%w: %s", ErrSideMismatch, o.ID)
		}
		cp := *o
		cp.Token = token
		out[i] = &cp
	}
	return out, nil
}

func indexOf(orders []*order.Order, id string) int {
	for i, o := range orders {
		if o.ID == id {
			return i
		}
	}
	return -1
}

func removeAt(orders []*order.Order, i int) []*order.Order {
	out := make([]*order.Order, 0, len(orders)-1)
	out = append(out, orders[:i]...)
	return append(out, orders[i+1:]...)
}

// insertSorted places o after every order priced at least as well.
func insertSorted(orders []*order.Order, o *order.Order) []*order.Order {
	i := sort.Search(len(orders), func(i int) bool { return better(o, orders[i]) })
	out := make([]*order.Order, 0, len(orders)+1)
	out = append(out, orders[:i]...)
	out = append(out, o)
	return append(out, orders[i:]...)
}

func sortSide(orders []*order.Order) []*order.Order {
	sort.SliceStable(orders, func(i, j int) bool { return better(orders[i], orders[j]) })
	return orders
}

// better reports whether a is strictly better priced than b. Price is
// VolumeEth/Volume; sells want it low, buys want it high.
func better(a, b *order.Order) bool {
	c := comparePrice(a, b)
	if a.IsSell {
		return c < 0
	}
	return c > 0
}

func comparePrice(a, b *order.Order) int {
	l := new(big.Int).Mul(a.VolumeEth, b.Volume)
	r := new(big.Int).Mul(b.VolumeEth, a.Volume)
	return l.Cmp(r)
}
