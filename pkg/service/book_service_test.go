package service

import (
	"math/big"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/uhyunpark/daidex/pkg/api"
	"github.com/uhyunpark/daidex/pkg/app/core/order"
	"github.com/uhyunpark/daidex/pkg/app/core/orderbook"
	"github.com/uhyunpark/daidex/pkg/storage"
)

var token = common.HexToAddress("0x89d24a6b4ccb1b6faa2625fe562bdd9a23260359")

type recordingHub struct {
	mu  sync.Mutex
	msg []api.WSMessage
}

func (h *recordingHub) BroadcastToChannel(channel string, data interface{}) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.msg = append(h.msg, data.(api.WSMessage))
}

func (h *recordingHub) events() []orderbook.Event {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]orderbook.Event, len(h.msg))
	for i, m := range h.msg {
		out[i] = m.Data.(orderbook.Event)
	}
	return out
}

func sellOrder(id string, vol, eth int64) *order.Order {
	return order.New(id, true, big.NewInt(vol), big.NewInt(eth), "00")
}

func buyOrder(id string, vol, eth int64) *order.Order {
	return order.New(id, false, big.NewInt(vol), big.NewInt(eth), "00")
}

func ids(orders []*order.Order) []string {
	out := make([]string, len(orders))
	for i, o := range orders {
		out[i] = o.ID
	}
	return out
}

func newService(store storage.BookStore) (*BookService, *recordingHub) {
	hub := &recordingHub{}
	return NewBookService(store, nil, hub, zap.NewNop().Sugar()), hub
}

func TestApply_KeepsPriceOrder(t *testing.T) {
	svc, _ := newService(storage.NewInMemoryStore())

	_, err := svc.Apply(orderbook.SnapshotEvent(token,
		[]*order.Order{buyOrder("b-low", 100, 5), buyOrder("b-high", 100, 9)},
		[]*order.Order{sellOrder("s-high", 100, 12), sellOrder("s-low", 100, 10)},
	))
	require.NoError(t, err)

	buys, sells, ok := svc.Book(token)
	require.True(t, ok)
	assert.Equal(t, []string{"b-high", "b-low"}, ids(buys))
	assert.Equal(t, []string{"s-low", "s-high"}, ids(sells))

	// same price as s-low: queued after it
	_, err = svc.Apply(orderbook.AddEvent(token, sellOrder("s-tie", 50, 5)))
	require.NoError(t, err)
	_, err = svc.Apply(orderbook.AddEvent(token, sellOrder("s-best", 10, 0)))
	require.NoError(t, err)

	_, sells, _ = svc.Book(token)
	assert.Equal(t, []string{"s-best", "s-low", "s-tie", "s-high"}, ids(sells))
	for _, o := range sells {
		assert.Equal(t, token, o.Token)
	}
}

func TestApply_IgnoresUnknownOrders(t *testing.T) {
	svc, hub := newService(storage.NewInMemoryStore())

	changed, err := svc.Apply(orderbook.UpdateEvent(token, sellOrder("ghost", 1, 1)))
	require.NoError(t, err)
	assert.False(t, changed)

	changed, err = svc.Apply(orderbook.DeleteEvent(token, true, "ghost"))
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Empty(t, hub.events())
}

func TestApply_RejectsBadEvents(t *testing.T) {
	svc, _ := newService(storage.NewInMemoryStore())

	_, err := svc.Apply(orderbook.SnapshotEvent(token, []*order.Order{sellOrder("s", 1, 1)}, nil))
	require.ErrorIs(t, err, ErrSideMismatch)

	bad := sellOrder("s", 10, 1).WithFilled(big.NewInt(11))
	_, err = svc.Apply(orderbook.AddEvent(token, bad))
	require.Error(t, err)
}

// A client applying the published events must end with the server's book.
func TestApply_PublishedEventsReplay(t *testing.T) {
	svc, hub := newService(storage.NewInMemoryStore())
	steps := []orderbook.Event{
		orderbook.SnapshotEvent(token, []*order.Order{buyOrder("b1", 100, 9)}, []*order.Order{sellOrder("s1", 100, 10)}),
		orderbook.AddEvent(token, sellOrder("s2", 100, 12)),
		orderbook.AddEvent(token, sellOrder("s0", 100, 8)),
		orderbook.UpdateEvent(token, sellOrder("s1", 100, 10).WithFilled(big.NewInt(40))),
		orderbook.DeleteEvent(token, false, "b1"),
		orderbook.UpdateEvent(token, sellOrder("s2", 100, 1)),
	}
	for _, ev := range steps {
		_, err := svc.Apply(ev)
		require.NoError(t, err)
	}

	cfg := orderbook.DefaultConfig()
	client := orderbook.New(cfg, token)
	for _, ev := range hub.events() {
		var err error
		client, err = client.Apply(ev)
		require.NoError(t, err)
	}

	buys, sells, _ := svc.Book(token)
	assert.Equal(t, []string{"s2", "s0", "s1"}, ids(sells))
	assert.Equal(t, orderbook.NewSide(cfg, sells).Digest(), client.Sells.Digest())
	assert.Equal(t, orderbook.NewSide(cfg, buys).Digest(), client.Buys.Digest())
}

func TestLoad_RestoresSortedBooks(t *testing.T) {
	store := storage.NewInMemoryStore()
	svc, _ := newService(store)
	for _, o := range []*order.Order{sellOrder("a", 100, 30), sellOrder("b", 100, 10), sellOrder("c", 100, 20)} {
		_, err := svc.Apply(orderbook.AddEvent(token, o))
		require.NoError(t, err)
	}

	restored, _ := newService(store)
	require.NoError(t, restored.Load())
	_, sells, ok := restored.Book(token)
	require.True(t, ok)
	assert.Equal(t, []string{"b", "c", "a"}, ids(sells))
	assert.Equal(t, []common.Address{token}, restored.Tokens())

	snap := restored.Snapshot(token)
	assert.Equal(t, orderbook.Snapshot, snap.Kind)
	assert.Len(t, snap.Sells, 3)
}
