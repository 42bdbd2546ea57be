package orderbook

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uhyunpark/daidex/pkg/app/core/obmath"
	"github.com/uhyunpark/daidex/pkg/app/core/order"
)

var token = common.HexToAddress("0x89d24a6b4ccb1b6faa2625fe562bdd9a23260359")

func testConfig() Config {
	return Config{MinVolumeEth: big.NewInt(10), MaxTransactionOrders: 2}
}

func sellOrder(id string, volume, volumeEth int64) *order.Order {
	return order.New(id, true, big.NewInt(volume), big.NewInt(volumeEth), "0x"+id)
}

func buyOrder(id string, volume, volumeEth int64) *order.Order {
	return order.New(id, false, big.NewInt(volume), big.NewInt(volumeEth), "0x"+id)
}

func ids(s *Side) []string {
	out := make([]string, 0, s.Len())
	for _, o := range s.Orders() {
		out = append(out, o.ID)
	}
	return out
}

func snapshotBook(t *testing.T) *OrderBook {
	t.Helper()
	book, err := New(testConfig(), token).Apply(SnapshotEvent(token,
		[]*order.Order{buyOrder("b1", 1000, 100), buyOrder("b2", 500, 40)},
		[]*order.Order{sellOrder("s1", 1000, 110), sellOrder("s2", 2000, 230), sellOrder("s3", 300, 40)},
	))
	require.NoError(t, err)
	return book
}

func TestSnapshot(t *testing.T) {
	book := snapshotBook(t)

	assert.Equal(t, []string{"b1", "b2"}, ids(book.Buys))
	assert.Equal(t, []string{"s1", "s2", "s3"}, ids(book.Sells))

	// 10 wei at 1000/110
	assert.Equal(t, int64(90), book.Sells.MinVolume().Int64())
	assert.Equal(t, int64(3000), book.Sells.MaxVolume().Int64())
	assert.Equal(t, int64(100), book.Buys.MinVolume().Int64())
	assert.Equal(t, int64(1500), book.Buys.MaxVolume().Int64())
}

func TestSnapshot_Idempotent(t *testing.T) {
	first := snapshotBook(t)
	second, err := first.Apply(SnapshotEvent(token, first.Buys.Orders(), first.Sells.Orders()))
	require.NoError(t, err)

	for _, pair := range [][2]*Side{{first.Buys, second.Buys}, {first.Sells, second.Sells}} {
		a, b := pair[0], pair[1]
		assert.Equal(t, ids(a), ids(b))
		assert.Equal(t, a.MinVolume(), b.MinVolume())
		assert.Equal(t, a.MaxVolume(), b.MaxVolume())
		assert.Equal(t, a.Digest(), b.Digest())
		assert.NotEqual(t, a.Version(), b.Version())
	}
}

func TestApply_DoesNotMutatePrevious(t *testing.T) {
	book := snapshotBook(t)
	sellsBefore := book.Sells
	versionBefore := book.Sells.Version()

	next, err := book.Apply(AddEvent(token, sellOrder("s4", 5000, 600)))
	require.NoError(t, err)

	assert.Equal(t, []string{"s1", "s2", "s3"}, ids(book.Sells))
	assert.Same(t, sellsBefore, book.Sells)
	assert.Equal(t, versionBefore, book.Sells.Version())

	assert.Equal(t, []string{"s1", "s2", "s3", "s4"}, ids(next.Sells))
	assert.NotEqual(t, versionBefore, next.Sells.Version())
	assert.Equal(t, int64(7000), next.Sells.MaxVolume().Int64())

	// the other side is shared untouched
	assert.Same(t, book.Buys, next.Buys)
}

func TestApply_Incremental(t *testing.T) {
	tests := []struct {
		name     string
		event    Event
		wantIDs  []string
		wantMax  int64
		sameBook bool
	}{
		{
			name:    "add appends",
			event:   AddEvent(token, sellOrder("s4", 100, 10)),
			wantIDs: []string{"s1", "s2", "s3", "s4"},
			wantMax: 3000,
		},
		{
			name:    "add of known id replaces",
			event:   AddEvent(token, sellOrder("s3", 4000, 400)),
			wantIDs: []string{"s1", "s2", "s3"},
			wantMax: 6000,
		},
		{
			name:    "update replaces in place",
			event:   UpdateEvent(token, sellOrder("s1", 1000, 110).WithFilled(big.NewInt(900))),
			wantIDs: []string{"s1", "s2", "s3"},
			wantMax: 2300,
		},
		{
			name:    "delete removes",
			event:   DeleteEvent(token, true, "s2"),
			wantIDs: []string{"s1", "s3"},
			wantMax: 1300,
		},
		{
			name:     "update of unknown id is a no-op",
			event:    UpdateEvent(token, sellOrder("zz", 1, 1)),
			wantIDs:  []string{"s1", "s2", "s3"},
			wantMax:  3000,
			sameBook: true,
		},
		{
			name:     "delete of unknown id is a no-op",
			event:    DeleteEvent(token, true, "zz"),
			wantIDs:  []string{"s1", "s2", "s3"},
			wantMax:  3000,
			sameBook: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			book := snapshotBook(t)
			next, err := book.Apply(tt.event)
			require.NoError(t, err)

			assert.Equal(t, tt.wantIDs, ids(next.Sells))
			assert.Equal(t, tt.wantMax, next.Sells.MaxVolume().Int64())
			if tt.sameBook {
				assert.Same(t, book, next)
			} else {
				assert.NotEqual(t, book.Sells.Version(), next.Sells.Version())
			}
		})
	}
}

func TestApply_Rejects(t *testing.T) {
	book := snapshotBook(t)
	other := common.HexToAddress("0x1")

	_, err := book.Apply(AddEvent(other, sellOrder("x", 1, 1)))
	require.ErrorIs(t, err, ErrStaleEvent)

	_, err = book.Apply(Event{Kind: Add, Token: token, IsSell: true})
	require.Error(t, err)

	mismatched := AddEvent(token, buyOrder("x", 1, 1))
	mismatched.IsSell = true
	_, err = book.Apply(mismatched)
	require.ErrorIs(t, err, ErrSideMismatch)

	_, err = book.Apply(AddEvent(token, sellOrder("x", 1, 1).WithFilled(big.NewInt(2))))
	require.ErrorIs(t, err, order.ErrNegativeRemaining)
}

func TestApply_RejectsMisSidedSnapshot(t *testing.T) {
	book := snapshotBook(t)

	tests := []struct {
		name  string
		buys  []*order.Order
		sells []*order.Order
	}{
		{"sell among buys", []*order.Order{buyOrder("b1", 1, 1), sellOrder("s1", 1, 1)}, nil},
		{"buy among sells", nil, []*order.Order{buyOrder("b1", 1, 1)}},
		{"nil order", []*order.Order{nil}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, err := book.Apply(SnapshotEvent(token, tt.buys, tt.sells))
			require.Error(t, err)
			assert.Nil(t, next)
			if tt.name != "nil order" {
				assert.ErrorIs(t, err, ErrSideMismatch)
			}
		})
	}
	// the rejected snapshots left the book alone
	assert.Equal(t, []string{"s1", "s2", "s3"}, ids(book.Sells))
}

func TestDigestOf(t *testing.T) {
	book := snapshotBook(t)
	assert.Equal(t, DigestOf(book.Sells.Orders()), book.Sells.Digest())
	assert.NotEqual(t, DigestOf(book.Sells.Orders()), DigestOf(book.Sells.Orders()[1:]))
	assert.Equal(t, DigestOf(nil), (*Side)(nil).Digest())
}

func TestSideForOperation(t *testing.T) {
	book := snapshotBook(t)

	assert.Same(t, book.Sells, book.Side(Buy))
	assert.Same(t, book.Buys, book.Side(Sell))
	assert.Nil(t, book.Side(0))

	var none *OrderBook
	assert.Nil(t, none.Side(Buy))
	assert.Equal(t, uint64(0), none.Side(Buy).Version())
}

func TestIsValidVolume(t *testing.T) {
	book := snapshotBook(t)

	tests := []struct {
		volume int64
		want   bool
	}{
		{89, false},
		{90, true},
		{3000, true},
		{3001, false},
	}
	for _, tt := range tests {
		if got := book.IsValidVolume(Buy, big.NewInt(tt.volume)); got != tt.want {
			t.Errorf("IsValidVolume(Buy, %d) = %v, want %v", tt.volume, got, tt.want)
		}
	}
	if book.IsValidVolume(0, big.NewInt(100)) {
		t.Error("IsValidVolume with no operation should be false")
	}
}

func TestComputeTransaction(t *testing.T) {
	book := snapshotBook(t)

	tx, err := book.ComputeTransaction(Buy, big.NewInt(1500))
	require.NoError(t, err)
	assert.Equal(t, []string{"s1", "s2"}, tx.OrderIDs())
	assert.Equal(t, "0xs10xs2", tx.OrderParameters())

	_, err = book.ComputeTransaction(Sell, big.NewInt(5000))
	require.ErrorIs(t, err, obmath.ErrInsufficientLiquidity)
}

func TestEventKindText(t *testing.T) {
	for _, k := range []EventKind{Snapshot, Add, Update, Delete} {
		b, err := k.MarshalText()
		require.NoError(t, err)

		var got EventKind
		require.NoError(t, got.UnmarshalText(b))
		assert.Equal(t, k, got)
	}

	var k EventKind
	assert.Error(t, k.UnmarshalText([]byte("merge")))
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "1000000000000000", cfg.MinVolumeEth.String())
	assert.Equal(t, 2, cfg.MaxTransactionOrders)
}
