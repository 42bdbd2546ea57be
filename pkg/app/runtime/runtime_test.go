package runtime

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/uhyunpark/daidex/pkg/app/core/obmath"
	"github.com/uhyunpark/daidex/pkg/app/core/order"
	"github.com/uhyunpark/daidex/pkg/app/core/orderbook"
	"github.com/uhyunpark/daidex/pkg/app/widget"
	"github.com/uhyunpark/daidex/pkg/feed"
	"github.com/uhyunpark/daidex/pkg/wallet"
)

var (
	tokenA = widget.Token{Symbol: "AAA", Decimals: 0, Address: common.HexToAddress("0xaa")}
	tokenB = widget.Token{Symbol: "BBB", Decimals: 0, Address: common.HexToAddress("0xbb")}
)

func testConfig() widget.Config {
	return widget.Config{
		FeePercentage: 0.005,
		EthersToUSD:   500,
		GasPrices:     widget.GasPrices{Slow: 1, Normal: 2, Fast: 3},
		Tokens:        []widget.Token{tokenA, tokenB},
		Book:          orderbook.Config{MinVolumeEth: big.NewInt(1), MaxTransactionOrders: 2},
	}
}

func side(token common.Address, isSell bool) []*order.Order {
	o1 := order.New("o1", isSell, big.NewInt(100), big.NewInt(10), "aa")
	o2 := order.New("o2", isSell, big.NewInt(100), big.NewInt(11), "bb")
	o1.Token, o2.Token = token, token
	return []*order.Order{o1, o2}
}

func sells(token common.Address) []*order.Order { return side(token, true) }

func buys(token common.Address) []*order.Order { return side(token, false) }

// fakeWallet records calls; hooks override individual steps.
type fakeWallet struct {
	mu    sync.Mutex
	calls []string

	account   common.Address
	ether     *big.Int
	rejectAt  string
	failWait  bool
	daiFactor int64
}

func newFakeWallet() *fakeWallet {
	return &fakeWallet{account: common.HexToAddress("0xabc"), ether: big.NewInt(1e18), daiFactor: 500}
}

func (w *fakeWallet) record(name string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.calls = append(w.calls, name)
	if w.rejectAt == name {
		return wallet.ErrSignatureRejected
	}
	return nil
}

func (w *fakeWallet) Calls() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.calls...)
}

func (w *fakeWallet) Name() string { return "fake" }

func (w *fakeWallet) Account(ctx context.Context) (common.Address, error) { return w.account, nil }

func (w *fakeWallet) EtherBalance(ctx context.Context, account common.Address) (*big.Int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return new(big.Int).Set(w.ether), nil
}

func (w *fakeWallet) TradeableBalance(ctx context.Context, token, account common.Address) (*big.Int, error) {
	return big.NewInt(42), nil
}

func (w *fakeWallet) DAIAmount(ctx context.Context, op orderbook.Operation, volumeEth *big.Int) (*big.Int, error) {
	return new(big.Int).Mul(volumeEth, big.NewInt(w.daiFactor)), nil
}

func (w *fakeWallet) ApproveTokenAllowance(ctx context.Context, token common.Address, volume, gasPrice *big.Int) (common.Hash, error) {
	return common.HexToHash("0x01"), w.record("approveToken")
}

func (w *fakeWallet) ApproveDAIAllowance(ctx context.Context, volume, gasPrice *big.Int) (common.Hash, error) {
	return common.HexToHash("0x02"), w.record("approveDAI")
}

func (w *fakeWallet) DexdexBuy(ctx context.Context, token common.Address, gasPrice *big.Int, tx *obmath.TransactionInfo, daiVolume *big.Int) (common.Hash, error) {
	return common.HexToHash("0x03"), w.record("buy")
}

func (w *fakeWallet) DexdexSell(ctx context.Context, token common.Address, gasPrice *big.Int, tx *obmath.TransactionInfo, daiVolume *big.Int) (common.Hash, error) {
	return common.HexToHash("0x04"), w.record("sell")
}

func (w *fakeWallet) WaitForTransaction(ctx context.Context, txID common.Hash) (*types.Receipt, error) {
	if err := w.record("wait"); err != nil {
		return nil, err
	}
	if w.failWait {
		return nil, wallet.ErrTransactionReverted
	}
	return &types.Receipt{Status: types.ReceiptStatusSuccessful, TxHash: txID}, nil
}

// recorder collects dispatched actions.
type recorder struct {
	mu      sync.Mutex
	actions []widget.Action
}

func (r *recorder) Dispatch(a widget.Action) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.actions = append(r.actions, a)
}

func (r *recorder) stages() []widget.TxStage {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []widget.TxStage
	for _, a := range r.actions {
		if s, ok := a.(widget.SetTransactionState); ok {
			out = append(out, s.State.Stage)
		}
	}
	return out
}

// ready reduces a widget to the point where a submission can start.
func ready(t *testing.T, w wallet.Wallet, op orderbook.Operation) widget.State {
	t.Helper()
	st := widget.NewState(testConfig(), w)
	st = widget.Reduce(st, widget.OrderBookEvent{Event: orderbook.SnapshotEvent(tokenA.Address, buys(tokenA.Address), sells(tokenA.Address))})
	st = widget.Reduce(st, widget.SetOperation{Operation: op})
	st = widget.Reduce(st, widget.SetAmount{Amount: "150"})
	require.NotNil(t, st.CurrentTransaction)
	st = widget.Reduce(st, widget.SetDAIVolume{Volume: big.NewInt(8000)})
	return widget.Reduce(st, widget.StartTransaction{RunID: uuid.New()})
}

func TestMailbox(t *testing.T) {
	mb := NewMailbox[int]()
	for i := 0; i < 3; i++ {
		require.True(t, mb.Push(i))
	}
	assert.Equal(t, 3, mb.Len())
	select {
	case <-mb.Notify():
	default:
		t.Fatal("expected notification")
	}
	assert.Equal(t, []int{0, 1, 2}, mb.Drain())
	assert.Empty(t, mb.Drain())

	mb.Close()
	assert.False(t, mb.Push(4))
	assert.Equal(t, 0, mb.Len())
}

func TestStore_ReducesInOrder(t *testing.T) {
	store := NewStore(widget.NewState(testConfig(), nil), zap.NewNop().Sugar())
	sub := store.Subscribe()

	first := sub.Drain()
	require.Len(t, first, 1)
	assert.Nil(t, first[0].Action)
	assert.Equal(t, tokenA, first[0].State.Tradeable)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- store.Run(ctx) }()

	store.Dispatch(widget.SetAmount{Amount: "1"})
	store.Dispatch(widget.SetAmount{Amount: "2"})
	store.Dispatch(widget.SetToken{Token: tokenB})

	require.Eventually(t, func() bool { return store.State().Tradeable == tokenB }, time.Second, time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	changes := sub.Drain()
	require.Len(t, changes, 3)
	assert.Equal(t, "1", changes[0].State.Amount)
	assert.Equal(t, "1", changes[1].Prev.Amount)
	assert.Equal(t, "2", changes[1].State.Amount)
	assert.Equal(t, "setToken", changes[2].Action.ActionName())
}

func TestExecutor(t *testing.T) {
	tests := []struct {
		name       string
		op         orderbook.Operation
		rejectAt   string
		failWait   bool
		wantStages []widget.TxStage
		wantCalls  []string
	}{
		{
			name: "buy",
			op:   orderbook.Buy,
			wantStages: []widget.TxStage{
				widget.RequestDAIAllowanceSignature, widget.DAIAllowanceInProgress,
				widget.RequestTradeSignature, widget.TradeInProgress, widget.Completed,
			},
			wantCalls: []string{"approveDAI", "wait", "buy", "wait"},
		},
		{
			name: "sell",
			op:   orderbook.Sell,
			wantStages: []widget.TxStage{
				widget.RequestTokenAllowanceSignature, widget.TokenAllowanceInProgress,
				widget.RequestTradeSignature, widget.TradeInProgress, widget.Completed,
			},
			wantCalls: []string{"approveToken", "wait", "sell", "wait"},
		},
		{
			name:     "allowance rejected",
			op:       orderbook.Buy,
			rejectAt: "approveDAI",
			wantStages: []widget.TxStage{
				widget.RequestDAIAllowanceSignature, widget.SignatureRejected,
			},
			wantCalls: []string{"approveDAI"},
		},
		{
			name:     "trade rejected",
			op:       orderbook.Sell,
			rejectAt: "sell",
			wantStages: []widget.TxStage{
				widget.RequestTokenAllowanceSignature, widget.TokenAllowanceInProgress,
				widget.RequestTradeSignature, widget.SignatureRejected,
			},
			wantCalls: []string{"approveToken", "wait", "sell"},
		},
		{
			name:     "reverted",
			op:       orderbook.Buy,
			failWait: true,
			wantStages: []widget.TxStage{
				widget.RequestDAIAllowanceSignature, widget.DAIAllowanceInProgress, widget.Failed,
			},
			wantCalls: []string{"approveDAI", "wait"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := newFakeWallet()
			w.rejectAt, w.failWait = tt.rejectAt, tt.failWait
			st := ready(t, w, tt.op)

			rec := &recorder{}
			final := NewExecutor(rec, zap.NewNop().Sugar()).Execute(context.Background(), st)

			assert.Equal(t, tt.wantStages[len(tt.wantStages)-1], final)
			assert.Equal(t, tt.wantStages, rec.stages())
			assert.Equal(t, tt.wantCalls, w.Calls())

			// every reported state is accepted by the reducer in order
			for _, a := range rec.actions {
				next := widget.Reduce(st, a)
				require.NotEqual(t, st.Tx, next.Tx, "stage %s dropped", a.(widget.SetTransactionState).State.Stage)
				st = next
			}
			assert.Equal(t, final, st.Tx.Stage)
		})
	}
}

func TestExecutor_MissingInputsFail(t *testing.T) {
	w := newFakeWallet()
	st := ready(t, w, orderbook.Buy)
	st.CurrentTransactionDAI = nil

	rec := &recorder{}
	final := NewExecutor(rec, zap.NewNop().Sugar()).Execute(context.Background(), st)

	assert.Equal(t, widget.Failed, final)
	assert.Equal(t, []widget.TxStage{widget.Failed}, rec.stages())
	assert.Empty(t, w.Calls())
}

// staticFeed sends one snapshot per subscription and waits.
type staticFeed struct {
	mu     sync.Mutex
	tokens []common.Address
}

func (f *staticFeed) Subscribe(ctx context.Context, token common.Address, emit feed.Emit) error {
	f.mu.Lock()
	f.tokens = append(f.tokens, token)
	f.mu.Unlock()
	emit(orderbook.SnapshotEvent(token, nil, sells(token)))
	<-ctx.Done()
	return nil
}

func (f *staticFeed) subscribed() []common.Address {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]common.Address(nil), f.tokens...)
}

func TestRuntime_EndToEnd(t *testing.T) {
	w := newFakeWallet()
	f := &staticFeed{}
	cfg := Config{WalletPoll: 10 * time.Millisecond, FeedRetry: 10 * time.Millisecond}
	rt := New(cfg, widget.NewState(testConfig(), w), f, zap.NewNop().Sugar())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- rt.Run(ctx) }()
	defer func() {
		cancel()
		require.NoError(t, <-done)
	}()

	require.Eventually(t, func() bool {
		st := rt.Store.State()
		return st.OrderBook != nil && st.WalletDetails != nil
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, w.account, rt.Store.State().WalletDetails.Address)

	rt.Dispatch(widget.SetAmount{Amount: "150"})
	// o1 costs 10 wei and half of o2 another 5; the fake quotes 500 DAI per wei
	require.Eventually(t, func() bool {
		st := rt.Store.State()
		return st.CurrentTransaction != nil && st.CurrentTransactionDAI != nil &&
			st.CurrentTransactionDAI.Int64() == 7500
	}, 2*time.Second, 5*time.Millisecond)

	rt.Dispatch(widget.StartTransaction{RunID: uuid.New()})
	require.Eventually(t, func() bool { return rt.Store.State().Tx.Stage == widget.Completed }, 2*time.Second, 5*time.Millisecond)

	st := rt.Store.State()
	assert.Equal(t, widget.ScreenTradeSuccess, st.Screen)
	assert.Equal(t, common.HexToHash("0x03").Hex(), st.TradeTxHash)
	assert.Equal(t, common.HexToHash("0x02").Hex(), st.ApprovalTxHash)

	rt.Dispatch(widget.SetToken{Token: tokenB})
	require.Eventually(t, func() bool {
		st := rt.Store.State()
		return st.OrderBook != nil && st.OrderBook.Token == tokenB.Address
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, []common.Address{tokenA.Address, tokenB.Address}, f.subscribed())
}

func TestIsSignatureRejectedClassification(t *testing.T) {
	assert.True(t, wallet.IsSignatureRejected(errors.Join(errors.New("x"), wallet.ErrSignatureRejected)))
	assert.False(t, wallet.IsSignatureRejected(wallet.ErrTransactionReverted))
}
