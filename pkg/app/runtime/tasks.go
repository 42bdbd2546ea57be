package runtime

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/uhyunpark/daidex/pkg/app/core/orderbook"
	"github.com/uhyunpark/daidex/pkg/app/widget"
	"github.com/uhyunpark/daidex/pkg/feed"
	"github.com/uhyunpark/daidex/pkg/wallet"
)

// Dispatcher is the part of Store that tasks write to.
type Dispatcher interface {
	Dispatch(widget.Action)
}

// watch calls fn for each change until ctx ends.
func watch(ctx context.Context, mb *Mailbox[Change], fn func(Change)) error {
	defer mb.Close()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-mb.Notify():
		}
		for _, ch := range mb.Drain() {
			fn(ch)
		}
	}
}

// BookTask keeps one feed subscription open for the selected token.
type BookTask struct {
	store  Dispatcher
	feed   feed.Feed
	retry  time.Duration
	log    *zap.SugaredLogger
	cancel context.CancelFunc
}

func NewBookTask(store Dispatcher, f feed.Feed, retry time.Duration, log *zap.SugaredLogger) *BookTask {
	return &BookTask{store: store, feed: f, retry: retry, log: log}
}

func (t *BookTask) Run(ctx context.Context, changes *Mailbox[Change]) error {
	defer t.stop()
	return watch(ctx, changes, func(ch Change) {
		token := ch.State.Tradeable.Address
		if token == ch.Prev.Tradeable.Address && t.cancel != nil {
			return
		}
		t.stop()
		if token == (common.Address{}) {
			return
		}
		subCtx, cancel := context.WithCancel(ctx)
		t.cancel = cancel
		go t.follow(subCtx, token)
	})
}

func (t *BookTask) stop() {
	if t.cancel != nil {
		t.cancel()
		t.cancel = nil
	}
}

// follow resubscribes after feed failures; each new subscription starts
// with a snapshot, so nothing is lost.
func (t *BookTask) follow(ctx context.Context, token common.Address) {
	t.log.Infow("book_follow", "token", token.Hex())
	for {
		err := t.feed.Subscribe(ctx, token, func(ev orderbook.Event) {
			ev.Token = token
			t.store.Dispatch(widget.OrderBookEvent{Event: ev})
		})
		if ctx.Err() != nil {
			return
		}
		t.log.Warnw("book_feed_ended", "token", token.Hex(), "err", err)
		select {
		case <-ctx.Done():
			return
		case <-time.After(t.retry):
		}
	}
}

// WalletTask polls account and balances and reports differences.
type WalletTask struct {
	store    Dispatcher
	interval time.Duration
	log      *zap.SugaredLogger

	wallet  wallet.Wallet
	token   common.Address
	details *widget.WalletDetails
}

func NewWalletTask(store Dispatcher, interval time.Duration, log *zap.SugaredLogger) *WalletTask {
	return &WalletTask{store: store, interval: interval, log: log}
}

func (t *WalletTask) Run(ctx context.Context, changes *Mailbox[Change]) error {
	defer changes.Close()
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			t.refresh(ctx)
		case <-changes.Notify():
			dirty := false
			for _, ch := range changes.Drain() {
				st := ch.State
				if st.Wallet != t.wallet || st.Tradeable.Address != t.token {
					dirty = true
				}
				t.wallet, t.token, t.details = st.Wallet, st.Tradeable.Address, st.WalletDetails
			}
			if dirty {
				t.refresh(ctx)
			}
		}
	}
}

func (t *WalletTask) refresh(ctx context.Context) {
	if t.wallet == nil {
		if t.details != nil {
			t.store.Dispatch(widget.SetWalletDetails{})
			t.details = nil
		}
		return
	}
	ctx, cancel := context.WithTimeout(ctx, t.interval)
	defer cancel()

	details, err := t.fetch(ctx)
	if err != nil {
		t.log.Warnw("wallet_refresh_failed", "wallet", t.wallet.Name(), "err", err)
		return
	}
	if details.Equal(t.details) {
		return
	}
	t.details = details
	t.store.Dispatch(widget.SetWalletDetails{Details: details})
}

func (t *WalletTask) fetch(ctx context.Context) (*widget.WalletDetails, error) {
	account, err := t.wallet.Account(ctx)
	if err != nil {
		return nil, err
	}
	eth, err := t.wallet.EtherBalance(ctx, account)
	if err != nil {
		return nil, err
	}
	d := &widget.WalletDetails{Address: account, EtherBalance: eth}
	if t.token != (common.Address{}) {
		if d.TradeableBalance, err = t.wallet.TradeableBalance(ctx, t.token, account); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// DAITask quotes the DAI counter-volume of the current transaction. A new
// quote cancels the one in flight.
type DAITask struct {
	store Dispatcher
	log   *zap.SugaredLogger

	cancel context.CancelFunc
}

func NewDAITask(store Dispatcher, log *zap.SugaredLogger) *DAITask {
	return &DAITask{store: store, log: log}
}

type daiKey struct {
	wallet    wallet.Wallet
	op        orderbook.Operation
	volumeEth *big.Int
}

func keyOf(st widget.State) daiKey {
	k := daiKey{wallet: st.Wallet, op: st.Operation}
	if st.CurrentTransaction != nil {
		k.volumeEth = st.CurrentTransaction.CurrentVolumeEth()
	}
	return k
}

func (k daiKey) equal(o daiKey) bool {
	if k.wallet != o.wallet || k.op != o.op {
		return false
	}
	if k.volumeEth == nil || o.volumeEth == nil {
		return k.volumeEth == nil && o.volumeEth == nil
	}
	return k.volumeEth.Cmp(o.volumeEth) == 0
}

func (t *DAITask) Run(ctx context.Context, changes *Mailbox[Change]) error {
	defer t.stop()
	first := true
	return watch(ctx, changes, func(ch Change) {
		cur := keyOf(ch.State)
		if !first && cur.equal(keyOf(ch.Prev)) {
			return
		}
		first = false
		t.stop()
		if ch.State.CurrentTransactionDAI != nil {
			t.store.Dispatch(widget.SetDAIVolume{})
		}
		if cur.wallet == nil || cur.volumeEth == nil {
			return
		}
		qctx, cancel := context.WithCancel(ctx)
		t.cancel = cancel
		go t.quote(qctx, cur)
	})
}

func (t *DAITask) stop() {
	if t.cancel != nil {
		t.cancel()
		t.cancel = nil
	}
}

func (t *DAITask) quote(ctx context.Context, k daiKey) {
	dai, err := k.wallet.DAIAmount(ctx, k.op, k.volumeEth)
	if ctx.Err() != nil {
		return
	}
	if err != nil {
		t.log.Warnw("dai_quote_failed", "operation", k.op.String(), "volume_eth", k.volumeEth.String(), "err", err)
		return
	}
	t.store.Dispatch(widget.SetDAIVolume{Volume: dai})
}

// TxTask starts the executor for every accepted StartTransaction.
type TxTask struct {
	exec *Executor
	log  *zap.SugaredLogger
}

func NewTxTask(exec *Executor, log *zap.SugaredLogger) *TxTask {
	return &TxTask{exec: exec, log: log}
}

func (t *TxTask) Run(ctx context.Context, changes *Mailbox[Change]) error {
	return watch(ctx, changes, func(ch Change) {
		start, ok := ch.Action.(widget.StartTransaction)
		if !ok || ch.State.Tx.RunID != start.RunID || ch.Prev.Tx.RunID == start.RunID {
			return
		}
		go t.exec.Execute(ctx, ch.State)
	})
}
