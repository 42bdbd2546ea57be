package runtime

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/uhyunpark/daidex/pkg/app/widget"
	"github.com/uhyunpark/daidex/pkg/feed"
)

type Config struct {
	WalletPoll time.Duration
	FeedRetry  time.Duration
}

func DefaultConfig() Config {
	return Config{WalletPoll: 5 * time.Second, FeedRetry: 2 * time.Second}
}

// Runtime wires the store to its tasks.
type Runtime struct {
	Store *Store

	book   *BookTask
	wallet *WalletTask
	dai    *DAITask
	tx     *TxTask
	log    *zap.SugaredLogger
}

func New(cfg Config, initial widget.State, f feed.Feed, log *zap.SugaredLogger) *Runtime {
	store := NewStore(initial, log)
	return &Runtime{
		Store:  store,
		book:   NewBookTask(store, f, cfg.FeedRetry, log),
		wallet: NewWalletTask(store, cfg.WalletPoll, log),
		dai:    NewDAITask(store, log),
		tx:     NewTxTask(NewExecutor(store, log), log),
		log:    log,
	}
}

// Dispatch queues an action for the store.
func (r *Runtime) Dispatch(a widget.Action) { r.Store.Dispatch(a) }

// Run blocks until ctx ends or a task fails.
func (r *Runtime) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	// subscribe before the store starts so no change is missed
	book, wallet, dai, tx := r.Store.Subscribe(), r.Store.Subscribe(), r.Store.Subscribe(), r.Store.Subscribe()

	g.Go(func() error { return r.Store.Run(ctx) })
	g.Go(func() error { return r.book.Run(ctx, book) })
	g.Go(func() error { return r.wallet.Run(ctx, wallet) })
	g.Go(func() error { return r.dai.Run(ctx, dai) })
	g.Go(func() error { return r.tx.Run(ctx, tx) })

	r.log.Infow("runtime_started", "token", r.Store.State().Tradeable.Symbol)
	return g.Wait()
}
