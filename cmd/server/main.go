package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/uhyunpark/daidex/params"
	"github.com/uhyunpark/daidex/pkg/api"
	"github.com/uhyunpark/daidex/pkg/market"
	"github.com/uhyunpark/daidex/pkg/service"
	"github.com/uhyunpark/daidex/pkg/storage"
	"github.com/uhyunpark/daidex/pkg/util"
)

func main() {
	// Load config from .env file and environment variables
	cfg := params.LoadFromEnv("") // "" means load from .env in current directory

	sugar, err := util.NewSugared(cfg.LogFile)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer sugar.Sync()

	if cfg.TokensFile != "" {
		if err := params.LoadTokens(&cfg, cfg.TokensFile); err != nil {
			sugar.Fatalw("tokens_load_failed", "file", cfg.TokensFile, "err", err)
		}
	}
	sugar.Infow("config_loaded", "tokens", len(cfg.Widget.Tokens), "addr", cfg.Server.Addr,
		"store", cfg.Server.StorePath, "log_file", cfg.LogFile)

	store, err := openStore(cfg.Server.StorePath, sugar)
	if err != nil {
		sugar.Fatalw("store_open_failed", "path", cfg.Server.StorePath, "err", err)
	}
	defer store.Close()

	var wal storage.EventLog = storage.NewNopWAL()
	if cfg.Server.EventLog != "" {
		fw, err := storage.NewFileWAL(cfg.Server.EventLog)
		if err != nil {
			sugar.Fatalw("event_log_open_failed", "path", cfg.Server.EventLog, "err", err)
		}
		defer fw.Close()
		wal = fw
	}

	hub := api.NewHub(sugar)
	books := service.NewBookService(store, wal, hub, sugar)
	hub.SetSubscribeHook(books.OnSubscribe)
	if err := books.Load(); err != nil {
		sugar.Fatalw("books_load_failed", "err", err)
	}

	mkt := market.New(market.Config{
		GasURL:         cfg.Server.GasURL,
		PriceURL:       cfg.Server.PriceURL,
		PollWait:       cfg.Server.MarketPoll,
		FallbackGas:    cfg.Widget.GasPrices,
		FallbackEthUSD: cfg.Widget.EthersToUSD,
	}, util.RealClock{}, sugar)
	catalog := service.NewWidgetService(cfg.WidgetConfig(), mkt, cfg.Widget.WidgetIDs...)

	server := api.NewServer(books, catalog, hub, cfg.Server.CORSOrigins, sugar)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return mkt.Run(ctx) })
	g.Go(func() error { return server.Run(ctx, cfg.Server.Addr) })

	if err := g.Wait(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		sugar.Errorw("server_stopped", "err", err)
		return
	}
	sugar.Infow("server_stopped")
}

func openStore(path string, log *zap.SugaredLogger) (storage.BookStore, error) {
	if path == "" {
		log.Warnw("store_in_memory", "hint", "set STORE_PATH to persist books")
		return storage.NewInMemoryStore(), nil
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, err
	}
	return storage.NewPebbleStore(path)
}
