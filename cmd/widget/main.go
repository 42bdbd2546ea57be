// Command widget runs the trading widget headless: it follows the order book
// of one token, prices the requested amount and optionally submits the trade.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log"
	"math/big"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/google/uuid"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/uhyunpark/daidex/params"
	"github.com/uhyunpark/daidex/pkg/app/core/orderbook"
	"github.com/uhyunpark/daidex/pkg/app/runtime"
	"github.com/uhyunpark/daidex/pkg/app/widget"
	"github.com/uhyunpark/daidex/pkg/crypto"
	"github.com/uhyunpark/daidex/pkg/feed"
	"github.com/uhyunpark/daidex/pkg/util"
	"github.com/uhyunpark/daidex/pkg/wallet"
)

var errTradeFailed = errors.New("trade did not complete")

func main() {
	app := &cli.App{
		Name:  "widget",
		Usage: "headless DAI/token trading widget",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "env", Usage: "path to a .env file"},
			&cli.StringFlag{Name: "widget", Usage: "load the widget configuration published by the server under this id"},
			&cli.StringFlag{Name: "token", Usage: "token symbol; defaults to the first listed token"},
			&cli.StringFlag{Name: "operation", Value: "buy", Usage: "buy or sell"},
			&cli.StringFlag{Name: "amount", Value: "0", Usage: "token amount"},
			&cli.StringFlag{Name: "gas", Value: string(widget.GasNormal), Usage: "Slow, Normal or Fast"},
			&cli.BoolFlag{Name: "submit", Usage: "submit the trade once it is priced"},
			&cli.BoolFlag{Name: "yes", Aliases: []string{"y"}, Usage: "sign without asking"},
		},
		Action: run,
	}
	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func run(c *cli.Context) error {
	cfg := params.LoadFromEnv(c.String("env"))

	sugar, err := util.NewSugared(cfg.LogFile)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer sugar.Sync()

	if cfg.TokensFile != "" {
		if err := params.LoadTokens(&cfg, cfg.TokensFile); err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	httpFeed := feed.NewHTTPFeed(cfg.Feed.URL, cfg.Feed.Poll, sugar)
	var f feed.Feed = httpFeed
	if cfg.Feed.Mode == "ws" {
		f = feed.NewWSFeed(wsURL(cfg.Feed.URL), sugar)
	}

	wcfg := cfg.WidgetConfig()
	if id := c.String("widget"); id != "" {
		remote, err := httpFeed.WidgetConfig(ctx, id)
		if err != nil {
			return err
		}
		remote.Book = cfg.BookConfig()
		wcfg = remote
	}

	w, err := openWallet(ctx, cfg, c.Bool("yes"), sugar)
	if err != nil {
		return err
	}

	token, err := pickToken(wcfg.Tokens, c.String("token"))
	if err != nil {
		return err
	}
	op, err := orderbook.ParseOperation(c.String("operation"))
	if err != nil {
		return err
	}
	gas := widget.GasPrice(c.String("gas"))
	if _, err := widget.ComputeGasPrice(wcfg.GasPrices, gas); err != nil {
		return err
	}

	rt := runtime.New(runtime.Config{WalletPoll: cfg.Runtime.WalletPoll, FeedRetry: cfg.Runtime.FeedRetry},
		widget.NewState(wcfg, w), f, sugar)
	changes := rt.Store.Subscribe()

	rt.Dispatch(widget.SetToken{Token: token})
	rt.Dispatch(widget.SetOperation{Operation: op})
	rt.Dispatch(widget.SetGasPrice{GasPrice: gas})
	rt.Dispatch(widget.SetAmount{Amount: c.String("amount")})

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- rt.Run(ctx) }()

	o := &observer{rt: rt, submit: c.Bool("submit"), log: sugar}
	for {
		select {
		case err := <-done:
			return err
		case <-changes.Notify():
		}
		for _, ch := range changes.Drain() {
			finished, err := o.observe(ch)
			if finished {
				cancel()
				<-done
				return err
			}
		}
	}
}

// observer reports state changes and drives the optional submission.
type observer struct {
	rt      *runtime.Runtime
	submit  bool
	started bool
	log     *zap.SugaredLogger
}

func (o *observer) observe(ch runtime.Change) (bool, error) {
	st, prev := ch.State, ch.Prev

	if st.CurrentTransaction != prev.CurrentTransaction || !bigEq(st.CurrentTransactionDAI, prev.CurrentTransactionDAI) {
		minEth, maxEth := widget.TxEtherRange(st)
		feeEth, feeUSD := widget.NetworkFee(st)
		o.log.Infow("quote",
			"token", st.Tradeable.Symbol,
			"operation", st.Operation.String(),
			"amount", st.Amount,
			"valid", st.IsValidAmount,
			"amount_error", st.AmountError,
			"eth_min", minEth,
			"eth_max", maxEth,
			"dai", widget.TxDAIVolume(st),
			"network_fee_eth", feeEth,
			"network_fee_usd", feeUSD)
	}
	if !st.WalletDetails.Equal(prev.WalletDetails) && st.WalletDetails != nil {
		o.log.Infow("wallet_details", "address", st.WalletDetails.Address.Hex(),
			"ether", st.WalletDetails.EtherBalance, "tradeable", st.WalletDetails.TradeableBalance)
	}

	if !o.submit {
		return false, nil
	}
	if !o.started {
		if st.IsValidAmount && st.CurrentTransaction != nil && st.CurrentTransactionDAI != nil && st.WalletDetails != nil {
			o.started = true
			o.rt.Dispatch(widget.StartTransaction{RunID: uuid.New()})
		}
		return false, nil
	}
	if st.Tx.Stage != prev.Tx.Stage && st.Tx.Stage.Terminal() {
		o.log.Infow("trade_finished", "stage", st.Tx.Stage, "trade_tx", st.TradeTxHash,
			"approval_tx", st.ApprovalTxHash, "err", st.Tx.Err)
		if st.Tx.Stage != widget.Completed {
			return true, fmt.Errorf("%w: %s", errTradeFailed, st.Tx.Stage)
		}
		return true, nil
	}
	return false, nil
}

func openWallet(ctx context.Context, cfg params.Config, autoSign bool, log *zap.SugaredLogger) (wallet.Wallet, error) {
	if cfg.Chain.PrivateKey == "" {
		log.Warnw("wallet_missing", "hint", "set WALLET_PRIVATE_KEY to trade")
		return nil, nil
	}
	signer, err := crypto.FromPrivateKeyHex(cfg.Chain.PrivateKey)
	if err != nil {
		return nil, err
	}
	client, err := ethclient.DialContext(ctx, cfg.Chain.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", cfg.Chain.RPCURL, err)
	}
	opts := []wallet.Option{wallet.WithConfirm(promptConfirm)}
	if autoSign {
		opts = nil
	}
	return wallet.NewEthWallet("local", client, signer, big.NewInt(cfg.Chain.ChainID), wallet.Addresses{
		Dexdex:         cfg.Chain.Dexdex,
		DAI:            cfg.Chain.DAI,
		WETH:           cfg.Chain.WETH,
		MatchingMarket: cfg.Chain.MatchingMarket,
	}, log, opts...), nil
}

// promptConfirm asks on the terminal; anything but y rejects the signature.
func promptConfirm(ctx context.Context, req wallet.SignRequest) bool {
	fmt.Fprintf(os.Stderr, "Sign %s to %s carrying %s wei? [y/N] ", req.Kind, req.To.Hex(), req.Value)
	answer := make(chan string, 1)
	go func() {
		line, _ := bufio.NewReader(os.Stdin).ReadString('\n')
		answer <- strings.TrimSpace(strings.ToLower(line))
	}()
	select {
	case <-ctx.Done():
		return false
	case a := <-answer:
		return a == "y" || a == "yes"
	}
}

func pickToken(tokens []widget.Token, symbol string) (widget.Token, error) {
	if len(tokens) == 0 {
		return widget.Token{}, errors.New("no tokens configured")
	}
	if symbol == "" {
		return tokens[0], nil
	}
	for _, t := range tokens {
		if strings.EqualFold(t.Symbol, symbol) {
			return t, nil
		}
	}
	return widget.Token{}, fmt.Errorf("unknown token %q", symbol)
}

// wsURL maps the feed base URL onto the server's websocket endpoint.
func wsURL(base string) string {
	base = strings.TrimSuffix(base, "/")
	switch {
	case strings.HasPrefix(base, "https://"):
		base = "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		base = "ws://" + strings.TrimPrefix(base, "http://")
	}
	if strings.HasSuffix(base, "/ws") {
		return base
	}
	return base + "/ws"
}

func bigEq(a, b *big.Int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Cmp(b) == 0
}
