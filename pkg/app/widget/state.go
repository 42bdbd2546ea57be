// Package widget holds the trading widget's state and the pure reducer that
// moves it forward one action at a time.
package widget

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/uhyunpark/daidex/pkg/app/core/obmath"
	"github.com/uhyunpark/daidex/pkg/app/core/orderbook"
	"github.com/uhyunpark/daidex/pkg/wallet"
)

type WalletDetails struct {
	Address          common.Address `json:"address"`
	EtherBalance     *big.Int       `json:"etherBalance"`
	TradeableBalance *big.Int       `json:"tradeableBalance,omitempty"`
}

// Equal compares by value; nil only equals nil.
func (d *WalletDetails) Equal(o *WalletDetails) bool {
	if d == nil || o == nil {
		return d == o
	}
	return d.Address == o.Address && bigEqual(d.EtherBalance, o.EtherBalance) &&
		bigEqual(d.TradeableBalance, o.TradeableBalance)
}

func bigEqual(a, b *big.Int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Cmp(b) == 0
}

// State is an immutable snapshot. Reduce returns a new State and never
// modifies the one it was given; pointer fields are shared read-only.
type State struct {
	Config Config

	Operation orderbook.Operation
	Tradeable Token
	Wallet    wallet.Wallet

	// Amount is in tokens, as typed by the user
	Amount         string
	AmountPristine bool
	IsValidAmount  bool
	AmountError    string

	OrderBook *orderbook.OrderBook
	GasPrice  GasPrice
	Screen    Screen

	WalletDetails         *WalletDetails
	CurrentTransaction    *obmath.TransactionInfo
	CurrentTransactionDAI *big.Int

	Tx             TransactionState
	TradeTxHash    string
	ApprovalTxHash string
}

// NewState is the state a widget starts in: buying the first listed token
// with a pristine zero amount.
func NewState(cfg Config, w wallet.Wallet) State {
	st := State{
		Config:         cfg,
		Operation:      orderbook.Buy,
		Wallet:         w,
		Amount:         "0",
		AmountPristine: true,
		GasPrice:       GasNormal,
		Screen:         ScreenForm,
		Tx:             TransactionState{Stage: Idle},
	}
	if len(cfg.Tokens) > 0 {
		st.Tradeable = cfg.Tokens[0]
	}
	return st
}

// CurrentSide is the book side the current operation trades against.
func (s State) CurrentSide() *orderbook.Side {
	return s.OrderBook.Side(s.Operation)
}

// Busy reports whether a submission is in flight.
func (s State) Busy() bool {
	return s.Tx.Stage != Idle && !s.Tx.Stage.Terminal()
}
