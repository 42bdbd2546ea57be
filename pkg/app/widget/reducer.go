package widget

import (
	"errors"
	"math/big"
	"strings"

	"github.com/uhyunpark/daidex/pkg/app/core/obmath"
	"github.com/uhyunpark/daidex/pkg/app/core/orderbook"
	"github.com/uhyunpark/daidex/pkg/units"
)

const insufficientLiquidityMsg = "not enough liquidity for this amount"

// Reduce applies action to prev and returns the next state. It is pure and
// total: actions that do not apply (stale book events, out-of-order
// transaction states) return prev unchanged.
//
// After the direct update the steps run in a fixed order, each reading what
// the previous ones wrote: token change, pristine amount autofill, amount
// validity, current transaction.
func Reduce(prev State, action Action) State {
	st, ok := applySetters(prev, action)
	if !ok {
		return prev
	}

	tokenChanged := st.Tradeable != prev.Tradeable
	if tokenChanged {
		// the feed refetches the new token's book
		st.OrderBook = nil
		st.Amount = units.FixDecimals(st.Amount, st.Tradeable.Decimals)
	}

	bookChanged := bookVersion(prev.OrderBook) != bookVersion(st.OrderBook)
	if st.AmountPristine && st.OrderBook != nil && (st.Operation != prev.Operation || bookChanged) {
		if side := st.CurrentSide(); side != nil {
			st.Amount = units.RemoveExtraZeros(units.FromTokenDecimals(side.MinVolume(), st.Tradeable.Decimals))
		}
	}

	curSide := st.CurrentSide()
	sideChanged := prev.CurrentSide().Version() != curSide.Version()
	amountChanged := st.Amount != prev.Amount

	if sideChanged || amountChanged || tokenChanged {
		st.IsValidAmount = isValidAmount(st.Amount, st.Tradeable.Decimals, curSide)
		st.AmountError = ""
	}

	switch {
	case curSide == nil || !st.IsValidAmount:
		st.CurrentTransaction = nil
	case sideChanged:
		st = recompute(st, curSide)
	case amountChanged:
		volume, err := units.ToTokenDecimals(st.Amount, st.Tradeable.Decimals)
		if err == nil && st.CurrentTransaction != nil {
			if next, err := st.CurrentTransaction.ChangeVolume(volume); err == nil {
				st.CurrentTransaction = next
				break
			}
		}
		st = recompute(st, curSide)
	}

	return st
}

func applySetters(st State, action Action) (State, bool) {
	switch a := action.(type) {
	case SetAmount:
		st.Amount = a.Amount
		st.AmountPristine = false
	case SetGasPrice:
		st.GasPrice = a.GasPrice
	case SetOperation:
		st.Operation = a.Operation
	case SetWallet:
		st.Wallet = a.Wallet
	case SetWalletDetails:
		st.WalletDetails = a.Details
	case SetDAIVolume:
		st.CurrentTransactionDAI = a.Volume
	case SetToken:
		st.Tradeable = a.Token
	case OrderBookEvent:
		if a.Event.Token != st.Tradeable.Address {
			return st, false
		}
		book := st.OrderBook
		if book == nil {
			book = orderbook.New(bookConfig(st.Config), st.Tradeable.Address)
		}
		next, err := book.Apply(a.Event)
		if err != nil {
			return st, false
		}
		st.OrderBook = next
	case StartTransaction:
		if st.Busy() {
			return st, false
		}
		st.Tx = TransactionState{RunID: a.RunID, Stage: Idle}
		st.TradeTxHash = ""
		st.ApprovalTxHash = ""
		st.Screen = ScreenForm
	case SetTransactionState:
		if a.State.RunID != st.Tx.RunID || !st.Tx.Stage.CanAdvance(a.State.Stage) {
			return st, false
		}
		st.Tx = a.State
		switch a.State.Stage {
		case TradeInProgress:
			st.TradeTxHash = a.State.TxID
		case TokenAllowanceInProgress, DAIAllowanceInProgress:
			st.ApprovalTxHash = a.State.TxID
		}
		st.Screen = ScreenFor(a.State.Stage)
	case GoBack:
		if !st.Tx.Stage.Terminal() {
			return st, false
		}
		st.Tx = TransactionState{Stage: Idle}
		st.Screen = ScreenForm
	default:
		return st, false
	}
	return st, true
}

func bookConfig(cfg Config) orderbook.Config {
	if cfg.Book.MinVolumeEth == nil || cfg.Book.MaxTransactionOrders < 1 {
		return orderbook.DefaultConfig()
	}
	return cfg.Book
}

func bookVersion(b *orderbook.OrderBook) [2]uint64 {
	if b == nil {
		return [2]uint64{}
	}
	return [2]uint64{b.Buys.Version(), b.Sells.Version()}
}

// isValidAmount is optimistic while no book is loaded, but the amount must
// still be a plain decimal.
func isValidAmount(amount string, decimals int, side *orderbook.Side) bool {
	if amount == "" || !units.IsPlainDecimal(strings.TrimSpace(amount)) {
		return false
	}
	if side == nil {
		return true
	}
	volume, err := units.ToTokenDecimals(amount, decimals)
	if err != nil {
		return false
	}
	return side.IsValidVolume(volume)
}

func recompute(st State, side *orderbook.Side) State {
	st.CurrentTransaction = nil
	volume, err := units.ToTokenDecimals(st.Amount, st.Tradeable.Decimals)
	if err != nil {
		st.IsValidAmount = false
		return st
	}
	tx, err := side.ComputeTransaction(volume)
	if err != nil {
		st.IsValidAmount = false
		if errors.Is(err, obmath.ErrInsufficientLiquidity) {
			st.AmountError = insufficientLiquidityMsg
		} else {
			st.AmountError = err.Error()
		}
		return st
	}
	st.CurrentTransaction = tx
	return st
}

// AmountTD is the amount in token base units, or nil if it does not parse.
func AmountTD(st State) *big.Int {
	v, err := units.ToTokenDecimals(st.Amount, st.Tradeable.Decimals)
	if err != nil {
		return nil
	}
	return v
}
