package widget

import (
	"math/big"

	"github.com/google/uuid"

	"github.com/uhyunpark/daidex/pkg/app/core/orderbook"
	"github.com/uhyunpark/daidex/pkg/wallet"
)

// Action is an input to Reduce.
type Action interface {
	ActionName() string
}

type (
	SetAmount struct{ Amount string }

	SetOperation struct{ Operation orderbook.Operation }

	SetToken struct{ Token Token }

	SetWallet struct{ Wallet wallet.Wallet }

	SetWalletDetails struct{ Details *WalletDetails }

	SetDAIVolume struct{ Volume *big.Int }

	SetGasPrice struct{ GasPrice GasPrice }

	OrderBookEvent struct{ Event orderbook.Event }

	// StartTransaction begins a new submission run identified by RunID.
	StartTransaction struct{ RunID uuid.UUID }

	SetTransactionState struct{ State TransactionState }

	GoBack struct{}
)

func (SetAmount) ActionName() string           { return "setAmount" }
func (SetOperation) ActionName() string        { return "setOperation" }
func (SetToken) ActionName() string            { return "setToken" }
func (SetWallet) ActionName() string           { return "setWallet" }
func (SetWalletDetails) ActionName() string    { return "setWalletDetails" }
func (SetDAIVolume) ActionName() string        { return "setDAIVolume" }
func (SetGasPrice) ActionName() string         { return "setGasPrice" }
func (OrderBookEvent) ActionName() string      { return "orderbookEvent" }
func (StartTransaction) ActionName() string    { return "startTransaction" }
func (SetTransactionState) ActionName() string { return "setTransactionState" }
func (GoBack) ActionName() string              { return "goBack" }
