// Package wallet is the signing side of the widget: balances, quotes and the
// allowance and trade transactions a submission needs.
package wallet

import (
	"context"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/uhyunpark/daidex/pkg/app/core/obmath"
	"github.com/uhyunpark/daidex/pkg/app/core/orderbook"
)

var (
	// ErrSignatureRejected means the user declined to sign.
	ErrSignatureRejected = errors.New("wallet: signature rejected")
	// ErrNoAccount means the wallet has no unlocked account.
	ErrNoAccount = errors.New("wallet: no account selected")
	// ErrTransactionReverted means the transaction was mined with a failed status.
	ErrTransactionReverted = errors.New("wallet: transaction reverted")
)

// userRejectedCode is the EIP-1193 provider error for a declined request.
const userRejectedCode = 4001

// IsSignatureRejected reports whether err means the user declined to sign,
// either through ErrSignatureRejected or an EIP-1193 4001 RPC error.
func IsSignatureRejected(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrSignatureRejected) {
		return true
	}
	var rpcErr rpc.Error
	return errors.As(err, &rpcErr) && rpcErr.ErrorCode() == userRejectedCode
}

// Wallet is everything the widget runtime needs from a signing account.
type Wallet interface {
	Name() string
	Account(ctx context.Context) (common.Address, error)

	EtherBalance(ctx context.Context, account common.Address) (*big.Int, error)
	TradeableBalance(ctx context.Context, token, account common.Address) (*big.Int, error)

	// DAIAmount quotes the DAI counter-volume of volumeEth for op.
	DAIAmount(ctx context.Context, op orderbook.Operation, volumeEth *big.Int) (*big.Int, error)

	ApproveTokenAllowance(ctx context.Context, token common.Address, volume, gasPrice *big.Int) (common.Hash, error)
	ApproveDAIAllowance(ctx context.Context, volume, gasPrice *big.Int) (common.Hash, error)
	DexdexBuy(ctx context.Context, token common.Address, gasPrice *big.Int, tx *obmath.TransactionInfo, daiVolume *big.Int) (common.Hash, error)
	DexdexSell(ctx context.Context, token common.Address, gasPrice *big.Int, tx *obmath.TransactionInfo, daiVolume *big.Int) (common.Hash, error)

	// WaitForTransaction blocks until txID is mined or ctx ends.
	WaitForTransaction(ctx context.Context, txID common.Hash) (*types.Receipt, error)
}
