package wallet

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"github.com/uhyunpark/daidex/pkg/app/core/obmath"
	"github.com/uhyunpark/daidex/pkg/app/core/orderbook"
	"github.com/uhyunpark/daidex/pkg/contracts"
	"github.com/uhyunpark/daidex/pkg/crypto"
)

// Backend is the subset of ethclient.Client the wallet uses.
type Backend interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

// SignRequest describes a transaction waiting for the user's consent.
type SignRequest struct {
	Kind  string
	To    common.Address
	Value *big.Int
	Data  []byte
}

// ConfirmFunc asks the user to sign. Returning false rejects the signature.
type ConfirmFunc func(ctx context.Context, req SignRequest) bool

type Addresses struct {
	Dexdex         common.Address
	DAI            common.Address
	WETH           common.Address
	MatchingMarket common.Address
}

// EthWallet signs locally with a crypto.Signer and submits through an RPC backend.
type EthWallet struct {
	name     string
	backend  Backend
	signer   *crypto.Signer
	chainID  *big.Int
	addrs    Addresses
	confirm  ConfirmFunc
	pollWait time.Duration
	log      *zap.SugaredLogger
}

type Option func(*EthWallet)

// WithConfirm installs the consent prompt. Without one every request is signed.
func WithConfirm(fn ConfirmFunc) Option {
	return func(w *EthWallet) { w.confirm = fn }
}

// WithReceiptPoll sets how often WaitForTransaction polls for a receipt.
func WithReceiptPoll(d time.Duration) Option {
	return func(w *EthWallet) { w.pollWait = d }
}

func NewEthWallet(name string, backend Backend, signer *crypto.Signer, chainID *big.Int, addrs Addresses, log *zap.SugaredLogger, opts ...Option) *EthWallet {
	w := &EthWallet{
		name:     name,
		backend:  backend,
		signer:   signer,
		chainID:  chainID,
		addrs:    addrs,
		pollWait: time.Second,
		log:      log,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

func (w *EthWallet) Name() string { return w.name }

func (w *EthWallet) Account(ctx context.Context) (common.Address, error) {
	if w.signer == nil {
		return common.Address{}, ErrNoAccount
	}
	return w.signer.Address(), nil
}

func (w *EthWallet) EtherBalance(ctx context.Context, account common.Address) (*big.Int, error) {
	bal, err := w.backend.BalanceAt(ctx, account, nil)
	if err != nil {
		return nil, fmt.Errorf("ether balance: %w", err)
	}
	return bal, nil
}

func (w *EthWallet) TradeableBalance(ctx context.Context, token, account common.Address) (*big.Int, error) {
	data, err := contracts.PackBalanceOf(account)
	if err != nil {
		return nil, err
	}
	out, err := w.backend.CallContract(ctx, ethereum.CallMsg{To: &token, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("balanceOf %s: %w", token.Hex(), err)
	}
	return contracts.UnpackBalanceOf(out)
}

// DAIAmount asks the matching market what DAI volumeEth of WETH is worth:
// the pay amount when buying, the buy amount when selling.
func (w *EthWallet) DAIAmount(ctx context.Context, op orderbook.Operation, volumeEth *big.Int) (*big.Int, error) {
	var (
		data   []byte
		method string
		err    error
	)
	switch op {
	case orderbook.Buy:
		method = "getPayAmount"
		data, err = contracts.PackGetPayAmount(w.addrs.DAI, w.addrs.WETH, volumeEth)
	case orderbook.Sell:
		method = "getBuyAmount"
		data, err = contracts.PackGetBuyAmount(w.addrs.DAI, w.addrs.WETH, volumeEth)
	default:
		return nil, fmt.Errorf("dai amount: no operation")
	}
	if err != nil {
		return nil, err
	}
	out, err := w.backend.CallContract(ctx, ethereum.CallMsg{To: &w.addrs.MatchingMarket, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", method, err)
	}
	return contracts.UnpackMarketAmount(method, out)
}

func (w *EthWallet) ApproveTokenAllowance(ctx context.Context, token common.Address, volume, gasPrice *big.Int) (common.Hash, error) {
	data, err := contracts.PackApprove(w.addrs.Dexdex, volume)
	if err != nil {
		return common.Hash{}, err
	}
	return w.send(ctx, "approve_token", token, new(big.Int), data, gasPrice)
}

func (w *EthWallet) ApproveDAIAllowance(ctx context.Context, volume, gasPrice *big.Int) (common.Hash, error) {
	data, err := contracts.PackApprove(w.addrs.Dexdex, volume)
	if err != nil {
		return common.Hash{}, err
	}
	return w.send(ctx, "approve_dai", w.addrs.DAI, new(big.Int), data, gasPrice)
}

func (w *EthWallet) DexdexBuy(ctx context.Context, token common.Address, gasPrice *big.Int, tx *obmath.TransactionInfo, daiVolume *big.Int) (common.Hash, error) {
	call, err := contracts.PackBuy(token, tx, daiVolume)
	if err != nil {
		return common.Hash{}, err
	}
	return w.send(ctx, "dexdex_buy", w.addrs.Dexdex, call.Value, call.Data, gasPrice)
}

func (w *EthWallet) DexdexSell(ctx context.Context, token common.Address, gasPrice *big.Int, tx *obmath.TransactionInfo, daiVolume *big.Int) (common.Hash, error) {
	call, err := contracts.PackSell(token, tx, daiVolume)
	if err != nil {
		return common.Hash{}, err
	}
	return w.send(ctx, "dexdex_sell", w.addrs.Dexdex, call.Value, call.Data, gasPrice)
}

func (w *EthWallet) send(ctx context.Context, kind string, to common.Address, value *big.Int, data []byte, gasPrice *big.Int) (common.Hash, error) {
	from, err := w.Account(ctx)
	if err != nil {
		return common.Hash{}, err
	}

	if w.confirm != nil && !w.confirm(ctx, SignRequest{Kind: kind, To: to, Value: value, Data: data}) {
		w.log.Infow("signature_rejected", "kind", kind, "to", to.Hex())
		return common.Hash{}, ErrSignatureRejected
	}

	nonce, err := w.backend.PendingNonceAt(ctx, from)
	if err != nil {
		return common.Hash{}, fmt.Errorf("%s: nonce: %w", kind, err)
	}
	gas, err := w.backend.EstimateGas(ctx, ethereum.CallMsg{
		From:     from,
		To:       &to,
		GasPrice: gasPrice,
		Value:    value,
		Data:     data,
	})
	if err != nil {
		return common.Hash{}, fmt.Errorf("%s: estimate gas: %w", kind, err)
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &to,
		Value:    value,
		Gas:      gas,
		GasPrice: gasPrice,
		Data:     data,
	})
	signed, err := w.signer.SignTx(tx, w.chainID)
	if err != nil {
		return common.Hash{}, fmt.Errorf("%s: %w", kind, err)
	}
	if err := w.backend.SendTransaction(ctx, signed); err != nil {
		return common.Hash{}, fmt.Errorf("%s: send: %w", kind, err)
	}

	w.log.Infow("tx_sent", "kind", kind, "hash", signed.Hash().Hex(), "nonce", nonce, "gas", gas)
	return signed.Hash(), nil
}

// WaitForTransaction polls for the receipt of txID. A receipt with a failed
// status is returned together with ErrTransactionReverted.
func (w *EthWallet) WaitForTransaction(ctx context.Context, txID common.Hash) (*types.Receipt, error) {
	ticker := time.NewTicker(w.pollWait)
	defer ticker.Stop()

	for {
		receipt, err := w.backend.TransactionReceipt(ctx, txID)
		switch {
		case err == nil:
			if receipt.Status != types.ReceiptStatusSuccessful {
				return receipt, fmt.Errorf("%w: %s", ErrTransactionReverted, txID.Hex())
			}
			return receipt, nil
		case errors.Is(err, ethereum.NotFound):
		default:
			w.log.Warnw("receipt_poll_failed", "hash", txID.Hex(), "err", err)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}
