package runtime

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/uhyunpark/daidex/pkg/app/core/obmath"
	"github.com/uhyunpark/daidex/pkg/app/core/orderbook"
	"github.com/uhyunpark/daidex/pkg/app/widget"
	"github.com/uhyunpark/daidex/pkg/wallet"
)

var (
	errNoWallet      = errors.New("no wallet connected")
	errNoTransaction = errors.New("no transaction for the current amount")
	errNoDAIVolume   = errors.New("DAI volume not quoted yet")
)

// Run is everything a submission needs, frozen when it starts.
type Run struct {
	ID        uuid.UUID
	Wallet    wallet.Wallet
	Operation orderbook.Operation
	Token     common.Address
	GasPrice  *big.Int
	Tx        *obmath.TransactionInfo
	DAIVolume *big.Int
}

// RunFromState captures the submission inputs of st.
func RunFromState(st widget.State) (Run, error) {
	r := Run{
		ID:        st.Tx.RunID,
		Wallet:    st.Wallet,
		Operation: st.Operation,
		Token:     st.Tradeable.Address,
		Tx:        st.CurrentTransaction,
		DAIVolume: st.CurrentTransactionDAI,
	}
	switch {
	case r.Wallet == nil:
		return r, errNoWallet
	case r.Tx == nil:
		return r, errNoTransaction
	case r.DAIVolume == nil:
		return r, errNoDAIVolume
	}
	gas, err := widget.ComputeGasPrice(st.Config.GasPrices, st.GasPrice)
	if err != nil {
		return r, err
	}
	r.GasPrice = gas
	return r, nil
}

// Executor drives one submission through the allowance and trade steps,
// reporting each stage as a SetTransactionState action.
type Executor struct {
	store Dispatcher
	log   *zap.SugaredLogger
}

func NewExecutor(store Dispatcher, log *zap.SugaredLogger) *Executor {
	return &Executor{store: store, log: log}
}

// Execute runs the submission started in st and returns its final stage.
func (e *Executor) Execute(ctx context.Context, st widget.State) widget.TxStage {
	run, err := RunFromState(st)
	if err != nil {
		return e.fail(run.ID, err)
	}
	e.log.Infow("tx_run_started", "run", run.ID, "operation", run.Operation.String(),
		"token", run.Token.Hex(), "orders", len(run.Tx.Orders), "volume", run.Tx.CurrentVolume().String())

	var steps []step
	if run.Operation == orderbook.Buy {
		steps = []step{
			{widget.RequestDAIAllowanceSignature, widget.DAIAllowanceInProgress, func(ctx context.Context) (common.Hash, error) {
				return run.Wallet.ApproveDAIAllowance(ctx, run.DAIVolume, run.GasPrice)
			}},
			{widget.RequestTradeSignature, widget.TradeInProgress, func(ctx context.Context) (common.Hash, error) {
				return run.Wallet.DexdexBuy(ctx, run.Token, run.GasPrice, run.Tx, run.DAIVolume)
			}},
		}
	} else {
		steps = []step{
			{widget.RequestTokenAllowanceSignature, widget.TokenAllowanceInProgress, func(ctx context.Context) (common.Hash, error) {
				return run.Wallet.ApproveTokenAllowance(ctx, run.Token, run.Tx.CurrentVolume(), run.GasPrice)
			}},
			{widget.RequestTradeSignature, widget.TradeInProgress, func(ctx context.Context) (common.Hash, error) {
				return run.Wallet.DexdexSell(ctx, run.Token, run.GasPrice, run.Tx, run.DAIVolume)
			}},
		}
	}

	for _, s := range steps {
		e.report(run.ID, s.request, "", nil)
		hash, err := s.send(ctx)
		if err != nil {
			return e.fail(run.ID, fmt.Errorf("%s: %w", s.request, err))
		}
		e.report(run.ID, s.pending, hash.Hex(), nil)
		if _, err := run.Wallet.WaitForTransaction(ctx, hash); err != nil {
			return e.fail(run.ID, fmt.Errorf("%s %s: %w", s.pending, hash.Hex(), err))
		}
	}
	e.report(run.ID, widget.Completed, "", nil)
	e.log.Infow("tx_run_completed", "run", run.ID)
	return widget.Completed
}

type step struct {
	request widget.TxStage
	pending widget.TxStage
	send    func(ctx context.Context) (common.Hash, error)
}

func (e *Executor) fail(id uuid.UUID, err error) widget.TxStage {
	stage := widget.Failed
	if wallet.IsSignatureRejected(err) {
		stage = widget.SignatureRejected
	}
	e.log.Warnw("tx_run_failed", "run", id, "stage", stage, "err", err)
	e.report(id, stage, "", err)
	return stage
}

func (e *Executor) report(id uuid.UUID, stage widget.TxStage, txID string, err error) {
	ts := widget.TransactionState{RunID: id, Stage: stage, TxID: txID}
	if err != nil {
		ts.Err = err.Error()
	}
	e.store.Dispatch(widget.SetTransactionState{State: ts})
}
