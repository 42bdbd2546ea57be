package widget

import (
	"github.com/google/uuid"
)

// TxStage is a step of the submission state machine.
type TxStage string

const (
	Idle                           TxStage = "Idle"
	RequestDAIAllowanceSignature   TxStage = "RequestDAIAllowanceSignature"
	DAIAllowanceInProgress         TxStage = "DAIAllowanceInProgress"
	RequestTokenAllowanceSignature TxStage = "RequestTokenAllowanceSignature"
	TokenAllowanceInProgress       TxStage = "TokenAllowanceInProgress"
	RequestTradeSignature          TxStage = "RequestTradeSignature"
	TradeInProgress                TxStage = "TradeInProgress"
	Completed                      TxStage = "Completed"
	Failed                         TxStage = "Failed"
	SignatureRejected              TxStage = "SignatureRejected"
)

// Screen is what the UI shows.
type Screen string

const (
	ScreenForm                 Screen = "form"
	ScreenError                Screen = "error"
	ScreenTradeSuccess         Screen = "tradeSuccess"
	ScreenSignatureTrade       Screen = "signatureTrade"
	ScreenSignatureApproval    Screen = "signatureApproval"
	ScreenSignatureDAIApproval Screen = "signatureDAIApproval"
	ScreenWaitingApproval      Screen = "waitingApproval"
	ScreenWaitingDAIApproval   Screen = "waitingDAIApproval"
	ScreenWaitingTrade         Screen = "waitingTrade"
	ScreenRejectedSignature    Screen = "rejectedSignature"
)

var stageScreens = map[TxStage]Screen{
	Idle:                           ScreenForm,
	TokenAllowanceInProgress:       ScreenWaitingApproval,
	DAIAllowanceInProgress:         ScreenWaitingDAIApproval,
	TradeInProgress:                ScreenWaitingTrade,
	RequestTokenAllowanceSignature: ScreenSignatureApproval,
	RequestDAIAllowanceSignature:   ScreenSignatureDAIApproval,
	RequestTradeSignature:          ScreenSignatureTrade,
	Completed:                      ScreenTradeSuccess,
	Failed:                         ScreenError,
	SignatureRejected:              ScreenRejectedSignature,
}

// stageRank orders stages along a run; both allowance variants share a rank.
var stageRank = map[TxStage]int{
	Idle:                           0,
	RequestDAIAllowanceSignature:   1,
	RequestTokenAllowanceSignature: 1,
	DAIAllowanceInProgress:         2,
	TokenAllowanceInProgress:       2,
	RequestTradeSignature:          3,
	TradeInProgress:                4,
	Completed:                      5,
	Failed:                         5,
	SignatureRejected:              5,
}

// ScreenFor maps a stage to its screen. Unknown stages show the error screen.
func ScreenFor(stage TxStage) Screen {
	if s, ok := stageScreens[stage]; ok {
		return s
	}
	return ScreenError
}

// Terminal reports whether a run has ended at stage.
func (s TxStage) Terminal() bool {
	return s == Completed || s == Failed || s == SignatureRejected
}

// CanAdvance reports whether a run may move from s to next.
// Runs only move forward and never leave a terminal stage.
func (s TxStage) CanAdvance(next TxStage) bool {
	from, ok1 := stageRank[s]
	to, ok2 := stageRank[next]
	return ok1 && ok2 && !s.Terminal() && to > from
}

// TransactionState is one step reported by the transaction runner.
// TxID is set for the in-progress stages.
type TransactionState struct {
	RunID uuid.UUID `json:"runId"`
	Stage TxStage   `json:"stage"`
	TxID  string    `json:"txId,omitempty"`
	Err   string    `json:"error,omitempty"`
}
