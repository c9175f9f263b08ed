package model

import (
	"time"

	apperrors "nft-ticket-marketplace/pkg/app_errors"

	"github.com/google/uuid"
)

// TxPhase 單一寫入操作的生命週期階段
type TxPhase string

const (
	TxPhaseIdle                       TxPhase = "idle"
	TxPhaseSubmitting                 TxPhase = "submitting"
	TxPhaseAwaitingWalletConfirmation TxPhase = "awaiting_wallet_confirmation"
	TxPhaseAwaitingChainConfirmation  TxPhase = "awaiting_chain_confirmation"
	TxPhaseSettled                    TxPhase = "settled"
	TxPhaseFailed                     TxPhase = "failed"
)

var txTransitions = map[TxPhase][]TxPhase{
	TxPhaseIdle:                       {TxPhaseSubmitting},
	TxPhaseSubmitting:                 {TxPhaseAwaitingWalletConfirmation, TxPhaseAwaitingChainConfirmation, TxPhaseFailed},
	TxPhaseAwaitingWalletConfirmation: {TxPhaseAwaitingChainConfirmation, TxPhaseFailed},
	TxPhaseAwaitingChainConfirmation:  {TxPhaseSettled, TxPhaseFailed},
	// 結束狀態只能由使用者關閉（回到 idle）或開始新的操作
	TxPhaseSettled: {TxPhaseIdle, TxPhaseSubmitting},
	TxPhaseFailed:  {TxPhaseIdle, TxPhaseSubmitting},
}

// IsValid 驗證階段是否有效
func (p TxPhase) IsValid() bool {
	_, ok := txTransitions[p]
	return ok
}

// CanTransitionTo 檢查是否可以轉換到目標階段
func (p TxPhase) CanTransitionTo(target TxPhase) bool {
	for _, next := range txTransitions[p] {
		if next == target {
			return true
		}
	}
	return false
}

// IsTerminal settled / failed
func (p TxPhase) IsTerminal() bool {
	return p == TxPhaseSettled || p == TxPhaseFailed
}

// AcceptsSubmit idle / settled / failed 才能送出新操作
func (p TxPhase) AcceptsSubmit() bool {
	return p == TxPhaseIdle || p.IsTerminal()
}

// AwaitingWallet submitting 與 awaiting_wallet_confirmation 對使用者來說無法區分
func (p TxPhase) AwaitingWallet() bool {
	return p == TxPhaseSubmitting || p == TxPhaseAwaitingWalletConfirmation
}

// TxAction 透過 TxLifecycle 執行的寫入種類
type TxAction string

const (
	TxActionCreateEvent      TxAction = "create_event"
	TxActionBuyTicket        TxAction = "buy_ticket"
	TxActionCancelEvent      TxAction = "cancel_event"
	TxActionCloseEvent       TxAction = "close_event"
	TxActionClaimRefund      TxAction = "claim_refund"
	TxActionWithdrawProceeds TxAction = "withdraw_proceeds"
	TxActionListForResale    TxAction = "list_for_resale"
	TxActionBuyResale        TxAction = "buy_resale"
	TxActionCancelListing    TxAction = "cancel_listing"
	TxActionTransfer         TxAction = "transfer"
)

var txNotices = map[TxAction]string{
	TxActionCreateEvent:      "Event created",
	TxActionBuyTicket:        "Ticket purchased",
	TxActionCancelEvent:      "Event canceled",
	TxActionCloseEvent:       "Event closed",
	TxActionClaimRefund:      "Refund claimed",
	TxActionWithdrawProceeds: "Proceeds withdrawn",
	TxActionListForResale:    "Ticket listed for resale",
	TxActionBuyResale:        "Resale ticket purchased",
	TxActionCancelListing:    "Listing canceled",
	TxActionTransfer:         "Ticket transferred",
}

// SuccessNotice settled 時顯示的成功訊息
func (a TxAction) SuccessNotice() string {
	if n, ok := txNotices[a]; ok {
		return n
	}
	return "Transaction confirmed"
}

// TxFailure 失敗原因
type TxFailure struct {
	Kind    apperrors.ErrorKind `json:"kind"`
	Message string              `json:"message"`
}

// TxState 單一 slot 的交易狀態快照，不持久化
type TxState struct {
	OperationID uuid.UUID  `json:"operation_id"`
	Slot        string     `json:"slot"`
	Action      TxAction   `json:"action"`
	Phase       TxPhase    `json:"phase"`
	Hash        *string    `json:"hash"`
	Error       *TxFailure `json:"error"`
	Notice      string     `json:"notice,omitempty"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// ShortHash 顯示用的截斷 hash，例如 0x1234...abcd
func (s TxState) ShortHash() string {
	if s.Hash == nil {
		return ""
	}
	h := *s.Hash
	if len(h) <= 12 {
		return h
	}
	return h[:6] + "..." + h[len(h)-4:]
}
