package model

import (
	"time"

	"github.com/google/uuid"
)

// Activity 交易結束後寫入的紀錄（只在 settled / failed 之後產生）
type Activity struct {
	ID          int       `json:"id" db:"id"`
	OperationID uuid.UUID `json:"operation_id" db:"operation_id"`
	Wallet      string    `json:"wallet" db:"wallet"`
	Action      TxAction  `json:"action" db:"action"`
	TicketID    *int64    `json:"ticket_id,omitempty" db:"ticket_id"`
	TokenID     *int64    `json:"token_id,omitempty" db:"token_id"`
	Hash        *string   `json:"hash,omitempty" db:"hash"`
	Outcome     TxPhase   `json:"outcome" db:"outcome"`
	ErrorKind   *string   `json:"error_kind,omitempty" db:"error_kind"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// Succeeded 是否為成功的交易
func (a *Activity) Succeeded() bool {
	return a.Outcome == TxPhaseSettled
}
