package models

import "time"

const (
	WithdrawalPending    = "pending"
	WithdrawalProcessing = "processing"
	WithdrawalCompleted  = "completed"
	WithdrawalRejected   = "rejected"
)

const (
	WithdrawMethodCard   = "card"
	WithdrawMethodSBP    = "sbp"
	WithdrawMethodWallet = "wallet"
)

// Суммы везде в копейках.
type Withdrawal struct {
	ID          int       `json:"id"`
	ProfileID   int       `json:"profile_id"`
	Amount      int64     `json:"amount"`
	Fee         int64     `json:"fee"`
	Net         int64     `json:"net"`
	Method      string    `json:"method"`
	Destination string    `json:"destination"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}
