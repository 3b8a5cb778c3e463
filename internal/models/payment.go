package models

import "time"

const (
	PaymentCreated  = "created"
	PaymentCaptured = "captured"
	PaymentFailed   = "failed"
)

// Payment — пополнение баланса через платёжный шлюз.
type Payment struct {
	ID        int       `json:"id"`
	ProfileID int       `json:"profile_id"`
	OrderID   string    `json:"order_id"` // id заказа на стороне шлюза, уникален
	Amount    int64     `json:"amount"`   // копейки
	Currency  string    `json:"currency"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}
