package models

import "time"

const (
	BidPending   = "pending"
	BidAccepted  = "accepted"
	BidRejected  = "rejected"
	BidWithdrawn = "withdrawn"
)

type Bid struct {
	ID           int       `json:"id"`
	ProjectID    int       `json:"project_id"`
	FreelancerID int       `json:"freelancer_id"`
	Amount       int64     `json:"amount"` // копейки
	Days         int       `json:"days"`
	Message      string    `json:"message,omitempty"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
}
