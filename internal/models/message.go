package models

import "time"

type Message struct {
	ID          int       `json:"id"`
	ProjectID   int       `json:"project_id"`
	SenderID    int       `json:"sender_id"`
	RecipientID int       `json:"recipient_id"`
	Body        string    `json:"body"`
	Read        bool      `json:"read"`
	CreatedAt   time.Time `json:"created_at"`
}

// Conversation — сводка по переписке с одним собеседником.
type Conversation struct {
	PartnerID   int       `json:"partner_id"`
	ProjectID   int       `json:"project_id"`
	LastMessage string    `json:"last_message"`
	LastAt      time.Time `json:"last_at"`
	Unread      int       `json:"unread"`
}
