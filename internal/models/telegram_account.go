package models

import "time"

// TelegramAccount — связка телефон ↔ chat_id, создаётся ботом при шаринге контакта.
// Первый источник для резолвера доставки кодов.
type TelegramAccount struct {
	ID        int       `json:"id"`
	Phone     string    `json:"phone"`
	ChatID    int64     `json:"chat_id"`
	Username  string    `json:"username,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// BotSession — временная сессия диалога с ботом (до привязки аккаунта).
type BotSession struct {
	ID        int       `json:"id"`
	ChatID    int64     `json:"chat_id"`
	Phone     string    `json:"phone,omitempty"`
	State     string    `json:"state"`
	UpdatedAt time.Time `json:"updated_at"`
}
