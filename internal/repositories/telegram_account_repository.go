package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

type TelegramAccountRepository interface {
	UpsertByPhone(ctx context.Context, phone string, chatID int64, username string) error
	GetChatIDByPhone(ctx context.Context, phone string) (int64, error)

	UpsertSession(ctx context.Context, chatID int64, state, phone string) error
	GetSessionChatIDByPhone(ctx context.Context, phone string) (int64, error)
}

type telegramAccountRepository struct{ db *sql.DB }

func NewTelegramAccountRepository(db *sql.DB) TelegramAccountRepository {
	return &telegramAccountRepository{db: db}
}

func (r *telegramAccountRepository) UpsertByPhone(ctx context.Context, phone string, chatID int64, username string) error {
	const q = `
		INSERT INTO telegram_accounts (phone, chat_id, username, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (phone) DO UPDATE SET chat_id = EXCLUDED.chat_id, username = EXCLUDED.username
	`
	if _, err := r.db.ExecContext(ctx, q, phone, chatID, nullIfEmpty(username), time.Now()); err != nil {
		return fmt.Errorf("telegram account upsert: %w", err)
	}
	return nil
}

func (r *telegramAccountRepository) GetChatIDByPhone(ctx context.Context, phone string) (int64, error) {
	var chatID int64
	err := r.db.QueryRowContext(ctx,
		`SELECT chat_id FROM telegram_accounts WHERE phone = $1`, phone).Scan(&chatID)
	if err != nil {
		if err == sql.ErrNoRows {
			return 0, nil
		}
		return 0, fmt.Errorf("telegram account chat id: %w", err)
	}
	return chatID, nil
}

func (r *telegramAccountRepository) UpsertSession(ctx context.Context, chatID int64, state, phone string) error {
	const q = `
		INSERT INTO bot_sessions (chat_id, state, phone, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (chat_id) DO UPDATE SET state = EXCLUDED.state, phone = EXCLUDED.phone, updated_at = EXCLUDED.updated_at
	`
	if _, err := r.db.ExecContext(ctx, q, chatID, state, nullIfEmpty(phone), time.Now()); err != nil {
		return fmt.Errorf("bot session upsert: %w", err)
	}
	return nil
}

func (r *telegramAccountRepository) GetSessionChatIDByPhone(ctx context.Context, phone string) (int64, error) {
	var chatID int64
	err := r.db.QueryRowContext(ctx, `
		SELECT chat_id FROM bot_sessions
		WHERE phone = $1
		ORDER BY updated_at DESC
		LIMIT 1
	`, phone).Scan(&chatID)
	if err != nil {
		if err == sql.ErrNoRows {
			return 0, nil
		}
		return 0, fmt.Errorf("bot session chat id: %w", err)
	}
	return chatID, nil
}
