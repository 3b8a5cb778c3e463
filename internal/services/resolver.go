package services

import (
	"context"

	"workfinder/internal/repositories"
)

// ChatResolver отвечает на вопрос "в какой чат слать код для этого телефона".
// Порядок источников фиксированный и значимый:
//
//  1. telegram_accounts — связка, созданная ботом при шаринге контакта;
//  2. profiles.telegram_chat_id — чат, сохранённый в профиле;
//  3. bot_sessions — незавершённый диалог с ботом, где телефон уже известен.
//
// Первое ненулевое совпадение выигрывает. 0 — чат не найден.
type ChatResolver interface {
	Resolve(ctx context.Context, phone string) (int64, error)
}

type chatResolver struct {
	accounts repositories.TelegramAccountRepository
	profiles repositories.ProfileRepository
}

func NewChatResolver(
	accounts repositories.TelegramAccountRepository,
	profiles repositories.ProfileRepository,
) ChatResolver {
	return &chatResolver{accounts: accounts, profiles: profiles}
}

func (r *chatResolver) Resolve(ctx context.Context, phone string) (int64, error) {
	if chatID, err := r.accounts.GetChatIDByPhone(ctx, phone); err != nil {
		return 0, err
	} else if chatID != 0 {
		return chatID, nil
	}

	if chatID, err := r.profiles.GetChatIDByPhone(phone); err != nil {
		return 0, err
	} else if chatID != 0 {
		return chatID, nil
	}

	return r.accounts.GetSessionChatIDByPhone(ctx, phone)
}
