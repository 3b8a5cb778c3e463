package models

import (
	"encoding/json"
	"time"
)

// Статусы доставки/подтверждения кода.
const (
	VerificationPending  = "pending"
	VerificationSent     = "sent"
	VerificationVerified = "verified"
	VerificationFailed   = "failed" // ошибка доставки; код остаётся действительным
)

const (
	VerificationTTL         = 10 * time.Minute
	VerificationMaxAttempts = 3
	// переотправка разрешается, когда коду осталось жить меньше этого
	VerificationResendAfter = 5 * time.Minute
)

// TelegramVerification — одна запись на активный код для телефона.
// Код хранится в открытом виде: повторный запрос возвращает ту же запись,
// и её нужно уметь доставить заново.
type TelegramVerification struct {
	ID          string          `json:"id"`
	Phone       string          `json:"phone"`
	Code        string          `json:"-"`
	Status      string          `json:"status"`
	Attempts    int             `json:"attempts"`
	MaxAttempts int             `json:"max_attempts"`
	ExpiresAt   time.Time       `json:"expires_at"`
	Metadata    json.RawMessage `json:"metadata,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// Active — запись ещё можно подтвердить кодом (pending/sent и не протухла).
func (v *TelegramVerification) Active(now time.Time) bool {
	if v.Status != VerificationPending && v.Status != VerificationSent {
		return false
	}
	return now.Before(v.ExpiresAt)
}

// Redeemable — как Active, но статус failed (доставка не удалась) не мешает
// подтверждению: код мог дойти другим путём.
func (v *TelegramVerification) Redeemable(now time.Time) bool {
	if v.Status == VerificationVerified {
		return false
	}
	return now.Before(v.ExpiresAt)
}

func (v *TelegramVerification) AttemptsLeft() int {
	left := v.MaxAttempts - v.Attempts
	if left < 0 {
		return 0
	}
	return left
}
