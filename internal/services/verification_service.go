package services

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math/big"
	"time"

	"github.com/google/uuid"

	"workfinder/internal/authz"
	"workfinder/internal/cache"
	"workfinder/internal/models"
	"workfinder/internal/repositories"
	"workfinder/internal/utils"
)

var (
	ErrRequestNotFound = errors.New("verification request not found")
	ErrAlreadyVerified = errors.New("already verified")
	ErrTooManyAttempts = errors.New("too many attempts")
	ErrCodeExpired     = errors.New("code expired")
)

// RateLimitError — превышен лимит запросов кода; RetryAfter — сколько ждать.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded, retry after %s", e.RetryAfter)
}

// InvalidCodeError — код не совпал; AttemptsLeft — сколько попыток осталось.
type InvalidCodeError struct {
	AttemptsLeft int
}

func (e *InvalidCodeError) Error() string {
	return fmt.Sprintf("invalid code, %d attempts left", e.AttemptsLeft)
}

// лимит запросов кода на телефон
const (
	sendLimitPerWindow = 5
	sendWindow         = time.Hour
)

type VerificationStore interface {
	Create(v *models.TelegramVerification) error
	GetByID(id string) (*models.TelegramVerification, error)
	GetActiveByPhone(phone string, now time.Time) (*models.TelegramVerification, error)
	UpdateDelivery(id, status, deliveryErr string) error
	IncrementAttempts(id string) (int, error)
	MarkVerified(id string) (bool, error)
}

type RateLimiter interface {
	CheckRateLimit(ctx context.Context, key string, limit int64, window time.Duration) cache.RateLimitResult
}

// CodeDeliverer — канал доставки кода (телеграм-бот).
type CodeDeliverer interface {
	SendCode(ctx context.Context, chatID int64, code string) error
}

type VerificationService struct {
	Repo     VerificationStore
	Profiles repositories.ProfileRepository
	Limiter  RateLimiter
	Resolver ChatResolver
	Delivery CodeDeliverer
}

func NewVerificationService(
	repo VerificationStore,
	profiles repositories.ProfileRepository,
	limiter RateLimiter,
	resolver ChatResolver,
	delivery CodeDeliverer,
) *VerificationService {
	return &VerificationService{
		Repo:     repo,
		Profiles: profiles,
		Limiter:  limiter,
		Resolver: resolver,
		Delivery: delivery,
	}
}

type SendResult struct {
	RequestID      string
	Status         string
	ExpiresIn      time.Duration
	CanResend      bool
	AlreadySent    bool // повторный запрос при живом коде
	DeliveryStatus string
}

// SendMeta — контекст запроса кода, пишется в metadata записи.
type SendMeta struct {
	Origin    string
	UserID    string
	SessionID string
}

// SendCode — выдача кода. Телефон нормализуется; лимит 5/час на телефон
// (скользящее окно в redis, fail-open); при живой записи возвращается она же,
// без нового кода.
func (s *VerificationService) SendCode(ctx context.Context, rawPhone string, meta SendMeta) (*SendResult, error) {
	phone, err := utils.NormalizePhone(rawPhone)
	if err != nil {
		return nil, err
	}

	rl := s.Limiter.CheckRateLimit(ctx, "otp:send:"+phone, sendLimitPerWindow, sendWindow)
	if !rl.Allowed {
		log.Printf("[otp][send] rate limited phone=%s retry_after=%s", phone, rl.RetryAfter)
		return nil, &RateLimitError{RetryAfter: rl.RetryAfter}
	}

	now := time.Now()
	if existing, err := s.Repo.GetActiveByPhone(phone, now); err != nil {
		return nil, err
	} else if existing != nil {
		return s.reuse(ctx, existing, now), nil
	}

	code, err := generateCode(6)
	if err != nil {
		return nil, fmt.Errorf("generate code: %w", err)
	}

	fields := map[string]string{"origin": meta.Origin}
	if meta.UserID != "" {
		fields["userId"] = meta.UserID
	}
	if meta.SessionID != "" {
		fields["sessionId"] = meta.SessionID
	}
	raw, _ := json.Marshal(fields)
	v := &models.TelegramVerification{
		ID:          uuid.NewString(),
		Phone:       phone,
		Code:        code,
		Status:      models.VerificationPending,
		MaxAttempts: models.VerificationMaxAttempts,
		ExpiresAt:   now.Add(models.VerificationTTL),
		Metadata:    raw,
		CreatedAt:   now,
	}
	if err := s.Repo.Create(v); err != nil {
		if !errors.Is(err, repositories.ErrActiveExists) {
			return nil, err
		}
		// проигрыш гонки: активная запись уже вставлена параллельным запросом
		existing, gerr := s.Repo.GetActiveByPhone(phone, now)
		if gerr != nil {
			return nil, gerr
		}
		if existing != nil {
			return s.reuse(ctx, existing, now), nil
		}
		// конфликт с уже протухшей строкой; повторная вставка её вычистит
		if err := s.Repo.Create(v); err != nil {
			return nil, err
		}
	}

	// Доставка. Неудача не гасит код: он остаётся действительным.
	status := s.deliver(ctx, v)

	return &SendResult{
		RequestID:      v.ID,
		Status:         status,
		ExpiresIn:      v.ExpiresAt.Sub(now),
		CanResend:      false,
		DeliveryStatus: status,
	}, nil
}

// reuse — повторный запрос при живой записи: тот же requestId, новый код не
// выдаётся. Когда до истечения меньше окна повторной отправки, тот же код
// доставляется ещё раз (пользователь нажал "отправить снова").
func (s *VerificationService) reuse(ctx context.Context, v *models.TelegramVerification, now time.Time) *SendResult {
	remaining := v.ExpiresAt.Sub(now)
	res := &SendResult{
		RequestID:      v.ID,
		Status:         v.Status,
		ExpiresIn:      remaining,
		CanResend:      remaining < models.VerificationResendAfter,
		AlreadySent:    true,
		DeliveryStatus: v.Status,
	}
	if res.CanResend {
		res.DeliveryStatus = s.deliver(ctx, v)
		log.Printf("[otp][send] resend request=%s phone=%s status=%s", v.ID, v.Phone, res.DeliveryStatus)
	}
	return res
}

func (s *VerificationService) deliver(ctx context.Context, v *models.TelegramVerification) string {
	chatID, err := s.Resolver.Resolve(ctx, v.Phone)
	if err != nil {
		log.Printf("[otp][deliver] resolver error phone=%s: %v", v.Phone, err)
	}
	if chatID == 0 {
		_ = s.Repo.UpdateDelivery(v.ID, models.VerificationFailed, "no telegram account for phone")
		log.Printf("[otp][deliver] no chat id for phone=%s", v.Phone)
		return models.VerificationFailed
	}

	if err := s.Delivery.SendCode(ctx, chatID, v.Code); err != nil {
		_ = s.Repo.UpdateDelivery(v.ID, models.VerificationFailed, err.Error())
		log.Printf("[otp][deliver] send failed phone=%s chat=%d: %v", v.Phone, chatID, err)
		return models.VerificationFailed
	}

	_ = s.Repo.UpdateDelivery(v.ID, models.VerificationSent, "")
	log.Printf("[otp][deliver] sent phone=%s chat=%d", v.Phone, chatID)
	return models.VerificationSent
}

type StatusResult struct {
	Status       string
	AttemptsLeft int
	ExpiresIn    time.Duration
	CanResend    bool
}

func (s *VerificationService) GetStatus(requestID string) (*StatusResult, error) {
	v, err := s.Repo.GetByID(requestID)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, ErrRequestNotFound
	}
	now := time.Now()
	remaining := v.ExpiresAt.Sub(now)
	if remaining < 0 {
		remaining = 0
	}
	return &StatusResult{
		Status:       v.Status,
		AttemptsLeft: v.AttemptsLeft(),
		ExpiresIn:    remaining,
		CanResend:    remaining < models.VerificationResendAfter,
	}, nil
}

type VerifyResult struct {
	Profile    *models.Profile
	IsNew      bool
	RedirectTo string
}

// Verify — проверка кода по requestId. Порядок проверок фиксированный:
// verified → attempts → expiry → сравнение. Повтор после успеха — жёсткий
// отказ (ALREADY_VERIFIED), не идемпотентный успех.
func (s *VerificationService) Verify(ctx context.Context, requestID, code string) (*VerifyResult, error) {
	v, err := s.Repo.GetByID(requestID)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, ErrRequestNotFound
	}

	if v.Status == models.VerificationVerified {
		return nil, ErrAlreadyVerified
	}
	if v.Attempts >= v.MaxAttempts {
		return nil, ErrTooManyAttempts
	}
	if !time.Now().Before(v.ExpiresAt) {
		return nil, ErrCodeExpired
	}

	if code != v.Code {
		attempts, incErr := s.Repo.IncrementAttempts(v.ID)
		if incErr != nil {
			return nil, incErr
		}
		if attempts >= v.MaxAttempts {
			return nil, ErrTooManyAttempts
		}
		return nil, &InvalidCodeError{AttemptsLeft: v.MaxAttempts - attempts}
	}

	ok, err := s.Repo.MarkVerified(v.ID)
	if err != nil {
		return nil, err
	}
	if !ok {
		// CAS проиграл параллельному подтверждению
		return nil, ErrAlreadyVerified
	}
	log.Printf("[otp][verify] OK request=%s phone=%s", v.ID, v.Phone)

	profile, err := s.Profiles.GetByPhone(v.Phone)
	if err != nil {
		return nil, err
	}
	isNew := false
	if profile == nil {
		profile = &models.Profile{
			Phone:       v.Phone,
			DisplayName: v.Phone,
			RoleID:      authz.RoleClient, // роль уточняется в онбординге
			CreatedAt:   time.Now(),
		}
		if err := s.Profiles.Create(profile); err != nil {
			return nil, err
		}
		isNew = true
		log.Printf("[otp][verify] new profile id=%d phone=%s", profile.ID, v.Phone)
	}

	redirect := "/dashboard"
	if isNew {
		redirect = "/onboarding"
	}
	return &VerifyResult{Profile: profile, IsNew: isNew, RedirectTo: redirect}, nil
}

// generateCode — n десятичных цифр из crypto/rand.
func generateCode(n int) (string, error) {
	code := ""
	for i := 0; i < n; i++ {
		num, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", err
		}
		code += num.String()
	}
	return code, nil
}
