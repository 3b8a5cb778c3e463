package services

import (
	"errors"
	"fmt"
	"log"
	"time"

	"workfinder/internal/models"
)

var (
	ErrAmountTooSmall   = errors.New("withdrawal amount below minimum")
	ErrAmountTooLarge   = errors.New("withdrawal amount above maximum")
	ErrUnknownMethod    = errors.New("unknown withdrawal method")
	ErrWithdrawalClosed = errors.New("withdrawal is not pending")
)

// DailyLimitError — дневной лимит вывода исчерпан.
type DailyLimitError struct {
	RetryAfter time.Duration
}

func (e *DailyLimitError) Error() string {
	return fmt.Sprintf("daily withdrawal limit exceeded, retry after %s", e.RetryAfter)
}

// Лимиты и комиссии, суммы в копейках.
const (
	withdrawMin        = 500_00      // 500 ₽ за заявку
	withdrawMax        = 100_000_00  // 100 000 ₽ за заявку
	withdrawDailyLimit = 150_000_00  // 150 000 ₽ в скользящие сутки
	dailyWindow        = 24 * time.Hour

	cardFeePercent = 25 // 2.5% в промилле от 1000... (см. CalcFee)
	cardFeeMin     = 50_00
	sbpFeePercent  = 10 // 1%
	sbpFeeMin      = 30_00
)

type WithdrawalStore interface {
	CreateWithDebit(w *models.Withdrawal) error
	GetByID(id int) (*models.Withdrawal, error)
	UpdateStatus(id int, status string) error
	RejectWithRefund(id int) (*models.Withdrawal, error)
	ListByProfile(profileID, limit, offset int) ([]*models.Withdrawal, error)
	ListByStatus(status string, limit, offset int) ([]*models.Withdrawal, error)
	SumActiveSince(profileID int, since time.Time) (int64, error)
	OldestActiveSince(profileID int, since time.Time) (time.Time, error)
}

type WithdrawalService struct {
	Repo     WithdrawalStore
	Notifier Notifier
}

func NewWithdrawalService(repo WithdrawalStore, notifier Notifier) *WithdrawalService {
	return &WithdrawalService{Repo: repo, Notifier: notifier}
}

// CalcFee — комиссия за вывод. Проценты заданы в десятых долях процента,
// чтобы не трогать float на деньгах.
func CalcFee(method string, amount int64) (int64, error) {
	switch method {
	case models.WithdrawMethodCard:
		fee := amount * cardFeePercent / 1000
		if fee < cardFeeMin {
			fee = cardFeeMin
		}
		return fee, nil
	case models.WithdrawMethodSBP:
		fee := amount * sbpFeePercent / 1000
		if fee < sbpFeeMin {
			fee = sbpFeeMin
		}
		return fee, nil
	case models.WithdrawMethodWallet:
		return 0, nil
	default:
		return 0, ErrUnknownMethod
	}
}

// Create — заявка на вывод: лимиты на сумму, дневное скользящее окно по
// таблице, затем списание+вставка одной транзакцией.
func (s *WithdrawalService) Create(profileID int, amount int64, method, destination string) (*models.Withdrawal, error) {
	if amount < withdrawMin {
		return nil, ErrAmountTooSmall
	}
	if amount > withdrawMax {
		return nil, ErrAmountTooLarge
	}
	fee, err := CalcFee(method, amount)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	since := now.Add(-dailyWindow)
	spent, err := s.Repo.SumActiveSince(profileID, since)
	if err != nil {
		return nil, err
	}
	if spent+amount > withdrawDailyLimit {
		retry := dailyWindow
		if oldest, err := s.Repo.OldestActiveSince(profileID, since); err == nil && !oldest.IsZero() {
			retry = oldest.Add(dailyWindow).Sub(now)
			if retry < 0 {
				retry = 0
			}
		}
		return nil, &DailyLimitError{RetryAfter: retry}
	}

	w := &models.Withdrawal{
		ProfileID:   profileID,
		Amount:      amount,
		Fee:         fee,
		Net:         amount - fee,
		Method:      method,
		Destination: destination,
		Status:      models.WithdrawalPending,
		CreatedAt:   now,
	}
	if err := s.Repo.CreateWithDebit(w); err != nil {
		return nil, err
	}
	log.Printf("[withdraw][create] id=%d profile=%d amount=%d fee=%d method=%s", w.ID, profileID, amount, fee, method)
	return w, nil
}

func (s *WithdrawalService) ListByProfile(profileID, limit, offset int) ([]*models.Withdrawal, error) {
	return s.Repo.ListByProfile(profileID, limit, offset)
}

func (s *WithdrawalService) GetByID(id int) (*models.Withdrawal, error) {
	return s.Repo.GetByID(id)
}

func (s *WithdrawalService) ListPending(limit, offset int) ([]*models.Withdrawal, error) {
	return s.Repo.ListByStatus(models.WithdrawalPending, limit, offset)
}

// Approve — одобрение админом: pending → completed.
func (s *WithdrawalService) Approve(id int) (*models.Withdrawal, error) {
	w, err := s.Repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if w == nil {
		return nil, nil
	}
	if w.Status != models.WithdrawalPending && w.Status != models.WithdrawalProcessing {
		return nil, ErrWithdrawalClosed
	}
	if err := s.Repo.UpdateStatus(id, models.WithdrawalCompleted); err != nil {
		return nil, err
	}
	w.Status = models.WithdrawalCompleted

	if s.Notifier != nil {
		s.Notifier.Notify(w.ProfileID, "Выплата выполнена",
			fmt.Sprintf("Заявка №%d на %.2f ₽ выполнена.", w.ID, float64(w.Net)/100))
	}
	return w, nil
}

// Reject — отклонение с возвратом суммы на баланс.
func (s *WithdrawalService) Reject(id int, reason string) (*models.Withdrawal, error) {
	w, err := s.Repo.RejectWithRefund(id)
	if err != nil {
		return nil, err
	}
	if w == nil {
		return nil, nil
	}
	log.Printf("[withdraw][reject] id=%d profile=%d reason=%q", w.ID, w.ProfileID, reason)

	if s.Notifier != nil {
		s.Notifier.Notify(w.ProfileID, "Заявка на вывод отклонена",
			fmt.Sprintf("Заявка №%d отклонена: %s. Сумма возвращена на баланс.", w.ID, reason))
	}
	return w, nil
}
