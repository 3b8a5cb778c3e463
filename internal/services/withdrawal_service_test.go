package services

import (
	"errors"
	"testing"
	"time"

	"workfinder/internal/models"
)

type fakeWithdrawalStore struct {
	byID      map[int]*models.Withdrawal
	nextID    int
	sum       int64     // результат SumActiveSince
	oldest    time.Time // результат OldestActiveSince
	debitErr  error
	created   []*models.Withdrawal
	statusLog []string
}

func newFakeWithdrawalStore() *fakeWithdrawalStore {
	return &fakeWithdrawalStore{byID: map[int]*models.Withdrawal{}, nextID: 1}
}

func (f *fakeWithdrawalStore) CreateWithDebit(w *models.Withdrawal) error {
	if f.debitErr != nil {
		return f.debitErr
	}
	w.ID = f.nextID
	f.nextID++
	f.byID[w.ID] = w
	f.created = append(f.created, w)
	return nil
}

func (f *fakeWithdrawalStore) GetByID(id int) (*models.Withdrawal, error) {
	return f.byID[id], nil
}

func (f *fakeWithdrawalStore) UpdateStatus(id int, status string) error {
	if w, ok := f.byID[id]; ok {
		w.Status = status
	}
	f.statusLog = append(f.statusLog, status)
	return nil
}

func (f *fakeWithdrawalStore) RejectWithRefund(id int) (*models.Withdrawal, error) {
	w, ok := f.byID[id]
	if !ok || (w.Status != models.WithdrawalPending && w.Status != models.WithdrawalProcessing) {
		return nil, nil
	}
	w.Status = models.WithdrawalRejected
	return w, nil
}

func (f *fakeWithdrawalStore) ListByProfile(int, int, int) ([]*models.Withdrawal, error) {
	return nil, nil
}

func (f *fakeWithdrawalStore) ListByStatus(string, int, int) ([]*models.Withdrawal, error) {
	return nil, nil
}

func (f *fakeWithdrawalStore) SumActiveSince(int, time.Time) (int64, error) { return f.sum, nil }

func (f *fakeWithdrawalStore) OldestActiveSince(int, time.Time) (time.Time, error) {
	return f.oldest, nil
}

type noopNotifier struct{ calls int }

func (n *noopNotifier) Notify(int, string, string) { n.calls++ }

func TestCalcFee(t *testing.T) {
	cases := []struct {
		method  string
		amount  int64
		want    int64
		wantErr bool
	}{
		{"card", 100_000_00, 2_500_00, false}, // 2.5%
		{"card", 1_000_00, 50_00, false},      // минимум 50 ₽
		{"card", 2_000_00, 50_00, false},      // 2.5% = ровно минимум
		{"sbp", 10_000_00, 100_00, false},     // 1%
		{"sbp", 1_000_00, 30_00, false},       // минимум 30 ₽
		{"wallet", 50_000_00, 0, false},
		{"cash", 1_000_00, 0, true},
	}
	for _, c := range cases {
		got, err := CalcFee(c.method, c.amount)
		if c.wantErr {
			if !errors.Is(err, ErrUnknownMethod) {
				t.Errorf("CalcFee(%s): ждали ErrUnknownMethod, получили %v", c.method, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("CalcFee(%s, %d): %v", c.method, c.amount, err)
			continue
		}
		if got != c.want {
			t.Errorf("CalcFee(%s, %d) = %d, ждали %d", c.method, c.amount, got, c.want)
		}
	}
}

func TestWithdrawalCreateAmountLimits(t *testing.T) {
	svc := NewWithdrawalService(newFakeWithdrawalStore(), nil)

	if _, err := svc.Create(1, 499_99, "card", "4276..."); !errors.Is(err, ErrAmountTooSmall) {
		t.Errorf("ниже минимума: %v", err)
	}
	if _, err := svc.Create(1, 100_000_01, "card", "4276..."); !errors.Is(err, ErrAmountTooLarge) {
		t.Errorf("выше максимума: %v", err)
	}
	if _, err := svc.Create(1, 1_000_00, "cash", "..."); !errors.Is(err, ErrUnknownMethod) {
		t.Errorf("неизвестный способ: %v", err)
	}
}

func TestWithdrawalCreateComputesNet(t *testing.T) {
	store := newFakeWithdrawalStore()
	svc := NewWithdrawalService(store, nil)

	w, err := svc.Create(7, 10_000_00, "sbp", "+79991234567")
	if err != nil {
		t.Fatal(err)
	}
	if w.Fee != 100_00 {
		t.Errorf("fee = %d", w.Fee)
	}
	if w.Net != 9_900_00 {
		t.Errorf("net = %d", w.Net)
	}
	if w.Status != models.WithdrawalPending {
		t.Errorf("статус %q", w.Status)
	}
	if len(store.created) != 1 {
		t.Fatalf("создано %d заявок", len(store.created))
	}
}

func TestWithdrawalDailyLimit(t *testing.T) {
	store := newFakeWithdrawalStore()
	store.sum = 140_000_00 // уже выведено за окно
	store.oldest = time.Now().Add(-20 * time.Hour)
	svc := NewWithdrawalService(store, nil)

	// 140 000 + 20 000 > 150 000
	_, err := svc.Create(1, 20_000_00, "wallet", "w-1")
	var daily *DailyLimitError
	if !errors.As(err, &daily) {
		t.Fatalf("ждали DailyLimitError, получили %v", err)
	}
	// старейшая заявка выпадет из окна через ~4 часа
	if daily.RetryAfter < 3*time.Hour+59*time.Minute || daily.RetryAfter > 4*time.Hour+time.Minute {
		t.Errorf("RetryAfter = %s, ждали около 4 часов", daily.RetryAfter)
	}

	// ровно в лимит проходит
	if _, err := svc.Create(1, 10_000_00, "wallet", "w-1"); err != nil {
		t.Errorf("сумма в пределах лимита отклонена: %v", err)
	}
}

func TestWithdrawalApprove(t *testing.T) {
	store := newFakeWithdrawalStore()
	notifier := &noopNotifier{}
	svc := NewWithdrawalService(store, notifier)

	w, err := svc.Create(1, 1_000_00, "wallet", "w-1")
	if err != nil {
		t.Fatal(err)
	}

	approved, err := svc.Approve(w.ID)
	if err != nil {
		t.Fatal(err)
	}
	if approved.Status != models.WithdrawalCompleted {
		t.Errorf("статус %q", approved.Status)
	}
	if notifier.calls != 1 {
		t.Errorf("уведомлений %d", notifier.calls)
	}

	// повторное одобрение закрытой заявки
	if _, err := svc.Approve(w.ID); !errors.Is(err, ErrWithdrawalClosed) {
		t.Fatalf("ждали ErrWithdrawalClosed, получили %v", err)
	}
}

func TestWithdrawalReject(t *testing.T) {
	store := newFakeWithdrawalStore()
	notifier := &noopNotifier{}
	svc := NewWithdrawalService(store, notifier)

	w, err := svc.Create(1, 1_000_00, "wallet", "w-1")
	if err != nil {
		t.Fatal(err)
	}

	rejected, err := svc.Reject(w.ID, "подозрительные реквизиты")
	if err != nil {
		t.Fatal(err)
	}
	if rejected == nil || rejected.Status != models.WithdrawalRejected {
		t.Fatalf("rejected = %+v", rejected)
	}

	// вторая попытка: заявка уже закрыта, RejectWithRefund возвращает пусто
	again, err := svc.Reject(w.ID, "дубль")
	if err != nil {
		t.Fatal(err)
	}
	if again != nil {
		t.Errorf("повторное отклонение вернуло %+v", again)
	}
}
