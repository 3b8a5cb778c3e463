package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"workfinder/internal/cache"
	"workfinder/internal/models"
	"workfinder/internal/repositories"
	"workfinder/internal/utils"
)

// --- фейки ---

type fakeVerStore struct {
	byID        map[string]*models.TelegramVerification
	failCreate  error // подменяет результат Create (гонка)
	failCreates int   // сколько первых вызовов Create падают с failCreate
}

func newFakeVerStore() *fakeVerStore {
	return &fakeVerStore{byID: map[string]*models.TelegramVerification{}}
}

// Create повторяет семантику репозитория: протухшие pending/sent строки по
// телефону вычищаются, живая строка даёт конфликт частичного индекса.
func (f *fakeVerStore) Create(v *models.TelegramVerification) error {
	if f.failCreates > 0 {
		f.failCreates--
		return f.failCreate
	}
	for id, old := range f.byID {
		if old.Phone != v.Phone {
			continue
		}
		if old.Status != models.VerificationPending && old.Status != models.VerificationSent {
			continue
		}
		if old.ExpiresAt.After(v.CreatedAt) {
			return repositories.ErrActiveExists
		}
		delete(f.byID, id)
	}
	cp := *v
	f.byID[v.ID] = &cp
	return nil
}

func (f *fakeVerStore) GetByID(id string) (*models.TelegramVerification, error) {
	v, ok := f.byID[id]
	if !ok {
		return nil, nil
	}
	cp := *v
	return &cp, nil
}

func (f *fakeVerStore) GetActiveByPhone(phone string, now time.Time) (*models.TelegramVerification, error) {
	for _, v := range f.byID {
		if v.Phone == phone && v.Active(now) {
			cp := *v
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeVerStore) UpdateDelivery(id, status, deliveryErr string) error {
	if v, ok := f.byID[id]; ok && v.Status == models.VerificationPending {
		v.Status = status
	}
	return nil
}

func (f *fakeVerStore) IncrementAttempts(id string) (int, error) {
	v, ok := f.byID[id]
	if !ok {
		return 0, errors.New("no row")
	}
	v.Attempts++
	return v.Attempts, nil
}

func (f *fakeVerStore) MarkVerified(id string) (bool, error) {
	v, ok := f.byID[id]
	if !ok || v.Status == models.VerificationVerified {
		return false, nil
	}
	v.Status = models.VerificationVerified
	return true, nil
}

type fakeLimiter struct {
	result cache.RateLimitResult
	keys   []string
}

func (f *fakeLimiter) CheckRateLimit(_ context.Context, key string, _ int64, _ time.Duration) cache.RateLimitResult {
	f.keys = append(f.keys, key)
	return f.result
}

func allowAll() *fakeLimiter {
	return &fakeLimiter{result: cache.RateLimitResult{Allowed: true, Remaining: 5}}
}

type fakeResolver struct {
	chatID int64
}

func (f *fakeResolver) Resolve(_ context.Context, _ string) (int64, error) {
	return f.chatID, nil
}

type fakeDeliverer struct {
	sent    []string // коды
	failErr error
}

func (f *fakeDeliverer) SendCode(_ context.Context, _ int64, code string) error {
	if f.failErr != nil {
		return f.failErr
	}
	f.sent = append(f.sent, code)
	return nil
}

type fakeProfiles struct {
	byPhone map[string]*models.Profile
	nextID  int
}

func newFakeProfiles() *fakeProfiles {
	return &fakeProfiles{byPhone: map[string]*models.Profile{}, nextID: 1}
}

func (f *fakeProfiles) Create(p *models.Profile) error {
	p.ID = f.nextID
	f.nextID++
	f.byPhone[p.Phone] = p
	return nil
}
func (f *fakeProfiles) GetByID(id int) (*models.Profile, error) {
	for _, p := range f.byPhone {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, nil
}
func (f *fakeProfiles) GetByPhone(phone string) (*models.Profile, error) { return f.byPhone[phone], nil }
func (f *fakeProfiles) GetByEmail(string) (*models.Profile, error) { return nil, nil }
func (f *fakeProfiles) Update(*models.Profile) error { return nil }
func (f *fakeProfiles) List(int, int) ([]*models.Profile, error) { return nil, nil }
func (f *fakeProfiles) CountByRole(int) (int, error) { return 0, nil }
func (f *fakeProfiles) SetBlocked(int, bool) error { return nil }
func (f *fakeProfiles) CreditBalance(int, int64) error { return nil }
func (f *fakeProfiles) UpdateRefresh(int, string, time.Time) error { return nil }
func (f *fakeProfiles) GetByRefreshToken(string) (*models.Profile, error) {
	return nil, nil
}
func (f *fakeProfiles) RotateRefresh(string, string, time.Time) (*models.Profile, error) {
	return nil, nil
}
func (f *fakeProfiles) GetChatIDByPhone(string) (int64, error) { return 0, nil }

func newTestService(store *fakeVerStore, limiter *fakeLimiter, resolver *fakeResolver, deliverer *fakeDeliverer) (*VerificationService, *fakeProfiles) {
	profiles := newFakeProfiles()
	svc := NewVerificationService(store, profiles, limiter, resolver, deliverer)
	return svc, profiles
}

// --- SendCode ---

func TestSendCodeInvalidPhone(t *testing.T) {
	svc, _ := newTestService(newFakeVerStore(), allowAll(), &fakeResolver{chatID: 1}, &fakeDeliverer{})
	_, err := svc.SendCode(context.Background(), "12345", SendMeta{Origin: "test"})
	if !errors.Is(err, utils.ErrInvalidPhone) {
		t.Fatalf("ждали ErrInvalidPhone, получили %v", err)
	}
}

func TestSendCodeDelivered(t *testing.T) {
	store := newFakeVerStore()
	deliverer := &fakeDeliverer{}
	svc, _ := newTestService(store, allowAll(), &fakeResolver{chatID: 42}, deliverer)

	res, err := svc.SendCode(context.Background(), "+79991234567", SendMeta{Origin: "test"})
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != models.VerificationSent {
		t.Errorf("статус %q, ждали sent", res.Status)
	}
	if res.AlreadySent {
		t.Error("первый запрос помечен как повторный")
	}
	if len(deliverer.sent) != 1 || len(deliverer.sent[0]) != 6 {
		t.Fatalf("доставлено %v, ждали один шестизначный код", deliverer.sent)
	}
	if strings.Trim(deliverer.sent[0], "0123456789") != "" {
		t.Errorf("код %q содержит не-цифры", deliverer.sent[0])
	}
	if res.ExpiresIn <= 9*time.Minute || res.ExpiresIn > 10*time.Minute {
		t.Errorf("время жизни %s, ждали около 10 минут", res.ExpiresIn)
	}
}

func TestSendCodeRateLimited(t *testing.T) {
	limiter := &fakeLimiter{result: cache.RateLimitResult{Allowed: false, RetryAfter: 40 * time.Minute}}
	svc, _ := newTestService(newFakeVerStore(), limiter, &fakeResolver{chatID: 1}, &fakeDeliverer{})

	_, err := svc.SendCode(context.Background(), "+79991234567", SendMeta{Origin: "test"})
	var rl *RateLimitError
	if !errors.As(err, &rl) {
		t.Fatalf("ждали RateLimitError, получили %v", err)
	}
	if rl.RetryAfter != 40*time.Minute {
		t.Errorf("RetryAfter = %s", rl.RetryAfter)
	}
	if len(limiter.keys) != 1 || limiter.keys[0] != "otp:send:+79991234567" {
		t.Errorf("ключ лимитера %v", limiter.keys)
	}
}

func TestSendCodeReusesActiveRequest(t *testing.T) {
	store := newFakeVerStore()
	deliverer := &fakeDeliverer{}
	svc, _ := newTestService(store, allowAll(), &fakeResolver{chatID: 42}, deliverer)
	ctx := context.Background()

	first, err := svc.SendCode(ctx, "+79991234567", SendMeta{Origin: "test"})
	if err != nil {
		t.Fatal(err)
	}
	second, err := svc.SendCode(ctx, "89991234567", SendMeta{Origin: "test"}) // та же трубка, другой формат
	if err != nil {
		t.Fatal(err)
	}

	if second.RequestID != first.RequestID {
		t.Errorf("повторный запрос выдал новый requestId: %s != %s", second.RequestID, first.RequestID)
	}
	if !second.AlreadySent {
		t.Error("повтор не помечен AlreadySent")
	}
	if second.CanResend {
		t.Error("переотправка разрешена сразу после выдачи кода")
	}
	if len(deliverer.sent) != 1 {
		t.Errorf("код доставлен %d раз, ждали 1", len(deliverer.sent))
	}
}

func TestSendCodeNoTelegramAccount(t *testing.T) {
	store := newFakeVerStore()
	svc, _ := newTestService(store, allowAll(), &fakeResolver{chatID: 0}, &fakeDeliverer{})

	res, err := svc.SendCode(context.Background(), "+79991234567", SendMeta{Origin: "test"})
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != models.VerificationFailed {
		t.Errorf("статус %q, ждали failed", res.Status)
	}
	// код остаётся действительным: подтверждение должно пройти
	v := store.byID[res.RequestID]
	vr, err := svc.Verify(context.Background(), res.RequestID, v.Code)
	if err != nil {
		t.Fatalf("подтверждение после failed-доставки: %v", err)
	}
	if vr.Profile == nil {
		t.Fatal("профиль не создан")
	}
}

func TestSendCodeLostInsertRace(t *testing.T) {
	store := newFakeVerStore()
	svc, _ := newTestService(store, allowAll(), &fakeResolver{chatID: 42}, &fakeDeliverer{})
	ctx := context.Background()

	// параллельный запрос уже вставил активную запись
	winner := &models.TelegramVerification{
		ID:          "winner",
		Phone:       "+79991234567",
		Code:        "111111",
		Status:      models.VerificationSent,
		MaxAttempts: models.VerificationMaxAttempts,
		ExpiresAt:   time.Now().Add(models.VerificationTTL),
		CreatedAt:   time.Now(),
	}
	store.failCreate = repositories.ErrActiveExists
	store.failCreates = 2 // конфликтует и вставка, и повторная попытка

	res, err := svc.SendCode(ctx, "+79991234567", SendMeta{Origin: "test"})
	if res != nil || err == nil {
		// запись так и не видна, сервис обязан вернуть ошибку, не плодить дубль
		t.Fatalf("res=%v err=%v", res, err)
	}

	store.byID[winner.ID] = winner
	res, err = svc.SendCode(ctx, "+79991234567", SendMeta{Origin: "test"})
	if err != nil {
		t.Fatal(err)
	}
	if res.RequestID != "winner" {
		t.Errorf("после проигрыша гонки вернулся %s, ждали запись победителя", res.RequestID)
	}
	if !res.AlreadySent {
		t.Error("повтор не помечен AlreadySent")
	}
}

func TestSendCodeStaleConflictRetries(t *testing.T) {
	store := newFakeVerStore()
	deliverer := &fakeDeliverer{}
	svc, _ := newTestService(store, allowAll(), &fakeResolver{chatID: 42}, deliverer)

	// конфликт со строкой, которая протухла между проверкой и вставкой:
	// повторная попытка должна пройти, а не вернуть ошибку
	store.failCreate = repositories.ErrActiveExists
	store.failCreates = 1

	res, err := svc.SendCode(context.Background(), "+79991234567", SendMeta{Origin: "test"})
	if err != nil {
		t.Fatalf("конфликт с протухшей строкой не пережит: %v", err)
	}
	if res.AlreadySent {
		t.Error("свежая запись помечена AlreadySent")
	}
	if len(deliverer.sent) != 1 {
		t.Errorf("код доставлен %d раз, ждали 1", len(deliverer.sent))
	}
}

func TestSendCodeAfterExpiry(t *testing.T) {
	store := newFakeVerStore()
	deliverer := &fakeDeliverer{}
	svc, _ := newTestService(store, allowAll(), &fakeResolver{chatID: 42}, deliverer)
	ctx := context.Background()

	first, err := svc.SendCode(ctx, "+79991234567", SendMeta{Origin: "test"})
	if err != nil {
		t.Fatal(err)
	}
	store.byID[first.RequestID].ExpiresAt = time.Now().Add(-time.Minute)

	second, err := svc.SendCode(ctx, "+79991234567", SendMeta{Origin: "test"})
	if err != nil {
		t.Fatalf("после истечения кода новый не выдан: %v", err)
	}
	if second.RequestID == first.RequestID {
		t.Error("протухшая запись выдана повторно вместо новой")
	}
	if second.AlreadySent {
		t.Error("свежая запись помечена AlreadySent")
	}
	if _, ok := store.byID[first.RequestID]; ok {
		t.Error("протухшая запись осталась в хранилище")
	}
	if len(deliverer.sent) != 2 {
		t.Errorf("код доставлен %d раз, ждали 2", len(deliverer.sent))
	}
}

func TestSendCodeRedeliversNearExpiry(t *testing.T) {
	store := newFakeVerStore()
	deliverer := &fakeDeliverer{}
	svc, _ := newTestService(store, allowAll(), &fakeResolver{chatID: 42}, deliverer)
	ctx := context.Background()

	first, err := svc.SendCode(ctx, "+79991234567", SendMeta{Origin: "test"})
	if err != nil {
		t.Fatal(err)
	}
	code := store.byID[first.RequestID].Code

	// окно переотправки ещё закрыто: код не шлётся второй раз
	if _, err := svc.SendCode(ctx, "+79991234567", SendMeta{Origin: "test"}); err != nil {
		t.Fatal(err)
	}
	if len(deliverer.sent) != 1 {
		t.Fatalf("код доставлен %d раз до открытия окна", len(deliverer.sent))
	}

	store.byID[first.RequestID].ExpiresAt = time.Now().Add(3 * time.Minute)
	res, err := svc.SendCode(ctx, "+79991234567", SendMeta{Origin: "test"})
	if err != nil {
		t.Fatal(err)
	}
	if res.RequestID != first.RequestID {
		t.Errorf("переотправка выдала новый requestId")
	}
	if !res.CanResend {
		t.Error("CanResend не выставлен в окне переотправки")
	}
	if len(deliverer.sent) != 2 || deliverer.sent[1] != code {
		t.Fatalf("ждали повторную доставку того же кода, доставлено %v", deliverer.sent)
	}
	if res.DeliveryStatus != models.VerificationSent {
		t.Errorf("статус доставки %q после переотправки", res.DeliveryStatus)
	}
}

// --- Verify ---

func mustSend(t *testing.T, svc *VerificationService, store *fakeVerStore) (requestID, code string) {
	t.Helper()
	res, err := svc.SendCode(context.Background(), "+79991234567", SendMeta{Origin: "test"})
	if err != nil {
		t.Fatal(err)
	}
	return res.RequestID, store.byID[res.RequestID].Code
}

func TestVerifyHappyPathNewProfile(t *testing.T) {
	store := newFakeVerStore()
	svc, _ := newTestService(store, allowAll(), &fakeResolver{chatID: 42}, &fakeDeliverer{})
	id, code := mustSend(t, svc, store)

	res, err := svc.Verify(context.Background(), id, code)
	if err != nil {
		t.Fatal(err)
	}
	if !res.IsNew {
		t.Error("новый телефон не помечен IsNew")
	}
	if res.RedirectTo != "/onboarding" {
		t.Errorf("redirect %q, ждали /onboarding", res.RedirectTo)
	}
	if res.Profile.Phone != "+79991234567" {
		t.Errorf("профиль на %q", res.Profile.Phone)
	}
}

func TestVerifyExistingProfile(t *testing.T) {
	store := newFakeVerStore()
	svc, profiles := newTestService(store, allowAll(), &fakeResolver{chatID: 42}, &fakeDeliverer{})
	_ = profiles.Create(&models.Profile{Phone: "+79991234567", DisplayName: "Иван"})
	id, code := mustSend(t, svc, store)

	res, err := svc.Verify(context.Background(), id, code)
	if err != nil {
		t.Fatal(err)
	}
	if res.IsNew {
		t.Error("существующий профиль помечен IsNew")
	}
	if res.RedirectTo != "/dashboard" {
		t.Errorf("redirect %q, ждали /dashboard", res.RedirectTo)
	}
}

func TestVerifyUnknownRequest(t *testing.T) {
	svc, _ := newTestService(newFakeVerStore(), allowAll(), &fakeResolver{chatID: 42}, &fakeDeliverer{})
	_, err := svc.Verify(context.Background(), "no-such-id", "123456")
	if !errors.Is(err, ErrRequestNotFound) {
		t.Fatalf("ждали ErrRequestNotFound, получили %v", err)
	}
}

func TestVerifyWrongCodeCountsAttempts(t *testing.T) {
	store := newFakeVerStore()
	svc, _ := newTestService(store, allowAll(), &fakeResolver{chatID: 42}, &fakeDeliverer{})
	id, code := mustSend(t, svc, store)
	ctx := context.Background()

	wrong := "000000"
	if wrong == code {
		wrong = "000001"
	}

	// первые два промаха: InvalidCodeError со счётчиком
	for want := 2; want >= 1; want-- {
		_, err := svc.Verify(ctx, id, wrong)
		var ic *InvalidCodeError
		if !errors.As(err, &ic) {
			t.Fatalf("ждали InvalidCodeError, получили %v", err)
		}
		if ic.AttemptsLeft != want {
			t.Errorf("AttemptsLeft = %d, ждали %d", ic.AttemptsLeft, want)
		}
	}

	// третий промах исчерпывает лимит
	if _, err := svc.Verify(ctx, id, wrong); !errors.Is(err, ErrTooManyAttempts) {
		t.Fatalf("ждали ErrTooManyAttempts, получили %v", err)
	}

	// после исчерпания не спасает даже правильный код
	if _, err := svc.Verify(ctx, id, code); !errors.Is(err, ErrTooManyAttempts) {
		t.Fatalf("правильный код после лимита: ждали ErrTooManyAttempts, получили %v", err)
	}
}

func TestVerifyExpiredCode(t *testing.T) {
	store := newFakeVerStore()
	svc, _ := newTestService(store, allowAll(), &fakeResolver{chatID: 42}, &fakeDeliverer{})
	id, code := mustSend(t, svc, store)

	store.byID[id].ExpiresAt = time.Now().Add(-time.Second)

	if _, err := svc.Verify(context.Background(), id, code); !errors.Is(err, ErrCodeExpired) {
		t.Fatalf("ждали ErrCodeExpired, получили %v", err)
	}
}

func TestVerifyReplayAfterSuccess(t *testing.T) {
	store := newFakeVerStore()
	svc, _ := newTestService(store, allowAll(), &fakeResolver{chatID: 42}, &fakeDeliverer{})
	id, code := mustSend(t, svc, store)
	ctx := context.Background()

	if _, err := svc.Verify(ctx, id, code); err != nil {
		t.Fatal(err)
	}
	// повтор с тем же кодом: жёсткий отказ, не «идемпотентный успех»
	if _, err := svc.Verify(ctx, id, code); !errors.Is(err, ErrAlreadyVerified) {
		t.Fatalf("ждали ErrAlreadyVerified, получили %v", err)
	}
}

// --- GetStatus ---

func TestGetStatus(t *testing.T) {
	store := newFakeVerStore()
	svc, _ := newTestService(store, allowAll(), &fakeResolver{chatID: 42}, &fakeDeliverer{})
	id, _ := mustSend(t, svc, store)

	st, err := svc.GetStatus(id)
	if err != nil {
		t.Fatal(err)
	}
	if st.Status != models.VerificationSent {
		t.Errorf("статус %q", st.Status)
	}
	if st.AttemptsLeft != models.VerificationMaxAttempts {
		t.Errorf("AttemptsLeft = %d", st.AttemptsLeft)
	}
	if st.CanResend {
		t.Error("переотправка разрешена сразу после выдачи")
	}

	// код доживает последние минуты: переотправка открывается
	store.byID[id].ExpiresAt = time.Now().Add(2 * time.Minute)
	st, err = svc.GetStatus(id)
	if err != nil {
		t.Fatal(err)
	}
	if !st.CanResend {
		t.Error("переотправка закрыта, хотя коду осталось меньше 5 минут")
	}

	if _, err := svc.GetStatus("no-such-id"); !errors.Is(err, ErrRequestNotFound) {
		t.Fatalf("ждали ErrRequestNotFound, получили %v", err)
	}
}
