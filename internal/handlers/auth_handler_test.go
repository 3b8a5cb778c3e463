package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"workfinder/internal/cache"
	"workfinder/internal/middleware"
	"workfinder/internal/models"
	"workfinder/internal/services"
)

// --- фейки ровно под интерфейсы сервиса ---

type memVerStore struct {
	byID map[string]*models.TelegramVerification
}

func (m *memVerStore) Create(v *models.TelegramVerification) error {
	cp := *v
	m.byID[v.ID] = &cp
	return nil
}
func (m *memVerStore) GetByID(id string) (*models.TelegramVerification, error) {
	if v, ok := m.byID[id]; ok {
		cp := *v
		return &cp, nil
	}
	return nil, nil
}
func (m *memVerStore) GetActiveByPhone(phone string, now time.Time) (*models.TelegramVerification, error) {
	for _, v := range m.byID {
		if v.Phone == phone && v.Active(now) {
			cp := *v
			return &cp, nil
		}
	}
	return nil, nil
}
func (m *memVerStore) UpdateDelivery(id, status, _ string) error {
	if v, ok := m.byID[id]; ok && v.Status == models.VerificationPending {
		v.Status = status
	}
	return nil
}
func (m *memVerStore) IncrementAttempts(id string) (int, error) {
	v := m.byID[id]
	v.Attempts++
	return v.Attempts, nil
}
func (m *memVerStore) MarkVerified(id string) (bool, error) {
	v := m.byID[id]
	if v.Status == models.VerificationVerified {
		return false, nil
	}
	v.Status = models.VerificationVerified
	return true, nil
}

type openLimiter struct{}

func (openLimiter) CheckRateLimit(context.Context, string, int64, time.Duration) cache.RateLimitResult {
	return cache.RateLimitResult{Allowed: true, Remaining: 5}
}

type staticResolver struct{ chatID int64 }

func (r staticResolver) Resolve(context.Context, string) (int64, error) { return r.chatID, nil }

type silentDeliverer struct{}

func (silentDeliverer) SendCode(context.Context, int64, string) error { return nil }

type memProfiles struct {
	byPhone map[string]*models.Profile
	byToken map[string]*models.Profile
	nextID  int
}

func newMemProfiles() *memProfiles {
	return &memProfiles{byPhone: map[string]*models.Profile{}, byToken: map[string]*models.Profile{}, nextID: 1}
}

func (m *memProfiles) Create(p *models.Profile) error {
	p.ID = m.nextID
	m.nextID++
	m.byPhone[p.Phone] = p
	return nil
}
func (m *memProfiles) GetByID(id int) (*models.Profile, error) {
	for _, p := range m.byPhone {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, nil
}
func (m *memProfiles) GetByPhone(phone string) (*models.Profile, error) { return m.byPhone[phone], nil }
func (m *memProfiles) GetByEmail(string) (*models.Profile, error) { return nil, nil }
func (m *memProfiles) Update(*models.Profile) error { return nil }
func (m *memProfiles) List(int, int) ([]*models.Profile, error) { return nil, nil }
func (m *memProfiles) CountByRole(int) (int, error) { return 0, nil }
func (m *memProfiles) SetBlocked(int, bool) error { return nil }
func (m *memProfiles) CreditBalance(int, int64) error { return nil }
func (m *memProfiles) UpdateRefresh(id int, token string, _ time.Time) error {
	if p, err := m.GetByID(id); err == nil && p != nil {
		p.RefreshToken = &token
		m.byToken[token] = p
	}
	return nil
}
func (m *memProfiles) GetByRefreshToken(token string) (*models.Profile, error) {
	return m.byToken[token], nil
}
func (m *memProfiles) RotateRefresh(oldToken, newToken string, expiresAt time.Time) (*models.Profile, error) {
	p, ok := m.byToken[oldToken]
	if !ok {
		return nil, nil
	}
	delete(m.byToken, oldToken)
	p.RefreshToken = &newToken
	p.RefreshExpiresAt = &expiresAt
	m.byToken[newToken] = p
	return p, nil
}
func (m *memProfiles) GetChatIDByPhone(string) (int64, error) { return 0, nil }

func newAuthRouter(t *testing.T) (*gin.Engine, *memVerStore, *memProfiles) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	middleware.SetJWTSecret("test-secret")

	store := &memVerStore{byID: map[string]*models.TelegramVerification{}}
	profiles := newMemProfiles()
	svc := services.NewVerificationService(store, profiles, openLimiter{}, staticResolver{chatID: 42}, silentDeliverer{})
	h := NewAuthHandler(svc, profiles)

	r := gin.New()
	r.POST("/api/auth/telegram/send", h.SendCode)
	r.POST("/api/auth/telegram/verify", h.VerifyCode)
	r.GET("/api/auth/telegram/status/:requestId", h.Status)
	r.POST("/api/auth/refresh", h.Refresh)
	return r, store, profiles
}

func postJSON(r *gin.Engine, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var m map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &m); err != nil {
		t.Fatalf("ответ не JSON: %v (%s)", err, w.Body.String())
	}
	return m
}

func errCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	m := decode(t, w)
	if m["success"] != false {
		t.Fatalf("success != false: %s", w.Body.String())
	}
	e, _ := m["error"].(map[string]interface{})
	code, _ := e["code"].(string)
	return code
}

func TestSendEndpointInvalidPhone(t *testing.T) {
	r, _, _ := newAuthRouter(t)

	w := postJSON(r, "/api/auth/telegram/send", `{"phone":"12345"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("код %d", w.Code)
	}
	if code := errCode(t, w); code != "INVALID_PHONE_FORMAT" {
		t.Errorf("код ошибки %q", code)
	}
}

func TestSendVerifyRoundTrip(t *testing.T) {
	r, store, _ := newAuthRouter(t)

	w := postJSON(r, "/api/auth/telegram/send", `{"phone":"+79991234567"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("send: %d %s", w.Code, w.Body.String())
	}
	sendResp := decode(t, w)
	requestID, _ := sendResp["requestId"].(string)
	if requestID == "" {
		t.Fatalf("нет requestId: %s", w.Body.String())
	}
	if sendResp["status"] != "sent" {
		t.Errorf("статус %v", sendResp["status"])
	}

	code := store.byID[requestID].Code

	// неверный код: счётчик в ответе
	w = postJSON(r, "/api/auth/telegram/verify", `{"requestId":"`+requestID+`","code":"999999"}`)
	if code == "999999" {
		t.Skip("коллизия со случайным кодом")
	}
	if w.Code != http.StatusBadRequest {
		t.Fatalf("verify wrong: %d", w.Code)
	}
	m := decode(t, w)
	e := m["error"].(map[string]interface{})
	if e["code"] != "INVALID_CODE" {
		t.Errorf("код ошибки %v", e["code"])
	}
	if e["attemptsLeft"] != float64(2) {
		t.Errorf("attemptsLeft = %v", e["attemptsLeft"])
	}

	// верный код: токены и редирект на онбординг
	w = postJSON(r, "/api/auth/telegram/verify", `{"requestId":"`+requestID+`","code":"`+code+`"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("verify: %d %s", w.Code, w.Body.String())
	}
	m = decode(t, w)
	if m["accessToken"] == "" || m["refreshToken"] == "" {
		t.Error("нет токенов в ответе")
	}
	if m["isNew"] != true || m["redirectTo"] != "/onboarding" {
		t.Errorf("isNew=%v redirectTo=%v", m["isNew"], m["redirectTo"])
	}

	// повтор: конфликт
	w = postJSON(r, "/api/auth/telegram/verify", `{"requestId":"`+requestID+`","code":"`+code+`"}`)
	if w.Code != http.StatusConflict {
		t.Fatalf("replay: %d", w.Code)
	}
	if code := errCode(t, w); code != "ALREADY_VERIFIED" {
		t.Errorf("код ошибки %q", code)
	}
}

func TestStatusEndpoint(t *testing.T) {
	r, _, _ := newAuthRouter(t)

	w := postJSON(r, "/api/auth/telegram/send", `{"phone":"+79991234567"}`)
	requestID := decode(t, w)["requestId"].(string)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/telegram/status/"+requestID, nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status: %d", rec.Code)
	}
	m := decode(t, rec)
	if m["status"] != "sent" || m["attemptsLeft"] != float64(3) {
		t.Errorf("status=%v attemptsLeft=%v", m["status"], m["attemptsLeft"])
	}

	req = httptest.NewRequest(http.MethodGet, "/api/auth/telegram/status/nope", nil)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown status: %d", rec.Code)
	}
}

func TestRefreshRotation(t *testing.T) {
	r, store, _ := newAuthRouter(t)

	w := postJSON(r, "/api/auth/telegram/send", `{"phone":"+79991234567"}`)
	requestID := decode(t, w)["requestId"].(string)
	code := store.byID[requestID].Code
	w = postJSON(r, "/api/auth/telegram/verify", `{"requestId":"`+requestID+`","code":"`+code+`"}`)
	refresh, _ := decode(t, w)["refreshToken"].(string)
	if refresh == "" {
		t.Fatal("нет refresh-токена")
	}

	w = postJSON(r, "/api/auth/refresh", `{"refreshToken":"`+refresh+`"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("refresh: %d %s", w.Code, w.Body.String())
	}
	next, _ := decode(t, w)["refreshToken"].(string)
	if next == "" || next == refresh {
		t.Error("токен не ротирован")
	}

	// старый токен сгорел
	w = postJSON(r, "/api/auth/refresh", `{"refreshToken":"`+refresh+`"}`)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("повтор со старым токеном: %d", w.Code)
	}
	if code := errCode(t, w); code != "UNAUTHORIZED" {
		t.Errorf("код ошибки %q", code)
	}
}
