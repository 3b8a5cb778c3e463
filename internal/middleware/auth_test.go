package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

func testRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(AuthMiddleware())
	echo := func(c *gin.Context) {
		uid, _ := c.Get("user_id")
		c.JSON(http.StatusOK, gin.H{"user_id": uid})
	}
	r.POST("/api/auth/telegram/send", echo)
	r.GET("/api/auth/telegram/status/:requestId", echo)
	r.GET("/api/categories", echo)
	r.GET("/api/projects", echo)
	r.POST("/api/projects", echo)
	r.GET("/api/profiles/me", echo)
	r.GET("/api/projects/:id/bids", echo)
	r.GET("/api/files/:id", echo)
	r.POST("/api/files", echo)
	return r
}

func signToken(t *testing.T, userID, roleID int, ttl time.Duration) string {
	t.Helper()
	claims := &Claims{
		UserID: userID,
		RoleID: roleID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(jwtKey)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func do(r *gin.Engine, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware(t *testing.T) {
	SetJWTSecret("test-secret")
	r := testRouter()

	cases := []struct {
		name   string
		method string
		path   string
		token  string
		want   int
	}{
		{"отправка кода публична", http.MethodPost, "/api/auth/telegram/send", "", http.StatusOK},
		{"статус заявки публичен", http.MethodGet, "/api/auth/telegram/status/abc", "", http.StatusOK},
		{"каталог читается без токена", http.MethodGet, "/api/categories", "", http.StatusOK},
		{"витрина читается без токена", http.MethodGet, "/api/projects", "", http.StatusOK},
		{"публикация требует токен", http.MethodPost, "/api/projects", "", http.StatusUnauthorized},
		{"свой профиль требует токен", http.MethodGet, "/api/profiles/me", "", http.StatusUnauthorized},
		{"ставки требуют токен", http.MethodGet, "/api/projects/5/bids", "", http.StatusUnauthorized},
		{"валидный токен проходит", http.MethodPost, "/api/projects", signToken(t, 7, 10, 15*time.Minute), http.StatusOK},
		{"протухший токен отклоняется", http.MethodPost, "/api/projects", signToken(t, 7, 10, -10*time.Minute), http.StatusUnauthorized},
		{"свежепротухший проходит по leeway", http.MethodPost, "/api/projects", signToken(t, 7, 10, -time.Minute), http.StatusOK},
		{"мусор вместо токена", http.MethodPost, "/api/projects", "not-a-jwt", http.StatusUnauthorized},
		{"файл читается без токена", http.MethodGet, "/api/files/abc", "", http.StatusOK},
		{"загрузка файла требует токен", http.MethodPost, "/api/files", "", http.StatusUnauthorized},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			w := do(r, c.method, c.path, c.token)
			if w.Code != c.want {
				t.Errorf("%s %s: код %d, ждали %d (тело %s)", c.method, c.path, w.Code, c.want, w.Body.String())
			}
		})
	}
}

// На публичном чтении токен не обязателен, но если пришёл валидный,
// личность должна попасть в контекст: владелец видит свой приватный файл.
func TestPublicReadKeepsIdentity(t *testing.T) {
	SetJWTSecret("test-secret")
	r := testRouter()

	w := do(r, http.MethodGet, "/api/files/abc", signToken(t, 7, 10, 15*time.Minute))
	if w.Code != http.StatusOK {
		t.Fatalf("код %d", w.Code)
	}
	if body := w.Body.String(); body != `{"user_id":7}` {
		t.Errorf("личность не проброшена: %s", body)
	}

	// невалидный токен не валит публичное чтение, просто остаёмся анонимом
	w = do(r, http.MethodGet, "/api/files/abc", "not-a-jwt")
	if w.Code != http.StatusOK {
		t.Errorf("публичное чтение с мусорным токеном: код %d", w.Code)
	}
	if body := w.Body.String(); body != `{"user_id":null}` {
		t.Errorf("аноним получил личность: %s", body)
	}
}

func TestAuthMiddlewareRejectsWrongSecret(t *testing.T) {
	SetJWTSecret("test-secret")
	r := testRouter()

	other, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		UserID: 1,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString([]byte("another-secret"))
	if err != nil {
		t.Fatal(err)
	}

	if w := do(r, http.MethodPost, "/api/projects", other); w.Code != http.StatusUnauthorized {
		t.Errorf("токен с чужим секретом принят: %d", w.Code)
	}
}

func TestRequireRoles(t *testing.T) {
	SetJWTSecret("test-secret")
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(AuthMiddleware())
	admin := r.Group("/api/admin", RequireRoles(30, 40))
	admin.GET("/stats", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{}) })

	if w := do(r, http.MethodGet, "/api/admin/stats", signToken(t, 1, 10, time.Hour)); w.Code != http.StatusForbidden {
		t.Errorf("клиент прошёл в админку: %d", w.Code)
	}
	if w := do(r, http.MethodGet, "/api/admin/stats", signToken(t, 1, 40, time.Hour)); w.Code != http.StatusOK {
		t.Errorf("админ не прошёл: %d", w.Code)
	}
}
