package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

var jwtKey []byte

// SetJWTSecret вызывается один раз при старте (app.Run), до регистрации роутов.
func SetJWTSecret(secret string) {
	jwtKey = []byte(secret)
}

func JWTKey() []byte { return jwtKey }

type Claims struct {
	UserID int `json:"user_id"`
	RoleID int `json:"role_id"`
	jwt.RegisteredClaims
}

// публичные эндпоинты, не требующие токена
func isPublicPath(path string) bool {
	switch path {
	case "/api/auth/telegram/send", "/api/auth/telegram/verify",
		"/api/auth/refresh", "/api/admin/login",
		"/api/payments/webhook", "/integrations/telegram/webhook":
		return true
	}
	return strings.HasPrefix(path, "/api/auth/telegram/status/") ||
		strings.HasPrefix(path, "/swagger") ||
		strings.HasPrefix(path, "/healthz")
}

// каталог и витрина открыты только на чтение
func isPublicRead(path string) bool {
	// "мои" выборки и отклики всегда под токеном
	if path == "/api/profiles/me" || path == "/api/projects/my" || strings.HasSuffix(path, "/bids") {
		return false
	}
	return strings.HasPrefix(path, "/api/categories") ||
		strings.HasPrefix(path, "/api/projects") ||
		strings.HasPrefix(path, "/api/profiles/") ||
		strings.HasPrefix(path, "/api/files/")
}

// срок действия проверяется с небольшим leeway
const leeway = 2 * time.Minute

// setIdentityIfPresent — на публичных read-эндпоинтах токен не обязателен,
// но если пришёл валидный, личность учитывается (приватные файлы видит
// только владелец, аноним получает отказ в хендлере).
func setIdentityIfPresent(c *gin.Context) {
	parts := strings.SplitN(strings.TrimSpace(c.GetHeader("Authorization")), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return
	}
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(strings.TrimSpace(parts[1]), claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenSignatureInvalid
		}
		return jwtKey, nil
	}, jwt.WithLeeway(leeway))
	if err != nil || !token.Valid {
		return
	}
	c.Set("user_id", claims.UserID)
	c.Set("role_id", claims.RoleID)
}

func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}
		if isPublicPath(c.Request.URL.Path) {
			c.Next()
			return
		}
		if c.Request.Method == http.MethodGet && isPublicRead(c.Request.URL.Path) {
			setIdentityIfPresent(c)
			c.Next()
			return
		}

		authHeader := strings.TrimSpace(c.GetHeader("Authorization"))
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "error": gin.H{"code": "UNAUTHORIZED", "message": "Missing or invalid Authorization header"}})
			return
		}
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "error": gin.H{"code": "UNAUTHORIZED", "message": "Missing or invalid Authorization header"}})
			return
		}
		tokenStr := strings.TrimSpace(parts[1])
		if tokenStr == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "error": gin.H{"code": "UNAUTHORIZED", "message": "Missing or invalid Authorization header"}})
			return
		}

		claims := &Claims{}
		token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
			// принимаем только HMAC
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrTokenSignatureInvalid
			}
			return jwtKey, nil
		}, jwt.WithLeeway(leeway))
		if err != nil || !token.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "error": gin.H{"code": "UNAUTHORIZED", "message": "Invalid or expired token"}})
			return
		}

		if claims.ExpiresAt == nil || claims.ExpiresAt.Time.Before(time.Now().Add(-leeway)) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "error": gin.H{"code": "UNAUTHORIZED", "message": "Invalid or expired token"}})
			return
		}

		c.Set("user_id", claims.UserID)
		c.Set("role_id", claims.RoleID)

		c.Next()
	}
}
