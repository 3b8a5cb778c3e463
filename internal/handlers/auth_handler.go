package handlers

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"workfinder/internal/authz"
	"workfinder/internal/middleware"
	"workfinder/internal/models"
	"workfinder/internal/repositories"
	"workfinder/internal/services"
	"workfinder/internal/utils"
)

const (
	accessTokenTTL  = 15 * time.Minute
	refreshTokenTTL = 30 * 24 * time.Hour
)

type AuthHandler struct {
	Verifications *services.VerificationService
	Profiles      repositories.ProfileRepository
}

func NewAuthHandler(v *services.VerificationService, profiles repositories.ProfileRepository) *AuthHandler {
	return &AuthHandler{Verifications: v, Profiles: profiles}
}

type sendCodeRequest struct {
	Phone     string `json:"phone" binding:"required"`
	UserID    string `json:"userId"`
	SessionID string `json:"sessionId"`
}

// SendCode godoc
// @Summary Отправка кода подтверждения в Telegram
// @Tags auth
// @Accept json
// @Produce json
// @Param request body sendCodeRequest true "Телефон"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Failure 429 {object} map[string]interface{}
// @Router /api/auth/telegram/send [post]
func (h *AuthHandler) SendCode(c *gin.Context) {
	var req sendCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "INVALID_PHONE_FORMAT", "phone is required")
		return
	}

	res, err := h.Verifications.SendCode(c.Request.Context(), req.Phone, services.SendMeta{
		Origin:    c.ClientIP(),
		UserID:    req.UserID,
		SessionID: req.SessionID,
	})
	if err != nil {
		var rl *services.RateLimitError
		switch {
		case errors.Is(err, utils.ErrInvalidPhone):
			fail(c, http.StatusBadRequest, "INVALID_PHONE_FORMAT", "phone must be a russian mobile number")
		case errors.As(err, &rl):
			fail(c, http.StatusTooManyRequests, "RATE_LIMIT_EXCEEDED", "too many codes requested",
				gin.H{"retryAfter": int(rl.RetryAfter.Seconds())})
		default:
			log.Printf("[auth][send] %v", err)
			fail(c, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to send code")
		}
		return
	}

	ok(c, http.StatusOK, gin.H{
		"requestId":      res.RequestID,
		"status":         res.Status,
		"deliveryStatus": res.DeliveryStatus,
		"expiresIn":      int(res.ExpiresIn.Seconds()),
		"canResend":      res.CanResend,
		"alreadySent":    res.AlreadySent,
	})
}

type verifyCodeRequest struct {
	RequestID string `json:"requestId" binding:"required"`
	Code      string `json:"code" binding:"required"`
}

// VerifyCode godoc
// @Summary Проверка кода и выдача токенов
// @Tags auth
// @Accept json
// @Produce json
// @Param request body verifyCodeRequest true "Идентификатор запроса и код"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Failure 409 {object} map[string]interface{}
// @Router /api/auth/telegram/verify [post]
func (h *AuthHandler) VerifyCode(c *gin.Context) {
	var req verifyCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "VALIDATION_ERROR", "requestId and code are required")
		return
	}

	res, err := h.Verifications.Verify(c.Request.Context(), req.RequestID, req.Code)
	if err != nil {
		var invalid *services.InvalidCodeError
		switch {
		case errors.Is(err, services.ErrRequestNotFound):
			fail(c, http.StatusNotFound, "NOT_FOUND", "verification request not found")
		case errors.Is(err, services.ErrAlreadyVerified):
			fail(c, http.StatusConflict, "ALREADY_VERIFIED", "code already used")
		case errors.Is(err, services.ErrTooManyAttempts):
			fail(c, http.StatusBadRequest, "MAX_ATTEMPTS_EXCEEDED", "no attempts left, request a new code")
		case errors.Is(err, services.ErrCodeExpired):
			fail(c, http.StatusBadRequest, "EXPIRED", "code expired, request a new one")
		case errors.As(err, &invalid):
			fail(c, http.StatusBadRequest, "INVALID_CODE", "wrong code",
				gin.H{"attemptsLeft": invalid.AttemptsLeft})
		default:
			log.Printf("[auth][verify] %v", err)
			fail(c, http.StatusInternalServerError, "INTERNAL_ERROR", "verification failed")
		}
		return
	}

	access, refresh, err := h.issueTokens(res.Profile)
	if err != nil {
		log.Printf("[auth][verify] issue tokens: %v", err)
		fail(c, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to issue tokens")
		return
	}

	ok(c, http.StatusOK, gin.H{
		"accessToken":  access,
		"refreshToken": refresh,
		"profile":      res.Profile,
		"isNew":        res.IsNew,
		"redirectTo":   res.RedirectTo,
	})
}

// Status godoc
// @Summary Состояние запроса подтверждения
// @Tags auth
// @Produce json
// @Param requestId path string true "Идентификатор запроса"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /api/auth/telegram/status/{requestId} [get]
func (h *AuthHandler) Status(c *gin.Context) {
	res, err := h.Verifications.GetStatus(c.Param("requestId"))
	if err != nil {
		if errors.Is(err, services.ErrRequestNotFound) {
			fail(c, http.StatusNotFound, "NOT_FOUND", "verification request not found")
			return
		}
		log.Printf("[auth][status] %v", err)
		fail(c, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to read status")
		return
	}
	ok(c, http.StatusOK, gin.H{
		"status":       res.Status,
		"attemptsLeft": res.AttemptsLeft,
		"expiresIn":    int(res.ExpiresIn.Seconds()),
		"canResend":    res.CanResend,
	})
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

// Refresh godoc
// @Summary Обновление пары токенов по refresh-токену
// @Tags auth
// @Accept json
// @Produce json
// @Param request body refreshRequest true "Refresh-токен"
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} map[string]interface{}
// @Router /api/auth/refresh [post]
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "VALIDATION_ERROR", "refreshToken is required")
		return
	}

	newToken, err := utils.NewRefreshToken(32)
	if err != nil {
		log.Printf("[auth][refresh] token gen: %v", err)
		fail(c, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to rotate token")
		return
	}

	// ротация атомарна: второй запрос с тем же токеном получит отказ
	profile, err := h.Profiles.RotateRefresh(req.RefreshToken, newToken, time.Now().Add(refreshTokenTTL))
	if err != nil {
		log.Printf("[auth][refresh] rotate: %v", err)
		fail(c, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to rotate token")
		return
	}
	if profile == nil || profile.IsBlocked ||
		(profile.RefreshExpiresAt != nil && profile.RefreshExpiresAt.Before(time.Now())) {
		fail(c, http.StatusUnauthorized, "UNAUTHORIZED", "refresh token is invalid or expired")
		return
	}

	access, err := h.mintAccess(profile)
	if err != nil {
		log.Printf("[auth][refresh] mint: %v", err)
		fail(c, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to issue tokens")
		return
	}

	ok(c, http.StatusOK, gin.H{
		"accessToken":  access,
		"refreshToken": newToken,
	})
}

// AdminLogin godoc
// @Summary Вход для персонала по email и паролю
// @Tags auth
// @Accept json
// @Produce json
// @Param request body models.AdminLoginRequest true "Учётные данные"
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} map[string]interface{}
// @Router /api/admin/login [post]
func (h *AuthHandler) AdminLogin(c *gin.Context) {
	var req models.AdminLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "VALIDATION_ERROR", "email and password are required")
		return
	}

	profile, err := h.Profiles.GetByEmail(req.Email)
	if err != nil {
		log.Printf("[auth][admin] lookup: %v", err)
		fail(c, http.StatusInternalServerError, "INTERNAL_ERROR", "login failed")
		return
	}
	if profile == nil || !authz.IsStaff(profile.RoleID) || profile.IsBlocked {
		fail(c, http.StatusUnauthorized, "UNAUTHORIZED", "invalid credentials")
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(profile.PasswordHash), []byte(req.Password)) != nil {
		fail(c, http.StatusUnauthorized, "UNAUTHORIZED", "invalid credentials")
		return
	}

	access, refresh, err := h.issueTokens(profile)
	if err != nil {
		log.Printf("[auth][admin] issue tokens: %v", err)
		fail(c, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to issue tokens")
		return
	}

	ok(c, http.StatusOK, gin.H{
		"accessToken":  access,
		"refreshToken": refresh,
		"profile":      profile,
	})
}

func (h *AuthHandler) mintAccess(p *models.Profile) (string, error) {
	claims := &middleware.Claims{
		UserID: p.ID,
		RoleID: p.RoleID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(accessTokenTTL)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(middleware.JWTKey())
}

func (h *AuthHandler) issueTokens(p *models.Profile) (access, refresh string, err error) {
	access, err = h.mintAccess(p)
	if err != nil {
		return "", "", err
	}
	refresh, err = utils.NewRefreshToken(32)
	if err != nil {
		return "", "", err
	}
	if err = h.Profiles.UpdateRefresh(p.ID, refresh, time.Now().Add(refreshTokenTTL)); err != nil {
		return "", "", err
	}
	return access, refresh, nil
}
