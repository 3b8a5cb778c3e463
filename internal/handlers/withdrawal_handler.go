package handlers

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"workfinder/internal/authz"
	"workfinder/internal/models"
	"workfinder/internal/pdf"
	"workfinder/internal/repositories"
	"workfinder/internal/services"
)

type WithdrawalHandler struct {
	Withdrawals *services.WithdrawalService
	Profiles    *services.ProfileService
	Receipts    pdf.Generator
}

func NewWithdrawalHandler(w *services.WithdrawalService, profiles *services.ProfileService, receipts pdf.Generator) *WithdrawalHandler {
	return &WithdrawalHandler{Withdrawals: w, Profiles: profiles, Receipts: receipts}
}

type createWithdrawalRequest struct {
	Amount      int64  `json:"amount" binding:"required"`
	Method      string `json:"method" binding:"required"`
	Destination string `json:"destination" binding:"required"`
}

// Create godoc
// @Summary Заявка на вывод средств
// @Tags withdrawals
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body createWithdrawalRequest true "Заявка"
// @Success 201 {object} map[string]interface{}
// @Failure 429 {object} map[string]interface{}
// @Router /api/withdrawals [post]
func (h *WithdrawalHandler) Create(c *gin.Context) {
	userID, _ := getUserAndRole(c)

	var req createWithdrawalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "VALIDATION_ERROR", "amount, method and destination are required")
		return
	}

	w, err := h.Withdrawals.Create(userID, req.Amount, req.Method, req.Destination)
	if err != nil {
		var daily *services.DailyLimitError
		switch {
		case errors.Is(err, services.ErrAmountTooSmall):
			fail(c, http.StatusBadRequest, "VALIDATION_ERROR", "minimum withdrawal is 500 rub")
		case errors.Is(err, services.ErrAmountTooLarge):
			fail(c, http.StatusBadRequest, "VALIDATION_ERROR", "maximum withdrawal is 100000 rub")
		case errors.Is(err, services.ErrUnknownMethod):
			fail(c, http.StatusBadRequest, "VALIDATION_ERROR", "method must be card, sbp or wallet")
		case errors.As(err, &daily):
			fail(c, http.StatusTooManyRequests, "DAILY_LIMIT_EXCEEDED", "daily withdrawal limit exceeded",
				gin.H{"retryAfter": int(daily.RetryAfter.Seconds())})
		case errors.Is(err, repositories.ErrInsufficientBalance):
			fail(c, http.StatusBadRequest, "VALIDATION_ERROR", "insufficient balance")
		default:
			log.Printf("[withdrawal][create] %v", err)
			fail(c, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to create withdrawal")
		}
		return
	}
	ok(c, http.StatusCreated, gin.H{"withdrawal": w})
}

// ListMy godoc
// @Summary Свои заявки на вывод
// @Tags withdrawals
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]interface{}
// @Router /api/withdrawals [get]
func (h *WithdrawalHandler) ListMy(c *gin.Context) {
	userID, _ := getUserAndRole(c)
	list, err := h.Withdrawals.ListByProfile(userID, queryInt(c, "limit", 20), queryInt(c, "offset", 0))
	if err != nil {
		log.Printf("[withdrawal][my] %v", err)
		fail(c, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to load withdrawals")
		return
	}
	ok(c, http.StatusOK, gin.H{"withdrawals": list})
}

// Receipt godoc
// @Summary Квитанция о завершённом выводе (PDF)
// @Tags withdrawals
// @Produce application/pdf
// @Security BearerAuth
// @Param id path int true "ID заявки"
// @Success 200 {file} binary
// @Router /api/withdrawals/{id}/receipt [get]
func (h *WithdrawalHandler) Receipt(c *gin.Context) {
	userID, roleID := getUserAndRole(c)
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		fail(c, http.StatusBadRequest, "NOT_FOUND", "bad withdrawal id")
		return
	}

	w, err := h.Withdrawals.GetByID(id)
	if err != nil {
		log.Printf("[withdrawal][receipt] %v", err)
		fail(c, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to load withdrawal")
		return
	}
	if w == nil {
		fail(c, http.StatusNotFound, "NOT_FOUND", "withdrawal not found")
		return
	}
	if w.ProfileID != userID && !authz.IsStaff(roleID) {
		fail(c, http.StatusForbidden, "FORBIDDEN", "not your withdrawal")
		return
	}
	if w.Status != models.WithdrawalCompleted {
		fail(c, http.StatusBadRequest, "VALIDATION_ERROR", "receipt is available for completed withdrawals only")
		return
	}

	profile, err := h.Profiles.GetByID(w.ProfileID)
	if err != nil || profile == nil {
		log.Printf("[withdrawal][receipt] profile: %v", err)
		fail(c, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to load profile")
		return
	}

	path, err := h.Receipts.GenerateWithdrawalReceipt(pdf.ReceiptData{
		WithdrawalID: w.ID,
		ProfileName:  profile.DisplayName,
		Phone:        profile.Phone,
		Amount:       formatKopecks(w.Amount),
		Fee:          formatKopecks(w.Fee),
		Net:          formatKopecks(w.Net),
		Method:       w.Method,
		Destination:  w.Destination,
		CreatedAt:    w.CreatedAt,
	})
	if err != nil {
		log.Printf("[withdrawal][receipt] generate: %v", err)
		fail(c, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to generate receipt")
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="receipt-WF-%06d.pdf"`, w.ID))
	c.File(path)
}

func formatKopecks(v int64) string {
	return fmt.Sprintf("%d.%02d ₽", v/100, v%100)
}
