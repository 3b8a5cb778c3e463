package handlers

import (
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"workfinder/internal/services"
)

type PaymentHandler struct {
	Payments *services.PaymentService
}

func NewPaymentHandler(payments *services.PaymentService) *PaymentHandler {
	return &PaymentHandler{Payments: payments}
}

type topupRequest struct {
	Amount int64 `json:"amount" binding:"required"`
}

// CreateTopup godoc
// @Summary Заказ на пополнение баланса
// @Tags payments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body topupRequest true "Сумма в копейках"
// @Success 201 {object} map[string]interface{}
// @Router /api/payments/topup [post]
func (h *PaymentHandler) CreateTopup(c *gin.Context) {
	userID, _ := getUserAndRole(c)

	var req topupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "VALIDATION_ERROR", "amount is required")
		return
	}

	order, err := h.Payments.CreateTopup(userID, req.Amount)
	if err != nil {
		if errors.Is(err, services.ErrBadTopupAmount) {
			fail(c, http.StatusBadRequest, "VALIDATION_ERROR", "top-up amount out of range")
			return
		}
		log.Printf("[payment][topup] %v", err)
		fail(c, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to create order")
		return
	}
	ok(c, http.StatusCreated, gin.H{"order": order})
}

// Webhook godoc
// @Summary Вебхук платёжного шлюза
// @Tags payments
// @Accept json
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} map[string]interface{}
// @Router /api/payments/webhook [post]
func (h *PaymentHandler) Webhook(c *gin.Context) {
	// подпись считается от сырого тела, читать до любого бинда
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, 1<<20))
	if err != nil {
		fail(c, http.StatusBadRequest, "VALIDATION_ERROR", "cannot read body")
		return
	}

	if err := h.Payments.HandleWebhook(body, c.GetHeader("X-Razorpay-Signature")); err != nil {
		if errors.Is(err, services.ErrBadWebhookSignature) {
			fail(c, http.StatusUnauthorized, "UNAUTHORIZED", "bad signature")
			return
		}
		log.Printf("[payment][webhook] %v", err)
		fail(c, http.StatusInternalServerError, "INTERNAL_ERROR", "webhook processing failed")
		return
	}
	ok(c, http.StatusOK, gin.H{})
}
