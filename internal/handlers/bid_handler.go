package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"workfinder/internal/models"
	"workfinder/internal/repositories"
	"workfinder/internal/services"
)

type BidHandler struct {
	Bids *services.BidService
}

func NewBidHandler(bids *services.BidService) *BidHandler {
	return &BidHandler{Bids: bids}
}

type createBidRequest struct {
	Amount  int64  `json:"amount" binding:"required"`
	Days    int    `json:"days" binding:"required"`
	Message string `json:"message"`
}

// Create godoc
// @Summary Отклик на проект
// @Tags bids
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "ID проекта"
// @Param request body createBidRequest true "Отклик"
// @Success 201 {object} map[string]interface{}
// @Failure 409 {object} map[string]interface{}
// @Router /api/projects/{id}/bids [post]
func (h *BidHandler) Create(c *gin.Context) {
	userID, _ := getUserAndRole(c)
	projectID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		fail(c, http.StatusBadRequest, "NOT_FOUND", "bad project id")
		return
	}

	var req createBidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "VALIDATION_ERROR", "amount and days are required")
		return
	}
	if req.Amount <= 0 || req.Days <= 0 {
		fail(c, http.StatusBadRequest, "VALIDATION_ERROR", "amount and days must be positive")
		return
	}

	b := &models.Bid{
		ProjectID:    projectID,
		FreelancerID: userID,
		Amount:       req.Amount,
		Days:         req.Days,
		Message:      req.Message,
	}
	if err := h.Bids.Create(b); err != nil {
		switch {
		case errors.Is(err, repositories.ErrAlreadyBid):
			fail(c, http.StatusConflict, "ALREADY_BID", "you already bid on this project")
		case errors.Is(err, services.ErrProjectNotOpen):
			fail(c, http.StatusBadRequest, "VALIDATION_ERROR", "project is not open for bids")
		case errors.Is(err, services.ErrOwnBid):
			fail(c, http.StatusBadRequest, "VALIDATION_ERROR", "cannot bid on your own project")
		default:
			log.Printf("[bid][create] %v", err)
			fail(c, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to place bid")
		}
		return
	}
	ok(c, http.StatusCreated, gin.H{"bid": b})
}

// ListByProject godoc
// @Summary Отклики по проекту
// @Tags bids
// @Produce json
// @Security BearerAuth
// @Param id path int true "ID проекта"
// @Success 200 {object} map[string]interface{}
// @Router /api/projects/{id}/bids [get]
func (h *BidHandler) ListByProject(c *gin.Context) {
	userID, _ := getUserAndRole(c)
	projectID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		fail(c, http.StatusBadRequest, "NOT_FOUND", "bad project id")
		return
	}
	bids, err := h.Bids.ListByProject(userID, projectID)
	if err != nil {
		log.Printf("[bid][list] %v", err)
		fail(c, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to load bids")
		return
	}
	ok(c, http.StatusOK, gin.H{"bids": bids})
}

// ListMy godoc
// @Summary Свои отклики
// @Tags bids
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]interface{}
// @Router /api/bids/my [get]
func (h *BidHandler) ListMy(c *gin.Context) {
	userID, _ := getUserAndRole(c)
	bids, err := h.Bids.ListMy(userID, queryInt(c, "limit", 20), queryInt(c, "offset", 0))
	if err != nil {
		log.Printf("[bid][my] %v", err)
		fail(c, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to load bids")
		return
	}
	ok(c, http.StatusOK, gin.H{"bids": bids})
}

// Accept godoc
// @Summary Принятие отклика владельцем проекта
// @Tags bids
// @Produce json
// @Security BearerAuth
// @Param id path int true "ID отклика"
// @Success 200 {object} map[string]interface{}
// @Router /api/bids/{id}/accept [post]
func (h *BidHandler) Accept(c *gin.Context) {
	userID, _ := getUserAndRole(c)
	bidID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		fail(c, http.StatusBadRequest, "NOT_FOUND", "bad bid id")
		return
	}
	b, err := h.Bids.Accept(userID, bidID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrNotOwner):
			fail(c, http.StatusForbidden, "FORBIDDEN", "only the project owner can accept bids")
		case errors.Is(err, services.ErrProjectNotOpen):
			fail(c, http.StatusBadRequest, "VALIDATION_ERROR", "project is no longer open")
		case errors.Is(err, services.ErrBidClosed):
			fail(c, http.StatusBadRequest, "VALIDATION_ERROR", "bid is not pending")
		default:
			log.Printf("[bid][accept] %v", err)
			fail(c, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to accept bid")
		}
		return
	}
	if b == nil {
		fail(c, http.StatusNotFound, "NOT_FOUND", "bid not found")
		return
	}
	ok(c, http.StatusOK, gin.H{"bid": b})
}

// Withdraw godoc
// @Summary Отзыв своего отклика
// @Tags bids
// @Produce json
// @Security BearerAuth
// @Param id path int true "ID отклика"
// @Success 200 {object} map[string]interface{}
// @Router /api/bids/{id}/withdraw [post]
func (h *BidHandler) Withdraw(c *gin.Context) {
	userID, _ := getUserAndRole(c)
	bidID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		fail(c, http.StatusBadRequest, "NOT_FOUND", "bad bid id")
		return
	}
	if err := h.Bids.Withdraw(userID, bidID); err != nil {
		switch {
		case errors.Is(err, services.ErrNotOwner):
			fail(c, http.StatusForbidden, "FORBIDDEN", "not your bid")
		case errors.Is(err, services.ErrBidClosed):
			fail(c, http.StatusBadRequest, "VALIDATION_ERROR", "bid is not pending")
		default:
			log.Printf("[bid][withdraw] %v", err)
			fail(c, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to withdraw bid")
		}
		return
	}
	ok(c, http.StatusOK, gin.H{"withdrawn": bidID})
}
