package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"workfinder/internal/authz"
	"workfinder/internal/models"
	"workfinder/internal/repositories"
	"workfinder/internal/services"
)

type AdminHandler struct {
	Profiles      *services.ProfileService
	Projects      *repositories.ProjectRepository
	Withdrawals   *services.WithdrawalService
	WdrRepo       *repositories.WithdrawalRepository
	ProfileRepo   repositories.ProfileRepository
	Verifications *repositories.VerificationRepository
}

func NewAdminHandler(
	profiles *services.ProfileService,
	projects *repositories.ProjectRepository,
	withdrawals *services.WithdrawalService,
	wdrRepo *repositories.WithdrawalRepository,
	profileRepo repositories.ProfileRepository,
	verifications *repositories.VerificationRepository,
) *AdminHandler {
	return &AdminHandler{
		Profiles:      profiles,
		Projects:      projects,
		Withdrawals:   withdrawals,
		WdrRepo:       wdrRepo,
		ProfileRepo:   profileRepo,
		Verifications: verifications,
	}
}

// Stats godoc
// @Summary Сводка по площадке
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]interface{}
// @Router /api/admin/stats [get]
func (h *AdminHandler) Stats(c *gin.Context) {
	clients, _ := h.ProfileRepo.CountByRole(authz.RoleClient)
	freelancers, _ := h.ProfileRepo.CountByRole(authz.RoleFreelancer)

	projectsByStatus := gin.H{}
	for _, st := range []string{models.ProjectOpen, models.ProjectInProgress, models.ProjectCompleted, models.ProjectCancelled} {
		n, err := h.Projects.CountByStatus(st)
		if err != nil {
			log.Printf("[admin][stats] projects %s: %v", st, err)
			continue
		}
		projectsByStatus[st] = n
	}

	pendingWithdrawals, err := h.WdrRepo.CountByStatus(models.WithdrawalPending)
	if err != nil {
		log.Printf("[admin][stats] withdrawals: %v", err)
	}

	// конверсия входа за последние 30 дней
	verified, total, err := h.Verifications.CountOutcomesSince(time.Now().Add(-30 * 24 * time.Hour))
	if err != nil {
		log.Printf("[admin][stats] verifications: %v", err)
	}
	var successRate float64
	if total > 0 {
		successRate = float64(verified) / float64(total)
	}

	ok(c, http.StatusOK, gin.H{
		"users": gin.H{
			"clients":     clients,
			"freelancers": freelancers,
		},
		"projects":            projectsByStatus,
		"pending_withdrawals": pendingWithdrawals,
		"verifications": gin.H{
			"total":       total,
			"verified":    verified,
			"successRate": successRate,
		},
	})
}

// ListUsers godoc
// @Summary Список пользователей
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]interface{}
// @Router /api/admin/users [get]
func (h *AdminHandler) ListUsers(c *gin.Context) {
	users, err := h.Profiles.List(queryInt(c, "limit", 50), queryInt(c, "offset", 0))
	if err != nil {
		log.Printf("[admin][users] %v", err)
		fail(c, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to load users")
		return
	}
	ok(c, http.StatusOK, gin.H{"users": users})
}

type blockRequest struct {
	Blocked bool `json:"blocked"`
}

// SetBlocked godoc
// @Summary Блокировка или разблокировка пользователя
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "ID пользователя"
// @Param request body blockRequest true "Флаг блокировки"
// @Success 200 {object} map[string]interface{}
// @Router /api/admin/users/{id}/block [post]
func (h *AdminHandler) SetBlocked(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		fail(c, http.StatusBadRequest, "NOT_FOUND", "bad user id")
		return
	}
	var req blockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "VALIDATION_ERROR", "malformed body")
		return
	}
	if err := h.Profiles.SetBlocked(id, req.Blocked); err != nil {
		log.Printf("[admin][block] %v", err)
		fail(c, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to update user")
		return
	}
	ok(c, http.StatusOK, gin.H{"id": id, "blocked": req.Blocked})
}

// ListWithdrawals godoc
// @Summary Очередь заявок на вывод
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param status query string false "Статус, по умолчанию pending"
// @Success 200 {object} map[string]interface{}
// @Router /api/admin/withdrawals [get]
func (h *AdminHandler) ListWithdrawals(c *gin.Context) {
	status := c.DefaultQuery("status", models.WithdrawalPending)
	list, err := h.WdrRepo.ListByStatus(status, queryInt(c, "limit", 50), queryInt(c, "offset", 0))
	if err != nil {
		log.Printf("[admin][withdrawals] %v", err)
		fail(c, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to load withdrawals")
		return
	}
	ok(c, http.StatusOK, gin.H{"withdrawals": list})
}

// ApproveWithdrawal godoc
// @Summary Подтверждение выплаты
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param id path int true "ID заявки"
// @Success 200 {object} map[string]interface{}
// @Router /api/admin/withdrawals/{id}/approve [post]
func (h *AdminHandler) ApproveWithdrawal(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		fail(c, http.StatusBadRequest, "NOT_FOUND", "bad withdrawal id")
		return
	}
	w, err := h.Withdrawals.Approve(id)
	if err != nil {
		h.writeWithdrawalError(c, "approve", err)
		return
	}
	if w == nil {
		fail(c, http.StatusNotFound, "NOT_FOUND", "withdrawal not found")
		return
	}
	ok(c, http.StatusOK, gin.H{"withdrawal": w})
}

type rejectRequest struct {
	Reason string `json:"reason"`
}

// RejectWithdrawal godoc
// @Summary Отклонение заявки с возвратом средств
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "ID заявки"
// @Param request body rejectRequest false "Причина"
// @Success 200 {object} map[string]interface{}
// @Router /api/admin/withdrawals/{id}/reject [post]
func (h *AdminHandler) RejectWithdrawal(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		fail(c, http.StatusBadRequest, "NOT_FOUND", "bad withdrawal id")
		return
	}
	var req rejectRequest
	_ = c.ShouldBindJSON(&req)

	w, err := h.Withdrawals.Reject(id, req.Reason)
	if err != nil {
		h.writeWithdrawalError(c, "reject", err)
		return
	}
	if w == nil {
		fail(c, http.StatusNotFound, "NOT_FOUND", "withdrawal not found or already closed")
		return
	}
	ok(c, http.StatusOK, gin.H{"withdrawal": w})
}

func (h *AdminHandler) writeWithdrawalError(c *gin.Context, op string, err error) {
	switch {
	case errors.Is(err, services.ErrWithdrawalClosed):
		fail(c, http.StatusBadRequest, "VALIDATION_ERROR", "withdrawal is not pending")
	default:
		log.Printf("[admin][%s] %v", op, err)
		fail(c, http.StatusInternalServerError, "INTERNAL_ERROR", "operation failed")
	}
}
