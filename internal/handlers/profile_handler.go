package handlers

import (
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"workfinder/internal/models"
	"workfinder/internal/services"
)

type ProfileHandler struct {
	Profiles *services.ProfileService
}

func NewProfileHandler(profiles *services.ProfileService) *ProfileHandler {
	return &ProfileHandler{Profiles: profiles}
}

// Me godoc
// @Summary Свой профиль целиком
// @Tags profiles
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]interface{}
// @Router /api/profiles/me [get]
func (h *ProfileHandler) Me(c *gin.Context) {
	userID, _ := getUserAndRole(c)
	p, err := h.Profiles.GetByID(userID)
	if err != nil {
		log.Printf("[profile][me] %v", err)
		fail(c, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to load profile")
		return
	}
	if p == nil {
		fail(c, http.StatusNotFound, "NOT_FOUND", "profile not found")
		return
	}
	ok(c, http.StatusOK, gin.H{"profile": p})
}

// UpdateMe godoc
// @Summary Частичное обновление своего профиля
// @Tags profiles
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.Profile true "Изменяемые поля"
// @Success 200 {object} map[string]interface{}
// @Router /api/profiles/me [patch]
func (h *ProfileHandler) UpdateMe(c *gin.Context) {
	userID, _ := getUserAndRole(c)

	var patch models.Profile
	if err := c.ShouldBindJSON(&patch); err != nil {
		fail(c, http.StatusBadRequest, "VALIDATION_ERROR", "malformed body")
		return
	}

	p, err := h.Profiles.Update(userID, &patch)
	if err != nil {
		log.Printf("[profile][update] %v", err)
		fail(c, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to update profile")
		return
	}
	ok(c, http.StatusOK, gin.H{"profile": p})
}

// Get godoc
// @Summary Публичная карточка профиля
// @Tags profiles
// @Produce json
// @Param id path int true "ID профиля"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /api/profiles/{id} [get]
func (h *ProfileHandler) Get(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		fail(c, http.StatusBadRequest, "NOT_FOUND", "bad profile id")
		return
	}
	p, err := h.Profiles.GetByID(id)
	if err != nil {
		log.Printf("[profile][get] %v", err)
		fail(c, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to load profile")
		return
	}
	if p == nil || p.IsBlocked {
		fail(c, http.StatusNotFound, "NOT_FOUND", "profile not found")
		return
	}
	ok(c, http.StatusOK, gin.H{"profile": p.Public()})
}
