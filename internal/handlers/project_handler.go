package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"workfinder/internal/models"
	"workfinder/internal/services"
)

type ProjectHandler struct {
	Projects *services.ProjectService
}

func NewProjectHandler(projects *services.ProjectService) *ProjectHandler {
	return &ProjectHandler{Projects: projects}
}

type createProjectRequest struct {
	Title       string   `json:"title" binding:"required"`
	Description string   `json:"description" binding:"required"`
	CategoryID  int      `json:"category_id" binding:"required"`
	City        string   `json:"city"`
	BudgetMin   int64    `json:"budget_min"`
	BudgetMax   int64    `json:"budget_max"`
	Lat         *float64 `json:"lat"`
	Lon         *float64 `json:"lon"`
}

// Create godoc
// @Summary Публикация проекта
// @Tags projects
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body createProjectRequest true "Проект"
// @Success 201 {object} map[string]interface{}
// @Router /api/projects [post]
func (h *ProjectHandler) Create(c *gin.Context) {
	userID, _ := getUserAndRole(c)

	var req createProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "VALIDATION_ERROR", "title, description and category_id are required")
		return
	}
	if req.BudgetMin < 0 || req.BudgetMax < 0 || (req.BudgetMax > 0 && req.BudgetMax < req.BudgetMin) {
		fail(c, http.StatusBadRequest, "VALIDATION_ERROR", "bad budget range")
		return
	}

	p := &models.Project{
		OwnerID:     userID,
		Title:       req.Title,
		Description: req.Description,
		CategoryID:  req.CategoryID,
		City:        req.City,
		BudgetMin:   req.BudgetMin,
		BudgetMax:   req.BudgetMax,
		Lat:         req.Lat,
		Lon:         req.Lon,
	}
	if err := h.Projects.Create(p); err != nil {
		log.Printf("[project][create] %v", err)
		fail(c, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to create project")
		return
	}
	ok(c, http.StatusCreated, gin.H{"project": p})
}

// Search godoc
// @Summary Поиск по витрине проектов
// @Tags projects
// @Produce json
// @Param category query int false "Категория"
// @Param city query string false "Город"
// @Param price_min query int false "Минимальный бюджет, копейки"
// @Param price_max query int false "Максимальный бюджет, копейки"
// @Param q query string false "Текстовый запрос"
// @Param lat query number false "Широта"
// @Param lon query number false "Долгота"
// @Param radius_km query number false "Радиус, км"
// @Param sort query string false "created_at|budget_max|budget_min|views"
// @Param order query string false "asc|desc"
// @Param limit query int false "Размер страницы"
// @Param offset query int false "Смещение"
// @Success 200 {object} map[string]interface{}
// @Router /api/projects [get]
func (h *ProjectHandler) Search(c *gin.Context) {
	f := &models.ProjectFilter{
		CategoryID: queryInt(c, "category", 0),
		City:       c.Query("city"),
		PriceMin:   queryInt64(c, "price_min", 0),
		PriceMax:   queryInt64(c, "price_max", 0),
		Query:      c.Query("q"),
		Status:     c.Query("status"),
		SortBy:     c.Query("sort"),
		Order:      c.Query("order"),
		Limit:      queryInt(c, "limit", 0),
		Offset:     queryInt(c, "offset", 0),
		RadiusKM:   0,
	}
	if lat, err := strconv.ParseFloat(c.Query("lat"), 64); err == nil {
		f.Lat = &lat
	}
	if lon, err := strconv.ParseFloat(c.Query("lon"), 64); err == nil {
		f.Lon = &lon
	}
	if r, err := strconv.ParseFloat(c.Query("radius_km"), 64); err == nil {
		f.RadiusKM = r
	}

	projects, err := h.Projects.Search(f)
	if err != nil {
		log.Printf("[project][search] %v", err)
		fail(c, http.StatusInternalServerError, "INTERNAL_ERROR", "search failed")
		return
	}
	ok(c, http.StatusOK, gin.H{"projects": projects, "count": len(projects)})
}

// Get godoc
// @Summary Карточка проекта
// @Tags projects
// @Produce json
// @Param id path int true "ID проекта"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /api/projects/{id} [get]
func (h *ProjectHandler) Get(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		fail(c, http.StatusBadRequest, "NOT_FOUND", "bad project id")
		return
	}
	p, err := h.Projects.GetByID(id)
	if err != nil {
		log.Printf("[project][get] %v", err)
		fail(c, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to load project")
		return
	}
	if p == nil {
		fail(c, http.StatusNotFound, "NOT_FOUND", "project not found")
		return
	}
	h.Projects.Touch(c.Request.Context(), id)
	ok(c, http.StatusOK, gin.H{"project": p})
}

// ListMy godoc
// @Summary Свои проекты
// @Tags projects
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]interface{}
// @Router /api/projects/my [get]
func (h *ProjectHandler) ListMy(c *gin.Context) {
	userID, _ := getUserAndRole(c)
	projects, err := h.Projects.ListMy(userID, queryInt(c, "limit", 20), queryInt(c, "offset", 0))
	if err != nil {
		log.Printf("[project][my] %v", err)
		fail(c, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to load projects")
		return
	}
	ok(c, http.StatusOK, gin.H{"projects": projects})
}

// Update godoc
// @Summary Правка своего проекта
// @Tags projects
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "ID проекта"
// @Param request body createProjectRequest true "Изменяемые поля"
// @Success 200 {object} map[string]interface{}
// @Router /api/projects/{id} [patch]
func (h *ProjectHandler) Update(c *gin.Context) {
	userID, _ := getUserAndRole(c)
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		fail(c, http.StatusBadRequest, "NOT_FOUND", "bad project id")
		return
	}

	var p models.Project
	if err := c.ShouldBindJSON(&p); err != nil {
		fail(c, http.StatusBadRequest, "VALIDATION_ERROR", "malformed body")
		return
	}
	p.ID = id

	if err := h.Projects.Update(userID, &p); err != nil {
		h.writeProjectError(c, "update", err)
		return
	}
	ok(c, http.StatusOK, gin.H{"project": p})
}

type projectStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// UpdateStatus godoc
// @Summary Смена статуса проекта владельцем
// @Tags projects
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "ID проекта"
// @Param request body projectStatusRequest true "Новый статус"
// @Success 200 {object} map[string]interface{}
// @Router /api/projects/{id}/status [patch]
func (h *ProjectHandler) UpdateStatus(c *gin.Context) {
	userID, _ := getUserAndRole(c)
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		fail(c, http.StatusBadRequest, "NOT_FOUND", "bad project id")
		return
	}
	var req projectStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "VALIDATION_ERROR", "status is required")
		return
	}
	if err := h.Projects.UpdateStatus(userID, id, req.Status); err != nil {
		h.writeProjectError(c, "status", err)
		return
	}
	ok(c, http.StatusOK, gin.H{"status": req.Status})
}

// Delete godoc
// @Summary Удаление своего проекта
// @Tags projects
// @Produce json
// @Security BearerAuth
// @Param id path int true "ID проекта"
// @Success 200 {object} map[string]interface{}
// @Router /api/projects/{id} [delete]
func (h *ProjectHandler) Delete(c *gin.Context) {
	userID, _ := getUserAndRole(c)
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		fail(c, http.StatusBadRequest, "NOT_FOUND", "bad project id")
		return
	}
	if err := h.Projects.Delete(userID, id); err != nil {
		h.writeProjectError(c, "delete", err)
		return
	}
	ok(c, http.StatusOK, gin.H{"deleted": id})
}

func (h *ProjectHandler) writeProjectError(c *gin.Context, op string, err error) {
	switch {
	case errors.Is(err, services.ErrNotOwner):
		fail(c, http.StatusForbidden, "FORBIDDEN", "not your project")
	case errors.Is(err, services.ErrBadStatusTransition):
		fail(c, http.StatusBadRequest, "VALIDATION_ERROR", "status transition not allowed")
	default:
		log.Printf("[project][%s] %v", op, err)
		fail(c, http.StatusInternalServerError, "INTERNAL_ERROR", "operation failed")
	}
}
