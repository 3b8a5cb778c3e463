package handlers

import (
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"workfinder/internal/models"
	"workfinder/internal/services"
)

type CategoryHandler struct {
	Categories *services.CategoryService
}

func NewCategoryHandler(categories *services.CategoryService) *CategoryHandler {
	return &CategoryHandler{Categories: categories}
}

// List godoc
// @Summary Дерево категорий
// @Tags categories
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /api/categories [get]
func (h *CategoryHandler) List(c *gin.Context) {
	categories, err := h.Categories.List(c.Request.Context())
	if err != nil {
		log.Printf("[category][list] %v", err)
		fail(c, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to load categories")
		return
	}
	ok(c, http.StatusOK, gin.H{"categories": categories})
}

// Create godoc
// @Summary Создание категории (модератор и выше)
// @Tags categories
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.Category true "Категория"
// @Success 201 {object} map[string]interface{}
// @Router /api/admin/categories [post]
func (h *CategoryHandler) Create(c *gin.Context) {
	var cat models.Category
	if err := c.ShouldBindJSON(&cat); err != nil || cat.Name == "" || cat.Slug == "" {
		fail(c, http.StatusBadRequest, "VALIDATION_ERROR", "name and slug are required")
		return
	}
	if err := h.Categories.Create(c.Request.Context(), &cat); err != nil {
		log.Printf("[category][create] %v", err)
		fail(c, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to create category")
		return
	}
	ok(c, http.StatusCreated, gin.H{"category": cat})
}

// Update godoc
// @Summary Правка категории (модератор и выше)
// @Tags categories
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "ID категории"
// @Param request body models.Category true "Категория"
// @Success 200 {object} map[string]interface{}
// @Router /api/admin/categories/{id} [put]
func (h *CategoryHandler) Update(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		fail(c, http.StatusBadRequest, "NOT_FOUND", "bad category id")
		return
	}
	var cat models.Category
	if err := c.ShouldBindJSON(&cat); err != nil {
		fail(c, http.StatusBadRequest, "VALIDATION_ERROR", "malformed body")
		return
	}
	cat.ID = id
	if err := h.Categories.Update(c.Request.Context(), &cat); err != nil {
		log.Printf("[category][update] %v", err)
		fail(c, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to update category")
		return
	}
	ok(c, http.StatusOK, gin.H{"category": cat})
}

// Delete godoc
// @Summary Удаление категории (модератор и выше)
// @Tags categories
// @Produce json
// @Security BearerAuth
// @Param id path int true "ID категории"
// @Success 200 {object} map[string]interface{}
// @Router /api/admin/categories/{id} [delete]
func (h *CategoryHandler) Delete(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		fail(c, http.StatusBadRequest, "NOT_FOUND", "bad category id")
		return
	}
	if err := h.Categories.Delete(c.Request.Context(), id); err != nil {
		log.Printf("[category][delete] %v", err)
		fail(c, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to delete category")
		return
	}
	ok(c, http.StatusOK, gin.H{"deleted": id})
}
