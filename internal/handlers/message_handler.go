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

type MessageHandler struct {
	Messages *services.MessageService
}

func NewMessageHandler(messages *services.MessageService) *MessageHandler {
	return &MessageHandler{Messages: messages}
}

type sendMessageRequest struct {
	ProjectID   int    `json:"project_id" binding:"required"`
	RecipientID int    `json:"recipient_id" binding:"required"`
	Body        string `json:"body" binding:"required"`
}

// Send godoc
// @Summary Сообщение в рамках проекта
// @Tags messages
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body sendMessageRequest true "Сообщение"
// @Success 201 {object} map[string]interface{}
// @Router /api/messages [post]
func (h *MessageHandler) Send(c *gin.Context) {
	userID, _ := getUserAndRole(c)

	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "VALIDATION_ERROR", "project_id, recipient_id and body are required")
		return
	}

	m := &models.Message{
		ProjectID:   req.ProjectID,
		SenderID:    userID,
		RecipientID: req.RecipientID,
		Body:        req.Body,
	}
	if err := h.Messages.Send(c.Request.Context(), m); err != nil {
		if errors.Is(err, services.ErrNotParticipant) {
			fail(c, http.StatusForbidden, "FORBIDDEN", "both sides must be project participants")
			return
		}
		log.Printf("[message][send] %v", err)
		fail(c, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to send message")
		return
	}
	ok(c, http.StatusCreated, gin.H{"message": m})
}

// Conversations godoc
// @Summary Список переписок
// @Tags messages
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]interface{}
// @Router /api/messages [get]
func (h *MessageHandler) Conversations(c *gin.Context) {
	userID, _ := getUserAndRole(c)
	// опрос входящих считаем признаком присутствия
	h.Messages.MarkOnline(c.Request.Context(), userID)
	list, err := h.Messages.Conversations(userID)
	if err != nil {
		log.Printf("[message][conversations] %v", err)
		fail(c, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to load conversations")
		return
	}
	ok(c, http.StatusOK, gin.H{"conversations": list})
}

// History godoc
// @Summary История переписки с собеседником
// @Tags messages
// @Produce json
// @Security BearerAuth
// @Param partnerId path int true "ID собеседника"
// @Param project query int false "Ограничить одним проектом"
// @Success 200 {object} map[string]interface{}
// @Router /api/messages/{partnerId} [get]
func (h *MessageHandler) History(c *gin.Context) {
	userID, _ := getUserAndRole(c)
	partnerID, err := strconv.Atoi(c.Param("partnerId"))
	if err != nil {
		fail(c, http.StatusBadRequest, "NOT_FOUND", "bad partner id")
		return
	}

	msgs, err := h.Messages.History(userID, partnerID, queryInt(c, "project", 0),
		queryInt(c, "limit", 50), queryInt(c, "offset", 0))
	if err != nil {
		log.Printf("[message][history] %v", err)
		fail(c, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to load history")
		return
	}
	ok(c, http.StatusOK, gin.H{"messages": msgs})
}
