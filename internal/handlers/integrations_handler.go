package handlers

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"workfinder/internal/repositories"
	"workfinder/internal/services"
	"workfinder/internal/utils"
)

// IntegrationsHandler принимает апдейты Bot API. Бот нужен для одного:
// привязать телефон к chat_id, чтобы туда уходили коды и уведомления.
type IntegrationsHandler struct {
	Telegram *services.TelegramService
	Accounts repositories.TelegramAccountRepository
}

func NewIntegrationsHandler(tg *services.TelegramService, accounts repositories.TelegramAccountRepository) *IntegrationsHandler {
	return &IntegrationsHandler{Telegram: tg, Accounts: accounts}
}

// TelegramWebhook godoc
// @Summary Вебхук Telegram Bot API
// @Tags integrations
// @Accept json
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /integrations/telegram/webhook [post]
func (h *IntegrationsHandler) TelegramWebhook(c *gin.Context) {
	var upd tgbotapi.Update
	if err := c.ShouldBindJSON(&upd); err != nil {
		// Telegram повторяет доставку при не-200, мусор подтверждаем сразу
		ok(c, http.StatusOK, gin.H{})
		return
	}

	if upd.Message == nil {
		ok(c, http.StatusOK, gin.H{})
		return
	}
	chatID := upd.Message.Chat.ID

	switch {
	case upd.Message.Contact != nil:
		h.linkContact(c, chatID, upd.Message)
	case upd.Message.IsCommand() && upd.Message.Command() == "start":
		if err := h.Telegram.RequestContact(chatID,
			"Привет! Это бот WorkFinder.\nПоделитесь номером, чтобы получать коды входа и уведомления."); err != nil {
			log.Printf("[tg][webhook] request contact chat=%d: %v", chatID, err)
		}
	default:
		// на прочие сообщения не отвечаем
	}

	ok(c, http.StatusOK, gin.H{})
}

func (h *IntegrationsHandler) linkContact(c *gin.Context, chatID int64, msg *tgbotapi.Message) {
	// привязываем только собственный контакт отправителя
	if msg.Contact.UserID != 0 && msg.From != nil && msg.Contact.UserID != msg.From.ID {
		_ = h.Telegram.SendMessage(chatID, "Можно привязать только свой номер.")
		return
	}

	phone, err := utils.NormalizePhone(msg.Contact.PhoneNumber)
	if err != nil {
		_ = h.Telegram.SendMessage(chatID, "Не получилось распознать номер. Нужен российский мобильный.")
		return
	}

	username := ""
	if msg.From != nil {
		username = msg.From.UserName
	}
	ctx := c.Request.Context()
	if err := h.Accounts.UpsertByPhone(ctx, phone, chatID, username); err != nil {
		log.Printf("[tg][webhook] link phone=%s chat=%d: %v", phone, chatID, err)
		_ = h.Telegram.SendMessage(chatID, "Внутренняя ошибка, попробуйте ещё раз позже.")
		return
	}
	if err := h.Accounts.UpsertSession(ctx, chatID, "linked", phone); err != nil {
		log.Printf("[tg][webhook] session chat=%d: %v", chatID, err)
	}

	_ = h.Telegram.SendMessage(chatID,
		"Номер привязан ✅\nТеперь коды входа и уведомления будут приходить сюда.")
}
