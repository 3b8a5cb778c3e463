package services

import (
	"context"
	"fmt"
	"log"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// TelegramService — доставка кодов и уведомлений через Bot API.
// В dry-run режиме сообщения только логируются (локальная разработка без бота).
type TelegramService struct {
	bot    *tgbotapi.BotAPI
	dryRun bool
}

func NewTelegramService(botToken string, dryRun bool) (*TelegramService, error) {
	if dryRun || botToken == "" {
		return &TelegramService{dryRun: true}, nil
	}
	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("telegram bot init: %w", err)
	}
	log.Printf("[tg] authorized as @%s", bot.Self.UserName)
	return &TelegramService{bot: bot}, nil
}

func (t *TelegramService) SendCode(ctx context.Context, chatID int64, code string) error {
	text := fmt.Sprintf("Код подтверждения WorkFinder: <b>%s</b>\nНикому его не сообщайте.", code)
	return t.send(chatID, text)
}

func (t *TelegramService) SendMessage(chatID int64, text string) error {
	return t.send(chatID, text)
}

func (t *TelegramService) send(chatID int64, text string) error {
	if t.dryRun {
		log.Printf("[tg][dry-run] chat=%d text=%q", chatID, text)
		return nil
	}
	if chatID == 0 {
		log.Printf("[tg][skip] chatID empty")
		return nil
	}
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	if _, err := t.bot.Send(msg); err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	return nil
}

// RequestContact — приветствие с кнопкой шаринга контакта (ответ на /start).
func (t *TelegramService) RequestContact(chatID int64, text string) error {
	if t.dryRun {
		log.Printf("[tg][dry-run] request contact chat=%d", chatID)
		return nil
	}
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButtonContact("📱 Поделиться номером"),
		),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = true
	msg.ReplyMarkup = kb
	if _, err := t.bot.Send(msg); err != nil {
		return fmt.Errorf("telegram send keyboard: %w", err)
	}
	return nil
}

func (t *TelegramService) SetWebhook(url string) error {
	if t.dryRun || url == "" {
		return nil
	}
	wh, err := tgbotapi.NewWebhook(url)
	if err != nil {
		return fmt.Errorf("telegram webhook config: %w", err)
	}
	if _, err := t.bot.Request(wh); err != nil {
		return fmt.Errorf("telegram set webhook: %w", err)
	}
	log.Printf("[tg] webhook set: %s", url)
	return nil
}
