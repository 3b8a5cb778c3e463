package services

import (
	"fmt"
	"log"

	"gopkg.in/gomail.v2"

	"workfinder/internal/repositories"
)

// Notifier — некритичные уведомления. Ошибки доставки логируются и глотаются:
// уведомление не должно ронять основную операцию.
type Notifier interface {
	Notify(profileID int, subject, text string)
}

type EmailSender interface {
	Send(to, subject, htmlBody string) error
}

type emailSender struct {
	dialer *gomail.Dialer
	from   string
}

func NewEmailSender(smtpHost string, smtpPort int, smtpUser, smtpPassword, fromEmail string) EmailSender {
	return &emailSender{
		dialer: gomail.NewDialer(smtpHost, smtpPort, smtpUser, smtpPassword),
		from:   fromEmail,
	}
}

func (s *emailSender) Send(to, subject, htmlBody string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", htmlBody)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	return nil
}

type notificationService struct {
	profiles repositories.ProfileRepository
	telegram *TelegramService
	email    EmailSender
}

func NewNotificationService(
	profiles repositories.ProfileRepository,
	telegram *TelegramService,
	email EmailSender,
) Notifier {
	return &notificationService{profiles: profiles, telegram: telegram, email: email}
}

// Notify — сначала телеграм (если чат привязан), иначе email (если указан).
func (n *notificationService) Notify(profileID int, subject, text string) {
	p, err := n.profiles.GetByID(profileID)
	if err != nil || p == nil {
		log.Printf("[notify] profile %d lookup failed: %v", profileID, err)
		return
	}

	if p.TelegramChatID != nil && *p.TelegramChatID != 0 && n.telegram != nil {
		if err := n.telegram.SendMessage(*p.TelegramChatID, fmt.Sprintf("<b>%s</b>\n%s", subject, text)); err != nil {
			log.Printf("[notify] telegram failed profile=%d: %v", profileID, err)
		} else {
			return
		}
	}

	if p.Email != "" && n.email != nil {
		body := fmt.Sprintf("<h3>%s</h3><p>%s</p><p>— WorkFinder</p>", subject, text)
		if err := n.email.Send(p.Email, subject, body); err != nil {
			log.Printf("[notify] email failed profile=%d: %v", profileID, err)
		}
	}
}
