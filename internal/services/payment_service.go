package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	razorpay "github.com/razorpay/razorpay-go"
	razorpayutils "github.com/razorpay/razorpay-go/utils"

	"workfinder/internal/models"
	"workfinder/internal/repositories"
)

var ErrBadWebhookSignature = errors.New("bad webhook signature")

const (
	topupMin = 100_00      // 100 ₽
	topupMax = 500_000_00  // 500 000 ₽
)

var ErrBadTopupAmount = errors.New("top-up amount out of range")

type PaymentService struct {
	Repo          *repositories.PaymentRepository
	Notifier      Notifier
	client        *razorpay.Client
	keyID         string
	webhookSecret string
}

func NewPaymentService(
	repo *repositories.PaymentRepository,
	notifier Notifier,
	keyID, keySecret, webhookSecret string,
) *PaymentService {
	return &PaymentService{
		Repo:          repo,
		Notifier:      notifier,
		client:        razorpay.NewClient(keyID, keySecret),
		keyID:         keyID,
		webhookSecret: webhookSecret,
	}
}

type TopupOrder struct {
	OrderID  string `json:"orderId"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	KeyID    string `json:"keyId"`
}

// CreateTopup — создаёт заказ в шлюзе и запись payments со статусом created.
func (s *PaymentService) CreateTopup(profileID int, amount int64) (*TopupOrder, error) {
	if amount < topupMin || amount > topupMax {
		return nil, ErrBadTopupAmount
	}

	data := map[string]interface{}{
		"amount":   amount,
		"currency": "RUB",
		"receipt":  fmt.Sprintf("topup-%d-%d", profileID, time.Now().Unix()),
	}
	body, err := s.client.Order.Create(data, nil)
	if err != nil {
		return nil, fmt.Errorf("gateway order create: %w", err)
	}
	orderID, _ := body["id"].(string)
	if orderID == "" {
		return nil, fmt.Errorf("gateway order create: empty order id")
	}

	p := &models.Payment{
		ProfileID: profileID,
		OrderID:   orderID,
		Amount:    amount,
		Currency:  "RUB",
		Status:    models.PaymentCreated,
		CreatedAt: time.Now(),
	}
	if err := s.Repo.Create(p); err != nil {
		return nil, err
	}
	log.Printf("[payments][topup] order=%s profile=%d amount=%d", orderID, profileID, amount)

	return &TopupOrder{OrderID: orderID, Amount: amount, Currency: "RUB", KeyID: s.keyID}, nil
}

type webhookEvent struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity struct {
				OrderID string `json:"order_id"`
			} `json:"entity"`
		} `json:"payment"`
	} `json:"payload"`
}

// HandleWebhook — проверка подписи и зачисление. Идемпотентно: CAS по статусу
// платежа, повторный вебхук ничего не зачислит.
func (s *PaymentService) HandleWebhook(body []byte, signature string) error {
	if !razorpayutils.VerifyWebhookSignature(string(body), signature, s.webhookSecret) {
		return ErrBadWebhookSignature
	}

	var ev webhookEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("webhook parse: %w", err)
	}
	if ev.Event != "payment.captured" {
		log.Printf("[payments][webhook] ignoring event=%s", ev.Event)
		return nil
	}
	orderID := ev.Payload.Payment.Entity.OrderID
	if orderID == "" {
		return fmt.Errorf("webhook: empty order id")
	}

	p, err := s.Repo.CaptureWithCredit(orderID)
	if err != nil {
		return err
	}
	if p == nil {
		log.Printf("[payments][webhook] order=%s already processed or unknown", orderID)
		return nil
	}
	log.Printf("[payments][webhook] captured order=%s profile=%d amount=%d", orderID, p.ProfileID, p.Amount)

	if s.Notifier != nil {
		s.Notifier.Notify(p.ProfileID, "Баланс пополнен",
			fmt.Sprintf("Зачислено %.2f ₽.", float64(p.Amount)/100))
	}
	return nil
}
