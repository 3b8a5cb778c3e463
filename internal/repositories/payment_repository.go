package repositories

import (
	"database/sql"
	"fmt"

	"workfinder/internal/models"
)

type PaymentRepository struct {
	db *sql.DB
}

func NewPaymentRepository(db *sql.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

func (r *PaymentRepository) Create(p *models.Payment) error {
	const q = `
		INSERT INTO payments (profile_id, order_id, amount, currency, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`
	if err := r.db.QueryRow(q,
		p.ProfileID, p.OrderID, p.Amount, p.Currency, p.Status, p.CreatedAt,
	).Scan(&p.ID); err != nil {
		return fmt.Errorf("payment create: %w", err)
	}
	return nil
}

func (r *PaymentRepository) GetByOrderID(orderID string) (*models.Payment, error) {
	const q = `
		SELECT id, profile_id, order_id, amount, currency, status, created_at
		FROM payments WHERE order_id=$1
	`
	var p models.Payment
	if err := r.db.QueryRow(q, orderID).Scan(
		&p.ID, &p.ProfileID, &p.OrderID, &p.Amount, &p.Currency, &p.Status, &p.CreatedAt,
	); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("payment get: %w", err)
	}
	return &p, nil
}

// CaptureWithCredit — зачисление на баланс. Переход created→captured — CAS по
// статусу, повторный вебхук по тому же заказу ничего не зачислит второй раз.
func (r *PaymentRepository) CaptureWithCredit(orderID string) (*models.Payment, error) {
	tx, err := r.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("payment tx: %w", err)
	}
	defer tx.Rollback()

	const q = `
		UPDATE payments SET status='captured'
		WHERE order_id=$1 AND status='created'
		RETURNING id, profile_id, order_id, amount, currency, status, created_at
	`
	var p models.Payment
	if err := tx.QueryRow(q, orderID).Scan(
		&p.ID, &p.ProfileID, &p.OrderID, &p.Amount, &p.Currency, &p.Status, &p.CreatedAt,
	); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // уже обработан или неизвестный заказ
		}
		return nil, fmt.Errorf("payment capture: %w", err)
	}

	if _, err := tx.Exec(
		`UPDATE profiles SET balance = balance + $1 WHERE id=$2`, p.Amount, p.ProfileID,
	); err != nil {
		return nil, fmt.Errorf("payment credit: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &p, nil
}
