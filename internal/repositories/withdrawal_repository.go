package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"workfinder/internal/models"
)

// ErrInsufficientBalance — на балансе не хватает на сумму + комиссию.
var ErrInsufficientBalance = errors.New("insufficient balance")

type WithdrawalRepository struct {
	db *sql.DB
}

func NewWithdrawalRepository(db *sql.DB) *WithdrawalRepository {
	return &WithdrawalRepository{db: db}
}

const withdrawalCols = `id, profile_id, amount, fee, net, method, destination, status, created_at`

func scanWithdrawal(row interface{ Scan(...interface{}) error }) (*models.Withdrawal, error) {
	var w models.Withdrawal
	if err := row.Scan(
		&w.ID, &w.ProfileID, &w.Amount, &w.Fee, &w.Net, &w.Method, &w.Destination, &w.Status, &w.CreatedAt,
	); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("withdrawal scan: %w", err)
	}
	return &w, nil
}

// CreateWithDebit — списание и заявка в одной транзакции.
// Баланс блокируется FOR UPDATE: параллельные заявки сериализуются на строке профиля.
func (r *WithdrawalRepository) CreateWithDebit(w *models.Withdrawal) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("withdrawal tx: %w", err)
	}
	defer tx.Rollback()

	var balance int64
	if err := tx.QueryRow(
		`SELECT balance FROM profiles WHERE id=$1 FOR UPDATE`, w.ProfileID,
	).Scan(&balance); err != nil {
		return fmt.Errorf("withdrawal lock balance: %w", err)
	}
	if balance < w.Amount {
		return ErrInsufficientBalance
	}

	if _, err := tx.Exec(
		`UPDATE profiles SET balance = balance - $1 WHERE id=$2`, w.Amount, w.ProfileID,
	); err != nil {
		return fmt.Errorf("withdrawal debit: %w", err)
	}

	const q = `
		INSERT INTO withdrawals (profile_id, amount, fee, net, method, destination, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`
	if err := tx.QueryRow(q,
		w.ProfileID, w.Amount, w.Fee, w.Net, w.Method, w.Destination, w.Status, w.CreatedAt,
	).Scan(&w.ID); err != nil {
		return fmt.Errorf("withdrawal create: %w", err)
	}

	return tx.Commit()
}

// RejectWithRefund — отклонение заявки с возвратом суммы на баланс.
func (r *WithdrawalRepository) RejectWithRefund(id int) (*models.Withdrawal, error) {
	tx, err := r.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("withdrawal tx: %w", err)
	}
	defer tx.Rollback()

	const q = `
		UPDATE withdrawals SET status='rejected'
		WHERE id=$1 AND status IN ('pending','processing')
		RETURNING ` + withdrawalCols
	w, err := scanWithdrawal(tx.QueryRow(q, id))
	if err != nil {
		return nil, err
	}
	if w == nil {
		return nil, nil
	}

	if _, err := tx.Exec(
		`UPDATE profiles SET balance = balance + $1 WHERE id=$2`, w.Amount, w.ProfileID,
	); err != nil {
		return nil, fmt.Errorf("withdrawal refund: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return w, nil
}

func (r *WithdrawalRepository) GetByID(id int) (*models.Withdrawal, error) {
	const q = `SELECT ` + withdrawalCols + ` FROM withdrawals WHERE id=$1`
	return scanWithdrawal(r.db.QueryRow(q, id))
}

func (r *WithdrawalRepository) UpdateStatus(id int, status string) error {
	_, err := r.db.Exec(`UPDATE withdrawals SET status=$1 WHERE id=$2`, status, id)
	return err
}

func (r *WithdrawalRepository) ListByProfile(profileID, limit, offset int) ([]*models.Withdrawal, error) {
	const q = `
		SELECT ` + withdrawalCols + ` FROM withdrawals
		WHERE profile_id=$1 ORDER BY created_at DESC LIMIT $2 OFFSET $3
	`
	return r.queryWithdrawals(q, profileID, limit, offset)
}

func (r *WithdrawalRepository) ListByStatus(status string, limit, offset int) ([]*models.Withdrawal, error) {
	const q = `
		SELECT ` + withdrawalCols + ` FROM withdrawals
		WHERE status=$1 ORDER BY created_at ASC LIMIT $2 OFFSET $3
	`
	return r.queryWithdrawals(q, status, limit, offset)
}

// SumActiveSince — сумма заявок (кроме отклонённых) в скользящем окне.
// Дневной лимит считается по таблице, а не по кэшу: деньги должны переживать
// потерю redis.
func (r *WithdrawalRepository) SumActiveSince(profileID int, since time.Time) (int64, error) {
	const q = `
		SELECT COALESCE(SUM(amount), 0)
		FROM withdrawals
		WHERE profile_id=$1 AND status <> 'rejected' AND created_at >= $2
	`
	var sum int64
	if err := r.db.QueryRow(q, profileID, since).Scan(&sum); err != nil {
		return 0, fmt.Errorf("withdrawal sum: %w", err)
	}
	return sum, nil
}

// OldestActiveSince — когда выйдет из окна старейшая заявка (для retry-after).
func (r *WithdrawalRepository) OldestActiveSince(profileID int, since time.Time) (time.Time, error) {
	const q = `
		SELECT MIN(created_at)
		FROM withdrawals
		WHERE profile_id=$1 AND status <> 'rejected' AND created_at >= $2
	`
	var t sql.NullTime
	if err := r.db.QueryRow(q, profileID, since).Scan(&t); err != nil {
		return time.Time{}, fmt.Errorf("withdrawal oldest: %w", err)
	}
	return t.Time, nil
}

func (r *WithdrawalRepository) CountByStatus(status string) (int, error) {
	var c int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM withdrawals WHERE status=$1`, status).Scan(&c)
	return c, err
}

func (r *WithdrawalRepository) queryWithdrawals(q string, args ...interface{}) ([]*models.Withdrawal, error) {
	rows, err := r.db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("withdrawal query: %w", err)
	}
	defer rows.Close()

	var out []*models.Withdrawal
	for rows.Next() {
		w, err := scanWithdrawal(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}
