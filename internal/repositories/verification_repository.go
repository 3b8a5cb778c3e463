package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"workfinder/internal/models"
)

// ErrActiveExists — в телефон уже смотрит активная запись (частичный уникальный
// индекс по phone для статусов pending/sent). Сервис в этом случае перечитывает
// активную строку — оба конкурирующих запроса получат один и тот же requestId.
var ErrActiveExists = errors.New("active verification exists")

type VerificationRepository struct {
	DB *sql.DB
}

func NewVerificationRepository(db *sql.DB) *VerificationRepository {
	return &VerificationRepository{DB: db}
}

// Create — вставка новой записи. Частичный индекс не учитывает expires_at,
// поэтому протухшие pending/sent строки по этому телефону сначала удаляются
// в той же транзакции, иначе они навсегда заняли бы место в индексе.
func (r *VerificationRepository) Create(v *models.TelegramVerification) error {
	tx, err := r.DB.Begin()
	if err != nil {
		return fmt.Errorf("verification tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		`DELETE FROM telegram_verifications WHERE phone = $1 AND status IN ('pending','sent') AND expires_at <= $2`,
		v.Phone, v.CreatedAt,
	); err != nil {
		return fmt.Errorf("verification purge expired: %w", err)
	}

	const q = `
		INSERT INTO telegram_verifications (id, phone, code, status, attempts, max_attempts, expires_at, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	meta := v.Metadata
	if len(meta) == 0 {
		meta = []byte(`{}`)
	}
	if _, err := tx.Exec(q,
		v.ID, v.Phone, v.Code, v.Status, v.Attempts, v.MaxAttempts, v.ExpiresAt, meta, v.CreatedAt,
	); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrActiveExists
		}
		return fmt.Errorf("verification create: %w", err)
	}
	return tx.Commit()
}

const verificationCols = `id, phone, code, status, attempts, max_attempts, expires_at, metadata, created_at`

func scanVerification(row *sql.Row) (*models.TelegramVerification, error) {
	var v models.TelegramVerification
	if err := row.Scan(
		&v.ID, &v.Phone, &v.Code, &v.Status, &v.Attempts, &v.MaxAttempts, &v.ExpiresAt, &v.Metadata, &v.CreatedAt,
	); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("verification scan: %w", err)
	}
	return &v, nil
}

func (r *VerificationRepository) GetByID(id string) (*models.TelegramVerification, error) {
	const q = `SELECT ` + verificationCols + ` FROM telegram_verifications WHERE id = $1`
	return scanVerification(r.DB.QueryRow(q, id))
}

// GetActiveByPhone — действующая (pending/sent, не протухшая) запись по телефону.
// Протухшие строки в выборку не попадают; их подчищает Create при следующей выдаче.
func (r *VerificationRepository) GetActiveByPhone(phone string, now time.Time) (*models.TelegramVerification, error) {
	const q = `
		SELECT ` + verificationCols + `
		FROM telegram_verifications
		WHERE phone = $1 AND status IN ('pending','sent') AND expires_at > $2
		ORDER BY created_at DESC
		LIMIT 1
	`
	return scanVerification(r.DB.QueryRow(q, phone, now))
}

// UpdateDelivery — результат попытки доставки: sent либо failed (+причина в metadata).
func (r *VerificationRepository) UpdateDelivery(id, status string, deliveryErr string) error {
	const q = `
		UPDATE telegram_verifications
		SET status = $1,
		    metadata = metadata || jsonb_build_object('delivery_error', $2::text)
		WHERE id = $3 AND status = 'pending'
	`
	if _, err := r.DB.Exec(q, status, deliveryErr, id); err != nil {
		return fmt.Errorf("verification update delivery: %w", err)
	}
	return nil
}

// IncrementAttempts — +1 попытка, возвращает новое значение attempts.
func (r *VerificationRepository) IncrementAttempts(id string) (int, error) {
	const q = `
		UPDATE telegram_verifications
		SET attempts = attempts + 1
		WHERE id = $1
		RETURNING attempts
	`
	var attempts int
	if err := r.DB.QueryRow(q, id).Scan(&attempts); err != nil {
		return 0, fmt.Errorf("verification increment attempts: %w", err)
	}
	return attempts, nil
}

// MarkVerified — терминальный переход. Условие status <> 'verified' — это CAS:
// из двух одновременных подтверждений выиграет ровно одно.
func (r *VerificationRepository) MarkVerified(id string) (bool, error) {
	const q = `
		UPDATE telegram_verifications
		SET status = 'verified'
		WHERE id = $1 AND status <> 'verified'
	`
	res, err := r.DB.Exec(q, id)
	if err != nil {
		return false, fmt.Errorf("verification mark verified: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// CountOutcomesSince — сколько кодов запрошено и сколько подтверждено
// (для админской сводки).
func (r *VerificationRepository) CountOutcomesSince(since time.Time) (verified, total int, err error) {
	const q = `
		SELECT COUNT(*) FILTER (WHERE status = 'verified'), COUNT(*)
		FROM telegram_verifications
		WHERE created_at >= $1
	`
	if err := r.DB.QueryRow(q, since).Scan(&verified, &total); err != nil {
		return 0, 0, fmt.Errorf("verification count outcomes: %w", err)
	}
	return verified, total, nil
}
