package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"workfinder/internal/models"
)

type ProfileRepository interface {
	Create(p *models.Profile) error
	GetByID(id int) (*models.Profile, error)
	GetByPhone(phone string) (*models.Profile, error)
	GetByEmail(email string) (*models.Profile, error)
	Update(p *models.Profile) error
	List(limit, offset int) ([]*models.Profile, error)
	CountByRole(roleID int) (int, error)
	SetBlocked(id int, blocked bool) error
	CreditBalance(id int, amount int64) error
	UpdateRefresh(id int, token string, expiresAt time.Time) error
	GetByRefreshToken(token string) (*models.Profile, error)
	RotateRefresh(oldToken, newToken string, expiresAt time.Time) (*models.Profile, error)
	GetChatIDByPhone(phone string) (int64, error)
}

type profileRepository struct {
	db *sql.DB
}

func NewProfileRepository(db *sql.DB) ProfileRepository {
	return &profileRepository{db: db}
}

const profileCols = `id, phone, telegram_chat_id, display_name, email, role_id, city, bio, skills,
	rating, completed_count, balance, password_hash, is_blocked, created_at,
	refresh_token, refresh_expires_at, refresh_revoked`

func scanProfile(row interface{ Scan(...interface{}) error }) (*models.Profile, error) {
	var p models.Profile
	var email, city, bio, passwordHash sql.NullString
	if err := row.Scan(
		&p.ID, &p.Phone, &p.TelegramChatID, &p.DisplayName, &email, &p.RoleID, &city, &bio,
		pq.Array(&p.Skills), &p.Rating, &p.CompletedCount, &p.Balance, &passwordHash,
		&p.IsBlocked, &p.CreatedAt, &p.RefreshToken, &p.RefreshExpiresAt, &p.RefreshRevoked,
	); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("profile scan: %w", err)
	}
	p.Email = email.String
	p.City = city.String
	p.Bio = bio.String
	p.PasswordHash = passwordHash.String
	return &p, nil
}

func (r *profileRepository) Create(p *models.Profile) error {
	const q = `
		INSERT INTO profiles (phone, telegram_chat_id, display_name, email, role_id, city, bio, skills, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	if err := r.db.QueryRow(q,
		p.Phone, p.TelegramChatID, p.DisplayName, nullIfEmpty(p.Email), p.RoleID,
		nullIfEmpty(p.City), nullIfEmpty(p.Bio), pq.Array(p.Skills), p.CreatedAt,
	).Scan(&p.ID); err != nil {
		return fmt.Errorf("profile create: %w", err)
	}
	return nil
}

func (r *profileRepository) GetByID(id int) (*models.Profile, error) {
	const q = `SELECT ` + profileCols + ` FROM profiles WHERE id = $1`
	return scanProfile(r.db.QueryRow(q, id))
}

func (r *profileRepository) GetByPhone(phone string) (*models.Profile, error) {
	const q = `SELECT ` + profileCols + ` FROM profiles WHERE phone = $1`
	return scanProfile(r.db.QueryRow(q, phone))
}

func (r *profileRepository) GetByEmail(email string) (*models.Profile, error) {
	const q = `SELECT ` + profileCols + ` FROM profiles WHERE email = $1`
	return scanProfile(r.db.QueryRow(q, email))
}

func (r *profileRepository) Update(p *models.Profile) error {
	const q = `
		UPDATE profiles
		SET display_name=$1, email=$2, city=$3, bio=$4, skills=$5, telegram_chat_id=$6
		WHERE id=$7
	`
	if _, err := r.db.Exec(q,
		p.DisplayName, nullIfEmpty(p.Email), nullIfEmpty(p.City), nullIfEmpty(p.Bio),
		pq.Array(p.Skills), p.TelegramChatID, p.ID,
	); err != nil {
		return fmt.Errorf("profile update: %w", err)
	}
	return nil
}

func (r *profileRepository) List(limit, offset int) ([]*models.Profile, error) {
	const q = `SELECT ` + profileCols + ` FROM profiles ORDER BY created_at DESC LIMIT $1 OFFSET $2`
	rows, err := r.db.Query(q, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("profile list: %w", err)
	}
	defer rows.Close()

	var out []*models.Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func (r *profileRepository) CountByRole(roleID int) (int, error) {
	var c int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM profiles WHERE role_id = $1`, roleID).Scan(&c)
	return c, err
}

func (r *profileRepository) SetBlocked(id int, blocked bool) error {
	_, err := r.db.Exec(`UPDATE profiles SET is_blocked = $1 WHERE id = $2`, blocked, id)
	return err
}

func (r *profileRepository) CreditBalance(id int, amount int64) error {
	res, err := r.db.Exec(`UPDATE profiles SET balance = balance + $1 WHERE id = $2`, amount, id)
	if err != nil {
		return fmt.Errorf("profile credit: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("profile credit: profile %d not found", id)
	}
	return nil
}

func (r *profileRepository) UpdateRefresh(id int, token string, expiresAt time.Time) error {
	const q = `UPDATE profiles SET refresh_token=$1, refresh_expires_at=$2, refresh_revoked=FALSE WHERE id=$3`
	_, err := r.db.Exec(q, token, expiresAt, id)
	return err
}

func (r *profileRepository) GetByRefreshToken(token string) (*models.Profile, error) {
	const q = `SELECT ` + profileCols + ` FROM profiles WHERE refresh_token = $1`
	return scanProfile(r.db.QueryRow(q, token))
}

// RotateRefresh — атомарная ротация: подменяем токен только если старый ещё на месте.
func (r *profileRepository) RotateRefresh(oldToken, newToken string, expiresAt time.Time) (*models.Profile, error) {
	const q = `
		UPDATE profiles
		SET refresh_token=$1, refresh_expires_at=$2
		WHERE refresh_token=$3 AND refresh_revoked=FALSE
		RETURNING ` + profileCols
	return scanProfile(r.db.QueryRow(q, newToken, expiresAt, oldToken))
}

// GetChatIDByPhone — второй источник резолвера доставки (после telegram_accounts).
func (r *profileRepository) GetChatIDByPhone(phone string) (int64, error) {
	var chatID sql.NullInt64
	err := r.db.QueryRow(`SELECT telegram_chat_id FROM profiles WHERE phone = $1`, phone).Scan(&chatID)
	if err != nil {
		if err == sql.ErrNoRows {
			return 0, nil
		}
		return 0, fmt.Errorf("profile chat id: %w", err)
	}
	return chatID.Int64, nil
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
