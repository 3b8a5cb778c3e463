package repositories

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"workfinder/internal/models"
)

// ErrAlreadyBid — у фрилансера уже есть ставка на этот проект
// (уникальная пара project_id + freelancer_id).
var ErrAlreadyBid = errors.New("bid already exists")

type BidRepository struct {
	db *sql.DB
}

func NewBidRepository(db *sql.DB) *BidRepository {
	return &BidRepository{db: db}
}

const bidCols = `id, project_id, freelancer_id, amount, days, message, status, created_at`

func scanBid(row interface{ Scan(...interface{}) error }) (*models.Bid, error) {
	var b models.Bid
	var msg sql.NullString
	if err := row.Scan(
		&b.ID, &b.ProjectID, &b.FreelancerID, &b.Amount, &b.Days, &msg, &b.Status, &b.CreatedAt,
	); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("bid scan: %w", err)
	}
	b.Message = msg.String
	return &b, nil
}

func (r *BidRepository) Create(b *models.Bid) error {
	const q = `
		INSERT INTO bids (project_id, freelancer_id, amount, days, message, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`
	err := r.db.QueryRow(q,
		b.ProjectID, b.FreelancerID, b.Amount, b.Days, nullIfEmpty(b.Message), b.Status, b.CreatedAt,
	).Scan(&b.ID)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrAlreadyBid
		}
		return fmt.Errorf("bid create: %w", err)
	}
	return nil
}

func (r *BidRepository) GetByID(id int) (*models.Bid, error) {
	const q = `SELECT ` + bidCols + ` FROM bids WHERE id=$1`
	return scanBid(r.db.QueryRow(q, id))
}

func (r *BidRepository) ListByProject(projectID int) ([]*models.Bid, error) {
	const q = `SELECT ` + bidCols + ` FROM bids WHERE project_id=$1 ORDER BY created_at ASC`
	return r.queryBids(q, projectID)
}

func (r *BidRepository) GetByProjectAndFreelancer(projectID, freelancerID int) (*models.Bid, error) {
	const q = `SELECT ` + bidCols + ` FROM bids WHERE project_id=$1 AND freelancer_id=$2`
	return scanBid(r.db.QueryRow(q, projectID, freelancerID))
}

func (r *BidRepository) ListByFreelancer(freelancerID, limit, offset int) ([]*models.Bid, error) {
	const q = `
		SELECT ` + bidCols + ` FROM bids
		WHERE freelancer_id=$1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	return r.queryBids(q, freelancerID, limit, offset)
}

func (r *BidRepository) UpdateStatus(id int, status string) error {
	_, err := r.db.Exec(`UPDATE bids SET status=$1 WHERE id=$2`, status, id)
	return err
}

// RejectSiblings — при принятии одной ставки остальные по проекту отклоняются.
func (r *BidRepository) RejectSiblings(projectID, acceptedID int) error {
	const q = `UPDATE bids SET status='rejected' WHERE project_id=$1 AND id<>$2 AND status='pending'`
	_, err := r.db.Exec(q, projectID, acceptedID)
	return err
}

func (r *BidRepository) queryBids(q string, args ...interface{}) ([]*models.Bid, error) {
	rows, err := r.db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("bid query: %w", err)
	}
	defer rows.Close()

	var out []*models.Bid
	for rows.Next() {
		b, err := scanBid(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}
