package repositories

import (
	"database/sql"
	"fmt"

	"workfinder/internal/models"
)

type MessageRepository struct {
	db *sql.DB
}

func NewMessageRepository(db *sql.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

func (r *MessageRepository) Create(m *models.Message) error {
	const q = `
		INSERT INTO messages (project_id, sender_id, recipient_id, body, read, created_at)
		VALUES ($1, $2, $3, $4, FALSE, $5)
		RETURNING id
	`
	if err := r.db.QueryRow(q,
		m.ProjectID, m.SenderID, m.RecipientID, m.Body, m.CreatedAt,
	).Scan(&m.ID); err != nil {
		return fmt.Errorf("message create: %w", err)
	}
	return nil
}

// Conversations — по одному собеседнику на строку, с последним сообщением
// и числом непрочитанных.
func (r *MessageRepository) Conversations(userID int) ([]*models.Conversation, error) {
	const q = `
		SELECT DISTINCT ON (partner_id, project_id)
		       partner_id, project_id, body, created_at,
		       (SELECT COUNT(*) FROM messages u
		        WHERE u.recipient_id = $1 AND u.sender_id = partner_id AND NOT u.read) AS unread
		FROM (
			SELECT CASE WHEN sender_id = $1 THEN recipient_id ELSE sender_id END AS partner_id,
			       project_id, body, created_at, sender_id, recipient_id
			FROM messages
			WHERE sender_id = $1 OR recipient_id = $1
		) t
		ORDER BY partner_id, project_id, created_at DESC
	`
	rows, err := r.db.Query(q, userID)
	if err != nil {
		return nil, fmt.Errorf("conversations: %w", err)
	}
	defer rows.Close()

	var out []*models.Conversation
	for rows.Next() {
		var c models.Conversation
		if err := rows.Scan(&c.PartnerID, &c.ProjectID, &c.LastMessage, &c.LastAt, &c.Unread); err != nil {
			return nil, fmt.Errorf("conversation scan: %w", err)
		}
		out = append(out, &c)
	}
	return out, rows.Err()
}

func (r *MessageRepository) History(userID, partnerID, projectID, limit, offset int) ([]*models.Message, error) {
	q := `
		SELECT id, project_id, sender_id, recipient_id, body, read, created_at
		FROM messages
		WHERE ((sender_id = $1 AND recipient_id = $2) OR (sender_id = $2 AND recipient_id = $1))
	`
	args := []interface{}{userID, partnerID}
	if projectID > 0 {
		q += ` AND project_id = $3 ORDER BY created_at DESC LIMIT $4 OFFSET $5`
		args = append(args, projectID, limit, offset)
	} else {
		q += ` ORDER BY created_at DESC LIMIT $3 OFFSET $4`
		args = append(args, limit, offset)
	}

	rows, err := r.db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("message history: %w", err)
	}
	defer rows.Close()

	var out []*models.Message
	for rows.Next() {
		var m models.Message
		if err := rows.Scan(&m.ID, &m.ProjectID, &m.SenderID, &m.RecipientID, &m.Body, &m.Read, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("message scan: %w", err)
		}
		out = append(out, &m)
	}
	return out, rows.Err()
}

func (r *MessageRepository) MarkRead(userID, partnerID int) error {
	const q = `UPDATE messages SET read = TRUE WHERE recipient_id = $1 AND sender_id = $2 AND NOT read`
	_, err := r.db.Exec(q, userID, partnerID)
	return err
}
