package repositories

import (
	"database/sql"
	"fmt"

	"workfinder/internal/models"
)

type FileRepository struct {
	db *sql.DB
}

func NewFileRepository(db *sql.DB) *FileRepository {
	return &FileRepository{db: db}
}

func (r *FileRepository) Create(f *models.StoredFile) error {
	const q = `
		INSERT INTO files (id, owner_id, name, ext, size, public, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	if _, err := r.db.Exec(q, f.ID, f.OwnerID, f.Name, f.Ext, f.Size, f.Public, f.CreatedAt); err != nil {
		return fmt.Errorf("file create: %w", err)
	}
	return nil
}

func (r *FileRepository) GetByID(id string) (*models.StoredFile, error) {
	const q = `SELECT id, owner_id, name, ext, size, public, created_at FROM files WHERE id=$1`
	var f models.StoredFile
	if err := r.db.QueryRow(q, id).Scan(
		&f.ID, &f.OwnerID, &f.Name, &f.Ext, &f.Size, &f.Public, &f.CreatedAt,
	); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("file get: %w", err)
	}
	return &f, nil
}
