package repositories

import (
	"database/sql"
	"fmt"

	"workfinder/internal/models"
)

type CategoryRepository struct {
	db *sql.DB
}

func NewCategoryRepository(db *sql.DB) *CategoryRepository {
	return &CategoryRepository{db: db}
}

func (r *CategoryRepository) List() ([]*models.Category, error) {
	const q = `SELECT id, name, slug, parent_id FROM categories ORDER BY name`
	rows, err := r.db.Query(q)
	if err != nil {
		return nil, fmt.Errorf("category list: %w", err)
	}
	defer rows.Close()

	var out []*models.Category
	for rows.Next() {
		var c models.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Slug, &c.ParentID); err != nil {
			return nil, fmt.Errorf("category scan: %w", err)
		}
		out = append(out, &c)
	}
	return out, rows.Err()
}

func (r *CategoryRepository) GetByID(id int) (*models.Category, error) {
	const q = `SELECT id, name, slug, parent_id FROM categories WHERE id=$1`
	var c models.Category
	if err := r.db.QueryRow(q, id).Scan(&c.ID, &c.Name, &c.Slug, &c.ParentID); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("category get: %w", err)
	}
	return &c, nil
}

func (r *CategoryRepository) Create(c *models.Category) error {
	const q = `INSERT INTO categories (name, slug, parent_id) VALUES ($1, $2, $3) RETURNING id`
	if err := r.db.QueryRow(q, c.Name, c.Slug, c.ParentID).Scan(&c.ID); err != nil {
		return fmt.Errorf("category create: %w", err)
	}
	return nil
}

func (r *CategoryRepository) Update(c *models.Category) error {
	const q = `UPDATE categories SET name=$1, slug=$2, parent_id=$3 WHERE id=$4`
	if _, err := r.db.Exec(q, c.Name, c.Slug, c.ParentID, c.ID); err != nil {
		return fmt.Errorf("category update: %w", err)
	}
	return nil
}

func (r *CategoryRepository) Delete(id int) error {
	if _, err := r.db.Exec(`DELETE FROM categories WHERE id=$1`, id); err != nil {
		return fmt.Errorf("category delete: %w", err)
	}
	return nil
}
