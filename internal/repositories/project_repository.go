package repositories

import (
	"database/sql"
	"fmt"
	"log"
	"strings"

	"workfinder/internal/models"
)

type ProjectRepository struct {
	db *sql.DB
}

func NewProjectRepository(db *sql.DB) *ProjectRepository {
	if db == nil {
		log.Fatalf("received nil database connection")
	}
	return &ProjectRepository{db: db}
}

const projectCols = `id, owner_id, title, description, category_id, city, budget_min, budget_max,
	lat, lon, status, assigned_bid_id, views, created_at`

func scanProject(row interface{ Scan(...interface{}) error }) (*models.Project, error) {
	var p models.Project
	var city sql.NullString
	if err := row.Scan(
		&p.ID, &p.OwnerID, &p.Title, &p.Description, &p.CategoryID, &city,
		&p.BudgetMin, &p.BudgetMax, &p.Lat, &p.Lon, &p.Status, &p.AssignedBidID,
		&p.Views, &p.CreatedAt,
	); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("project scan: %w", err)
	}
	p.City = city.String
	return &p, nil
}

func (r *ProjectRepository) Create(p *models.Project) error {
	const q = `
		INSERT INTO projects (owner_id, title, description, category_id, city, budget_min, budget_max, lat, lon, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id
	`
	return r.db.QueryRow(q,
		p.OwnerID, p.Title, p.Description, p.CategoryID, nullIfEmpty(p.City),
		p.BudgetMin, p.BudgetMax, p.Lat, p.Lon, p.Status, p.CreatedAt,
	).Scan(&p.ID)
}

func (r *ProjectRepository) Update(p *models.Project) error {
	const q = `
		UPDATE projects
		SET title=$1, description=$2, category_id=$3, city=$4, budget_min=$5, budget_max=$6, lat=$7, lon=$8
		WHERE id=$9
	`
	_, err := r.db.Exec(q,
		p.Title, p.Description, p.CategoryID, nullIfEmpty(p.City),
		p.BudgetMin, p.BudgetMax, p.Lat, p.Lon, p.ID,
	)
	return err
}

func (r *ProjectRepository) GetByID(id int) (*models.Project, error) {
	const q = `SELECT ` + projectCols + ` FROM projects WHERE id=$1`
	return scanProject(r.db.QueryRow(q, id))
}

func (r *ProjectRepository) Delete(id int) error {
	_, err := r.db.Exec(`DELETE FROM projects WHERE id=$1`, id)
	return err
}

func (r *ProjectRepository) UpdateStatus(id int, status string) error {
	_, err := r.db.Exec(`UPDATE projects SET status=$1 WHERE id=$2`, status, id)
	return err
}

func (r *ProjectRepository) AssignBid(projectID, bidID int) error {
	const q = `UPDATE projects SET status='in_progress', assigned_bid_id=$1 WHERE id=$2 AND status='open'`
	res, err := r.db.Exec(q, bidID, projectID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("project %d is not open", projectID)
	}
	return nil
}

func (r *ProjectRepository) CountByStatus(status string) (int, error) {
	var c int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM projects WHERE status=$1`, status).Scan(&c)
	return c, err
}

func (r *ProjectRepository) AddViews(id int, n int64) error {
	_, err := r.db.Exec(`UPDATE projects SET views = views + $1 WHERE id=$2`, n, id)
	return err
}

// BuildSearchQuery собирает динамический фильтр витрины. Вынесено из Search,
// чтобы сборку SQL можно было проверить без базы.
func BuildSearchQuery(f *models.ProjectFilter) (string, []interface{}) {
	sortBy := f.SortBy
	if sortBy == "" {
		sortBy = "created_at"
	}
	order := f.Order
	if order != "asc" && order != "desc" {
		order = "desc"
	}
	allowed := map[string]bool{"created_at": true, "budget_max": true, "budget_min": true, "views": true}
	if !allowed[sortBy] {
		sortBy = "created_at"
	}

	var sb strings.Builder
	sb.WriteString("SELECT " + projectCols + " FROM projects WHERE 1=1")
	args := []interface{}{}
	i := 1

	status := f.Status
	if status == "" {
		status = models.ProjectOpen
	}
	sb.WriteString(fmt.Sprintf(" AND status = $%d", i))
	args = append(args, status)
	i++

	if f.CategoryID > 0 {
		sb.WriteString(fmt.Sprintf(" AND category_id = $%d", i))
		args = append(args, f.CategoryID)
		i++
	}
	if f.City != "" {
		sb.WriteString(fmt.Sprintf(" AND city ILIKE $%d", i))
		args = append(args, f.City)
		i++
	}
	if f.PriceMin > 0 {
		sb.WriteString(fmt.Sprintf(" AND budget_max >= $%d", i))
		args = append(args, f.PriceMin)
		i++
	}
	if f.PriceMax > 0 {
		sb.WriteString(fmt.Sprintf(" AND budget_min <= $%d", i))
		args = append(args, f.PriceMax)
		i++
	}
	if f.Query != "" {
		sb.WriteString(fmt.Sprintf(" AND (title ILIKE $%d OR description ILIKE $%d)", i, i))
		args = append(args, "%"+f.Query+"%")
		i++
	}
	// гео-радиус: haversine прямо в SQL, считаем только по строкам с координатами
	if f.Lat != nil && f.Lon != nil && f.RadiusKM > 0 {
		sb.WriteString(fmt.Sprintf(
			" AND lat IS NOT NULL AND lon IS NOT NULL AND"+
				" 6371 * 2 * asin(sqrt(pow(sin(radians(lat - $%d) / 2), 2) +"+
				" cos(radians($%d)) * cos(radians(lat)) * pow(sin(radians(lon - $%d) / 2), 2))) <= $%d",
			i, i, i+1, i+2))
		args = append(args, *f.Lat, *f.Lon, f.RadiusKM)
		i += 3
	}

	limit := f.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	sb.WriteString(fmt.Sprintf(" ORDER BY %s %s LIMIT $%d OFFSET $%d", sortBy, order, i, i+1))
	args = append(args, limit, f.Offset)

	return sb.String(), args
}

func (r *ProjectRepository) Search(f *models.ProjectFilter) ([]*models.Project, error) {
	query, args := BuildSearchQuery(f)
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("project search: %w", err)
	}
	defer rows.Close()

	var out []*models.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *ProjectRepository) ListByOwner(ownerID, limit, offset int) ([]*models.Project, error) {
	const q = `
		SELECT ` + projectCols + `
		FROM projects
		WHERE owner_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.db.Query(q, ownerID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
