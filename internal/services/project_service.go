package services

import (
	"context"
	"errors"
	"log"
	"strconv"
	"time"

	"workfinder/internal/cache"
	"workfinder/internal/models"
	"workfinder/internal/repositories"
)

var (
	ErrNotOwner            = errors.New("not the project owner")
	ErrBadStatusTransition = errors.New("invalid status transition")
)

type ProjectService struct {
	Repo  *repositories.ProjectRepository
	Cache *cache.Service
}

func NewProjectService(repo *repositories.ProjectRepository, c *cache.Service) *ProjectService {
	return &ProjectService{Repo: repo, Cache: c}
}

func (s *ProjectService) Create(p *models.Project) error {
	if p.Status == "" {
		p.Status = models.ProjectOpen
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	return s.Repo.Create(p)
}

func (s *ProjectService) GetByID(id int) (*models.Project, error) {
	return s.Repo.GetByID(id)
}

// Touch — счётчик просмотров в redis, в базу попадает пачками.
// Best-effort: при лежащем кэше просмотр просто теряется.
func (s *ProjectService) Touch(ctx context.Context, id int) {
	if s.Cache == nil {
		return
	}
	n, err := s.Cache.HIncrBy(ctx, "project:views", strconv.Itoa(id), 1)
	if err != nil {
		return
	}
	// сбрасываем в базу каждые 10 просмотров
	if n%10 == 0 {
		if err := s.Repo.AddViews(id, 10); err != nil {
			log.Printf("[projects][views] flush failed id=%d: %v", id, err)
		}
	}
}

func (s *ProjectService) Update(userID int, p *models.Project) error {
	existing, err := s.Repo.GetByID(p.ID)
	if err != nil {
		return err
	}
	if existing == nil {
		return nil
	}
	if existing.OwnerID != userID {
		return ErrNotOwner
	}
	return s.Repo.Update(p)
}

func (s *ProjectService) Delete(userID, id int) error {
	existing, err := s.Repo.GetByID(id)
	if err != nil || existing == nil {
		return err
	}
	if existing.OwnerID != userID {
		return ErrNotOwner
	}
	return s.Repo.Delete(id)
}

func (s *ProjectService) UpdateStatus(userID, id int, to string) error {
	p, err := s.Repo.GetByID(id)
	if err != nil || p == nil {
		return err
	}
	if p.OwnerID != userID {
		return ErrNotOwner
	}
	if !models.CanTransitProject(p.Status, to) {
		return ErrBadStatusTransition
	}
	return s.Repo.UpdateStatus(id, to)
}

func (s *ProjectService) Search(f *models.ProjectFilter) ([]*models.Project, error) {
	return s.Repo.Search(f)
}

func (s *ProjectService) ListMy(ownerID, limit, offset int) ([]*models.Project, error) {
	return s.Repo.ListByOwner(ownerID, limit, offset)
}
