package services

import (
	"context"
	"encoding/json"
	"time"

	"workfinder/internal/cache"
	"workfinder/internal/models"
	"workfinder/internal/repositories"
)

const (
	categoriesCacheKey = "categories:all"
	categoriesCacheTTL = 5 * time.Minute
)

type CategoryService struct {
	Repo  *repositories.CategoryRepository
	Cache *cache.Service
}

func NewCategoryService(repo *repositories.CategoryRepository, c *cache.Service) *CategoryService {
	return &CategoryService{Repo: repo, Cache: c}
}

// List — каталог меняется редко, держим его в redis. Промах или лежащий
// кэш — читаем базу.
func (s *CategoryService) List(ctx context.Context) ([]*models.Category, error) {
	if s.Cache != nil {
		if raw, ok := s.Cache.Get(ctx, categoriesCacheKey); ok {
			var out []*models.Category
			if err := json.Unmarshal([]byte(raw), &out); err == nil {
				return out, nil
			}
		}
	}

	out, err := s.Repo.List()
	if err != nil {
		return nil, err
	}
	if s.Cache != nil {
		if raw, err := json.Marshal(out); err == nil {
			_ = s.Cache.Set(ctx, categoriesCacheKey, string(raw), categoriesCacheTTL)
		}
	}
	return out, nil
}

func (s *CategoryService) Create(ctx context.Context, c *models.Category) error {
	if err := s.Repo.Create(c); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

func (s *CategoryService) Update(ctx context.Context, c *models.Category) error {
	if err := s.Repo.Update(c); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

func (s *CategoryService) Delete(ctx context.Context, id int) error {
	if err := s.Repo.Delete(id); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

func (s *CategoryService) invalidate(ctx context.Context) {
	if s.Cache != nil {
		s.Cache.Delete(ctx, categoriesCacheKey)
	}
}
