package services

import (
	"workfinder/internal/models"
	"workfinder/internal/repositories"
)

type ProfileService struct {
	Repo repositories.ProfileRepository
}

func NewProfileService(repo repositories.ProfileRepository) *ProfileService {
	return &ProfileService{Repo: repo}
}

func (s *ProfileService) GetByID(id int) (*models.Profile, error) {
	return s.Repo.GetByID(id)
}

func (s *ProfileService) GetByEmail(email string) (*models.Profile, error) {
	return s.Repo.GetByEmail(email)
}

// Update — частичное обновление своего профиля; телефон и роль здесь
// не меняются.
func (s *ProfileService) Update(userID int, patch *models.Profile) (*models.Profile, error) {
	p, err := s.Repo.GetByID(userID)
	if err != nil || p == nil {
		return nil, err
	}
	if patch.DisplayName != "" {
		p.DisplayName = patch.DisplayName
	}
	if patch.Email != "" {
		p.Email = patch.Email
	}
	if patch.City != "" {
		p.City = patch.City
	}
	if patch.Bio != "" {
		p.Bio = patch.Bio
	}
	if patch.Skills != nil {
		p.Skills = patch.Skills
	}
	if err := s.Repo.Update(p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *ProfileService) List(limit, offset int) ([]*models.Profile, error) {
	return s.Repo.List(limit, offset)
}

func (s *ProfileService) SetBlocked(id int, blocked bool) error {
	return s.Repo.SetBlocked(id, blocked)
}
