package services

import (
	"errors"
	"fmt"
	"log"
	"time"

	"workfinder/internal/models"
	"workfinder/internal/repositories"
)

var (
	ErrProjectNotOpen = errors.New("project is not open for bids")
	ErrOwnBid         = errors.New("cannot bid on own project")
	ErrBidClosed      = errors.New("bid is not pending")
)

type BidService struct {
	Repo     *repositories.BidRepository
	Projects *repositories.ProjectRepository
	Notifier Notifier
}

func NewBidService(repo *repositories.BidRepository, projects *repositories.ProjectRepository, notifier Notifier) *BidService {
	return &BidService{Repo: repo, Projects: projects, Notifier: notifier}
}

func (s *BidService) Create(b *models.Bid) error {
	p, err := s.Projects.GetByID(b.ProjectID)
	if err != nil {
		return err
	}
	if p == nil {
		return fmt.Errorf("project %d not found", b.ProjectID)
	}
	if p.Status != models.ProjectOpen {
		return ErrProjectNotOpen
	}
	if p.OwnerID == b.FreelancerID {
		return ErrOwnBid
	}

	b.Status = models.BidPending
	b.CreatedAt = time.Now()
	if err := s.Repo.Create(b); err != nil {
		return err
	}

	if s.Notifier != nil {
		s.Notifier.Notify(p.OwnerID, "Новая ставка",
			fmt.Sprintf("По проекту «%s» новая ставка: %.2f ₽, срок %d дн.", p.Title, float64(b.Amount)/100, b.Days))
	}
	return nil
}

func (s *BidService) GetByID(id int) (*models.Bid, error) {
	return s.Repo.GetByID(id)
}

// ListByProject — владелец видит все ставки; фрилансер — только свою.
func (s *BidService) ListByProject(userID, projectID int) ([]*models.Bid, error) {
	p, err := s.Projects.GetByID(projectID)
	if err != nil || p == nil {
		return nil, err
	}
	if p.OwnerID == userID {
		return s.Repo.ListByProject(projectID)
	}
	own, err := s.Repo.GetByProjectAndFreelancer(projectID, userID)
	if err != nil {
		return nil, err
	}
	if own == nil {
		return []*models.Bid{}, nil
	}
	return []*models.Bid{own}, nil
}

func (s *BidService) ListMy(freelancerID, limit, offset int) ([]*models.Bid, error) {
	return s.Repo.ListByFreelancer(freelancerID, limit, offset)
}

// Accept — принятие ставки владельцем проекта: проект уходит в работу,
// остальные ставки отклоняются.
func (s *BidService) Accept(userID, bidID int) (*models.Bid, error) {
	b, err := s.Repo.GetByID(bidID)
	if err != nil || b == nil {
		return nil, err
	}
	p, err := s.Projects.GetByID(b.ProjectID)
	if err != nil || p == nil {
		return nil, err
	}
	if p.OwnerID != userID {
		return nil, ErrNotOwner
	}
	if b.Status != models.BidPending {
		return nil, ErrBidClosed
	}

	if err := s.Projects.AssignBid(p.ID, b.ID); err != nil {
		return nil, err
	}
	if err := s.Repo.UpdateStatus(b.ID, models.BidAccepted); err != nil {
		return nil, err
	}
	if err := s.Repo.RejectSiblings(p.ID, b.ID); err != nil {
		log.Printf("[bids][accept] reject siblings failed project=%d: %v", p.ID, err)
	}
	b.Status = models.BidAccepted

	if s.Notifier != nil {
		s.Notifier.Notify(b.FreelancerID, "Ставка принята",
			fmt.Sprintf("Ваша ставка по проекту «%s» принята. Можно приступать!", p.Title))
	}
	return b, nil
}

func (s *BidService) Withdraw(userID, bidID int) error {
	b, err := s.Repo.GetByID(bidID)
	if err != nil || b == nil {
		return err
	}
	if b.FreelancerID != userID {
		return ErrNotOwner
	}
	if b.Status != models.BidPending {
		return ErrBidClosed
	}
	return s.Repo.UpdateStatus(bidID, models.BidWithdrawn)
}
