package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"workfinder/internal/cache"
	"workfinder/internal/models"
	"workfinder/internal/repositories"
)

var ErrNotParticipant = errors.New("not a participant of this project")

const presenceKey = "presence:online"

type MessageService struct {
	Repo     *repositories.MessageRepository
	Projects *repositories.ProjectRepository
	Bids     *repositories.BidRepository
	Cache    *cache.Service
	Notifier Notifier
}

func NewMessageService(
	repo *repositories.MessageRepository,
	projects *repositories.ProjectRepository,
	bids *repositories.BidRepository,
	c *cache.Service,
	notifier Notifier,
) *MessageService {
	return &MessageService{Repo: repo, Projects: projects, Bids: bids, Cache: c, Notifier: notifier}
}

// Send — писать можно только в рамках проекта: владельцу или фрилансеру
// со ставкой на него.
func (s *MessageService) Send(ctx context.Context, m *models.Message) error {
	ok, err := s.isParticipant(m.ProjectID, m.SenderID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotParticipant
	}
	ok, err = s.isParticipant(m.ProjectID, m.RecipientID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotParticipant
	}

	m.CreatedAt = time.Now()
	if err := s.Repo.Create(m); err != nil {
		return err
	}

	// онлайн-собеседника не дёргаем уведомлением
	if s.Notifier != nil && !s.isOnline(ctx, m.RecipientID) {
		s.Notifier.Notify(m.RecipientID, "Новое сообщение", fmt.Sprintf("Вам пишут по проекту №%d.", m.ProjectID))
	}
	return nil
}

func (s *MessageService) isParticipant(projectID, userID int) (bool, error) {
	p, err := s.Projects.GetByID(projectID)
	if err != nil {
		return false, err
	}
	if p == nil {
		return false, nil
	}
	if p.OwnerID == userID {
		return true, nil
	}
	b, err := s.Bids.GetByProjectAndFreelancer(projectID, userID)
	if err != nil {
		return false, err
	}
	return b != nil, nil
}

func (s *MessageService) Conversations(userID int) ([]*models.Conversation, error) {
	return s.Repo.Conversations(userID)
}

func (s *MessageService) History(userID, partnerID, projectID, limit, offset int) ([]*models.Message, error) {
	msgs, err := s.Repo.History(userID, partnerID, projectID, limit, offset)
	if err != nil {
		return nil, err
	}
	_ = s.Repo.MarkRead(userID, partnerID)
	return msgs, nil
}

// MarkOnline/MarkOffline — присутствие в redis-множестве, используется чтобы
// не слать уведомления тем, кто и так в приложении.
func (s *MessageService) MarkOnline(ctx context.Context, userID int) {
	if s.Cache != nil {
		_ = s.Cache.SAdd(ctx, presenceKey, strconv.Itoa(userID))
	}
}

func (s *MessageService) MarkOffline(ctx context.Context, userID int) {
	if s.Cache != nil {
		_ = s.Cache.SRem(ctx, presenceKey, strconv.Itoa(userID))
	}
}

func (s *MessageService) isOnline(ctx context.Context, userID int) bool {
	if s.Cache == nil {
		return false
	}
	return s.Cache.SIsMember(ctx, presenceKey, strconv.Itoa(userID))
}
