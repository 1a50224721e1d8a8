package service

import (
	"context"
	"errors"
	"time"

	"github.com/Alkitu/alkitu-template-sub002/internal/database"
	"github.com/Alkitu/alkitu-template-sub002/internal/domain"
	"github.com/Alkitu/alkitu-template-sub002/internal/metrics"
	"github.com/Alkitu/alkitu-template-sub002/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// NotificationService persists notifications and hands delivery to the sync
// worker. Delivery is best-effort: a notification row always exists even if
// the external channel never confirms.
type NotificationService struct {
	repo       domain.Repository
	syncWorker domain.SyncWorker
	logger     *zerolog.Logger
}

func NewNotificationService(repo domain.Repository, syncWorker domain.SyncWorker, logger *zerolog.Logger) *NotificationService {
	return &NotificationService{
		repo:       repo,
		syncWorker: syncWorker,
		logger:     logger,
	}
}

func (s *NotificationService) CreateNotification(ctx context.Context, input domain.NotificationInput) error {
	n := &models.Notification{
		ID:        uuid.NewString(),
		UserID:    input.UserID,
		Type:      input.Type,
		Message:   input.Message,
		Data:      input.Data,
		CreatedAt: time.Now(),
	}

	if err := s.repo.CreateNotification(ctx, n); err != nil {
		return domain.WrapInternal(err, "create notification")
	}
	metrics.IncNotification("created")

	if s.syncWorker == nil {
		return nil
	}

	user, err := s.repo.GetUser(ctx, input.UserID)
	if err != nil {
		s.logger.Error().Err(err).Int64("user_id", input.UserID).Msg("lookup notification recipient error")
		return nil
	}
	if user.TelegramChatID == 0 {
		// Пользователь не привязал Telegram
		return nil
	}

	if err := s.syncWorker.EnqueueNotify(ctx, n, user.TelegramChatID); err != nil {
		s.logger.Error().Err(err).Str("notification_id", n.ID).Msg("notification enqueue error")
	}
	return nil
}

func (s *NotificationService) List(ctx context.Context, userID int64, unreadOnly bool) ([]*models.Notification, error) {
	notifications, err := s.repo.ListNotifications(ctx, userID, unreadOnly)
	if err != nil {
		return nil, domain.WrapInternal(err, "list notifications")
	}
	return notifications, nil
}

func (s *NotificationService) MarkRead(ctx context.Context, id string, userID int64) error {
	if err := s.repo.MarkNotificationRead(ctx, id, userID); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return domain.NotFoundf("notification %s not found", id)
		}
		return domain.WrapInternal(err, "mark notification read")
	}
	return nil
}
