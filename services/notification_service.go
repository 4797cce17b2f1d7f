package services

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	apperrors "github.com/Techyana/RWP-Pilot/common/errors"
	"github.com/Techyana/RWP-Pilot/models"
	awspkg "github.com/Techyana/RWP-Pilot/pkg/aws"
	"github.com/Techyana/RWP-Pilot/repository"
)

// NotificationSink receives notifications produced as side effects of
// protocol operations. Delivery is at-least-once; consumers deduplicate by
// notification id.
type NotificationSink interface {
	Notify(ctx context.Context, n *models.Notification) error
}

// NotificationService persists notifications and serves the read contract:
// list own, mark read, mark all read. It is also the default sink.
type NotificationService struct {
	repo   repository.NotificationRepository
	logger *zap.Logger
}

func NewNotificationService(repo repository.NotificationRepository, logger *zap.Logger) *NotificationService {
	return &NotificationService{repo: repo, logger: logger}
}

// Notify persists the notification, assigning id and timestamp when unset.
func (s *NotificationService) Notify(ctx context.Context, n *models.Notification) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.Timestamp.IsZero() {
		n.Timestamp = time.Now().UTC()
	}
	if err := s.repo.Create(ctx, n); err != nil {
		return err
	}
	s.logger.Info("notification created",
		zap.String("user_id", n.UserID),
		zap.String("type", string(n.Type)),
	)
	return nil
}

func (s *NotificationService) ListForUser(ctx context.Context, userID string) ([]models.Notification, error) {
	return s.repo.ListByUser(ctx, userID)
}

func (s *NotificationService) MarkRead(ctx context.Context, id, userID string) error {
	err := s.repo.MarkRead(ctx, id, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NotFound("notification %s not found", id)
	}
	return err
}

func (s *NotificationService) MarkAllRead(ctx context.Context, userID string) error {
	return s.repo.MarkAllRead(ctx, userID)
}

// SNSSink forwards notifications to an SNS topic for out-of-band delivery
// (email/push fan-out happens downstream).
type SNSSink struct {
	publisher awspkg.SNSPublisher
	topicARN  string
	logger    *zap.Logger
}

func NewSNSSink(publisher awspkg.SNSPublisher, topicARN string, logger *zap.Logger) *SNSSink {
	return &SNSSink{publisher: publisher, topicARN: topicARN, logger: logger}
}

func (s *SNSSink) Notify(ctx context.Context, n *models.Notification) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return err
	}
	if err := s.publisher.Publish(ctx, s.topicARN, payload); err != nil {
		s.logger.Error("sns notify failed", zap.String("user_id", n.UserID), zap.Error(err))
		return err
	}
	return nil
}

// MultiSink fans one notification out to several sinks. The first error is
// returned after every sink has been attempted.
type MultiSink []NotificationSink

func (m MultiSink) Notify(ctx context.Context, n *models.Notification) error {
	var firstErr error
	for _, sink := range m {
		if err := sink.Notify(ctx, n); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
