package services

import (
	"context"
	"sync"
	"time"

	"trustedhands/internal/models"
	"trustedhands/internal/repositories/interfaces"
	"trustedhands/internal/utils"
	"trustedhands/pkg/logger"
	"trustedhands/pkg/push"
	"trustedhands/pkg/sms"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Notifier is the fire-and-forget sink for state changes. Implementations
// must never block the caller on delivery or report delivery failures.
type Notifier interface {
	Notify(ctx context.Context, notification *models.Notification)
}

// NotificationChannels are the optional outbound providers. Nil fields are skipped.
type NotificationChannels struct {
	FCM        push.PushProvider
	APNS       push.PushProvider
	SMS        sms.SMSProvider
	SMSEnabled bool
	Timeout    time.Duration
}

type NotificationService struct {
	repo     interfaces.NotificationRepository
	users    interfaces.UserRepository
	cache    CacheService
	channels NotificationChannels
	logger   *logger.Logger
	wg       sync.WaitGroup
}

func NewNotificationService(
	repo interfaces.NotificationRepository,
	users interfaces.UserRepository,
	cache CacheService,
	channels NotificationChannels,
	log *logger.Logger,
) *NotificationService {
	if channels.Timeout <= 0 {
		channels.Timeout = utils.NotificationTimeout
	}

	return &NotificationService{
		repo:     repo,
		users:    users,
		cache:    cache,
		channels: channels,
		logger:   log,
	}
}

var _ Notifier = (*NotificationService)(nil)

// Notify hands the notification to a background delivery and returns at once.
func (s *NotificationService) Notify(ctx context.Context, notification *models.Notification) {
	n := *notification
	log := s.logger.WithContext(ctx).WithFields(map[string]interface{}{
		"notification_type": n.Type,
		"recipient_id":      n.UserID.Hex(),
	})

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), s.channels.Timeout)
		defer cancel()

		s.deliver(ctx, log, &n)
	}()
}

// Wait blocks until every pending delivery has finished.
func (s *NotificationService) Wait() {
	s.wg.Wait()
}

func (s *NotificationService) deliver(ctx context.Context, log *logger.Logger, n *models.Notification) {
	if err := s.repo.Create(ctx, n); err != nil {
		log.WithError(err).Warn("Failed to store notification")
	}

	if s.cache != nil {
		if err := s.cache.Publish(ctx, utils.EscrowEventsChannel, n); err != nil {
			log.WithError(err).Warn("Failed to publish escrow event")
		}
	}

	if !n.Type.IsUrgent() {
		return
	}

	user, err := s.users.GetByID(ctx, n.UserID)
	if err != nil {
		log.WithError(err).Warn("Failed to look up notification recipient")
		return
	}

	s.sendPush(ctx, log, user, n)
	s.sendSMS(ctx, log, user, n)
}

func (s *NotificationService) sendPush(ctx context.Context, log *logger.Logger, user *models.User, n *models.Notification) {
	if user.DeviceToken == "" {
		return
	}

	provider := s.channels.FCM
	if user.DevicePlatform == "ios" && s.channels.APNS != nil {
		provider = s.channels.APNS
	}
	if provider == nil {
		return
	}

	data := map[string]string{"type": string(n.Type)}
	for k, v := range n.Data {
		data[k] = v
	}

	_, err := provider.SendNotification(ctx, &push.NotificationRequest{
		Token:       user.DeviceToken,
		Title:       n.Title,
		Body:        n.Message,
		Data:        data,
		Priority:    "high",
		CollapseKey: string(n.Type),
	})
	if err != nil {
		log.WithError(err).Warn("Failed to send push notification")
	}
}

func (s *NotificationService) sendSMS(ctx context.Context, log *logger.Logger, user *models.User, n *models.Notification) {
	if !s.channels.SMSEnabled || s.channels.SMS == nil || user.Phone == "" {
		return
	}

	_, err := s.channels.SMS.SendSMS(ctx, &sms.SMSRequest{
		To:      user.Phone,
		Message: n.Title + ": " + n.Message,
		Type:    "transactional",
	})
	if err != nil {
		log.WithError(err).Warn("Failed to send SMS notification")
	}
}

func newNotification(userID primitive.ObjectID, kind models.NotificationType, title, message, link string, data map[string]string) *models.Notification {
	return &models.Notification{
		UserID:  userID,
		Type:    kind,
		Status:  models.NotificationStatusUnread,
		Title:   title,
		Message: message,
		Link:    link,
		Data:    data,
	}
}
