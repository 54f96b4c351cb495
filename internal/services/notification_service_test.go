package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"trustedhands/internal/models"
	"trustedhands/internal/repositories/memory"
	"trustedhands/internal/utils"
	"trustedhands/pkg/logger"
	"trustedhands/pkg/push"
	"trustedhands/pkg/sms"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePush struct {
	mu   sync.Mutex
	sent []*push.NotificationRequest
	err  error
}

func (p *fakePush) SendNotification(ctx context.Context, request *push.NotificationRequest) (*push.NotificationResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sent = append(p.sent, request)
	if p.err != nil {
		return nil, p.err
	}
	return &push.NotificationResponse{MessageID: "msg-1", Success: true}, nil
}

type fakeSMS struct {
	mu   sync.Mutex
	sent []*sms.SMSRequest
}

func (s *fakeSMS) SendSMS(ctx context.Context, request *sms.SMSRequest) (*sms.SMSResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, request)
	return &sms.SMSResponse{MessageID: "sms-1", Status: "queued"}, nil
}

func TestNotificationService_Delivery(t *testing.T) {
	ctx := context.Background()

	repo := memory.NewNotificationRepository()
	users := memory.NewUserRepository()
	store := newMapCache()
	fcm := &fakePush{}
	apns := &fakePush{}
	text := &fakeSMS{}

	android := users.Add(&models.User{Name: "A", Phone: "+911111111111", DeviceToken: "fcm-token", DevicePlatform: "android"})
	ios := users.Add(&models.User{Name: "B", DeviceToken: "apns-token", DevicePlatform: "ios"})

	service := NewNotificationService(repo, users, store, NotificationChannels{
		FCM:        fcm,
		APNS:       apns,
		SMS:        text,
		SMSEnabled: true,
	}, logger.NewDiscard())

	service.Notify(ctx, newNotification(android.ID, models.NotificationTypeComplaintFiled, "Complaint Filed", "A complaint was filed", "/support", nil))
	service.Notify(ctx, newNotification(ios.ID, models.NotificationTypePenaltyApplied, "Penalty", "A penalty was applied", "/support", nil))
	service.Notify(ctx, newNotification(android.ID, models.NotificationTypePaymentLocked, "Locked", "Funds held", "/payments", nil))
	service.Wait()

	assert.Len(t, repo.All(), 3)
	assert.Len(t, store.published, 3)
	assert.Equal(t, utils.EscrowEventsChannel, store.published[0])

	require.Len(t, fcm.sent, 1)
	assert.Equal(t, "fcm-token", fcm.sent[0].Token)
	assert.Equal(t, string(models.NotificationTypeComplaintFiled), fcm.sent[0].Data["type"])

	require.Len(t, apns.sent, 1)
	assert.Equal(t, "apns-token", apns.sent[0].Token)

	require.Len(t, text.sent, 1)
	assert.Equal(t, "+911111111111", text.sent[0].To)
}

func TestNotificationService_FailuresAreSwallowed(t *testing.T) {
	users := memory.NewUserRepository()
	user := users.Add(&models.User{DeviceToken: "token"})
	fcm := &fakePush{err: errors.New("fcm unavailable")}

	service := NewNotificationService(memory.NewNotificationRepository(), users, nil, NotificationChannels{FCM: fcm}, logger.NewDiscard())

	assert.NotPanics(t, func() {
		service.Notify(context.Background(), newNotification(user.ID, models.NotificationTypeComplaintResolved, "Resolved", "Done", "", nil))
		service.Wait()
	})
	assert.Len(t, fcm.sent, 1)
}
