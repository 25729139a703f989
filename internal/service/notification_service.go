package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/user-service/internal/config"
	"github.com/spec-kit/user-service/internal/events"
)

// NotificationService handles emitting notifications for domain events.
type NotificationService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	cfg        config.NotifyConfig
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, logger *zap.Logger, cfg config.NotifyConfig) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		logger:     logger,
		cfg:        cfg,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventAccountRegistered, n.handleAccountRegistered)
	n.dispatcher.Subscribe(events.EventAccountBlocked, n.handleAccountStatusChanged)
	n.dispatcher.Subscribe(events.EventAccountUnblocked, n.handleAccountStatusChanged)
	n.dispatcher.Subscribe(events.EventAccountDeleted, n.handleAccountDeleted)
}

func (n *NotificationService) handleAccountRegistered(ctx context.Context, event events.Event) error {
	n.logger.Info("AccountRegistered", zap.String("account_id", event.AccountID), zap.Any("payload", event.Payload))
	n.sendEmailNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handleAccountStatusChanged(ctx context.Context, event events.Event) error {
	n.logger.Info("AccountStatusChanged", zap.String("account_id", event.AccountID), zap.String("event_type", string(event.Type)))
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handleAccountDeleted(ctx context.Context, event events.Event) error {
	n.logger.Info("AccountDeleted", zap.String("account_id", event.AccountID))
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) sendEmailNotificationStub(_ context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.EmailFrom) == "" {
		return
	}
	n.logger.Debug("sendEmailNotificationStub",
		zap.String("from", n.cfg.EmailFrom),
		zap.String("account_id", event.AccountID),
		zap.String("event_type", string(event.Type)))
}

func (n *NotificationService) sendWebhookNotificationStub(_ context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.WebhookURL) == "" {
		return
	}
	n.logger.Debug("sendWebhookNotificationStub",
		zap.String("url", n.cfg.WebhookURL),
		zap.String("account_id", event.AccountID),
		zap.String("event_type", string(event.Type)))
}
