package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/spec-kit/feedx-service/internal/config"
	"github.com/spec-kit/feedx-service/internal/events"
	"github.com/spec-kit/feedx-service/internal/notify"
)

// NotificationService handles emitting notifications for domain events.
type NotificationService struct {
	dispatcher events.Dispatcher
	mailer     notify.Mailer
	logger     *zap.Logger
	cfg        config.NotificationConfig
	retry      func() backoff.BackOff
	wg         sync.WaitGroup
}

// NewNotificationService creates the service. A nil mailer only logs.
func NewNotificationService(dispatcher events.Dispatcher, mailer notify.Mailer, logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		dispatcher: dispatcher,
		mailer:     mailer,
		logger:     logger,
		cfg:        cfg,
		retry:      defaultMailBackoff,
	}
}

func defaultMailBackoff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxElapsedTime = 2 * time.Minute
	return b
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventIssueCreated, n.handleIssueCreated)
	n.dispatcher.Subscribe(events.EventIssueStatusChanged, n.handleIssueStatusChanged)
	n.dispatcher.Subscribe(events.EventIssueEscalated, n.handleIssueEscalated)
}

// Wait blocks until queued emails finish; used on shutdown.
func (n *NotificationService) Wait() {
	n.wg.Wait()
}

func (n *NotificationService) handleIssueCreated(_ context.Context, event events.Event) error {
	n.logger.Info("IssueCreated", zap.String("issue_id", event.IssueID), zap.Any("payload", event.Payload))
	return nil
}

func (n *NotificationService) handleIssueStatusChanged(_ context.Context, event events.Event) error {
	n.logger.Info("IssueStatusChanged", zap.String("issue_id", event.IssueID), zap.Any("payload", event.Payload))
	return nil
}

func (n *NotificationService) handleIssueEscalated(ctx context.Context, event events.Event) error {
	n.logger.Info("IssueEscalated", zap.String("issue_id", event.IssueID), zap.Any("payload", event.Payload))

	to := strings.TrimSpace(n.cfg.EscalationEmail)
	if n.mailer == nil || to == "" {
		return nil
	}
	payload, ok := event.Payload.(events.IssueEscalatedPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s", event.Payload, event.Type)
	}
	msg := escalationMessage(to, event.IssueID, payload)

	// The escalation is already committed; delivery must not hold up the request.
	sendCtx := context.WithoutCancel(ctx)
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		n.deliver(sendCtx, msg, event.IssueID)
	}()
	return nil
}

func (n *NotificationService) deliver(ctx context.Context, msg notify.Message, issueID string) {
	op := func() error {
		err := n.mailer.Send(ctx, msg)
		var sendErr *notify.SendError
		if errors.As(err, &sendErr) && !sendErr.Retryable {
			return backoff.Permanent(err)
		}
		return err
	}
	notifyRetry := func(err error, wait time.Duration) {
		n.logger.Warn("escalation email failed, retrying",
			zap.String("issue_id", issueID),
			zap.Duration("wait", wait),
			zap.Error(err))
	}
	if err := backoff.RetryNotify(op, backoff.WithContext(n.retry(), ctx), notifyRetry); err != nil {
		n.logger.Error("escalation email not delivered", zap.String("issue_id", issueID), zap.Error(err))
		return
	}
	n.logger.Info("escalation email sent", zap.String("issue_id", issueID), zap.String("to", msg.To))
}

func escalationMessage(to, issueID string, payload events.IssueEscalatedPayload) notify.Message {
	ref := payload.Reference
	if ref == "" {
		ref = issueID
	}
	target := payload.EscalatedTo
	if target == "" {
		target = "unspecified"
	}
	text := fmt.Sprintf("Issue %s was escalated after %d hours without resolution.\n\nEscalated to: %s\nReason: %s\n",
		ref, payload.AgeHours, target, payload.Reason)
	return notify.Message{
		To:      to,
		Subject: "Issue " + ref + " escalated",
		Text:    text,
	}
}
