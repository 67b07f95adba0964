package services

import (
	"context"
	"strings"
	"time"

	"venuehub/models"
	"venuehub/utils"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type notificationStore interface {
	Create(ctx context.Context, notification *models.Notification) error
	GetByID(ctx context.Context, id string) (*models.Notification, error)
	Finalize(ctx context.Context, id primitive.ObjectID, status string, success, failed int) error
	List(ctx context.Context, page, pageSize int) ([]models.Notification, int64, error)
}

type audienceSource interface {
	GetAllActive(ctx context.Context) ([]models.PushSubscription, error)
	GetActiveByUserIDs(ctx context.Context, userIDs []string) ([]models.PushSubscription, error)
}

type fanOutRunner interface {
	FanOut(ctx context.Context, notification *models.Notification, recipients []models.PushSubscription) (success, failed int)
}

type deliveryLister interface {
	GetByNotificationID(ctx context.Context, notificationID string, page, pageSize int) ([]models.Delivery, int64, error)
}

// NotificationService owns the HTTP-facing notification operations: the
// immediate send path, scheduling, and read access to notifications and
// their delivery history.
type NotificationService struct {
	notifications  notificationStore
	subscriptions  audienceSource
	deliveries     deliveryLister
	fanOut         fanOutRunner
	allowedDomains []string
}

func NewNotificationService(
	notifications notificationStore,
	subscriptions audienceSource,
	deliveries deliveryLister,
	fanOut fanOutRunner,
	allowedDomains []string,
) *NotificationService {
	return &NotificationService{
		notifications:  notifications,
		subscriptions:  subscriptions,
		deliveries:     deliveries,
		fanOut:         fanOut,
		allowedDomains: allowedDomains,
	}
}

// SendNow runs the immediate send path: authorize the sender, resolve the
// audience, then fan out synchronously and finalize in one request.
func (ns *NotificationService) SendNow(ctx context.Context, actorID, actorEmail string, req *models.SendNotificationRequest) (*models.SendNotificationResponse, error) {
	if err := ns.authorizeSender(actorEmail); err != nil {
		return nil, err
	}

	recipients, err := ns.resolveAudience(ctx, req.Scope, req.UserIDs, actorID)
	if err != nil {
		return nil, err
	}

	if req.DryRun {
		// Dry runs report the audience they would have reached and touch
		// nothing: no notification row, no deliveries, no provider calls.
		return &models.SendNotificationResponse{
			Recipients: len(recipients),
			Scope:      req.Scope,
			DryRun:     true,
		}, nil
	}

	now := time.Now().UTC()
	notification := &models.Notification{
		Title:        req.Payload.Title,
		Body:         req.Payload.Body,
		URL:          req.Payload.URL,
		Icon:         req.Payload.Icon,
		Badge:        req.Payload.Badge,
		Scope:        req.Scope,
		UserIDs:      req.UserIDs,
		CreatedBy:    actorID,
		CampaignID:   req.CampaignID,
		ScheduledFor: now,
		Status:       models.NotificationStatusSending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := ns.notifications.Create(ctx, notification); err != nil {
		return nil, err
	}

	success, failed := ns.fanOut.FanOut(ctx, notification, recipients)

	status := models.NotificationStatusSent
	if failed > 0 {
		status = models.NotificationStatusFailed
	}
	if err := ns.notifications.Finalize(ctx, notification.ID, status, success, failed); err != nil {
		logrus.Errorf("Failed to finalize notification %s after send: %v", notification.ID.Hex(), err)
	}

	logrus.Infof("Notification %s sent: %d ok, %d failed of %d recipients", notification.ID.Hex(), success, failed, len(recipients))

	return &models.SendNotificationResponse{
		NotificationID: notification.ID.Hex(),
		Success:        success,
		Failed:         failed,
		Recipients:     len(recipients),
		Scope:          req.Scope,
	}, nil
}

// Schedule validates and stores a queued notification for the dispatcher to
// pick up at its scheduled time. It performs no provider work itself.
func (ns *NotificationService) Schedule(ctx context.Context, actorID, actorEmail string, req *models.ScheduleNotificationRequest) (*models.Notification, error) {
	if err := ns.authorizeSender(actorEmail); err != nil {
		return nil, err
	}

	if req.RepeatRule != nil {
		if err := utils.ValidateRecurrenceRule(req.RepeatRule); err != nil {
			return nil, err
		}
	}
	if req.OccurrencesLimit < 0 {
		return nil, utils.NewBadRequestError("occurrencesLimit must be positive")
	}

	now := time.Now().UTC()
	notification := &models.Notification{
		Title:            req.Payload.Title,
		Body:             req.Payload.Body,
		URL:              req.Payload.URL,
		Icon:             req.Payload.Icon,
		Badge:            req.Payload.Badge,
		Scope:            req.Scope,
		UserIDs:          req.UserIDs,
		CreatedBy:        actorID,
		CampaignID:       req.CampaignID,
		ScheduledFor:     req.ScheduledFor.UTC(),
		RepeatRule:       req.RepeatRule,
		OccurrencesLimit: req.OccurrencesLimit,
		Status:           models.NotificationStatusQueued,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if req.RepeatUntil != nil {
		notification.RepeatUntil = req.RepeatUntil.UTC()
	}

	if err := ns.notifications.Create(ctx, notification); err != nil {
		return nil, err
	}

	logrus.Infof("Notification %s scheduled for %s (repeat=%v)", notification.ID.Hex(), notification.ScheduledFor.Format(time.RFC3339), req.RepeatRule != nil)
	return notification, nil
}

func (ns *NotificationService) List(ctx context.Context, page, pageSize int) ([]models.Notification, int64, error) {
	return ns.notifications.List(ctx, page, pageSize)
}

func (ns *NotificationService) GetByID(ctx context.Context, id string) (*models.Notification, error) {
	return ns.notifications.GetByID(ctx, id)
}

// GetDeliveries returns the per-recipient delivery rows for a notification.
// The notification is looked up first so an unknown id reads as 404 rather
// than an empty page.
func (ns *NotificationService) GetDeliveries(ctx context.Context, notificationID string, page, pageSize int) ([]models.Delivery, int64, error) {
	if _, err := ns.notifications.GetByID(ctx, notificationID); err != nil {
		return nil, 0, err
	}
	return ns.deliveries.GetByNotificationID(ctx, notificationID, page, pageSize)
}

// ResolveAudience exposes scope resolution for the dispatcher, which shares
// the exact audience semantics of the immediate path.
func (ns *NotificationService) ResolveAudience(ctx context.Context, notification *models.Notification) ([]models.PushSubscription, error) {
	return ns.resolveAudience(ctx, notification.Scope, notification.UserIDs, notification.CreatedBy)
}

func (ns *NotificationService) resolveAudience(ctx context.Context, scope string, userIDs []string, actorID string) ([]models.PushSubscription, error) {
	// Explicit recipient ids narrow any scope.
	if len(userIDs) > 0 {
		return ns.subscriptions.GetActiveByUserIDs(ctx, userIDs)
	}

	switch scope {
	case models.ScopeSelf:
		if actorID == "" {
			return nil, utils.NewBadRequestError("self scope requires an authenticated sender")
		}
		return ns.subscriptions.GetActiveByUserIDs(ctx, []string{actorID})
	case models.ScopeAll:
		return ns.subscriptions.GetAllActive(ctx)
	default:
		return nil, utils.NewBadRequestError("unknown scope: " + scope)
	}
}

// authorizeSender enforces the sender domain allow-list. An empty list
// means sending is closed entirely, not open to everyone.
func (ns *NotificationService) authorizeSender(email string) error {
	at := strings.LastIndex(email, "@")
	if at < 0 || at == len(email)-1 {
		return utils.NewForbiddenError("sender email is not eligible to send notifications")
	}
	domain := strings.ToLower(email[at+1:])

	for _, allowed := range ns.allowedDomains {
		if domain == strings.ToLower(allowed) {
			return nil
		}
	}
	return utils.NewForbiddenError("sender domain is not allowed to send notifications")
}
