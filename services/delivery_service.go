package services

import (
	"context"
	"net/url"
	"sync"

	"venuehub/models"
	"venuehub/utils"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type deliveryWriter interface {
	Create(ctx context.Context, delivery *models.Delivery) error
}

type subscriptionDeactivator interface {
	Deactivate(ctx context.Context, id primitive.ObjectID) error
}

type firstNameResolver interface {
	FirstName(ctx context.Context, userID string) string
}

// DeliveryService fans one logical notification out to its device
// registrations: one click token, one personalized payload, one provider
// call, and one appended delivery row per recipient. It is the only
// component allowed to deactivate a registration.
type DeliveryService struct {
	senders       map[string]ProviderSender
	deliveries    deliveryWriter
	subscriptions subscriptionDeactivator
	names         firstNameResolver
	baseURL       string
	concurrency   int
}

func NewDeliveryService(
	senders map[string]ProviderSender,
	deliveries deliveryWriter,
	subscriptions subscriptionDeactivator,
	names firstNameResolver,
	baseURL string,
	concurrency int,
) *DeliveryService {
	if concurrency < 1 {
		concurrency = 1
	}
	return &DeliveryService{
		senders:       senders,
		deliveries:    deliveries,
		subscriptions: subscriptions,
		names:         names,
		baseURL:       baseURL,
		concurrency:   concurrency,
	}
}

// nameCache memoizes first-name resolution across recipients sharing a user
// within one fan-out.
type nameCache struct {
	mu      sync.Mutex
	names   map[string]string
	resolve func(userID string) string
}

func (nc *nameCache) get(userID string) string {
	nc.mu.Lock()
	name, ok := nc.names[userID]
	nc.mu.Unlock()
	if ok {
		return name
	}

	// Resolved outside the lock; a duplicate lookup for the same user is
	// harmless.
	name = nc.resolve(userID)

	nc.mu.Lock()
	nc.names[userID] = name
	nc.mu.Unlock()
	return name
}

// FanOut sends the notification to every recipient and returns the success
// and failure counts. Recipients are independent and dispatched in parallel
// up to the configured bound; no ordering is guaranteed between them.
func (ds *DeliveryService) FanOut(ctx context.Context, notification *models.Notification, recipients []models.PushSubscription) (success, failed int) {
	if len(recipients) == 0 {
		return 0, 0
	}

	cache := &nameCache{
		names: make(map[string]string),
		resolve: func(userID string) string {
			return ds.names.FirstName(ctx, userID)
		},
	}

	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		sem = make(chan struct{}, ds.concurrency)
	)

	for i := range recipients {
		recipient := recipients[i]

		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()

			ok := ds.deliverOne(ctx, notification, recipient, cache)

			mu.Lock()
			if ok {
				success++
			} else {
				failed++
			}
			mu.Unlock()
		}()
	}

	wg.Wait()
	return success, failed
}

// deliverOne runs the full per-recipient pipeline and reports whether the
// provider accepted the push. Exactly one delivery row is written whatever
// the outcome.
func (ds *DeliveryService) deliverOne(ctx context.Context, notification *models.Notification, recipient models.PushSubscription, cache *nameCache) bool {
	clickToken := utils.GenerateClickToken()

	vars := map[string]string{
		"name": cache.get(recipient.UserID),
	}

	payload := RenderedPayload{
		Title:          utils.RenderTemplate(notification.Title, vars),
		Body:           utils.RenderTemplate(notification.Body, vars),
		URL:            ds.buildClickURL(clickToken, notification.URL, recipient.UserID),
		Icon:           notification.Icon,
		Badge:          notification.Badge,
		ClickToken:     clickToken,
		NotificationID: notification.ID.Hex(),
	}

	delivery := models.Delivery{
		NotificationID: notification.ID,
		SubscriptionID: recipient.ID,
		Address:        recipient.Address,
		ClickToken:     clickToken,
	}

	sender, known := ds.senders[recipient.Platform]
	if !known {
		// A platform this build cannot speak is as dead as a 410: no
		// provider is contacted and the registration is retired.
		logrus.Warnf("Subscription %s has unknown platform %q, deactivating", recipient.ID.Hex(), recipient.Platform)
		ds.deactivate(ctx, recipient)
		delivery.Status = models.DeliveryStatusDeactivated
		delivery.Error = "unknown platform: " + recipient.Platform
		ds.writeDelivery(ctx, &delivery)
		return false
	}

	err := sender.Send(ctx, recipient.Token, payload)
	switch {
	case err == nil:
		delivery.Status = models.DeliveryStatusSent

	case IsPermanentFailure(err):
		logrus.Infof("Subscription %s permanently rejected by provider, deactivating: %v", recipient.ID.Hex(), err)
		ds.deactivate(ctx, recipient)
		delivery.Status = models.DeliveryStatusDeactivated
		delivery.Error = err.Error()

	default:
		logrus.Warnf("Delivery to subscription %s failed: %v", recipient.ID.Hex(), err)
		delivery.Status = models.DeliveryStatusFailed
		delivery.Error = err.Error()
	}

	ds.writeDelivery(ctx, &delivery)
	return delivery.Status == models.DeliveryStatusSent
}

func (ds *DeliveryService) deactivate(ctx context.Context, recipient models.PushSubscription) {
	if err := ds.subscriptions.Deactivate(ctx, recipient.ID); err != nil {
		logrus.Errorf("Failed to deactivate subscription %s: %v", recipient.ID.Hex(), err)
	}
}

func (ds *DeliveryService) writeDelivery(ctx context.Context, delivery *models.Delivery) {
	if err := ds.deliveries.Create(ctx, delivery); err != nil {
		logrus.Errorf("Failed to record delivery for notification %s: %v", delivery.NotificationID.Hex(), err)
	}
}

// buildClickURL assembles the deep link carried in the outbound payload. It
// embeds the click token, the original destination and the recipient, so a
// later click-through can be correlated to this exact delivery and restore
// navigation intent even after the notification left the OS tray.
func (ds *DeliveryService) buildClickURL(clickToken, destination, userID string) string {
	query := url.Values{}
	query.Set("t", clickToken)
	query.Set("uid", userID)
	if destination != "" {
		query.Set("url", destination)
	}
	return ds.baseURL + "/push/open?" + query.Encode()
}
