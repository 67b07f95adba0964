package services

import (
	"context"
	"net/http"
	"testing"
	"time"

	"venuehub/models"
	"venuehub/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type finalizeCall struct {
	id      primitive.ObjectID
	status  string
	success int
	failed  int
}

type fakeNotificationStore struct {
	created   []*models.Notification
	finalized []finalizeCall
}

func (fs *fakeNotificationStore) Create(ctx context.Context, notification *models.Notification) error {
	notification.ID = primitive.NewObjectID()
	copied := *notification
	fs.created = append(fs.created, &copied)
	return nil
}

func (fs *fakeNotificationStore) GetByID(ctx context.Context, id string) (*models.Notification, error) {
	for _, n := range fs.created {
		if n.ID.Hex() == id {
			return n, nil
		}
	}
	return nil, mongo.ErrNoDocuments
}

func (fs *fakeNotificationStore) Finalize(ctx context.Context, id primitive.ObjectID, status string, success, failed int) error {
	fs.finalized = append(fs.finalized, finalizeCall{id: id, status: status, success: success, failed: failed})
	return nil
}

func (fs *fakeNotificationStore) List(ctx context.Context, page, pageSize int) ([]models.Notification, int64, error) {
	var out []models.Notification
	for _, n := range fs.created {
		out = append(out, *n)
	}
	return out, int64(len(out)), nil
}

type fakeAudience struct {
	all    []models.PushSubscription
	byUser map[string][]models.PushSubscription
}

func (fa *fakeAudience) GetAllActive(ctx context.Context) ([]models.PushSubscription, error) {
	return fa.all, nil
}

func (fa *fakeAudience) GetActiveByUserIDs(ctx context.Context, userIDs []string) ([]models.PushSubscription, error) {
	var out []models.PushSubscription
	for _, id := range userIDs {
		out = append(out, fa.byUser[id]...)
	}
	return out, nil
}

type fakeDeliveryLister struct{}

func (fakeDeliveryLister) GetByNotificationID(ctx context.Context, notificationID string, page, pageSize int) ([]models.Delivery, int64, error) {
	return nil, 0, nil
}

type fakeFanOut struct {
	success    int
	failed     int
	calls      int
	recipients []models.PushSubscription
}

func (ff *fakeFanOut) FanOut(ctx context.Context, notification *models.Notification, recipients []models.PushSubscription) (int, int) {
	ff.calls++
	ff.recipients = recipients
	return ff.success, ff.failed
}

func newSendFixture(fanOut *fakeFanOut) (*NotificationService, *fakeNotificationStore, *fakeAudience) {
	store := &fakeNotificationStore{}
	audience := &fakeAudience{
		all: []models.PushSubscription{
			subscriptionFor("u1", models.PlatformAPNS, "t1"),
			subscriptionFor("u2", models.PlatformFCM, "t2"),
			subscriptionFor("u3", models.PlatformFCM, "t3"),
		},
		byUser: map[string][]models.PushSubscription{
			"u1": {subscriptionFor("u1", models.PlatformAPNS, "t1")},
		},
	}
	svc := NewNotificationService(store, audience, fakeDeliveryLister{}, fanOut, []string{"venuehub.app"})
	return svc, store, audience
}

func sendRequest() *models.SendNotificationRequest {
	return &models.SendNotificationRequest{
		Payload: models.NotificationPayload{Title: "Hi {{ name }}", Body: "See you tonight"},
		Scope:   models.ScopeAll,
	}
}

func TestSendNowRejectsForeignDomain(t *testing.T) {
	svc, store, _ := newSendFixture(&fakeFanOut{})

	for _, email := range []string{"eve@gmail.com", "ops@venuehub.app.evil.com", "no-at-sign", "trailing@"} {
		_, err := svc.SendNow(context.Background(), "u1", email, sendRequest())
		require.Error(t, err, "email %q must be rejected", email)

		serviceErr, ok := utils.GetServiceError(err)
		require.True(t, ok)
		assert.Equal(t, http.StatusForbidden, serviceErr.StatusCode)
	}
	assert.Empty(t, store.created, "rejected sends must not write anything")
}

func TestSendNowAllowsListedDomain(t *testing.T) {
	fanOut := &fakeFanOut{success: 3}
	svc, _, _ := newSendFixture(fanOut)

	resp, err := svc.SendNow(context.Background(), "u1", "Ops@VenueHub.App", sendRequest())
	require.NoError(t, err, "domain matching is case-insensitive")
	assert.Equal(t, 3, resp.Success)
}

func TestSendNowDryRun(t *testing.T) {
	fanOut := &fakeFanOut{}
	svc, store, _ := newSendFixture(fanOut)

	req := sendRequest()
	req.DryRun = true

	resp, err := svc.SendNow(context.Background(), "u1", "ops@venuehub.app", req)
	require.NoError(t, err)

	assert.True(t, resp.DryRun)
	assert.Equal(t, 3, resp.Recipients)
	assert.Empty(t, resp.NotificationID)
	assert.Zero(t, fanOut.calls, "dry run must not reach a provider")
	assert.Empty(t, store.created, "dry run must not persist a notification")
}

func TestSendNowAllScope(t *testing.T) {
	fanOut := &fakeFanOut{success: 2, failed: 1}
	svc, store, _ := newSendFixture(fanOut)

	resp, err := svc.SendNow(context.Background(), "u1", "ops@venuehub.app", sendRequest())
	require.NoError(t, err)

	assert.Equal(t, 2, resp.Success)
	assert.Equal(t, 1, resp.Failed)
	assert.Equal(t, 3, resp.Recipients)
	assert.NotEmpty(t, resp.NotificationID)

	require.Len(t, store.created, 1)
	assert.Equal(t, models.NotificationStatusSending, store.created[0].Status)
	assert.Equal(t, "u1", store.created[0].CreatedBy)

	require.Len(t, store.finalized, 1)
	assert.Equal(t, models.NotificationStatusFailed, store.finalized[0].status, "any failed delivery marks the run failed")
	assert.Equal(t, 2, store.finalized[0].success)
	assert.Equal(t, 1, store.finalized[0].failed)
}

func TestSendNowSelfScope(t *testing.T) {
	fanOut := &fakeFanOut{success: 1}
	svc, store, _ := newSendFixture(fanOut)

	req := sendRequest()
	req.Scope = models.ScopeSelf

	resp, err := svc.SendNow(context.Background(), "u1", "ops@venuehub.app", req)
	require.NoError(t, err)

	assert.Equal(t, 1, resp.Recipients)
	require.Len(t, fanOut.recipients, 1)
	assert.Equal(t, "u1", fanOut.recipients[0].UserID)

	require.Len(t, store.finalized, 1)
	assert.Equal(t, models.NotificationStatusSent, store.finalized[0].status)
}

func TestSendNowExplicitUserIDs(t *testing.T) {
	fanOut := &fakeFanOut{success: 1}
	svc, _, _ := newSendFixture(fanOut)

	req := sendRequest()
	req.UserIDs = []string{"u1"}

	resp, err := svc.SendNow(context.Background(), "other", "ops@venuehub.app", req)
	require.NoError(t, err)

	assert.Equal(t, 1, resp.Recipients)
	require.Len(t, fanOut.recipients, 1)
	assert.Equal(t, "u1", fanOut.recipients[0].UserID)
}

func TestScheduleStoresQueuedNotification(t *testing.T) {
	svc, store, _ := newSendFixture(&fakeFanOut{})

	scheduledFor := time.Date(2026, 10, 1, 18, 0, 0, 0, time.UTC)
	until := scheduledFor.AddDate(0, 3, 0)

	notification, err := svc.Schedule(context.Background(), "u1", "ops@venuehub.app", &models.ScheduleNotificationRequest{
		Payload:      models.NotificationPayload{Title: "Quiz night", Body: "Starts at 8"},
		Scope:        models.ScopeAll,
		ScheduledFor: scheduledFor,
		RepeatRule: &models.RecurrenceRule{
			Type:     models.RepeatWeekly,
			Every:    1,
			Weekdays: []int{3},
		},
		RepeatUntil:      &until,
		OccurrencesLimit: 10,
	})
	require.NoError(t, err)

	assert.Equal(t, models.NotificationStatusQueued, notification.Status)
	assert.True(t, notification.ScheduledFor.Equal(scheduledFor))
	assert.Equal(t, 10, notification.OccurrencesLimit)
	require.Len(t, store.created, 1)
	assert.Zero(t, notification.TimesSent)
}

func TestScheduleRejectsBadRecurrence(t *testing.T) {
	svc, store, _ := newSendFixture(&fakeFanOut{})

	_, err := svc.Schedule(context.Background(), "u1", "ops@venuehub.app", &models.ScheduleNotificationRequest{
		Payload:      models.NotificationPayload{Title: "t", Body: "b"},
		Scope:        models.ScopeAll,
		ScheduledFor: time.Now().Add(time.Hour),
		RepeatRule:   &models.RecurrenceRule{Type: "hourly"},
	})
	assert.Error(t, err)
	assert.Empty(t, store.created)
}

func TestScheduleRejectsForeignDomain(t *testing.T) {
	svc, store, _ := newSendFixture(&fakeFanOut{})

	_, err := svc.Schedule(context.Background(), "u1", "eve@gmail.com", &models.ScheduleNotificationRequest{
		Payload:      models.NotificationPayload{Title: "t", Body: "b"},
		Scope:        models.ScopeAll,
		ScheduledFor: time.Now().Add(time.Hour),
	})
	assert.Error(t, err)
	assert.Empty(t, store.created)
}
