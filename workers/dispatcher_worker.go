package workers

import (
	"context"
	"sync"
	"time"

	"venuehub/models"
	"venuehub/utils"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type dueStore interface {
	GetDueNotifications(ctx context.Context, now time.Time, limit int) ([]models.Notification, error)
	MarkSending(ctx context.Context, id primitive.ObjectID) error
	Requeue(ctx context.Context, id primitive.ObjectID, next time.Time, success, failed int) error
	Finalize(ctx context.Context, id primitive.ObjectID, status string, success, failed int) error
	FinalizeWithoutRun(ctx context.Context, id primitive.ObjectID, status string) error
}

type audienceResolver interface {
	ResolveAudience(ctx context.Context, notification *models.Notification) ([]models.PushSubscription, error)
}

type dispatchFanOut interface {
	FanOut(ctx context.Context, notification *models.Notification, recipients []models.PushSubscription) (success, failed int)
}

// DispatcherWorker polls for due notifications and drives each one through
// its run: pre-guard, fan-out, then re-queue or finalize. A repeating
// notification is advanced in place; its row is the only record of the
// series.
type DispatcherWorker struct {
	// Dependencies
	redis *redis.Client

	store    dueStore
	audience audienceResolver
	delivery dispatchFanOut

	// Worker configuration
	config DispatcherWorkerConfig

	// Worker state
	isRunning bool
	mutex     sync.RWMutex

	// Context for shutdown
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// Metrics
	stats      DispatcherWorkerStats
	statsMutex sync.RWMutex
}

type DispatcherWorkerConfig struct {
	BatchSize         int           `json:"batchSize"`
	PollInterval      time.Duration `json:"pollInterval"`
	ProcessingTimeout time.Duration `json:"processingTimeout"`
	LeaseTTL          time.Duration `json:"leaseTTL"`
}

type DispatcherWorkerStats struct {
	PollsCompleted     int64     `json:"pollsCompleted"`
	RunsDispatched     int64     `json:"runsDispatched"`
	RunsSkipped        int64     `json:"runsSkipped"`
	PushesSent         int64     `json:"pushesSent"`
	PushesFailed       int64     `json:"pushesFailed"`
	NotificationsDone  int64     `json:"notificationsDone"`
	NotificationsKept  int64     `json:"notificationsKept"`
	LastPollAt         time.Time `json:"lastPollAt"`
	LastDispatchedAt   time.Time `json:"lastDispatchedAt"`
	StartTime          time.Time `json:"startTime"`
}

func NewDispatcherWorker(
	redisClient *redis.Client,
	store dueStore,
	audience audienceResolver,
	delivery dispatchFanOut,
	batchSize int,
	pollInterval time.Duration,
) *DispatcherWorker {
	ctx, cancel := context.WithCancel(context.Background())

	config := DispatcherWorkerConfig{
		BatchSize:         batchSize,
		PollInterval:      pollInterval,
		ProcessingTimeout: 2 * time.Minute,
		LeaseTTL:          5 * time.Minute,
	}
	if config.BatchSize < 1 {
		config.BatchSize = 50
	}
	if config.PollInterval < time.Second {
		config.PollInterval = time.Minute
	}

	return &DispatcherWorker{
		redis:    redisClient,
		store:    store,
		audience: audience,
		delivery: delivery,
		config:   config,
		ctx:      ctx,
		cancel:   cancel,
		stats: DispatcherWorkerStats{
			StartTime: time.Now(),
		},
	}
}

func (dw *DispatcherWorker) Start() error {
	dw.mutex.Lock()
	defer dw.mutex.Unlock()

	if dw.isRunning {
		return nil
	}
	dw.isRunning = true

	logrus.Infof("Starting Dispatcher Worker (interval %s, batch %d)", dw.config.PollInterval, dw.config.BatchSize)

	dw.wg.Add(1)
	go dw.poller()

	return nil
}

func (dw *DispatcherWorker) Stop() error {
	dw.mutex.Lock()
	defer dw.mutex.Unlock()

	if !dw.isRunning {
		return nil
	}

	logrus.Info("Stopping Dispatcher Worker...")

	dw.cancel()
	dw.isRunning = false
	dw.wg.Wait()

	logrus.Info("Dispatcher Worker stopped")
	return nil
}

func (dw *DispatcherWorker) IsRunning() bool {
	dw.mutex.RLock()
	defer dw.mutex.RUnlock()
	return dw.isRunning
}

func (dw *DispatcherWorker) GetStats() DispatcherWorkerStats {
	dw.statsMutex.RLock()
	defer dw.statsMutex.RUnlock()
	return dw.stats
}

func (dw *DispatcherWorker) poller() {
	defer dw.wg.Done()

	ticker := time.NewTicker(dw.config.PollInterval)
	defer ticker.Stop()

	// First pass immediately so a restart does not sit out a full interval
	// with overdue notifications waiting.
	dw.poll()

	for {
		select {
		case <-ticker.C:
			dw.poll()
		case <-dw.ctx.Done():
			return
		}
	}
}

func (dw *DispatcherWorker) poll() {
	ctx, cancel := context.WithTimeout(dw.ctx, dw.config.ProcessingTimeout)
	defer cancel()

	if _, err := dw.RunOnce(ctx); err != nil {
		logrus.Errorf("Dispatcher poll failed: %v", err)
	}
}

// RunOnce performs a single scheduler pass and returns how many
// notifications it dispatched. It is safe to call concurrently with the
// poller; the redis lease keeps two passes off the same notification.
func (dw *DispatcherWorker) RunOnce(ctx context.Context) (int, error) {
	now := time.Now().UTC()

	due, err := dw.store.GetDueNotifications(ctx, now, dw.config.BatchSize)
	if err != nil {
		return 0, utils.WrapError(err, "DATABASE_ERROR", "failed to load due notifications")
	}

	dispatched := 0
	for i := range due {
		notification := due[i]

		if !dw.acquireLease(ctx, notification.ID.Hex()) {
			dw.recordSkip()
			continue
		}

		dw.dispatchOne(ctx, &notification)
		dispatched++
	}

	dw.recordPoll(dispatched)
	if dispatched > 0 {
		logrus.Infof("Dispatcher pass handled %d of %d due notifications", dispatched, len(due))
	}
	return dispatched, nil
}

// dispatchOne runs one notification through a complete scheduler pass. A
// failure on one notification never aborts the rest of the batch.
func (dw *DispatcherWorker) dispatchOne(ctx context.Context, notification *models.Notification) {
	id := notification.ID

	// A notification that already reached its occurrence limit goes
	// terminal without another fan-out. This is the pass where a limited
	// series sheds its recurrence fields.
	if notification.OccurrencesLimit > 0 && notification.TimesSent >= notification.OccurrencesLimit {
		if err := dw.store.FinalizeWithoutRun(ctx, id, models.NotificationStatusSent); err != nil {
			logrus.Errorf("Failed to finalize notification %s at occurrence limit: %v", id.Hex(), err)
		}
		return
	}

	if err := dw.store.MarkSending(ctx, id); err != nil {
		logrus.Errorf("Failed to mark notification %s sending: %v", id.Hex(), err)
		return
	}

	recipients, err := dw.audience.ResolveAudience(ctx, notification)
	if err != nil {
		logrus.Errorf("Failed to resolve audience for notification %s: %v", id.Hex(), err)
		if err := dw.store.FinalizeWithoutRun(ctx, id, models.NotificationStatusFailed); err != nil {
			logrus.Errorf("Failed to finalize notification %s after audience error: %v", id.Hex(), err)
		}
		return
	}

	success, failed := dw.delivery.FanOut(ctx, notification, recipients)
	dw.recordRun(success, failed)

	if next, ok := dw.nextRun(notification); ok {
		if err := dw.store.Requeue(ctx, id, next, success, failed); err != nil {
			logrus.Errorf("Failed to requeue notification %s: %v", id.Hex(), err)
			return
		}
		dw.recordKept()
		logrus.Debugf("Notification %s requeued for %s", id.Hex(), next.Format(time.RFC3339))
		return
	}

	status := models.NotificationStatusSent
	if failed > 0 {
		status = models.NotificationStatusFailed
	}
	if err := dw.store.Finalize(ctx, id, status, success, failed); err != nil {
		logrus.Errorf("Failed to finalize notification %s: %v", id.Hex(), err)
		return
	}
	dw.recordDone()
}

// nextRun decides whether the notification continues after the run that
// just happened, and if so when. The next occurrence is computed from the
// intended scheduled time, not from the wall clock, so a late pass does not
// drift the cadence.
func (dw *DispatcherWorker) nextRun(notification *models.Notification) (time.Time, bool) {
	next, ok := utils.NextOccurrence(notification.ScheduledFor, notification.RepeatRule)
	if !ok {
		return time.Time{}, false
	}
	if !notification.RepeatUntil.IsZero() && next.After(notification.RepeatUntil) {
		return time.Time{}, false
	}
	if notification.OccurrencesLimit > 0 && notification.TimesSent+1 > notification.OccurrencesLimit {
		return time.Time{}, false
	}
	return next, true
}

// acquireLease takes a best-effort short lease on one notification so
// overlapping scheduler passes do not double-send. Redis being down fails
// open; counters stay correct under duplicates because every update is an
// increment.
func (dw *DispatcherWorker) acquireLease(ctx context.Context, id string) bool {
	if dw.redis == nil {
		return true
	}

	acquired, err := dw.redis.SetNX(ctx, "dispatch:lease:"+id, time.Now().Unix(), dw.config.LeaseTTL).Result()
	if err != nil {
		logrus.Warnf("Dispatch lease check failed for %s, proceeding: %v", id, err)
		return true
	}
	return acquired
}

func (dw *DispatcherWorker) recordPoll(dispatched int) {
	dw.statsMutex.Lock()
	defer dw.statsMutex.Unlock()
	dw.stats.PollsCompleted++
	dw.stats.RunsDispatched += int64(dispatched)
	dw.stats.LastPollAt = time.Now()
	if dispatched > 0 {
		dw.stats.LastDispatchedAt = time.Now()
	}
}

func (dw *DispatcherWorker) recordSkip() {
	dw.statsMutex.Lock()
	defer dw.statsMutex.Unlock()
	dw.stats.RunsSkipped++
}

func (dw *DispatcherWorker) recordRun(success, failed int) {
	dw.statsMutex.Lock()
	defer dw.statsMutex.Unlock()
	dw.stats.PushesSent += int64(success)
	dw.stats.PushesFailed += int64(failed)
}

func (dw *DispatcherWorker) recordDone() {
	dw.statsMutex.Lock()
	defer dw.statsMutex.Unlock()
	dw.stats.NotificationsDone++
}

func (dw *DispatcherWorker) recordKept() {
	dw.statsMutex.Lock()
	defer dw.statsMutex.Unlock()
	dw.stats.NotificationsKept++
}
