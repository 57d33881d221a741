package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"flightcast-service/internal/domain/entity"
	"flightcast-service/internal/domain/repository"
	"flightcast-service/pkg/logger"
	"flightcast-service/pkg/metrics"
	"flightcast-service/pkg/ratelimit"
)

// TemplateRenderer produces the notification content for one subscription
type TemplateRenderer interface {
	Render(ctx context.Context, sub *entity.Subscription, flight *entity.Flight, oldStatus entity.FlightStatus) (*entity.RenderedContent, error)
}

// ChannelRouter resolves a delivery method to its channel implementation
type ChannelRouter interface {
	GetChannel(method entity.DeliveryMethod) repository.NotificationChannel
}

// DispatcherConfig carries the dispatcher's tunables
type DispatcherConfig struct {
	FromAddress   string
	RetryAttempts int
	RetryDelay    time.Duration
}

// NotificationDispatcher fans one flight status change out to every matching
// subscription. Subscriptions are processed independently: a failure for one
// is recorded and never aborts the rest, except a persistence outage, which
// stops the remaining batch.
type NotificationDispatcher struct {
	subRepo   repository.SubscriptionRepository
	lifecycle *SubscriptionLifecycle
	renderer  TemplateRenderer
	router    ChannelRouter
	limiter   *ratelimit.Limiter
	config    DispatcherConfig
	logger    logger.Logger
	metrics   *metrics.Metrics
	sleep     func(ctx context.Context, d time.Duration) error
}

// NewNotificationDispatcher creates a new notification dispatcher
func NewNotificationDispatcher(
	subRepo repository.SubscriptionRepository,
	lifecycle *SubscriptionLifecycle,
	renderer TemplateRenderer,
	router ChannelRouter,
	limiter *ratelimit.Limiter,
	config DispatcherConfig,
	logger logger.Logger,
	m *metrics.Metrics,
) *NotificationDispatcher {
	return &NotificationDispatcher{
		subRepo:   subRepo,
		lifecycle: lifecycle,
		renderer:  renderer,
		router:    router,
		limiter:   limiter,
		config:    config,
		logger:    logger,
		metrics:   m,
		sleep:     sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// notificationTypeFor maps a target status to the notification type that
// gates it
func notificationTypeFor(status entity.FlightStatus) entity.NotificationType {
	switch status {
	case entity.StatusBoarding:
		return entity.NotifyBoardingCalls
	case entity.StatusDelayed:
		return entity.NotifyDelays
	case entity.StatusCancelled:
		return entity.NotifyCancellations
	default:
		return entity.NotifyStatusChanges
	}
}

// ShouldNotify applies the preference decision table: boarding calls, delays
// and cancellations go out when their own preference OR the status_changes
// catch-all is enabled; every other status requires status_changes alone.
func (d *NotificationDispatcher) ShouldNotify(sub *entity.Subscription, flight *entity.Flight, oldStatus entity.FlightStatus) bool {
	newStatus := flight.CurrentStatus
	if oldStatus == newStatus {
		return false
	}

	catchAll := sub.PreferenceFor(entity.NotifyStatusChanges).Enabled
	notifType := notificationTypeFor(newStatus)
	if notifType == entity.NotifyStatusChanges {
		return catchAll
	}

	pref := sub.PreferenceFor(notifType)
	if !pref.Enabled && !catchAll {
		return false
	}

	// A delay below the subscriber's own threshold is only suppressed when
	// the catch-all would not have fired anyway.
	if notifType == entity.NotifyDelays && pref.Enabled && !catchAll &&
		pref.MinDelayMinutes > 0 && flight.Delay.Minutes < pref.MinDelayMinutes {
		return false
	}

	return true
}

// Dispatch fans out one status change. The returned BatchResult always
// reflects the work done so far, even when a persistence outage aborts the
// remaining subscriptions and an error is returned alongside it.
func (d *NotificationDispatcher) Dispatch(ctx context.Context, flight *entity.Flight, oldStatus entity.FlightStatus, actor string) (*entity.BatchResult, error) {
	start := time.Now()
	defer func() {
		if d.metrics != nil {
			d.metrics.DispatchDuration.Observe(time.Since(start).Seconds())
		}
	}()

	notifType := notificationTypeFor(flight.CurrentStatus)
	dayStart, dayEnd := flight.DepartureDay()
	subs, err := d.subRepo.FindForNotification(ctx, flight.FlightNumber, dayStart, dayEnd, notifType)
	if err != nil {
		if d.metrics != nil {
			d.metrics.ErrorsCount.WithLabelValues("dispatch_query").Inc()
		}
		return nil, asDatabaseError("find subscriptions", err)
	}

	result := &entity.BatchResult{Success: true}
	if len(subs) == 0 {
		result.Message = "no subscriptions"
		return result, nil
	}

	d.logger.Info("Dispatching status change",
		"flightNumber", flight.FlightNumber,
		"from", oldStatus,
		"to", flight.CurrentStatus,
		"subscriptions", len(subs),
		"actor", actor)

	for _, sub := range subs {
		details, dbErr := d.processSubscription(ctx, sub, flight, oldStatus, notifType)
		for _, detail := range details {
			result.Details = append(result.Details, detail)
			switch detail.Status {
			case entity.DispatchSent:
				result.NotificationsSent++
			case entity.DispatchFailed:
				result.NotificationsFailed++
			}
		}
		if dbErr != nil {
			// Persistence is down; already-recorded results stand, the rest
			// of the batch is abandoned.
			result.Success = false
			result.Message = dbErr.Error()
			return result, dbErr
		}
	}

	return result, nil
}

// processSubscription runs the filter, render, deliver, record pipeline for
// one subscription. Every error except a DatabaseError is swallowed into the
// returned details.
func (d *NotificationDispatcher) processSubscription(ctx context.Context, sub *entity.Subscription, flight *entity.Flight, oldStatus entity.FlightStatus, notifType entity.NotificationType) (details []entity.DispatchDetail, dbErr error) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("Panic while processing subscription",
				"subscriptionID", sub.ID,
				"panic", r)
			details = append(details, entity.DispatchDetail{
				SubscriptionID: sub.ID,
				Email:          sub.Email,
				Status:         entity.DispatchError,
				Error:          fmt.Sprintf("panic: %v", r),
			})
		}
	}()

	if !d.ShouldNotify(sub, flight, oldStatus) {
		return nil, nil
	}

	if !d.limiter.Check(sub.Email) {
		d.logger.Debug("Recipient rate limited", "email", sub.Email)
		if d.metrics != nil {
			d.metrics.RateLimited.Inc()
		}
		return []entity.DispatchDetail{{
			SubscriptionID: sub.ID,
			Email:          sub.Email,
			Status:         entity.DispatchRateLimited,
		}}, nil
	}

	content, err := d.renderer.Render(ctx, sub, flight, oldStatus)
	if err != nil {
		d.logger.Error("Failed to render notification",
			"subscriptionID", sub.ID,
			"error", err)
		return []entity.DispatchDetail{{
			SubscriptionID: sub.ID,
			Email:          sub.Email,
			Status:         entity.DispatchError,
			Error:          err.Error(),
		}}, nil
	}

	methods := d.methodsFor(sub, notifType)
	for _, method := range methods {
		detail, err := d.deliver(ctx, sub, notifType, method, content)
		details = append(details, detail)
		if err != nil {
			var dbe *entity.DatabaseError
			if errors.As(err, &dbe) {
				return details, err
			}
		}
	}
	return details, nil
}

// methodsFor returns the delivery methods of the preference that let this
// notification through, defaulting to email
func (d *NotificationDispatcher) methodsFor(sub *entity.Subscription, notifType entity.NotificationType) []entity.DeliveryMethod {
	pref := sub.PreferenceFor(notifType)
	if !pref.Enabled || len(pref.Methods) == 0 {
		pref = sub.PreferenceFor(entity.NotifyStatusChanges)
	}
	if len(pref.Methods) == 0 {
		return []entity.DeliveryMethod{entity.MethodEmail}
	}
	return pref.Methods
}

// deliver sends on one channel with the retry policy applied: bounded
// attempts, each retry preceded by a linearly growing wait. The outcome is
// recorded on the subscription either way; only a failure of that recording
// itself propagates.
func (d *NotificationDispatcher) deliver(ctx context.Context, sub *entity.Subscription, notifType entity.NotificationType, method entity.DeliveryMethod, content *entity.RenderedContent) (entity.DispatchDetail, error) {
	detail := entity.DispatchDetail{
		SubscriptionID: sub.ID,
		Email:          sub.Email,
		Method:         string(method),
	}

	channel := d.router.GetChannel(method)
	if channel == nil {
		detail.Status = entity.DispatchSkipped
		detail.Error = fmt.Sprintf("no channel registered for %s", method)
		return detail, nil
	}

	msg := &entity.OutboundMessage{
		To:      sub.Email,
		From:    d.config.FromAddress,
		Subject: content.Subject,
		Text:    content.Text,
		HTML:    content.HTML,
	}

	var messageID string
	var lastErr error
	for attempt := 0; attempt <= d.config.RetryAttempts; attempt++ {
		if attempt > 0 {
			if err := d.sleep(ctx, d.config.RetryDelay*time.Duration(attempt)); err != nil {
				lastErr = err
				break
			}
			d.logger.Debug("Retrying delivery",
				"email", sub.Email,
				"method", method,
				"attempt", attempt)
		}
		messageID, lastErr = channel.Send(ctx, msg)
		if lastErr == nil {
			break
		}
	}

	if lastErr != nil {
		d.logger.Error("Delivery failed after retries",
			"email", sub.Email,
			"method", method,
			"attempts", d.config.RetryAttempts+1,
			"error", lastErr)
		if d.metrics != nil {
			d.metrics.NotificationsFailed.WithLabelValues(string(method)).Inc()
		}
		detail.Status = entity.DispatchFailed
		detail.Error = lastErr.Error()
		if _, err := d.lifecycle.AddNotification(ctx, sub, notifType, method, entity.DeliveryFailed, "", lastErr.Error()); err != nil {
			return detail, asDatabaseError("record failed notification", err)
		}
		return detail, nil
	}

	d.limiter.Update(sub.Email)
	if d.metrics != nil {
		d.metrics.NotificationsSent.WithLabelValues(string(method)).Inc()
	}
	detail.Status = entity.DispatchSent
	detail.MessageID = messageID
	if _, err := d.lifecycle.AddNotification(ctx, sub, notifType, method, entity.DeliverySent, messageID, ""); err != nil {
		return detail, asDatabaseError("record sent notification", err)
	}
	return detail, nil
}

func asDatabaseError(op string, err error) error {
	var dbe *entity.DatabaseError
	if errors.As(err, &dbe) {
		return err
	}
	return &entity.DatabaseError{Op: op, Err: err}
}
