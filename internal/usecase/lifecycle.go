package usecase

import (
	"context"
	"time"

	"flightcast-service/internal/domain/entity"
	"flightcast-service/internal/domain/repository"
	"flightcast-service/pkg/logger"
	"flightcast-service/pkg/validate"

	"github.com/google/uuid"
)

const (
	verificationTokenTTL = 24 * time.Hour
	exportTokenTTL       = 7 * 24 * time.Hour
	postFlightRetention  = 7 * 24 * time.Hour
)

// SubscriptionLifecycle governs verification, unsubscription, reactivation,
// notification bookkeeping and consent-bound retention of subscriptions
type SubscriptionLifecycle struct {
	subRepo repository.SubscriptionRepository
	logger  logger.Logger
	now     func() time.Time
}

// NewSubscriptionLifecycle creates a new subscription lifecycle
func NewSubscriptionLifecycle(subRepo repository.SubscriptionRepository, logger logger.Logger) *SubscriptionLifecycle {
	return &SubscriptionLifecycle{
		subRepo: subRepo,
		logger:  logger,
		now:     time.Now,
	}
}

// SetClock overrides the time source, for tests
func (sl *SubscriptionLifecycle) SetClock(now func() time.Time) {
	sl.now = now
}

// CreateSubscription validates and persists a new subscription in Pending
// state with fresh verification and unsubscribe tokens. Expiry starts at the
// earliest of flightDate+7d and consentDate+retentionDays.
func (sl *SubscriptionLifecycle) CreateSubscription(ctx context.Context, sub *entity.Subscription) (*entity.Subscription, error) {
	if err := validate.Subscription(sub); err != nil {
		return nil, err
	}

	now := sl.now()
	tokenExpiry := now.Add(verificationTokenTTL)

	sub.Verification = entity.Verification{
		Token:       uuid.NewString(),
		TokenExpiry: &tokenExpiry,
	}
	sub.Unsubscribe = entity.Unsubscribe{
		Token: uuid.NewString(),
	}
	if sub.Consent.Timestamp.IsZero() {
		sub.Consent.Timestamp = now
	}
	if sub.Preferences == nil {
		sub.Preferences = defaultPreferences()
	}
	sub.IsActive = true
	sub.CreatedAt = now
	sub.UpdatedAt = now

	flightExpiry := sub.FlightDate.Add(postFlightRetention)
	gdprExpiry := sub.Consent.Timestamp.AddDate(0, 0, sub.Consent.RetentionDays)
	expiry := flightExpiry
	if gdprExpiry.Before(expiry) {
		expiry = gdprExpiry
	}
	sub.ExpiresAt = &expiry

	if err := sl.subRepo.Create(ctx, sub); err != nil {
		return nil, err
	}

	sl.logger.Info("Subscription created",
		"email", sub.Email,
		"flightNumber", sub.FlightNumber,
		"expiresAt", expiry)
	return sub, nil
}

func defaultPreferences() map[entity.NotificationType]entity.Preference {
	all := []entity.DeliveryMethod{entity.MethodEmail}
	return map[entity.NotificationType]entity.Preference{
		entity.NotifyStatusChanges: {Enabled: true, Methods: all},
		entity.NotifyDelays:        {Enabled: true, Methods: all, MinDelayMinutes: 15},
		entity.NotifyCancellations: {Enabled: true, Methods: all},
		entity.NotifyBoardingCalls: {Enabled: true, Methods: all},
	}
}

// Verify consumes the verification token. A token mismatch counts as an
// attempt and is persisted before the error is returned.
func (sl *SubscriptionLifecycle) Verify(ctx context.Context, sub *entity.Subscription, token string) (*entity.Subscription, error) {
	if sub.Verification.IsVerified {
		return nil, entity.ErrAlreadyVerified
	}
	now := sl.now()
	if sub.Verification.TokenExpiry != nil && now.After(*sub.Verification.TokenExpiry) {
		return nil, entity.ErrTokenExpired
	}
	if sub.Verification.Attempts >= entity.MaxVerificationAttempts {
		return nil, entity.ErrMaxAttemptsExceeded
	}
	if token != sub.Verification.Token {
		sub.Verification.Attempts++
		sub.UpdatedAt = now
		if err := sl.subRepo.Save(ctx, sub); err != nil {
			return nil, err
		}
		return nil, entity.ErrInvalidToken
	}

	sub.Verification.IsVerified = true
	sub.Verification.VerifiedAt = &now
	sub.Verification.Token = ""
	sub.Verification.TokenExpiry = nil
	sub.UpdatedAt = now

	if err := sl.subRepo.Save(ctx, sub); err != nil {
		return nil, err
	}

	sl.logger.Info("Subscription verified", "email", sub.Email, "flightNumber", sub.FlightNumber)
	return sub, nil
}

// DoUnsubscribe opts the subscription out. The token is required unless the
// actor is administrative.
func (sl *SubscriptionLifecycle) DoUnsubscribe(ctx context.Context, sub *entity.Subscription, token string, actor entity.Actor, reason, feedback string) (*entity.Subscription, error) {
	if sub.Unsubscribe.IsUnsubscribed {
		return nil, entity.ErrAlreadyUnsubscribed
	}
	if token == "" && !actor.IsAdmin {
		return nil, entity.ErrInvalidToken
	}
	if token != "" && token != sub.Unsubscribe.Token {
		return nil, entity.ErrInvalidToken
	}

	now := sl.now()
	sub.Unsubscribe.IsUnsubscribed = true
	sub.Unsubscribe.Reason = reason
	sub.Unsubscribe.Feedback = feedback
	sub.Unsubscribe.UnsubscribedAt = &now
	sub.IsActive = false
	sub.UpdatedAt = now

	if err := sl.subRepo.Save(ctx, sub); err != nil {
		return nil, err
	}

	sl.logger.Info("Subscription unsubscribed",
		"email", sub.Email,
		"flightNumber", sub.FlightNumber,
		"reason", reason,
		"actor", actor.ID)
	return sub, nil
}

// Reactivate undoes an unsubscribe unless the subscription has expired.
// The logical state returns to Active when verified, Pending otherwise.
func (sl *SubscriptionLifecycle) Reactivate(ctx context.Context, sub *entity.Subscription) (*entity.Subscription, error) {
	if !sub.Unsubscribe.IsUnsubscribed {
		return nil, entity.ErrNotUnsubscribed
	}
	now := sl.now()
	if sub.IsExpired(now) {
		return nil, entity.ErrExpired
	}

	sub.Unsubscribe.IsUnsubscribed = false
	sub.Unsubscribe.Reason = ""
	sub.Unsubscribe.Feedback = ""
	sub.Unsubscribe.UnsubscribedAt = nil
	sub.IsActive = true
	sub.UpdatedAt = now

	if err := sl.subRepo.Save(ctx, sub); err != nil {
		return nil, err
	}

	sl.logger.Info("Subscription reactivated",
		"email", sub.Email,
		"flightNumber", sub.FlightNumber,
		"status", sub.Status())
	return sub, nil
}

// AddNotification records one delivery outcome: counters, last-sent time and
// a bounded history entry. Past MaxNotificationHistory entries the history is
// truncated to the TruncatedNotificationHistory most recent, oldest dropped.
func (sl *SubscriptionLifecycle) AddNotification(ctx context.Context, sub *entity.Subscription, notifType entity.NotificationType, method entity.DeliveryMethod, status entity.DeliveryStatus, messageID, errText string) (*entity.Subscription, error) {
	now := sl.now()

	sub.Stats.TotalSent++
	if sub.Stats.PerMethod == nil {
		sub.Stats.PerMethod = make(map[entity.DeliveryMethod]int)
	}
	sub.Stats.PerMethod[method]++
	sub.Stats.LastSent = &now
	sub.Stats.History = append(sub.Stats.History, entity.NotificationRecord{
		Type:      notifType,
		Method:    method,
		Status:    status,
		Timestamp: now,
		MessageID: messageID,
		Error:     errText,
	})

	if len(sub.Stats.History) > entity.MaxNotificationHistory {
		keep := entity.TruncatedNotificationHistory
		sub.Stats.History = sub.Stats.History[len(sub.Stats.History)-keep:]
	}

	sub.UpdatedAt = now
	if err := sl.subRepo.Save(ctx, sub); err != nil {
		return nil, err
	}
	return sub, nil
}

// RequestDataExport registers a GDPR export request and returns its token
func (sl *SubscriptionLifecycle) RequestDataExport(ctx context.Context, sub *entity.Subscription) (string, error) {
	now := sl.now()
	token := uuid.NewString()

	sub.Exports = append(sub.Exports, entity.ExportRequest{
		Token:       token,
		RequestedAt: now,
		ExpiresAt:   now.Add(exportTokenTTL),
	})
	sub.UpdatedAt = now

	if err := sl.subRepo.Save(ctx, sub); err != nil {
		return "", err
	}

	sl.logger.Info("Data export requested", "email", sub.Email, "subscriptionID", sub.ID)
	return token, nil
}

// RequestDeletion flags the subscription for right-to-be-forgotten purging.
// The purge itself runs in the maintenance sweep.
func (sl *SubscriptionLifecycle) RequestDeletion(ctx context.Context, sub *entity.Subscription) (*entity.Subscription, error) {
	now := sl.now()
	sub.Deletion.Requested = true
	sub.Deletion.RequestedAt = &now
	sub.UpdatedAt = now

	if err := sl.subRepo.Save(ctx, sub); err != nil {
		return nil, err
	}

	sl.logger.Info("Deletion requested", "email", sub.Email, "subscriptionID", sub.ID)
	return sub, nil
}

// UpdateRetention changes the consent retention inputs and recomputes the
// consent-bound expiry. The recompute only ever tightens: a longer retention
// never pushes an already set expiry out.
func (sl *SubscriptionLifecycle) UpdateRetention(ctx context.Context, sub *entity.Subscription, retentionDays int) (*entity.Subscription, error) {
	if retentionDays <= 0 {
		return nil, &entity.ValidationError{Field: "consent.retentionDays", Message: "retention days must be positive"}
	}

	sub.Consent.RetentionDays = retentionDays
	sl.applyRetention(sub)
	sub.UpdatedAt = sl.now()

	if err := sl.subRepo.Save(ctx, sub); err != nil {
		return nil, err
	}
	return sub, nil
}

// applyRetention adopts the consent-derived expiry when it is earlier than
// the current one (or when none is set)
func (sl *SubscriptionLifecycle) applyRetention(sub *entity.Subscription) {
	gdprExpiry := sub.Consent.Timestamp.AddDate(0, 0, sub.Consent.RetentionDays)
	if sub.ExpiresAt == nil || gdprExpiry.Before(*sub.ExpiresAt) {
		sub.ExpiresAt = &gdprExpiry
	}
}
