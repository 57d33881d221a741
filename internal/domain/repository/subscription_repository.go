package repository

import (
	"context"
	"time"

	"flightcast-service/internal/domain/entity"
)

// SubscriptionRepository defines persistence and the query shapes the
// dispatcher and lifecycle need
type SubscriptionRepository interface {
	Create(ctx context.Context, sub *entity.Subscription) error
	Save(ctx context.Context, sub *entity.Subscription) error
	FindByID(ctx context.Context, id string) (*entity.Subscription, error)
	FindByEmail(ctx context.Context, email string) ([]*entity.Subscription, error)
	// FindActiveByFlight returns active, not-unsubscribed subscriptions whose
	// flight date falls on the flight's departure day
	FindActiveByFlight(ctx context.Context, flightNumber string, dayStart, dayEnd time.Time) ([]*entity.Subscription, error)
	// FindForNotification additionally filters on the notification type's
	// preference (or the status_changes catch-all) being enabled
	FindForNotification(ctx context.Context, flightNumber string, dayStart, dayEnd time.Time, notifType entity.NotificationType) ([]*entity.Subscription, error)
	// DeactivateExpired flips isActive off for subscriptions past their expiry
	DeactivateExpired(ctx context.Context, now time.Time) (int64, error)
}
