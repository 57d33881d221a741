package repository

import (
	"context"

	"flightcast-service/internal/domain/entity"
)

// NotificationChannel defines a delivery channel (email, SMS, push).
// Send returns the provider message id on success; failures are returned as
// *entity.DeliveryError so the dispatcher can apply its retry policy.
type NotificationChannel interface {
	Method() entity.DeliveryMethod
	Send(ctx context.Context, msg *entity.OutboundMessage) (string, error)
}
