package router

import (
	"flightcast-service/internal/domain/entity"
	"flightcast-service/internal/domain/repository"
	"flightcast-service/pkg/logger"
)

// ChannelRouter routes delivery methods to registered notification channels
type ChannelRouter struct {
	channels map[entity.DeliveryMethod]repository.NotificationChannel
	logger   logger.Logger
}

// NewChannelRouter creates a new channel router
func NewChannelRouter(logger logger.Logger) *ChannelRouter {
	return &ChannelRouter{
		channels: make(map[entity.DeliveryMethod]repository.NotificationChannel),
		logger:   logger,
	}
}

// Register registers a channel under its delivery method
func (r *ChannelRouter) Register(channel repository.NotificationChannel) {
	r.channels[channel.Method()] = channel
	r.logger.Info("Registered delivery channel", "method", channel.Method())
}

// GetChannel returns the channel for a delivery method, nil when none is
// registered
func (r *ChannelRouter) GetChannel(method entity.DeliveryMethod) repository.NotificationChannel {
	return r.channels[method]
}
