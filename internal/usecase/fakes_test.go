package usecase

import (
	"context"
	"errors"
	"strconv"
	"time"

	"flightcast-service/internal/domain/entity"
	"flightcast-service/internal/domain/repository"
	"flightcast-service/pkg/logger"
)

func noplog() logger.Logger {
	return logger.NewNop()
}

// memFlightRepo is an in-memory FlightRepository
type memFlightRepo struct {
	flights map[string]*entity.Flight
	saveErr error
	saved   int
}

func newMemFlightRepo() *memFlightRepo {
	return &memFlightRepo{flights: make(map[string]*entity.Flight)}
}

func (r *memFlightRepo) FindByNumber(ctx context.Context, flightNumber string) (*entity.Flight, error) {
	f, ok := r.flights[flightNumber]
	if !ok {
		return nil, &entity.NotFoundError{Resource: "flight", Key: flightNumber}
	}
	return f, nil
}

func (r *memFlightRepo) Create(ctx context.Context, flight *entity.Flight) error {
	if _, ok := r.flights[flight.FlightNumber]; ok {
		return &entity.ConflictError{Resource: "flight", Key: flight.FlightNumber}
	}
	flight.Version = 1
	r.flights[flight.FlightNumber] = flight
	return nil
}

func (r *memFlightRepo) Save(ctx context.Context, flight *entity.Flight) error {
	if r.saveErr != nil {
		return r.saveErr
	}
	r.saved++
	flight.Version++
	r.flights[flight.FlightNumber] = flight
	return nil
}

// memSubRepo is an in-memory SubscriptionRepository
type memSubRepo struct {
	subs    map[string]*entity.Subscription
	saveErr error
	findErr error
	saved   int
	nextID  int
}

func newMemSubRepo() *memSubRepo {
	return &memSubRepo{subs: make(map[string]*entity.Subscription)}
}

func (r *memSubRepo) Create(ctx context.Context, sub *entity.Subscription) error {
	for _, existing := range r.subs {
		if existing.Email == sub.Email && existing.FlightNumber == sub.FlightNumber && existing.FlightDate.Equal(sub.FlightDate) {
			return &entity.ConflictError{Resource: "subscription", Key: sub.Email}
		}
	}
	if sub.ID == "" {
		r.nextID++
		sub.ID = "sub-" + strconv.Itoa(r.nextID)
	}
	r.subs[sub.ID] = sub
	return nil
}

func (r *memSubRepo) Save(ctx context.Context, sub *entity.Subscription) error {
	if r.saveErr != nil {
		return r.saveErr
	}
	r.saved++
	r.subs[sub.ID] = sub
	return nil
}

func (r *memSubRepo) FindByID(ctx context.Context, id string) (*entity.Subscription, error) {
	s, ok := r.subs[id]
	if !ok {
		return nil, &entity.NotFoundError{Resource: "subscription", Key: id}
	}
	return s, nil
}

func (r *memSubRepo) FindByEmail(ctx context.Context, email string) ([]*entity.Subscription, error) {
	var out []*entity.Subscription
	for _, s := range r.subs {
		if s.Email == email {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *memSubRepo) FindActiveByFlight(ctx context.Context, flightNumber string, dayStart, dayEnd time.Time) ([]*entity.Subscription, error) {
	if r.findErr != nil {
		return nil, r.findErr
	}
	var out []*entity.Subscription
	for _, s := range r.subs {
		if s.FlightNumber != flightNumber || !s.IsActive || s.Unsubscribe.IsUnsubscribed {
			continue
		}
		if s.FlightDate.Before(dayStart) || !s.FlightDate.Before(dayEnd) {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

func (r *memSubRepo) FindForNotification(ctx context.Context, flightNumber string, dayStart, dayEnd time.Time, notifType entity.NotificationType) ([]*entity.Subscription, error) {
	subs, err := r.FindActiveByFlight(ctx, flightNumber, dayStart, dayEnd)
	if err != nil {
		return nil, err
	}
	var out []*entity.Subscription
	for _, s := range subs {
		if s.PreferenceFor(notifType).Enabled || s.PreferenceFor(entity.NotifyStatusChanges).Enabled {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *memSubRepo) DeactivateExpired(ctx context.Context, now time.Time) (int64, error) {
	var n int64
	for _, s := range r.subs {
		if s.IsActive && s.IsExpired(now) {
			s.IsActive = false
			n++
		}
	}
	return n, nil
}

// stubRenderer returns fixed content
type stubRenderer struct {
	err error
}

func (r *stubRenderer) Render(ctx context.Context, sub *entity.Subscription, flight *entity.Flight, oldStatus entity.FlightStatus) (*entity.RenderedContent, error) {
	if r.err != nil {
		return nil, r.err
	}
	return &entity.RenderedContent{
		Subject: "Flight " + flight.FlightNumber + " update",
		Text:    "status changed",
		HTML:    "<p>status changed</p>",
	}, nil
}

// stubChannel records sends and can fail a configured number of times
type stubChannel struct {
	method    entity.DeliveryMethod
	failTimes int
	failAll   bool
	calls     int
	sentTo    []string
}

func (c *stubChannel) Method() entity.DeliveryMethod {
	return c.method
}

func (c *stubChannel) Send(ctx context.Context, msg *entity.OutboundMessage) (string, error) {
	c.calls++
	if c.failAll || c.calls <= c.failTimes {
		return "", &entity.DeliveryError{Method: c.method, Err: errors.New("gateway unavailable")}
	}
	c.sentTo = append(c.sentTo, msg.To)
	return "msg-123", nil
}

// stubRouter resolves every method to the same channel
type stubRouter struct {
	channels map[entity.DeliveryMethod]repository.NotificationChannel
}

func (r *stubRouter) GetChannel(method entity.DeliveryMethod) repository.NotificationChannel {
	return r.channels[method]
}
