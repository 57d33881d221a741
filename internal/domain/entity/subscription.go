package entity

import (
	"time"
)

// NotificationType categorizes what a notification is about
type NotificationType string

const (
	NotifyStatusChanges NotificationType = "status_changes"
	NotifyDelays        NotificationType = "delays"
	NotifyCancellations NotificationType = "cancellations"
	NotifyBoardingCalls NotificationType = "boarding_calls"
	NotifyReminders     NotificationType = "reminders"
)

// DeliveryMethod is the channel a notification goes out on
type DeliveryMethod string

const (
	MethodEmail DeliveryMethod = "email"
	MethodSMS   DeliveryMethod = "sms"
	MethodPush  DeliveryMethod = "push"
)

// DeliveryStatus is the terminal state of one delivery attempt
type DeliveryStatus string

const (
	DeliverySent      DeliveryStatus = "sent"
	DeliveryFailed    DeliveryStatus = "failed"
	DeliveryBounced   DeliveryStatus = "bounced"
	DeliveryDelivered DeliveryStatus = "delivered"
)

// SubscriptionStatus is the logical state derived from the verification
// and unsubscribe flags
type SubscriptionStatus string

const (
	SubscriptionPending      SubscriptionStatus = "pending"
	SubscriptionActive       SubscriptionStatus = "active"
	SubscriptionUnsubscribed SubscriptionStatus = "unsubscribed"
)

// Preference controls whether and how one notification type is delivered
type Preference struct {
	Enabled         bool             `bson:"enabled"`
	Methods         []DeliveryMethod `bson:"methods,omitempty"`
	MinDelayMinutes int              `bson:"minDelayMinutes,omitempty"` // delays only
	AdvanceMinutes  int              `bson:"advanceMinutes,omitempty"`  // reminders only
}

// NotificationRecord is one delivery outcome kept in the subscription history
type NotificationRecord struct {
	Type      NotificationType `bson:"type"`
	Method    DeliveryMethod   `bson:"method"`
	Status    DeliveryStatus   `bson:"status"`
	Timestamp time.Time        `bson:"timestamp"`
	MessageID string           `bson:"messageId,omitempty"`
	Error     string           `bson:"error,omitempty"`
}

// NotificationStats aggregates delivery outcomes for a subscription.
// History is bounded: once it grows past MaxNotificationHistory entries it is
// truncated down to TruncatedNotificationHistory, newest kept.
type NotificationStats struct {
	TotalSent int                    `bson:"totalSent"`
	PerMethod map[DeliveryMethod]int `bson:"perMethod,omitempty"`
	History   []NotificationRecord   `bson:"history,omitempty"`
	LastSent  *time.Time             `bson:"lastSent,omitempty"`
}

const (
	MaxNotificationHistory       = 100
	TruncatedNotificationHistory = 50
	MaxVerificationAttempts      = 5
)

// Verification tracks the email verification handshake
type Verification struct {
	IsVerified  bool       `bson:"isVerified"`
	Token       string     `bson:"token,omitempty"`
	TokenExpiry *time.Time `bson:"tokenExpiry,omitempty"`
	Attempts    int        `bson:"attempts"`
	VerifiedAt  *time.Time `bson:"verifiedAt,omitempty"`
}

// Unsubscribe tracks opt-out state
type Unsubscribe struct {
	IsUnsubscribed bool       `bson:"isUnsubscribed"`
	Token          string     `bson:"token,omitempty"`
	Reason         string     `bson:"reason,omitempty"`
	Feedback       string     `bson:"feedback,omitempty"`
	UnsubscribedAt *time.Time `bson:"unsubscribedAt,omitempty"`
}

// Consent records the GDPR consent given at subscription time.
// Given and DataProcessing must both be true for a subscription to exist.
type Consent struct {
	Given          bool      `bson:"given"`
	Timestamp      time.Time `bson:"timestamp"`
	Version        string    `bson:"version,omitempty"`
	RetentionDays  int       `bson:"retentionDays"`
	DataProcessing bool      `bson:"dataProcessing"`
}

// ExportRequest is one pending GDPR data export
type ExportRequest struct {
	Token       string    `bson:"token"`
	RequestedAt time.Time `bson:"requestedAt"`
	ExpiresAt   time.Time `bson:"expiresAt"`
}

// Subscription binds a recipient to a flight on a given date.
// (Email, FlightNumber, FlightDate) carries a unique index.
type Subscription struct {
	ID           string                          `bson:"_id,omitempty"`
	Email        string                          `bson:"email"`
	FlightNumber string                          `bson:"flightNumber"`
	FlightDate   time.Time                       `bson:"flightDate"`
	BookingRef   string                          `bson:"bookingRef,omitempty"`
	Preferences  map[NotificationType]Preference `bson:"preferences"`
	Stats        NotificationStats               `bson:"stats"`
	Verification Verification                    `bson:"verification"`
	Unsubscribe  Unsubscribe                     `bson:"unsubscribe"`
	Consent      Consent                         `bson:"consent"`
	Deletion     DeletionRequest                 `bson:"deletion"`
	Exports      []ExportRequest                 `bson:"exports,omitempty"`
	ExpiresAt    *time.Time                      `bson:"expiresAt,omitempty"`
	IsActive     bool                            `bson:"isActive"`
	CreatedAt    time.Time                       `bson:"createdAt"`
	UpdatedAt    time.Time                       `bson:"updatedAt"`
}

// DeletionRequest tracks a right-to-be-forgotten request; the purge itself is
// done by the maintenance sweep, not inline
type DeletionRequest struct {
	Requested   bool       `bson:"requested"`
	RequestedAt *time.Time `bson:"requestedAt,omitempty"`
}

// Status derives the logical subscription state from the stored flags
func (s *Subscription) Status() SubscriptionStatus {
	if s.Unsubscribe.IsUnsubscribed {
		return SubscriptionUnsubscribed
	}
	if s.Verification.IsVerified {
		return SubscriptionActive
	}
	return SubscriptionPending
}

// IsExpired reports whether the subscription is past its expiry at the given time
func (s *Subscription) IsExpired(now time.Time) bool {
	return s.ExpiresAt != nil && now.After(*s.ExpiresAt)
}

// PreferenceFor returns the preference for a notification type, zero value if unset
func (s *Subscription) PreferenceFor(t NotificationType) Preference {
	if s.Preferences == nil {
		return Preference{}
	}
	return s.Preferences[t]
}

// Actor identifies who initiated an operation; admins bypass token checks
// on unsubscribe
type Actor struct {
	ID      string
	IsAdmin bool
}
