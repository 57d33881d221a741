package entity

// RenderedContent is the output of the template renderer for one subscription
type RenderedContent struct {
	Subject string
	Text    string
	HTML    string
}

// OutboundMessage is what a delivery channel sends
type OutboundMessage struct {
	To      string
	From    string
	Subject string
	Text    string
	HTML    string
}

// DispatchDetail is the per-subscription outcome inside a batch result
type DispatchDetail struct {
	SubscriptionID string `json:"subscriptionId"`
	Email          string `json:"email"`
	Status         string `json:"status"` // sent, failed, skipped, rate_limited, error
	Method         string `json:"method,omitempty"`
	MessageID      string `json:"messageId,omitempty"`
	Error          string `json:"error,omitempty"`
}

// Dispatch detail statuses
const (
	DispatchSent        = "sent"
	DispatchFailed      = "failed"
	DispatchSkipped     = "skipped"
	DispatchRateLimited = "rate_limited"
	DispatchError       = "error"
)

// BatchResult aggregates one fan-out run for a flight status change
type BatchResult struct {
	Success             bool             `json:"success"`
	NotificationsSent   int              `json:"notificationsSent"`
	NotificationsFailed int              `json:"notificationsFailed"`
	Message             string           `json:"message,omitempty"`
	Details             []DispatchDetail `json:"details,omitempty"`
}
