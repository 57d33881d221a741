package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"flightcast-service/internal/domain/entity"
	"flightcast-service/pkg/logger"
)

// SMSGatewayChannel delivers notifications by posting to an external SMS
// gateway. It implements the sms NotificationChannel.
type SMSGatewayChannel struct {
	logger      logger.Logger
	client      *http.Client
	baseURL     string
	bearerToken string
	senderID    string
}

// NewSMSGatewayChannel creates a new SMS gateway channel
func NewSMSGatewayChannel(baseURL, bearerToken, senderID string, logger logger.Logger) *SMSGatewayChannel {
	return &SMSGatewayChannel{
		logger:      logger,
		client:      &http.Client{Timeout: 30 * time.Second},
		baseURL:     baseURL,
		bearerToken: bearerToken,
		senderID:    senderID,
	}
}

// Method returns the delivery method this channel serves
func (c *SMSGatewayChannel) Method() entity.DeliveryMethod {
	return entity.MethodSMS
}

type smsRequest struct {
	To       string `json:"to"`
	SenderID string `json:"senderId"`
	Text     string `json:"text"`
}

type smsResponse struct {
	MessageID string `json:"messageId"`
	Status    string `json:"status"`
}

// Send posts the text rendering to the gateway and returns its message id
func (c *SMSGatewayChannel) Send(ctx context.Context, msg *entity.OutboundMessage) (string, error) {
	body, err := json.Marshal(smsRequest{
		To:       msg.To,
		SenderID: c.senderID,
		Text:     msg.Text,
	})
	if err != nil {
		return "", &entity.DeliveryError{Method: entity.MethodSMS, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return "", &entity.DeliveryError{Method: entity.MethodSMS, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.bearerToken)

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Error("SMS gateway request failed", "to", msg.To, "error", err)
		return "", &entity.DeliveryError{Method: entity.MethodSMS, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		err := fmt.Errorf("gateway returned status %d", resp.StatusCode)
		c.logger.Error("SMS gateway rejected message", "to", msg.To, "status", resp.StatusCode)
		return "", &entity.DeliveryError{Method: entity.MethodSMS, Err: err}
	}

	var out smsResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", &entity.DeliveryError{Method: entity.MethodSMS, Err: err}
	}

	c.logger.Debug("SMS message queued", "to", msg.To, "messageId", out.MessageID)
	return out.MessageID, nil
}
