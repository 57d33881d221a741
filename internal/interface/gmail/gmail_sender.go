package gmail

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"flightcast-service/internal/domain/entity"
	"flightcast-service/pkg/logger"

	"golang.org/x/oauth2"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

// GmailSender delivers notifications over the Gmail API. It implements the
// email NotificationChannel.
type GmailSender struct {
	gmailService *gmail.Service
	logger       logger.Logger
}

// NewGmailSender creates a new Gmail sender
func NewGmailSender(ctx context.Context, tokenSource oauth2.TokenSource, logger logger.Logger) (*GmailSender, error) {
	service, err := gmail.NewService(ctx, option.WithTokenSource(tokenSource))
	if err != nil {
		return nil, err
	}

	return &GmailSender{
		gmailService: service,
		logger:       logger,
	}, nil
}

// Method returns the delivery method this channel serves
func (s *GmailSender) Method() entity.DeliveryMethod {
	return entity.MethodEmail
}

// Send composes an RFC 822 message and sends it through the authenticated
// Gmail account. Returns the provider message id.
func (s *GmailSender) Send(ctx context.Context, msg *entity.OutboundMessage) (string, error) {
	raw := base64.URLEncoding.EncodeToString([]byte(composeMIME(msg)))

	sent, err := s.gmailService.Users.Messages.Send("me", &gmail.Message{Raw: raw}).Context(ctx).Do()
	if err != nil {
		s.logger.Error("Gmail send failed", "to", msg.To, "error", err)
		return "", &entity.DeliveryError{Method: entity.MethodEmail, Err: err}
	}

	s.logger.Debug("Gmail message sent", "to", msg.To, "messageId", sent.Id)
	return sent.Id, nil
}

// composeMIME builds a multipart/alternative body carrying both the text and
// the HTML rendering
func composeMIME(msg *entity.OutboundMessage) string {
	boundary := "flightcast-boundary"

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", msg.From)
	fmt.Fprintf(&b, "To: %s\r\n", msg.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", msg.Subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&b, "Content-Type: multipart/alternative; boundary=%q\r\n\r\n", boundary)

	fmt.Fprintf(&b, "--%s\r\n", boundary)
	b.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n\r\n")
	b.WriteString(msg.Text)
	b.WriteString("\r\n\r\n")

	if msg.HTML != "" {
		fmt.Fprintf(&b, "--%s\r\n", boundary)
		b.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n\r\n")
		b.WriteString(msg.HTML)
		b.WriteString("\r\n\r\n")
	}

	fmt.Fprintf(&b, "--%s--", boundary)
	return b.String()
}
