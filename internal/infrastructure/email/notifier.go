// Package email delivers operational notifications by publishing them
// to the email send queue, where a downstream mailer picks them up.
package email

import (
	"context"
	"encoding/base64"
	"time"

	"github.com/google/uuid"

	"github.com/golfdiscount/wsi-automation-api/internal/domain"
	"github.com/golfdiscount/wsi-automation-api/pkg/kafka"
)

// Message is the payload published to the email send queue
type Message struct {
	ID          string       `json:"id"`
	Recipients  []string     `json:"recipients"`
	Subject     string       `json:"subject"`
	Body        string       `json:"body"`
	Attachments []attachment `json:"attachments,omitempty"`
	QueuedAt    time.Time    `json:"queuedAt"`
}

type attachment struct {
	Filename    string `json:"filename"`
	ContentType string `json:"contentType"`
	Content     string `json:"content"` // base64
}

// Notifier implements domain.Notifier on top of the Kafka producer
type Notifier struct {
	producer *kafka.Producer
}

// NewNotifier creates a queue-backed notifier
func NewNotifier(producer *kafka.Producer) *Notifier {
	return &Notifier{producer: producer}
}

// Send queues one notification for delivery
func (n *Notifier) Send(ctx context.Context, recipients []string, subject, body string, attachments ...domain.Attachment) error {
	msg := Message{
		ID:         uuid.New().String(),
		Recipients: recipients,
		Subject:    subject,
		Body:       body,
		QueuedAt:   time.Now().UTC(),
	}
	for _, a := range attachments {
		msg.Attachments = append(msg.Attachments, attachment{
			Filename:    a.Filename,
			ContentType: a.ContentType,
			Content:     base64.StdEncoding.EncodeToString(a.Content),
		})
	}

	return n.producer.PublishJSON(ctx, kafka.Topics.EmailSend, msg.ID, msg)
}
