// Package notifier queues outbound email on a Kafka topic. The API contract
// everywhere in this codebase is "queued for delivery", never "delivered":
// a nil error from Send means the broker accepted the message, and the
// mailer consumer owns retries and the dead-letter queue from there.
package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/segmentio/kafka-go"
)

// Topic names for the email pipeline.
const (
	TopicOutbox     = "email-outbox"
	TopicDeadLetter = "email-dlq"
)

// Message is one email to queue. Attachment, when present, is sent as a
// base64 PDF named AttachmentName.
type Message struct {
	To             string    `json:"to"`
	Subject        string    `json:"subject"`
	HTML           string    `json:"html"`
	AttachmentName string    `json:"attachmentName,omitempty"`
	Attachment     []byte    `json:"attachment,omitempty"`
	QueuedAt       time.Time `json:"queuedAt"`
}

// Notifier queues messages for delivery.
type Notifier interface {
	Send(ctx context.Context, m Message) error
	Close() error
}

// Kafka is the broker-backed Notifier used in production.
type Kafka struct {
	writer *kafka.Writer
}

// NewKafka creates a Notifier producing to the outbox topic on the given
// brokers.
func NewKafka(brokers []string) *Kafka {
	return &Kafka{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        TopicOutbox,
			Balancer:     &kafka.LeastBytes{},
			RequiredAcks: kafka.RequireOne,
		},
	}
}

// Send serializes the message and hands it to the broker. Messages are keyed
// by recipient so one mailbox's mail stays ordered.
func (k *Kafka) Send(ctx context.Context, m Message) error {
	if m.QueuedAt.IsZero() {
		m.QueuedAt = time.Now()
	}
	payload, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal email message: %w", err)
	}
	err = k.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(m.To),
		Value: payload,
	})
	if err != nil {
		return fmt.Errorf("queue email to %s: %w", m.To, err)
	}
	return nil
}

// Close flushes and closes the producer.
func (k *Kafka) Close() error {
	return k.writer.Close()
}

// Log is a development Notifier that prints instead of queueing. It is wired
// in when no broker is configured.
type Log struct{}

// Send logs the message headline.
func (Log) Send(_ context.Context, m Message) error {
	log.Printf("email (log mode): to=%s subject=%q attachment=%s", m.To, m.Subject, m.AttachmentName)
	return nil
}

// Close is a no-op.
func (Log) Close() error { return nil }
