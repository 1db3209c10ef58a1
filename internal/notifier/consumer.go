package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/segmentio/kafka-go"
)

const (
	consumerGroup = "mailer"
	maxAttempts   = 3
	retryBackoff  = 2 * time.Second
)

// Deliverer performs the actual delivery of one message. The SMTP sender is
// the production implementation.
type Deliverer interface {
	Deliver(ctx context.Context, m Message) error
}

// Consumer drains the outbox topic and delivers each message, moving
// undeliverable mail to the dead-letter topic after bounded retries.
type Consumer struct {
	reader    *kafka.Reader
	dlqWriter *kafka.Writer
	deliverer Deliverer
}

// NewConsumer creates a Consumer in the mailer consumer group.
func NewConsumer(brokers []string, d Deliverer) *Consumer {
	return &Consumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers: brokers,
			GroupID: consumerGroup,
			Topic:   TopicOutbox,
		}),
		dlqWriter: &kafka.Writer{
			Addr:     kafka.TCP(brokers...),
			Topic:    TopicDeadLetter,
			Balancer: &kafka.LeastBytes{},
		},
		deliverer: d,
	}
}

// Run consumes until ctx is cancelled. Offsets are committed only after a
// message is delivered or dead-lettered, so a crash re-delivers rather than
// drops.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		raw, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}

		var m Message
		if err := json.Unmarshal(raw.Value, &m); err != nil {
			log.Printf("ERROR: undecodable email message at offset %d: %v", raw.Offset, err)
			c.deadLetter(ctx, raw)
			c.commit(ctx, raw)
			continue
		}

		if err := c.deliverWithRetry(ctx, m); err != nil {
			log.Printf("ERROR: giving up on email to %s: %v", m.To, err)
			c.deadLetter(ctx, raw)
		}
		c.commit(ctx, raw)
	}
}

func (c *Consumer) deliverWithRetry(ctx context.Context, m Message) error {
	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err = c.deliverer.Deliver(ctx, m); err == nil {
			log.Printf("delivered email to %s (%q)", m.To, m.Subject)
			return nil
		}
		log.Printf("WARN: deliver to %s attempt %d/%d: %v", m.To, attempt, maxAttempts, err)
		if attempt < maxAttempts {
			select {
			case <-time.After(time.Duration(attempt) * retryBackoff):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	return err
}

func (c *Consumer) deadLetter(ctx context.Context, raw kafka.Message) {
	err := c.dlqWriter.WriteMessages(ctx, kafka.Message{Key: raw.Key, Value: raw.Value})
	if err != nil {
		log.Printf("ERROR: dead-letter write failed, message lost: %v", err)
	}
}

func (c *Consumer) commit(ctx context.Context, raw kafka.Message) {
	if err := c.reader.CommitMessages(ctx, raw); err != nil {
		log.Printf("ERROR: commit offset %d: %v", raw.Offset, err)
	}
}

// Close releases the reader and the dead-letter producer.
func (c *Consumer) Close() error {
	rerr := c.reader.Close()
	werr := c.dlqWriter.Close()
	if rerr != nil {
		return rerr
	}
	return werr
}
