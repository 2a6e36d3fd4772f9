package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/couchcryptid/flight-delay-etl/internal/config"
	"github.com/couchcryptid/flight-delay-etl/internal/domain"
	"github.com/couchcryptid/storm-data-shared/retry"
	kafkago "github.com/segmentio/kafka-go"
)

const (
	// publishBatchSize caps the messages handed to one WriteMessages call.
	publishBatchSize = 500

	publishAttempts = 4
	initialBackoff  = 200 * time.Millisecond
	maxBackoff      = 5 * time.Second
)

// messageWriter is the subset of *kafkago.Writer the publisher uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Publisher exports bundle rows to a Kafka topic.
// It implements pipeline.SummaryPublisher.
type Publisher struct {
	writer messageWriter
	topic  string
	logger *slog.Logger
}

// NewPublisher creates a Kafka producer for the configured summary topic.
func NewPublisher(cfg *config.Config, logger *slog.Logger) *Publisher {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaSummaryTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
		BatchTimeout: 50 * time.Millisecond,
	}
	return &Publisher{writer: w, topic: cfg.KafkaSummaryTopic, logger: logger}
}

// PublishBundle publishes every row of b, level by level, keyed by
// "<level>|<key>" so each group lands on a stable partition.
func (p *Publisher) PublishBundle(ctx context.Context, b *domain.Bundle) error {
	buildID := b.Meta().BuildID
	var sent int
	for _, l := range b.Levels() {
		rows := b.Rows(l)
		for start := 0; start < len(rows); start += publishBatchSize {
			end := min(start+publishBatchSize, len(rows))
			msgs := make([]kafkago.Message, 0, end-start)
			for i := start; i < end; i++ {
				msg, err := serializeToMessage(&rows[i], buildID)
				if err != nil {
					return err
				}
				msgs = append(msgs, msg)
			}
			if err := p.write(ctx, msgs); err != nil {
				return fmt.Errorf("publish level %d summaries: %w", l, err)
			}
			sent += len(msgs)
		}
	}
	p.logger.Info("summaries published", "topic", p.topic, "build_id", buildID, "messages", sent)
	return nil
}

// write retries a failed batch with exponential backoff.
func (p *Publisher) write(ctx context.Context, msgs []kafkago.Message) error {
	backoff := initialBackoff
	var err error
	for attempt := 1; attempt <= publishAttempts; attempt++ {
		if err = p.writer.WriteMessages(ctx, msgs...); err == nil {
			return nil
		}
		if attempt == publishAttempts || ctx.Err() != nil {
			break
		}
		p.logger.Warn("publish batch failed, retrying", "error", err, "attempt", attempt, "backoff", backoff)
		if !retry.SleepWithContext(ctx, backoff) {
			return ctx.Err()
		}
		backoff = retry.NextBackoff(backoff, maxBackoff)
	}
	return err
}

// Close flushes pending messages and closes the underlying writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}

// messageKey is the partition key for a summary row.
func messageKey(k domain.GroupKey) string {
	return strconv.Itoa(int(k.Level)) + "|" + k.String()
}

// serializeToMessage marshals a GroupSummary into a Kafka message.
func serializeToMessage(row *domain.GroupSummary, buildID string) (kafkago.Message, error) {
	data, err := json.Marshal(row)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize group summary: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(messageKey(row.Key)),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "level", Value: []byte(strconv.Itoa(int(row.Key.Level)))},
			{Key: "build_id", Value: []byte(buildID)},
		},
	}, nil
}
