// Package consumer runs a Kafka group consumer that hands batches of
// messages to a handler and models at-least-once partial-batch redelivery:
// messages the handler reports as failed are re-produced to the same topic
// with an incremented attempt header before the batch is committed.
package consumer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"

	"vigil/internal/platform/kafka/producer"
)

const attemptHeader = "retry-attempt"

// Message is one ingress queue message. ID is stable per delivery and is
// what handlers return to request redelivery.
type Message struct {
	ID        string
	Topic     string
	Key       []byte
	Value     []byte
	Timestamp time.Time
	Attempts  int
}

// BatchHandler processes one batch and returns the IDs of messages that
// failed transiently and should be redelivered. It never returns an error:
// per-message outcomes are the whole contract.
type BatchHandler interface {
	HandleBatch(ctx context.Context, batch []Message) (failed []string)
}

// Config for one consumer instance.
type Config struct {
	Brokers     []string
	Group       string
	Topic       string
	MaxAttempts int
}

// Consumer polls one topic and drives a BatchHandler.
type Consumer struct {
	client      *kgo.Client
	retry       *producer.Producer
	handler     BatchHandler
	topic       string
	maxAttempts int
	logger      *slog.Logger
}

func New(cfg Config, handler BatchHandler, retry *producer.Producer, logger *slog.Logger) (*Consumer, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.ConsumerGroup(cfg.Group),
		kgo.ConsumeTopics(cfg.Topic),
		kgo.DisableAutoCommit(),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka consumer: %w", err)
	}
	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	return &Consumer{
		client:      client,
		retry:       retry,
		handler:     handler,
		topic:       cfg.Topic,
		maxAttempts: maxAttempts,
		logger:      logger,
	}, nil
}

// Run polls until the context is cancelled.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		fetches := c.client.PollFetches(ctx)
		if fetches.IsClientClosed() {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		fetches.EachError(func(topic string, partition int32, err error) {
			if !errors.Is(err, context.Canceled) {
				c.logger.Error("fetch error", "topic", topic, "partition", partition, "error", err)
			}
		})

		var records []*kgo.Record
		fetches.EachRecord(func(r *kgo.Record) {
			records = append(records, r)
		})
		if len(records) == 0 {
			continue
		}

		batch := make([]Message, len(records))
		byID := make(map[string]*kgo.Record, len(records))
		for i, r := range records {
			id := recordID(r)
			batch[i] = Message{
				ID:        id,
				Topic:     r.Topic,
				Key:       r.Key,
				Value:     r.Value,
				Timestamp: r.Timestamp,
				Attempts:  attempts(r),
			}
			byID[id] = r
		}

		failed := c.handler.HandleBatch(ctx, batch)
		for _, id := range failed {
			c.requeue(ctx, byID[id])
		}

		if err := c.client.CommitUncommittedOffsets(ctx); err != nil {
			c.logger.Error("commit failed", "topic", c.topic, "error", err)
		}
	}
}

// requeue re-produces a failed record with an incremented attempt header.
// Records that exhaust their attempts are dropped with an error log so a
// poison message cannot loop forever.
func (c *Consumer) requeue(ctx context.Context, r *kgo.Record) {
	if r == nil {
		return
	}
	next := attempts(r) + 1
	if next >= c.maxAttempts {
		c.logger.Error("dropping message after max attempts",
			"topic", r.Topic,
			"partition", r.Partition,
			"offset", r.Offset,
			"attempts", next,
		)
		return
	}
	header := kgo.RecordHeader{Key: attemptHeader, Value: []byte(strconv.Itoa(next))}
	if err := c.retry.Produce(ctx, r.Topic, r.Key, r.Value, header); err != nil {
		c.logger.Error("failed to requeue message",
			"topic", r.Topic,
			"partition", r.Partition,
			"offset", r.Offset,
			"error", err,
		)
	}
}

func (c *Consumer) Close() {
	c.client.Close()
}

func recordID(r *kgo.Record) string {
	return fmt.Sprintf("%s/%d/%d", r.Topic, r.Partition, r.Offset)
}

func attempts(r *kgo.Record) int {
	for _, h := range r.Headers {
		if h.Key == attemptHeader {
			if n, err := strconv.Atoi(string(h.Value)); err == nil {
				return n
			}
		}
	}
	return 0
}
