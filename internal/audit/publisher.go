package audit

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"vigil/internal/platform/kafka/producer"
)

var publishFailures = promauto.NewCounter(prometheus.CounterOpts{
	Name: "vigil_audit_publish_failures_total",
	Help: "Audit events that could not be published to the egress topic",
})

// Publisher emits audit events to the egress collaborator. Send is
// fire-and-forget from the processor's perspective: failures are logged and
// metered, never propagated.
type Publisher interface {
	Send(ctx context.Context, e *Event)
}

// KafkaPublisher publishes audit events as JSON to an egress Kafka topic,
// keyed by user so per-account ordering is preserved downstream.
type KafkaPublisher struct {
	producer *producer.Producer
	topic    string
	logger   *slog.Logger
}

func NewKafkaPublisher(p *producer.Producer, topic string, logger *slog.Logger) *KafkaPublisher {
	return &KafkaPublisher{producer: p, topic: topic, logger: logger}
}

func (p *KafkaPublisher) Send(ctx context.Context, e *Event) {
	body, err := json.Marshal(e)
	if err != nil {
		publishFailures.Inc()
		p.logger.ErrorContext(ctx, "failed to marshal audit event",
			"event_name", e.EventName,
			"user_id", e.User.UserID,
			"error", err,
		)
		return
	}
	if err := p.producer.Produce(ctx, p.topic, []byte(e.User.UserID), body); err != nil {
		publishFailures.Inc()
		p.logger.ErrorContext(ctx, "failed to publish audit event",
			"event_name", e.EventName,
			"user_id", e.User.UserID,
			"error", err,
		)
		return
	}
	p.logger.DebugContext(ctx, "published audit event",
		"event_name", e.EventName,
		"user_id", e.User.UserID,
	)
}
