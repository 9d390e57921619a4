// Package processor runs the per-message pipeline: validate, resolve,
// guard, apply, persist, meter, audit. Outcomes are classified terminal
// (acknowledged, never retried) or transient (reported back to the queue for
// redelivery); the batch entry point itself never fails.
package processor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"vigil/internal/account"
	"vigil/internal/audit"
	"vigil/internal/engine"
	"vigil/internal/event"
	"vigil/internal/graph"
	"vigil/internal/history"
	"vigil/internal/platform/kafka/consumer"
	"vigil/internal/processor/metrics"
	"vigil/pkg/platform/sentinel"
)

const defaultConcurrency = 16

// Result aggregates per-message outcomes for one batch. Only transiently
// failed messages are listed; everything else is acknowledged.
type Result struct {
	FailedMessageIDs []string
}

// Processor drives the pipeline for batches of ingress messages.
type Processor struct {
	engine      *engine.Engine
	graph       *graph.Graph
	codec       *history.Codec
	store       account.Store
	builder     *audit.Builder
	publisher   audit.Publisher
	clock       Clock
	logger      *slog.Logger
	metrics     *metrics.Metrics
	concurrency int
}

// Option configures the Processor.
type Option func(*Processor)

// WithClock overrides the wall clock, for tests.
func WithClock(c Clock) Option {
	return func(p *Processor) { p.clock = c }
}

// WithConcurrency bounds how many messages of a batch run at once.
func WithConcurrency(n int) Option {
	return func(p *Processor) {
		if n > 0 {
			p.concurrency = n
		}
	}
}

func New(eng *engine.Engine, g *graph.Graph, codec *history.Codec, store account.Store,
	builder *audit.Builder, publisher audit.Publisher, m *metrics.Metrics,
	logger *slog.Logger, opts ...Option) *Processor {
	p := &Processor{
		engine:      eng,
		graph:       g,
		codec:       codec,
		store:       store,
		builder:     builder,
		publisher:   publisher,
		clock:       SystemClock(),
		logger:      logger,
		metrics:     m,
		concurrency: defaultConcurrency,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Process runs all messages of a batch concurrently. Messages are
// independent: one message's failure never aborts its siblings, and no
// ordering is assumed between accounts.
func (p *Processor) Process(ctx context.Context, batch []consumer.Message) Result {
	if len(batch) == 0 {
		p.metrics.InvalidBatches.Inc()
		p.logger.WarnContext(ctx, "received empty batch")
		return Result{}
	}

	var (
		mu     sync.Mutex
		failed []string
	)
	g := &errgroup.Group{}
	g.SetLimit(p.concurrency)
	for _, msg := range batch {
		g.Go(func() error {
			if err := p.processMessage(ctx, msg); err != nil {
				p.metrics.EventsProcessed.WithLabelValues(metrics.OutcomeRetried).Inc()
				mu.Lock()
				failed = append(failed, msg.ID)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return Result{FailedMessageIDs: failed}
}

// HandleBatch adapts Process to the queue consumer contract.
func (p *Processor) HandleBatch(ctx context.Context, batch []consumer.Message) []string {
	return p.Process(ctx, batch).FailedMessageIDs
}

// processMessage runs one message through the pipeline. A nil return means
// the message is settled: applied, or dropped for a terminal reason. A
// non-nil return requests redelivery.
func (p *Processor) processMessage(ctx context.Context, msg consumer.Message) error {
	var ev event.IngressEvent
	if err := json.Unmarshal(msg.Value, &ev); err != nil {
		p.logger.ErrorContext(ctx, "malformed message body", "message_id", msg.ID, "error", err)
		return fmt.Errorf("unmarshal message %s: %w", msg.ID, err)
	}

	if err := event.Validate(&ev); err != nil {
		p.metrics.EventsProcessed.WithLabelValues(metrics.OutcomeValidation).Inc()
		p.logger.WarnContext(ctx, "dropping invalid event",
			"message_id", msg.ID,
			"event_name", ev.EventName,
			"error", err,
		)
		return nil
	}

	eventName, err := p.resolveEventName(ctx, &ev)
	if err != nil {
		return err
	}
	if eventName == "" {
		// Terminal validation drop, already audited/logged.
		return nil
	}

	now := p.clock.Now()
	eventMs := ev.TimestampMillis()

	if ev.EventName == event.NameIdentityReproved &&
		ev.Extensions.LevelOfConfidence != event.LevelOfConfidenceP2 {
		p.metrics.EventsProcessed.WithLabelValues(metrics.OutcomeIgnored).Inc()
		p.logger.InfoContext(ctx, "ignoring low-confidence identity reproval",
			"user_id", ev.User.UserID,
			"level_of_confidence", ev.Extensions.LevelOfConfidence,
		)
		p.sendAudit(ctx, audit.TransitionIgnored, audit.ReasonLowConfidence, &ev, nil, false)
		return nil
	}

	if eventMs > now.UnixMilli() {
		// May become valid once time passes, so retry rather than drop.
		p.logger.WarnContext(ctx, "received event is in the future",
			"user_id", ev.User.UserID,
			"event_timestamp_ms", eventMs,
		)
		p.sendAudit(ctx, audit.TransitionIgnored, audit.ReasonFutureEvent, &ev, nil, false)
		return fmt.Errorf("event %s is in the future", msg.ID)
	}

	record, err := p.store.Get(ctx, ev.User.UserID)
	if err != nil {
		if errors.Is(err, sentinel.ErrTooManyRecords) {
			p.metrics.EventsProcessed.WithLabelValues(metrics.OutcomeIgnored).Inc()
			p.logger.ErrorContext(ctx, "account record anomaly", "user_id", ev.User.UserID, "error", err)
			p.sendAudit(ctx, audit.TransitionIgnored, audit.ReasonRecordAnomaly, &ev, nil, false)
			return nil
		}
		p.logger.ErrorContext(ctx, "failed to read account record", "user_id", ev.User.UserID, "error", err)
		return err
	}

	// Absent record means the account is in the default okay state; this is
	// the single place that default is applied.
	var (
		currentState *graph.AccountState
		sentAt       int64
		appliedAt    int64
	)
	if record != nil {
		state := record.State()
		currentState = &state
		sentAt = record.SentAt
		appliedAt = record.AppliedAt
	}

	currentOut := p.currentOutput(currentState)

	if record != nil && record.IsAccountDeleted {
		p.metrics.EventsProcessed.WithLabelValues(metrics.OutcomeIgnored).Inc()
		p.logger.InfoContext(ctx, "ignoring event for deleted account", "user_id", ev.User.UserID)
		p.sendAudit(ctx, audit.TransitionIgnored, audit.ReasonAccountDeleted, &ev, currentOut, true)
		return nil
	}

	// Sole defense against at-least-once redelivery and out-of-order
	// arrival: the event must be strictly newer than anything applied.
	if eventMs <= max(sentAt, appliedAt, 0) {
		p.metrics.EventsProcessed.WithLabelValues(metrics.OutcomeIgnored).Inc()
		p.logger.InfoContext(ctx, "ignoring stale event",
			"user_id", ev.User.UserID,
			"event_timestamp_ms", eventMs,
			"sent_at", sentAt,
			"applied_at", appliedAt,
		)
		p.sendAudit(ctx, audit.TransitionIgnored, audit.ReasonStale, &ev, currentOut, false)
		return nil
	}

	out, err := p.engine.Apply(eventName, currentState)
	if err != nil {
		var rejected *engine.TransitionRejectedError
		if errors.As(err, &rejected) {
			p.metrics.EventsProcessed.WithLabelValues(metrics.OutcomeIgnored).Inc()
			p.logger.InfoContext(ctx, "transition not allowed",
				"user_id", ev.User.UserID,
				"event", string(eventName),
				"state", rejected.StateName,
			)
			p.sendAudit(ctx, audit.TransitionIgnored, audit.ReasonNotAllowed, &ev,
				&engine.Output{NewState: rejected.Current}, false)
			return nil
		}
		p.logger.ErrorContext(ctx, "engine failure", "user_id", ev.User.UserID, "error", err)
		return err
	}

	patch, err := p.buildPatch(&ev, out, eventMs, now.UnixMilli(), appliedAt)
	if err != nil {
		p.logger.ErrorContext(ctx, "failed to build patch", "user_id", ev.User.UserID, "error", err)
		return err
	}
	if err := p.store.Apply(ctx, ev.User.UserID, patch); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			// A concurrent event won the optimistic check; this one is
			// superseded, same as stale.
			p.metrics.EventsProcessed.WithLabelValues(metrics.OutcomeIgnored).Inc()
			p.logger.InfoContext(ctx, "conditional write lost race", "user_id", ev.User.UserID)
			p.sendAudit(ctx, audit.TransitionIgnored, audit.ReasonStale, &ev, currentOut, false)
			return nil
		}
		p.logger.ErrorContext(ctx, "failed to persist account state", "user_id", ev.User.UserID, "error", err)
		return err
	}

	before := graph.AccountState{}
	if currentState != nil {
		before = *currentState
	}
	resolveSeconds := 0.0
	if before.Suspended && !out.NewState.Suspended && appliedAt > 0 {
		resolveSeconds = float64(now.UnixMilli()-appliedAt) / 1000.0
	}
	p.metrics.RecordStateChange(before.Blocked, before.Suspended,
		out.NewState.Blocked, out.NewState.Suspended, resolveSeconds)

	p.metrics.EventsProcessed.WithLabelValues(metrics.OutcomeApplied).Inc()
	p.logger.InfoContext(ctx, "applied transition",
		"user_id", ev.User.UserID,
		"event", string(eventName),
		"intervention", out.InterventionName,
	)
	p.sendAudit(ctx, audit.TransitionApplied, "", &ev, out, false)
	return nil
}

// resolveEventName maps a fraud event's wire code to its canonical event
// name; user-action names are already canonical. An empty name with nil
// error signals a terminal validation drop.
func (p *Processor) resolveEventName(ctx context.Context, ev *event.IngressEvent) (graph.EventName, error) {
	if !ev.IsIntervention() {
		return graph.EventName(ev.EventName), nil
	}
	if err := event.ValidateInterventionEvent(ev); err != nil {
		p.metrics.EventsProcessed.WithLabelValues(metrics.OutcomeValidation).Inc()
		p.logger.WarnContext(ctx, "dropping intervention with invalid code",
			"user_id", ev.User.UserID,
			"error", err,
		)
		return "", nil
	}
	code := graph.Code(ev.Extensions.Intervention.InterventionCode)
	name, err := p.engine.EventForCode(code)
	if err != nil {
		// Unknown codes are a contract problem, not a data problem; retry
		// so the message survives a rolling deploy of an updated graph.
		p.logger.ErrorContext(ctx, "unmapped intervention code",
			"user_id", ev.User.UserID,
			"code", string(code),
			"error", err,
		)
		return "", err
	}
	return name, nil
}

// currentOutput wraps the current state for ignored-transition audits.
func (p *Processor) currentOutput(current *graph.AccountState) *engine.Output {
	state := graph.AccountState{}
	if current != nil {
		state = *current
	}
	out := &engine.Output{NewState: state}
	if name, ok := p.graph.StateName(state); ok {
		out.NextAllowable = p.graph.Adjacency(name)
	}
	return out
}

func (p *Processor) buildPatch(ev *event.IngressEvent, out *engine.Output, eventMs, nowMs, expectedAppliedAt int64) (account.Patch, error) {
	switch ev.EventName {
	case event.NamePasswordReset:
		return account.PasswordResetPatch{
			State:             out.NewState,
			UpdatedAt:         nowMs,
			ResetPasswordAt:   nowMs,
			ExpectedAppliedAt: expectedAppliedAt,
		}, nil
	case event.NameIdentityReproved:
		return account.IdentityReprovePatch{
			State:              out.NewState,
			UpdatedAt:          nowMs,
			ReprovedIdentityAt: nowMs,
			ExpectedAppliedAt:  expectedAppliedAt,
		}, nil
	default:
		entry, err := p.codec.Encode(ev, nowMs)
		if err != nil {
			return nil, fmt.Errorf("encode history entry: %w", err)
		}
		return account.InterventionPatch{
			State:             out.NewState,
			Intervention:      out.InterventionName,
			SentAt:            eventMs,
			AppliedAt:         nowMs,
			UpdatedAt:         nowMs,
			HistoryEntry:      entry,
			ExpectedAppliedAt: expectedAppliedAt,
		}, nil
	}
}

func (p *Processor) sendAudit(ctx context.Context, t audit.TransitionType, reason string,
	ev *event.IngressEvent, out *engine.Output, deleted bool) {
	e, ok := p.builder.Build(t, reason, ev, out, deleted, p.clock.Now())
	if !ok {
		return
	}
	p.publisher.Send(ctx, e)
}
