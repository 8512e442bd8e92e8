package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/wedanddone/wedanddone-backend/pkg/config"
	"github.com/wedanddone/wedanddone-backend/pkg/db/models"
	"github.com/wedanddone/wedanddone-backend/pkg/enums"
	"github.com/wedanddone/wedanddone-backend/pkg/logger"
	"github.com/wedanddone/wedanddone-backend/pkg/metrics"
	"github.com/wedanddone/wedanddone-backend/pkg/outbox/registry"
)

const (
	defaultBatchSize   = 50
	defaultPoll        = 500 * time.Millisecond
	defaultMaxAttempts = 10
	failureCeiling     = 10 * time.Second
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type rowStore interface {
	FetchUnpublishedForPublish(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error)
	MarkPublishedTx(tx *gorm.DB, id uuid.UUID) error
	MarkFailedTx(tx *gorm.DB, id uuid.UUID, cause error) error
	MarkTerminalTx(tx *gorm.DB, id uuid.UUID, cause error, terminalAttempts int) error
}

type deadLetterWriter interface {
	InsertTx(tx *gorm.DB, entry models.OutboxDLQ) error
}

type eventResolver interface {
	Resolve(models.OutboxEvent) (*registry.ResolvedEvent, error)
}

type RelayParams struct {
	Logger      *logger.Logger
	DB          txRunner
	Rows        rowStore
	Resolver    eventResolver
	Topics      topicSender
	DeadLetters deadLetterWriter
	Metrics     *metrics.OutboxMetrics
	Settings    config.OutboxConfig
	Readiness   map[string]func(context.Context) error
	Now         func() time.Time
}

// Relay moves committed outbox rows onto Pub/Sub. A pass claims a batch with
// SKIP LOCKED and settles every row inside the same transaction, so replicas
// can drain the table side by side.
type Relay struct {
	logg        *logger.Logger
	db          txRunner
	rows        rowStore
	resolver    eventResolver
	topics      topicSender
	deadLetters deadLetterWriter
	metrics     *metrics.OutboxMetrics
	readiness   map[string]func(context.Context) error
	now         func() time.Time
	batchSize   int
	maxAttempts int
	pace        *pacer
}

func NewRelay(params RelayParams) (*Relay, error) {
	switch {
	case params.Logger == nil:
		return nil, errors.New("logger is required")
	case params.DB == nil:
		return nil, errors.New("database client is required")
	case params.Rows == nil:
		return nil, errors.New("outbox repository is required")
	case params.Resolver == nil:
		return nil, errors.New("event registry is required")
	case params.Topics == nil:
		return nil, errors.New("topic sender is required")
	case params.DeadLetters == nil:
		return nil, errors.New("dlq repository is required")
	}

	settings := params.Settings
	batch := settings.BatchSize
	if batch <= 0 {
		batch = defaultBatchSize
	}
	maxAttempts := settings.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}
	poll := time.Duration(settings.PollIntervalMS) * time.Millisecond
	if poll <= 0 {
		poll = defaultPoll
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}

	return &Relay{
		logg:        params.Logger,
		db:          params.DB,
		rows:        params.Rows,
		resolver:    params.Resolver,
		topics:      params.Topics,
		deadLetters: params.DeadLetters,
		metrics:     params.Metrics,
		readiness:   params.Readiness,
		now:         now,
		batchSize:   batch,
		maxAttempts: maxAttempts,
		pace:        newPacer(poll, failureCeiling),
	}, nil
}

// Run drains until ctx is canceled. Full batches are followed immediately by
// the next pass; empty ones wait one poll interval and failures back off.
func (r *Relay) Run(ctx context.Context) error {
	for name, ping := range r.readiness {
		if err := ping(ctx); err != nil {
			r.logg.Error(ctx, fmt.Sprintf("%s ping failed", name), err)
			return fmt.Errorf("%s ping failed: %w", name, err)
		}
	}

	for {
		if err := ctx.Err(); err != nil {
			r.logg.Info(ctx, "outbox relay context canceled")
			return err
		}

		handled, err := r.drain(ctx)
		var wait time.Duration
		switch {
		case err != nil:
			r.logg.Error(ctx, "outbox relay pass failed", err)
			wait = r.pace.failure()
		case handled == 0:
			wait = r.pace.idle()
		default:
			r.pace.reset()
			continue
		}
		if err := sleep(ctx, wait); err != nil {
			return err
		}
	}
}

type verdict int

const (
	verdictPublished verdict = iota
	verdictRetry
	verdictDeadLetter
)

type delivery struct {
	verdict verdict
	reason  enums.OutboxDLQErrorReason
	err     error
	topic   string
	eventID string
}

// drain claims one batch and reports how many rows it settled.
func (r *Relay) drain(ctx context.Context) (int, error) {
	started := r.now()
	handled := 0
	err := r.db.WithTx(ctx, func(tx *gorm.DB) error {
		events, err := r.rows.FetchUnpublishedForPublish(tx, r.batchSize, r.maxAttempts)
		if err != nil {
			return err
		}
		for _, event := range events {
			if err := r.settle(ctx, tx, event, r.deliver(ctx, event)); err != nil {
				return err
			}
			handled++
		}
		return nil
	})
	if err != nil {
		r.metrics.ObserveBatch(r.now().Sub(started), true)
		return 0, err
	}
	if handled > 0 {
		r.metrics.ObserveBatch(r.now().Sub(started), false)
	}
	return handled, nil
}

func (r *Relay) deliver(ctx context.Context, event models.OutboxEvent) delivery {
	resolved, err := r.resolver.Resolve(event)
	if err != nil {
		return delivery{verdict: verdictDeadLetter, reason: enums.OutboxDLQReasonNonRetryable, err: err}
	}

	out := delivery{topic: resolved.Descriptor.Topic, eventID: resolved.Envelope.EventID}
	err = r.topics.Send(ctx, out.topic, messageFor(event, resolved.Envelope))
	var nonRetry registry.NonRetryableError
	switch {
	case err == nil:
		out.verdict = verdictPublished
	case errors.As(err, &nonRetry):
		out.verdict, out.reason, out.err = verdictDeadLetter, enums.OutboxDLQReasonNonRetryable, err
	case event.AttemptCount+1 >= r.maxAttempts:
		out.verdict, out.reason = verdictDeadLetter, enums.OutboxDLQReasonMaxAttempts
		out.err = fmt.Errorf("max publish attempts reached: %w", err)
	default:
		out.verdict, out.err = verdictRetry, err
	}
	return out
}

func (r *Relay) settle(ctx context.Context, tx *gorm.DB, event models.OutboxEvent, out delivery) error {
	logCtx := r.logg.WithFields(ctx, r.fields(event, out))
	eventType := string(event.EventType)

	switch out.verdict {
	case verdictPublished:
		if err := r.rows.MarkPublishedTx(tx, event.ID); err != nil {
			return fmt.Errorf("mark published %s: %w", event.ID, err)
		}
		r.metrics.IncPublished(eventType)
		r.logg.Info(logCtx, "outbox event published")
	case verdictRetry:
		r.logg.Warn(r.logg.WithField(logCtx, "error", out.err.Error()), "outbox publish failed")
		if err := r.rows.MarkFailedTx(tx, event.ID, out.err); err != nil {
			return fmt.Errorf("mark failure %s: %w", event.ID, err)
		}
		r.metrics.IncRetried(eventType)
	case verdictDeadLetter:
		r.logg.Warn(r.logg.WithField(logCtx, "error", out.err.Error()), "outbox event dead-lettered")
		message := out.err.Error()
		entry := models.OutboxDLQ{
			EventID:       event.ID,
			EventType:     event.EventType,
			AggregateType: event.AggregateType,
			AggregateID:   event.AggregateID,
			Payload:       event.Payload,
			ErrorReason:   out.reason,
			ErrorMessage:  &message,
			AttemptCount:  event.AttemptCount,
			FailedAt:      r.now().UTC(),
		}
		if err := r.deadLetters.InsertTx(tx, entry); err != nil {
			return fmt.Errorf("insert dlq %s: %w", event.ID, err)
		}
		if err := r.rows.MarkTerminalTx(tx, event.ID, out.err, r.maxAttempts); err != nil {
			return fmt.Errorf("mark terminal %s: %w", event.ID, err)
		}
		r.metrics.IncDeadLettered(eventType)
	}
	return nil
}

func (r *Relay) fields(event models.OutboxEvent, out delivery) map[string]any {
	fields := map[string]any{
		"outbox_id":      event.ID.String(),
		"event_type":     event.EventType,
		"aggregate_type": event.AggregateType,
		"aggregate_id":   event.AggregateID.String(),
		"attempt_count":  event.AttemptCount + 1,
	}
	if out.topic != "" {
		fields["topic"] = out.topic
	}
	if out.eventID != "" {
		fields["event_id"] = out.eventID
	}
	if out.reason != "" {
		fields["error_reason"] = out.reason
	}
	return fields
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
