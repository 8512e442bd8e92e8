package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	dbpkg "github.com/wedanddone/wedanddone-backend/pkg/db"
	"github.com/wedanddone/wedanddone-backend/pkg/db/models"
	"github.com/wedanddone/wedanddone-backend/pkg/enums"
	"github.com/wedanddone/wedanddone-backend/pkg/logger"
)

// onceConstraint is the partial unique index that backs EmitOnce.
const onceConstraint = "ux_outbox_events_once"

var errTxRequired = errors.New("transaction required")

// DomainEvent is written to outbox_events inside the caller's transaction so
// it commits or rolls back together with the state change it describes.
type DomainEvent struct {
	EventType     enums.OutboxEventType
	AggregateType enums.OutboxAggregateType
	AggregateID   uuid.UUID
	Actor         *ActorRef
	Data          any
	Version       int
	OccurredAt    time.Time
}

// Emitter is what domain services depend on.
type Emitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event DomainEvent) error
}

type Service struct {
	repo *Repository
	logg *logger.Logger
	now  func() time.Time
}

func NewService(repo *Repository, logg *logger.Logger) *Service {
	return &Service{repo: repo, logg: logg, now: time.Now}
}

// Emit queues event on tx.
func (s *Service) Emit(ctx context.Context, tx *gorm.DB, event DomainEvent) error {
	if tx == nil {
		return errTxRequired
	}
	row, eventID, err := s.row(event)
	if err != nil {
		return err
	}
	if err := s.repo.Insert(tx, row); err != nil {
		return err
	}
	if s.logg != nil {
		s.logg.Debug(s.logg.WithFields(ctx, map[string]any{
			"event_id":       eventID,
			"event_type":     row.EventType,
			"aggregate_type": row.AggregateType,
			"aggregate_id":   row.AggregateID.String(),
		}), "outbox event queued")
	}
	return nil
}

// EmitOnce queues event unless one of the same type already exists for the
// aggregate. Losing a concurrent race on the unique index counts as success.
func (s *Service) EmitOnce(ctx context.Context, tx *gorm.DB, event DomainEvent) error {
	if tx == nil {
		return errTxRequired
	}
	exists, err := s.repo.ExistsTx(tx, event.EventType, event.AggregateType, event.AggregateID)
	if err != nil || exists {
		return err
	}
	err = s.Emit(ctx, tx, event)
	if dbpkg.IsUniqueViolation(err, onceConstraint) {
		return nil
	}
	return err
}

// row validates event and wraps its data in a PayloadEnvelope.
func (s *Service) row(event DomainEvent) (models.OutboxEvent, string, error) {
	if !event.EventType.IsValid() {
		return models.OutboxEvent{}, "", fmt.Errorf("unknown outbox event type %q", event.EventType)
	}
	data, err := json.Marshal(event.Data)
	if err != nil {
		return models.OutboxEvent{}, "", fmt.Errorf("encode %s data: %w", event.EventType, err)
	}
	envelope := PayloadEnvelope{
		Version:    max(event.Version, 1),
		EventID:    uuid.NewString(),
		OccurredAt: event.OccurredAt,
		Actor:      event.Actor,
		Data:       data,
	}
	if envelope.OccurredAt.IsZero() {
		envelope.OccurredAt = s.now().UTC()
	}
	payload, err := json.Marshal(envelope)
	if err != nil {
		return models.OutboxEvent{}, "", fmt.Errorf("encode %s envelope: %w", event.EventType, err)
	}
	return models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     event.EventType,
		AggregateType: event.AggregateType,
		AggregateID:   event.AggregateID,
		Payload:       payload,
	}, envelope.EventID, nil
}
