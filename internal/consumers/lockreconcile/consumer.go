package lockreconcile

import (
	"context"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/wedanddone/wedanddone-backend/internal/guestcount"
	"github.com/wedanddone/wedanddone-backend/pkg/enums"
	"github.com/wedanddone/wedanddone-backend/pkg/logger"
	"github.com/wedanddone/wedanddone-backend/pkg/outbox/registry"
	"github.com/wedanddone/wedanddone-backend/pkg/outbox/payloads"
)

const claimScope = "guest-count-lock"

type receiver interface {
	Receive(ctx context.Context, f func(context.Context, *pubsub.Message)) error
}

type locker interface {
	Lock(ctx context.Context, owner guestcount.Owner, reason enums.LockReason) (guestcount.State, error)
}

type claimGuard interface {
	Claim(ctx context.Context, scope, id, holder string) (string, bool, error)
	Release(ctx context.Context, scope, id string) error
}

// Consumer replays the guest count lock carried by contract_paid events. The
// checkout path locks after its transaction commits; when that call fails the
// event still holds the reason and this consumer finishes the job.
type Consumer struct {
	subscription receiver
	guestCount   locker
	claims       claimGuard
	holder       string
	logg         *logger.Logger
}

// NewConsumer builds the lock reconciler.
func NewConsumer(subscription receiver, guestCount locker, claims claimGuard, logg *logger.Logger) (*Consumer, error) {
	if subscription == nil {
		return nil, fmt.Errorf("booking subscription required")
	}
	if guestCount == nil {
		return nil, fmt.Errorf("guest count registry required")
	}
	if claims == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		subscription: subscription,
		guestCount:   guestCount,
		claims:       claims,
		holder:       uuid.NewString(),
		logg:         logg,
	}, nil
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		if c.process(ctx, msg).nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

type processResult struct {
	ack  bool
	nack bool
}

func (c *Consumer) process(ctx context.Context, msg *pubsub.Message) processResult {
	eventType := msg.Attributes["event_type"]
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id": msg.ID,
		"event_type": eventType,
	})

	if eventType != string(enums.EventContractPaid) {
		return processResult{ack: true}
	}

	envelope, payload, err := registry.Decode[payloads.ContractPaidEvent](msg.Data)
	if err != nil {
		c.logg.Error(logCtx, "undecodable contract_paid event", err)
		return processResult{ack: true}
	}
	if payload.LockReason == "" || payload.AccountID == uuid.Nil {
		return processResult{ack: true}
	}

	logCtx = c.logg.WithFields(logCtx, map[string]any{
		"event_id":    envelope.EventID,
		"account_id":  payload.AccountID.String(),
		"contract_id": payload.ContractID.String(),
		"reason":      payload.LockReason.String(),
	})

	_, claimed, err := c.claims.Claim(ctx, claimScope, envelope.EventID, c.holder)
	if err != nil {
		c.logg.Error(logCtx, "idempotency claim failed", err)
		return processResult{nack: true}
	}
	if !claimed {
		c.logg.Info(logCtx, "event already processed")
		return processResult{ack: true}
	}

	if _, err := c.guestCount.Lock(ctx, guestcount.AccountOwner(payload.AccountID), payload.LockReason); err != nil {
		c.logg.Error(logCtx, "guest count lock failed", err)
		if releaseErr := c.claims.Release(ctx, claimScope, envelope.EventID); releaseErr != nil {
			c.logg.Error(logCtx, "failed to release claim", releaseErr)
		}
		return processResult{nack: true}
	}
	return processResult{ack: true}
}
