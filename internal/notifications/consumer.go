package notifications

import (
	"context"
	"encoding/json"
	stdErrors "errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ranukawijayapala-vaaney/Vaaney-sub001/pkg/db/models"
	"github.com/ranukawijayapala-vaaney/Vaaney-sub001/pkg/enums"
	"github.com/ranukawijayapala-vaaney/Vaaney-sub001/pkg/logger"
	"github.com/ranukawijayapala-vaaney/Vaaney-sub001/pkg/outbox"
)

const defaultDrainBatch = 50

type outboxReader interface {
	FetchUnpublished(limit int) ([]models.OutboxEvent, error)
	MarkPublished(id uuid.UUID) error
	MarkFailed(id uuid.UUID, err error) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Consumer materializes notification rows from unpublished outbox
// events. Each event maps to zero or more recipients; the event is
// marked published only after all of its rows committed, so a crash
// mid-batch replays the event rather than losing it.
type Consumer struct {
	events outboxReader
	repo   Repository
	tx     txRunner
	logg   *logger.Logger
	batch  int
}

func NewConsumer(events outboxReader, repo Repository, tx txRunner, logg *logger.Logger) (*Consumer, error) {
	if events == nil {
		return nil, stdErrors.New("outbox reader is required")
	}
	if repo == nil {
		return nil, stdErrors.New("notification repository is required")
	}
	if tx == nil {
		return nil, stdErrors.New("transaction runner is required")
	}
	if logg == nil {
		return nil, stdErrors.New("logger is required")
	}
	return &Consumer{events: events, repo: repo, tx: tx, logg: logg, batch: defaultDrainBatch}, nil
}

// Drain processes one batch of unpublished events and reports how many
// were published. A failing event is marked failed and skipped; the
// rest of the batch still goes through.
func (c *Consumer) Drain(ctx context.Context) (int, error) {
	rows, err := c.events.FetchUnpublished(c.batch)
	if err != nil {
		return 0, err
	}

	published := 0
	for _, event := range rows {
		if err := ctx.Err(); err != nil {
			return published, err
		}
		if err := c.process(ctx, event); err != nil {
			c.logg.Error(c.logg.WithFields(ctx, map[string]any{
				"event_id":   event.ID.String(),
				"event_type": event.EventType.String(),
			}), "notification fan-out failed", err)
			if markErr := c.events.MarkFailed(event.ID, err); markErr != nil {
				return published, markErr
			}
			continue
		}
		if err := c.events.MarkPublished(event.ID); err != nil {
			return published, err
		}
		published++
	}
	return published, nil
}

func (c *Consumer) process(ctx context.Context, event models.OutboxEvent) error {
	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(event.Payload, &envelope); err != nil {
		return err
	}
	var data map[string]string
	if len(envelope.Data) > 0 {
		if err := json.Unmarshal(envelope.Data, &data); err != nil {
			return err
		}
	}

	targets := routeEvent(event, envelope.Actor, data)
	if len(targets) == 0 {
		return nil
	}
	return c.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := c.repo.WithTx(tx)
		for i := range targets {
			if _, err := repo.Create(ctx, &targets[i]); err != nil {
				return err
			}
		}
		return nil
	})
}

// routeEvent decides who hears about an event and what they read. The
// actor never gets notified about their own action.
func routeEvent(event models.OutboxEvent, actor *outbox.ActorRef, data map[string]string) []models.Notification {
	buyerID := parseParty(data, "buyer_id")
	sellerID := parseParty(data, "seller_id")

	var targets []models.Notification
	add := func(userID uuid.UUID, title, message, link string) {
		if userID == uuid.Nil {
			return
		}
		if actor != nil && actor.UserID == userID {
			return
		}
		notification := models.Notification{
			UserID:    userID,
			EventType: event.EventType,
			Title:     title,
			Message:   message,
		}
		if link != "" {
			notification.Link = &link
		}
		targets = append(targets, notification)
	}

	switch event.EventType {
	case enums.EventQuoteRequested:
		add(sellerID, "New quote request", "A buyer requested a quote.", "/quotes/"+event.AggregateID.String())
	case enums.EventQuoteSent:
		add(buyerID, "Quote received", "The seller sent you a quote.", "/quotes/"+event.AggregateID.String())
	case enums.EventQuoteAccepted:
		add(sellerID, "Quote accepted", "Your quote was accepted.", "/quotes/"+event.AggregateID.String())
	case enums.EventQuoteRejected:
		add(sellerID, "Quote declined", "Your quote was declined.", "/quotes/"+event.AggregateID.String())
	case enums.EventQuoteExpired:
		add(buyerID, "Quote expired", "A quote expired before you responded.", "/quotes/"+event.AggregateID.String())
	case enums.EventDesignSubmitted:
		add(sellerID, "Design submitted", "A buyer submitted a design for review.", "/designs/"+event.AggregateID.String())
	case enums.EventDesignApproved:
		add(buyerID, "Design approved", "Your design was approved.", "/designs/"+event.AggregateID.String())
	case enums.EventDesignRejected:
		add(buyerID, "Design rejected", "Your design was rejected.", "/designs/"+event.AggregateID.String())
	case enums.EventDesignChangesAsked:
		add(buyerID, "Changes requested", "The seller requested changes to your design.", "/designs/"+event.AggregateID.String())
	case enums.EventDesignResubmitted:
		add(sellerID, "Design resubmitted", "A buyer resubmitted a design for review.", "/designs/"+event.AggregateID.String())
	case enums.EventReturnOpened:
		add(sellerID, "Return requested", "A buyer opened a return request.", "/returns/"+event.AggregateID.String())
	case enums.EventReturnSellerDecided:
		add(buyerID, "Return request update", "The seller responded to your return request.", "/returns/"+event.AggregateID.String())
	case enums.EventReturnAdminResolved:
		add(buyerID, "Return request resolved", "The platform resolved your return request.", "/returns/"+event.AggregateID.String())
		add(sellerID, "Return request resolved", "The platform resolved a return request on your sale.", "/returns/"+event.AggregateID.String())
	case enums.EventReturnRefunded:
		add(buyerID, "Refund processed", "Your refund was processed.", "/returns/"+event.AggregateID.String())
		add(sellerID, "Refund processed", "A refund was processed on your sale.", "/returns/"+event.AggregateID.String())
	case enums.EventReturnReminder:
		add(sellerID, "Return awaiting review", "A return request is still waiting for your decision.", "/returns/"+event.AggregateID.String())
	case enums.EventTransactionReleased:
		add(sellerID, "Funds released", "Escrowed funds were released to you.", "/transactions/"+event.AggregateID.String())
	}
	return targets
}

func parseParty(data map[string]string, key string) uuid.UUID {
	raw, ok := data[key]
	if !ok {
		return uuid.Nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil
	}
	return id
}
