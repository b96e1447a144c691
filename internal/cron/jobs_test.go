package cron

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ranukawijayapala-vaaney/Vaaney-sub001/pkg/db/models"
	"github.com/ranukawijayapala-vaaney/Vaaney-sub001/pkg/enums"
	"github.com/ranukawijayapala-vaaney/Vaaney-sub001/pkg/logger"
	"github.com/ranukawijayapala-vaaney/Vaaney-sub001/pkg/outbox"
)

type fakeTxRunner struct{}

func (fakeTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(&gorm.DB{})
}

type fakeOutboxService struct {
	events []outbox.DomainEvent
}

func (f *fakeOutboxService) Emit(_ context.Context, _ *gorm.DB, event outbox.DomainEvent) error {
	f.events = append(f.events, event)
	return nil
}

type fakeOutboxRepo struct {
	exists bool
}

func (f *fakeOutboxRepo) Exists(enums.OutboxEventType, enums.OutboxAggregateType, uuid.UUID) (bool, error) {
	return f.exists, nil
}

type fakeDueReader struct {
	quotes []models.Quote
}

func (f *fakeDueReader) FindDue(context.Context, time.Time, int) ([]models.Quote, error) {
	return f.quotes, nil
}

type fakeQuoteExpirer struct {
	updates []map[string]any
}

func (f *fakeQuoteExpirer) UpdateFields(_ context.Context, _ uuid.UUID, updates map[string]any) error {
	f.updates = append(f.updates, updates)
	return nil
}

func TestQuoteExpiryJobEmitsPerQuote(t *testing.T) {
	quote := models.Quote{
		ID:             uuid.New(),
		ConversationID: uuid.New(),
		BuyerID:        uuid.New(),
		SellerID:       uuid.New(),
		Status:         enums.QuoteStatusSent,
	}
	outboxSvc := &fakeOutboxService{}
	expirer := &fakeQuoteExpirer{}
	job, err := NewQuoteExpiryJob(QuoteExpiryJobParams{
		Logger:    logger.New(logger.Options{ServiceName: "cron-test"}),
		DB:        fakeTxRunner{},
		DueReader: &fakeDueReader{quotes: []models.Quote{quote}},
		Outbox:    outboxSvc,
		RepoFactory: func(tx *gorm.DB) quoteExpirer {
			return expirer
		},
	})
	if err != nil {
		t.Fatalf("NewQuoteExpiryJob: %v", err)
	}

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(expirer.updates) != 1 {
		t.Fatalf("expected 1 status update, got %d", len(expirer.updates))
	}
	if status := expirer.updates[0]["status"]; status != enums.QuoteStatusExpired {
		t.Fatalf("unexpected status update: %v", status)
	}
	if len(outboxSvc.events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(outboxSvc.events))
	}
	event := outboxSvc.events[0]
	if event.EventType != enums.EventQuoteExpired {
		t.Fatalf("unexpected event type: %s", event.EventType)
	}
	if event.AggregateID != quote.ID {
		t.Fatalf("unexpected aggregate id: %s", event.AggregateID)
	}
}

type fakeStaleReader struct {
	requests []models.ReturnRequest
}

func (f *fakeStaleReader) ListStaleUnderReview(context.Context, time.Time) ([]models.ReturnRequest, error) {
	return f.requests, nil
}

func TestReturnReminderJobRemindsOnce(t *testing.T) {
	request := models.ReturnRequest{
		ID:       uuid.New(),
		BuyerID:  uuid.New(),
		SellerID: uuid.New(),
		Status:   enums.ReturnRequestStatusUnderReview,
	}
	outboxSvc := &fakeOutboxService{}
	outboxRepo := &fakeOutboxRepo{}
	job, err := NewReturnReminderJob(ReturnReminderJobParams{
		Logger:      logger.New(logger.Options{ServiceName: "cron-test"}),
		DB:          fakeTxRunner{},
		StaleReader: &fakeStaleReader{requests: []models.ReturnRequest{request}},
		Outbox:      outboxSvc,
		OutboxRepo:  outboxRepo,
		StaleDays:   7,
	})
	if err != nil {
		t.Fatalf("NewReturnReminderJob: %v", err)
	}

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(outboxSvc.events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(outboxSvc.events))
	}
	if outboxSvc.events[0].EventType != enums.EventReturnReminder {
		t.Fatalf("unexpected event type: %s", outboxSvc.events[0].EventType)
	}

	// A second sweep sees the recorded event and stays quiet.
	outboxRepo.exists = true
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(outboxSvc.events) != 1 {
		t.Fatalf("expected no new events, got %d", len(outboxSvc.events))
	}
}

type fakeDrainer struct {
	published int
}

func (f *fakeDrainer) Drain(context.Context) (int, error) {
	return f.published, nil
}

func TestNotificationFanoutJob(t *testing.T) {
	job, err := NewNotificationFanoutJob(logger.New(logger.Options{ServiceName: "cron-test"}), &fakeDrainer{published: 3})
	if err != nil {
		t.Fatalf("NewNotificationFanoutJob: %v", err)
	}
	if job.Name() != "notification-fanout" {
		t.Fatalf("unexpected job name: %s", job.Name())
	}
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
}
