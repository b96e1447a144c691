package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ranukawijayapala-vaaney/Vaaney-sub001/internal/quotes"
	"github.com/ranukawijayapala-vaaney/Vaaney-sub001/pkg/db/models"
	"github.com/ranukawijayapala-vaaney/Vaaney-sub001/pkg/enums"
	"github.com/ranukawijayapala-vaaney/Vaaney-sub001/pkg/logger"
	"github.com/ranukawijayapala-vaaney/Vaaney-sub001/pkg/outbox"
)

const quoteExpiryBatch = 200

// QuoteExpiryJobParams configure the quote deadline sweeper.
type QuoteExpiryJobParams struct {
	Logger      *logger.Logger
	DB          txRunner
	DueReader   dueQuoteReader
	Outbox      outboxEmitter
	RepoFactory quoteRepoFactory
}

type dueQuoteReader interface {
	FindDue(ctx context.Context, now time.Time, limit int) ([]models.Quote, error)
}

type quoteRepoFactory func(tx *gorm.DB) quoteExpirer

type quoteExpirer interface {
	UpdateFields(ctx context.Context, id uuid.UUID, updates map[string]any) error
}

// NewQuoteExpiryJob builds the cron job that closes quotes whose
// deadline passed, one event per quote.
func NewQuoteExpiryJob(params QuoteExpiryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.DueReader == nil {
		return nil, fmt.Errorf("due quote reader required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox service required")
	}
	factory := params.RepoFactory
	if factory == nil {
		factory = defaultQuoteExpirer
	}
	return &quoteExpiryJob{
		logg:        params.Logger,
		db:          params.DB,
		dueReader:   params.DueReader,
		outbox:      params.Outbox,
		repoFactory: factory,
		now:         time.Now,
	}, nil
}

func defaultQuoteExpirer(tx *gorm.DB) quoteExpirer {
	return quotes.NewRepository(tx)
}

type quoteExpiryJob struct {
	logg        *logger.Logger
	db          txRunner
	dueReader   dueQuoteReader
	outbox      outboxEmitter
	repoFactory quoteRepoFactory
	now         func() time.Time
}

func (j *quoteExpiryJob) Name() string { return "quote-expiry" }

func (j *quoteExpiryJob) Run(ctx context.Context) error {
	now := j.now().UTC()
	due, err := j.dueReader.FindDue(ctx, now, quoteExpiryBatch)
	if err != nil {
		return fmt.Errorf("query due quotes: %w", err)
	}
	count := 0
	for _, quote := range due {
		if err := j.expireQuote(ctx, quote, now); err != nil {
			return err
		}
		count++
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{"count": count})
	j.logg.Info(logCtx, "quote expiry loop complete")
	return nil
}

func (j *quoteExpiryJob) expireQuote(ctx context.Context, quote models.Quote, now time.Time) error {
	return j.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := j.repoFactory(tx)
		if err := repo.UpdateFields(ctx, quote.ID, map[string]any{
			"status": enums.QuoteStatusExpired,
		}); err != nil {
			return err
		}
		return j.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventQuoteExpired,
			AggregateType: enums.AggregateQuote,
			AggregateID:   quote.ID,
			Version:       1,
			OccurredAt:    now,
			Data: map[string]any{
				"conversation_id": quote.ConversationID.String(),
				"buyer_id":        quote.BuyerID.String(),
				"seller_id":       quote.SellerID.String(),
			},
		})
	})
}
