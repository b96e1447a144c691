package cron

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/ranukawijayapala-vaaney/Vaaney-sub001/pkg/db/models"
	"github.com/ranukawijayapala-vaaney/Vaaney-sub001/pkg/enums"
	"github.com/ranukawijayapala-vaaney/Vaaney-sub001/pkg/logger"
	"github.com/ranukawijayapala-vaaney/Vaaney-sub001/pkg/outbox"
)

const defaultReturnStaleDays = 7

// ReturnReminderJobParams configure the stale-return nudge.
type ReturnReminderJobParams struct {
	Logger      *logger.Logger
	DB          txRunner
	StaleReader staleReturnReader
	Outbox      outboxEmitter
	OutboxRepo  outboxExistenceChecker
	StaleDays   int
}

type staleReturnReader interface {
	ListStaleUnderReview(ctx context.Context, olderThan time.Time) ([]models.ReturnRequest, error)
}

// NewReturnReminderJob builds the cron job that reminds sellers about
// return requests sitting in review too long. One reminder per request.
func NewReturnReminderJob(params ReturnReminderJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.StaleReader == nil {
		return nil, fmt.Errorf("stale return reader required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox service required")
	}
	if params.OutboxRepo == nil {
		return nil, fmt.Errorf("outbox repository required")
	}
	staleDays := params.StaleDays
	if staleDays <= 0 {
		staleDays = defaultReturnStaleDays
	}
	return &returnReminderJob{
		logg:        params.Logger,
		db:          params.DB,
		staleReader: params.StaleReader,
		outbox:      params.Outbox,
		outboxRepo:  params.OutboxRepo,
		staleDays:   staleDays,
		now:         time.Now,
	}, nil
}

type returnReminderJob struct {
	logg        *logger.Logger
	db          txRunner
	staleReader staleReturnReader
	outbox      outboxEmitter
	outboxRepo  outboxExistenceChecker
	staleDays   int
	now         func() time.Time
}

func (j *returnReminderJob) Name() string { return "return-reminder" }

func (j *returnReminderJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-time.Duration(j.staleDays) * 24 * time.Hour)
	stale, err := j.staleReader.ListStaleUnderReview(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("query stale returns: %w", err)
	}
	count := 0
	for _, request := range stale {
		sent, err := j.remind(ctx, request)
		if err != nil {
			return err
		}
		if sent {
			count++
		}
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{"count": count})
	j.logg.Info(logCtx, "return reminder loop complete")
	return nil
}

func (j *returnReminderJob) remind(ctx context.Context, request models.ReturnRequest) (bool, error) {
	exists, err := j.outboxRepo.Exists(enums.EventReturnReminder, enums.AggregateReturnRequest, request.ID)
	if err != nil {
		return false, fmt.Errorf("check reminder existence: %w", err)
	}
	if exists {
		return false, nil
	}
	err = j.db.WithTx(ctx, func(tx *gorm.DB) error {
		return j.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventReturnReminder,
			AggregateType: enums.AggregateReturnRequest,
			AggregateID:   request.ID,
			Version:       1,
			OccurredAt:    j.now().UTC(),
			Data: map[string]any{
				"buyer_id":   request.BuyerID.String(),
				"seller_id":  request.SellerID.String(),
				"stale_days": fmt.Sprintf("%d", j.staleDays),
			},
		})
	})
	if err != nil {
		return false, err
	}
	return true, nil
}
