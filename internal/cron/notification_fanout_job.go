package cron

import (
	"context"
	"fmt"

	"github.com/ranukawijayapala-vaaney/Vaaney-sub001/pkg/logger"
)

type outboxDrainer interface {
	Drain(ctx context.Context) (int, error)
}

// NewNotificationFanoutJob wraps the notification consumer so the
// worker drains the outbox on the same cadence as the other jobs.
func NewNotificationFanoutJob(logg *logger.Logger, drainer outboxDrainer) (Job, error) {
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if drainer == nil {
		return nil, fmt.Errorf("outbox drainer required")
	}
	return &notificationFanoutJob{logg: logg, drainer: drainer}, nil
}

type notificationFanoutJob struct {
	logg    *logger.Logger
	drainer outboxDrainer
}

func (j *notificationFanoutJob) Name() string { return "notification-fanout" }

func (j *notificationFanoutJob) Run(ctx context.Context) error {
	published, err := j.drainer.Drain(ctx)
	if err != nil {
		return fmt.Errorf("drain outbox: %w", err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{"published": published})
	j.logg.Info(logCtx, "notification fan-out complete")
	return nil
}
