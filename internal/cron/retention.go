package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/wedanddone/wedanddone-backend/pkg/logger"
	"github.com/wedanddone/wedanddone-backend/pkg/metrics"
)

const (
	OutboxRetentionJobName = "outbox-retention"
	DLQRetentionJobName    = "dlq-retention"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Purger deletes rows older than cutoff and reports how many went.
type Purger func(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error)

type RetentionJobParams struct {
	Name      string
	DB        txRunner
	Purge     Purger
	Retention time.Duration
	Logger    *logger.Logger
	Metrics   *metrics.JobMetrics
	Now       func() time.Time
}

// RetentionJob removes rows that aged past Retention in one transaction.
type RetentionJob struct {
	name      string
	db        txRunner
	purge     Purger
	retention time.Duration
	logg      *logger.Logger
	metrics   *metrics.JobMetrics
	now       func() time.Time
}

func NewRetentionJob(params RetentionJobParams) (*RetentionJob, error) {
	switch {
	case params.Name == "":
		return nil, errors.New("job name required")
	case params.DB == nil:
		return nil, errors.New("db runner required")
	case params.Purge == nil:
		return nil, errors.New("purge function required")
	case params.Retention <= 0:
		return nil, fmt.Errorf("%s: retention must be positive", params.Name)
	case params.Logger == nil:
		return nil, errors.New("logger required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &RetentionJob{
		name:      params.Name,
		db:        params.DB,
		purge:     params.Purge,
		retention: params.Retention,
		logg:      params.Logger,
		metrics:   params.Metrics,
		now:       now,
	}, nil
}

func (j *RetentionJob) Name() string { return j.name }

// Cutoff is the oldest timestamp that survives a run started at now.
func (j *RetentionJob) Cutoff() time.Time {
	return j.now().UTC().Add(-j.retention)
}

func (j *RetentionJob) Run(ctx context.Context) error {
	cutoff := j.Cutoff()
	var deleted int64
	err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
		rows, err := j.purge(ctx, tx, cutoff)
		deleted = rows
		return err
	})
	if err != nil {
		return fmt.Errorf("purge before %s: %w", cutoff.Format(time.RFC3339), err)
	}
	j.metrics.AddPurged(j.name, deleted)
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"cutoff":       cutoff,
		"rows_deleted": deleted,
	}), "retention purge complete")
	return nil
}
