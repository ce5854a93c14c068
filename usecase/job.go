package usecase

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/satriahrh/asreval/domain"
	"github.com/satriahrh/asreval/domain/entities"
	"github.com/satriahrh/asreval/domain/repositories"
)

// Evaluator runs one evaluation session
type Evaluator interface {
	Run(ctx context.Context, run *entities.Run) error
}

// Reporter delivers the history report
type Reporter interface {
	Report(ctx context.Context, now time.Time) error
}

// DailyJob is one scheduled evaluation: notify, evaluate, report, notify.
// A failure is reported to the operators and returned.
type DailyJob struct {
	evaluator Evaluator
	reporter  Reporter
	notifier  repositories.Notifier
	now       func() time.Time
	logger    *zap.Logger
}

// NewDailyJob creates the job
func NewDailyJob(evaluator Evaluator, reporter Reporter, notifier repositories.Notifier, logger *zap.Logger) *DailyJob {
	return &DailyJob{
		evaluator: evaluator,
		reporter:  reporter,
		notifier:  notifier,
		now:       time.Now,
		logger:    logger,
	}
}

// Execute runs the evaluation and the report for run
func (j *DailyJob) Execute(ctx context.Context, run *entities.Run) error {
	j.notify(ctx, domain.StartedMessage(j.now()))

	err := j.evaluator.Run(ctx, run)
	if err == nil {
		if rerr := j.reporter.Report(ctx, j.now()); rerr != nil {
			err = fmt.Errorf("failed to report: %w", rerr)
		}
	}
	if err != nil {
		j.notify(ctx, domain.FailedMessage(j.now(), err))
	}

	j.notify(ctx, domain.CompletedMessage(j.now()))
	j.logger.Info("Job complete", zap.String("run_id", run.ID), zap.String("state", string(run.State)))
	return err
}

// notify never fails the job
func (j *DailyJob) notify(ctx context.Context, text string) {
	if err := j.notifier.SendMessage(context.WithoutCancel(ctx), text); err != nil {
		j.logger.Warn("Failed to send notification", zap.String("text", text), zap.Error(err))
	}
}
