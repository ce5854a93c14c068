package usecase

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/satriahrh/asreval/domain/entities"
	"github.com/satriahrh/asreval/domain/repositories"
)

// ReportService renders the recent history and delivers it to the operators
type ReportService struct {
	history  repositories.HistoryStore
	renderer repositories.ChartRenderer
	notifier repositories.Notifier
	days     int
	logger   *zap.Logger
}

// NewReportService creates a report over the last days of history
func NewReportService(
	history repositories.HistoryStore,
	renderer repositories.ChartRenderer,
	notifier repositories.Notifier,
	days int,
	logger *zap.Logger,
) *ReportService {
	return &ReportService{
		history:  history,
		renderer: renderer,
		notifier: notifier,
		days:     days,
		logger:   logger,
	}
}

// Window returns the records dated strictly after now minus the report window
func (s *ReportService) Window(ctx context.Context, now time.Time, days int) ([]entities.AggregateRecord, error) {
	records, err := s.history.Records(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}
	since := entities.Day(now).AddDate(0, 0, -days)
	return entities.WindowSince(records, since), nil
}

// Report sends one chart of the averages and one of the medians
func (s *ReportService) Report(ctx context.Context, now time.Time) error {
	records, err := s.Window(ctx, now, s.days)
	if err != nil {
		return err
	}

	for _, stat := range []entities.Statistic{entities.StatisticAverage, entities.StatisticMedian} {
		view := entities.ProjectHistory(records, stat)
		png, err := s.renderer.Render(view, ChartTitle(stat))
		if err != nil {
			return fmt.Errorf("failed to render %s chart: %w", stat, err)
		}
		if err := s.notifier.SendPhoto(ctx, string(stat)+".png", png); err != nil {
			return fmt.Errorf("failed to deliver %s chart: %w", stat, err)
		}
	}

	s.logger.Info("Report delivered", zap.Int("records", len(records)), zap.Int("days", s.days))
	return nil
}

// ChartTitle is the caption drawn on a report chart
func ChartTitle(stat entities.Statistic) string {
	return string(stat) + " error rate\nlower - better"
}
