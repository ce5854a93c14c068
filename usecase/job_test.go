package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/satriahrh/asreval/domain/entities"
)

type stubEvaluator struct {
	err error
}

func (e *stubEvaluator) Run(ctx context.Context, run *entities.Run) error {
	if e.err != nil {
		run.Fail(e.err)
		return e.err
	}
	return run.Transition(entities.RunStateDone)
}

type stubReporter struct {
	calls int
	err   error
}

func (r *stubReporter) Report(ctx context.Context, now time.Time) error {
	r.calls++
	return r.err
}

func newTestJob(t *testing.T, evalErr, reportErr error) (*DailyJob, *fakeNotifier, *stubReporter) {
	notifier := &fakeNotifier{}
	reporter := &stubReporter{err: reportErr}
	job := NewDailyJob(&stubEvaluator{err: evalErr}, reporter, notifier, zaptest.NewLogger(t))
	job.now = func() time.Time { return time.Date(2024, 3, 2, 6, 30, 0, 0, time.UTC) }
	return job, notifier, reporter
}

func TestDailyJobSuccess(t *testing.T) {
	job, notifier, reporter := newTestJob(t, nil, nil)

	if err := job.Execute(context.Background(), entities.NewRun("r", runDate)); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	want := []string{
		"2024-03-02 06:30:00 evaluation report started",
		"2024-03-02 06:30:00 evaluation report complete",
	}
	if strings.Join(notifier.messages, "|") != strings.Join(want, "|") {
		t.Errorf("Unexpected messages %q", notifier.messages)
	}
	if reporter.calls != 1 {
		t.Errorf("Expected one report, got %d", reporter.calls)
	}
}

func TestDailyJobEvaluationFailure(t *testing.T) {
	job, notifier, reporter := newTestJob(t, errors.New("history unreadable"), nil)

	if err := job.Execute(context.Background(), entities.NewRun("r", runDate)); err == nil {
		t.Fatal("Expected error")
	}
	if len(notifier.messages) != 3 {
		t.Fatalf("Expected started, error, complete; got %q", notifier.messages)
	}
	if notifier.messages[1] != "2024-03-02 06:30:00 evaluation report error: history unreadable" {
		t.Errorf("Unexpected error message %q", notifier.messages[1])
	}
	if reporter.calls != 0 {
		t.Error("Report sent after failed evaluation")
	}
}

func TestDailyJobReportFailure(t *testing.T) {
	job, notifier, _ := newTestJob(t, nil, errors.New("telegram down"))

	err := job.Execute(context.Background(), entities.NewRun("r", runDate))
	if err == nil || !strings.Contains(err.Error(), "telegram down") {
		t.Fatalf("Expected report error, got %v", err)
	}
	if !strings.Contains(notifier.messages[1], "evaluation report error") {
		t.Errorf("Expected error notification, got %q", notifier.messages)
	}
}
