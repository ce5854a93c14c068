package usecase

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/satriahrh/asreval/domain"
	"github.com/satriahrh/asreval/domain/entities"
	"github.com/satriahrh/asreval/domain/repositories"
	"github.com/satriahrh/asreval/internal/normalize"
	"github.com/satriahrh/asreval/internal/quality"
)

var runDate = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

type evalFixture struct {
	storage    *fakeStorage
	history    *fakeHistory
	reference  *fakeSource
	hypothesis *fakeSource
	journal    *fakeJournal
	service    *EvaluationService
}

func newEvalFixture(t *testing.T, concurrent bool, ids ...string) *evalFixture {
	t.Helper()
	f := &evalFixture{
		storage:    newFakeStorage(ids...),
		history:    &fakeHistory{},
		reference:  &fakeSource{engine: entities.EngineGoogle, texts: map[string]string{}, errs: map[string]error{}},
		hypothesis: &fakeSource{engine: entities.EngineVosk, texts: map[string]string{}, errs: map[string]error{}},
		journal:    &fakeJournal{},
	}
	sources := map[entities.EngineID]repositories.TranscriptSource{
		entities.EngineGoogle: f.reference,
		entities.EngineVosk:   f.hypothesis,
	}
	svc, err := NewEvaluationService(f.storage, f.history, sources, f.journal,
		quality.NewGate(10), normalize.New("ru-RU"),
		EvaluationConfig{Reference: entities.EngineGoogle, Hypothesis: entities.EngineVosk, ConcurrentFetch: concurrent},
		zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("NewEvaluationService failed: %v", err)
	}
	f.service = svc
	return f
}

func TestRunScoresSurvivorsAndPersists(t *testing.T) {
	for _, concurrent := range []bool{false, true} {
		f := newEvalFixture(t, concurrent,
			"2024-03-01_a.mp3", "2024-03-01_b.mp3", "2024-03-01_c.mp3", "2024-03-02_other.mp3")

		f.reference.texts["2024-03-01_a.mp3"] = "Привет, как дела у тебя?"
		f.hypothesis.texts["2024-03-01_a.mp3"] = "привет как тела у тебя"
		f.reference.texts["2024-03-01_b.mp3"] = "короткий"
		f.hypothesis.texts["2024-03-01_b.mp3"] = "короткий текст здесь"
		f.reference.texts["2024-03-01_c.mp3"] = "нормальный длинный текст"
		f.hypothesis.errs["2024-03-01_c.mp3"] = errors.New("connection refused")

		run := entities.NewRun("run-1", runDate)
		if err := f.service.Run(context.Background(), run); err != nil {
			t.Fatalf("concurrent=%v: Run failed: %v", concurrent, err)
		}

		if run.State != entities.RunStateDone {
			t.Errorf("concurrent=%v: expected done, got %s", concurrent, run.State)
		}
		if len(f.history.records) != 1 {
			t.Fatalf("concurrent=%v: expected 1 record, got %d", concurrent, len(f.history.records))
		}
		rec := f.history.records[0]
		if rec.DateKey() != "2024-03-01" {
			t.Errorf("Expected record for run date, got %s", rec.DateKey())
		}
		if math.Abs(rec.AvgWER-0.2) > 1e-9 || math.Abs(rec.MedWER-0.2) > 1e-9 {
			t.Errorf("Expected WER 0.2, got avg %v med %v", rec.AvgWER, rec.MedWER)
		}
		if run.Record == nil || run.Record.AvgWER != rec.AvgWER {
			t.Error("Expected record attached to run")
		}

		if got := run.Count(domain.OutcomeAccepted); got != 1 {
			t.Errorf("Expected 1 accepted, got %d", got)
		}
		if got := run.Count(domain.OutcomeRejected); got != 1 {
			t.Errorf("Expected 1 rejected, got %d", got)
		}
		if got := run.Count(domain.OutcomeFailed); got != 1 {
			t.Errorf("Expected 1 failed, got %d", got)
		}
		if len(f.storage.discarded) != 3 {
			t.Errorf("Expected every tagged sample discarded, got %v", f.storage.discarded)
		}
		if f.reference.called("2024-03-02_other.mp3") {
			t.Error("Sample from another date was fetched")
		}
	}
}

func TestRunRejectionStopsSequentialFetch(t *testing.T) {
	f := newEvalFixture(t, false, "2024-03-01_a.mp3")
	f.reference.texts["2024-03-01_a.mp3"] = "в 5 часов вечера"
	f.hypothesis.texts["2024-03-01_a.mp3"] = "в пять часов вечера"

	run := entities.NewRun("run-1", runDate)
	if err := f.service.Run(context.Background(), run); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if f.hypothesis.called("2024-03-01_a.mp3") {
		t.Error("Hypothesis fetched after reference was rejected")
	}
	if len(run.Samples) != 1 || run.Samples[0].Reason != string(quality.ReasonContainsNumerals) {
		t.Errorf("Unexpected sample results %+v", run.Samples)
	}
	if run.Samples[0].Engine != entities.EngineGoogle {
		t.Errorf("Expected rejection attributed to google, got %s", run.Samples[0].Engine)
	}
}

func TestRunRejectsTranscriptEmptyAfterNormalization(t *testing.T) {
	for _, concurrent := range []bool{false, true} {
		f := newEvalFixture(t, concurrent, "2024-03-01_a.mp3")
		f.reference.texts["2024-03-01_a.mp3"] = "?!?!?!?!?!?!"
		f.hypothesis.texts["2024-03-01_a.mp3"] = "привет как дела у тебя"

		run := entities.NewRun("run-1", runDate)
		if err := f.service.Run(context.Background(), run); err != nil {
			t.Fatalf("concurrent=%v: Run failed: %v", concurrent, err)
		}

		if run.State != entities.RunStateDone {
			t.Errorf("concurrent=%v: expected done, got %s", concurrent, run.State)
		}
		if len(f.history.records) != 0 || run.Record != nil {
			t.Errorf("concurrent=%v: expected no record, got %d", concurrent, len(f.history.records))
		}
		if len(run.Samples) != 1 ||
			run.Samples[0].Outcome != domain.OutcomeRejected ||
			run.Samples[0].Reason != string(quality.ReasonEmpty) ||
			run.Samples[0].Engine != entities.EngineGoogle {
			t.Errorf("concurrent=%v: unexpected sample results %+v", concurrent, run.Samples)
		}
		if len(f.storage.discarded) != 1 || f.storage.discarded[0] != "2024-03-01_a.mp3" {
			t.Errorf("concurrent=%v: expected sample discarded", concurrent)
		}
	}
}

func TestRunZeroSurvivorsEndsDone(t *testing.T) {
	f := newEvalFixture(t, false, "2024-03-01_a.mp3")
	f.reference.texts["2024-03-01_a.mp3"] = "да"

	run := entities.NewRun("run-1", runDate)
	if err := f.service.Run(context.Background(), run); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if run.State != entities.RunStateDone {
		t.Errorf("Expected done, got %s", run.State)
	}
	if len(f.history.records) != 0 || run.Record != nil {
		t.Error("Expected no record written")
	}
}

func TestRunNoSamplesEndsDone(t *testing.T) {
	f := newEvalFixture(t, false)

	run := entities.NewRun("run-1", runDate)
	if err := f.service.Run(context.Background(), run); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if run.State != entities.RunStateDone || len(f.history.records) != 0 {
		t.Errorf("Expected done without record, got %s and %d records", run.State, len(f.history.records))
	}
}

func TestRunPersistenceFailure(t *testing.T) {
	f := newEvalFixture(t, false, "2024-03-01_a.mp3")
	f.reference.texts["2024-03-01_a.mp3"] = "привет как дела"
	f.hypothesis.texts["2024-03-01_a.mp3"] = "привет как тела"
	f.history.appendErr = &domain.PersistenceError{Op: "write", Path: "evaluation.csv", Err: errors.New("disk full")}

	run := entities.NewRun("run-1", runDate)
	err := f.service.Run(context.Background(), run)

	var perr *domain.PersistenceError
	if !errors.As(err, &perr) {
		t.Fatalf("Expected PersistenceError, got %v", err)
	}
	if run.State != entities.RunStateFailed {
		t.Errorf("Expected failed, got %s", run.State)
	}
	if run.Record != nil {
		t.Error("Expected no record attached to failed run")
	}
	if run.Error == "" {
		t.Error("Expected error message on run")
	}
	last := f.journal.states[len(f.journal.states)-1]
	if last != entities.RunStateFailed {
		t.Errorf("Expected failed state journaled last, got %s", last)
	}
}

func TestRunListFailure(t *testing.T) {
	f := newEvalFixture(t, false)
	f.storage.listErr = errors.New("permission denied")

	run := entities.NewRun("run-1", runDate)
	if err := f.service.Run(context.Background(), run); err == nil {
		t.Fatal("Expected error")
	}
	if run.State != entities.RunStateFailed {
		t.Errorf("Expected failed, got %s", run.State)
	}
}

func TestRunSkipsDateAlreadyInHistory(t *testing.T) {
	f := newEvalFixture(t, false, "2024-03-01_a.mp3")
	f.history.records = []entities.AggregateRecord{{Date: runDate}}

	run := entities.NewRun("run-1", runDate)
	if err := f.service.Run(context.Background(), run); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if run.State != entities.RunStateDone {
		t.Errorf("Expected done, got %s", run.State)
	}
	if f.storage.listed || len(f.storage.discarded) != 0 {
		t.Error("Expected samples left untouched")
	}
}

func TestRunInterruptedKeepsSample(t *testing.T) {
	f := newEvalFixture(t, false, "2024-03-01_a.mp3")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	run := entities.NewRun("run-1", runDate)
	if err := f.service.Run(ctx, run); err == nil {
		t.Fatal("Expected error for cancelled run")
	}
	if run.State != entities.RunStateFailed {
		t.Errorf("Expected failed, got %s", run.State)
	}
	if len(f.storage.discarded) != 0 {
		t.Errorf("Expected sample kept, got %v", f.storage.discarded)
	}
}

func TestNewEvaluationServiceMissingSource(t *testing.T) {
	_, err := NewEvaluationService(newFakeStorage(), &fakeHistory{},
		map[entities.EngineID]repositories.TranscriptSource{},
		nil, quality.NewGate(0), normalize.New("ru"),
		EvaluationConfig{Reference: entities.EngineGoogle, Hypothesis: entities.EngineVosk},
		zaptest.NewLogger(t))
	if err == nil {
		t.Error("Expected error for missing sources")
	}
}
