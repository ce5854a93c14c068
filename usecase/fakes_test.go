package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/satriahrh/asreval/domain"
	"github.com/satriahrh/asreval/domain/entities"
)

type fakeStorage struct {
	samples   []entities.AudioSample
	listErr   error
	listed    bool
	discarded []string
}

func newFakeStorage(ids ...string) *fakeStorage {
	s := &fakeStorage{}
	for _, id := range ids {
		s.samples = append(s.samples, entities.AudioSample{ID: id, Path: "/samples/" + id, DateTag: entities.DateTagOf(id)})
	}
	return s
}

func (s *fakeStorage) List(ctx context.Context, dateTag string) ([]entities.AudioSample, error) {
	s.listed = true
	if s.listErr != nil {
		return nil, s.listErr
	}
	var out []entities.AudioSample
	for _, sample := range s.samples {
		if sample.MatchesDate(dateTag) {
			out = append(out, sample)
		}
	}
	return out, nil
}

func (s *fakeStorage) Discard(ctx context.Context, sample entities.AudioSample) error {
	s.discarded = append(s.discarded, sample.ID)
	return nil
}

type fakeHistory struct {
	records   []entities.AggregateRecord
	appendErr error
	hasErr    error
}

func (h *fakeHistory) Append(ctx context.Context, rec entities.AggregateRecord) error {
	if h.appendErr != nil {
		return h.appendErr
	}
	for _, r := range h.records {
		if r.DateKey() == rec.DateKey() {
			return domain.ErrDuplicateRecord
		}
	}
	h.records = append(h.records, rec)
	return nil
}

func (h *fakeHistory) Records(ctx context.Context) ([]entities.AggregateRecord, error) {
	return h.records, nil
}

func (h *fakeHistory) Has(ctx context.Context, date time.Time) (bool, error) {
	if h.hasErr != nil {
		return false, h.hasErr
	}
	for _, r := range h.records {
		if r.DateKey() == entities.Day(date).Format(entities.DateLayout) {
			return true, nil
		}
	}
	return false, nil
}

type fakeSource struct {
	engine entities.EngineID
	texts  map[string]string
	errs   map[string]error

	mu    sync.Mutex
	calls []string
}

func (s *fakeSource) Engine() entities.EngineID { return s.engine }

func (s *fakeSource) Fetch(ctx context.Context, sample entities.AudioSample) (string, error) {
	s.mu.Lock()
	s.calls = append(s.calls, sample.ID)
	s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return "", domain.NewTranscriptError(sample.ID, string(s.engine), err)
	}
	if err, ok := s.errs[sample.ID]; ok {
		return "", domain.NewTranscriptError(sample.ID, string(s.engine), err)
	}
	return s.texts[sample.ID], nil
}

func (s *fakeSource) called(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.calls {
		if c == id {
			return true
		}
	}
	return false
}

type fakeJournal struct {
	states []entities.RunState
}

func (j *fakeJournal) Save(ctx context.Context, run *entities.Run) error {
	j.states = append(j.states, run.State)
	return errors.New("journal offline")
}

type fakeNotifier struct {
	messages []string
	photos   []string
}

func (n *fakeNotifier) SendMessage(ctx context.Context, text string) error {
	n.messages = append(n.messages, text)
	return nil
}

func (n *fakeNotifier) SendPhoto(ctx context.Context, filename string, png []byte) error {
	n.photos = append(n.photos, filename)
	return nil
}

type fakeRenderer struct {
	titles []string
	views  []entities.HistoryView
	err    error
}

func (r *fakeRenderer) Render(view entities.HistoryView, title string) ([]byte, error) {
	if r.err != nil {
		return nil, r.err
	}
	r.titles = append(r.titles, title)
	r.views = append(r.views, view)
	return []byte("png"), nil
}
