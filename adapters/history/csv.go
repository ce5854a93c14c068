package history

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/satriahrh/asreval/domain"
	"github.com/satriahrh/asreval/domain/entities"
)

// Header is the column layout of the history file
var Header = []string{"date", "avg_wil", "avg_wer", "avg_mer", "med_wil", "med_wer", "med_mer"}

// CSVStore is an append-only history kept in a single CSV file.
// Rows keep insertion order; a missing file reads as empty history.
type CSVStore struct {
	path   string
	mu     sync.Mutex
	logger *zap.Logger
}

// NewCSVStore creates a store backed by path
func NewCSVStore(path string, logger *zap.Logger) *CSVStore {
	return &CSVStore{path: path, logger: logger}
}

// Records returns every record in file order
func (s *CSVStore) Records(ctx context.Context) ([]entities.AggregateRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read()
}

// Has reports whether a record for date already exists
func (s *CSVStore) Has(ctx context.Context, date time.Time) (bool, error) {
	records, err := s.Records(ctx)
	if err != nil {
		return false, err
	}
	key := entities.Day(date).Format(entities.DateLayout)
	for _, r := range records {
		if r.DateKey() == key {
			return true, nil
		}
	}
	return false, nil
}

// Append adds rec as the last row. The file is rewritten through a temporary
// file and renamed, so a failed append leaves the previous content intact.
func (s *CSVStore) Append(ctx context.Context, rec entities.AggregateRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.read()
	if err != nil {
		return err
	}
	for _, r := range records {
		if r.DateKey() == rec.DateKey() {
			return fmt.Errorf("%s: %w", rec.DateKey(), domain.ErrDuplicateRecord)
		}
	}
	records = append(records, rec)

	if err := s.write(records); err != nil {
		return &domain.PersistenceError{Op: "write", Path: s.path, Err: err}
	}
	s.logger.Info("History record appended",
		zap.String("path", s.path),
		zap.String("date", rec.DateKey()),
		zap.Int("rows", len(records)))
	return nil
}

func (s *CSVStore) read() ([]entities.AggregateRecord, error) {
	f, err := os.Open(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, &domain.PersistenceError{Op: "open", Path: s.path, Err: err}
	}
	defer f.Close()

	records, err := decode(f)
	if err != nil {
		return nil, &domain.PersistenceError{Op: "read", Path: s.path, Err: err}
	}
	return records, nil
}

func (s *CSVStore) write(records []entities.AggregateRecord) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := encode(tmp, records); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), s.path)
}

func decode(r io.Reader) ([]entities.AggregateRecord, error) {
	cr := csv.NewReader(r)

	header, err := cr.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[name] = i
	}
	for _, name := range Header {
		if _, ok := cols[name]; !ok {
			return nil, fmt.Errorf("header is missing column %s", name)
		}
	}

	var records []entities.AggregateRecord
	for line := 2; ; line++ {
		row, err := cr.Read()
		if err == io.EOF {
			return records, nil
		}
		if err != nil {
			return nil, err
		}

		date, err := entities.ParseDay(row[cols["date"]])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		rec := entities.AggregateRecord{Date: date}
		fields := []*float64{&rec.AvgWIL, &rec.AvgWER, &rec.AvgMER, &rec.MedWIL, &rec.MedWER, &rec.MedMER}
		for i, name := range Header[1:] {
			v, err := strconv.ParseFloat(row[cols[name]], 64)
			if err != nil {
				return nil, fmt.Errorf("line %d column %s: %w", line, name, err)
			}
			*fields[i] = v
		}
		records = append(records, rec)
	}
}

func encode(w io.Writer, records []entities.AggregateRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return err
	}
	for _, r := range records {
		row := []string{r.DateKey()}
		for _, v := range []float64{r.AvgWIL, r.AvgWER, r.AvgMER, r.MedWIL, r.MedWER, r.MedMER} {
			row = append(row, strconv.FormatFloat(v, 'f', -1, 64))
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
