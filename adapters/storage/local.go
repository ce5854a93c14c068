package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/satriahrh/asreval/domain/entities"
)

// Local is a directory-backed sample storage. Consumed samples are deleted,
// or moved into archiveDir when one is configured.
type Local struct {
	dir        string
	archiveDir string
	logger     *zap.Logger
}

// NewLocal creates a storage for the samples in dir
func NewLocal(dir, archiveDir string, logger *zap.Logger) *Local {
	return &Local{
		dir:        dir,
		archiveDir: archiveDir,
		logger:     logger,
	}
}

// List returns the samples tagged with dateTag, sorted by id. An empty tag returns every sample.
func (l *Local) List(ctx context.Context, dateTag string) ([]entities.AudioSample, error) {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list samples in %s: %w", l.dir, err)
	}

	var samples []entities.AudioSample
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		s := entities.NewAudioSample(l.dir, e.Name())
		if s.MatchesDate(dateTag) {
			samples = append(samples, s)
		}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i].ID < samples[j].ID })

	l.logger.Info("Samples listed",
		zap.String("dir", l.dir),
		zap.String("date_tag", dateTag),
		zap.Int("count", len(samples)),
		zap.Int("entries", len(entries)))
	return samples, nil
}

// Discard removes a consumed sample. Discarding an already missing sample is not an error.
func (l *Local) Discard(ctx context.Context, sample entities.AudioSample) error {
	if l.archiveDir == "" {
		if err := os.Remove(sample.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to delete sample %s: %w", sample.ID, err)
		}
		l.logger.Debug("Sample deleted", zap.String("sample", sample.ID))
		return nil
	}

	if err := os.MkdirAll(l.archiveDir, 0o755); err != nil {
		return fmt.Errorf("failed to create archive dir: %w", err)
	}
	dst := filepath.Join(l.archiveDir, sample.ID)
	if err := os.Rename(sample.Path, dst); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to archive sample %s: %w", sample.ID, err)
	}
	l.logger.Debug("Sample archived", zap.String("sample", sample.ID), zap.String("to", dst))
	return nil
}
