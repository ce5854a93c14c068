package stt

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/satriahrh/asreval/domain"
	"github.com/satriahrh/asreval/domain/entities"
)

// ErrNoReference is returned when the transcripts file has no row for a sample
var ErrNoReference = errors.New("no human transcript for sample")

// Reference serves human transcripts from a CSV file with "file" and "human_text" columns
type Reference struct {
	texts  map[string]string
	logger *zap.Logger
}

// NewReference loads the whole transcripts file
func NewReference(path string, logger *zap.Logger) (*Reference, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open reference transcripts: %w", err)
	}
	defer f.Close()

	texts, err := readReferences(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	logger.Info("Reference transcripts loaded", zap.String("path", path), zap.Int("count", len(texts)))
	return &Reference{texts: texts, logger: logger}, nil
}

func readReferences(r io.Reader) (map[string]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	fileCol, textCol := -1, -1
	for i, name := range header {
		switch name {
		case "file":
			fileCol = i
		case "human_text":
			textCol = i
		}
	}
	if fileCol < 0 || textCol < 0 {
		return nil, fmt.Errorf("header must contain file and human_text columns")
	}

	texts := make(map[string]string)
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if fileCol >= len(row) || textCol >= len(row) {
			continue
		}
		texts[row[fileCol]] = row[textCol]
	}
	return texts, nil
}

func (r *Reference) Engine() entities.EngineID {
	return entities.EngineReference
}

func (r *Reference) Fetch(ctx context.Context, sample entities.AudioSample) (string, error) {
	text, ok := r.texts[sample.ID]
	if !ok {
		return "", domain.NewTranscriptError(sample.ID, string(entities.EngineReference), ErrNoReference)
	}
	return text, nil
}
