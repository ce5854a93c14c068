package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/satriahrh/asreval/domain/entities"
)

const runCollection = "evaluation_runs"

// RunJournal keeps one document per evaluation run, replaced on every state change
type RunJournal struct {
	collection *mongo.Collection
	logger     *zap.Logger
}

// NewRunJournal creates the journal over db
func NewRunJournal(db *mongo.Database, logger *zap.Logger) *RunJournal {
	return &RunJournal{
		collection: db.Collection(runCollection),
		logger:     logger,
	}
}

// EnsureIndexes creates the run id and date indexes
func (j *RunJournal) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	_, err := j.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "run_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "date", Value: -1}},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create run indexes: %w", err)
	}
	return nil
}

// Save upserts the run document keyed by run id
func (j *RunJournal) Save(ctx context.Context, run *entities.Run) error {
	if run == nil {
		return errors.New("run cannot be nil")
	}
	if run.ID == "" {
		return errors.New("run ID cannot be empty")
	}

	_, err := j.collection.ReplaceOne(ctx,
		bson.M{"run_id": run.ID},
		run,
		options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to save run %s: %w", run.ID, err)
	}

	j.logger.Debug("Run journaled", zap.String("run_id", run.ID), zap.String("state", string(run.State)))
	return nil
}

// Get loads a run by id. A missing run returns nil without error.
func (j *RunJournal) Get(ctx context.Context, id string) (*entities.Run, error) {
	var run entities.Run
	err := j.collection.FindOne(ctx, bson.M{"run_id": id}).Decode(&run)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get run %s: %w", id, err)
	}
	return &run, nil
}

// Recent returns up to limit runs, newest date first
func (j *RunJournal) Recent(ctx context.Context, limit int64) ([]*entities.Run, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "date", Value: -1}, {Key: "started_at", Value: -1}}).
		SetLimit(limit)

	cursor, err := j.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find runs: %w", err)
	}
	defer cursor.Close(ctx)

	var runs []*entities.Run
	if err := cursor.All(ctx, &runs); err != nil {
		return nil, fmt.Errorf("failed to decode runs: %w", err)
	}
	return runs, nil
}
