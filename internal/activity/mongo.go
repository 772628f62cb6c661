package activity

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// CreatedAtIndex is the index the ordered query is hinted to.
const CreatedAtIndex = "createdAt_-1"

// Mongo error codes treated as a missing-index precondition.
const (
	codeBadValue              = 2
	codeIndexNotFound         = 27
	codeNoQueryExecutionPlans = 291
)

// MongoRepository implements Repository over an activity log collection.
type MongoRepository struct {
	col *mongo.Collection
}

func NewMongoRepository(col *mongo.Collection) *MongoRepository {
	return &MongoRepository{col: col}
}

// EnsureIndexes creates the createdAt index used by Recent.
func (m *MongoRepository) EnsureIndexes(ctx context.Context) error {
	idx := mongo.IndexModel{
		Keys:    bson.D{{Key: "createdAt", Value: -1}},
		Options: options.Index().SetName(CreatedAtIndex),
	}
	if _, err := m.col.Indexes().CreateOne(ctx, idx); err != nil {
		return fmt.Errorf("create %s index: %w", CreatedAtIndex, err)
	}
	return nil
}

func (m *MongoRepository) Append(ctx context.Context, rec *Record) error {
	_, err := m.col.InsertOne(ctx, rec)
	return err
}

func (m *MongoRepository) Recent(ctx context.Context, limit int) ([]Record, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetHint(CreatedAtIndex)
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	return m.find(ctx, opts)
}

func (m *MongoRepository) Scan(ctx context.Context, limit int) ([]Record, error) {
	opts := options.Find()
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	return m.find(ctx, opts)
}

func (m *MongoRepository) find(ctx context.Context, opts *options.FindOptions) ([]Record, error) {
	cur, err := m.col.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, classifyQueryError(err)
	}
	defer cur.Close(ctx)
	out := []Record{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, classifyQueryError(err)
	}
	return out, nil
}

// classifyQueryError wraps index/precondition failures in ErrMissingIndex.
func classifyQueryError(err error) error {
	var se mongo.ServerError
	if errors.As(err, &se) {
		if se.HasErrorCode(codeNoQueryExecutionPlans) ||
			se.HasErrorCode(codeIndexNotFound) ||
			se.HasErrorCodeWithMessage(codeBadValue, "hint") {
			return fmt.Errorf("%w: %v", ErrMissingIndex, err)
		}
	}
	return err
}
