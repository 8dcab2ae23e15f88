package mongodb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/felixgeelhaar/groundwork/domain/run"
	"github.com/felixgeelhaar/groundwork/domain/task"
)

// runDocument is the MongoDB document representation of a run record.
// The full record is kept as opaque JSON; the indexed fields exist only
// to serve list filters.
type runDocument struct {
	ID        string     `bson:"_id"`
	UserTask  string     `bson:"user_task"`
	Stage     string     `bson:"stage"`
	Terminal  bool       `bson:"terminal"`
	Data      []byte     `bson:"data"`
	StartTime time.Time  `bson:"start_time"`
	EndTime   *time.Time `bson:"end_time,omitempty"`
}

// RunStore is a MongoDB-backed implementation of run.Store.
type RunStore struct {
	collection   *mongo.Collection
	queryTimeout time.Duration
}

// NewRunStore creates a new MongoDB run store.
func NewRunStore(client *Client, collectionName string) *RunStore {
	if collectionName == "" {
		collectionName = "runs"
	}
	return &RunStore{
		collection:   client.Collection(collectionName),
		queryTimeout: client.config.QueryTimeout,
	}
}

// Save persists a new run record.
func (s *RunStore) Save(ctx context.Context, st *task.State) error {
	if st.ID == "" {
		return run.ErrInvalidRunID
	}

	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	doc, err := toDocument(st)
	if err != nil {
		return err
	}

	if _, err := s.collection.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return run.ErrRunExists
		}
		return s.wrapError(err)
	}

	return nil
}

// Get retrieves a run record by ID.
func (s *RunStore) Get(ctx context.Context, id string) (*task.State, error) {
	if id == "" {
		return nil, run.ErrInvalidRunID
	}

	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	var doc runDocument
	err := s.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, run.ErrRunNotFound
		}
		return nil, s.wrapError(err)
	}

	return fromDocument(&doc)
}

// Delete removes a run record by ID.
func (s *RunStore) Delete(ctx context.Context, id string) error {
	if id == "" {
		return run.ErrInvalidRunID
	}

	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	result, err := s.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return s.wrapError(err)
	}
	if result.DeletedCount == 0 {
		return run.ErrRunNotFound
	}

	return nil
}

// List returns run records matching the filter.
func (s *RunStore) List(ctx context.Context, filter run.ListFilter) ([]*task.State, error) {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	cursor, err := s.collection.Find(ctx, buildFilter(filter), buildFindOptions(filter))
	if err != nil {
		return nil, s.wrapError(err)
	}
	defer cursor.Close(ctx)

	var states []*task.State
	for cursor.Next(ctx) {
		var doc runDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, s.wrapError(err)
		}
		st, err := fromDocument(&doc)
		if err != nil {
			return nil, err
		}
		states = append(states, st)
	}

	if err := cursor.Err(); err != nil {
		return nil, s.wrapError(err)
	}

	return states, nil
}

// Count returns the number of run records matching the filter.
func (s *RunStore) Count(ctx context.Context, filter run.ListFilter) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	count, err := s.collection.CountDocuments(ctx, buildFilter(filter))
	if err != nil {
		return 0, s.wrapError(err)
	}

	return count, nil
}

// buildFilter translates a ListFilter into a MongoDB query document.
func buildFilter(filter run.ListFilter) bson.M {
	query := bson.M{}

	if filter.TerminalOnly {
		query["terminal"] = true
	}

	if filter.TaskPattern != "" {
		query["user_task"] = primitive.Regex{
			Pattern: regexp.QuoteMeta(filter.TaskPattern),
		}
	}

	timeRange := bson.M{}
	if !filter.FromTime.IsZero() {
		timeRange["$gte"] = filter.FromTime
	}
	if !filter.ToTime.IsZero() {
		timeRange["$lte"] = filter.ToTime
	}
	if len(timeRange) > 0 {
		query["start_time"] = timeRange
	}

	return query
}

// buildFindOptions translates ordering and pagination into find options.
func buildFindOptions(filter run.ListFilter) *options.FindOptions {
	opts := options.Find()

	field := "start_time"
	switch filter.OrderBy {
	case run.OrderByEndTime:
		field = "end_time"
	case run.OrderByID:
		field = "_id"
	}

	direction := 1
	if filter.Descending {
		direction = -1
	}
	opts.SetSort(bson.D{{Key: field, Value: direction}})

	if filter.Limit > 0 {
		opts.SetLimit(int64(filter.Limit))
	}
	if filter.Offset > 0 {
		opts.SetSkip(int64(filter.Offset))
	}

	return opts
}

func toDocument(st *task.State) (*runDocument, error) {
	data, err := json.Marshal(st)
	if err != nil {
		return nil, fmt.Errorf("marshal run record: %w", err)
	}

	doc := &runDocument{
		ID:        st.ID,
		UserTask:  st.UserTask,
		Stage:     string(st.CurrentStage),
		Terminal:  st.Terminal(),
		Data:      data,
		StartTime: st.StartTime,
	}
	if !st.EndTime.IsZero() {
		doc.EndTime = &st.EndTime
	}

	return doc, nil
}

func fromDocument(doc *runDocument) (*task.State, error) {
	var st task.State
	if err := json.Unmarshal(doc.Data, &st); err != nil {
		return nil, fmt.Errorf("unmarshal run record: %w", err)
	}
	return &st, nil
}

func (s *RunStore) wrapError(err error) error {
	if err == nil {
		return nil
	}
	return errors.Join(run.ErrConnectionFailed, err)
}

var _ run.Store = (*RunStore)(nil)
