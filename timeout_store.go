package mongostore

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/relaybus/mongostore/internal/metrics"
)

// TimeoutStore persists scheduled wakeups and leases the ones that have come
// due, safely across any number of concurrent pollers.
type TimeoutStore struct {
	client     *Client
	cfg        *TimeoutConfig
	collection *mongo.Collection
}

// NewTimeoutStore builds a TimeoutStore backed by collectionName. cfg may be
// nil, in which case DefaultTimeoutConfig is used.
func NewTimeoutStore(client *Client, collectionName string, cfg *TimeoutConfig) (*TimeoutStore, error) {
	if cfg == nil {
		cfg = DefaultTimeoutConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &TimeoutStore{
		client:     client,
		cfg:        cfg,
		collection: client.collection(collectionName),
	}, nil
}

// EnsureIndexes creates the compound index GetDueTimeouts relies on to poll
// without a collection scan. It is safe to call repeatedly.
func (s *TimeoutStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "time", Value: 1}, {Key: "due_lock", Value: 1}},
		Options: options.Index().SetName("time_1_due_lock_1").SetBackground(true),
	})
	if err != nil {
		return fmt.Errorf("mongostore: create timeout index: %w", err)
	}
	return nil
}

// Add schedules a new timeout. Any DueLock on t is cleared first, since a
// freshly scheduled timeout must never start out leased.
func (s *TimeoutStore) Add(ctx context.Context, t *Timeout) error {
	t.DueLock = nil
	if _, err := s.collection.InsertOne(ctx, t); err != nil {
		return fmt.Errorf("mongostore: insert timeout: %w", err)
	}
	return nil
}

// GetDueTimeouts leases up to cfg.MaxDueTimeoutsRetrieved timeouts whose
// Time has passed and whose due_lock is either unset or has itself expired,
// atomically assigning each a due_lock cfg.LockTimeoutsOffset into the
// future so concurrent callers never lease the same timeout twice.
func (s *TimeoutStore) GetDueTimeouts(ctx context.Context) ([]*DueTimeout, error) {
	now := s.client.clock.Now()
	filter := bson.D{
		{Key: "time", Value: bson.D{{Key: "$lte", Value: now}}},
		{Key: "$or", Value: bson.A{
			bson.D{{Key: "due_lock", Value: nil}},
			bson.D{{Key: "due_lock", Value: bson.D{{Key: "$lt", Value: now}}}},
		}},
	}
	sort := bson.D{{Key: "time", Value: 1}, {Key: "due_lock", Value: 1}}
	lockUntil := now.Add(s.cfg.LockTimeoutsOffset)
	update := bson.D{{Key: "$set", Value: bson.D{{Key: "due_lock", Value: lockUntil}}}}
	opts := options.FindOneAndUpdate().SetSort(sort).SetReturnDocument(options.Before)

	var leased []*DueTimeout
	for i := 0; i < s.cfg.MaxDueTimeoutsRetrieved; i++ {
		var v Timeout
		err := s.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&v)
		if err != nil {
			if errors.Is(err, mongo.ErrNoDocuments) {
				break
			}
			return leased, fmt.Errorf("mongostore: poll due timeouts: %w", err)
		}
		leased = append(leased, &DueTimeout{Timeout: v, store: s})
	}
	if len(leased) > 0 {
		metrics.TimeoutLeasedCounter.Add(float64(len(leased)))
	}
	return leased, nil
}

func (s *TimeoutStore) markProcessed(ctx context.Context, id primitive.ObjectID) error {
	if _, err := s.collection.DeleteOne(ctx, bson.D{{Key: "_id", Value: id}}); err != nil {
		return fmt.Errorf("mongostore: mark timeout processed: %w", err)
	}
	metrics.TimeoutProcessedCounter.Inc()
	return nil
}
