package mongostore

import (
	"context"
	"errors"
	"fmt"
	"reflect"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/relaybus/mongostore/internal/metrics"
)

// SagaStore persists saga data with optimistic concurrency control and
// maintains unique indexes over the correlation properties each saga type
// declares at Insert/Update time.
type SagaStore struct {
	client   *Client
	cfg      *SagaConfig
	registry *collectionRegistry

	*indexMaintainer
}

// NewSagaStore builds a SagaStore. cfg may be nil, in which case
// DefaultSagaConfig is used.
func NewSagaStore(client *Client, cfg *SagaConfig) (*SagaStore, error) {
	if cfg == nil {
		cfg = DefaultSagaConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := &SagaStore{
		client:   client,
		cfg:      cfg,
		registry: newCollectionRegistry(cfg.AllowAutomaticCollectionNames),
	}
	s.indexMaintainer = newIndexMaintainer(s, cfg)
	return s, nil
}

// RegisterCollection maps the type of sample to the given collection name.
// sample is typically a pointer to a zero-valued saga struct, e.g.
// RegisterCollection(&OrderSaga{}, "order_sagas").
func (s *SagaStore) RegisterCollection(sample SagaData, name string) error {
	return s.registry.register(reflect.TypeOf(sample), name)
}

func (s *SagaStore) collectionFor(ctx context.Context, sagaType reflect.Type, indexPaths []string) (*mongo.Collection, string, error) {
	name, err := s.registry.resolve(sagaType)
	if err != nil {
		return nil, "", err
	}
	if err := s.ensureIndexes(ctx, sagaType, name, indexPaths); err != nil {
		return nil, "", err
	}
	return s.client.collection(name), name, nil
}

// Insert stores data as a new saga document, first incrementing its revision
// by one (so a fresh saga with revision 0 is stored as revision 1).
// indexPaths lists the Go property paths on data's type that must be backed
// by a unique index (the saga's correlation properties); it may be nil.
func (s *SagaStore) Insert(ctx context.Context, data SagaData, indexPaths []string) error {
	t := reflect.TypeOf(data)
	coll, _, err := s.collectionFor(ctx, t, indexPaths)
	if err != nil {
		return err
	}

	nextRevision := data.SagaRevision() + 1
	data.SetSagaRevision(nextRevision)
	if _, err := coll.InsertOne(ctx, data); err != nil {
		data.SetSagaRevision(nextRevision - 1)
		if mongo.IsDuplicateKeyError(err) {
			metrics.ConflictCounter.WithLabelValues(t.String()).Inc()
			return &ConflictError{Data: data, Err: err}
		}
		return fmt.Errorf("mongostore: insert saga: %w", err)
	}
	return nil
}

// Update replaces the stored document matching data's Id and current
// revision, then bumps data's revision in place. If no document matches
// (because the revision has moved on, or the saga no longer exists), it
// returns a *ConflictError wrapping ErrOptimisticLockingConflict.
func (s *SagaStore) Update(ctx context.Context, data SagaData, indexPaths []string) error {
	t := reflect.TypeOf(data)
	coll, _, err := s.collectionFor(ctx, t, indexPaths)
	if err != nil {
		return err
	}

	revElement := revisionElementName(elemType(t))
	filter := bson.D{
		{Key: "_id", Value: data.SagaID()},
		{Key: revElement, Value: data.SagaRevision()},
	}
	nextRevision := data.SagaRevision() + 1
	data.SetSagaRevision(nextRevision)

	res, err := coll.ReplaceOne(ctx, filter, data)
	if err != nil {
		data.SetSagaRevision(nextRevision - 1)
		if mongo.IsDuplicateKeyError(err) {
			metrics.ConflictCounter.WithLabelValues(t.String()).Inc()
			return &ConflictError{Data: data, Err: err}
		}
		return fmt.Errorf("mongostore: update saga: %w", err)
	}
	if res.MatchedCount == 0 {
		data.SetSagaRevision(nextRevision - 1)
		metrics.ConflictCounter.WithLabelValues(t.String()).Inc()
		return &ConflictError{Data: data, Err: mongo.ErrNoDocuments}
	}
	return nil
}

// Delete removes the stored document matching data's Id and current
// revision. A mismatch is reported the same way as Update.
func (s *SagaStore) Delete(ctx context.Context, data SagaData) error {
	t := reflect.TypeOf(data)
	name, err := s.registry.resolve(t)
	if err != nil {
		return err
	}
	coll := s.client.collection(name)

	revElement := revisionElementName(elemType(t))
	filter := bson.D{
		{Key: "_id", Value: data.SagaID()},
		{Key: revElement, Value: data.SagaRevision()},
	}
	res, err := coll.DeleteOne(ctx, filter)
	if err != nil {
		return fmt.Errorf("mongostore: delete saga: %w", err)
	}
	if res.DeletedCount == 0 {
		metrics.ConflictCounter.WithLabelValues(t.String()).Inc()
		return &ConflictError{Data: data, Err: mongo.ErrNoDocuments}
	}
	return nil
}

// Find looks up a saga of type T by the value of one of its correlation
// properties. propertyPath follows the same Go-property-path syntax as
// Insert/Update's indexPaths (e.g. "CustomerID"). It returns ErrNotFound if
// no document matches.
func Find[T SagaData](ctx context.Context, s *SagaStore, propertyPath string, value any) (T, error) {
	var zero T
	sagaType := reflect.TypeOf(zero)
	if sagaType == nil {
		return zero, fmt.Errorf("mongostore: Find requires a concrete pointer type parameter: %w", ErrMissingCollectionMapping)
	}

	name, err := s.registry.resolve(sagaType)
	if err != nil {
		return zero, err
	}

	element := resolveElementName(elemType(sagaType), propertyPath)
	filter := bson.D{{Key: element, Value: value}}

	out := reflect.New(elemType(sagaType))
	if err := s.client.collection(name).FindOne(ctx, filter).Decode(out.Interface()); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return zero, fmt.Errorf("saga with %s = %v: %w", propertyPath, value, ErrNotFound)
		}
		return zero, fmt.Errorf("mongostore: find saga: %w", err)
	}

	result, ok := out.Interface().(T)
	if !ok {
		return zero, fmt.Errorf("mongostore: decoded %s does not satisfy requested type", sagaType)
	}
	return result, nil
}
