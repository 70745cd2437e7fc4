package mongostore

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/relaybus/mongostore/internal/metrics"
)

// SubscriptionStore maps event types to the set of endpoints subscribed to
// receive them. One document per event type, with endpoints held in a
// deduplicated array.
type SubscriptionStore struct {
	collection *mongo.Collection
}

type subscriptionDocument struct {
	EventType string   `bson:"_id"`
	Endpoints []string `bson:"endpoints"`
}

// NewSubscriptionStore builds a SubscriptionStore backed by collectionName.
func NewSubscriptionStore(client *Client, collectionName string) *SubscriptionStore {
	return &SubscriptionStore{collection: client.collection(collectionName)}
}

// Store adds endpoint to the subscriber set for eventType, creating the
// document if it does not yet exist. Storing the same endpoint twice is a
// no-op.
func (s *SubscriptionStore) Store(ctx context.Context, eventType, endpoint string) error {
	filter := bson.D{{Key: "_id", Value: eventType}}
	update := bson.D{{Key: "$addToSet", Value: bson.D{{Key: "endpoints", Value: endpoint}}}}
	if _, err := s.collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true)); err != nil {
		return fmt.Errorf("mongostore: store subscription: %w", err)
	}
	metrics.SubscriptionWriteCounter.WithLabelValues(eventType, "store").Inc()
	return nil
}

// Remove removes endpoint from the subscriber set for eventType. Removing an
// endpoint that was never subscribed leaves the set unchanged. Removing from
// an event type with no subscription document upserts an empty one, so
// GetSubscribers still returns an empty slice for it.
func (s *SubscriptionStore) Remove(ctx context.Context, eventType, endpoint string) error {
	filter := bson.D{{Key: "_id", Value: eventType}}
	update := bson.D{{Key: "$pull", Value: bson.D{{Key: "endpoints", Value: endpoint}}}}
	if _, err := s.collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true)); err != nil {
		return fmt.Errorf("mongostore: remove subscription: %w", err)
	}
	metrics.SubscriptionWriteCounter.WithLabelValues(eventType, "remove").Inc()
	return nil
}

// GetSubscribers returns the endpoints currently subscribed to eventType, or
// an empty slice if there are none.
func (s *SubscriptionStore) GetSubscribers(ctx context.Context, eventType string) ([]string, error) {
	var doc subscriptionDocument
	err := s.collection.FindOne(ctx, bson.D{{Key: "_id", Value: eventType}}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("mongostore: get subscribers: %w", err)
	}
	if doc.Endpoints == nil {
		return []string{}, nil
	}
	return doc.Endpoints, nil
}
