package mongostore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSubscriptionStore(t *testing.T) *SubscriptionStore {
	t.Helper()
	skipShort(t)
	client := newTestClient(t, "mongostore_subscription_test")
	return NewSubscriptionStore(client, "subscriptions")
}

func TestSubscriptionStoreGetSubscribersEmptyByDefault(t *testing.T) {
	store := newTestSubscriptionStore(t)
	subs, err := store.GetSubscribers(context.Background(), "OrderPlaced")
	require.NoError(t, err)
	assert.Empty(t, subs)
}

func TestSubscriptionStoreStoreAndRemove(t *testing.T) {
	store := newTestSubscriptionStore(t)
	ctx := context.Background()

	require.NoError(t, store.Store(ctx, "OrderPlaced", "http://a"))
	require.NoError(t, store.Store(ctx, "OrderPlaced", "http://b"))
	require.NoError(t, store.Store(ctx, "OrderPlaced", "http://a"))

	subs, err := store.GetSubscribers(ctx, "OrderPlaced")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"http://a", "http://b"}, subs)

	require.NoError(t, store.Remove(ctx, "OrderPlaced", "http://a"))
	subs, err = store.GetSubscribers(ctx, "OrderPlaced")
	require.NoError(t, err)
	assert.Equal(t, []string{"http://b"}, subs)
}

func TestSubscriptionStoreRemoveFromUnknownEventTypeIsNoop(t *testing.T) {
	store := newTestSubscriptionStore(t)
	err := store.Remove(context.Background(), "NeverSubscribed", "http://a")
	require.NoError(t, err)
}
