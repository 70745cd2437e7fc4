package mongostore

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTimeoutStore(t *testing.T) (*Client, *TimeoutStore) {
	t.Helper()
	skipShort(t)
	client := newTestClient(t, "mongostore_timeout_test")
	store, err := NewTimeoutStore(client, "timeouts", &TimeoutConfig{
		LockTimeoutsOffset:      2 * time.Second,
		MaxDueTimeoutsRetrieved: 5,
		PollTickInterval:        100 * time.Millisecond,
	})
	require.NoError(t, err)
	require.NoError(t, store.EnsureIndexes(context.Background()))
	return client, store
}

func TestTimeoutStoreLeasesOnlyDueTimeouts(t *testing.T) {
	_, store := newTestTimeoutStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	due := &Timeout{Time: now.Add(-time.Minute), SagaID: uuid.New()}
	notYetDue := &Timeout{Time: now.Add(time.Hour), SagaID: uuid.New()}
	require.NoError(t, store.Add(ctx, due))
	require.NoError(t, store.Add(ctx, notYetDue))

	leased, err := store.GetDueTimeouts(ctx)
	require.NoError(t, err)
	require.Len(t, leased, 1)
	assert.Equal(t, due.SagaID, leased[0].SagaID)
}

func TestTimeoutStoreDoesNotLeaseTwiceConcurrently(t *testing.T) {
	_, store := newTestTimeoutStore(t)
	ctx := context.Background()

	require.NoError(t, store.Add(ctx, &Timeout{Time: time.Now().UTC().Add(-time.Second), SagaID: uuid.New()}))

	firstBatch, err := store.GetDueTimeouts(ctx)
	require.NoError(t, err)
	require.Len(t, firstBatch, 1)

	secondBatch, err := store.GetDueTimeouts(ctx)
	require.NoError(t, err)
	assert.Len(t, secondBatch, 0, "a timeout leased by one poller must not be handed to another before its lease expires")
}

func TestTimeoutStoreReleasesAfterLeaseExpires(t *testing.T) {
	_, store := newTestTimeoutStore(t)
	ctx := context.Background()

	require.NoError(t, store.Add(ctx, &Timeout{Time: time.Now().UTC().Add(-time.Second), SagaID: uuid.New()}))

	firstBatch, err := store.GetDueTimeouts(ctx)
	require.NoError(t, err)
	require.Len(t, firstBatch, 1)

	time.Sleep(3 * time.Second)

	secondBatch, err := store.GetDueTimeouts(ctx)
	require.NoError(t, err)
	assert.Len(t, secondBatch, 1, "an expired lease must become available for leasing again")
}

func TestDueTimeoutMarkAsProcessedRemovesDocument(t *testing.T) {
	_, store := newTestTimeoutStore(t)
	ctx := context.Background()

	require.NoError(t, store.Add(ctx, &Timeout{Time: time.Now().UTC().Add(-time.Second), SagaID: uuid.New()}))
	leased, err := store.GetDueTimeouts(ctx)
	require.NoError(t, err)
	require.Len(t, leased, 1)

	require.NoError(t, leased[0].MarkAsProcessed(ctx))
	require.NoError(t, leased[0].MarkAsProcessed(ctx), "marking an already-removed timeout processed must be a no-op")
}
