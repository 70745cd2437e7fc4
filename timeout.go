package mongostore

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Timeout is a single scheduled wakeup registered by a saga. CorrID and
// ReplyTo are optional and may be nil.
type Timeout struct {
	ID      primitive.ObjectID `bson:"_id,omitempty"`
	Time    time.Time          `bson:"time"`
	SagaID  uuid.UUID          `bson:"saga_id"`
	CorrID  *string            `bson:"corr_id,omitempty"`
	Data    *string            `bson:"data,omitempty"`
	ReplyTo *string            `bson:"reply_to,omitempty"`
	DueLock *time.Time         `bson:"due_lock,omitempty"`
}

// DueTimeout is a Timeout that was due at the moment it was leased by
// GetDueTimeouts, bound to the store that leased it so the caller can mark
// it processed once it has been acted on.
type DueTimeout struct {
	Timeout
	store *TimeoutStore
}

// MarkAsProcessed deletes the leased timeout. It is a no-op if the timeout
// was already removed, so callers may retry safely after a transient error.
func (d *DueTimeout) MarkAsProcessed(ctx context.Context) error {
	return d.store.markProcessed(ctx, d.ID)
}
