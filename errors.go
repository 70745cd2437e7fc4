package mongostore

import "errors"

// Sentinel errors returned by the store components. Callers should use
// errors.Is/errors.As rather than comparing against these directly, since
// they are frequently wrapped with additional context.
var (
	// ErrOptimisticLockingConflict is returned when an Update or Delete
	// targets a saga whose stored revision no longer matches the revision
	// supplied by the caller, or when an Insert collides with an existing
	// document on a unique correlation property.
	ErrOptimisticLockingConflict = errors.New("mongostore: optimistic locking conflict")

	// ErrNotFound is returned when Find locates no matching saga.
	ErrNotFound = errors.New("mongostore: no matching saga found")

	// ErrDuplicateCollectionMapping is returned by RegisterCollection when a
	// saga type already has a collection name registered.
	ErrDuplicateCollectionMapping = errors.New("mongostore: saga type already has a registered collection mapping")

	// ErrMissingCollectionMapping is returned when a saga type has no
	// registered collection name and automatic naming is disabled.
	ErrMissingCollectionMapping = errors.New("mongostore: saga type has no registered collection mapping")

	// ErrIndexMisconfigured is returned when a correlation property already
	// has an index that is not both unique and foreground.
	ErrIndexMisconfigured = errors.New("mongostore: correlation index exists but is not unique and foreground")

	// ErrInvalidConfiguration is returned by Validate when a configuration
	// value is out of its acceptable range.
	ErrInvalidConfiguration = errors.New("mongostore: invalid configuration")
)

// ConflictError reports an optimistic locking conflict, carrying the saga
// datum whose write was rejected so the caller can decide how to react
// (discard, retry with a fresh copy, or surface to the originating message).
type ConflictError struct {
	Data SagaData
	Err  error
}

func (e *ConflictError) Error() string {
	if e.Data == nil {
		return ErrOptimisticLockingConflict.Error()
	}
	return "mongostore: optimistic locking conflict on saga " + e.Data.SagaID()
}

// Unwrap lets errors.Is(err, ErrOptimisticLockingConflict) succeed while also
// exposing the underlying driver error, if any, to errors.As.
func (e *ConflictError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrOptimisticLockingConflict}
	}
	return []error{ErrOptimisticLockingConflict, e.Err}
}
