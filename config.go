package mongostore

import (
	"fmt"
	"strings"
	"time"
)

// Config holds the connection-level settings shared by every store
// component. It is typically populated by github.com/alexflint/go-arg from
// flags or environment variables in the owning process's main package.
type Config struct {
	URI      string `arg:"--mongo-uri,env:MONGO_URI" placeholder:"URI" help:"MongoDB connection URI"`
	Database string `arg:"--mongo-database,env:MONGO_DATABASE" default:"bus" help:"MongoDB database name"`
}

// Validate reports ErrInvalidConfiguration if required fields are missing or
// blank.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.URI) == "" {
		return fmt.Errorf("URI must not be blank: %w", ErrInvalidConfiguration)
	}
	if strings.TrimSpace(c.Database) == "" {
		return fmt.Errorf("Database must not be blank: %w", ErrInvalidConfiguration)
	}
	return nil
}

// SagaConfig controls the saga store's background unique-index maintenance.
type SagaConfig struct {
	AllowAutomaticCollectionNames bool          `arg:"--saga-allow-automatic-collection-names,env:SAGA_ALLOW_AUTOMATIC_COLLECTION_NAMES" help:"derive collection names from saga type names instead of requiring RegisterCollection"`
	IndexDeclarationInterval      time.Duration `arg:"--saga-index-interval,env:SAGA_INDEX_INTERVAL" default:"10m" help:"base interval between background correlation-index maintenance passes"`
	IndexDeclarationVariation     time.Duration `arg:"--saga-index-variation,env:SAGA_INDEX_VARIATION" default:"5m" help:"random +/- variation applied to the index maintenance interval"`
}

// Validate reports ErrInvalidConfiguration if the variation would allow a
// negative or degenerate effective interval.
func (c *SagaConfig) Validate() error {
	if c.IndexDeclarationInterval <= 0 {
		return fmt.Errorf("IndexDeclarationInterval must be positive: %w", ErrInvalidConfiguration)
	}
	if c.IndexDeclarationVariation < 0 {
		return fmt.Errorf("IndexDeclarationVariation must not be negative: %w", ErrInvalidConfiguration)
	}
	if c.IndexDeclarationVariation > c.IndexDeclarationInterval {
		return fmt.Errorf("IndexDeclarationVariation (%s) exceeds IndexDeclarationInterval (%s): %w",
			c.IndexDeclarationVariation, c.IndexDeclarationInterval, ErrInvalidConfiguration)
	}
	return nil
}

// DefaultSagaConfig returns the configuration used when none is supplied.
func DefaultSagaConfig() *SagaConfig {
	return &SagaConfig{
		IndexDeclarationInterval:  10 * time.Minute,
		IndexDeclarationVariation: 5 * time.Minute,
	}
}

// TimeoutConfig controls timeout leasing.
type TimeoutConfig struct {
	LockTimeoutsOffset      time.Duration `arg:"--timeout-lock-offset,env:TIMEOUT_LOCK_OFFSET" default:"5s" help:"how far into the future a leased timeout's due_lock is set"`
	MaxDueTimeoutsRetrieved int           `arg:"--timeout-max-batch,env:TIMEOUT_MAX_BATCH" default:"5" help:"maximum number of due timeouts leased per GetDueTimeouts call"`
	PollTickInterval        time.Duration `arg:"--timeout-poll-tick,env:TIMEOUT_POLL_TICK" default:"300ms" help:"expected interval between GetDueTimeouts calls, used to sanity-check LockTimeoutsOffset"`
}

// Validate reports ErrInvalidConfiguration for out-of-range values. The
// lock offset must exceed the poll tick interval, or a slow poller could see
// its own lease expire before it returns to mark the timeout processed.
func (c *TimeoutConfig) Validate() error {
	if c.MaxDueTimeoutsRetrieved <= 0 {
		return fmt.Errorf("MaxDueTimeoutsRetrieved must be positive: %w", ErrInvalidConfiguration)
	}
	if c.LockTimeoutsOffset <= c.PollTickInterval {
		return fmt.Errorf("LockTimeoutsOffset (%s) must exceed PollTickInterval (%s): %w",
			c.LockTimeoutsOffset, c.PollTickInterval, ErrInvalidConfiguration)
	}
	return nil
}

// DefaultTimeoutConfig returns the configuration used when none is supplied.
func DefaultTimeoutConfig() *TimeoutConfig {
	return &TimeoutConfig{
		LockTimeoutsOffset:      5 * time.Second,
		MaxDueTimeoutsRetrieved: 5,
		PollTickInterval:        300 * time.Millisecond,
	}
}
