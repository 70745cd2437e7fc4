package mongostore

import "time"

// Clock abstracts wall-clock time so tests can control what "now" means
// without sleeping or racing against the real clock.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// SystemClock is the default Clock, backed by time.Now.
var SystemClock Clock = systemClock{}
