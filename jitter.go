package mongostore

import (
	"math/rand"
	"sync"
	"time"
)

// seedMu guards the single top-level source used to seed per-goroutine
// generators. It is only ever touched at pool.New time, so contention is
// negligible even under heavy concurrent index-maintenance activity.
var seedMu sync.Mutex
var seedSrc = rand.New(rand.NewSource(time.Now().UnixNano()))

// randPool hands out a *rand.Rand per borrower so concurrent callers never
// share generator state. math/rand.Rand is not safe for concurrent use, and
// the background index-maintenance timer runs on its own goroutine alongside
// any number of request-handling goroutines calling into the saga store.
var randPool = sync.Pool{
	New: func() any {
		seedMu.Lock()
		seed := seedSrc.Int63()
		seedMu.Unlock()
		return rand.New(rand.NewSource(seed))
	},
}

// jitter returns base adjusted by a uniformly distributed random offset in
// [-variation, variation]. A non-positive variation disables jitter and
// returns base unchanged. The result is never negative.
func jitter(base, variation time.Duration) time.Duration {
	if variation <= 0 {
		return base
	}
	r := randPool.Get().(*rand.Rand)
	defer randPool.Put(r)

	span := int64(variation)*2 + 1
	offset := r.Int63n(span) - int64(variation)
	d := base + time.Duration(offset)
	if d < 0 {
		return 0
	}
	return d
}
