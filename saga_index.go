package mongostore

import (
	"context"
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/sync/errgroup"

	"github.com/relaybus/mongostore/internal/metrics"
)

// indexMaintainer amortizes unique-index checks across writes: the first
// write after each timer tick re-verifies the correlation indexes for the
// saga types it touches; subsequent writes in the same window skip straight
// through. This keeps steady-state writes free of an Indexes().List round
// trip while still catching indexes dropped or altered out of band.
type indexMaintainer struct {
	store *SagaStore

	indexEnsuredRecently     atomic.Bool
	indexEnsuredRecentlyLock sync.Mutex

	// timerMu guards timer, interval, and variation together: tick() reads
	// interval/variation to reschedule itself on the timer's own goroutine,
	// while SetIndexDeclarationInterval writes them from whatever goroutine
	// the caller uses, so both the values and the *time.Timer they feed must
	// change under the same lock.
	timerMu   sync.Mutex
	timer     *time.Timer
	interval  time.Duration
	variation time.Duration
}

func newIndexMaintainer(s *SagaStore, cfg *SagaConfig) *indexMaintainer {
	m := &indexMaintainer{store: s}
	m.rearm(cfg.IndexDeclarationInterval, cfg.IndexDeclarationVariation)
	return m
}

func (m *indexMaintainer) rearm(interval, variation time.Duration) {
	m.timerMu.Lock()
	defer m.timerMu.Unlock()
	m.interval = interval
	m.variation = variation
	if m.timer != nil {
		m.timer.Stop()
	}
	m.timer = time.AfterFunc(jitter(interval, variation), m.tick)
}

func (m *indexMaintainer) tick() {
	m.indexEnsuredRecently.Store(false)

	m.timerMu.Lock()
	interval, variation := m.interval, m.variation
	m.timerMu.Unlock()

	m.rearm(interval, variation)
}

// SetIndexDeclarationInterval changes the background maintenance cadence
// and immediately reschedules the pending timer.
func (s *SagaStore) SetIndexDeclarationInterval(interval, variation time.Duration) error {
	cfg := &SagaConfig{
		AllowAutomaticCollectionNames: s.cfg.AllowAutomaticCollectionNames,
		IndexDeclarationInterval:      interval,
		IndexDeclarationVariation:     variation,
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	s.indexMaintainer.rearm(interval, variation)
	s.client.logger.Info("saga index declaration interval updated", "interval", interval.String(), "variation", variation.String())
	return nil
}

// Close stops the background maintenance timer. It does not close the
// underlying Client, which may be shared with other stores.
func (s *SagaStore) Close() {
	s.indexMaintainer.timerMu.Lock()
	defer s.indexMaintainer.timerMu.Unlock()
	if s.indexMaintainer.timer != nil {
		s.indexMaintainer.timer.Stop()
	}
}

type existingIndex struct {
	unique     bool
	background bool
}

// ensureIndexes verifies, and creates as needed, a unique foreground index
// for each correlation property in indexPaths. It is a no-op if the current
// window has already been checked. The check itself is guarded by a mutex
// rather than the atomic flag alone, so concurrent writers for the same
// saga type block behind a single Indexes().List + CreateOne pass instead of
// racing duplicate index creation.
func (s *SagaStore) ensureIndexes(ctx context.Context, sagaType reflect.Type, collectionName string, indexPaths []string) error {
	if s.indexEnsuredRecently.Load() || len(indexPaths) == 0 {
		return nil
	}

	s.indexEnsuredRecentlyLock.Lock()
	defer s.indexEnsuredRecentlyLock.Unlock()
	if s.indexEnsuredRecently.Load() {
		return nil
	}

	start := s.client.clock.Now()
	coll := s.client.collection(collectionName)

	existing, err := listSingleKeyIndexes(ctx, coll)
	if err != nil {
		return fmt.Errorf("mongostore: list indexes for %s: %w", collectionName, err)
	}

	structType := elemType(sagaType)
	g, gctx := errgroup.WithContext(ctx)
	for _, path := range indexPaths {
		path := path
		if path == "Id" || path == "ID" {
			continue
		}
		element := resolveElementName(structType, path)
		if info, ok := existing[element]; ok {
			if !info.unique || info.background {
				return fmt.Errorf("index on %s (%s): %w", path, element, ErrIndexMisconfigured)
			}
			continue
		}
		g.Go(func() error {
			_, err := coll.Indexes().CreateOne(gctx, mongo.IndexModel{
				Keys:    bson.D{{Key: element, Value: 1}},
				Options: options.Index().SetUnique(true).SetName("uniq_" + element),
			})
			if err != nil {
				return fmt.Errorf("create index on %s: %w", element, err)
			}
			metrics.IndexCreatedCounter.WithLabelValues(sagaType.String(), path).Inc()
			s.client.logger.Info("created unique correlation index", "saga_type", sagaType.String(), "path", path, "element", element)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	metrics.IndexCheckHistogram.WithLabelValues(sagaType.String()).Observe(s.client.clock.Now().Sub(start).Seconds())
	s.indexEnsuredRecently.Store(true)
	return nil
}

// listSingleKeyIndexes returns the single-field indexes currently defined on
// coll, keyed by field name, skipping the compound and _id indexes.
func listSingleKeyIndexes(ctx context.Context, coll *mongo.Collection) (map[string]existingIndex, error) {
	cur, err := coll.Indexes().List(ctx)
	if err != nil {
		return nil, err
	}
	var docs []bson.M
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}

	result := make(map[string]existingIndex, len(docs))
	for _, doc := range docs {
		keyDoc, ok := doc["key"].(bson.M)
		if !ok || len(keyDoc) != 1 {
			continue
		}
		for field := range keyDoc {
			if field == "_id" {
				continue
			}
			info := existingIndex{}
			if u, ok := doc["unique"].(bool); ok {
				info.unique = u
			}
			if b, ok := doc["background"].(bool); ok {
				info.background = b
			}
			result[field] = info
		}
	}
	return result, nil
}
