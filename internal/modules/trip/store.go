// README: Trip record store: single-writer critical section around load-mutate-save, owner of the pending queue.
package trip

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/milagros-hr/proyecto-transport/internal/modules/queue"
	"github.com/milagros-hr/proyecto-transport/internal/observability"
	"github.com/milagros-hr/proyecto-transport/internal/storage"
	"github.com/milagros-hr/proyecto-transport/internal/types"
)

const (
	CollectionRequests = "trip_requests"
	CollectionOffers   = "counter_offers"
	CollectionNotices  = "notices"
)

// PendingIndex tracks origins of open requests for proximity queries.
type PendingIndex interface {
	Reset(ctx context.Context, origins map[types.ID]types.Point) error
	Add(ctx context.Context, id types.ID, origin types.Point) error
	Remove(ctx context.Context, ids ...types.ID) error
	// Nearby returns ids within radiusKm of center with their distance in km.
	Nearby(ctx context.Context, center types.Point, radiusKm float64) (map[types.ID]float64, error)
}

// Store serializes every read-modify-write on the collections behind one mutex and keeps
// the FIFO queue of open requests in step with what was persisted.
type Store struct {
	mu    sync.Mutex
	db    storage.Collections
	queue *queue.Queue[types.ID]
	index PendingIndex
	now   func() time.Time
	log   *zap.Logger

	// origins mirrors the queue for index rebuilds; indexDirty is set when an index
	// write failed and the index may be missing open requests.
	origins    map[types.ID]types.Point
	indexDirty bool
}

type StoreOption func(*Store)

func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) { s.now = now }
}

func WithIndex(idx PendingIndex) StoreOption {
	return func(s *Store) { s.index = idx }
}

func WithStoreLogger(l *zap.Logger) StoreOption {
	return func(s *Store) { s.log = l }
}

// NewStore loads the collections and rebuilds the queue from open requests.
func NewStore(ctx context.Context, db storage.Collections, opts ...StoreOption) (*Store, error) {
	s := &Store{
		db:    db,
		queue:   queue.New[types.ID](),
		now:     time.Now,
		log:     zap.NewNop(),
		origins: make(map[types.ID]types.Point),
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.Resync(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Resync re-derives the queue and the proximity index from persisted open requests,
// ordered by creation time.
func (s *Store) Resync(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.begin(ctx)
	if err != nil {
		return err
	}
	open := make([]*Request, 0)
	for _, r := range tx.requests {
		if r.Status.Open() {
			open = append(open, r)
		}
	}
	sort.SliceStable(open, func(i, j int) bool {
		if open[i].CreatedAt.Equal(open[j].CreatedAt) {
			return open[i].ID < open[j].ID
		}
		return open[i].CreatedAt.Before(open[j].CreatedAt)
	})

	s.queue.Clear()
	origins := make(map[types.ID]types.Point, len(open))
	for _, r := range open {
		s.queue.Enqueue(r.ID)
		origins[r.ID] = r.Origin
	}
	s.origins = origins
	observability.PendingRequests.Set(float64(s.queue.Len()))
	s.rebuildIndex(ctx)
	return nil
}

// rebuildIndex replaces the index content with the queued origins. Callers hold mu.
func (s *Store) rebuildIndex(ctx context.Context) {
	if s.index == nil {
		return
	}
	if err := s.index.Reset(ctx, s.origins); err != nil {
		s.indexDirty = true
		s.log.Warn("reset pending index", zap.Error(err))
		return
	}
	s.indexDirty = false
}

// Nearby asks the proximity index for open requests within radiusKm of center. An index
// that missed a write is rebuilt first. ok is false when there is no usable index and the
// caller has to scan the queue itself.
func (s *Store) Nearby(ctx context.Context, center types.Point, radiusKm float64) (distances map[types.ID]float64, ok bool) {
	if s.index == nil {
		return nil, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.indexDirty {
		s.rebuildIndex(ctx)
		if s.indexDirty {
			return nil, false
		}
	}
	d, err := s.index.Nearby(ctx, center, radiusKm)
	if err != nil {
		s.log.Warn("pending index lookup failed; scanning queue", zap.Error(err))
		return nil, false
	}
	return d, true
}

// Update runs fn inside the critical section. Changes are persisted in one batch only
// when fn succeeds; on error nothing is written.
func (s *Store) Update(ctx context.Context, fn func(tx *Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.begin(ctx)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		return err
	}
	tx.settleOffers()
	if err := s.commit(ctx, tx); err != nil {
		return err
	}
	s.syncQueue(ctx, tx)
	return nil
}

// View runs fn against a consistent snapshot. Mutations made by fn are discarded.
func (s *Store) View(ctx context.Context, fn func(tx *Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.begin(ctx)
	if err != nil {
		return err
	}
	return fn(tx)
}

func (s *Store) begin(ctx context.Context) (*Tx, error) {
	start := time.Now()
	tx, err := s.load(ctx)
	observability.StoreDuration.WithLabelValues("load", observability.Result(err)).Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	return tx, nil
}

func (s *Store) load(ctx context.Context) (*Tx, error) {
	tx := &Tx{
		now:      s.now(),
		queue:    s.queue,
		baseline: make(map[string][]byte, 3),
		wasOpen:  make(map[types.ID]bool),
	}
	raw := make(map[string][]byte, 3)
	for _, name := range []string{CollectionRequests, CollectionOffers, CollectionNotices} {
		data, err := s.db.Load(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", name, err)
		}
		raw[name] = bytes.TrimSpace(data)
	}
	var err error
	if tx.requests, err = decode[*Request](CollectionRequests, raw[CollectionRequests]); err != nil {
		return nil, err
	}
	if tx.offers, err = decode[*Offer](CollectionOffers, raw[CollectionOffers]); err != nil {
		return nil, err
	}
	if tx.notices, err = decode[*Notice](CollectionNotices, raw[CollectionNotices]); err != nil {
		return nil, err
	}
	for _, r := range tx.requests {
		tx.wasOpen[r.ID] = r.Status.Open()
	}

	// Backends may hand back reformatted JSON (jsonb reorders keys), so changes are
	// detected against our own encoding of what was loaded.
	docs, err := tx.encode()
	if err != nil {
		return nil, err
	}
	for _, doc := range docs {
		tx.baseline[doc.Name] = doc.Data
	}
	return tx, nil
}

func (s *Store) commit(ctx context.Context, tx *Tx) error {
	all, err := tx.encode()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	var docs []storage.Document
	for _, doc := range all {
		if !bytes.Equal(doc.Data, tx.baseline[doc.Name]) {
			docs = append(docs, doc)
		}
	}
	if len(docs) == 0 {
		return nil
	}

	start := time.Now()
	err = s.db.Save(ctx, docs...)
	observability.StoreDuration.WithLabelValues("save", observability.Result(err)).Observe(time.Since(start).Seconds())
	if err != nil {
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	return nil
}

// syncQueue runs after a successful commit: new open requests join the tail, requests
// that left the open set are dropped.
func (s *Store) syncQueue(ctx context.Context, tx *Tx) {
	closed := make(map[types.ID]bool)
	for _, r := range tx.requests {
		if tx.wasOpen[r.ID] && !r.Status.Open() {
			closed[r.ID] = true
		}
	}
	if len(closed) > 0 {
		s.queue.Remove(func(id types.ID) bool { return closed[id] })
		ids := make([]types.ID, 0, len(closed))
		for id := range closed {
			delete(s.origins, id)
			ids = append(ids, id)
		}
		if s.index != nil && !s.indexDirty {
			if err := s.index.Remove(ctx, ids...); err != nil {
				s.indexDirty = true
				s.log.Warn("remove from pending index", zap.Error(err))
			}
		}
	}
	for _, r := range tx.created {
		if !r.Status.Open() {
			continue
		}
		s.queue.Enqueue(r.ID)
		s.origins[r.ID] = r.Origin
		if s.index != nil && !s.indexDirty {
			if err := s.index.Add(ctx, r.ID, r.Origin); err != nil {
				s.indexDirty = true
				s.log.Warn("add to pending index", zap.Error(err), zap.Stringer("request_id", r.ID))
			}
		}
	}
	observability.PendingRequests.Set(float64(s.queue.Len()))
}

func decode[T any](name string, raw []byte) ([]T, error) {
	if len(raw) == 0 {
		return []T{}, nil
	}
	var out []T
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode %s: %w", name, err)
	}
	return out, nil
}
