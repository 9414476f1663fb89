package retrieval

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/jurisgraph/jurisgraph/pkg/graph"
)

// CentroidCache stores community centroid vectors between requests. Entries
// carry a TTL matching the community layer's refresh interval, so a stale
// clustering never serves stale centroids past its rebuild deadline.
type CentroidCache interface {
	Get(communityID string) ([]float32, bool)
	Set(communityID string, centroid []float32) error
	Close() error
}

// MemoryCentroidCache is the in-process cache used in fixture mode and tests.
type MemoryCentroidCache struct {
	mu  sync.RWMutex
	ttl time.Duration
	now func() time.Time
	m   map[string]memoryEntry
}

type memoryEntry struct {
	centroid []float32
	expires  time.Time
}

// NewMemoryCentroidCache creates an in-memory centroid cache.
func NewMemoryCentroidCache(ttl time.Duration) *MemoryCentroidCache {
	return &MemoryCentroidCache{ttl: ttl, now: time.Now, m: make(map[string]memoryEntry)}
}

func (c *MemoryCentroidCache) Get(communityID string) ([]float32, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.m[communityID]
	if !ok || c.now().After(e.expires) {
		return nil, false
	}
	return e.centroid, true
}

func (c *MemoryCentroidCache) Set(communityID string, centroid []float32) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[communityID] = memoryEntry{centroid: centroid, expires: c.now().Add(c.ttl)}
	return nil
}

func (c *MemoryCentroidCache) Close() error { return nil }

// BadgerCentroidCache persists centroids across restarts so a freshly booted
// replica does not recompute every community on its first request. Badger's
// native entry TTL enforces expiry.
type BadgerCentroidCache struct {
	db  *badger.DB
	ttl time.Duration
}

// NewBadgerCentroidCache opens (or creates) the cache at path.
func NewBadgerCentroidCache(path string, ttl time.Duration) (*BadgerCentroidCache, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open centroid cache: %w", err)
	}
	return &BadgerCentroidCache{db: db, ttl: ttl}, nil
}

func (c *BadgerCentroidCache) Get(communityID string) ([]float32, bool) {
	var centroid []float32
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(communityID))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			centroid = decodeVector(val)
			return nil
		})
	})
	if err != nil {
		return nil, false
	}
	return centroid, true
}

func (c *BadgerCentroidCache) Set(communityID string, centroid []float32) error {
	return c.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry([]byte(communityID), encodeVector(centroid)).WithTTL(c.ttl)
		return txn.SetEntry(e)
	})
}

func (c *BadgerCentroidCache) Close() error { return c.db.Close() }

func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(b []byte) []float32 {
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v
}

// Centroids resolves community centroids, computing them from member
// embeddings on a cache miss.
type Centroids struct {
	store graph.Store
	cache CentroidCache
}

// NewCentroids creates a centroid resolver backed by the given cache.
func NewCentroids(store graph.Store, cache CentroidCache) *Centroids {
	return &Centroids{store: store, cache: cache}
}

// For returns the centroid of the given community.
func (c *Centroids) For(ctx context.Context, communityID string) ([]float32, error) {
	if centroid, ok := c.cache.Get(communityID); ok {
		return centroid, nil
	}

	members, err := c.store.CommunityMembers(ctx, communityID)
	if err != nil {
		return nil, fmt.Errorf("members of %s: %w", communityID, err)
	}
	entities, err := c.store.GetEntities(ctx, members)
	if err != nil {
		return nil, fmt.Errorf("resolve members of %s: %w", communityID, err)
	}

	var embeddings [][]float32
	for _, e := range entities {
		if len(e.Embedding) > 0 {
			embeddings = append(embeddings, e.Embedding)
		}
	}
	if len(embeddings) == 0 {
		return nil, errors.New("community has no embedded members")
	}

	centroid := graph.Centroid(embeddings)
	if err := c.cache.Set(communityID, centroid); err != nil {
		return nil, fmt.Errorf("cache centroid of %s: %w", communityID, err)
	}
	return centroid, nil
}

var (
	_ CentroidCache = (*MemoryCentroidCache)(nil)
	_ CentroidCache = (*BadgerCentroidCache)(nil)
)
