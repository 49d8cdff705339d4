package catalog

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"guardian-inventory/internal/cache"
	"guardian-inventory/internal/model"
)

const (
	// TablePrefix prefixes every durable key holding a table payload.
	TablePrefix = "def:"
	// VersionKey is the durable key holding the remembered catalog version.
	VersionKey = "manifest_version"
	// CacheGeneration is appended to the remote version so a change to the
	// durable layout invalidates old entries even when the remote is unchanged.
	CacheGeneration = "3"
)

// Source is the remote origin of catalog data.
type Source interface {
	CatalogVersion(ctx context.Context) (string, error)
	CatalogTable(ctx context.Context, table string) ([]byte, error)
}

// Stats describes the store for the admin endpoint.
type Stats struct {
	Version string       `json:"version"`
	Tables  []TableStats `json:"tables"`
	Hits    int64        `json:"hits"`
	Loads   int64        `json:"loads"`
	Fetches int64        `json:"fetches"`
}

// TableStats describes one table held in memory.
type TableStats struct {
	Name    string `json:"name"`
	Entries int    `json:"entries"`
}

// Option configures a Store.
type Option func(*Store)

// WithGeneration overrides CacheGeneration.
func WithGeneration(generation string) Option {
	return func(s *Store) {
		s.generation = generation
	}
}

// Store serves catalog definitions from three tiers: memory, the durable
// cache and the remote Source. A table is loaded as a whole, at most once
// per process, and concurrent loads of the same table share one fetch.
type Store struct {
	source     Source
	durable    cache.Cache
	generation string

	mu      sync.RWMutex
	tables  map[string]*Table
	version string
	epoch   uint64

	// persistMu orders durable table writes against invalidation: loads
	// hold it shared across their epoch check and write, Initialize and
	// Purge hold it exclusively across the epoch bump and the purge.
	persistMu sync.RWMutex

	group singleflight.Group

	hits    atomic.Int64
	loads   atomic.Int64
	fetches atomic.Int64
}

// NewStore creates a store over the given durable tier and remote source.
func NewStore(source Source, durable cache.Cache, opts ...Option) *Store {
	s := &Store{
		source:     source,
		durable:    durable,
		generation: CacheGeneration,
		tables:     make(map[string]*Table),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Initialize compares the remembered catalog version with the remote one
// and purges every durable table entry when they differ.
func (s *Store) Initialize(ctx context.Context) error {
	remote, err := s.source.CatalogVersion(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch catalog version: %w", err)
	}
	want := remote + "#" + s.generation

	local := ""
	if data, err := s.durable.Get(ctx, VersionKey); err == nil {
		local = string(data)
	} else if !errors.Is(err, cache.ErrCacheMiss) {
		log.Printf("[CatalogStore] Failed to read remembered version: %v", err)
	}

	if local == want {
		s.mu.Lock()
		s.version = want
		s.mu.Unlock()
		log.Printf("[CatalogStore] Catalog version %s unchanged", want)
		return nil
	}

	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	s.mu.Lock()
	s.epoch++
	s.tables = make(map[string]*Table)
	s.version = want
	s.mu.Unlock()

	purged, err := s.durable.DeletePrefix(ctx, TablePrefix)
	if err != nil {
		return fmt.Errorf("failed to purge stale tables: %w", err)
	}
	if err := s.durable.Set(ctx, VersionKey, []byte(want)); err != nil {
		return fmt.Errorf("failed to persist catalog version: %w", err)
	}

	log.Printf("[CatalogStore] Catalog version changed %q -> %q, purged %d tables", local, want, purged)
	return nil
}

// EnsureTable makes the table resident in memory and returns it.
func (s *Store) EnsureTable(ctx context.Context, name string) (*Table, error) {
	if t := s.resident(name); t != nil {
		s.hits.Add(1)
		return t, nil
	}

	// The shared load runs to completion even if the first caller goes away.
	shared := context.WithoutCancel(ctx)
	ch := s.group.DoChan(name, func() (any, error) {
		return s.load(shared, name)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Table), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Lookup returns the definitions for hashes that exist in the table.
// Unknown hashes are omitted.
func (s *Store) Lookup(ctx context.Context, table string, hashes []uint32) (map[uint32]model.Definition, error) {
	t, err := s.EnsureTable(ctx, table)
	if err != nil {
		return nil, err
	}
	out := make(map[uint32]model.Definition, len(hashes))
	for _, h := range hashes {
		if d, ok := t.Entries[h]; ok {
			out[h] = d
		}
	}
	return out, nil
}

// Peek reads a definition from memory only. It never triggers a load.
func (s *Store) Peek(table string, hash uint32) (model.Definition, bool) {
	t := s.resident(table)
	if t == nil {
		return nil, false
	}
	return t.Get(hash)
}

// ItemDefinition reads an item definition from memory only.
func (s *Store) ItemDefinition(hash uint32) (model.ItemDefinition, bool) {
	d, ok := s.Peek(model.TableInventoryItem, hash)
	if !ok {
		return model.ItemDefinition{}, false
	}
	item, ok := d.(model.ItemDefinition)
	return item, ok
}

// Preload loads the given tables in parallel.
func (s *Store) Preload(ctx context.Context, tables ...string) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, name := range tables {
		name := name
		g.Go(func() error {
			_, err := s.EnsureTable(gctx, name)
			return err
		})
	}
	return g.Wait()
}

// Purge drops every table from memory and the durable tier, including the
// remembered version.
func (s *Store) Purge(ctx context.Context) (int, error) {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	s.mu.Lock()
	s.epoch++
	s.tables = make(map[string]*Table)
	s.version = ""
	s.mu.Unlock()

	n, err := s.durable.DeletePrefix(ctx, TablePrefix)
	if err != nil {
		return 0, fmt.Errorf("failed to purge tables: %w", err)
	}
	if err := s.durable.Delete(ctx, VersionKey); err != nil {
		return n, fmt.Errorf("failed to delete catalog version: %w", err)
	}
	return n, nil
}

// Stats reports what the store currently holds.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	tables := make([]TableStats, 0, len(s.tables))
	for name, t := range s.tables {
		tables = append(tables, TableStats{Name: name, Entries: t.Len()})
	}
	version := s.version
	s.mu.RUnlock()

	sort.Slice(tables, func(i, j int) bool { return tables[i].Name < tables[j].Name })
	return Stats{
		Version: version,
		Tables:  tables,
		Hits:    s.hits.Load(),
		Loads:   s.loads.Load(),
		Fetches: s.fetches.Load(),
	}
}

func (s *Store) resident(name string) *Table {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tables[name]
}

func (s *Store) currentEpoch() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.epoch
}

// load resolves a table from the durable tier, falling back to the remote.
func (s *Store) load(ctx context.Context, name string) (*Table, error) {
	if t := s.resident(name); t != nil {
		return t, nil
	}
	s.loads.Add(1)
	epoch := s.currentEpoch()
	key := TablePrefix + name

	data, err := s.durable.Get(ctx, key)
	switch {
	case err == nil:
		t, derr := decodeTable(name, data)
		if derr == nil {
			return s.promote(epoch, t), nil
		}
		log.Printf("[CatalogStore] Discarding corrupt durable entry %s: %v", key, derr)
		if err := s.durable.Delete(ctx, key); err != nil {
			log.Printf("[CatalogStore] Failed to delete %s: %v", key, err)
		}
	case errors.Is(err, cache.ErrCacheMiss):
	default:
		log.Printf("[CatalogStore] Durable read of %s failed, fetching remote: %v", key, err)
	}

	s.fetches.Add(1)
	data, err = s.source.CatalogTable(ctx, name)
	if err != nil {
		return nil, &FetchError{Table: name, Err: err}
	}
	t, err := decodeTable(name, data)
	if err != nil {
		return nil, &FetchError{Table: name, Err: err}
	}

	s.persist(ctx, epoch, key, data)
	log.Printf("[CatalogStore] Fetched %s (%d entries)", name, t.Len())
	return s.promote(epoch, t), nil
}

// persist writes a fetched table to the durable tier unless the store was
// invalidated since the load started.
func (s *Store) persist(ctx context.Context, epoch uint64, key string, data []byte) {
	s.persistMu.RLock()
	defer s.persistMu.RUnlock()
	if s.currentEpoch() != epoch {
		return
	}
	if err := s.durable.Set(ctx, key, data); err != nil {
		log.Printf("[CatalogStore] Failed to persist %s: %v", key, err)
	}
}

// promote makes t resident unless the store was invalidated since the load
// started.
func (s *Store) promote(epoch uint64, t *Table) *Table {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.epoch == epoch {
		s.tables[t.Name] = t
	}
	return t
}
